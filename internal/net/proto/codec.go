package proto

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeServerMessage renders a server message as a binary frame.
func EncodeServerMessage(msg ServerMessage) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msgpack.Marshal(msg)
}

// DecodeServerMessage parses a binary frame from the server.
func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode server message: %w", err)
	}
	return msg, msg.Validate()
}

// EncodeClientMessage renders a signed client message as a binary frame.
func EncodeClientMessage(msg SignedClientMessage) ([]byte, error) {
	if err := msg.Message.Validate(); err != nil {
		return nil, err
	}
	return msgpack.Marshal(msg)
}

// DecodeClientMessage parses a binary frame from a client.
func DecodeClientMessage(data []byte) (SignedClientMessage, error) {
	var msg SignedClientMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("decode client message: %w", err)
	}
	return msg, msg.Message.Validate()
}

// Canonical encodes v with sorted map keys. Tick messages carry no maps, so
// equal ticks always produce equal bytes.
func Canonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Checksum returns the hex sha256 of the canonical encoding of a tick.
func Checksum(msg TickMessage) (string, error) {
	data, err := Canonical(msg)
	if err != nil {
		return "", fmt.Errorf("checksum tick %d: %w", msg.TickNum, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
