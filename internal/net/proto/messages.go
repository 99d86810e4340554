package proto

import (
	"errors"
	"fmt"

	"arena/internal/game"
)

// Version tracks the wire-protocol revision expected by clients.
const Version = 1

// ServerMessageType identifies a server to client payload.
type ServerMessageType string

const (
	TypeTick ServerMessageType = "tick"
	TypePing ServerMessageType = "ping"
)

// ClientMessageType identifies a client to server payload.
type ClientMessageType string

const (
	TypeInput ClientMessageType = "input"
	TypePong  ClientMessageType = "pong"
)

var (
	// ErrUnknownMessageType is returned for payloads with an unrecognised type.
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrMissingPayload is returned when the variant named by Type is absent.
	ErrMissingPayload = errors.New("message payload missing")
)

// PlayerEntry is one roster entry of a tick.
type PlayerEntry struct {
	ID     game.PlayerID `json:"id" msgpack:"id"`
	Player game.Player   `json:"player" msgpack:"player"`
}

// EntityEntry is one entity of a tick.
type EntityEntry struct {
	ID     game.EntityID `json:"id" msgpack:"id"`
	Entity game.Entity   `json:"entity" msgpack:"entity"`
}

// TickMessage carries the full authoritative state after one tick. Players
// and entities are sorted by id.
type TickMessage struct {
	TickNum       game.TickNum  `json:"tickNum" msgpack:"tickNum"`
	GameTime      game.GameTime `json:"gameTime" msgpack:"gameTime"`
	NextEntityID  game.EntityID `json:"nextEntityId" msgpack:"nextEntityId"`
	Players       []PlayerEntry `json:"players" msgpack:"players"`
	Entities      []EntityEntry `json:"entities" msgpack:"entities"`
	Events        []game.Event  `json:"events" msgpack:"events"`
	YourLastInput *game.TickNum `json:"yourLastInput,omitempty" msgpack:"yourLastInput,omitempty"`
}

// PingMessage asks the client to echo Sequence back in a pong.
type PingMessage struct {
	Sequence uint32 `json:"sequence" msgpack:"sequence"`
}

// ServerMessage is the server to client envelope. Type selects the variant.
type ServerMessage struct {
	Type ServerMessageType `json:"type" msgpack:"type" jsonschema:"enum=tick,enum=ping"`
	Tick *TickMessage      `json:"tick,omitempty" msgpack:"tick,omitempty"`
	Ping *PingMessage      `json:"ping,omitempty" msgpack:"ping,omitempty"`
}

// InputMessage is a player input tagged with the tick it targets.
type InputMessage struct {
	Tick  game.TickNum `json:"tick" msgpack:"tick"`
	Input game.Input   `json:"input" msgpack:"input"`
}

// PongMessage answers a ping.
type PongMessage struct {
	Sequence uint32 `json:"sequence" msgpack:"sequence"`
}

// ClientMessage is the client to server envelope. Type selects the variant.
type ClientMessage struct {
	Type  ClientMessageType `json:"type" msgpack:"type" jsonschema:"enum=input,enum=pong"`
	Input *InputMessage     `json:"input,omitempty" msgpack:"input,omitempty"`
	Pong  *PongMessage      `json:"pong,omitempty" msgpack:"pong,omitempty"`
}

// SignedClientMessage pairs a message with the sender's player token.
type SignedClientMessage struct {
	Token   string        `json:"token" msgpack:"token"`
	Message ClientMessage `json:"message" msgpack:"message"`
}

// JoinRequest is posted to /join.
type JoinRequest struct {
	GameID     *string `json:"gameId,omitempty"`
	PlayerName string  `json:"playerName"`
}

// JoinSuccess carries what a client needs before it starts ticking.
type JoinSuccess struct {
	ProtocolVersion int           `json:"protocolVersion"`
	GameID          string        `json:"gameId"`
	YourToken       string        `json:"yourToken"`
	YourPlayerID    game.PlayerID `json:"yourPlayerId"`
	GameSettings    game.Settings `json:"gameSettings"`
}

// JoinReply is either a success or an error string.
type JoinReply struct {
	Success *JoinSuccess `json:"success,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// NewTickMessage renders g into a tick message.
func NewTickMessage(g *game.Game, events []game.Event, yourLastInput *game.TickNum) TickMessage {
	msg := TickMessage{
		TickNum:      g.TickNum,
		GameTime:     g.CurrentGameTime(),
		NextEntityID: g.NextEntityID,
		Players:      make([]PlayerEntry, 0, len(g.Players)),
		Entities:     make([]EntityEntry, 0, len(g.Entities)),
		Events:       append([]game.Event(nil), events...),
	}
	for _, id := range g.SortedPlayerIDs() {
		msg.Players = append(msg.Players, PlayerEntry{ID: id, Player: g.Players[id]})
	}
	for _, id := range g.SortedEntityIDs() {
		msg.Entities = append(msg.Entities, EntityEntry{ID: id, Entity: g.Entities[id].Clone()})
	}
	if yourLastInput != nil {
		ack := *yourLastInput
		msg.YourLastInput = &ack
	}
	return msg
}

// Game rebuilds the world snapshot described by the message.
func (m TickMessage) Game(settings game.Settings) *game.Game {
	g := &game.Game{
		Settings:     settings,
		TickNum:      m.TickNum,
		NextEntityID: m.NextEntityID,
		Players:      make(game.PlayerMap, len(m.Players)),
		Entities:     make(game.EntityMap, len(m.Entities)),
	}
	for _, entry := range m.Players {
		g.Players[entry.ID] = entry.Player
	}
	for _, entry := range m.Entities {
		g.Entities[entry.ID] = entry.Entity.Clone()
	}
	return g
}

// Validate checks that the variant named by Type is present.
func (m ServerMessage) Validate() error {
	switch m.Type {
	case TypeTick:
		if m.Tick == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, m.Type)
		}
	case TypePing:
		if m.Ping == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, m.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}
	return nil
}

// Validate checks that the variant named by Type is present.
func (m ClientMessage) Validate() error {
	switch m.Type {
	case TypeInput:
		if m.Input == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, m.Type)
		}
	case TypePong:
		if m.Pong == nil {
			return fmt.Errorf("%w: %s", ErrMissingPayload, m.Type)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}
	return nil
}

// NewTick wraps a tick message.
func NewTick(msg TickMessage) ServerMessage {
	return ServerMessage{Type: TypeTick, Tick: &msg}
}

// NewPing wraps a ping.
func NewPing(sequence uint32) ServerMessage {
	return ServerMessage{Type: TypePing, Ping: &PingMessage{Sequence: sequence}}
}

// NewInput wraps an input.
func NewInput(tick game.TickNum, input game.Input) ClientMessage {
	return ClientMessage{Type: TypeInput, Input: &InputMessage{Tick: tick, Input: input}}
}

// NewPong wraps a pong.
func NewPong(sequence uint32) ClientMessage {
	return ClientMessage{Type: TypePong, Pong: &PongMessage{Sequence: sequence}}
}
