package proto

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Document lists every payload exchanged with clients. It only exists to be
// reflected into a JSON schema.
type Document struct {
	Server      ServerMessage       `json:"server"`
	Client      SignedClientMessage `json:"client"`
	JoinRequest JoinRequest         `json:"joinRequest"`
	JoinReply   JoinReply           `json:"joinReply"`
}

// Schema reflects the protocol into a JSON schema.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(Document))
	schema.Title = "Arena Wire Protocol"
	schema.Description = "Join payloads (JSON) and websocket frames (msgpack, same field names)."
	return schema
}

// SchemaJSON renders Schema as indented JSON.
func SchemaJSON() ([]byte, error) {
	data, err := json.MarshalIndent(Schema(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
