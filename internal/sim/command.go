package sim

import (
	"time"

	"arena/internal/game"
)

// CommandType enumerates the commands a client connection can stage.
type CommandType string

const (
	CommandInput CommandType = "Input"
	CommandPong  CommandType = "Pong"
)

// InputCommand is a player input tagged with the tick it targets.
type InputCommand struct {
	Tick  game.TickNum `json:"tick"`
	Input game.Input   `json:"input"`
}

// PongCommand echoes a ping sequence number.
type PongCommand struct {
	Sequence uint32 `json:"sequence"`
}

// Command is an intent captured between ticks and handed to the next step.
type Command struct {
	ActorID  game.PlayerID `json:"actorId"`
	Type     CommandType   `json:"type"`
	IssuedAt time.Time     `json:"issuedAt"`
	Input    *InputCommand `json:"input,omitempty"`
	Pong     *PongCommand  `json:"pong,omitempty"`
}
