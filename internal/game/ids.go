package game

// GameTime is the simulation clock in seconds, derived from tick numbers.
type GameTime = float64

// TickNum counts simulation steps. It advances by exactly one per step.
type TickNum uint32

// Next returns the following tick.
func (n TickNum) Next() TickNum { return n + 1 }

// PlayerID identifies a player for the lifetime of a game.
type PlayerID uint32

// Next returns the following player id.
func (id PlayerID) Next() PlayerID { return id + 1 }

// EntityID identifies an entity for the lifetime of a game.
type EntityID uint32

// Next returns the following entity id.
func (id EntityID) Next() EntityID { return id + 1 }

// Input is one frame of player intent.
type Input struct {
	MoveLeft  bool `json:"moveLeft" msgpack:"moveLeft"`
	MoveRight bool `json:"moveRight" msgpack:"moveRight"`
	MoveUp    bool `json:"moveUp" msgpack:"moveUp"`
	MoveDown  bool `json:"moveDown" msgpack:"moveDown"`
	UseItem   bool `json:"useItem" msgpack:"useItem"`
	// UseAction is the secondary action key. No rule reads it yet.
	UseAction bool `json:"useAction" msgpack:"useAction"`
}
