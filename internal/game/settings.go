package game

import (
	"errors"
	"fmt"

	"arena/internal/geom"
)

// Settings describes the fixed parameters of a game world.
type Settings struct {
	MaxNumPlayers  int          `json:"maxNumPlayers" msgpack:"maxNumPlayers" jsonschema:"minimum=1"`
	TicksPerSecond int          `json:"ticksPerSecond" msgpack:"ticksPerSecond" jsonschema:"minimum=1"`
	Size           geom.Vector  `json:"size" msgpack:"size"`
	SpawnPoints    []geom.Point `json:"spawnPoints" msgpack:"spawnPoints"`
	RespawnDelay   GameTime     `json:"respawnDelay" msgpack:"respawnDelay"`
}

// DefaultSettings returns the standard arena layout.
func DefaultSettings() Settings {
	return Settings{
		MaxNumPlayers:  16,
		TicksPerSecond: 30,
		Size:           geom.Vector{1280, 720},
		SpawnPoints: []geom.Point{
			{350, 100},
			{600, 600},
			{50, 500},
		},
		RespawnDelay: 2,
	}
}

// TickPeriod returns the duration of one tick in game time.
func (s Settings) TickPeriod() GameTime {
	return 1 / GameTime(s.TicksPerSecond)
}

// AaRect returns the playable world rectangle.
func (s Settings) AaRect() geom.AaRect {
	return geom.NewTopLeft(geom.Point{0, 0}, s.Size)
}

// Validate reports settings that would make the simulation ill-defined.
func (s Settings) Validate() error {
	var errs []error
	if s.TicksPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("ticks per second must be positive, got %d", s.TicksPerSecond))
	}
	if s.MaxNumPlayers <= 0 {
		errs = append(errs, fmt.Errorf("max players must be positive, got %d", s.MaxNumPlayers))
	}
	if s.Size[0] < PlayerSitW || s.Size[1] < PlayerSitL {
		errs = append(errs, fmt.Errorf("world size %v smaller than a player", s.Size))
	}
	if len(s.SpawnPoints) == 0 {
		errs = append(errs, errors.New("at least one spawn point is required"))
	}
	return errors.Join(errs...)
}

func (s Settings) clone() Settings {
	cloned := s
	if s.SpawnPoints != nil {
		cloned.SpawnPoints = append([]geom.Point(nil), s.SpawnPoints...)
	}
	return cloned
}
