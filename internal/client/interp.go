package client

import (
	"arena/internal/game"
	"arena/internal/geom"
)

// Tau is the interpolation factor of now between two snapshot times, clamped
// to [0, 1]. It is 0 when the interval is empty.
func Tau(stateTime, nextTime, now game.GameTime) float64 {
	span := nextTime - stateTime
	if span <= 0 {
		return 0
	}
	tau := (now - stateTime) / span
	switch {
	case tau < 0:
		return 0
	case tau > 1:
		return 1
	default:
		return tau
	}
}

// NextEntity is an entity as it appears in the next buffered snapshot.
type NextEntity struct {
	GameTime game.GameTime
	Entity   game.Entity
}

// interpolate returns the display position of entity at time now. Player
// bodies are blended towards their next position, everything else is a
// function of time already.
func interpolate(entity game.Entity, stateTime game.GameTime, next *NextEntity, now game.GameTime) (geom.Point, bool) {
	player, err := entity.AsPlayer()
	if err != nil {
		return entity.Pos(now)
	}
	if next == nil {
		return player.Pos, true
	}
	nextPlayer, err := next.Entity.AsPlayer()
	if err != nil {
		return player.Pos, true
	}
	tau := Tau(stateTime, next.GameTime, now)
	return player.Pos.Add(nextPlayer.Pos.Sub(player.Pos).Mul(tau)), true
}
