package bot

import (
	"math"

	"arena/internal/client"
	"arena/internal/game"
	"arena/internal/geom"
)

const (
	wanderLegFrames = 60
	fireEveryFrames = 30
	huntRange       = 300
)

// Wander walks a square and fires on a fixed cadence.
func Wander() Policy {
	return PolicyFunc(func(frame uint64, _ *client.Session) game.Input {
		var input game.Input
		switch (frame / wanderLegFrames) % 4 {
		case 0:
			input.MoveRight = true
		case 1:
			input.MoveDown = true
		case 2:
			input.MoveLeft = true
		default:
			input.MoveUp = true
		}
		input.UseItem = frame%fireEveryFrames == 0
		return input
	})
}

// Hunt walks towards the nearest other player and fires once in range. With
// nobody to chase it falls back to Wander.
func Hunt() Policy {
	wander := Wander()
	return PolicyFunc(func(frame uint64, s *client.Session) game.Input {
		me, ok := ownPosition(s)
		if !ok {
			return wander.Input(frame, s)
		}
		target, dist, ok := nearestOpponent(s, me)
		if !ok {
			return wander.Input(frame, s)
		}
		delta := target.Sub(me)
		input := game.Input{
			MoveRight: delta[0] > 1,
			MoveLeft:  delta[0] < -1,
			MoveDown:  delta[1] > 1,
			MoveUp:    delta[1] < -1,
		}
		input.UseItem = dist < huntRange && frame%(fireEveryFrames/3) == 0
		return input
	})
}

func ownPosition(s *client.Session) (geom.Point, bool) {
	predicted := s.Predicted()
	if predicted == nil {
		return geom.Point{}, false
	}
	_, body, ok := predicted.PlayerEntity(s.MyPlayerID())
	if !ok {
		return geom.Point{}, false
	}
	return body.Pos, true
}

func nearestOpponent(s *client.Session, me geom.Point) (geom.Point, float64, bool) {
	state := s.State()
	if state == nil {
		return geom.Point{}, 0, false
	}
	best := math.Inf(1)
	var target geom.Point
	for _, id := range state.SortedEntityIDs() {
		player, err := state.Entities[id].AsPlayer()
		if err != nil || player.Owner == s.MyPlayerID() {
			continue
		}
		pos, ok := s.EntityPos(id)
		if !ok {
			continue
		}
		if d := pos.Sub(me).Len(); d < best {
			best, target = d, pos
		}
	}
	return target, best, !math.IsInf(best, 1)
}
