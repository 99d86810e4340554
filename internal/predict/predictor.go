// Package predict keeps a locally predicted world ahead of the last
// authoritative snapshot by replaying unconfirmed inputs.
package predict

import (
	"errors"
	"fmt"

	"arena/internal/game"
)

const (
	// DefaultMaxPending bounds the unconfirmed input FIFO.
	DefaultMaxPending = 256
	// DefaultMaxLead bounds how far ahead of the confirmed tick an input may be tagged.
	DefaultMaxLead game.TickNum = 128
)

var (
	// ErrInputOutOfOrder is returned when an input tag does not increase.
	ErrInputOutOfOrder = errors.New("input tag not after previous input")
	// ErrStaleInput is returned for inputs tagged at or before the confirmed tick.
	ErrStaleInput = errors.New("input tag already confirmed")
	// ErrInputTooFarAhead is returned for inputs tagged beyond MaxLead.
	ErrInputTooFarAhead = errors.New("input tag too far ahead of confirmed tick")
)

// PendingInput is a locally issued input the server has not acknowledged.
type PendingInput struct {
	Tick  game.TickNum
	Input game.Input
}

// Config configures a Predictor.
type Config struct {
	PlayerID   game.PlayerID
	MaxPending int
	MaxLead    game.TickNum
}

// Predictor owns the last confirmed snapshot, the unconfirmed inputs and the
// prediction derived from them. The prediction is always rebuilt by cloning
// the confirmed snapshot and replaying the pending inputs, never patched.
type Predictor struct {
	cfg Config

	confirmed *game.Game
	predicted *game.Game
	pending   []PendingInput
	lastTag   game.TickNum
	hasTag    bool
}

// New returns an empty predictor.
func New(cfg Config) *Predictor {
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultMaxPending
	}
	if cfg.MaxLead == 0 {
		cfg.MaxLead = DefaultMaxLead
	}
	return &Predictor{cfg: cfg}
}

// OnAuthoritative adopts a newer authoritative snapshot and rebuilds the
// prediction. The predictor takes ownership of snapshot. Snapshots that are
// not newer than the confirmed one are ignored and false is returned.
// yourLastInput is the newest input tag the server has applied, if known.
func (p *Predictor) OnAuthoritative(snapshot *game.Game, yourLastInput *game.TickNum) bool {
	if snapshot == nil {
		return false
	}
	if p.confirmed != nil && snapshot.TickNum <= p.confirmed.TickNum {
		return false
	}
	p.confirmed = snapshot

	kept := p.pending[:0]
	for _, in := range p.pending {
		if in.Tick <= snapshot.TickNum {
			continue
		}
		if yourLastInput != nil && in.Tick <= *yourLastInput {
			continue
		}
		kept = append(kept, in)
	}
	p.pending = kept
	p.rebuild()
	return true
}

// AddInput queues a locally generated input tagged for tick and folds it into
// the prediction immediately.
func (p *Predictor) AddInput(tick game.TickNum, input game.Input) error {
	if p.hasTag && tick <= p.lastTag {
		return fmt.Errorf("%w: %d <= %d", ErrInputOutOfOrder, tick, p.lastTag)
	}
	if p.confirmed != nil {
		if tick <= p.confirmed.TickNum {
			return fmt.Errorf("%w: %d <= %d", ErrStaleInput, tick, p.confirmed.TickNum)
		}
		if tick-p.confirmed.TickNum > p.cfg.MaxLead {
			return fmt.Errorf("%w: %d ticks", ErrInputTooFarAhead, tick-p.confirmed.TickNum)
		}
	}

	in := PendingInput{Tick: tick, Input: input}
	p.pending = append(p.pending, in)
	p.lastTag, p.hasTag = tick, true

	if len(p.pending) > p.cfg.MaxPending {
		p.pending = append(p.pending[:0], p.pending[len(p.pending)-p.cfg.MaxPending:]...)
		p.rebuild()
		return nil
	}
	if p.predicted != nil {
		step(p.cfg.PlayerID, p.predicted, in)
	}
	return nil
}

// Confirmed returns the last authoritative snapshot, or nil.
func (p *Predictor) Confirmed() *game.Game { return p.confirmed }

// Predicted returns the predicted snapshot, or nil before the first
// authoritative snapshot. Callers must not mutate it.
func (p *Predictor) Predicted() *game.Game { return p.predicted }

// Pending returns a copy of the unconfirmed inputs in tag order.
func (p *Predictor) Pending() []PendingInput {
	return append([]PendingInput(nil), p.pending...)
}

// Replay derives a prediction from a confirmed snapshot and pending inputs
// without touching either.
func Replay(playerID game.PlayerID, confirmed *game.Game, pending []PendingInput) *game.Game {
	if confirmed == nil {
		return nil
	}
	predicted := confirmed.Clone()
	for _, in := range pending {
		step(playerID, predicted, in)
	}
	return predicted
}

func (p *Predictor) rebuild() {
	p.predicted = Replay(p.cfg.PlayerID, p.confirmed, p.pending)
}

// step advances g to the tick in.Tick, applying the input in the step that
// produces that tick.
func step(playerID game.PlayerID, g *game.Game, in PendingInput) {
	for g.TickNum.Next() < in.Tick {
		g.Step(nil)
	}
	g.Step([]game.PlayerInput{{PlayerID: playerID, Tick: in.Tick, Input: in.Input}})
}
