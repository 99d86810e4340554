// Package clock estimates the authoritative game time from the local arrival
// times of server ticks.
package clock

import (
	"time"

	"arena/internal/game"
	"arena/internal/stats"
)

// DefaultCapacity bounds the sample history.
const DefaultCapacity = 1000

type sample struct {
	recvTime time.Time
	gameTime game.GameTime
}

// Estimation keeps a bounded history of (receive time, game time) samples.
// It is owned by a single goroutine.
type Estimation struct {
	capacity int
	samples  []sample
	head     int
	count    int
}

// NewEstimation returns an estimator holding up to capacity samples. A
// non-positive capacity selects DefaultCapacity.
func NewEstimation(capacity int) *Estimation {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Estimation{
		capacity: capacity,
		samples:  make([]sample, capacity),
	}
}

func (e *Estimation) at(i int) sample {
	return e.samples[(e.head+i)%e.capacity]
}

// RecordTick stores a sample and reports whether it was kept. Samples whose
// game time is behind the latest stored sample are dropped. A receive time
// earlier than the latest one is moved up to it.
func (e *Estimation) RecordTick(recvTime time.Time, gameTime game.GameTime) bool {
	if e.count > 0 {
		last := e.at(e.count - 1)
		if gameTime < last.gameTime {
			return false
		}
		if recvTime.Before(last.recvTime) {
			recvTime = last.recvTime
		}
	}

	entry := sample{recvTime: recvTime, gameTime: gameTime}
	if e.count < e.capacity {
		e.samples[(e.head+e.count)%e.capacity] = entry
		e.count++
		return true
	}
	e.samples[e.head] = entry
	e.head = (e.head + 1) % e.capacity
	return true
}

// Len returns the number of stored samples.
func (e *Estimation) Len() int { return e.count }

// HasStarted reports whether any sample has been recorded.
func (e *Estimation) HasStarted() bool { return e.count > 0 }

// LatestGameTime returns the game time of the newest sample.
func (e *Estimation) LatestGameTime() (game.GameTime, bool) {
	if e.count == 0 {
		return 0, false
	}
	return e.at(e.count - 1).gameTime, true
}

// ShiftedSamples returns every sample relative to the oldest one: X is the
// receive delay in seconds, Y the game time delta.
func (e *Estimation) ShiftedSamples() []stats.Sample {
	if e.count == 0 {
		return nil
	}
	first := e.at(0)
	out := make([]stats.Sample, e.count)
	for i := 0; i < e.count; i++ {
		s := e.at(i)
		out[i] = stats.Sample{
			X: s.recvTime.Sub(first.recvTime).Seconds(),
			Y: s.gameTime - first.gameTime,
		}
	}
	return out
}

// Estimate extrapolates the game time at now. The fit keeps the slope at one
// so only the offset between the clocks is estimated.
func (e *Estimation) Estimate(now time.Time) (game.GameTime, bool) {
	if e.count == 0 {
		return 0, false
	}
	first := e.at(0)
	line := stats.LinearRegressionWithBeta(1, e.ShiftedSamples())
	return first.gameTime + line.Eval(now.Sub(first.recvTime).Seconds()), true
}

// RecvDelayStdDev is the standard deviation of the gaps between consecutive
// receive times, in seconds.
func (e *Estimation) RecvDelayStdDev() (float64, bool) {
	if e.count == 0 {
		return 0, false
	}
	gaps := make([]float64, 0, e.count-1)
	for i := 1; i < e.count; i++ {
		gaps = append(gaps, e.at(i).recvTime.Sub(e.at(i-1).recvTime).Seconds())
	}
	return stats.StdDev(gaps), true
}
