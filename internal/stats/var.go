package stats

import (
	"fmt"
	"math"
)

// DefaultVarWindow is the number of recent values a Var summarises.
const DefaultVarWindow = 100

// Var tracks a scalar over a sliding window for display. The zero value is
// ready to use with DefaultVarWindow.
type Var struct {
	Window int

	values []float64
	next   int
	cur    float64
}

// NewVar returns a Var over the last window values.
func NewVar(window int) *Var {
	return &Var{Window: window}
}

// Record adds a value, evicting the oldest once the window is full.
func (v *Var) Record(value float64) {
	window := v.Window
	if window <= 0 {
		window = DefaultVarWindow
	}
	v.cur = value
	if len(v.values) < window {
		v.values = append(v.values, value)
		return
	}
	v.values[v.next] = value
	v.next = (v.next + 1) % window
}

// Count returns how many values are in the window.
func (v *Var) Count() int { return len(v.values) }

// Cur returns the most recently recorded value.
func (v *Var) Cur() float64 { return v.cur }

// Min returns the smallest value in the window.
func (v *Var) Min() float64 {
	if len(v.values) == 0 {
		return 0
	}
	min := math.Inf(1)
	for _, value := range v.values {
		min = math.Min(min, value)
	}
	return min
}

// Max returns the largest value in the window.
func (v *Var) Max() float64 {
	if len(v.values) == 0 {
		return 0
	}
	max := math.Inf(-1)
	for _, value := range v.values {
		max = math.Max(max, value)
	}
	return max
}

// Mean returns the mean of the window.
func (v *Var) Mean() float64 { return Mean(v.values) }

// StdDev returns the standard deviation of the window.
func (v *Var) StdDev() float64 { return StdDev(v.values) }

// String renders "cur min max mean stddev" in fixed-width columns.
func (v *Var) String() string {
	return fmt.Sprintf("%8.3f %8.3f %8.3f %8.3f %8.3f", v.Cur(), v.Min(), v.Max(), v.Mean(), v.StdDev())
}

// Summary is a point-in-time copy of a Var for reporting.
type Summary struct {
	Cur    float64 `json:"cur"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Count  int     `json:"count"`
}

// Summary copies the current statistics.
func (v *Var) Summary() Summary {
	return Summary{
		Cur:    v.Cur(),
		Min:    v.Min(),
		Max:    v.Max(),
		Mean:   v.Mean(),
		StdDev: v.StdDev(),
		Count:  v.Count(),
	}
}
