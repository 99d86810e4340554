package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func at(seconds float64) time.Time {
	return epoch.Add(time.Duration(seconds * float64(time.Second)))
}

func TestEstimateBeforeAnySample(t *testing.T) {
	e := NewEstimation(0)
	_, ok := e.Estimate(epoch)
	assert.False(t, ok)
	_, ok = e.RecvDelayStdDev()
	assert.False(t, ok)
	assert.False(t, e.HasStarted())
}

func TestEstimateTracksConstantOffset(t *testing.T) {
	e := NewEstimation(0)
	for i := 0; i < 30; i++ {
		require.True(t, e.RecordTick(at(float64(i)*0.05), 10+float64(i)*0.05))
	}

	got, ok := e.Estimate(at(2))
	require.True(t, ok)
	assert.InDelta(t, 12.0, got, 1e-6)

	std, ok := e.RecvDelayStdDev()
	require.True(t, ok)
	assert.InDelta(t, 0.0, std, 1e-6)
}

func TestEstimateAveragesJitter(t *testing.T) {
	e := NewEstimation(0)
	// game time advances 0.1 per tick; arrivals alternate 10ms late and early
	jitter := []float64{0.01, -0.01}
	for i := 0; i < 20; i++ {
		recv := float64(i)*0.1 + jitter[i%2]
		require.True(t, e.RecordTick(at(recv+1), float64(i)*0.1))
	}

	got, ok := e.Estimate(at(3))
	require.True(t, ok)
	// the fitted offset is the mean of (game - recv), i.e. -1
	assert.InDelta(t, 2.0, got, 1e-6)

	std, _ := e.RecvDelayStdDev()
	assert.Greater(t, std, 0.0)
}

func TestRecordTickDropsOutOfOrderSamples(t *testing.T) {
	e := NewEstimation(0)
	require.True(t, e.RecordTick(at(0), 1.0))
	require.True(t, e.RecordTick(at(0.1), 1.1))
	before := e.ShiftedSamples()

	assert.False(t, e.RecordTick(at(0.2), 1.05))
	assert.False(t, e.RecordTick(at(0.3), 0.5))

	assert.Equal(t, before, e.ShiftedSamples())
	latest, _ := e.LatestGameTime()
	assert.Equal(t, 1.1, latest)
}

func TestRecordTickAcceptsEqualGameTime(t *testing.T) {
	e := NewEstimation(0)
	require.True(t, e.RecordTick(at(0), 1.0))
	assert.True(t, e.RecordTick(at(0.1), 1.0))
	assert.Equal(t, 2, e.Len())
}

func TestRecordTickClampsReceiveTime(t *testing.T) {
	e := NewEstimation(0)
	require.True(t, e.RecordTick(at(1), 1.0))
	require.True(t, e.RecordTick(at(0.5), 1.1))

	samples := e.ShiftedSamples()
	require.Len(t, samples, 2)
	assert.Equal(t, 0.0, samples[1].X)
}

func TestRecordTickEvictsOldest(t *testing.T) {
	e := NewEstimation(3)
	for i := 0; i < 5; i++ {
		e.RecordTick(at(float64(i)), float64(i))
	}

	assert.Equal(t, 3, e.Len())
	samples := e.ShiftedSamples()
	require.Len(t, samples, 3)
	assert.Equal(t, 0.0, samples[0].Y)
	assert.InDelta(t, 2.0, samples[2].Y, 1e-12)

	got, _ := e.Estimate(at(10))
	assert.InDelta(t, 10.0, got, 1e-6, "the estimate is anchored on the oldest kept sample (t=2)")
}

func TestDefaultCapacity(t *testing.T) {
	e := NewEstimation(0)
	for i := 0; i < DefaultCapacity+10; i++ {
		e.RecordTick(at(float64(i)), float64(i))
	}
	assert.Equal(t, DefaultCapacity, e.Len())
}
