package predict

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/internal/game"
)

const me game.PlayerID = 1

// confirmedAt returns an authoritative world at tick n with player me alive.
func confirmedAt(t *testing.T, n game.TickNum) *game.Game {
	t.Helper()
	g := game.New(game.DefaultSettings())
	require.NoError(t, g.AddPlayer(me, "me"))
	require.NoError(t, g.AddPlayer(2, "other"))
	for g.TickNum < n {
		g.Step(nil)
	}
	return g
}

func snapshotJSON(t *testing.T, g *game.Game) string {
	t.Helper()
	data, err := json.Marshal(g)
	require.NoError(t, err)
	return string(data)
}

func walkRight(tick game.TickNum) game.Input {
	return game.Input{MoveRight: true, UseItem: tick%4 == 0}
}

func TestReplayEquivalence(t *testing.T) {
	const n, k = game.TickNum(5), 12
	p := New(Config{PlayerID: me})
	require.True(t, p.OnAuthoritative(confirmedAt(t, n), nil))

	manual := confirmedAt(t, n)
	for i := game.TickNum(1); i <= k; i++ {
		tick := n + i
		require.NoError(t, p.AddInput(tick, walkRight(tick)))
		manual.Step([]game.PlayerInput{{PlayerID: me, Tick: tick, Input: walkRight(tick)}})
	}

	require.NotNil(t, p.Predicted())
	assert.Equal(t, n+k, p.Predicted().TickNum)
	assert.Equal(t, snapshotJSON(t, manual), snapshotJSON(t, p.Predicted()))
	assert.Equal(t, snapshotJSON(t, Replay(me, p.Confirmed(), p.Pending())), snapshotJSON(t, p.Predicted()))
}

func TestAddInputFoldsImmediately(t *testing.T) {
	p := New(Config{PlayerID: me})
	p.OnAuthoritative(confirmedAt(t, 3), nil)
	_, before, ok := p.Predicted().PlayerEntity(me)
	require.True(t, ok)
	start := before.Pos

	require.NoError(t, p.AddInput(4, game.Input{MoveDown: true}))

	_, after, _ := p.Predicted().PlayerEntity(me)
	assert.InDelta(t, start[1]+10, after.Pos[1], 1e-9)
	_, confirmed, _ := p.Confirmed().PlayerEntity(me)
	assert.Equal(t, start, confirmed.Pos, "the confirmed snapshot is never mutated")
}

func TestAddInputWithGapStepsIdleTicks(t *testing.T) {
	p := New(Config{PlayerID: me})
	p.OnAuthoritative(confirmedAt(t, 3), nil)

	require.NoError(t, p.AddInput(7, game.Input{MoveLeft: true}))
	assert.Equal(t, game.TickNum(7), p.Predicted().TickNum)
}

func TestOnAuthoritativeIgnoresStaleSnapshots(t *testing.T) {
	p := New(Config{PlayerID: me})
	require.True(t, p.OnAuthoritative(confirmedAt(t, 6), nil))

	assert.False(t, p.OnAuthoritative(confirmedAt(t, 6), nil), "duplicate")
	assert.False(t, p.OnAuthoritative(confirmedAt(t, 4), nil), "reordered")
	assert.False(t, p.OnAuthoritative(nil, nil))
	assert.Equal(t, game.TickNum(6), p.Confirmed().TickNum)
}

func TestOnAuthoritativeDropsAcknowledgedInputs(t *testing.T) {
	p := New(Config{PlayerID: me})
	p.OnAuthoritative(confirmedAt(t, 2), nil)
	for tick := game.TickNum(3); tick <= 9; tick++ {
		require.NoError(t, p.AddInput(tick, walkRight(tick)))
	}

	ack := game.TickNum(6)
	require.True(t, p.OnAuthoritative(confirmedAt(t, 4), &ack))

	pending := p.Pending()
	require.Len(t, pending, 3)
	assert.Equal(t, game.TickNum(7), pending[0].Tick)
	assert.Equal(t, game.TickNum(9), pending[2].Tick)
	assert.Equal(t, game.TickNum(9), p.Predicted().TickNum)

	require.True(t, p.OnAuthoritative(confirmedAt(t, 8), nil))
	pending = p.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, game.TickNum(9), pending[0].Tick)
}

func TestAddInputRejectsBadTags(t *testing.T) {
	p := New(Config{PlayerID: me, MaxLead: 10})

	require.NoError(t, p.AddInput(5, game.Input{}), "inputs may be queued before the first snapshot")
	assert.ErrorIs(t, p.AddInput(5, game.Input{}), ErrInputOutOfOrder)
	assert.ErrorIs(t, p.AddInput(4, game.Input{}), ErrInputOutOfOrder)

	p.OnAuthoritative(confirmedAt(t, 8), nil)
	assert.Empty(t, p.Pending())
	assert.ErrorIs(t, p.AddInput(8, game.Input{}), ErrStaleInput)
	assert.ErrorIs(t, p.AddInput(19, game.Input{}), ErrInputTooFarAhead)
	assert.NoError(t, p.AddInput(18, game.Input{}))
}

func TestPendingIsBounded(t *testing.T) {
	p := New(Config{PlayerID: me, MaxPending: 4})
	p.OnAuthoritative(confirmedAt(t, 1), nil)
	for tick := game.TickNum(2); tick <= 9; tick++ {
		require.NoError(t, p.AddInput(tick, walkRight(tick)))
	}

	pending := p.Pending()
	require.Len(t, pending, 4)
	assert.Equal(t, game.TickNum(6), pending[0].Tick)
	assert.Equal(t, snapshotJSON(t, Replay(me, p.Confirmed(), pending)), snapshotJSON(t, p.Predicted()))
}

func TestPredictedBeforeSnapshotIsNil(t *testing.T) {
	p := New(Config{PlayerID: me})
	assert.Nil(t, p.Predicted())
	assert.Nil(t, p.Confirmed())
	assert.Nil(t, Replay(me, nil, nil))
}
