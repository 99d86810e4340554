package client

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena/internal/game"
	"arena/internal/geom"
	"arena/internal/net/proto"
)

type recordingSender struct {
	sent []proto.ClientMessage
	err  error
}

func (r *recordingSender) Send(msg proto.ClientMessage) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func (r *recordingSender) inputs() []proto.InputMessage {
	var out []proto.InputMessage
	for _, msg := range r.sent {
		if msg.Type == proto.TypeInput {
			out = append(out, *msg.Input)
		}
	}
	return out
}

const me game.PlayerID = 1

var (
	epoch  = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	period = time.Second / 30
)

// server drives an authoritative world and hands out tick frames whose
// receive time trails the game time by a constant offset.
type server struct {
	g *game.Game
}

func newServer(t *testing.T) *server {
	t.Helper()
	g := game.New(game.DefaultSettings())
	require.NoError(t, g.AddPlayer(me, "me"))
	require.NoError(t, g.AddPlayer(2, "other"))
	return &server{g: g}
}

func (s *server) tick(inputs ...game.PlayerInput) (time.Time, proto.ServerMessage) {
	res := s.g.Step(inputs)
	recv := epoch.Add(time.Duration(res.Tick) * period)
	return recv, proto.NewTick(proto.NewTickMessage(s.g, res.Events, nil))
}

func newSession(sender Sender) *Session {
	cfg := ConfigFromJoin(proto.JoinSuccess{YourPlayerID: me, GameSettings: game.DefaultSettings()})
	return New(cfg, sender)
}

func feedTicks(t *testing.T, s *Session, srv *server, n int) time.Time {
	t.Helper()
	var last time.Time
	for i := 0; i < n; i++ {
		recv, msg := srv.tick()
		require.NoError(t, s.OnServerMessage(recv, msg))
		last = recv
	}
	return last
}

func TestConfigFromJoin(t *testing.T) {
	cfg := ConfigFromJoin(proto.JoinSuccess{YourPlayerID: 7, GameSettings: game.DefaultSettings()})
	assert.Equal(t, game.PlayerID(7), cfg.PlayerID)
	assert.Equal(t, 50*time.Millisecond, cfg.InterpDelay.Round(time.Millisecond))
	assert.Equal(t, 5*time.Second, cfg.SyncTimeout)
}

func TestUpdateBeforeFirstTickSendsNothing(t *testing.T) {
	sender := &recordingSender{}
	s := newSession(sender)

	events, err := s.Update(epoch, 16*time.Millisecond, game.Input{MoveRight: true})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, sender.sent)
	assert.Equal(t, StatusSyncing, s.Status())
	assert.Nil(t, s.State())
	assert.Nil(t, s.Predicted())
}

func TestPingIsAnsweredWithPong(t *testing.T) {
	sender := &recordingSender{}
	s := newSession(sender)

	require.NoError(t, s.OnServerMessage(epoch, proto.NewPing(9)))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, proto.TypePong, sender.sent[0].Type)
	assert.Equal(t, uint32(9), sender.sent[0].Pong.Sequence)
}

func TestUpdateTagsInputOncePerTick(t *testing.T) {
	sender := &recordingSender{}
	s := newSession(sender)
	srv := newServer(t)
	feedTicks(t, s, srv, 10)
	require.Equal(t, StatusSynced, s.Status())

	now := epoch.Add(10*period + period*3/4)
	_, err := s.Update(now, period, game.Input{MoveRight: true})
	require.NoError(t, err)
	_, err = s.Update(now.Add(time.Millisecond), time.Millisecond, game.Input{MoveLeft: true})
	require.NoError(t, err)

	inputs := sender.inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, game.TickNum(11), inputs[0].Tick)
	assert.True(t, inputs[0].Input.MoveRight)

	require.NotNil(t, s.Predicted())
	assert.Equal(t, game.TickNum(11), s.Predicted().TickNum)

	_, err = s.Update(now.Add(period), period, game.Input{MoveUp: true})
	require.NoError(t, err)
	inputs = sender.inputs()
	require.Len(t, inputs, 2)
	assert.Equal(t, game.TickNum(12), inputs[1].Tick)
	assert.Equal(t, 2, s.Stats().PendingInputs)
}

func TestUpdateSelectsSnapshotsAroundDisplayTime(t *testing.T) {
	s := newSession(&recordingSender{})
	srv := newServer(t)
	feedTicks(t, s, srv, 10)

	_, err := s.Update(epoch.Add(10*period+period*3/4), period, game.Input{})
	require.NoError(t, err)

	require.NotNil(t, s.State())
	assert.Equal(t, game.TickNum(9), s.State().TickNum)
	next := s.NextEntities()
	require.NotEmpty(t, next)
	for _, entity := range next {
		assert.InDelta(t, 10.0/30.0, entity.GameTime, 1e-9)
	}
	assert.InDelta(t, 9.25/30.0, s.InterpGameTime(), 1e-6)

	id, _, ok := s.State().PlayerEntity(me)
	require.True(t, ok)
	_, ok = s.EntityPos(id)
	assert.True(t, ok)
}

func TestInterpGameTimeNeverRunsBackwards(t *testing.T) {
	s := newSession(&recordingSender{})
	srv := newServer(t)
	feedTicks(t, s, srv, 10)

	now := epoch.Add(10 * period)
	_, err := s.Update(now, period, game.Input{})
	require.NoError(t, err)
	first := s.InterpGameTime()

	_, err = s.Update(now.Add(-5*period), 0, game.Input{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, s.InterpGameTime(), first)
}

func TestUpdateReturnsEventsOnce(t *testing.T) {
	s := newSession(&recordingSender{})
	srv := newServer(t)
	last := feedTicks(t, s, srv, 1)

	events, err := s.Update(last, period, game.Input{})
	require.NoError(t, err)
	spawned := 0
	for _, event := range events {
		if event.Type == game.EventPlayerSpawned {
			spawned++
		}
	}
	assert.Equal(t, 2, spawned)

	events, err = s.Update(last.Add(time.Millisecond), time.Millisecond, game.Input{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDuplicateTickIsIgnored(t *testing.T) {
	s := newSession(&recordingSender{})
	srv := newServer(t)
	recv, msg := srv.tick()
	require.NoError(t, s.OnServerMessage(recv, msg))
	require.NoError(t, s.OnServerMessage(recv.Add(time.Millisecond), msg))

	events, err := s.Update(recv, period, game.Input{})
	require.NoError(t, err)
	assert.Len(t, events, 2, "events of a duplicated tick are delivered once")
	assert.Equal(t, 0.0, s.Stats().LossPercent)
}

func TestSendFailureLosesSync(t *testing.T) {
	boom := errors.New("connection reset")
	sender := &recordingSender{}
	s := newSession(sender)
	srv := newServer(t)
	last := feedTicks(t, s, srv, 3)

	sender.err = boom
	_, err := s.Update(last, period, game.Input{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLostSync)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusLostSync, s.Status())

	recv, msg := srv.tick()
	assert.ErrorIs(t, s.OnServerMessage(recv, msg), ErrLostSync)
	_, err = s.Update(recv, period, game.Input{})
	assert.ErrorIs(t, err, ErrLostSync)
}

func TestSilentServerLosesSync(t *testing.T) {
	s := newSession(&recordingSender{})
	srv := newServer(t)
	last := feedTicks(t, s, srv, 3)

	_, err := s.Update(last.Add(4*time.Second), period, game.Input{})
	require.NoError(t, err)

	_, err = s.Update(last.Add(6*time.Second), period, game.Input{})
	assert.ErrorIs(t, err, ErrLostSync)
	assert.Equal(t, "lost sync", s.Stats().Status)
}

func TestRejectsMalformedMessage(t *testing.T) {
	s := newSession(&recordingSender{})
	err := s.OnServerMessage(epoch, proto.ServerMessage{Type: proto.TypeTick})
	assert.ErrorIs(t, err, proto.ErrMissingPayload)
	assert.Equal(t, StatusSyncing, s.Status())
}

func TestTau(t *testing.T) {
	cases := []struct {
		name                 string
		state, next, now, want float64
	}{
		{"start", 1, 2, 1, 0},
		{"middle", 1, 2, 1.25, 0.25},
		{"end", 1, 2, 2, 1},
		{"before", 1, 2, 0.5, 0},
		{"after", 1, 2, 3, 1},
		{"empty interval", 2, 2, 2, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Tau(tc.state, tc.next, tc.now), 1e-12)
		})
	}
}

func TestInterpolateBlendsPlayers(t *testing.T) {
	from := game.NewPlayerEntity(game.PlayerEntity{Owner: me, Pos: geom.Point{100, 100}})
	to := game.NewPlayerEntity(game.PlayerEntity{Owner: me, Pos: geom.Point{200, 140}})

	pos, ok := interpolate(from, 1, &NextEntity{GameTime: 2, Entity: to}, 1.5)
	require.True(t, ok)
	assert.InDelta(t, 150, pos[0], 1e-9)
	assert.InDelta(t, 120, pos[1], 1e-9)

	pos, ok = interpolate(from, 1, nil, 1.5)
	require.True(t, ok)
	assert.Equal(t, geom.Point{100, 100}, pos)

	bullet := game.NewBulletEntity(game.Bullet{Owner: me, StartTime: 1, StartPos: geom.Point{0, 0}, Vel: geom.Vector{400, 0}})
	pos, ok = interpolate(bullet, 1, nil, 1.5)
	require.True(t, ok)
	assert.InDelta(t, 200, pos[0], 1e-9)
}
