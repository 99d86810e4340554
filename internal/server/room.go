// Package server hosts the authoritative room: it seats players, stages
// their inputs, steps the world on a fixed timestep and broadcasts ticks.
package server

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"arena/internal/game"
	"arena/internal/net/proto"
	"arena/internal/sim"
	"arena/internal/stats"
	"arena/internal/telemetry"
	"arena/logging"
	logginggame "arena/logging/game"
	loggingnetwork "arena/logging/network"
	loggingsimulation "arena/logging/simulation"
)

var (
	// ErrGameFull is returned by Join when every seat is taken.
	ErrGameFull = errors.New("game is full")
	// ErrUnknownGame is returned by Join for a game id this room does not host.
	ErrUnknownGame = errors.New("unknown game")
	// ErrUnknownToken is returned for messages signed with a token that holds no seat.
	ErrUnknownToken = errors.New("unknown player token")
	// ErrCommandRejected is returned when the command queue refuses a message.
	ErrCommandRejected = errors.New("command rejected")
)

// Config configures a Room.
type Config struct {
	Settings        game.Settings
	PingInterval    time.Duration
	CommandCapacity int
	PerActorLimit   int
	CatchupMaxTicks int
	Logger          telemetry.Logger
	Metrics         telemetry.Metrics
	Publisher       logging.Publisher
	Clock           logging.Clock
}

func DefaultConfig() Config {
	return Config{
		Settings:        game.DefaultSettings(),
		PingInterval:    time.Second,
		CommandCapacity: 1024,
		PerActorLimit:   16,
		CatchupMaxTicks: 3,
	}
}

// Room owns one game. Every mutation of the world and the roster happens
// under mu; a whole step holds it.
type Room struct {
	id   string
	cfg  Config
	loop *sim.Loop

	mu           sync.Mutex
	game         *game.Game
	members      map[game.PlayerID]*member
	tokens       map[string]game.PlayerID
	nextPlayerID game.PlayerID
	lastPing     time.Time
	lastChecksum string
}

// NewRoom builds a room with a fresh world. It fails for invalid settings.
func NewRoom(cfg Config) (*Room, error) {
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("room settings: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.Nop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.WrapMetrics(nil)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Clock == nil {
		cfg.Clock = logging.ClockFunc(time.Now)
	}
	r := &Room{
		id:      ulid.Make().String(),
		cfg:     cfg,
		game:    game.New(cfg.Settings),
		members: make(map[game.PlayerID]*member),
		tokens:  make(map[string]game.PlayerID),
	}
	r.cfg.Publisher = logging.WithFields(cfg.Publisher, map[string]any{"gameId": r.id})
	r.loop = sim.NewLoop(sim.LoopConfig{
		TickRate:        cfg.Settings.TicksPerSecond,
		CatchupMaxTicks: cfg.CatchupMaxTicks,
		CommandCapacity: cfg.CommandCapacity,
		PerActorLimit:   cfg.PerActorLimit,
	}, sim.Deps{
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
		Clock:   cfg.Clock,
	}, sim.Hooks{
		NextTick:      r.nextTick,
		Step:          r.step,
		OnOverrun:     r.onOverrun,
		OnCommandDrop: r.onCommandDrop,
	})
	return r, nil
}

func (r *Room) ID() string { return r.id }

func (r *Room) Settings() game.Settings { return r.cfg.Settings }

// Join seats a new player. The player spawns on the next tick.
func (r *Room) Join(req proto.JoinRequest) (proto.JoinSuccess, error) {
	if req.GameID != nil && *req.GameID != r.id {
		return proto.JoinSuccess{}, fmt.Errorf("%w: %s", ErrUnknownGame, *req.GameID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.members) >= r.cfg.Settings.MaxNumPlayers {
		return proto.JoinSuccess{}, ErrGameFull
	}
	id := r.nextPlayerID
	if err := r.game.AddPlayer(id, req.PlayerName); err != nil {
		return proto.JoinSuccess{}, fmt.Errorf("seat player %d: %w", id, err)
	}
	r.nextPlayerID = id.Next()

	token := ulid.Make().String()
	r.members[id] = newMember(id, req.PlayerName, token)
	r.tokens[token] = id
	r.cfg.Metrics.Store(telemetry.MetricPlayers, uint64(len(r.members)))

	logginggame.PlayerJoined(context.Background(), r.cfg.Publisher, uint64(r.game.TickNum), logging.PlayerRef(uint32(id)), logginggame.PlayerJoinedPayload{Name: req.PlayerName}, nil)
	return proto.JoinSuccess{
		ProtocolVersion: proto.Version,
		GameID:          r.id,
		YourToken:       token,
		YourPlayerID:    id,
		GameSettings:    r.cfg.Settings,
	}, nil
}

// Subscribe attaches conn as the outbound channel of the seat holding
// token. A previous connection of the same seat is closed.
func (r *Room) Subscribe(token string, conn Conn) (game.PlayerID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, err := r.memberByToken(token)
	if err != nil {
		return 0, err
	}
	if m.conn != nil && m.conn != conn {
		m.conn.Close()
	}
	m.conn = conn
	r.cfg.Metrics.Store(telemetry.MetricConnections, uint64(r.connectedLocked()))
	return m.id, nil
}

// Disconnect releases the seat holding token and removes the player from the
// world. When conn is not nil the seat is only released while conn is still
// its connection, or it has none. Unknown tokens are ignored.
func (r *Room) Disconnect(token string, conn Conn, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, err := r.memberByToken(token)
	if err != nil {
		return
	}
	if conn != nil && m.conn != nil && m.conn != conn {
		return
	}
	delete(r.tokens, token)
	delete(r.members, m.id)
	r.game.RemovePlayer(m.id)
	r.cfg.Metrics.Store(telemetry.MetricPlayers, uint64(len(r.members)))
	r.cfg.Metrics.Store(telemetry.MetricConnections, uint64(r.connectedLocked()))
	logginggame.PlayerLeft(context.Background(), r.cfg.Publisher, uint64(r.game.TickNum), logging.PlayerRef(uint32(m.id)), logginggame.PlayerLeftPayload{Reason: reason}, nil)
}

// HandleClientMessage stages a message received at recvTime for the next tick.
func (r *Room) HandleClientMessage(recvTime time.Time, msg proto.SignedClientMessage) error {
	if err := msg.Message.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	m, err := r.memberByToken(msg.Token)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	cmd := sim.Command{ActorID: m.id, IssuedAt: recvTime}
	switch msg.Message.Type {
	case proto.TypeInput:
		cmd.Type = sim.CommandInput
		cmd.Input = &sim.InputCommand{Tick: msg.Message.Input.Tick, Input: msg.Message.Input.Input}
	case proto.TypePong:
		cmd.Type = sim.CommandPong
		cmd.Pong = &sim.PongCommand{Sequence: msg.Message.Pong.Sequence}
	}
	if ok, reason := r.loop.Enqueue(cmd); !ok {
		return fmt.Errorf("%w: %s", ErrCommandRejected, reason)
	}
	return nil
}

// Advance runs one tick immediately with the staged commands.
func (r *Room) Advance(now time.Time) sim.StepResult {
	return r.loop.Advance(sim.TickContext{Tick: r.nextTick(), Now: now, Delta: r.cfg.Settings.TickPeriod()})
}

// Run steps the room on its tick rate until stop is closed.
func (r *Room) Run(stop <-chan struct{}) {
	r.loop.Run(stop)
}

func (r *Room) nextTick() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint64(r.game.TickNum.Next())
}

func (r *Room) step(tc sim.TickContext, commands []sim.Command) {
	ctx := context.Background()
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cmd := range commands {
		r.applyCommandLocked(ctx, cmd)
	}

	target := r.game.TickNum.Next()
	var inputs []game.PlayerInput
	for _, id := range sortedMemberIDs(r.members) {
		m := r.members[id]
		taken := m.take(target)
		if len(taken) == 0 {
			continue
		}
		previous := m.lastApplied
		for _, in := range taken {
			inputs = append(inputs, game.PlayerInput{PlayerID: id, Tick: in.tick, Input: in.input})
		}
		m.lastApplied, m.hasApplied = taken[len(taken)-1].tick, true
		r.cfg.Metrics.Add(telemetry.MetricInputsApplied, uint64(len(taken)))
		loggingnetwork.AckAdvanced(ctx, r.cfg.Publisher, uint64(target), logging.PlayerRef(uint32(id)), loggingnetwork.AckPayload{Previous: uint64(previous), Ack: uint64(m.lastApplied)}, nil)
	}

	result := r.game.Step(inputs)
	r.cfg.Metrics.Add(telemetry.MetricTicks, 1)
	for _, err := range result.Errors {
		r.cfg.Metrics.Add(telemetry.MetricRuleErrors, 1)
		loggingsimulation.RuleError(ctx, r.cfg.Publisher, uint64(result.Tick), err, nil)
	}
	r.publishEvents(ctx, result)

	base := proto.NewTickMessage(r.game, result.Events, nil)
	if sum, err := proto.Checksum(base); err == nil {
		r.lastChecksum = sum
	} else {
		r.cfg.Logger.Printf("checksum tick %d: %v", result.Tick, err)
	}
	for _, id := range sortedMemberIDs(r.members) {
		m := r.members[id]
		msg := base
		msg.YourLastInput = m.ack()
		r.sendLocked(ctx, m, proto.NewTick(msg))
	}

	if r.cfg.PingInterval > 0 && tc.Now.Sub(r.lastPing) >= r.cfg.PingInterval {
		r.lastPing = tc.Now
		for _, id := range sortedMemberIDs(r.members) {
			m := r.members[id]
			if m.conn == nil {
				continue
			}
			r.sendLocked(ctx, m, proto.NewPing(m.nextPing(tc.Now)))
		}
	}
}

func (r *Room) applyCommandLocked(ctx context.Context, cmd sim.Command) {
	m, ok := r.members[cmd.ActorID]
	if !ok {
		return
	}
	actor := logging.PlayerRef(uint32(cmd.ActorID))
	switch cmd.Type {
	case sim.CommandInput:
		if cmd.Input == nil {
			return
		}
		if !m.enqueue(cmd.Input.Tick, cmd.Input.Input) {
			r.cfg.Metrics.Add(telemetry.MetricInputsDropped, 1)
			loggingnetwork.InputDropped(ctx, r.cfg.Publisher, uint64(r.game.TickNum), actor, loggingnetwork.InputDroppedPayload{InputTick: uint64(cmd.Input.Tick), LastApplied: uint64(m.lastApplied)}, nil)
		}
	case sim.CommandPong:
		if cmd.Pong == nil {
			return
		}
		if rtt, ok := m.pong(cmd.Pong.Sequence, cmd.IssuedAt); ok {
			loggingnetwork.PongReceived(ctx, r.cfg.Publisher, uint64(r.game.TickNum), actor, loggingnetwork.PongPayload{Sequence: cmd.Pong.Sequence, RTTMillis: float64(rtt) / float64(time.Millisecond)}, nil)
		}
	}
}

func (r *Room) publishEvents(ctx context.Context, result game.StepResult) {
	tick := uint64(result.Tick)
	for _, event := range result.Events {
		actor := logging.PlayerRef(uint32(event.PlayerID))
		switch event.Type {
		case game.EventPlayerSpawned:
			payload := logginggame.PlayerSpawnedPayload{}
			if event.Pos != nil {
				payload.X, payload.Y = event.Pos[0], event.Pos[1]
			}
			logginggame.PlayerSpawned(ctx, r.cfg.Publisher, tick, actor, payload, nil)
		case game.EventPlayerDied:
			payload := logginggame.PlayerDiedPayload{}
			if event.Reason != nil {
				payload.Cause = string(event.Reason.Kind)
				if event.Reason.Kind == game.DeathShotByPlayer {
					shooter := uint32(event.Reason.Shooter)
					payload.Shooter = &shooter
				}
			}
			logginggame.PlayerDied(ctx, r.cfg.Publisher, tick, actor, payload, nil)
		case game.EventPlayerShotGun, game.EventPlayerShotStunGun:
			payload := logginggame.ShotFiredPayload{}
			if event.Dir != nil {
				payload.DirX, payload.DirY = event.Dir[0], event.Dir[1]
			}
			logginggame.ShotFired(ctx, r.cfg.Publisher, tick, actor, payload, nil)
		}
	}
}

func (r *Room) sendLocked(ctx context.Context, m *member, msg proto.ServerMessage) {
	if m.conn == nil {
		return
	}
	if err := m.conn.Send(msg); err != nil {
		loggingnetwork.SendFailed(ctx, r.cfg.Publisher, uint64(r.game.TickNum), logging.PlayerRef(uint32(m.id)), loggingnetwork.SendFailedPayload{Error: err.Error()}, nil)
		m.conn.Close()
		m.conn = nil
		r.cfg.Metrics.Store(telemetry.MetricConnections, uint64(r.connectedLocked()))
	}
}

func (r *Room) onOverrun(result sim.StepResult) {
	payload := loggingsimulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Streak:         result.OverrunStreak,
	}
	if result.Budget > 0 {
		payload.Ratio = float64(result.Duration) / float64(result.Budget)
	}
	loggingsimulation.TickBudgetOverrun(context.Background(), r.cfg.Publisher, result.Tick, payload, nil)
}

func (r *Room) onCommandDrop(reason string, cmd sim.Command) {
	loggingsimulation.CommandRejected(context.Background(), r.cfg.Publisher, 0, logging.PlayerRef(uint32(cmd.ActorID)), loggingsimulation.CommandRejectedPayload{Command: string(cmd.Type), Reason: reason}, nil)
}

func (r *Room) memberByToken(token string) (*member, error) {
	id, ok := r.tokens[token]
	if !ok {
		return nil, ErrUnknownToken
	}
	return r.members[id], nil
}

func (r *Room) connectedLocked() int {
	n := 0
	for _, m := range r.members {
		if m.conn != nil {
			n++
		}
	}
	return n
}

// PlayerDiagnostics describes one seat.
type PlayerDiagnostics struct {
	ID          game.PlayerID        `json:"id"`
	Name        string               `json:"name"`
	State       game.PlayerStateKind `json:"state"`
	Connected   bool                 `json:"connected"`
	LastApplied *game.TickNum        `json:"lastApplied,omitempty"`
	Queued      int                  `json:"queued"`
	RTTMillis   stats.Summary        `json:"rttMillis"`
}

// Diagnostics is the room summary served on the diagnostics endpoint.
type Diagnostics struct {
	GameID          string              `json:"gameId"`
	Tick            game.TickNum        `json:"tick"`
	GameTime        game.GameTime       `json:"gameTime"`
	Entities        int                 `json:"entities"`
	PendingCommands int                 `json:"pendingCommands"`
	Checksum        string              `json:"checksum,omitempty"`
	Players         []PlayerDiagnostics `json:"players"`
}

func (r *Room) Diagnostics() Diagnostics {
	pending := r.loop.Pending()
	r.mu.Lock()
	defer r.mu.Unlock()
	out := Diagnostics{
		GameID:          r.id,
		Tick:            r.game.TickNum,
		GameTime:        r.game.CurrentGameTime(),
		Entities:        len(r.game.Entities),
		PendingCommands: pending,
		Checksum:        r.lastChecksum,
		Players:         make([]PlayerDiagnostics, 0, len(r.members)),
	}
	for _, id := range sortedMemberIDs(r.members) {
		m := r.members[id]
		out.Players = append(out.Players, PlayerDiagnostics{
			ID:          id,
			Name:        m.name,
			State:       r.game.Players[id].State.Kind,
			Connected:   m.conn != nil,
			LastApplied: m.ack(),
			Queued:      len(m.queue),
			RTTMillis:   m.rtt.Summary(),
		})
	}
	return out
}

// Checksum is the digest of the most recent tick broadcast.
func (r *Room) Checksum() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastChecksum
}

// Snapshot returns a copy of the current world.
func (r *Room) Snapshot() *game.Game {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.game.Clone()
}

func sortedMemberIDs(members map[game.PlayerID]*member) []game.PlayerID {
	return slices.Sorted(maps.Keys(members))
}
