// Package client runs the client side of a match: it estimates server time,
// tags and predicts local inputs, and keeps a short buffer of authoritative
// snapshots to interpolate remote entities between.
package client

import (
	"errors"
	"fmt"
	"math"
	"time"

	"arena/internal/clock"
	"arena/internal/game"
	"arena/internal/geom"
	"arena/internal/net/proto"
	"arena/internal/predict"
	"arena/internal/stats"
	"arena/internal/telemetry"
)

// Status is the connection state of a Session.
type Status int

const (
	StatusSyncing Status = iota
	StatusSynced
	StatusLostSync
)

func (s Status) String() string {
	switch s {
	case StatusSyncing:
		return "syncing"
	case StatusSynced:
		return "synced"
	case StatusLostSync:
		return "lost sync"
	default:
		return "unknown"
	}
}

// ErrLostSync is returned by every call once the session lost its server.
var ErrLostSync = errors.New("lost sync with server")

// Sender delivers client messages to the server.
type Sender interface {
	Send(msg proto.ClientMessage) error
}

// Config configures a Session.
type Config struct {
	PlayerID game.PlayerID
	Settings game.Settings
	// InterpDelay is how far behind the estimated server time remote
	// entities are displayed.
	InterpDelay time.Duration
	// SyncTimeout is how long the session waits for a tick before it gives up.
	SyncTimeout time.Duration
	// BufferTicks bounds the number of snapshots kept for interpolation.
	BufferTicks        int
	MaxPending         int
	EstimationCapacity int
	Logger             telemetry.Logger
}

// ConfigFromJoin derives a session configuration from a join reply.
func ConfigFromJoin(join proto.JoinSuccess) Config {
	period := time.Duration(join.GameSettings.TickPeriod() * float64(time.Second))
	return Config{
		PlayerID:           join.YourPlayerID,
		Settings:           join.GameSettings,
		InterpDelay:        period * 3 / 2,
		SyncTimeout:        5 * time.Second,
		BufferTicks:        32,
		MaxPending:         predict.DefaultMaxPending,
		EstimationCapacity: clock.DefaultCapacity,
	}
}

// timeWarpGain is the share of the display time drift corrected per frame.
const timeWarpGain = 0.1

// Session is single threaded: OnServerMessage and Update must be called
// from the same goroutine.
type Session struct {
	cfg    Config
	sender Sender
	period game.GameTime

	estimation *clock.Estimation
	predictor  *predict.Predictor
	loss       *stats.LossEstimator

	snapshots  []*game.Game
	newestTick game.TickNum
	hasTick    bool
	state      *game.Game
	next       map[game.EntityID]NextEntity

	interpTime game.GameTime
	hasInterp  bool
	lastInput  game.TickNum
	hasInput   bool

	events   []game.Event
	lastRecv time.Time
	status   Status
	lostErr  error

	timeLag    *stats.Var
	timeWarp   *stats.Var
	tickInterp *stats.Var
	inputDelay *stats.Var
}

// New starts a session in StatusSyncing. sender must not be nil.
func New(cfg Config, sender Sender) *Session {
	if cfg.BufferTicks <= 1 {
		cfg.BufferTicks = 32
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.Nop()
	}
	return &Session{
		cfg:        cfg,
		sender:     sender,
		period:     cfg.Settings.TickPeriod(),
		estimation: clock.NewEstimation(cfg.EstimationCapacity),
		predictor:  predict.New(predict.Config{PlayerID: cfg.PlayerID, MaxPending: cfg.MaxPending}),
		loss:       stats.NewLossEstimator(stats.DefaultLossWindow),
		timeLag:    stats.NewVar(stats.DefaultVarWindow),
		timeWarp:   stats.NewVar(stats.DefaultVarWindow),
		tickInterp: stats.NewVar(stats.DefaultVarWindow),
		inputDelay: stats.NewVar(stats.DefaultVarWindow),
	}
}

// OnServerMessage handles one frame received at recvTime.
func (s *Session) OnServerMessage(recvTime time.Time, msg proto.ServerMessage) error {
	if s.status == StatusLostSync {
		return s.lostSyncError()
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	switch msg.Type {
	case proto.TypePing:
		if err := s.sender.Send(proto.NewPong(msg.Ping.Sequence)); err != nil {
			s.MarkLostSync(fmt.Errorf("send pong: %w", err))
			return s.lostSyncError()
		}
	case proto.TypeTick:
		s.onTick(recvTime, *msg.Tick)
	}
	return nil
}

func (s *Session) onTick(recvTime time.Time, tick proto.TickMessage) {
	if recvTime.After(s.lastRecv) {
		s.lastRecv = recvTime
	}
	s.loss.Record(uint32(tick.TickNum))
	if s.hasTick && tick.TickNum <= s.newestTick {
		s.cfg.Logger.Printf("ignoring tick %d, already have %d", tick.TickNum, s.newestTick)
		return
	}
	s.newestTick, s.hasTick = tick.TickNum, true
	s.estimation.RecordTick(recvTime, tick.GameTime)

	s.events = append(s.events, tick.Events...)
	s.predictor.OnAuthoritative(tick.Game(s.cfg.Settings), tick.YourLastInput)

	s.snapshots = append(s.snapshots, tick.Game(s.cfg.Settings))
	if extra := len(s.snapshots) - s.cfg.BufferTicks; extra > 0 {
		s.snapshots = append(s.snapshots[:0], s.snapshots[extra:]...)
	}
	if s.status == StatusSyncing {
		s.status = StatusSynced
		s.cfg.Logger.Printf("synced at tick %d", tick.TickNum)
	}
}

// Update advances the session by one frame. It tags input for the next
// server tick, sends it at most once per tick and folds it into the
// prediction. It returns the events received since the previous call.
func (s *Session) Update(now time.Time, dt time.Duration, input game.Input) ([]game.Event, error) {
	if s.status == StatusLostSync {
		return nil, s.lostSyncError()
	}
	if s.status == StatusSynced && s.cfg.SyncTimeout > 0 {
		if silent := now.Sub(s.lastRecv); silent > s.cfg.SyncTimeout {
			s.MarkLostSync(fmt.Errorf("no tick for %s", silent))
			return nil, s.lostSyncError()
		}
	}

	estimate, ok := s.estimation.Estimate(now)
	if !ok {
		return s.takeEvents(), nil
	}
	if estimate < 0 {
		estimate = 0
	}
	s.advanceInterp(estimate, dt)
	s.selectSnapshot()

	if err := s.sendInput(estimate, input); err != nil {
		return nil, err
	}
	return s.takeEvents(), nil
}

func (s *Session) advanceInterp(estimate game.GameTime, dt time.Duration) {
	desired := estimate - s.cfg.InterpDelay.Seconds()
	if !s.hasInterp {
		s.interpTime, s.hasInterp = desired, true
		s.timeLag.Record((estimate - s.interpTime) * 1000)
		return
	}

	prev := s.interpTime
	advanced := prev + dt.Seconds()
	drift := desired - advanced
	if math.Abs(drift) > math.Max(s.cfg.InterpDelay.Seconds(), s.period) {
		advanced = desired
	} else {
		advanced += drift * timeWarpGain
	}
	// Display time never runs backwards.
	if advanced > prev {
		s.interpTime = advanced
	}
	if dt > 0 {
		s.timeWarp.Record((s.interpTime - prev) / dt.Seconds())
	}
	s.timeLag.Record((estimate - s.interpTime) * 1000)
}

// selectSnapshot picks the newest snapshot not after the display time and
// remembers the one after it as the interpolation target.
func (s *Session) selectSnapshot() {
	if len(s.snapshots) == 0 {
		return
	}
	current := 0
	for i, snapshot := range s.snapshots {
		if snapshot.CurrentGameTime() <= s.interpTime {
			current = i
		}
	}
	s.snapshots = append(s.snapshots[:0], s.snapshots[current:]...)
	s.state = s.snapshots[0]

	s.next = nil
	if len(s.snapshots) > 1 {
		following := s.snapshots[1]
		nextTime := following.CurrentGameTime()
		s.next = make(map[game.EntityID]NextEntity, len(following.Entities))
		for id, entity := range following.Entities {
			s.next[id] = NextEntity{GameTime: nextTime, Entity: entity}
		}
	}
	s.tickInterp.Record((s.interpTime - s.state.CurrentGameTime()) / s.period)
}

func (s *Session) sendInput(estimate game.GameTime, input game.Input) error {
	target := game.TickNum(math.Floor(estimate/s.period)) + 1
	if s.hasInput && target <= s.lastInput {
		return nil
	}
	s.lastInput, s.hasInput = target, true

	if err := s.sender.Send(proto.NewInput(target, input)); err != nil {
		s.MarkLostSync(fmt.Errorf("send input %d: %w", target, err))
		return s.lostSyncError()
	}
	if err := s.predictor.AddInput(target, input); err != nil {
		s.cfg.Logger.Printf("prediction skipped input %d: %v", target, err)
	}
	s.inputDelay.Record((game.GameTime(target)*s.period - estimate) * 1000)
	return nil
}

func (s *Session) takeEvents() []game.Event {
	events := s.events
	s.events = nil
	return events
}

// MarkLostSync moves the session into StatusLostSync. The first cause wins.
func (s *Session) MarkLostSync(cause error) {
	if s.status == StatusLostSync {
		return
	}
	s.status = StatusLostSync
	s.lostErr = cause
	s.cfg.Logger.Printf("lost sync: %v", cause)
}

func (s *Session) lostSyncError() error {
	if s.lostErr == nil {
		return ErrLostSync
	}
	return fmt.Errorf("%w: %w", ErrLostSync, s.lostErr)
}

// Status returns the current connection state.
func (s *Session) Status() Status { return s.status }

// MyPlayerID is the seat assigned by the join reply.
func (s *Session) MyPlayerID() game.PlayerID { return s.cfg.PlayerID }

// State returns the authoritative snapshot currently displayed, or nil.
func (s *Session) State() *game.Game { return s.state }

// Predicted returns the locally predicted world, or nil before the first tick.
func (s *Session) Predicted() *game.Game { return s.predictor.Predicted() }

// InterpGameTime returns the display time.
func (s *Session) InterpGameTime() game.GameTime { return s.interpTime }

// NextEntities returns the entities of the snapshot after State, keyed by id.
func (s *Session) NextEntities() map[game.EntityID]NextEntity {
	out := make(map[game.EntityID]NextEntity, len(s.next))
	for id, next := range s.next {
		out[id] = next
	}
	return out
}

// EntityPos returns where entity id of State is drawn at the display time.
func (s *Session) EntityPos(id game.EntityID) (geom.Point, bool) {
	if s.state == nil {
		return geom.Point{}, false
	}
	entity, ok := s.state.Entities[id]
	if !ok {
		return geom.Point{}, false
	}
	var next *NextEntity
	if n, ok := s.next[id]; ok {
		next = &n
	}
	return interpolate(entity, s.state.CurrentGameTime(), next, s.interpTime)
}

// Stats is a debugging summary of the session.
type Stats struct {
	Status            string        `json:"status"`
	NewestTick        game.TickNum  `json:"newestTick"`
	PendingInputs     int           `json:"pendingInputs"`
	RecvDelayStdDevMs float64       `json:"recvDelayStdDevMs"`
	LossPercent       float64       `json:"lossPercent"`
	TimeLagMs         stats.Summary `json:"timeLagMs"`
	TimeWarp          stats.Summary `json:"timeWarp"`
	TickInterp        stats.Summary `json:"tickInterp"`
	InputDelayMs      stats.Summary `json:"inputDelayMs"`
}

// Stats reports loss as 100% until enough ticks arrived to estimate it.
func (s *Session) Stats() Stats {
	out := Stats{
		Status:        s.status.String(),
		NewestTick:    s.newestTick,
		PendingInputs: len(s.predictor.Pending()),
		LossPercent:   100,
		TimeLagMs:     s.timeLag.Summary(),
		TimeWarp:      s.timeWarp.Summary(),
		TickInterp:    s.tickInterp.Summary(),
		InputDelayMs:  s.inputDelay.Summary(),
	}
	if dev, ok := s.estimation.RecvDelayStdDev(); ok {
		out.RecvDelayStdDevMs = dev * 1000
	}
	if loss, ok := s.loss.Estimate(); ok {
		out.LossPercent = loss * 100
	}
	return out
}
