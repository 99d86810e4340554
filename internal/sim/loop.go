// Package sim stages client commands between ticks and drives a fixed
// timestep loop around a step function.
package sim

import (
	"sync"
	"time"

	"arena/internal/game"
	"arena/internal/telemetry"
	"arena/logging"
)

const (
	// CommandRejectQueueLimit means the actor already staged its share of
	// commands for this tick.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull means the shared command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

// LoopConfig tunes the command buffer and tick loop.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

// Deps carries shared infrastructure.
type Deps struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   logging.Clock
}

// TickContext describes the tick being stepped.
type TickContext struct {
	Tick  uint64
	Now   time.Time
	Delta float64
}

// StepResult reports what a single Advance did and how long it took.
type StepResult struct {
	Tick          uint64
	Now           time.Time
	Delta         float64
	Commands      []Command
	Duration      time.Duration
	Budget        time.Duration
	ClampedDelta  bool
	MaxDelta      float64
	Overrun       bool
	OverrunStreak uint64
}

// Hooks plug the owner's simulation into the loop. Step is required.
type Hooks struct {
	NextTick       func() uint64
	Step           func(ctx TickContext, commands []Command)
	AfterStep      func(StepResult)
	OnOverrun      func(StepResult)
	OnCommandDrop  func(reason string, cmd Command)
	OnQueueWarning func(length int)
}

// Loop coordinates command ingestion and the fixed timestep runner.
type Loop struct {
	buffer *CommandBuffer
	hooks  Hooks
	config LoopConfig
	deps   Deps

	queueMu       sync.Mutex
	perActorCount map[game.PlayerID]int
	dropCounts    map[game.PlayerID]uint64
}

func NewLoop(cfg LoopConfig, deps Deps, hooks Hooks) *Loop {
	if deps.Logger == nil {
		deps.Logger = telemetry.Nop()
	}
	if deps.Clock == nil {
		deps.Clock = logging.ClockFunc(time.Now)
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = game.DefaultSettings().TicksPerSecond
	}
	return &Loop{
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		deps:          deps,
		perActorCount: make(map[game.PlayerID]int),
		dropCounts:    make(map[game.PlayerID]uint64),
	}
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing the per-actor limit and the buffer
// capacity. It returns the rejection reason when the command is dropped.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	l.queueMu.Lock()
	reason := ""
	var drops uint64
	if limit := l.config.PerActorLimit; limit > 0 && l.perActorCount[cmd.ActorID] >= limit {
		reason = CommandRejectQueueLimit
	} else if !l.buffer.Push(cmd) {
		reason = CommandRejectQueueFull
	} else {
		l.perActorCount[cmd.ActorID]++
	}
	if reason != "" {
		l.dropCounts[cmd.ActorID]++
		drops = l.dropCounts[cmd.ActorID]
	}
	l.queueMu.Unlock()

	if reason != "" {
		l.reportDrop(reason, cmd, drops)
		return false, reason
	}
	if step := l.config.WarningStep; step > 0 {
		if n := l.buffer.Len(); n >= step && n%step == 0 && l.hooks.OnQueueWarning != nil {
			l.hooks.OnQueueWarning(n)
		}
	}
	return true, ""
}

// Advance drains the staged commands and runs one step with them.
func (l *Loop) Advance(ctx TickContext) StepResult {
	commands := l.drain()
	if l.hooks.Step != nil {
		l.hooks.Step(ctx, commands)
	}
	return StepResult{
		Tick:     ctx.Tick,
		Now:      ctx.Now,
		Delta:    ctx.Delta,
		Commands: commands,
	}
}

// Run steps once per tick period until stop is closed.
func (l *Loop) Run(stop <-chan struct{}) {
	period := time.Second / time.Duration(l.config.TickRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	clock := l.deps.Clock
	budget := period.Seconds()
	maxDt := budget
	if l.config.CatchupMaxTicks > 1 {
		maxDt = budget * float64(l.config.CatchupMaxTicks)
	}

	last := clock.Now()
	var tick, streak uint64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		now := clock.Now()
		dt := now.Sub(last).Seconds()
		clamped := false
		switch {
		case dt <= 0:
			dt = budget
		case dt > maxDt:
			dt, clamped = maxDt, true
		}
		last = now

		if l.hooks.NextTick != nil {
			tick = l.hooks.NextTick()
		} else {
			tick++
		}

		start := clock.Now()
		result := l.Advance(TickContext{Tick: tick, Now: now, Delta: dt})
		result.Duration = clock.Now().Sub(start)
		result.Budget = period
		result.ClampedDelta = clamped
		result.MaxDelta = maxDt
		if result.Duration > period {
			streak++
			result.Overrun, result.OverrunStreak = true, streak
			if l.deps.Metrics != nil {
				l.deps.Metrics.Add(telemetry.MetricTickOverruns, 1)
			}
			if l.hooks.OnOverrun != nil {
				l.hooks.OnOverrun(result)
			}
		} else {
			streak = 0
		}

		if l.hooks.AfterStep != nil {
			l.hooks.AfterStep(result)
		}
	}
}

func (l *Loop) drain() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[game.PlayerID]int)
	}
	return commands
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.deps.Metrics != nil {
		l.deps.Metrics.Add(telemetry.MetricCommandsDropped, 1)
	}
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	// Logged on powers of two.
	if count > 0 && count&(count-1) == 0 {
		l.deps.Logger.Printf(
			"[backpressure] dropping command actor=%d type=%s reason=%s count=%d limit=%d",
			cmd.ActorID, cmd.Type, reason, count, l.config.PerActorLimit,
		)
	}
}
