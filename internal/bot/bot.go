// Package bot drives a headless player: it joins over HTTP, plays over the
// websocket through a client session and reports what it saw.
package bot

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"time"

	"arena/internal/client"
	"arena/internal/game"
	servernet "arena/internal/net"
	"arena/internal/net/proto"
	"arena/internal/net/ws"
	"arena/internal/stats"
	"arena/internal/telemetry"
)

// Policy picks the input for one frame.
type Policy interface {
	Input(frame uint64, s *client.Session) game.Input
}

// PolicyFunc adapts a function into a Policy.
type PolicyFunc func(frame uint64, s *client.Session) game.Input

func (f PolicyFunc) Input(frame uint64, s *client.Session) game.Input {
	return f(frame, s)
}

type Config struct {
	BaseURL       string
	Name          string
	GameID        string
	FrameRate     int
	StatsInterval time.Duration
	Policy        Policy
	Feed          client.FeedConfig
	Logger        telemetry.Logger
	HTTPClient    *nethttp.Client
}

func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:8080",
		Name:          "Pioneer",
		FrameRate:     60,
		StatsInterval: 5 * time.Second,
		Feed:          client.DefaultFeedConfig(),
	}
}

// Report summarises a finished run.
type Report struct {
	PlayerID   game.PlayerID
	GameID     string
	Frames     uint64
	Events     int
	FeedLines  []string
	Stats      client.Stats
	FrameMs    stats.Summary
	DtMs       stats.Summary
	LastStatus client.Status
}

type inbound struct {
	at  time.Time
	msg proto.ServerMessage
	err error
}

// Run plays until ctx is done or the session loses sync. A cancelled ctx is
// a clean exit.
func Run(ctx context.Context, cfg Config) (Report, error) {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.Nop()
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = 60
	}
	if cfg.Policy == nil {
		cfg.Policy = Wander()
	}

	req := proto.JoinRequest{PlayerName: cfg.Name}
	if cfg.GameID != "" {
		req.GameID = &cfg.GameID
	}
	join, err := servernet.RequestJoin(ctx, cfg.HTTPClient, cfg.BaseURL, req)
	if err != nil {
		return Report{}, err
	}
	endpoint, err := servernet.SocketURL(cfg.BaseURL)
	if err != nil {
		return Report{}, err
	}
	conn, err := ws.Dial(ctx, endpoint, join.YourToken)
	if err != nil {
		return Report{}, err
	}
	defer conn.Close()
	cfg.Logger.Printf("joined game %s as player %d", join.GameID, join.YourPlayerID)

	sessionCfg := client.ConfigFromJoin(join)
	sessionCfg.Logger = cfg.Logger
	session := client.New(sessionCfg, conn)
	feed := client.NewFeed(cfg.Feed)

	messages := make(chan inbound, 64)
	go func() {
		for {
			msg, err := conn.Read()
			select {
			case messages <- inbound{at: time.Now(), msg: msg, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	report := Report{PlayerID: join.YourPlayerID, GameID: join.GameID}
	dtMs := stats.NewVar(stats.DefaultVarWindow)
	frameMs := stats.NewVar(stats.DefaultVarWindow)
	frames := time.NewTicker(time.Second / time.Duration(cfg.FrameRate))
	defer frames.Stop()
	var statsTick <-chan time.Time
	if cfg.StatsInterval > 0 {
		ticker := time.NewTicker(cfg.StatsInterval)
		defer ticker.Stop()
		statsTick = ticker.C
	}

	finish := func(err error) (Report, error) {
		report.Stats = session.Stats()
		report.LastStatus = session.Status()
		report.FeedLines = feed.Lines(time.Now())
		report.DtMs = dtMs.Summary()
		report.FrameMs = frameMs.Summary()
		return report, err
	}

	lastFrame := time.Now()
	for {
		select {
		case <-ctx.Done():
			return finish(nil)
		case in := <-messages:
			if in.err != nil {
				session.MarkLostSync(fmt.Errorf("read: %w", in.err))
				continue
			}
			if err := session.OnServerMessage(in.at, in.msg); err != nil {
				cfg.Logger.Printf("discarding server message: %v", err)
			}
		case now := <-frames.C:
			dt := now.Sub(lastFrame)
			lastFrame = now
			events, err := session.Update(now, dt, cfg.Policy.Input(report.Frames, session))
			if err != nil {
				if errors.Is(err, client.ErrLostSync) {
					return finish(err)
				}
				return finish(fmt.Errorf("update: %w", err))
			}
			report.Frames++
			report.Events += len(events)
			for _, event := range events {
				feed.Push(now, event)
				if text, ok := client.EventText(event); ok {
					cfg.Logger.Printf("%s", text)
				}
			}
			dtMs.Record(float64(dt) / float64(time.Millisecond))
			frameMs.Record(float64(time.Since(now)) / float64(time.Millisecond))
		case <-statsTick:
			logStats(cfg.Logger, session.Stats(), dtMs, frameMs)
		}
	}
}

func logStats(logger telemetry.Logger, s client.Stats, dtMs, frameMs *stats.Var) {
	logger.Printf("status=%s tick=%d pending=%d recv stddev=%.3fms loss=%.1f%%", s.Status, s.NewestTick, s.PendingInputs, s.RecvDelayStdDevMs, s.LossPercent)
	logger.Printf("                        cur      min      max     mean   stddev")
	logger.Printf("dt (ms):           %s", dtMs)
	logger.Printf("frame (ms):        %s", frameMs)
	logger.Printf("time lag (ms):     %s", summaryString(s.TimeLagMs))
	logger.Printf("time warp:         %s", summaryString(s.TimeWarp))
	logger.Printf("tick interp:       %s", summaryString(s.TickInterp))
	logger.Printf("input delay (ms):  %s", summaryString(s.InputDelayMs))
}

func summaryString(s stats.Summary) string {
	return fmt.Sprintf("%8.3f %8.3f %8.3f %8.3f %8.3f", s.Cur, s.Min, s.Max, s.Mean, s.StdDev)
}
