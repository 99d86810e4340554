package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"arena/internal/config"
	servernet "arena/internal/net"
	"arena/internal/server"
	"arena/internal/telemetry"
	"arena/logging"
	loggingSinks "arena/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Logger telemetry.Logger
	Server config.Config
	// Stdout receives the console sink. Defaults to os.Stdout.
	Stdout io.Writer
	// Ready, when set, receives the bound listener address once serving.
	Ready func(addr net.Addr)
}

// Run serves one room until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	logConfig := cfg.Server.Logging()
	sinks, err := buildSinks(logConfig, stdout)
	if err != nil {
		return fmt.Errorf("failed to construct logging sinks: %w", err)
	}
	router := logging.NewRouter(logging.ClockFunc(time.Now), logConfig, sinks)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := &logging.Metrics{}
	roomCfg := server.DefaultConfig()
	roomCfg.Settings = cfg.Server.Settings()
	roomCfg.Logger = telemetryLogger
	roomCfg.Metrics = telemetry.WrapMetrics(metrics)
	roomCfg.Publisher = router
	room, err := server.NewRoom(roomCfg)
	if err != nil {
		return fmt.Errorf("failed to construct room: %w", err)
	}

	stop := make(chan struct{})
	go room.Run(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(room, servernet.HTTPHandlerConfig{
		ClientDir: cfg.Server.ClientDir,
		Logger:    telemetryLogger,
		Metrics:   metrics,
		Router:    router,
	})

	listener, err := net.Listen("tcp", cfg.Server.HTTPAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.HTTPAddress, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	telemetryLogger.Printf("game %s listening on %s at %d ticks/s", room.ID(), listener.Addr(), roomCfg.Settings.TicksPerSecond)
	if cfg.Ready != nil {
		cfg.Ready(listener.Addr())
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func buildSinks(cfg logging.Config, stdout io.Writer) ([]logging.NamedSink, error) {
	var sinks []logging.NamedSink
	if cfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsole(stdout, cfg.Console)})
	}
	if cfg.HasSink("json") {
		if cfg.JSON.FilePath == "" {
			return nil, errors.New("json sink enabled without a file path")
		}
		file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)})
	}
	return sinks, nil
}
