package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arena/internal/bot"
	"arena/internal/telemetry"
)

func main() {
	cfg := bot.DefaultConfig()
	flag.StringVar(&cfg.BaseURL, "server", cfg.BaseURL, "base URL of the game server")
	flag.StringVar(&cfg.Name, "name", cfg.Name, "player name")
	flag.StringVar(&cfg.GameID, "game", "", "game id to join (optional)")
	flag.IntVar(&cfg.FrameRate, "fps", cfg.FrameRate, "frames per second")
	flag.DurationVar(&cfg.StatsInterval, "stats", cfg.StatsInterval, "interval between stats dumps, 0 to disable")
	duration := flag.Duration("duration", 0, "stop after this long, 0 to run until interrupted")
	hunt := flag.Bool("hunt", false, "chase the nearest player instead of wandering")
	flag.Parse()

	logger := log.New(os.Stdout, "[client] ", log.LstdFlags)
	cfg.Logger = telemetry.WrapLogger(logger)
	if *hunt {
		cfg.Policy = bot.Hunt()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	start := time.Now()
	report, err := bot.Run(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	logger.Printf("player %d left game %s after %s: %d frames, %d events, newest tick %d",
		report.PlayerID, report.GameID, time.Since(start).Round(time.Millisecond), report.Frames, report.Events, report.Stats.NewestTick)
	for _, line := range report.FeedLines {
		logger.Printf("feed: %s", line)
	}
}
