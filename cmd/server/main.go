package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"arena/internal/app"
	"arena/internal/config"
)

func main() {
	cfg, err := config.Load(".env", os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{Server: cfg}); err != nil {
		log.Fatalf("%v", err)
	}
}
