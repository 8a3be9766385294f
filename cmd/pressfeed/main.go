package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Adda-Baaj/pressfeed/internal/app"
	"github.com/Adda-Baaj/pressfeed/internal/config"
	"github.com/Adda-Baaj/pressfeed/internal/logger"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pressfeed: %v\n", err)
		return 1
	}

	if cfg.Status {
		if err := app.PrintStatus(cfg.StatePath, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "pressfeed: %v\n", err)
			return 1
		}
		return 0
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pressfeed: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("startup failed", "startup_error", map[string]any{"error": err})
		return 1
	}
	defer func() { _ = application.Close() }()

	if err := application.Run(ctx); err != nil {
		log.ErrorObj("run failed", "run_error", map[string]any{"error": err})
		return 1
	}
	return 0
}
