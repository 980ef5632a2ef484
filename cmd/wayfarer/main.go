package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wayfarer-rpg/wayfarer/internal/app"
	"github.com/wayfarer-rpg/wayfarer/internal/config"
	"github.com/wayfarer-rpg/wayfarer/internal/tui"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "config/wayfarer.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so console logs go to a file.
	if cfg.Logging.File == "" {
		cfg.Logging.File = "wayfarer.log"
	}
	logger, err := app.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting wayfarer",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.NewRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer rt.Close()

	g, err := rt.NewSession()
	if err != nil {
		logger.Fatal("failed to create session", zap.Error(err))
	}
	defer g.Close()

	if err := tui.Run(ctx, g); err != nil {
		logger.Error("terminal UI exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("wayfarer stopped")
}
