package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wayfarer-rpg/wayfarer/internal/app"
	"github.com/wayfarer-rpg/wayfarer/internal/config"
	"github.com/wayfarer-rpg/wayfarer/internal/web"
	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "config/wayfarer.yaml", "path to configuration file")
	addr       = flag.String("addr", "", "listen address, overrides web.addr")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Web.Addr = *addr
	}

	logger, err := app.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting wayfarer web server",
		zap.String("version", version),
		zap.String("config", *configPath),
		zap.String("addr", cfg.Web.Addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.NewRuntime(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer rt.Close()

	hub := web.NewHub(logger)
	go hub.Run(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           web.NewServer(hub, rt.NewSession, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("websocket endpoint ready", zap.String("url", "ws://"+cfg.Web.Addr+"/ws"))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
