// Package app wires configuration into a runnable game: logger, catalog, save
// store and session construction shared by the front ends.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/wayfarer-rpg/wayfarer/internal/catalog"
	"github.com/wayfarer-rpg/wayfarer/internal/config"
	"github.com/wayfarer-rpg/wayfarer/internal/game/combat"
	"github.com/wayfarer-rpg/wayfarer/internal/game/random"
	"github.com/wayfarer-rpg/wayfarer/internal/game/session"
	"github.com/wayfarer-rpg/wayfarer/internal/game/world"
	"github.com/wayfarer-rpg/wayfarer/internal/persist"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger from the logging settings.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if cfg.File != "" {
		zapCfg.OutputPaths = []string{cfg.File}
		zapCfg.ErrorOutputPaths = []string{cfg.File}
		// Colour codes make log files unreadable.
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// OpenStore returns the save backend named by cfg.Driver and a function that
// releases it.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (persist.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case "", "file":
		return persist.NewFileStore(cfg.Dir, logger), noop, nil
	case "memory":
		return persist.NewMemoryStore(), noop, nil
	case "sqlite":
		s, err := persist.NewSQLiteStore(ctx, cfg.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// SessionConfig maps runtime settings onto the session settings.
func SessionConfig(cfg *config.Config) session.Config {
	sc := session.DefaultConfig()
	sc.InventorySize = cfg.Game.MaxInventorySize
	sc.World = world.Config{
		EncounterChance: cfg.Game.EncounterChance,
		SearchChance:    cfg.Game.SearchChance,
		Encounters:      cfg.Feature(session.FeatureRandomEncounters),
	}
	cc := combat.DefaultConfig()
	cc.FleeChance = cfg.Combat.FleeChance
	cc.CritChance = cfg.Combat.CritChance
	cc.CritMultiplier = cfg.Combat.CritMultiplier
	cc.MissChance = cfg.Combat.MissChance
	sc.Combat = cc
	sc.SkillResetRefund = cfg.Game.SkillResetRefund
	sc.Features = make(map[string]bool, len(cfg.Features))
	for name, on := range cfg.Features {
		sc.Features[strings.ToLower(name)] = on
	}
	return sc
}

// Runtime holds the process-wide collaborators. Sessions created from it share
// the catalog and the store but nothing else.
type Runtime struct {
	Config  *config.Config
	Logger  *zap.Logger
	Catalog *catalog.Catalog
	Store   persist.Store

	closeStore func() error
}

// NewRuntime loads the catalog and opens the store.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store, closeStore, err := OpenStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open save store: %w", err)
	}
	logger.Info("save store ready", zap.String("driver", cfg.Storage.Driver))
	return &Runtime{
		Config:     cfg,
		Logger:     logger,
		Catalog:    catalog.LoadOrDefault(cfg.Catalog.Path, logger),
		Store:      store,
		closeStore: closeStore,
	}, nil
}

// NewSession creates an independent game with its own bus and random source.
func (r *Runtime) NewSession() (*session.Game, error) {
	seed := r.Config.Game.Seed
	if seed == 0 {
		var err error
		if seed, err = random.NewSeed(); err != nil {
			return nil, fmt.Errorf("seed random source: %w", err)
		}
	}
	r.Logger.Debug("creating session", zap.Int64("seed", seed))
	return session.New(SessionConfig(r.Config), session.Deps{
		Catalog: r.Catalog,
		Store:   r.Store,
		Random:  random.Seeded(seed),
		Logger:  r.Logger,
	})
}

// Close releases the store.
func (r *Runtime) Close() error {
	if r.closeStore == nil {
		return nil
	}
	return r.closeStore()
}
