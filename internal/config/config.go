// Package config loads runtime settings from a YAML file, WAYFARER_* environment
// variables and built-in defaults, in that order of precedence (env wins).
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. WAYFARER_LOGGING_LEVEL.
const EnvPrefix = "WAYFARER"

// Config is the full runtime configuration.
type Config struct {
	Logging  LoggingConfig   `mapstructure:"logging"`
	Game     GameConfig      `mapstructure:"game"`
	Combat   CombatConfig    `mapstructure:"combat"`
	Storage  StorageConfig   `mapstructure:"storage"`
	Catalog  CatalogConfig   `mapstructure:"catalog"`
	Web      WebConfig       `mapstructure:"web"`
	Features map[string]bool `mapstructure:"features"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File, when set, receives log output instead of stderr.
	File string `mapstructure:"file"`
}

// GameConfig holds exploration and progression settings.
type GameConfig struct {
	MaxInventorySize int     `mapstructure:"max_inventory_size"`
	EncounterChance  float64 `mapstructure:"encounter_chance"`
	SearchChance     float64 `mapstructure:"search_chance"`
	SkillResetRefund int     `mapstructure:"skill_reset_refund"`
	// Seed fixes the random source; zero means a fresh seed per session.
	Seed int64 `mapstructure:"seed"`
}

// CombatConfig holds combat odds.
type CombatConfig struct {
	FleeChance     float64 `mapstructure:"flee_chance"`
	CritChance     float64 `mapstructure:"crit_chance"`
	CritMultiplier float64 `mapstructure:"crit_multiplier"`
	MissChance     float64 `mapstructure:"miss_chance"`
}

// StorageConfig selects the save backend.
type StorageConfig struct {
	// Driver is "file", "sqlite" or "memory".
	Driver string `mapstructure:"driver"`
	Dir    string `mapstructure:"dir"`
	DSN    string `mapstructure:"dsn"`
}

// CatalogConfig points at an optional YAML data catalog.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// WebConfig configures the websocket front end.
type WebConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")

	v.SetDefault("game.max_inventory_size", 20)
	v.SetDefault("game.encounter_chance", 0.3)
	v.SetDefault("game.search_chance", 0.5)
	v.SetDefault("game.skill_reset_refund", 50)
	v.SetDefault("game.seed", 0)

	v.SetDefault("combat.flee_chance", 0.7)
	v.SetDefault("combat.crit_chance", 0.1)
	v.SetDefault("combat.crit_multiplier", 2.0)
	v.SetDefault("combat.miss_chance", 0.05)

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.dir", "saves")
	v.SetDefault("storage.dsn", "file:wayfarer.db?cache=shared&mode=rwc")

	v.SetDefault("catalog.path", "")
	v.SetDefault("web.addr", ":8080")

	v.SetDefault("features.random_encounters", true)
	v.SetDefault("features.cheats", false)
	v.SetDefault("features.autosave", false)
}

// Load reads path (if it exists) and applies environment overrides. An empty
// path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isMissingFile(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the game cannot run with.
func (c *Config) Validate() error {
	if c.Game.MaxInventorySize <= 0 {
		return fmt.Errorf("game.max_inventory_size must be positive, got %d", c.Game.MaxInventorySize)
	}
	for name, p := range map[string]float64{
		"game.encounter_chance": c.Game.EncounterChance,
		"game.search_chance":    c.Game.SearchChance,
		"combat.flee_chance":    c.Combat.FleeChance,
		"combat.crit_chance":    c.Combat.CritChance,
		"combat.miss_chance":    c.Combat.MissChance,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("%s must be within [0, 1], got %v", name, p)
		}
	}
	if c.Combat.CritMultiplier < 1 {
		return fmt.Errorf("combat.crit_multiplier must be at least 1, got %v", c.Combat.CritMultiplier)
	}
	if c.Game.SkillResetRefund < 0 || c.Game.SkillResetRefund > 100 {
		return fmt.Errorf("game.skill_reset_refund must be within [0, 100], got %d", c.Game.SkillResetRefund)
	}
	switch c.Storage.Driver {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("storage.driver %q is not one of file, sqlite, memory", c.Storage.Driver)
	}
	return nil
}

// Feature reports whether a named feature flag is on.
func (c *Config) Feature(name string) bool {
	return c.Features[strings.ToLower(name)]
}
