package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 20, cfg.Game.MaxInventorySize)
	assert.Equal(t, 0.3, cfg.Game.EncounterChance)
	assert.Equal(t, 0.7, cfg.Combat.FleeChance)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.True(t, cfg.Feature("random_encounters"))
	assert.False(t, cfg.Feature("cheats"))

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Web.Addr)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wayfarer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
game:
  max_inventory_size: 5
  seed: 42
storage:
  driver: sqlite
features:
  cheats: true
`), 0o644))
	t.Setenv("WAYFARER_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Game.MaxInventorySize)
	assert.Equal(t, int64(42), cfg.Game.Seed)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.True(t, cfg.Feature("CHEATS"))
	assert.Equal(t, 0.5, cfg.Game.SearchChance)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("combat:\n  flee_chance: 1.5\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "combat.flee_chance")

	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: postgres\n"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "storage.driver")

	require.NoError(t, os.WriteFile(path, []byte("game: [unclosed"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}
