// Package session ties the managers together into a playable game: the
// top-level state machine, command routing, save/load and the coordinator for
// operations that span several managers.
package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wayfarer-rpg/wayfarer/internal/catalog"
	"github.com/wayfarer-rpg/wayfarer/internal/game/combat"
	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/instrument"
	"github.com/wayfarer-rpg/wayfarer/internal/game/inventory"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"github.com/wayfarer-rpg/wayfarer/internal/game/player"
	"github.com/wayfarer-rpg/wayfarer/internal/game/random"
	"github.com/wayfarer-rpg/wayfarer/internal/game/skills"
	"github.com/wayfarer-rpg/wayfarer/internal/game/watchers"
	"github.com/wayfarer-rpg/wayfarer/internal/game/world"
	"github.com/wayfarer-rpg/wayfarer/internal/persist"
	"go.uber.org/zap"
)

var (
	ErrNoGame      = errors.New("no game in progress")
	ErrInCombat    = errors.New("not allowed during combat")
	ErrInvalidName = errors.New("character name is required")
	ErrNoStore     = errors.New("no save store configured")
)

// Feature flag names.
const (
	FeatureRandomEncounters = "random_encounters"
	FeatureCheats           = "cheats"
	FeatureAutosave         = "autosave"
)

// AutosaveSlot receives saves made by the autosave feature.
const AutosaveSlot = "autosave"

// godDefense is the defense bonus granted while god mode is on.
const godDefense = 1000

// Manager is the lifecycle every game component follows.
type Manager interface {
	Name() string
	Initialize() error
	Reset()
}

// Config holds the tunables for a session.
type Config struct {
	InventorySize    int
	World            world.Config
	Combat           combat.Config
	SkillResetRefund int
	Features         map[string]bool
}

// DefaultConfig returns the standard session settings.
func DefaultConfig() Config {
	return Config{
		InventorySize:    inventory.DefaultCapacity,
		World:            world.DefaultConfig(),
		Combat:           combat.DefaultConfig(),
		SkillResetRefund: 50,
		Features: map[string]bool{
			FeatureRandomEncounters: true,
		},
	}
}

// Deps are the collaborators a game needs. Only Catalog is required.
type Deps struct {
	Bus     *events.Bus
	Catalog *catalog.Catalog
	Store   persist.Store
	Random  random.Source
	Clock   func() time.Time
	Logger  *zap.Logger
}

// Game is the top-level orchestrator. It is not safe for concurrent use: front
// ends drive it from a single goroutine.
type Game struct {
	bus     *events.Bus
	logger  *zap.Logger
	catalog *catalog.Catalog
	store   persist.Store
	clock   func() time.Time
	cfg     Config

	players     *player.Manager
	inventory   *inventory.Manager
	world       *world.Manager
	skills      *skills.Manager
	combat      *combat.Manager
	coordinator *Coordinator
	stats       *watchers.Registry
	managers    []Manager

	handlers map[string]handler
	subs     []events.Handle

	state    State
	resume   State
	id       string
	playTime time.Duration
	since    time.Time
	features map[string]bool
	god      bool
}

// New builds every manager, wires them to one bus and initializes them in
// dependency order: player, game, combat, inventory, location, skill.
func New(cfg Config, deps Deps) (*Game, error) {
	if deps.Catalog == nil {
		return nil, errors.New("session: catalog is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := deps.Bus
	if bus == nil {
		bus = events.NewBus(logger)
	}
	src := deps.Random
	if src == nil {
		seed, err := random.NewSeed()
		if err != nil {
			return nil, err
		}
		src = random.Seeded(seed)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	if cfg.InventorySize <= 0 {
		cfg.InventorySize = inventory.DefaultCapacity
	}

	g := &Game{
		bus:      bus,
		logger:   logger.Named("game"),
		catalog:  deps.Catalog,
		store:    deps.Store,
		clock:    clock,
		cfg:      cfg,
		features: make(map[string]bool, len(cfg.Features)),
		stats:    watchers.NewDefaultRegistry(),
	}
	for name, on := range cfg.Features {
		g.features[strings.ToLower(name)] = on
	}

	g.players = player.NewManager(bus, logger)
	g.inventory = inventory.NewManager(bus, g.players, cfg.InventorySize, logger)
	g.world = world.NewManager(bus, src, cfg.World, logger)
	g.skills = skills.NewManager(bus, g.players, logger)
	g.combat = combat.NewManager(bus, src, cfg.Combat, g.players, g.inventory, g.world, g.skills, logger)
	g.coordinator = NewCoordinator(bus, g.players, g.inventory, g.world, g.combat, logger)

	if err := g.skills.LoadCatalog(deps.Catalog.Skills); err != nil {
		return nil, fmt.Errorf("load skills: %w", err)
	}
	for _, e := range deps.Catalog.EncounterPool() {
		g.world.RegisterEncounterEnemy(e)
	}
	g.world.SetEncountersEnabled(g.Feature(FeatureRandomEncounters))

	g.managers = []Manager{g.players, g, g.combat, g.inventory, g.world, g.skills}
	for _, m := range g.managers {
		if err := m.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize %s: %w", m.Name(), err)
		}
		g.logger.Debug("manager initialized", zap.String("manager", m.Name()))
	}
	g.stats.Attach(bus)
	g.handlers = g.commandTable()

	g.logger.Info("game ready",
		zap.Int("skills", len(deps.Catalog.Skills)),
		zap.Int("locations", len(deps.Catalog.Locations)),
		zap.Int("inventory_size", cfg.InventorySize),
	)
	return g, nil
}

func (g *Game) Name() string { return "game" }

// Initialize follows combat so the state machine mirrors fights started by
// any component, including the coordinator.
func (g *Game) Initialize() error {
	g.subs = append(g.subs,
		events.On(g.bus, func(*events.CombatStarted) error {
			if g.state == StateRunning {
				g.setState(StateInCombat)
			}
			return nil
		}),
		events.On(g.bus, func(*events.CombatEnded) error {
			if g.state == StateInCombat {
				g.setState(StateRunning)
			}
			return nil
		}),
		events.On(g.bus, func(e *events.PlayerDied) error {
			g.logger.Info("player died", zap.String("cause", e.Cause))
			return nil
		}),
	)
	return nil
}

// Reset returns the game to NotStarted without touching the other managers.
func (g *Game) Reset() {
	g.state = StateNotStarted
	g.resume = StateNotStarted
	g.id = ""
	g.playTime = 0
	g.since = time.Time{}
	g.god = false
}

// Close detaches the game's subscriptions from the bus.
func (g *Game) Close() {
	for _, h := range g.subs {
		g.bus.Unsubscribe(h)
	}
	g.subs = nil
	g.stats.Detach()
}

func (g *Game) Bus() *events.Bus              { return g.bus }
func (g *Game) Catalog() *catalog.Catalog     { return g.catalog }
func (g *Game) Players() *player.Manager      { return g.players }
func (g *Game) Inventory() *inventory.Manager { return g.inventory }
func (g *Game) World() *world.Manager         { return g.world }
func (g *Game) Skills() *skills.Manager       { return g.skills }
func (g *Game) Combat() *combat.Manager       { return g.combat }
func (g *Game) Coordinator() *Coordinator     { return g.coordinator }
func (g *Game) Stats() *watchers.Registry     { return g.stats }
func (g *Game) State() State                  { return g.state }
func (g *Game) ID() string                    { return g.id }
func (g *Game) GodMode() bool                 { return g.god }
func (g *Game) HasGame() bool                 { return g.players.HasPlayer() && g.world.Current() != nil }

// PlayTime is the time spent in Running or InCombat.
func (g *Game) PlayTime() time.Duration {
	if g.state.counts() {
		return g.playTime + g.clock().Sub(g.since)
	}
	return g.playTime
}

// Feature reports whether a feature flag is on.
func (g *Game) Feature(name string) bool {
	return g.features[strings.ToLower(name)]
}

// SetFeature switches a feature flag and applies it to the managers it
// controls.
func (g *Game) SetFeature(name string, on bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	g.features[name] = on
	if name == FeatureRandomEncounters {
		g.world.SetEncountersEnabled(on)
	}
	g.logger.Info("feature toggled", zap.String("feature", name), zap.Bool("on", on))
}

// Features returns a copy of the feature flags.
func (g *Game) Features() map[string]bool {
	return maps.Clone(g.features)
}

// FeatureNames returns the known feature flags in sorted order.
func (g *Game) FeatureNames() []string {
	names := []string{FeatureRandomEncounters, FeatureCheats, FeatureAutosave}
	for n := range g.features {
		if n != FeatureRandomEncounters && n != FeatureCheats && n != FeatureAutosave {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

func (g *Game) setState(s State) {
	if s == g.state {
		return
	}
	now := g.clock()
	if g.state.counts() {
		g.playTime += now.Sub(g.since)
	}
	if s.counts() {
		g.since = now
	}
	from := g.state
	g.state = s
	g.logger.Debug("state changed", zap.Stringer("from", from), zap.Stringer("to", s))
	g.bus.Publish(&events.GameStateChanged{From: from.String(), To: s.String()})
}

func (g *Game) message(text string, sev events.Severity) {
	g.bus.Publish(&events.Message{Text: text, Severity: sev})
}

// NewGame creates a character of the given class and starts a fresh world.
func (g *Game) NewGame(name, class string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	c, err := model.ParseClass(class)
	if err != nil {
		return fmt.Errorf("%w: %w", catalog.ErrUnknownClass, err)
	}
	p, err := g.catalog.NewPlayer(name, c)
	if err != nil {
		return err
	}

	g.resetManagers()
	g.players.SetCurrentPlayer(p)
	if err := g.world.Load(g.catalog.Locations, g.catalog.Start); err != nil {
		g.players.Reset()
		return fmt.Errorf("load world: %w", err)
	}
	g.id = uuid.NewString()
	g.playTime = 0
	g.god = false
	g.stats.Reset()
	g.setState(StateRunning)

	g.logger.Info("new game",
		zap.String("game_id", g.id),
		zap.String("player", name),
		zap.String("class", string(c)),
	)
	g.bus.Publish(&events.GameStarted{PlayerName: name, Class: c, Location: g.world.CurrentKey()})
	g.message(fmt.Sprintf("Welcome, %s the %s.", name, c), events.SeverityInfo)
	return nil
}

// resetManagers clears every manager in reverse initialization order.
func (g *Game) resetManagers() {
	for i := len(g.managers) - 1; i >= 0; i-- {
		g.managers[i].Reset()
	}
}

// Quit ends the session.
func (g *Game) Quit() {
	if g.combat.InCombat() {
		g.combat.Reset()
	}
	g.setState(StateGameOver)
	g.logger.Info("game over", zap.Duration("play_time", g.PlayTime()))
}

// Pause stops the play clock until Resume.
func (g *Game) Pause() error {
	switch g.state {
	case StateRunning:
	case StatePaused:
		return errors.New("the game is already paused")
	default:
		return fmt.Errorf("cannot pause while %s", g.state)
	}
	g.resume = g.state
	g.setState(StatePaused)
	return nil
}

// Resume continues a paused game.
func (g *Game) Resume() error {
	if g.state != StatePaused {
		return errors.New("the game is not paused")
	}
	g.setState(g.resume)
	return nil
}

// OpenMenu enters the menu from Running.
func (g *Game) OpenMenu() error {
	if g.state != StateRunning {
		return fmt.Errorf("cannot open the menu while %s", g.state)
	}
	g.resume = g.state
	g.setState(StateInMenu)
	return nil
}

// CloseMenu leaves the menu.
func (g *Game) CloseMenu() error {
	if g.state != StateInMenu {
		return errors.New("the menu is not open")
	}
	g.setState(g.resume)
	return nil
}

// Snapshot captures the player and world as one save. God mode is never saved.
func (g *Game) Snapshot() (*model.GameSave, error) {
	if !g.HasGame() {
		return nil, ErrNoGame
	}
	p := g.players.Player().Clone()
	if g.god {
		p.Defense -= godDefense
	}
	return &model.GameSave{
		Version:         model.SaveVersion,
		ID:              g.id,
		Player:          p,
		CurrentLocation: g.world.CurrentKey(),
		Locations:       g.world.Snapshot(),
		Timestamp:       g.clock(),
		PlayTime:        g.PlayTime(),
	}, nil
}

// Save writes the current game to slot. Saving is refused during combat. A
// store failure is reported on the bus and leaves the game as it was.
func (g *Game) Save(ctx context.Context, slot string) error {
	if g.store == nil {
		return ErrNoStore
	}
	if g.combat.InCombat() {
		return ErrInCombat
	}
	save, err := g.Snapshot()
	if err != nil {
		return err
	}
	slot, err = persist.NormalizeSlot(slot)
	if err != nil {
		return err
	}

	prev := g.state
	g.setState(StateSaving)
	err = instrument.Run(g.logger, "save", func() error {
		return g.store.Save(ctx, slot, save)
	})
	g.setState(prev)
	if err != nil {
		g.persistenceFailed(slot, "save", err)
		return fmt.Errorf("save %s: %w", slot, err)
	}

	g.logger.Info("game saved", zap.String("slot", slot), zap.String("game_id", g.id))
	g.bus.Publish(&events.GameSaved{Slot: slot})
	return nil
}

// Load replaces the session with the snapshot in slot. On any failure the
// previous session is kept unchanged.
func (g *Game) Load(ctx context.Context, slot string) error {
	if g.store == nil {
		return ErrNoStore
	}
	if g.combat.InCombat() {
		return ErrInCombat
	}
	slot, err := persist.NormalizeSlot(slot)
	if err != nil {
		return err
	}

	prev := g.state
	g.setState(StateLoading)
	save, err := instrument.Value(g.logger, "load", func() (*model.GameSave, error) {
		return g.store.Load(ctx, slot)
	})
	if err == nil {
		err = g.apply(save)
	}
	if err != nil {
		g.setState(prev)
		g.persistenceFailed(slot, "load", err)
		return fmt.Errorf("load %s: %w", slot, err)
	}

	g.setState(StateRunning)
	g.logger.Info("game loaded",
		zap.String("slot", slot),
		zap.String("game_id", g.id),
		zap.String("location", g.world.CurrentKey()),
	)
	g.bus.Publish(&events.GameLoaded{Slot: slot, Location: g.world.CurrentKey()})
	return nil
}

// apply installs a snapshot, rolling back to the previous session if the
// world cannot be restored.
func (g *Game) apply(save *model.GameSave) error {
	if save == nil || save.Player == nil {
		return fmt.Errorf("empty snapshot: %w", persist.ErrCorrupt)
	}
	var backup *model.GameSave
	if g.HasGame() {
		backup, _ = g.Snapshot()
	}
	start := g.catalog.Start

	g.combat.Reset()
	g.skills.Reset()
	g.players.SetCurrentPlayer(save.Player.Clone())
	if err := g.world.Restore(save.Locations, save.CurrentLocation, start); err != nil {
		if backup != nil {
			g.players.SetCurrentPlayer(backup.Player)
			if rerr := g.world.Restore(backup.Locations, backup.CurrentLocation, start); rerr != nil {
				g.logger.Error("failed to restore previous world", zap.Error(rerr))
			}
		} else {
			g.players.Reset()
			g.world.Reset()
		}
		g.god = false
		return fmt.Errorf("%w: %w", persist.ErrCorrupt, err)
	}

	g.id = save.ID
	if g.id == "" {
		g.id = uuid.NewString()
	}
	g.playTime = save.PlayTime
	g.god = false
	g.stats.Reset()
	if issues := g.coordinator.Validate(); len(issues) > 0 {
		g.logger.Warn("loaded save needed repairs", zap.Strings("issues", issues))
	}
	return nil
}

func (g *Game) persistenceFailed(slot, op string, err error) {
	g.logger.Warn("persistence failed", zap.String("slot", slot), zap.String("op", op), zap.Error(err))
	g.bus.Publish(&events.PersistenceFailed{Slot: slot, Operation: op, Err: err})
}

// Saves lists the stored slots.
func (g *Game) Saves(ctx context.Context) ([]string, error) {
	if g.store == nil {
		return nil, ErrNoStore
	}
	return g.store.List(ctx)
}

// DeleteSave removes a slot.
func (g *Game) DeleteSave(ctx context.Context, slot string) error {
	if g.store == nil {
		return ErrNoStore
	}
	slot, err := persist.NormalizeSlot(slot)
	if err != nil {
		return err
	}
	if err := g.store.Delete(ctx, slot); err != nil {
		g.persistenceFailed(slot, "delete", err)
		return err
	}
	return nil
}

// autosave writes the autosave slot when the feature is on. Failures are
// reported but never interrupt play.
func (g *Game) autosave(ctx context.Context) {
	if !g.Feature(FeatureAutosave) || g.store == nil || g.combat.InCombat() || !g.HasGame() {
		return
	}
	if err := g.Save(ctx, AutosaveSlot); err != nil {
		g.logger.Debug("autosave failed", zap.Error(err))
	}
}

// SetGodMode switches invulnerability cheat on or off.
func (g *Game) SetGodMode(on bool) {
	if on == g.god || !g.players.HasPlayer() {
		return
	}
	delta := godDefense
	if !on {
		delta = -godDefense
	}
	g.players.ApplyStatDelta(map[string]int{model.StatDefense: delta}, "cheat: god")
	g.god = on
}
