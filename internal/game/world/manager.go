// Package world owns the location graph, movement and random encounters.
package world

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"github.com/wayfarer-rpg/wayfarer/internal/game/random"
	"go.uber.org/zap"
)

var (
	ErrNoWorld         = errors.New("no world loaded")
	ErrNoExit          = errors.New("no exit in that direction")
	ErrDanglingExit    = errors.New("exit leads to an unknown location")
	ErrUnknownLocation = errors.New("unknown location")
	ErrLocationExists  = errors.New("location already exists")
	ErrCancelled       = errors.New("movement cancelled")
	ErrItemNotHere     = errors.New("item not here")
	ErrNoPath          = errors.New("no path between locations")
)

// Config tunes exploration odds.
type Config struct {
	// EncounterChance applies to locations without their own probability.
	EncounterChance float64
	// SearchChance is the per-item probability that Search reveals it.
	SearchChance float64
	// Encounters enables random encounters on movement.
	Encounters bool
}

// DefaultConfig returns the standard exploration odds.
func DefaultConfig() Config {
	return Config{EncounterChance: 0.3, SearchChance: 0.5, Encounters: true}
}

// MoveResult describes a completed move.
type MoveResult struct {
	From       string
	To         string
	Direction  string
	Discovered bool
	// Encounter is set when the move triggered a random encounter.
	Encounter *model.Enemy
}

// Manager is the single writer of the location graph.
type Manager struct {
	bus    *events.Bus
	logger *zap.Logger
	src    random.Source
	cfg    Config

	locations map[string]*model.Location
	current   string
	start     string
	pool      []model.Enemy
}

// NewManager creates a world manager drawing randomness from src.
func NewManager(bus *events.Bus, src random.Source, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		bus:       bus,
		logger:    logger.Named("world"),
		src:       src,
		cfg:       cfg,
		locations: make(map[string]*model.Location),
	}
}

func (m *Manager) Name() string      { return "location" }
func (m *Manager) Initialize() error { return nil }

// Reset unloads the world; the encounter pool is catalog data and survives.
func (m *Manager) Reset() {
	m.locations = make(map[string]*model.Location)
	m.current = ""
	m.start = ""
}

// Load replaces the world graph with a copy of locations and places the player
// at start, which also becomes the relocation point after a defeat.
func (m *Manager) Load(locations map[string]*model.Location, start string) error {
	if _, ok := locations[start]; !ok {
		return fmt.Errorf("start %q: %w", start, ErrUnknownLocation)
	}
	m.locations = model.CloneLocations(locations)
	m.start = start
	m.current = start
	m.locations[start].Visited = true
	for key, loc := range m.locations {
		for dir, dest := range loc.Exits {
			if _, ok := m.locations[dest]; !ok {
				m.logger.Warn("dangling exit", zap.String("location", key), zap.String("direction", dir), zap.String("to", dest))
			}
		}
	}
	m.logger.Info("world loaded", zap.Int("locations", len(m.locations)), zap.String("start", start))
	return nil
}

// Restore installs a saved world graph with the player at current.
func (m *Manager) Restore(locations map[string]*model.Location, current, start string) error {
	if _, ok := locations[current]; !ok {
		return fmt.Errorf("current %q: %w", current, ErrUnknownLocation)
	}
	m.locations = model.CloneLocations(locations)
	m.current = current
	if _, ok := m.locations[start]; ok {
		m.start = start
	} else {
		m.start = current
	}
	return nil
}

// Snapshot returns a deep copy of the graph for saving.
func (m *Manager) Snapshot() map[string]*model.Location {
	return model.CloneLocations(m.locations)
}

// Current returns the player's location; nil when no world is loaded.
func (m *Manager) Current() *model.Location { return m.locations[m.current] }

// CurrentKey returns the key of the player's location.
func (m *Manager) CurrentKey() string { return m.current }

// StartKey returns the village location used for defeat relocation.
func (m *Manager) StartKey() string { return m.start }

// Location returns a location by key.
func (m *Manager) Location(key string) (*model.Location, bool) {
	loc, ok := m.locations[key]
	return loc, ok
}

// Keys lists every location key in sorted order.
func (m *Manager) Keys() []string {
	keys := make([]string, 0, len(m.locations))
	for k := range m.locations {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetCurrent places the player at key without publishing movement events.
func (m *Manager) SetCurrent(key string) error {
	if _, ok := m.locations[key]; !ok {
		return fmt.Errorf("%q: %w", key, ErrUnknownLocation)
	}
	m.current = key
	return nil
}

// Exits returns a copy of the current location's exits.
func (m *Manager) Exits() map[string]string {
	loc := m.Current()
	if loc == nil {
		return nil
	}
	out := make(map[string]string, len(loc.Exits))
	for k, v := range loc.Exits {
		out[k] = v
	}
	return out
}

// HasLocation reports whether key is loaded.
func (m *Manager) HasLocation(key string) bool {
	_, ok := m.locations[key]
	return ok
}

// AddLocation inserts a new location.
func (m *Manager) AddLocation(loc *model.Location) error {
	if loc == nil || loc.Key == "" {
		return fmt.Errorf("add location: %w", ErrUnknownLocation)
	}
	if _, ok := m.locations[loc.Key]; ok {
		return fmt.Errorf("%q: %w", loc.Key, ErrLocationExists)
	}
	m.locations[loc.Key] = loc.Clone()
	return nil
}

// RemoveLocation deletes a location. The current location cannot be removed.
func (m *Manager) RemoveLocation(key string) bool {
	if _, ok := m.locations[key]; !ok || key == m.current {
		return false
	}
	delete(m.locations, key)
	return true
}

// Move walks through an exit of the current location. A missing or dangling exit
// fails and leaves the player where they were.
func (m *Manager) Move(direction string) (MoveResult, error) {
	from := m.Current()
	if from == nil {
		return MoveResult{}, ErrNoWorld
	}
	direction = strings.ToLower(strings.TrimSpace(direction))
	destKey, ok := from.Exits[direction]
	if !ok {
		return MoveResult{}, fmt.Errorf("%s: %w", direction, ErrNoExit)
	}
	if _, ok := m.locations[destKey]; !ok {
		msg := fmt.Sprintf("exit %s of %s leads to unknown location %q", direction, from.Key, destKey)
		m.logger.Error("dangling exit", zap.String("detail", msg))
		m.bus.Publish(&events.SystemError{Component: m.Name(), Message: msg, Severity: events.SeverityError})
		return MoveResult{}, fmt.Errorf("%s: %w", direction, ErrDanglingExit)
	}

	changing := &events.LocationChanging{From: from.Key, To: destKey, Direction: direction}
	m.bus.Publish(changing)
	if changing.Cancelled() {
		return MoveResult{}, ErrCancelled
	}

	res := m.arrive(from.Key, destKey, direction)
	res.Encounter = m.rollEncounter()
	return res, nil
}

// MoveTo teleports to key without adjacency and without rolling an encounter.
func (m *Manager) MoveTo(key string) (MoveResult, error) {
	if _, ok := m.locations[key]; !ok {
		return MoveResult{}, fmt.Errorf("%q: %w", key, ErrUnknownLocation)
	}
	return m.arrive(m.current, key, ""), nil
}

func (m *Manager) arrive(from, to, direction string) MoveResult {
	m.current = to
	dest := m.locations[to]
	res := MoveResult{From: from, To: to, Direction: direction}
	m.logger.Debug("moved", zap.String("from", from), zap.String("to", to), zap.String("direction", direction))
	m.bus.Publish(&events.LocationChanged{From: from, To: to, Direction: direction})
	if !dest.Visited {
		dest.Visited = true
		res.Discovered = true
		m.bus.Publish(&events.LocationDiscovered{Key: to, Name: dest.Name})
	}
	return res
}

// rollEncounter draws exactly one sample against the current location's
// probability and, on a hit, picks an enemy uniformly from the pool.
func (m *Manager) rollEncounter() *model.Enemy {
	if !m.cfg.Encounters {
		return nil
	}
	if !random.Chance(m.src, m.EncounterChance(m.current)) || len(m.pool) == 0 {
		return nil
	}
	enemy := m.pool[m.src.Intn(len(m.pool))].Clone()
	enemy.ID = uuid.NewString()
	enemy.Health = enemy.MaxHealth
	enemy.RandomEncounter = true
	m.logger.Info("random encounter", zap.String("location", m.current), zap.String("enemy", enemy.Name))
	m.bus.Publish(&events.RandomEncounter{Location: m.current, Enemy: enemy})
	return &enemy
}

// RegisterEncounterEnemy adds a template to the random-encounter pool.
func (m *Manager) RegisterEncounterEnemy(e model.Enemy) {
	if e.MaxHealth <= 0 {
		e.MaxHealth = e.Health
	}
	m.pool = append(m.pool, e.Clone())
}

// EncounterPool returns the registered templates.
func (m *Manager) EncounterPool() []model.Enemy {
	out := make([]model.Enemy, len(m.pool))
	for i, e := range m.pool {
		out[i] = e.Clone()
	}
	return out
}

// EncounterChance returns the probability for key, falling back to the default.
func (m *Manager) EncounterChance(key string) float64 {
	if loc, ok := m.locations[key]; ok && loc.EncounterChance != nil {
		return *loc.EncounterChance
	}
	return m.cfg.EncounterChance
}

// SetEncounterChance overrides the probability for one location, clamped to
// [0, 1].
func (m *Manager) SetEncounterChance(key string, p float64) error {
	loc, ok := m.locations[key]
	if !ok {
		return fmt.Errorf("%q: %w", key, ErrUnknownLocation)
	}
	p = min(max(p, 0), 1)
	loc.EncounterChance = &p
	return nil
}

// SetEncountersEnabled toggles random encounters.
func (m *Manager) SetEncountersEnabled(on bool) { m.cfg.Encounters = on }

// TakeItem removes the first item matching query from the current location.
func (m *Manager) TakeItem(query string) (model.Item, error) {
	loc := m.Current()
	if loc == nil {
		return model.Item{}, ErrNoWorld
	}
	idx := model.FindItem(loc.Items, query)
	if idx < 0 {
		return model.Item{}, fmt.Errorf("%q: %w", query, ErrItemNotHere)
	}
	item := loc.Items[idx]
	loc.Items = append(loc.Items[:idx:idx], loc.Items[idx+1:]...)
	if len(loc.Items) == 0 {
		loc.Items = nil
	}
	return item, nil
}

// PlaceItem leaves an item at the current location.
func (m *Manager) PlaceItem(item model.Item) error {
	loc := m.Current()
	if loc == nil {
		return ErrNoWorld
	}
	item.Acquired = 0
	loc.Items = append(loc.Items, item)
	return nil
}

// Enemies lists the enemies at the current location.
func (m *Manager) Enemies() []model.Enemy {
	loc := m.Current()
	if loc == nil {
		return nil
	}
	out := make([]model.Enemy, len(loc.Enemies))
	for i, e := range loc.Enemies {
		out[i] = e.Clone()
	}
	return out
}

// FindEnemy returns a fresh instance of the first enemy at the current location
// whose name contains query, or the first enemy when query is empty.
func (m *Manager) FindEnemy(query string) (model.Enemy, bool) {
	loc := m.Current()
	if loc == nil || len(loc.Enemies) == 0 {
		return model.Enemy{}, false
	}
	query = strings.ToLower(strings.TrimSpace(query))
	for _, e := range loc.Enemies {
		if query == "" || strings.Contains(strings.ToLower(e.Name), query) {
			inst := e.Clone()
			inst.ID = uuid.NewString()
			if inst.MaxHealth <= 0 {
				inst.MaxHealth = inst.Health
			}
			return inst, true
		}
	}
	return model.Enemy{}, false
}

// NPCs lists the characters at the current location.
func (m *Manager) NPCs() []string {
	loc := m.Current()
	if loc == nil {
		return nil
	}
	return append([]string(nil), loc.NPCs...)
}

// RemoveEnemy removes the first enemy named name from a location.
func (m *Manager) RemoveEnemy(key, name string) bool {
	loc, ok := m.locations[key]
	if !ok {
		return false
	}
	for i, e := range loc.Enemies {
		if strings.EqualFold(e.Name, name) {
			loc.Enemies = append(loc.Enemies[:i:i], loc.Enemies[i+1:]...)
			return true
		}
	}
	return false
}

// MarkVisited flags a location as visited.
func (m *Manager) MarkVisited(key string) bool {
	loc, ok := m.locations[key]
	if !ok {
		return false
	}
	loc.Visited = true
	return true
}

// Search rolls once per hidden item at the current location and moves revealed
// items into plain view.
func (m *Manager) Search() []model.Item {
	loc := m.Current()
	if loc == nil || len(loc.HiddenItems) == 0 {
		return nil
	}
	var revealed, hidden []model.Item
	for _, it := range loc.HiddenItems {
		if random.Chance(m.src, m.cfg.SearchChance) {
			revealed = append(revealed, it)
		} else {
			hidden = append(hidden, it)
		}
	}
	if len(revealed) == 0 {
		return nil
	}
	loc.HiddenItems = hidden
	loc.Items = append(loc.Items, revealed...)
	m.bus.Publish(&events.ItemsRevealed{Location: loc.Key, Items: model.CloneItems(revealed)})
	return revealed
}

// ShortestPath returns the directions to walk from one location to another.
// Exits are explored in sorted direction order, so ties resolve the same way
// every time.
func (m *Manager) ShortestPath(from, to string) ([]string, error) {
	if _, ok := m.locations[from]; !ok {
		return nil, fmt.Errorf("%q: %w", from, ErrUnknownLocation)
	}
	if _, ok := m.locations[to]; !ok {
		return nil, fmt.Errorf("%q: %w", to, ErrUnknownLocation)
	}
	if from == to {
		return []string{}, nil
	}

	type step struct {
		prev string
		dir  string
	}
	seen := map[string]step{from: {}}
	queue := []string{from}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		loc := m.locations[key]
		for _, dir := range loc.Directions() {
			next := loc.Exits[dir]
			if _, ok := m.locations[next]; !ok {
				continue
			}
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = step{prev: key, dir: dir}
			if next == to {
				var path []string
				for at := to; at != from; at = seen[at].prev {
					path = append(path, seen[at].dir)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path, nil
			}
			queue = append(queue, next)
		}
	}
	return nil, fmt.Errorf("%s to %s: %w", from, to, ErrNoPath)
}

// Distance returns the number of moves between two locations, or -1 when
// unreachable.
func (m *Manager) Distance(from, to string) int {
	path, err := m.ShortestPath(from, to)
	if err != nil {
		return -1
	}
	return len(path)
}
