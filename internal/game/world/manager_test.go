package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"github.com/wayfarer-rpg/wayfarer/internal/game/random"
	"go.uber.org/zap/zaptest"
)

func testGraph() map[string]*model.Location {
	return map[string]*model.Location{
		"village": {
			Key:   "village",
			Name:  "Village",
			Exits: map[string]string{"north": "forest", "east": "ruins"},
			Items: []model.Item{{Name: "Torch", Type: model.ItemMisc}},
		},
		"forest": {
			Key:     "forest",
			Name:    "Dark Forest",
			Exits:   map[string]string{"south": "village", "east": "cave"},
			Enemies: []model.Enemy{{Name: "Goblin", Health: 25, MaxHealth: 25}},
			HiddenItems: []model.Item{
				{Name: "Silver Ring", Type: model.ItemMisc},
				{Name: "Old Coin", Type: model.ItemMisc},
			},
		},
		"cave": {
			Key:   "cave",
			Name:  "Cave",
			Exits: map[string]string{"west": "forest"},
		},
		"tower": {
			Key:   "tower",
			Name:  "Lonely Tower",
			Exits: map[string]string{"down": "village"},
		},
	}
}

func newTestWorld(t *testing.T, src random.Source) (*Manager, *events.Bus) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger)
	m := NewManager(bus, src, DefaultConfig(), logger)
	require.NoError(t, m.Load(testGraph(), "village"))
	return m, bus
}

func TestMoveWithoutExitLeavesLocationUnchanged(t *testing.T) {
	m, _ := newTestWorld(t, random.Fixed{Float: 0.99})

	_, err := m.Move("west")
	assert.ErrorIs(t, err, ErrNoExit)
	assert.Equal(t, "village", m.CurrentKey())
}

func TestMoveThroughDanglingExitFails(t *testing.T) {
	m, bus := newTestWorld(t, random.Fixed{Float: 0.99})
	errs := 0
	bus.Subscribe(events.KindSystemError, func(events.Event) error {
		errs++
		return nil
	})

	_, err := m.Move("east")
	assert.ErrorIs(t, err, ErrDanglingExit)
	assert.Equal(t, "village", m.CurrentKey())
	assert.Equal(t, 1, errs)
}

func TestMovePublishesAndDiscovers(t *testing.T) {
	m, bus := newTestWorld(t, random.Fixed{Float: 0.99})
	var kinds []events.Kind
	bus.SubscribeAll(func(evt events.Event) error {
		kinds = append(kinds, evt.Kind())
		return nil
	})

	res, err := m.Move(" North ")
	require.NoError(t, err)
	assert.Equal(t, "forest", m.CurrentKey())
	assert.True(t, res.Discovered)
	assert.Nil(t, res.Encounter)
	assert.Equal(t, []events.Kind{
		events.KindLocationChanging,
		events.KindLocationChanged,
		events.KindLocationDiscovered,
	}, kinds)

	kinds = nil
	_, err = m.Move("south")
	require.NoError(t, err)
	assert.NotContains(t, kinds, events.KindLocationDiscovered, "village was the start")
}

func TestCancelledMoveStaysPut(t *testing.T) {
	m, bus := newTestWorld(t, random.Fixed{Float: 0.99})
	events.On(bus, func(evt *events.LocationChanging) error {
		evt.Cancel()
		return nil
	})

	_, err := m.Move("north")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, "village", m.CurrentKey())
}

func TestRandomEncounterDrawsOneSample(t *testing.T) {
	src := &random.Script{Floats: []float64{0.1}, Ints: []int{1}, Fallback: random.Fixed{Float: 0.99}}
	m, _ := newTestWorld(t, src)
	m.RegisterEncounterEnemy(model.Enemy{Name: "Wolf", Health: 20})
	m.RegisterEncounterEnemy(model.Enemy{Name: "Bandit", Health: 30})

	res, err := m.Move("north")
	require.NoError(t, err)
	require.NotNil(t, res.Encounter)
	assert.Equal(t, "Bandit", res.Encounter.Name)
	assert.Equal(t, 30, res.Encounter.MaxHealth)
	assert.NotEmpty(t, res.Encounter.ID)
	assert.Empty(t, src.Floats)

	res, err = m.Move("south")
	require.NoError(t, err)
	assert.Nil(t, res.Encounter, "0.99 is above the 30% default")
}

func TestEncounterChanceOverrides(t *testing.T) {
	m, _ := newTestWorld(t, random.Fixed{Float: 0.5})
	m.RegisterEncounterEnemy(model.Enemy{Name: "Wolf", Health: 20})

	assert.Equal(t, 0.3, m.EncounterChance("forest"))
	require.NoError(t, m.SetEncounterChance("forest", 2))
	assert.Equal(t, 1.0, m.EncounterChance("forest"))
	assert.Error(t, m.SetEncounterChance("nowhere", 0.5))

	res, err := m.Move("north")
	require.NoError(t, err)
	assert.NotNil(t, res.Encounter)

	m.SetEncountersEnabled(false)
	_, _ = m.Move("south")
	res, err = m.Move("north")
	require.NoError(t, err)
	assert.Nil(t, res.Encounter)
}

func TestMoveToTeleports(t *testing.T) {
	m, _ := newTestWorld(t, random.Fixed{Float: 0.99})

	res, err := m.MoveTo("tower")
	require.NoError(t, err)
	assert.Equal(t, "tower", m.CurrentKey())
	assert.True(t, res.Discovered)

	_, err = m.MoveTo("moon")
	assert.ErrorIs(t, err, ErrUnknownLocation)
	assert.Equal(t, "tower", m.CurrentKey())
}

func TestShortestPathAndDistance(t *testing.T) {
	m, _ := newTestWorld(t, random.Fixed{})

	path, err := m.ShortestPath("village", "cave")
	require.NoError(t, err)
	assert.Equal(t, []string{"north", "east"}, path)
	assert.Equal(t, 2, m.Distance("village", "cave"))
	assert.Equal(t, 0, m.Distance("cave", "cave"))

	// Exits are one-way: nothing leads to the tower.
	_, err = m.ShortestPath("village", "tower")
	assert.ErrorIs(t, err, ErrNoPath)
	assert.Equal(t, -1, m.Distance("village", "tower"))
	assert.Equal(t, 3, m.Distance("tower", "cave"))
}

func TestItemsAndSearch(t *testing.T) {
	src := &random.Script{Floats: []float64{0.9, 0.1}, Fallback: random.Fixed{Float: 0.99}}
	m, _ := newTestWorld(t, src)

	item, err := m.TakeItem("torch")
	require.NoError(t, err)
	assert.Equal(t, "Torch", item.Name)
	assert.Nil(t, m.Current().Items, "an emptied floor matches a decoded save")
	_, err = m.TakeItem("torch")
	assert.ErrorIs(t, err, ErrItemNotHere)
	require.NoError(t, m.PlaceItem(item))
	assert.Len(t, m.Current().Items, 1)

	require.NoError(t, m.SetCurrent("forest"))
	revealed := m.Search()
	require.Len(t, revealed, 1)
	assert.Equal(t, "Old Coin", revealed[0].Name)
	assert.Len(t, m.Current().HiddenItems, 1)
	assert.Len(t, m.Current().Items, 1)
}

func TestEnemiesAtLocation(t *testing.T) {
	m, _ := newTestWorld(t, random.Fixed{Float: 0.99})
	require.NoError(t, m.SetCurrent("forest"))

	enemy, ok := m.FindEnemy("gob")
	require.True(t, ok)
	assert.NotEmpty(t, enemy.ID)

	assert.True(t, m.RemoveEnemy("forest", "goblin"))
	assert.False(t, m.RemoveEnemy("forest", "goblin"))
	assert.Empty(t, m.Enemies())
}

func TestLoadCopiesGraph(t *testing.T) {
	graph := testGraph()
	m, _ := newTestWorld(t, random.Fixed{})
	require.NoError(t, m.Load(graph, "village"))

	graph["village"].Name = "Changed"
	assert.Equal(t, "Village", m.Current().Name)

	assert.Error(t, m.Load(graph, "missing"))
	assert.False(t, m.RemoveLocation("village"), "current location is pinned")
	assert.True(t, m.RemoveLocation("tower"))
	assert.ErrorIs(t, m.AddLocation(&model.Location{Key: "cave"}), ErrLocationExists)
}
