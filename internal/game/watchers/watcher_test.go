package watchers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"go.uber.org/zap/zaptest"
)

func TestRegistryTalliesBusEvents(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t))
	r := NewDefaultRegistry()
	r.Attach(bus)

	bus.Publish(&events.DamageDealt{Attacker: "player", Target: "Goblin", Amount: 14, Critical: true})
	bus.Publish(&events.DamageDealt{Attacker: "Goblin", Target: "Aria", TargetIsPlayer: true, Amount: 1})
	bus.Publish(&events.CombatEnded{Result: "VICTORY", Enemy: "Goblin"})
	bus.Publish(&events.CombatEnded{Result: "FLED", Enemy: "Wolf"})
	bus.Publish(&events.GoldChanged{Delta: 8})
	bus.Publish(&events.GoldChanged{Delta: -3})
	bus.Publish(&events.LocationChanged{From: "village", To: "forest"})
	bus.Publish(&events.LocationDiscovered{Key: "forest"})
	bus.Publish(&events.LocationDiscovered{Key: "forest"})

	kills := r.Get("EnemiesDefeatedWatcher").(*EnemiesDefeatedWatcher)
	assert.Equal(t, 1, kills.Count("Goblin"))
	assert.Equal(t, 1, kills.Total())
	assert.True(t, kills.ConditionMet())

	dmg := r.Get("DamageWatcher").(*DamageWatcher)
	assert.Equal(t, 14, dmg.Dealt())
	assert.Equal(t, 1, dmg.Taken())

	gold := r.Get("GoldWatcher").(*GoldWatcher)
	assert.Equal(t, 8, gold.Earned())
	assert.Equal(t, 3, gold.Spent())

	exp := r.Get("ExplorationWatcher").(*ExplorationWatcher)
	assert.Equal(t, 1, exp.Moves())
	assert.Equal(t, 1, exp.Discovered())

	assert.Contains(t, r.Summary(), Stat{Label: "Enemies defeated", Value: 1})
	assert.Contains(t, r.Summary(), Stat{Label: "Fights fled", Value: 1})
}

func TestRegistryResetDetach(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t))
	r := NewDefaultRegistry()
	r.Attach(bus)
	bus.Publish(&events.ItemUsed{})
	assert.True(t, r.Get("ItemsUsedWatcher").ConditionMet())
	assert.Contains(t, r.Summary(), Stat{Label: "Items used", Value: 1})

	r.Reset()
	assert.False(t, r.Get("ItemsUsedWatcher").ConditionMet())

	r.Detach()
	bus.Publish(&events.ItemUsed{})
	assert.Contains(t, r.Summary(), Stat{Label: "Items used", Value: 0})
}

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()
	r.Add(nil)
	r.Add(NewGoldWatcher())
	r.Add(NewDamageWatcher())
	require.Equal(t, []string{"DamageWatcher", "GoldWatcher"}, r.Keys())

	r.Add(NewGoldWatcher())
	assert.Len(t, r.Keys(), 2)

	r.Remove("GoldWatcher")
	r.Remove("missing")
	assert.Equal(t, []string{"DamageWatcher"}, r.Keys())
	assert.Nil(t, r.Get("GoldWatcher"))
}
