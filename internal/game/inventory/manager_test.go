package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"github.com/wayfarer-rpg/wayfarer/internal/game/player"
	"go.uber.org/zap/zaptest"
)

var (
	potion = model.Item{Name: "Health Potion", Type: model.ItemPotion, Value: 30, Price: 10}
	sword  = model.Item{Name: "Iron Sword", Type: model.ItemWeapon, Value: 5, Price: 40}
	dagger = model.Item{Name: "Rusty Dagger", Type: model.ItemWeapon, Value: 2, Price: 5}
	mail   = model.Item{Name: "Chain Mail", Type: model.ItemArmor, Value: 4, Price: 60}
	rope   = model.Item{Name: "Rope", Type: model.ItemMisc, Price: 1}
)

func newTestInventory(t *testing.T, capacity int) (*Manager, *player.Manager, *events.Bus) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger)
	players := player.NewManager(bus, logger)
	players.SetCurrentPlayer(model.NewPlayer("Aria", model.ClassDef{
		Class:       model.ClassWarrior,
		BaseHealth:  100,
		BaseAttack:  15,
		BaseDefense: 8,
	}))
	return NewManager(bus, players, capacity, logger), players, bus
}

func TestAddItemRespectsCapacity(t *testing.T) {
	inv, _, _ := newTestInventory(t, 2)

	require.NoError(t, inv.AddItem(potion))
	require.NoError(t, inv.AddItem(rope))
	assert.True(t, inv.IsFull())

	err := inv.AddItem(sword)
	assert.ErrorIs(t, err, ErrInventoryFull)
	assert.Equal(t, 2, inv.Size())
	assert.False(t, inv.HasItem("sword"))
}

func TestRemoveMissingItemDoesNotMutate(t *testing.T) {
	inv, _, _ := newTestInventory(t, 0)
	require.NoError(t, inv.AddItem(potion))

	assert.False(t, inv.Remove(sword))
	assert.Equal(t, 1, inv.Size())

	_, err := inv.RemoveByName("axe")
	assert.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, 1, inv.Size())

	assert.True(t, inv.Remove(potion))
	assert.Equal(t, 0, inv.Size())
}

func TestClearTwiceIsNoop(t *testing.T) {
	inv, _, bus := newTestInventory(t, 0)
	cleared := 0
	bus.Subscribe(events.KindInventoryCleared, func(events.Event) error {
		cleared++
		return nil
	})
	require.NoError(t, inv.AddItem(potion))
	require.NoError(t, inv.AddItem(sword))
	_, err := inv.Equip("sword")
	require.NoError(t, err)

	assert.True(t, inv.Clear())
	assert.False(t, inv.Clear())
	assert.Equal(t, 1, cleared)
	assert.Equal(t, 0, inv.Size())
}

func TestUsePotionHealsAndIsAlwaysConsumed(t *testing.T) {
	inv, players, _ := newTestInventory(t, 0)
	require.NoError(t, inv.AddItem(potion))
	require.NoError(t, inv.AddItem(potion))

	players.TakeDamage(10)
	res, err := inv.UseItem("potion")
	require.NoError(t, err)
	assert.Equal(t, 10, res.Amount)
	assert.Equal(t, 100, players.Player().Health)
	assert.Equal(t, 1, inv.CountItem("health potion"))

	res, err = inv.UseItem("POTION")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Amount, "no wasted-potion refusal at full health")
	assert.Equal(t, 0, inv.Size())
}

func TestUseWeaponEquipsAndMiscIsRefused(t *testing.T) {
	inv, players, _ := newTestInventory(t, 0)
	require.NoError(t, inv.AddItem(sword))
	require.NoError(t, inv.AddItem(rope))

	_, err := inv.UseItem("sword")
	require.NoError(t, err)
	p := players.Player()
	require.NotNil(t, p.EquippedWeapon)
	assert.Equal(t, 20, p.EffectiveAttack())
	assert.Equal(t, 2, inv.Size(), "equipping keeps the item in the inventory")

	_, err = inv.UseItem("rope")
	assert.ErrorIs(t, err, ErrNotUsable)
	assert.Equal(t, 2, inv.Size())
}

func TestCancelledUseMutatesNothing(t *testing.T) {
	inv, players, bus := newTestInventory(t, 0)
	require.NoError(t, inv.AddItem(potion))
	players.TakeDamage(50)

	events.On(bus, func(evt *events.ItemUsing) error {
		evt.Cancel()
		return nil
	})

	_, err := inv.UseItem("potion")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, 50, players.Player().Health)
	assert.Equal(t, 1, inv.Size())
}

func TestEquipReturnsPrevious(t *testing.T) {
	inv, players, _ := newTestInventory(t, 0)
	require.NoError(t, inv.AddItem(dagger))
	require.NoError(t, inv.AddItem(sword))
	require.NoError(t, inv.AddItem(mail))

	prev, err := inv.Equip("dagger")
	require.NoError(t, err)
	assert.Nil(t, prev)

	prev, err = inv.Equip("sword")
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "Rusty Dagger", prev.Name)

	_, err = inv.Equip("mail")
	require.NoError(t, err)
	assert.Equal(t, 12, players.Player().EffectiveDefense())

	_, err = inv.Equip("nothing")
	assert.ErrorIs(t, err, ErrItemNotFound)

	item, err := inv.Unequip(model.SlotArmor)
	require.NoError(t, err)
	assert.Equal(t, "Chain Mail", item.Name)
	_, err = inv.Unequip(model.SlotArmor)
	assert.ErrorIs(t, err, ErrNothingEquipped)
}

func TestRemovingEquippedItemUnequips(t *testing.T) {
	inv, players, _ := newTestInventory(t, 0)
	require.NoError(t, inv.AddItem(sword))
	_, err := inv.Equip("sword")
	require.NoError(t, err)

	_, err = inv.RemoveByName("sword")
	require.NoError(t, err)
	assert.Nil(t, players.Player().EquippedWeapon)
}

func TestSortAndQueries(t *testing.T) {
	inv, _, _ := newTestInventory(t, 0)
	for _, it := range []model.Item{rope, sword, potion, mail, potion} {
		require.NoError(t, inv.AddItem(it))
	}

	names := func() []string {
		var out []string
		for _, it := range inv.Items() {
			out = append(out, it.Name)
		}
		return out
	}

	require.NoError(t, inv.Sort(SortByName))
	assert.Equal(t, []string{"Chain Mail", "Health Potion", "Health Potion", "Iron Sword", "Rope"}, names())

	require.NoError(t, inv.Sort(SortByValue))
	assert.Equal(t, "Chain Mail", names()[0])

	require.NoError(t, inv.Sort(SortByQuantity))
	assert.Equal(t, []string{"Health Potion", "Health Potion"}, names()[:2])

	require.NoError(t, inv.Sort(SortByRecency))
	assert.Equal(t, []string{"Health Potion", "Chain Mail", "Health Potion", "Iron Sword", "Rope"}, names())

	assert.ErrorIs(t, inv.Sort("weight"), ErrUnknownSortKey)

	assert.Len(t, inv.ItemsByType(model.ItemPotion), 2)
	assert.Equal(t, 1+40+10+60+10, inv.TotalValue())
}
