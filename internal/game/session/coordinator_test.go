package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/inventory"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"github.com/wayfarer-rpg/wayfarer/internal/game/world"
)

func TestPickUpIsAtomicWhenFull(t *testing.T) {
	h := newHarness(t, nil, nil)
	require.NoError(t, h.game.NewGame("Aria", "warrior"))
	c := h.game.Coordinator()

	filler, ok := h.game.Catalog().Item("goblin ear")
	require.True(t, ok)
	for !h.game.Inventory().IsFull() {
		require.NoError(t, h.game.Inventory().AddItem(filler))
	}

	_, err := c.PickUp("anvil")
	assert.ErrorIs(t, err, world.ErrItemNotHere, "a missing item is reported before capacity")
	res := h.run(t, "take anvil")
	assert.False(t, res.Success)
	assert.NotContains(t, res.Message, "full")

	_, err = c.PickUp("torch")
	assert.ErrorIs(t, err, inventory.ErrInventoryFull)
	village := h.game.World().Current()
	require.Len(t, village.Items, 1)
	assert.Equal(t, "Torch", village.Items[0].Name)

	_, err = c.Drop("goblin ear")
	require.NoError(t, err)
	it, err := c.PickUp("torch")
	require.NoError(t, err)
	assert.Equal(t, "Torch", it.Name)
	assert.Len(t, h.game.World().Current().Items, 1, "the dropped ear stays behind")

	_, err = c.PickUp("anvil")
	assert.ErrorIs(t, err, world.ErrItemNotHere)
	_, err = c.Drop("anvil")
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
}

func TestTravelRefusedInCombat(t *testing.T) {
	h := newHarness(t, nil, nil)
	require.NoError(t, h.game.NewGame("Aria", "warrior"))
	c := h.game.Coordinator()

	tr, err := c.Travel("north")
	require.NoError(t, err)
	assert.False(t, tr.Combat)
	assert.Equal(t, "forest", tr.Move.To)

	goblin, ok := h.game.World().FindEnemy("goblin")
	require.True(t, ok)
	require.NoError(t, h.game.Combat().Start(goblin, "forest", false))

	_, err = c.Travel("south")
	assert.ErrorIs(t, err, ErrInCombat)
	assert.Equal(t, "forest", h.game.World().CurrentKey())
}

func TestValidateRepairsInvariants(t *testing.T) {
	h := newHarness(t, nil, nil)
	require.NoError(t, h.game.NewGame("Aria", "warrior"))
	c := h.game.Coordinator()

	assert.Empty(t, c.Validate())

	p := h.game.Players().Player()
	p.Health = 250
	p.Gold = -5
	p.Experience = 120
	ghost := model.Item{Name: "Ghost Blade", Type: model.ItemWeapon, Value: 99, Acquired: 42}
	p.EquippedWeapon = &ghost
	forest, _ := h.game.World().Location("forest")
	forest.Exits["up"] = "sky"

	before := h.count(events.KindSystemError)
	issues := c.Validate()
	assert.Len(t, issues, 5)
	assert.Equal(t, before+5, h.count(events.KindSystemError))

	assert.Equal(t, 2, p.Level, "experience at the threshold levels up")
	assert.Equal(t, p.MaxHealth, p.Health)
	assert.Equal(t, 0, p.Gold)
	assert.Nil(t, p.EquippedWeapon)

	assert.Len(t, c.Validate(), 1, "dangling exits cannot be repaired")
}
