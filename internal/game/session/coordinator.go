package session

import (
	"fmt"

	"github.com/wayfarer-rpg/wayfarer/internal/game/combat"
	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/inventory"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"github.com/wayfarer-rpg/wayfarer/internal/game/player"
	"github.com/wayfarer-rpg/wayfarer/internal/game/world"
	"go.uber.org/zap"
)

// TravelResult describes a move and whether it ended in an ambush.
type TravelResult struct {
	Move   world.MoveResult
	Combat bool
	Enemy  *model.Enemy
}

// Coordinator sequences operations that touch more than one manager and checks
// the invariants between them.
type Coordinator struct {
	bus       *events.Bus
	logger    *zap.Logger
	players   *player.Manager
	inventory *inventory.Manager
	world     *world.Manager
	combat    *combat.Manager
}

// NewCoordinator wires a coordinator over existing managers.
func NewCoordinator(
	bus *events.Bus,
	players *player.Manager,
	inv *inventory.Manager,
	w *world.Manager,
	c *combat.Manager,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		bus:       bus,
		logger:    logger.Named("coordinator"),
		players:   players,
		inventory: inv,
		world:     w,
		combat:    c,
	}
}

// Travel moves in direction and, when the move rolls a random encounter,
// starts the fight.
func (c *Coordinator) Travel(direction string) (TravelResult, error) {
	if c.combat.InCombat() {
		return TravelResult{}, ErrInCombat
	}
	if c.players.IsDead() {
		return TravelResult{}, fmt.Errorf("player is down: %w", combat.ErrInvalidAction)
	}
	mv, err := c.world.Move(direction)
	if err != nil {
		return TravelResult{}, err
	}
	res := TravelResult{Move: mv}
	if mv.Encounter == nil {
		return res, nil
	}
	enemy := mv.Encounter.Clone()
	if err := c.combat.Start(enemy, mv.To, true); err != nil {
		c.logger.Warn("encounter could not start", zap.String("enemy", enemy.Name), zap.Error(err))
		return res, nil
	}
	res.Combat = true
	res.Enemy = &enemy
	return res, nil
}

// PickUp moves an item from the current location into the inventory. Either
// both sides change or neither does.
func (c *Coordinator) PickUp(query string) (model.Item, error) {
	if !c.players.HasPlayer() {
		return model.Item{}, inventory.ErrNoPlayer
	}
	loc := c.world.Current()
	if loc == nil {
		return model.Item{}, world.ErrNoWorld
	}
	if model.FindItem(loc.Items, query) < 0 {
		return model.Item{}, fmt.Errorf("%q: %w", query, world.ErrItemNotHere)
	}
	if c.inventory.IsFull() {
		return model.Item{}, inventory.ErrInventoryFull
	}
	item, err := c.world.TakeItem(query)
	if err != nil {
		return model.Item{}, err
	}
	if err := c.inventory.AddItem(item); err != nil {
		if perr := c.world.PlaceItem(item); perr != nil {
			c.logger.Error("item lost while rolling back pick up", zap.String("item", item.Name), zap.Error(perr))
		}
		return model.Item{}, err
	}
	return item, nil
}

// Drop moves an inventory item to the current location.
func (c *Coordinator) Drop(query string) (model.Item, error) {
	if c.world.Current() == nil {
		return model.Item{}, world.ErrNoWorld
	}
	item, err := c.inventory.Take(query, "dropped")
	if err != nil {
		return model.Item{}, err
	}
	if err := c.world.PlaceItem(item); err != nil {
		if aerr := c.inventory.AddItem(item); aerr != nil {
			c.logger.Error("item lost while rolling back drop", zap.String("item", item.Name), zap.Error(aerr))
		}
		return model.Item{}, err
	}
	return item, nil
}

// Validate checks the invariants that span managers, repairs what it safely
// can and reports every problem found as a system error.
func (c *Coordinator) Validate() []string {
	var issues []string
	report := func(sev events.Severity, format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		issues = append(issues, msg)
		c.logger.Warn("invariant violated", zap.String("detail", msg))
		c.bus.Publish(&events.SystemError{Component: "coordinator", Message: msg, Severity: sev})
	}

	p := c.players.Player()
	if p == nil {
		return nil
	}

	if p.MaxHealth < 1 {
		report(events.SeverityError, "max health %d below 1", p.MaxHealth)
		c.players.ApplyStatDelta(map[string]int{model.StatMaxHealth: 1 - p.MaxHealth}, "repair")
	}
	if p.Health < 0 || p.Health > p.MaxHealth {
		report(events.SeverityError, "health %d outside [0, %d]", p.Health, p.MaxHealth)
		c.players.UpdateHealth(min(max(p.Health, 0), p.MaxHealth), "repair")
	}
	if p.Mana < 0 || p.Mana > p.MaxMana {
		report(events.SeverityWarning, "mana %d outside [0, %d]", p.Mana, p.MaxMana)
		if p.Mana < 0 {
			c.players.RestoreMana(-p.Mana)
		} else {
			c.players.SpendMana(p.Mana - p.MaxMana)
		}
	}
	if p.Experience >= p.ExperienceToNextLevel {
		report(events.SeverityWarning, "experience %d at or above threshold %d", p.Experience, p.ExperienceToNextLevel)
		for c.players.CanLevelUp() {
			c.players.LevelUp()
		}
	}
	if p.Gold < 0 {
		report(events.SeverityError, "negative gold %d", p.Gold)
		c.players.ModifyGold(-p.Gold, "repair")
	}
	if p.SkillPoints < 0 {
		report(events.SeverityError, "negative skill points %d", p.SkillPoints)
		c.players.AddSkillPoints(-p.SkillPoints)
	}
	for _, slot := range []model.EquipmentSlot{model.SlotWeapon, model.SlotArmor} {
		eq := p.Equipped(slot)
		if eq == nil || inInventory(p.Inventory, *eq) {
			continue
		}
		report(events.SeverityWarning, "equipped %s %q is not in the inventory", slot, eq.Name)
		if _, err := c.inventory.Unequip(slot); err != nil {
			c.logger.Error("repair unequip failed", zap.Error(err))
		}
	}
	if n := c.inventory.Size(); n > c.inventory.Capacity() {
		report(events.SeverityWarning, "inventory holds %d items, capacity %d", n, c.inventory.Capacity())
	}

	if c.world.Current() == nil {
		report(events.SeverityCritical, "current location %q is not loaded", c.world.CurrentKey())
		if start := c.world.StartKey(); start != "" {
			if _, err := c.world.MoveTo(start); err != nil {
				c.logger.Error("repair relocation failed", zap.Error(err))
			}
		}
	}
	for _, key := range c.world.Keys() {
		loc, _ := c.world.Location(key)
		for _, dir := range loc.Directions() {
			if dest := loc.Exits[dir]; !c.world.HasLocation(dest) {
				report(events.SeverityWarning, "exit %s of %s leads to unknown location %q", dir, key, dest)
			}
		}
	}
	return issues
}

func inInventory(items []model.Item, eq model.Item) bool {
	for _, it := range items {
		if it.Name == eq.Name && it.Acquired == eq.Acquired {
			return true
		}
	}
	return false
}
