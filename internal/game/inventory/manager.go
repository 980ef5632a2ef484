// Package inventory owns the player's items and equipment slots.
package inventory

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"github.com/wayfarer-rpg/wayfarer/internal/game/player"
	"go.uber.org/zap"
)

// DefaultCapacity is used when no capacity is configured.
const DefaultCapacity = 20

var (
	ErrNoPlayer        = errors.New("no active player")
	ErrInventoryFull   = errors.New("inventory is full")
	ErrItemNotFound    = errors.New("item not found")
	ErrNotUsable       = errors.New("item cannot be used")
	ErrNotEquippable   = errors.New("item cannot be equipped")
	ErrNothingEquipped = errors.New("nothing equipped in that slot")
	ErrCancelled       = errors.New("action cancelled")
	ErrUnknownSortKey  = errors.New("unknown sort key")
)

// SortKey selects an inventory ordering.
type SortKey string

const (
	SortByName     SortKey = "name"
	SortByType     SortKey = "type"
	SortByValue    SortKey = "value"
	SortByQuantity SortKey = "quantity"
	SortByRecency  SortKey = "recency"
)

// UseResult describes what using an item did.
type UseResult struct {
	Item    model.Item
	Effect  string
	Amount  int
	Message string
}

// Manager is the single writer of the inventory and equipment slots.
type Manager struct {
	bus      *events.Bus
	logger   *zap.Logger
	players  *player.Manager
	capacity int
}

// NewManager creates an inventory manager. A non-positive capacity means
// DefaultCapacity.
func NewManager(bus *events.Bus, players *player.Manager, capacity int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		bus:      bus,
		logger:   logger.Named("inventory"),
		players:  players,
		capacity: capacity,
	}
}

func (m *Manager) Name() string      { return "inventory" }
func (m *Manager) Initialize() error { return nil }
func (m *Manager) Reset()            {}

// Capacity returns the maximum number of items held.
func (m *Manager) Capacity() int { return m.capacity }

// Size returns the number of items held.
func (m *Manager) Size() int {
	if p := m.players.Player(); p != nil {
		return len(p.Inventory)
	}
	return 0
}

// IsFull reports whether another item would exceed capacity.
func (m *Manager) IsFull() bool { return m.Size() >= m.capacity }

// Items returns a copy of the inventory in its current order.
func (m *Manager) Items() []model.Item {
	if p := m.players.Player(); p != nil {
		return model.CloneItems(p.Inventory)
	}
	return nil
}

// AddItem appends an item. A full inventory rejects it without mutation.
func (m *Manager) AddItem(item model.Item) error {
	p := m.players.Player()
	if p == nil {
		return ErrNoPlayer
	}
	if len(p.Inventory) >= m.capacity {
		return fmt.Errorf("add %s: %w", item.Name, ErrInventoryFull)
	}
	p.ItemCounter++
	item.Acquired = p.ItemCounter
	p.Inventory = append(p.Inventory, item)
	m.logger.Debug("item added", zap.String("item", item.Name), zap.Int("size", len(p.Inventory)))
	m.bus.Publish(&events.ItemAdded{Item: item})
	return nil
}

// Remove removes the first item with exactly this name. It reports false, with
// no mutation, when no such item is held.
func (m *Manager) Remove(item model.Item) bool {
	p := m.players.Player()
	if p == nil {
		return false
	}
	for idx, it := range p.Inventory {
		if it.Name == item.Name {
			m.removeAt(p, idx, "removed")
			return true
		}
	}
	return false
}

// RemoveByName removes the first item whose name contains query.
func (m *Manager) RemoveByName(query string) (model.Item, error) {
	return m.take(query, "removed")
}

// Take removes the first match and reports why; the coordinator uses it for drops.
func (m *Manager) Take(query, reason string) (model.Item, error) {
	return m.take(query, reason)
}

func (m *Manager) take(query, reason string) (model.Item, error) {
	p := m.players.Player()
	if p == nil {
		return model.Item{}, ErrNoPlayer
	}
	idx := model.FindItem(p.Inventory, query)
	if idx < 0 {
		return model.Item{}, fmt.Errorf("%q: %w", query, ErrItemNotFound)
	}
	return m.removeAt(p, idx, reason), nil
}

func (m *Manager) removeAt(p *model.Player, idx int, reason string) model.Item {
	item := p.Inventory[idx]
	p.Inventory = append(p.Inventory[:idx:idx], p.Inventory[idx+1:]...)
	if slot, ok := item.Slot(); ok {
		if eq := p.Equipped(slot); eq != nil && eq.Acquired == item.Acquired && eq.Name == item.Name {
			m.clearSlot(p, slot)
		}
	}
	m.bus.Publish(&events.ItemRemoved{Item: item, Reason: reason})
	return item
}

// UseItem applies the first item matching query. Potions heal and are always
// consumed; weapons are equipped; anything else is refused without mutation.
func (m *Manager) UseItem(query string) (UseResult, error) {
	p := m.players.Player()
	if p == nil {
		return UseResult{}, ErrNoPlayer
	}
	idx := model.FindItem(p.Inventory, query)
	if idx < 0 {
		return UseResult{}, fmt.Errorf("%q: %w", query, ErrItemNotFound)
	}
	item := p.Inventory[idx]

	switch item.Type {
	case model.ItemPotion, model.ItemWeapon:
	default:
		return UseResult{Item: item}, fmt.Errorf("%s: %w", item.Name, ErrNotUsable)
	}

	using := &events.ItemUsing{Item: item}
	m.bus.Publish(using)
	if using.Cancelled() {
		m.logger.Debug("item use cancelled", zap.String("item", item.Name))
		return UseResult{Item: item}, fmt.Errorf("use %s: %w", item.Name, ErrCancelled)
	}

	var res UseResult
	switch item.Type {
	case model.ItemPotion:
		healed := m.players.Heal(item.Value)
		m.removeAt(p, idx, "consumed")
		res = UseResult{
			Item:    item,
			Effect:  "heal",
			Amount:  healed,
			Message: fmt.Sprintf("You drink the %s and recover %d health.", item.Name, healed),
		}
	case model.ItemWeapon:
		if _, err := m.Equip(item.Name); err != nil {
			return UseResult{Item: item}, err
		}
		res = UseResult{
			Item:    item,
			Effect:  "equip",
			Amount:  item.Value,
			Message: fmt.Sprintf("You equip the %s.", item.Name),
		}
	}
	m.bus.Publish(&events.ItemUsed{Item: item, Effect: res.Effect, Amount: res.Amount})
	return res, nil
}

// Equip places the first matching weapon or armor in its slot and returns the
// item it replaced, if any.
func (m *Manager) Equip(query string) (*model.Item, error) {
	p := m.players.Player()
	if p == nil {
		return nil, ErrNoPlayer
	}
	idx := model.FindItem(p.Inventory, query)
	if idx < 0 {
		return nil, fmt.Errorf("%q: %w", query, ErrItemNotFound)
	}
	item := p.Inventory[idx]
	slot, ok := item.Slot()
	if !ok {
		return nil, fmt.Errorf("%s: %w", item.Name, ErrNotEquippable)
	}

	var previous *model.Item
	if cur := p.Equipped(slot); cur != nil {
		prev := *cur
		previous = &prev
	}
	equipped := item
	switch slot {
	case model.SlotWeapon:
		p.EquippedWeapon = &equipped
	case model.SlotArmor:
		p.EquippedArmor = &equipped
	}
	m.logger.Debug("item equipped", zap.String("item", item.Name), zap.String("slot", string(slot)))
	m.bus.Publish(&events.ItemEquipped{Item: item, Slot: slot, Previous: previous})
	return previous, nil
}

// Unequip empties a slot and returns what was in it.
func (m *Manager) Unequip(slot model.EquipmentSlot) (model.Item, error) {
	p := m.players.Player()
	if p == nil {
		return model.Item{}, ErrNoPlayer
	}
	cur := p.Equipped(slot)
	if cur == nil {
		return model.Item{}, fmt.Errorf("%s: %w", slot, ErrNothingEquipped)
	}
	item := *cur
	m.clearSlot(p, slot)
	return item, nil
}

func (m *Manager) clearSlot(p *model.Player, slot model.EquipmentSlot) {
	cur := p.Equipped(slot)
	if cur == nil {
		return
	}
	item := *cur
	switch slot {
	case model.SlotWeapon:
		p.EquippedWeapon = nil
	case model.SlotArmor:
		p.EquippedArmor = nil
	}
	m.bus.Publish(&events.ItemUnequipped{Item: item, Slot: slot})
}

// HasItem reports whether any item matches query.
func (m *Manager) HasItem(query string) bool {
	_, ok := m.FindItem(query)
	return ok
}

// FindItem returns the first item matching query.
func (m *Manager) FindItem(query string) (model.Item, bool) {
	p := m.players.Player()
	if p == nil {
		return model.Item{}, false
	}
	if idx := model.FindItem(p.Inventory, query); idx >= 0 {
		return p.Inventory[idx], true
	}
	return model.Item{}, false
}

// CountItem counts items whose name equals name, ignoring case.
func (m *Manager) CountItem(name string) int {
	p := m.players.Player()
	if p == nil {
		return 0
	}
	n := 0
	for _, it := range p.Inventory {
		if strings.EqualFold(it.Name, name) {
			n++
		}
	}
	return n
}

// ItemsByType lists items of one type in inventory order.
func (m *Manager) ItemsByType(t model.ItemType) []model.Item {
	p := m.players.Player()
	if p == nil {
		return nil
	}
	var out []model.Item
	for _, it := range p.Inventory {
		if it.Type == t {
			out = append(out, it)
		}
	}
	return out
}

// Sort reorders the inventory in place. Ties keep their previous order.
func (m *Manager) Sort(by SortKey) error {
	p := m.players.Player()
	if p == nil {
		return ErrNoPlayer
	}
	inv := p.Inventory
	var less func(a, b model.Item) bool
	switch by {
	case SortByName:
		less = func(a, b model.Item) bool { return strings.ToLower(a.Name) < strings.ToLower(b.Name) }
	case SortByType:
		less = func(a, b model.Item) bool { return a.Type < b.Type }
	case SortByValue:
		less = func(a, b model.Item) bool { return a.Price > b.Price }
	case SortByQuantity:
		counts := make(map[string]int, len(inv))
		for _, it := range inv {
			counts[strings.ToLower(it.Name)]++
		}
		less = func(a, b model.Item) bool {
			ca, cb := counts[strings.ToLower(a.Name)], counts[strings.ToLower(b.Name)]
			if ca != cb {
				return ca > cb
			}
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	case SortByRecency:
		less = func(a, b model.Item) bool { return a.Acquired > b.Acquired }
	default:
		return fmt.Errorf("%q: %w", by, ErrUnknownSortKey)
	}
	sort.SliceStable(inv, func(i, j int) bool { return less(inv[i], inv[j]) })
	return nil
}

// Clear empties the inventory and both slots. It reports whether anything was
// removed; clearing an empty inventory publishes nothing.
func (m *Manager) Clear() bool {
	p := m.players.Player()
	if p == nil || (len(p.Inventory) == 0 && p.EquippedWeapon == nil && p.EquippedArmor == nil) {
		return false
	}
	count := len(p.Inventory)
	m.clearSlot(p, model.SlotWeapon)
	m.clearSlot(p, model.SlotArmor)
	p.Inventory = make([]model.Item, 0)
	m.logger.Info("inventory cleared", zap.Int("count", count))
	m.bus.Publish(&events.InventoryCleared{Count: count})
	return true
}

// TotalValue sums the price of every held item.
func (m *Manager) TotalValue() int {
	p := m.players.Player()
	if p == nil {
		return 0
	}
	total := 0
	for _, it := range p.Inventory {
		total += it.Price
	}
	return total
}
