package model

import (
	"fmt"
	"strings"
)

// ItemType classifies what an item does when used or equipped.
type ItemType string

const (
	ItemWeapon     ItemType = "WEAPON"
	ItemArmor      ItemType = "ARMOR"
	ItemPotion     ItemType = "POTION"
	ItemConsumable ItemType = "CONSUMABLE"
	ItemMisc       ItemType = "MISC"
	ItemKey        ItemType = "KEY"
	ItemQuest      ItemType = "QUEST"
)

var itemTypes = map[string]ItemType{
	"WEAPON":     ItemWeapon,
	"ARMOR":      ItemArmor,
	"POTION":     ItemPotion,
	"CONSUMABLE": ItemConsumable,
	"MISC":       ItemMisc,
	"KEY":        ItemKey,
	"QUEST":      ItemQuest,
}

// ParseItemType converts a catalog string into an ItemType.
func ParseItemType(s string) (ItemType, error) {
	if t, ok := itemTypes[strings.ToUpper(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", fmt.Errorf("unknown item type %q", s)
}

// EquipmentSlot names the single slot an equippable item occupies.
type EquipmentSlot string

const (
	SlotWeapon EquipmentSlot = "weapon"
	SlotArmor  EquipmentSlot = "armor"
)

// Item is an immutable value object. Value is the effect magnitude (heal amount,
// attack bonus, armor bonus); Price is what it is worth.
type Item struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Type        ItemType `json:"type" yaml:"type"`
	Value       int      `json:"value" yaml:"value"`
	Price       int      `json:"price" yaml:"price"`
	Stackable   bool     `json:"stackable,omitempty" yaml:"stackable"`

	// DropChance only matters for loot entries. Zero or >= 1 means always.
	DropChance float64 `json:"drop_chance,omitempty" yaml:"drop_chance"`
	// Acquired is stamped by the inventory when the item enters it.
	Acquired int `json:"acquired,omitempty" yaml:"-"`
}

// Slot returns the equipment slot for the item, if it has one.
func (i Item) Slot() (EquipmentSlot, bool) {
	switch i.Type {
	case ItemWeapon:
		return SlotWeapon, true
	case ItemArmor:
		return SlotArmor, true
	}
	return "", false
}

// Matches reports whether query is a case-insensitive substring of the name.
func (i Item) Matches(query string) bool {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return false
	}
	return strings.Contains(strings.ToLower(i.Name), query)
}

// FindItem returns the index of the first item matching query, or -1.
func FindItem(items []Item, query string) int {
	for idx, it := range items {
		if it.Matches(query) {
			return idx
		}
	}
	return -1
}

// CloneItems copies a slice of items. An empty slice becomes nil, which is
// also what a decoded save holds.
func CloneItems(items []Item) []Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
