package model

import (
	"fmt"
	"sort"
	"strings"
)

// Class is the fixed set of playable character classes.
type Class string

const (
	ClassWarrior Class = "Warrior"
	ClassMage    Class = "Mage"
	ClassRogue   Class = "Rogue"
	ClassCleric  Class = "Cleric"
)

// Classes lists every playable class in display order.
var Classes = []Class{ClassWarrior, ClassMage, ClassRogue, ClassCleric}

// ParseClass matches a class name case-insensitively.
func ParseClass(s string) (Class, error) {
	for _, c := range Classes {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown class %q", s)
}

// ClassDef holds the base-stat formula for a class.
type ClassDef struct {
	Class       Class  `json:"class" yaml:"class"`
	Description string `json:"description,omitempty" yaml:"description"`
	BaseHealth  int    `json:"base_health" yaml:"base_health"`
	BaseMana    int    `json:"base_mana" yaml:"base_mana"`
	BaseAttack  int    `json:"base_attack" yaml:"base_attack"`
	BaseDefense int    `json:"base_defense" yaml:"base_defense"`
	StartGold   int    `json:"start_gold" yaml:"start_gold"`
	// StartItems are catalog item names granted at character creation.
	StartItems []string `json:"start_items,omitempty" yaml:"start_items"`
}

// ExperienceForLevel is the threshold needed to leave the given level.
func ExperienceForLevel(level int) int {
	return level * 100
}

// Player is the aggregate root for a game session. Each slice of it is owned by
// one manager; nothing else writes to it.
type Player struct {
	Name  string `json:"name"`
	Class Class  `json:"class"`
	Level int    `json:"level"`

	Health    int `json:"health"`
	MaxHealth int `json:"max_health"`
	Mana      int `json:"mana"`
	MaxMana   int `json:"max_mana"`
	Attack    int `json:"attack"`
	Defense   int `json:"defense"`

	Experience            int `json:"experience"`
	ExperienceToNextLevel int `json:"experience_to_next_level"`
	Gold                  int `json:"gold"`

	Inventory      []Item `json:"inventory"`
	EquippedWeapon *Item  `json:"equipped_weapon,omitempty"`
	EquippedArmor  *Item  `json:"equipped_armor,omitempty"`
	ItemCounter    int    `json:"item_counter"`

	SkillPoints    int             `json:"skill_points"`
	LearnedSkills  map[string]bool `json:"learned_skills"`
	PassiveBonuses map[string]int  `json:"passive_bonuses,omitempty"`
	Toggles        map[string]bool `json:"toggles,omitempty"`
}

// NewPlayer builds a level 1 character from a class definition.
func NewPlayer(name string, def ClassDef) *Player {
	return &Player{
		Name:                  name,
		Class:                 def.Class,
		Level:                 1,
		Health:                def.BaseHealth,
		MaxHealth:             def.BaseHealth,
		Mana:                  def.BaseMana,
		MaxMana:               def.BaseMana,
		Attack:                def.BaseAttack,
		Defense:               def.BaseDefense,
		ExperienceToNextLevel: ExperienceForLevel(1),
		Gold:                  def.StartGold,
		Inventory:             make([]Item, 0),
		SkillPoints:           1,
		LearnedSkills:         make(map[string]bool),
		PassiveBonuses:        make(map[string]int),
		Toggles:               make(map[string]bool),
	}
}

// EffectiveAttack includes the equipped weapon bonus.
func (p *Player) EffectiveAttack() int {
	if p.EquippedWeapon != nil {
		return p.Attack + p.EquippedWeapon.Value
	}
	return p.Attack
}

// EffectiveDefense includes the equipped armor bonus.
func (p *Player) EffectiveDefense() int {
	if p.EquippedArmor != nil {
		return p.Defense + p.EquippedArmor.Value
	}
	return p.Defense
}

// Equipped returns the item in a slot.
func (p *Player) Equipped(slot EquipmentSlot) *Item {
	switch slot {
	case SlotWeapon:
		return p.EquippedWeapon
	case SlotArmor:
		return p.EquippedArmor
	}
	return nil
}

// LearnedSkillIDs returns the learned skill ids in sorted order.
func (p *Player) LearnedSkillIDs() []string {
	ids := make([]string, 0, len(p.LearnedSkills))
	for id, ok := range p.LearnedSkills {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy.
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	c := *p
	c.Inventory = CloneItems(p.Inventory)
	if p.EquippedWeapon != nil {
		w := *p.EquippedWeapon
		c.EquippedWeapon = &w
	}
	if p.EquippedArmor != nil {
		a := *p.EquippedArmor
		c.EquippedArmor = &a
	}
	c.LearnedSkills = make(map[string]bool, len(p.LearnedSkills))
	for k, v := range p.LearnedSkills {
		c.LearnedSkills[k] = v
	}
	c.PassiveBonuses = make(map[string]int, len(p.PassiveBonuses))
	for k, v := range p.PassiveBonuses {
		c.PassiveBonuses[k] = v
	}
	c.Toggles = make(map[string]bool, len(p.Toggles))
	for k, v := range p.Toggles {
		c.Toggles[k] = v
	}
	return &c
}
