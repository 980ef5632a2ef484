package model

import "sort"

// Enemy is a single combat opponent. Every encounter gets its own instance.
type Enemy struct {
	ID               string `json:"id,omitempty" yaml:"-"`
	Name             string `json:"name" yaml:"name"`
	Level            int    `json:"level" yaml:"level"`
	Health           int    `json:"health" yaml:"health"`
	MaxHealth        int    `json:"max_health" yaml:"max_health"`
	Attack           int    `json:"attack" yaml:"attack"`
	Defense          int    `json:"defense" yaml:"defense"`
	ExperienceReward int    `json:"experience_reward" yaml:"experience_reward"`
	GoldReward       int    `json:"gold_reward" yaml:"gold_reward"`
	Loot             []Item `json:"loot,omitempty" yaml:"-"`
	RandomEncounter  bool   `json:"random_encounter,omitempty" yaml:"random_encounter"`
}

// IsDefeated reports whether the enemy has no health left.
func (e *Enemy) IsDefeated() bool {
	return e.Health <= 0
}

// Clone copies the enemy including its loot table.
func (e Enemy) Clone() Enemy {
	e.Loot = CloneItems(e.Loot)
	return e
}

// Location is a node of the world graph. Exits map a direction to a location key
// and need not be symmetric.
type Location struct {
	Key             string            `json:"key"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	Exits           map[string]string `json:"exits"`
	Items           []Item            `json:"items,omitempty"`
	HiddenItems     []Item            `json:"hidden_items,omitempty"`
	Enemies         []Enemy           `json:"enemies,omitempty"`
	NPCs            []string          `json:"npcs,omitempty"`
	Visited         bool              `json:"visited"`
	EncounterChance *float64          `json:"encounter_chance,omitempty"`
}

// Directions returns the exit directions in sorted order.
func (l *Location) Directions() []string {
	dirs := make([]string, 0, len(l.Exits))
	for dir := range l.Exits {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

// Clone returns a deep copy of the location.
func (l *Location) Clone() *Location {
	if l == nil {
		return nil
	}
	c := *l
	c.Exits = make(map[string]string, len(l.Exits))
	for k, v := range l.Exits {
		c.Exits[k] = v
	}
	c.Items = CloneItems(l.Items)
	c.HiddenItems = CloneItems(l.HiddenItems)
	c.Enemies = nil
	if len(l.Enemies) > 0 {
		c.Enemies = make([]Enemy, len(l.Enemies))
		for i, e := range l.Enemies {
			c.Enemies[i] = e.Clone()
		}
	}
	c.NPCs = nil
	if len(l.NPCs) > 0 {
		c.NPCs = append([]string(nil), l.NPCs...)
	}
	if l.EncounterChance != nil {
		p := *l.EncounterChance
		c.EncounterChance = &p
	}
	return &c
}

// CloneLocations deep-copies a location graph.
func CloneLocations(locs map[string]*Location) map[string]*Location {
	out := make(map[string]*Location, len(locs))
	for k, v := range locs {
		out[k] = v.Clone()
	}
	return out
}
