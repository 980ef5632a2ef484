package model

import (
	"fmt"
	"strings"
	"time"
)

// SkillType distinguishes invokable skills from standing bonuses.
type SkillType string

const (
	SkillActive  SkillType = "ACTIVE"
	SkillPassive SkillType = "PASSIVE"
	SkillToggle  SkillType = "TOGGLE"
)

// ParseSkillType converts a catalog string into a SkillType.
func ParseSkillType(s string) (SkillType, error) {
	switch SkillType(strings.ToUpper(strings.TrimSpace(s))) {
	case SkillActive:
		return SkillActive, nil
	case SkillPassive:
		return SkillPassive, nil
	case SkillToggle:
		return SkillToggle, nil
	}
	return "", fmt.Errorf("unknown skill type %q", s)
}

// Stat names understood by StatBonuses.
const (
	StatAttack    = "attack"
	StatDefense   = "defense"
	StatMaxHealth = "max_health"
	StatMaxMana   = "max_mana"
)

// Skill is a read-only catalog entry shared by every player.
type Skill struct {
	ID            string         `json:"id" yaml:"id"`
	Name          string         `json:"name" yaml:"name"`
	Description   string         `json:"description,omitempty" yaml:"description"`
	Category      string         `json:"category" yaml:"category"`
	Type          SkillType      `json:"type" yaml:"type"`
	RequiredClass Class          `json:"required_class,omitempty" yaml:"required_class"`
	RequiredLevel int            `json:"required_level" yaml:"required_level"`
	Cost          int            `json:"cost" yaml:"cost"`
	Tier          int            `json:"tier" yaml:"tier"`
	Prerequisites []string       `json:"prerequisites,omitempty" yaml:"prerequisites"`
	StatBonuses   map[string]int `json:"stat_bonuses,omitempty" yaml:"stat_bonuses"`
	Cooldown      int            `json:"cooldown" yaml:"cooldown"`
	ManaCost      int            `json:"mana_cost" yaml:"mana_cost"`
	Power         int            `json:"power,omitempty" yaml:"power"`
}

// AvailableTo reports whether a class may learn the skill. An empty
// RequiredClass means any class.
func (s Skill) AvailableTo(c Class) bool {
	return s.RequiredClass == "" || s.RequiredClass == c
}

// SaveVersion is the current GameSave layout.
const SaveVersion = 1

// GameSave is a full snapshot of a session: player, position and the whole world
// graph, since items and enemies deplete.
type GameSave struct {
	Version         int                  `json:"version"`
	ID              string               `json:"id"`
	Player          *Player              `json:"player"`
	CurrentLocation string               `json:"current_location"`
	Locations       map[string]*Location `json:"locations"`
	Timestamp       time.Time            `json:"timestamp"`
	PlayTime        time.Duration        `json:"play_time"`
}
