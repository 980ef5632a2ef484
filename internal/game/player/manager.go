// Package player owns health, experience, gold, level and skill-point mutation
// for the active character.
package player

import (
	"fmt"

	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"go.uber.org/zap"
)

// Level-up increments.
const (
	HealthPerLevel  = 10
	AttackPerLevel  = 2
	DefensePerLevel = 1
	ManaPerLevel    = 5
)

// Manager is the single writer of the player's vital stats.
type Manager struct {
	bus    *events.Bus
	logger *zap.Logger
	player *model.Player
}

// NewManager creates a player manager publishing on bus.
func NewManager(bus *events.Bus, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{bus: bus, logger: logger.Named("player")}
}

// Name identifies the manager in logs.
func (m *Manager) Name() string { return "player" }

// Initialize has nothing to subscribe to; the player manager only publishes.
func (m *Manager) Initialize() error { return nil }

// Reset drops the current player.
func (m *Manager) Reset() { m.player = nil }

// SetCurrentPlayer installs the character for this session.
func (m *Manager) SetCurrentPlayer(p *model.Player) {
	if p != nil {
		if p.LearnedSkills == nil {
			p.LearnedSkills = make(map[string]bool)
		}
		if p.PassiveBonuses == nil {
			p.PassiveBonuses = make(map[string]int)
		}
		if p.Toggles == nil {
			p.Toggles = make(map[string]bool)
		}
		if p.Inventory == nil {
			p.Inventory = make([]model.Item, 0)
		}
		if p.ExperienceToNextLevel <= 0 {
			p.ExperienceToNextLevel = model.ExperienceForLevel(max(p.Level, 1))
		}
	}
	m.player = p
	if p != nil {
		m.logger.Info("player set",
			zap.String("name", p.Name),
			zap.String("class", string(p.Class)),
			zap.Int("level", p.Level),
		)
	}
}

// Player returns the active character; callers outside the owning managers must
// treat it as read-only.
func (m *Manager) Player() *model.Player { return m.player }

// HasPlayer reports whether a character is loaded.
func (m *Manager) HasPlayer() bool { return m.player != nil }

// UpdateHealth sets health to newHealth clamped to [0, MaxHealth]. A negative
// request is an invariant violation: it is clamped and reported.
func (m *Manager) UpdateHealth(newHealth int, reason string) bool {
	p := m.player
	if p == nil {
		return false
	}
	if newHealth < 0 {
		m.violation(fmt.Sprintf("negative health %d requested (%s)", newHealth, reason))
		newHealth = 0
	}
	if newHealth > p.MaxHealth {
		newHealth = p.MaxHealth
	}
	old := p.Health
	if old == newHealth {
		return true
	}
	p.Health = newHealth
	m.bus.Publish(&events.HealthChanged{Old: old, New: newHealth, Max: p.MaxHealth, Reason: reason})
	if newHealth == 0 && old > 0 {
		m.logger.Info("player died", zap.String("cause", reason))
		m.bus.Publish(&events.PlayerDied{Cause: reason})
	}
	return true
}

// Heal restores up to amount health and returns how much was restored. Dead
// players must be revived instead.
func (m *Manager) Heal(amount int) int {
	p := m.player
	if p == nil || amount <= 0 || p.Health <= 0 {
		return 0
	}
	target := min(p.Health+amount, p.MaxHealth)
	healed := target - p.Health
	if healed > 0 {
		m.UpdateHealth(target, "heal")
	}
	return healed
}

// TakeDamage lowers health, never below zero, and returns the damage taken.
func (m *Manager) TakeDamage(damage int) int {
	p := m.player
	if p == nil {
		return 0
	}
	if damage < 0 {
		m.violation(fmt.Sprintf("negative damage %d", damage))
		return 0
	}
	target := max(0, p.Health-damage)
	taken := p.Health - target
	m.UpdateHealth(target, "damage")
	return taken
}

// IsDead reports whether the player has no health left.
func (m *Manager) IsDead() bool {
	return m.player != nil && m.player.Health <= 0
}

// Revive sets health to the given amount; zero or less means half of MaxHealth.
func (m *Manager) Revive(health int) bool {
	p := m.player
	if p == nil {
		return false
	}
	if health <= 0 {
		health = max(1, p.MaxHealth/2)
	}
	health = min(health, p.MaxHealth)
	old := p.Health
	p.Health = health
	if old != health {
		m.bus.Publish(&events.HealthChanged{Old: old, New: health, Max: p.MaxHealth, Reason: "revive"})
	}
	m.bus.Publish(&events.PlayerRevived{Health: health})
	return true
}

// AddExperience grants experience and levels up once per threshold crossed.
// It returns the number of levels gained.
func (m *Manager) AddExperience(amount int, source string) int {
	p := m.player
	if p == nil || amount <= 0 {
		return 0
	}
	p.Experience += amount
	m.bus.Publish(&events.ExperienceGained{
		Amount: amount,
		Total:  p.Experience,
		ToNext: p.ExperienceToNextLevel,
		Source: source,
	})

	gained := 0
	for m.CanLevelUp() {
		m.LevelUp()
		gained++
	}
	return gained
}

// CanLevelUp reports whether experience has reached the threshold.
func (m *Manager) CanLevelUp() bool {
	p := m.player
	return p != nil && p.ExperienceToNextLevel > 0 && p.Experience >= p.ExperienceToNextLevel
}

// LevelUp advances one level. Surplus experience carries over; a forced level-up
// below the threshold leaves experience at zero.
func (m *Manager) LevelUp() bool {
	p := m.player
	if p == nil {
		return false
	}
	oldLevel := p.Level
	p.Experience = max(0, p.Experience-p.ExperienceToNextLevel)
	p.Level++
	p.ExperienceToNextLevel = model.ExperienceForLevel(p.Level)
	p.MaxHealth += HealthPerLevel
	p.Health = p.MaxHealth
	p.MaxMana += ManaPerLevel
	p.Mana = p.MaxMana
	p.Attack += AttackPerLevel
	p.Defense += DefensePerLevel
	oldPoints := p.SkillPoints
	p.SkillPoints++

	m.logger.Info("level up",
		zap.Int("level", p.Level),
		zap.Int("experience", p.Experience),
		zap.Int("next", p.ExperienceToNextLevel),
	)
	m.bus.Publish(m.statsEvent("level up"))
	m.bus.Publish(&events.SkillPointsChanged{Old: oldPoints, New: p.SkillPoints})
	m.bus.Publish(&events.LevelUp{OldLevel: oldLevel, NewLevel: p.Level})
	return true
}

// ModifyGold adds (or with a negative amount, spends) gold. Spending more than
// the player has fails without mutation.
func (m *Manager) ModifyGold(amount int, reason string) bool {
	p := m.player
	if p == nil {
		return false
	}
	if p.Gold+amount < 0 {
		return false
	}
	if amount == 0 {
		return true
	}
	old := p.Gold
	p.Gold += amount
	m.bus.Publish(&events.GoldChanged{Old: old, New: p.Gold, Delta: amount, Reason: reason})
	return true
}

// AddSkillPoints grants skill points.
func (m *Manager) AddSkillPoints(n int) bool {
	p := m.player
	if p == nil || n <= 0 {
		return false
	}
	old := p.SkillPoints
	p.SkillPoints += n
	m.bus.Publish(&events.SkillPointsChanged{Old: old, New: p.SkillPoints})
	return true
}

// SpendSkillPoints deducts n points; it fails without mutation if the player
// has fewer than n.
func (m *Manager) SpendSkillPoints(n int) bool {
	p := m.player
	if p == nil || n < 0 || p.SkillPoints < n {
		return false
	}
	if n == 0 {
		return true
	}
	old := p.SkillPoints
	p.SkillPoints -= n
	m.bus.Publish(&events.SkillPointsChanged{Old: old, New: p.SkillPoints})
	return true
}

// SpendMana deducts mana; it fails without mutation when mana is short.
func (m *Manager) SpendMana(n int) bool {
	p := m.player
	if p == nil || n < 0 || p.Mana < n {
		return false
	}
	if n == 0 {
		return true
	}
	old := p.Mana
	p.Mana -= n
	m.bus.Publish(&events.ManaChanged{Old: old, New: p.Mana, Max: p.MaxMana, Reason: "spend"})
	return true
}

// RestoreMana refills up to n mana and returns how much was restored.
func (m *Manager) RestoreMana(n int) int {
	p := m.player
	if p == nil || n <= 0 {
		return 0
	}
	target := min(p.Mana+n, p.MaxMana)
	restored := target - p.Mana
	if restored > 0 {
		old := p.Mana
		p.Mana = target
		m.bus.Publish(&events.ManaChanged{Old: old, New: p.Mana, Max: p.MaxMana, Reason: "restore"})
	}
	return restored
}

// ApplyStatDelta adds a set of stat deltas (see model.Stat*). Max health and
// max mana never drop below 1 and 0; current values are clamped to them.
func (m *Manager) ApplyStatDelta(delta map[string]int, reason string) {
	p := m.player
	if p == nil || len(delta) == 0 {
		return
	}
	for stat, d := range delta {
		switch stat {
		case model.StatAttack:
			p.Attack += d
		case model.StatDefense:
			p.Defense += d
		case model.StatMaxHealth:
			p.MaxHealth = max(1, p.MaxHealth+d)
			if d > 0 {
				p.Health += d
			}
			p.Health = min(p.Health, p.MaxHealth)
		case model.StatMaxMana:
			p.MaxMana = max(0, p.MaxMana+d)
			if d > 0 {
				p.Mana += d
			}
			p.Mana = min(p.Mana, p.MaxMana)
		default:
			m.logger.Warn("unknown stat in delta", zap.String("stat", stat), zap.String("reason", reason))
		}
	}
	m.bus.Publish(m.statsEvent(reason))
}

func (m *Manager) statsEvent(reason string) *events.StatsChanged {
	p := m.player
	return &events.StatsChanged{
		Level:     p.Level,
		MaxHealth: p.MaxHealth,
		MaxMana:   p.MaxMana,
		Attack:    p.Attack,
		Defense:   p.Defense,
		Reason:    reason,
	}
}

func (m *Manager) violation(msg string) {
	m.logger.Error("invariant violation", zap.String("detail", msg))
	m.bus.Publish(&events.SystemError{Component: m.Name(), Message: msg, Severity: events.SeverityError})
}
