package player

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"go.uber.org/zap/zaptest"
)

var warrior = model.ClassDef{
	Class:       model.ClassWarrior,
	BaseHealth:  100,
	BaseMana:    20,
	BaseAttack:  15,
	BaseDefense: 8,
	StartGold:   50,
}

func newTestManager(t *testing.T) (*Manager, *events.Bus, *[]events.Event) {
	t.Helper()
	bus := events.NewBus(zaptest.NewLogger(t))
	var seen []events.Event
	bus.SubscribeAll(func(evt events.Event) error {
		seen = append(seen, evt)
		return nil
	})
	m := NewManager(bus, zaptest.NewLogger(t))
	m.SetCurrentPlayer(model.NewPlayer("Aria", warrior))
	return m, bus, &seen
}

func countKind(seen []events.Event, kind events.Kind) int {
	n := 0
	for _, evt := range seen {
		if evt.Kind() == kind {
			n++
		}
	}
	return n
}

func TestTakeDamageClampsAtZeroAndReportsDeath(t *testing.T) {
	m, _, seen := newTestManager(t)

	assert.Equal(t, 30, m.TakeDamage(30))
	assert.Equal(t, 70, m.Player().Health)
	assert.False(t, m.IsDead())

	assert.Equal(t, 70, m.TakeDamage(500))
	assert.Equal(t, 0, m.Player().Health)
	assert.True(t, m.IsDead())
	assert.Equal(t, 1, countKind(*seen, events.KindPlayerDied))

	m.TakeDamage(5)
	assert.Equal(t, 1, countKind(*seen, events.KindPlayerDied), "already dead")
}

func TestUpdateHealthRejectsNegative(t *testing.T) {
	m, _, seen := newTestManager(t)

	require.True(t, m.UpdateHealth(-10, "bug"))
	assert.Equal(t, 0, m.Player().Health)
	assert.Equal(t, 1, countKind(*seen, events.KindSystemError))

	m.UpdateHealth(1000, "overheal")
	assert.Equal(t, 100, m.Player().Health)
}

func TestHealAndRevive(t *testing.T) {
	m, _, seen := newTestManager(t)
	m.TakeDamage(40)

	assert.Equal(t, 40, m.Heal(100))
	assert.Equal(t, 100, m.Player().Health)
	assert.Equal(t, 0, m.Heal(10))

	m.TakeDamage(100)
	assert.Equal(t, 0, m.Heal(10), "dead players cannot be healed")

	require.True(t, m.Revive(0))
	assert.Equal(t, 50, m.Player().Health)
	assert.Equal(t, 1, countKind(*seen, events.KindPlayerRevived))
}

func TestAddExperienceLevelsUpOncePerThreshold(t *testing.T) {
	m, _, seen := newTestManager(t)

	// 100 to reach level 2, then 200 to reach level 3.
	gained := m.AddExperience(350, "test")
	p := m.Player()

	assert.Equal(t, 2, gained)
	assert.Equal(t, 3, p.Level)
	assert.Equal(t, 50, p.Experience)
	assert.Equal(t, 300, p.ExperienceToNextLevel)
	assert.Equal(t, 120, p.MaxHealth)
	assert.Equal(t, 120, p.Health)
	assert.Equal(t, 19, p.Attack)
	assert.Equal(t, 10, p.Defense)
	assert.Equal(t, 3, p.SkillPoints)
	assert.Equal(t, 2, countKind(*seen, events.KindLevelUp))
	assert.Equal(t, 1, countKind(*seen, events.KindExperienceGained))
}

func TestAddExperienceIgnoresNonPositive(t *testing.T) {
	m, _, seen := newTestManager(t)

	assert.Equal(t, 0, m.AddExperience(0, "none"))
	assert.Equal(t, 0, m.AddExperience(-5, "none"))
	assert.Equal(t, 0, m.Player().Experience)
	assert.Empty(t, *seen)
}

func TestForcedLevelUpKeepsExperienceNonNegative(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.AddExperience(30, "test")

	require.True(t, m.LevelUp())
	assert.Equal(t, 2, m.Player().Level)
	assert.Equal(t, 0, m.Player().Experience)
}

func TestModifyGold(t *testing.T) {
	m, _, seen := newTestManager(t)

	assert.True(t, m.ModifyGold(25, "loot"))
	assert.Equal(t, 75, m.Player().Gold)

	assert.False(t, m.ModifyGold(-100, "shop"))
	assert.Equal(t, 75, m.Player().Gold)

	assert.True(t, m.ModifyGold(-75, "shop"))
	assert.Equal(t, 0, m.Player().Gold)
	assert.Equal(t, 2, countKind(*seen, events.KindGoldChanged))
}

func TestSkillPointsAndMana(t *testing.T) {
	m, _, _ := newTestManager(t)

	assert.False(t, m.SpendSkillPoints(2))
	assert.True(t, m.AddSkillPoints(2))
	assert.True(t, m.SpendSkillPoints(3))
	assert.Equal(t, 0, m.Player().SkillPoints)

	assert.False(t, m.SpendMana(25))
	assert.True(t, m.SpendMana(15))
	assert.Equal(t, 5, m.Player().Mana)
	assert.Equal(t, 15, m.RestoreMana(100))
	assert.Equal(t, 20, m.Player().Mana)
}

func TestApplyStatDelta(t *testing.T) {
	m, _, seen := newTestManager(t)

	m.ApplyStatDelta(map[string]int{model.StatAttack: 3, model.StatMaxHealth: 20}, "passive")
	p := m.Player()
	assert.Equal(t, 18, p.Attack)
	assert.Equal(t, 120, p.MaxHealth)
	assert.Equal(t, 120, p.Health)

	m.ApplyStatDelta(map[string]int{model.StatAttack: -3, model.StatMaxHealth: -20}, "passive removed")
	assert.Equal(t, 15, p.Attack)
	assert.Equal(t, 100, p.MaxHealth)
	assert.Equal(t, 100, p.Health)
	assert.Equal(t, 2, countKind(*seen, events.KindStatsChanged))
}

func TestNoPlayerIsSafe(t *testing.T) {
	m := NewManager(events.NewBus(nil), nil)

	assert.False(t, m.HasPlayer())
	assert.Equal(t, 0, m.TakeDamage(5))
	assert.False(t, m.ModifyGold(5, "x"))
	assert.Equal(t, 0, m.AddExperience(10, "x"))
	assert.False(t, m.IsDead())
}
