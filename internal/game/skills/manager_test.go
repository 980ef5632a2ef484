package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"github.com/wayfarer-rpg/wayfarer/internal/game/player"
	"go.uber.org/zap/zaptest"
)

var testSkills = []model.Skill{
	{ID: "power_strike", Name: "Power Strike", Category: "combat", Type: model.SkillActive,
		RequiredClass: model.ClassWarrior, RequiredLevel: 1, Cost: 1, Tier: 1, Cooldown: 2, ManaCost: 5, Power: 8},
	{ID: "toughness", Name: "Toughness", Category: "defense", Type: model.SkillPassive,
		RequiredLevel: 1, Cost: 1, Tier: 1, StatBonuses: map[string]int{model.StatMaxHealth: 20, model.StatDefense: 2}},
	{ID: "cleave", Name: "Cleave", Category: "combat", Type: model.SkillActive,
		RequiredClass: model.ClassWarrior, RequiredLevel: 3, Cost: 3, Tier: 2, Prerequisites: []string{"power_strike"}},
	{ID: "berserk", Name: "Berserk", Category: "combat", Type: model.SkillToggle,
		RequiredClass: model.ClassWarrior, RequiredLevel: 1, Cost: 1, Tier: 2, StatBonuses: map[string]int{model.StatAttack: 5, model.StatDefense: -2}},
	{ID: "fireball", Name: "Fireball", Category: "magic", Type: model.SkillActive,
		RequiredClass: model.ClassMage, RequiredLevel: 1, Cost: 1, Tier: 1, ManaCost: 10},
}

func newTestSkills(t *testing.T, points int) (*Manager, *player.Manager, *events.Bus) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	bus := events.NewBus(logger)
	players := player.NewManager(bus, logger)
	p := model.NewPlayer("Aria", model.ClassDef{
		Class:       model.ClassWarrior,
		BaseHealth:  100,
		BaseMana:    20,
		BaseAttack:  15,
		BaseDefense: 8,
	})
	p.SkillPoints = points
	players.SetCurrentPlayer(p)

	m := NewManager(bus, players, logger)
	require.NoError(t, m.LoadCatalog(testSkills))
	require.NoError(t, m.Initialize())
	return m, players, bus
}

func TestLearnInsufficientPoints(t *testing.T) {
	m, players, _ := newTestSkills(t, 2)
	players.Player().Level = 3
	players.Player().LearnedSkills["power_strike"] = true

	err := m.Learn("cleave")
	require.Error(t, err)
	assert.Equal(t, ReasonInsufficientPoints, ReasonOf(err))
	assert.Equal(t, 2, players.Player().SkillPoints)
	assert.False(t, m.Has("cleave"))
}

func TestLearnReasons(t *testing.T) {
	m, players, _ := newTestSkills(t, 10)

	cases := []struct {
		id   string
		want Reason
	}{
		{"nope", ReasonUnknownSkill},
		{"fireball", ReasonClassMismatch},
		{"cleave", ReasonLevelTooLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ReasonOf(m.Learn(tc.id)), tc.id)
	}

	players.Player().Level = 3
	assert.Equal(t, ReasonPrerequisitesUnmet, ReasonOf(m.Learn("cleave")))

	require.NoError(t, m.Learn("power_strike"))
	assert.Equal(t, ReasonAlreadyLearned, ReasonOf(m.Learn("power_strike")))
	require.NoError(t, m.Learn("cleave"))
	assert.Equal(t, 6, players.Player().SkillPoints)
	assert.Equal(t, 4, m.SpentPoints())
}

func TestLearnPassiveAppliesBonusOnce(t *testing.T) {
	m, players, _ := newTestSkills(t, 1)
	p := players.Player()

	require.NoError(t, m.Learn("toughness"))
	assert.Equal(t, 120, p.MaxHealth)
	assert.Equal(t, 10, p.Defense)

	m.ApplyPassiveBonuses()
	assert.Equal(t, 120, p.MaxHealth, "apply is idempotent")
	assert.Equal(t, 10, p.Defense)

	m.RemovePassiveBonuses()
	assert.Equal(t, 100, p.MaxHealth)
	assert.Equal(t, 8, p.Defense)
	m.RemovePassiveBonuses()
	assert.Equal(t, 8, p.Defense)
}

func TestRemoveUndoesRecordedBonusAfterCatalogChange(t *testing.T) {
	m, players, _ := newTestSkills(t, 1)
	require.NoError(t, m.Learn("toughness"))

	changed := append([]model.Skill(nil), testSkills...)
	changed[1].StatBonuses = map[string]int{model.StatDefense: 50}
	require.NoError(t, m.LoadCatalog(changed))

	m.RemovePassiveBonuses()
	assert.Equal(t, 8, players.Player().Defense)
	assert.Equal(t, 100, players.Player().MaxHealth)
}

func TestUseActiveCooldownTicksOnTurnEnd(t *testing.T) {
	m, players, bus := newTestSkills(t, 1)
	require.NoError(t, m.Learn("power_strike"))

	s, err := m.UseActive("power_strike")
	require.NoError(t, err)
	assert.Equal(t, 8, s.Power)
	assert.Equal(t, 15, players.Player().Mana)
	assert.Equal(t, 2, m.CooldownRemaining("power_strike"))

	_, err = m.UseActive("power_strike")
	assert.ErrorIs(t, err, ErrOnCooldown)

	bus.Publish(&events.CombatTurnEnded{Turn: 1})
	assert.Equal(t, 1, m.CooldownRemaining("power_strike"))
	bus.Publish(&events.CombatTurnEnded{Turn: 2})
	assert.False(t, m.OnCooldown("power_strike"))

	players.Player().Mana = 2
	_, err = m.UseActive("power_strike")
	assert.ErrorIs(t, err, ErrNoMana)

	_, err = m.UseActive("toughness")
	assert.ErrorIs(t, err, ErrNotLearned)
}

func TestToggle(t *testing.T) {
	m, players, _ := newTestSkills(t, 2)
	p := players.Player()
	require.NoError(t, m.Learn("toughness"))
	require.NoError(t, m.Learn("berserk"))

	on, err := m.Toggle("berserk")
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, 20, p.Attack)
	assert.Equal(t, 8, p.Defense)
	assert.Equal(t, 120, p.MaxHealth)

	on, err = m.Toggle("berserk")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, 15, p.Attack)
	assert.Equal(t, 10, p.Defense)

	_, err = m.Toggle("toughness")
	assert.ErrorIs(t, err, ErrWrongType)
}

func TestResetSkillsRefunds(t *testing.T) {
	m, players, _ := newTestSkills(t, 3)
	p := players.Player()
	require.NoError(t, m.Learn("power_strike"))
	require.NoError(t, m.Learn("toughness"))
	require.NoError(t, m.Learn("berserk"))
	_, err := m.Toggle("berserk")
	require.NoError(t, err)
	assert.Equal(t, 0, p.SkillPoints)

	refund := m.ResetSkills(50)
	assert.Equal(t, 1, refund)
	assert.Equal(t, 1, p.SkillPoints)
	assert.Empty(t, p.LearnedSkills)
	assert.Equal(t, 15, p.Attack)
	assert.Equal(t, 8, p.Defense)
	assert.Equal(t, 100, p.MaxHealth)
}

func TestCatalogQueries(t *testing.T) {
	m, _, _ := newTestSkills(t, 1)

	assert.Len(t, m.ByCategory("combat"), 3)
	assert.Len(t, m.Available(), 4)
	assert.Equal(t, map[int][]string{
		1: {"power_strike", "toughness"},
		2: {"berserk", "cleave"},
	}, m.Tree(model.ClassWarrior))

	var ids []string
	for _, s := range m.Learnable() {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"power_strike", "toughness", "berserk"}, ids)

	assert.ErrorIs(t, m.LoadCatalog([]model.Skill{{ID: "a"}, {ID: "a"}}), ErrDuplicate)
}
