// Package skills owns the skill catalog, learning rules, cooldowns and the stat
// bonuses granted by passive and toggle skills.
package skills

import (
	"errors"
	"fmt"
	"sort"

	"github.com/wayfarer-rpg/wayfarer/internal/game/counters"
	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"github.com/wayfarer-rpg/wayfarer/internal/game/player"
	"go.uber.org/zap"
)

// Reason explains why a skill could not be learned.
type Reason string

const (
	ReasonUnknownSkill       Reason = "unknown skill"
	ReasonAlreadyLearned     Reason = "already learned"
	ReasonClassMismatch      Reason = "class mismatch"
	ReasonLevelTooLow        Reason = "level too low"
	ReasonPrerequisitesUnmet Reason = "prerequisites unmet"
	ReasonInsufficientPoints Reason = "insufficient skill points"
	ReasonNoPlayer           Reason = "no active player"
)

// LearnError reports a refused Learn.
type LearnError struct {
	SkillID string
	Reason  Reason
	Detail  string
}

func (e *LearnError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("cannot learn %s: %s (%s)", e.SkillID, e.Reason, e.Detail)
	}
	return fmt.Sprintf("cannot learn %s: %s", e.SkillID, e.Reason)
}

// ReasonOf extracts the Reason from a Learn error, or "" for other errors.
func ReasonOf(err error) Reason {
	var le *LearnError
	if errors.As(err, &le) {
		return le.Reason
	}
	return ""
}

var (
	ErrUnknownSkill = errors.New("unknown skill")
	ErrNotLearned   = errors.New("skill not learned")
	ErrWrongType    = errors.New("wrong skill type")
	ErrOnCooldown   = errors.New("skill is on cooldown")
	ErrNoMana       = errors.New("not enough mana")
	ErrNoPlayer     = errors.New("no active player")
	ErrDuplicate    = errors.New("duplicate skill id")
)

// Manager is the single writer of learned skills, toggles and cooldowns.
type Manager struct {
	bus     *events.Bus
	logger  *zap.Logger
	players *player.Manager

	catalog   map[string]model.Skill
	cooldowns *counters.Counters
	handles   []events.Handle
}

// NewManager creates a skill manager with an empty catalog.
func NewManager(bus *events.Bus, players *player.Manager, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		bus:       bus,
		logger:    logger.Named("skills"),
		players:   players,
		catalog:   make(map[string]model.Skill),
		cooldowns: counters.NewCounters(),
	}
}

func (m *Manager) Name() string { return "skill" }

// Initialize hooks cooldown ticking into the combat turn cycle.
func (m *Manager) Initialize() error {
	if len(m.handles) > 0 {
		return nil
	}
	m.handles = append(m.handles,
		m.bus.Subscribe(events.KindCombatTurnEnded, func(events.Event) error {
			m.TickCooldowns()
			return nil
		}),
		m.bus.Subscribe(events.KindCombatEnded, func(events.Event) error {
			m.cooldowns.Clear()
			return nil
		}),
	)
	return nil
}

// Reset clears transient cooldowns.
func (m *Manager) Reset() { m.cooldowns.Clear() }

// LoadCatalog replaces the skill catalog.
func (m *Manager) LoadCatalog(skills []model.Skill) error {
	catalog := make(map[string]model.Skill, len(skills))
	for _, s := range skills {
		if _, ok := catalog[s.ID]; ok {
			return fmt.Errorf("%q: %w", s.ID, ErrDuplicate)
		}
		catalog[s.ID] = s
	}
	m.catalog = catalog
	m.logger.Info("skill catalog loaded", zap.Int("skills", len(catalog)))
	return nil
}

// Get returns a catalog entry.
func (m *Manager) Get(id string) (model.Skill, bool) {
	s, ok := m.catalog[id]
	return s, ok
}

// Has reports whether the player learned id.
func (m *Manager) Has(id string) bool {
	p := m.players.Player()
	return p != nil && p.LearnedSkills[id]
}

// CanLearn checks every learning rule without mutating anything.
func (m *Manager) CanLearn(id string) error {
	p := m.players.Player()
	if p == nil {
		return &LearnError{SkillID: id, Reason: ReasonNoPlayer}
	}
	s, ok := m.catalog[id]
	if !ok {
		return &LearnError{SkillID: id, Reason: ReasonUnknownSkill}
	}
	if p.LearnedSkills[id] {
		return &LearnError{SkillID: id, Reason: ReasonAlreadyLearned}
	}
	if !s.AvailableTo(p.Class) {
		return &LearnError{SkillID: id, Reason: ReasonClassMismatch, Detail: string(s.RequiredClass) + " only"}
	}
	if p.Level < s.RequiredLevel {
		return &LearnError{SkillID: id, Reason: ReasonLevelTooLow, Detail: fmt.Sprintf("requires level %d", s.RequiredLevel)}
	}
	for _, pre := range s.Prerequisites {
		if !p.LearnedSkills[pre] {
			return &LearnError{SkillID: id, Reason: ReasonPrerequisitesUnmet, Detail: "requires " + pre}
		}
	}
	if p.SkillPoints < s.Cost {
		return &LearnError{SkillID: id, Reason: ReasonInsufficientPoints, Detail: fmt.Sprintf("costs %d, have %d", s.Cost, p.SkillPoints)}
	}
	return nil
}

// Learn spends skill points on id. Failures return a *LearnError and mutate
// nothing.
func (m *Manager) Learn(id string) error {
	if err := m.CanLearn(id); err != nil {
		return err
	}
	s := m.catalog[id]
	if !m.players.SpendSkillPoints(s.Cost) {
		return &LearnError{SkillID: id, Reason: ReasonInsufficientPoints}
	}
	p := m.players.Player()
	p.LearnedSkills[id] = true
	m.logger.Info("skill learned", zap.String("skill", id), zap.Int("cost", s.Cost))
	m.bus.Publish(&events.SkillLearned{SkillID: id, Name: s.Name, Cost: s.Cost})
	if s.Type == model.SkillPassive && len(s.StatBonuses) > 0 {
		m.ApplyPassiveBonuses()
	}
	return nil
}

// Learned lists the player's skills ordered by id.
func (m *Manager) Learned() []model.Skill {
	p := m.players.Player()
	if p == nil {
		return nil
	}
	var out []model.Skill
	for _, id := range p.LearnedSkillIDs() {
		if s, ok := m.catalog[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Available lists catalog skills open to the player's class, learned or not.
func (m *Manager) Available() []model.Skill {
	p := m.players.Player()
	if p == nil {
		return nil
	}
	return m.ByClass(p.Class)
}

// Learnable lists the skills Learn would accept right now.
func (m *Manager) Learnable() []model.Skill {
	var out []model.Skill
	for _, s := range m.Available() {
		if m.CanLearn(s.ID) == nil {
			out = append(out, s)
		}
	}
	return out
}

// ByCategory lists catalog skills in a category.
func (m *Manager) ByCategory(category string) []model.Skill {
	return m.filter(func(s model.Skill) bool { return s.Category == category })
}

// ByClass lists catalog skills a class may learn.
func (m *Manager) ByClass(c model.Class) []model.Skill {
	return m.filter(func(s model.Skill) bool { return s.AvailableTo(c) })
}

func (m *Manager) filter(keep func(model.Skill) bool) []model.Skill {
	var out []model.Skill
	for _, s := range m.catalog {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier != out[j].Tier {
			return out[i].Tier < out[j].Tier
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Tree returns the skill ids open to a class grouped by tier.
func (m *Manager) Tree(c model.Class) map[int][]string {
	tree := make(map[int][]string)
	for _, s := range m.ByClass(c) {
		tree[s.Tier] = append(tree[s.Tier], s.ID)
	}
	return tree
}

// SpentPoints sums the cost of every learned skill still in the catalog.
func (m *Manager) SpentPoints() int {
	total := 0
	for _, s := range m.Learned() {
		total += s.Cost
	}
	return total
}

// AvailablePoints returns the player's unspent skill points.
func (m *Manager) AvailablePoints() int {
	if p := m.players.Player(); p != nil {
		return p.SkillPoints
	}
	return 0
}

// UseActive spends mana for a learned active skill and starts its cooldown.
func (m *Manager) UseActive(id string) (model.Skill, error) {
	p := m.players.Player()
	if p == nil {
		return model.Skill{}, ErrNoPlayer
	}
	s, ok := m.catalog[id]
	if !ok {
		return model.Skill{}, fmt.Errorf("%q: %w", id, ErrUnknownSkill)
	}
	if !p.LearnedSkills[id] {
		return s, fmt.Errorf("%s: %w", s.Name, ErrNotLearned)
	}
	if s.Type != model.SkillActive {
		return s, fmt.Errorf("%s is %s: %w", s.Name, s.Type, ErrWrongType)
	}
	if left := m.cooldowns.GetCount(id); left > 0 {
		return s, fmt.Errorf("%s (%d turns): %w", s.Name, left, ErrOnCooldown)
	}
	if !m.players.SpendMana(s.ManaCost) {
		return s, fmt.Errorf("%s needs %d: %w", s.Name, s.ManaCost, ErrNoMana)
	}
	m.cooldowns.Set(id, s.Cooldown)
	m.bus.Publish(&events.SkillUsed{SkillID: id, ManaCost: s.ManaCost, Cooldown: s.Cooldown})
	return s, nil
}

// CooldownRemaining returns the turns left before id can be used again.
func (m *Manager) CooldownRemaining(id string) int { return m.cooldowns.GetCount(id) }

// OnCooldown reports whether id is cooling down.
func (m *Manager) OnCooldown(id string) bool { return m.cooldowns.HasCounter(id) }

// TickCooldowns advances every cooldown by one turn and returns the skills that
// became ready.
func (m *Manager) TickCooldowns() []string {
	ready := m.cooldowns.Tick()
	if len(ready) > 0 {
		m.logger.Debug("cooldowns ready", zap.Strings("skills", ready))
	}
	return ready
}

// Toggle flips a learned toggle skill and returns its new state.
func (m *Manager) Toggle(id string) (bool, error) {
	p := m.players.Player()
	if p == nil {
		return false, ErrNoPlayer
	}
	s, ok := m.catalog[id]
	if !ok {
		return false, fmt.Errorf("%q: %w", id, ErrUnknownSkill)
	}
	if !p.LearnedSkills[id] {
		return false, fmt.Errorf("%s: %w", s.Name, ErrNotLearned)
	}
	if s.Type != model.SkillToggle {
		return false, fmt.Errorf("%s is %s: %w", s.Name, s.Type, ErrWrongType)
	}
	on := !p.Toggles[id]
	if on {
		p.Toggles[id] = true
	} else {
		delete(p.Toggles, id)
	}
	m.ApplyPassiveBonuses()
	m.bus.Publish(&events.SkillToggled{SkillID: id, On: on})
	return on, nil
}

// ApplyPassiveBonuses brings the player's stats in line with the learned
// passive skills and active toggles. The applied set is recorded on the player
// so it can be removed exactly, and applying twice is the same as applying once.
func (m *Manager) ApplyPassiveBonuses() {
	p := m.players.Player()
	if p == nil {
		return
	}
	m.RemovePassiveBonuses()

	bonus := make(map[string]int)
	for _, id := range p.LearnedSkillIDs() {
		s, ok := m.catalog[id]
		if !ok {
			continue
		}
		if s.Type == model.SkillPassive || (s.Type == model.SkillToggle && p.Toggles[id]) {
			for stat, d := range s.StatBonuses {
				bonus[stat] += d
			}
		}
	}
	for stat, d := range bonus {
		if d == 0 {
			delete(bonus, stat)
		}
	}
	if len(bonus) == 0 {
		return
	}
	m.players.ApplyStatDelta(bonus, "passive bonuses")
	p.PassiveBonuses = bonus
}

// RemovePassiveBonuses subtracts exactly the recorded bonus set, whatever the
// catalog says now.
func (m *Manager) RemovePassiveBonuses() {
	p := m.players.Player()
	if p == nil || len(p.PassiveBonuses) == 0 {
		return
	}
	undo := make(map[string]int, len(p.PassiveBonuses))
	for stat, d := range p.PassiveBonuses {
		undo[stat] = -d
	}
	m.players.ApplyStatDelta(undo, "passive bonuses removed")
	p.PassiveBonuses = make(map[string]int)
}

// ResetSkills forgets every learned skill and refunds refundPercent (0-100) of
// the points spent, rounded down. It returns the refund.
func (m *Manager) ResetSkills(refundPercent int) int {
	p := m.players.Player()
	if p == nil {
		return 0
	}
	refundPercent = min(max(refundPercent, 0), 100)
	count := len(p.LearnedSkillIDs())
	spent := m.SpentPoints()

	m.RemovePassiveBonuses()
	p.LearnedSkills = make(map[string]bool)
	p.Toggles = make(map[string]bool)
	m.cooldowns.Clear()

	refund := spent * refundPercent / 100
	m.players.AddSkillPoints(refund)
	m.logger.Info("skills reset", zap.Int("count", count), zap.Int("refund", refund))
	m.bus.Publish(&events.SkillsReset{Count: count, Refunded: refund})
	return refund
}
