// Package combat runs the turn-based fight state machine.
//
// A fight starts from Idle and alternates PlayerTurn and EnemyTurn until it is
// Resolved as a victory, a defeat or a successful flight, then returns to Idle.
// The enemy turn is never invoked from outside: it runs synchronously after
// every non-terminal player action.
package combat

import (
	"errors"
	"fmt"

	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/inventory"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"github.com/wayfarer-rpg/wayfarer/internal/game/player"
	"github.com/wayfarer-rpg/wayfarer/internal/game/random"
	"github.com/wayfarer-rpg/wayfarer/internal/game/skills"
	"github.com/wayfarer-rpg/wayfarer/internal/game/world"
	"go.uber.org/zap"
)

// State is the combat state machine position.
type State int

const (
	StateIdle State = iota
	StatePlayerTurn
	StateEnemyTurn
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePlayerTurn:
		return "PlayerTurn"
	case StateEnemyTurn:
		return "EnemyTurn"
	case StateResolved:
		return "Resolved"
	default:
		return "Unknown"
	}
}

// Result is how a fight ended.
type Result string

const (
	ResultNone    Result = ""
	ResultVictory Result = "VICTORY"
	ResultDefeat  Result = "DEFEAT"
	ResultFled    Result = "FLED"
)

var (
	ErrNotInCombat     = errors.New("not in combat")
	ErrAlreadyInCombat = errors.New("already in combat")
	ErrInvalidAction   = errors.New("invalid combat action")
	ErrNoPlayer        = errors.New("no active player")
)

// Actor names used in combat events.
const (
	ActorPlayer = "player"
	ActorEnemy  = "enemy"
)

// Config holds the combat odds.
type Config struct {
	FleeChance     float64
	CritChance     float64
	CritMultiplier float64
	MissChance     float64
	JitterMin      int
	JitterMax      int
}

// DefaultConfig returns the standard odds.
func DefaultConfig() Config {
	return Config{
		FleeChance:     0.7,
		CritChance:     0.1,
		CritMultiplier: 2,
		MissChance:     0.05,
		JitterMin:      -2,
		JitterMax:      2,
	}
}

// Hit is one resolved attack.
type Hit struct {
	Amount   int
	Critical bool
	Missed   bool
}

// Rewards is what a victory granted.
type Rewards struct {
	Experience   int
	Gold         int
	Loot         []model.Item
	LeftBehind   []model.Item
	LevelsGained int
}

// Report summarizes one player action and everything it caused.
type Report struct {
	Action    string
	Turn      int
	Lines     []string
	PlayerHit *Hit
	EnemyHit  *Hit
	Result    Result
	Rewards   *Rewards
}

func (r *Report) addf(format string, args ...any) {
	r.Lines = append(r.Lines, fmt.Sprintf(format, args...))
}

// Manager owns the current fight. It mutates the player only through the player
// and inventory managers.
type Manager struct {
	bus       *events.Bus
	logger    *zap.Logger
	src       random.Source
	cfg       Config
	players   *player.Manager
	inventory *inventory.Manager
	world     *world.Manager
	skills    *skills.Manager

	state     State
	enemy     *model.Enemy
	location  string
	encounter bool
	turn      int
	defending bool
	last      Result
}

// NewManager wires the combat manager to the managers it delegates to.
func NewManager(
	bus *events.Bus,
	src random.Source,
	cfg Config,
	players *player.Manager,
	inv *inventory.Manager,
	w *world.Manager,
	sk *skills.Manager,
	logger *zap.Logger,
) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		bus:       bus,
		logger:    logger.Named("combat"),
		src:       src,
		cfg:       cfg,
		players:   players,
		inventory: inv,
		world:     w,
		skills:    sk,
	}
}

func (m *Manager) Name() string      { return "combat" }
func (m *Manager) Initialize() error { return nil }

// Reset abandons any fight without rewards or events.
func (m *Manager) Reset() {
	m.state = StateIdle
	m.enemy = nil
	m.location = ""
	m.encounter = false
	m.turn = 0
	m.defending = false
	m.last = ResultNone
}

// State returns the current state.
func (m *Manager) State() State { return m.state }

// InCombat reports whether a fight is under way.
func (m *Manager) InCombat() bool { return m.state != StateIdle }

// Turn returns the current turn number, starting at 1.
func (m *Manager) Turn() int { return m.turn }

// LastResult returns how the most recent fight ended.
func (m *Manager) LastResult() Result { return m.last }

// Enemy returns a copy of the current opponent.
func (m *Manager) Enemy() (model.Enemy, bool) {
	if m.enemy == nil {
		return model.Enemy{}, false
	}
	return m.enemy.Clone(), true
}

// Start begins a fight against enemy at location. Only valid from Idle.
func (m *Manager) Start(enemy model.Enemy, location string, isRandomEncounter bool) error {
	if m.state != StateIdle {
		return ErrAlreadyInCombat
	}
	p := m.players.Player()
	if p == nil {
		return ErrNoPlayer
	}
	if p.Health <= 0 {
		return fmt.Errorf("player is down: %w", ErrInvalidAction)
	}
	if enemy.MaxHealth <= 0 {
		enemy.MaxHealth = enemy.Health
	}
	enemy.Health = min(enemy.Health, enemy.MaxHealth)
	if enemy.Health <= 0 {
		return fmt.Errorf("%s is already defeated: %w", enemy.Name, ErrInvalidAction)
	}

	e := enemy.Clone()
	m.enemy = &e
	m.location = location
	m.encounter = isRandomEncounter
	m.turn = 1
	m.defending = false
	m.last = ResultNone
	m.state = StatePlayerTurn

	m.logger.Info("combat started",
		zap.String("enemy", e.Name),
		zap.String("location", location),
		zap.Bool("random", isRandomEncounter),
	)
	m.bus.Publish(&events.CombatStarted{Enemy: e.Clone(), Location: location, RandomEncounter: isRandomEncounter})
	return nil
}

// Attack strikes the enemy; the enemy counter-attacks unless it falls.
func (m *Manager) Attack() (Report, error) {
	rep, err := m.begin("attack")
	if err != nil {
		return rep, err
	}
	p := m.players.Player()
	hit := m.roll(p.EffectiveAttack(), m.enemy.Defense)
	m.hitEnemy(&rep, hit, "attack")
	if m.enemy.IsDefeated() {
		m.victory(&rep)
		return rep, nil
	}
	m.enemyTurn(&rep)
	return rep, nil
}

// Defend braces for the enemy's next attack this turn, halving it.
func (m *Manager) Defend() (Report, error) {
	rep, err := m.begin("defend")
	if err != nil {
		return rep, err
	}
	rep.addf("You raise your guard.")
	m.defending = true
	m.enemyTurn(&rep)
	m.defending = false
	return rep, nil
}

// Flee tries to escape. A failed attempt gives the enemy a free attack.
func (m *Manager) Flee() (Report, error) {
	rep, err := m.begin("flee")
	if err != nil {
		return rep, err
	}
	if random.Chance(m.src, m.cfg.FleeChance) {
		rep.addf("You escape from the %s.", m.enemy.Name)
		m.resolve(&rep, ResultFled, nil)
		return rep, nil
	}
	rep.addf("You fail to escape!")
	m.enemyTurn(&rep)
	return rep, nil
}

// UseItem uses an inventory item mid-fight; the enemy still attacks afterwards.
// A failed use does not consume the turn.
func (m *Manager) UseItem(query string) (Report, error) {
	if err := m.requirePlayerTurn(); err != nil {
		return Report{Action: "use", Turn: m.turn}, err
	}
	res, err := m.inventory.UseItem(query)
	if err != nil {
		return Report{Action: "use", Turn: m.turn}, err
	}
	rep := m.announce("use")
	rep.addf("%s", res.Message)
	m.enemyTurn(&rep)
	return rep, nil
}

// UseSkill invokes a learned active skill. Skills with power strike the enemy
// for attack + power - defense, never missing and never critical.
func (m *Manager) UseSkill(id string) (Report, error) {
	if err := m.requirePlayerTurn(); err != nil {
		return Report{Action: "skill", Turn: m.turn}, err
	}
	s, err := m.skills.UseActive(id)
	if err != nil {
		return Report{Action: "skill", Turn: m.turn}, err
	}
	rep := m.announce("skill:" + id)
	rep.addf("You use %s.", s.Name)
	if s.Power > 0 {
		p := m.players.Player()
		dmg := max(1, p.EffectiveAttack()+s.Power-m.enemy.Defense)
		m.hitEnemy(&rep, Hit{Amount: dmg}, s.Name)
		if m.enemy.IsDefeated() {
			m.victory(&rep)
			return rep, nil
		}
	}
	m.enemyTurn(&rep)
	return rep, nil
}

func (m *Manager) requirePlayerTurn() error {
	if m.state == StateIdle || m.enemy == nil {
		return ErrNotInCombat
	}
	if m.state != StatePlayerTurn {
		return fmt.Errorf("not the player's turn (%s): %w", m.state, ErrInvalidAction)
	}
	return nil
}

func (m *Manager) begin(action string) (Report, error) {
	if err := m.requirePlayerTurn(); err != nil {
		return Report{Action: action, Turn: m.turn}, err
	}
	return m.announce(action), nil
}

// announce records the player's action for a turn that has already been
// checked with requirePlayerTurn.
func (m *Manager) announce(action string) Report {
	m.bus.Publish(&events.CombatAction{Turn: m.turn, Actor: ActorPlayer, Action: action})
	return Report{Action: action, Turn: m.turn}
}

// roll resolves one attack: the miss roll comes first and short-circuits, then
// the jitter, then the critical roll.
func (m *Manager) roll(attack, defense int) Hit {
	if random.Chance(m.src, m.cfg.MissChance) {
		return Hit{Missed: true}
	}
	dmg := max(1, attack-defense+random.Between(m.src, m.cfg.JitterMin, m.cfg.JitterMax))
	if random.Chance(m.src, m.cfg.CritChance) {
		return Hit{Amount: max(1, int(float64(dmg)*m.cfg.CritMultiplier)), Critical: true}
	}
	return Hit{Amount: dmg}
}

func (m *Manager) hitEnemy(rep *Report, hit Hit, what string) {
	e := m.enemy
	h := hit
	rep.PlayerHit = &h
	switch {
	case hit.Missed:
		rep.addf("Your %s misses the %s.", what, e.Name)
	case hit.Critical:
		rep.addf("Critical hit! You deal %d damage to the %s.", hit.Amount, e.Name)
	default:
		rep.addf("You deal %d damage to the %s.", hit.Amount, e.Name)
	}
	e.Health = max(0, e.Health-hit.Amount)
	m.bus.Publish(&events.DamageDealt{
		Attacker:     ActorPlayer,
		Target:       e.Name,
		Amount:       hit.Amount,
		Critical:     hit.Critical,
		Missed:       hit.Missed,
		TargetHealth: e.Health,
	})
}

func (m *Manager) enemyTurn(rep *Report) {
	m.state = StateEnemyTurn
	e := m.enemy
	p := m.players.Player()
	m.bus.Publish(&events.CombatAction{Turn: m.turn, Actor: ActorEnemy, Action: "attack"})

	hit := m.roll(e.Attack, p.EffectiveDefense())
	if m.defending && !hit.Missed {
		hit.Amount = max(1, hit.Amount/2)
	}
	h := hit
	rep.EnemyHit = &h
	switch {
	case hit.Missed:
		rep.addf("The %s misses you.", e.Name)
	case hit.Critical:
		rep.addf("The %s lands a critical hit for %d damage!", e.Name, hit.Amount)
	default:
		rep.addf("The %s hits you for %d damage.", e.Name, hit.Amount)
	}
	m.players.TakeDamage(hit.Amount)
	m.bus.Publish(&events.DamageDealt{
		Attacker:       e.Name,
		Target:         p.Name,
		TargetIsPlayer: true,
		Amount:         hit.Amount,
		Critical:       hit.Critical,
		Missed:         hit.Missed,
		TargetHealth:   p.Health,
	})

	if m.players.IsDead() {
		m.defeat(rep)
		return
	}
	m.state = StatePlayerTurn
	m.bus.Publish(&events.CombatTurnEnded{Turn: m.turn})
	m.turn++
}

func (m *Manager) victory(rep *Report) {
	e := m.enemy
	rep.addf("You defeated the %s!", e.Name)
	m.state = StateResolved

	rw := &Rewards{Experience: e.ExperienceReward, Gold: e.GoldReward}
	if rw.Gold > 0 {
		m.players.ModifyGold(rw.Gold, "combat: "+e.Name)
	}
	if rw.Experience > 0 {
		rw.LevelsGained = m.players.AddExperience(rw.Experience, "combat: "+e.Name)
	}
	rep.addf("You gain %d experience and %d gold.", rw.Experience, rw.Gold)
	if rw.LevelsGained > 0 {
		rep.addf("You are now level %d!", m.players.Player().Level)
	}

	for _, item := range e.Loot {
		if item.DropChance > 0 && item.DropChance < 1 && !random.Chance(m.src, item.DropChance) {
			continue
		}
		item.DropChance = 0
		if err := m.inventory.AddItem(item); err != nil {
			m.logger.Debug("loot left behind", zap.String("item", item.Name), zap.Error(err))
			if perr := m.world.PlaceItem(item); perr != nil {
				m.logger.Warn("loot lost", zap.String("item", item.Name), zap.Error(perr))
			}
			rw.LeftBehind = append(rw.LeftBehind, item)
			rep.addf("The %s drops a %s, but you cannot carry it.", e.Name, item.Name)
			continue
		}
		rw.Loot = append(rw.Loot, item)
		rep.addf("You loot a %s.", item.Name)
	}

	if !m.encounter {
		m.world.RemoveEnemy(m.location, e.Name)
	}
	m.resolve(rep, ResultVictory, rw)
}

func (m *Manager) defeat(rep *Report) {
	rep.addf("You have been defeated by the %s...", m.enemy.Name)
	m.state = StateResolved
	m.resolve(rep, ResultDefeat, nil)

	if start := m.world.StartKey(); start != "" {
		if _, err := m.world.MoveTo(start); err != nil {
			m.logger.Error("defeat relocation failed", zap.String("to", start), zap.Error(err))
		}
	}
	m.players.Revive(0)
	if p := m.players.Player(); p != nil {
		rep.addf("You wake up in the village with %d health.", p.Health)
	}
}

// resolve publishes the outcome and returns the machine to Idle.
func (m *Manager) resolve(rep *Report, result Result, rw *Rewards) {
	e := m.enemy
	m.state = StateResolved
	rep.Result = result
	rep.Rewards = rw

	ended := &events.CombatEnded{Result: string(result), Enemy: e.Name, Turns: m.turn}
	if rw != nil {
		ended.Experience = rw.Experience
		ended.Gold = rw.Gold
		ended.Loot = model.CloneItems(rw.Loot)
	}
	m.logger.Info("combat ended",
		zap.String("result", string(result)),
		zap.String("enemy", e.Name),
		zap.Int("turns", m.turn),
	)
	m.bus.Publish(ended)

	m.last = result
	m.state = StateIdle
	m.enemy = nil
	m.defending = false
}
