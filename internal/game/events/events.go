package events

import (
	"time"

	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
)

// Kind names an event variant. Handlers subscribe by exact kind.
type Kind string

const (
	// Session events
	KindGameStarted      Kind = "GAME_STARTED"
	KindGameStateChanged Kind = "GAME_STATE_CHANGED"
	KindCommandProcessed Kind = "COMMAND_PROCESSED"
	KindMessage          Kind = "MESSAGE"
	KindGameSaved        Kind = "GAME_SAVED"
	KindGameLoaded       Kind = "GAME_LOADED"
	KindPersistenceFail  Kind = "PERSISTENCE_FAILED"
	KindSystemError      Kind = "SYSTEM_ERROR"

	// Player events
	KindHealthChanged      Kind = "HEALTH_CHANGED"
	KindManaChanged        Kind = "MANA_CHANGED"
	KindExperienceGained   Kind = "EXPERIENCE_GAINED"
	KindLevelUp            Kind = "LEVEL_UP"
	KindStatsChanged       Kind = "STATS_CHANGED"
	KindGoldChanged        Kind = "GOLD_CHANGED"
	KindPlayerDied         Kind = "PLAYER_DIED"
	KindPlayerRevived      Kind = "PLAYER_REVIVED"
	KindSkillPointsChanged Kind = "SKILL_POINTS_CHANGED"

	// Inventory events
	KindItemAdded        Kind = "ITEM_ADDED"
	KindItemRemoved      Kind = "ITEM_REMOVED"
	KindItemUsing        Kind = "ITEM_USING"
	KindItemUsed         Kind = "ITEM_USED"
	KindItemEquipped     Kind = "ITEM_EQUIPPED"
	KindItemUnequipped   Kind = "ITEM_UNEQUIPPED"
	KindInventoryCleared Kind = "INVENTORY_CLEARED"

	// World events
	KindLocationChanging   Kind = "LOCATION_CHANGING"
	KindLocationChanged    Kind = "LOCATION_CHANGED"
	KindLocationDiscovered Kind = "LOCATION_DISCOVERED"
	KindRandomEncounter    Kind = "RANDOM_ENCOUNTER"
	KindItemsRevealed      Kind = "ITEMS_REVEALED"

	// Combat events
	KindCombatStarted   Kind = "COMBAT_STARTED"
	KindCombatAction    Kind = "COMBAT_ACTION"
	KindDamageDealt     Kind = "DAMAGE_DEALT"
	KindCombatTurnEnded Kind = "COMBAT_TURN_ENDED"
	KindCombatEnded     Kind = "COMBAT_ENDED"

	// Skill events
	KindSkillLearned Kind = "SKILL_LEARNED"
	KindSkillUsed    Kind = "SKILL_USED"
	KindSkillToggled Kind = "SKILL_TOGGLED"
	KindSkillsReset  Kind = "SKILLS_RESET"
)

// Priority is advisory metadata. Delivery order never depends on it.
type Priority int

const (
	PriorityLow      Priority = -10
	PriorityNormal   Priority = 0
	PriorityHigh     Priority = 10
	PriorityCritical Priority = 20
)

// Severity grades messages and system errors.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

var cancellableKinds = map[Kind]bool{
	KindItemUsing:        true,
	KindLocationChanging: true,
}

var defaultPriorities = map[Kind]Priority{
	KindCombatStarted:   PriorityHigh,
	KindCombatEnded:     PriorityHigh,
	KindPlayerDied:      PriorityHigh,
	KindSystemError:     PriorityCritical,
	KindPersistenceFail: PriorityHigh,
	KindCombatAction:    PriorityLow,
}

// IsCancellable reports whether events of this kind accept Cancel.
func (k Kind) IsCancellable() bool {
	return cancellableKinds[k]
}

// Header carries the fields every event shares. The bus stamps ID, Timestamp,
// Cancellable and a default Priority on publish.
type Header struct {
	ID          string
	Timestamp   time.Time
	Priority    Priority
	Cancellable bool
	cancelled   bool
}

// Meta exposes the header of any event.
func (h *Header) Meta() *Header { return h }

// Cancel flags the event so the publisher can abort the pending side effect.
// It returns false when the event cannot be cancelled.
func (h *Header) Cancel() bool {
	if !h.Cancellable {
		return false
	}
	h.cancelled = true
	return true
}

// Cancelled reports whether a handler cancelled the event.
func (h *Header) Cancelled() bool {
	return h.cancelled
}

func (h *Header) sealed() {}

// Event is the closed set of messages carried by the bus. Only the variants
// declared in this package implement it.
type Event interface {
	Kind() Kind
	Meta() *Header
	sealed()
}

type GameStarted struct {
	Header
	PlayerName string
	Class      model.Class
	Location   string
}

type GameStateChanged struct {
	Header
	From string
	To   string
}

type CommandProcessed struct {
	Header
	Input   string
	Success bool
	Message string
}

// Message is narrative text for the presentation layer.
type Message struct {
	Header
	Text     string
	Severity Severity
}

type GameSaved struct {
	Header
	Slot string
}

type GameLoaded struct {
	Header
	Slot     string
	Location string
}

type PersistenceFailed struct {
	Header
	Slot      string
	Operation string
	Err       error
}

// SystemError reports an invariant violation the core recovered from.
type SystemError struct {
	Header
	Component string
	Message   string
	Severity  Severity
}

type HealthChanged struct {
	Header
	Old    int
	New    int
	Max    int
	Reason string
}

type ManaChanged struct {
	Header
	Old    int
	New    int
	Max    int
	Reason string
}

type ExperienceGained struct {
	Header
	Amount int
	Total  int
	ToNext int
	Source string
}

type LevelUp struct {
	Header
	OldLevel int
	NewLevel int
}

type StatsChanged struct {
	Header
	Level     int
	MaxHealth int
	MaxMana   int
	Attack    int
	Defense   int
	Reason    string
}

type GoldChanged struct {
	Header
	Old    int
	New    int
	Delta  int
	Reason string
}

type PlayerDied struct {
	Header
	Cause string
}

type PlayerRevived struct {
	Header
	Health int
}

type SkillPointsChanged struct {
	Header
	Old int
	New int
}

type ItemAdded struct {
	Header
	Item model.Item
}

type ItemRemoved struct {
	Header
	Item   model.Item
	Reason string
}

// ItemUsing fires before an item takes effect; cancelling it aborts the use.
type ItemUsing struct {
	Header
	Item model.Item
}

type ItemUsed struct {
	Header
	Item   model.Item
	Effect string
	Amount int
}

type ItemEquipped struct {
	Header
	Item     model.Item
	Slot     model.EquipmentSlot
	Previous *model.Item
}

type ItemUnequipped struct {
	Header
	Item model.Item
	Slot model.EquipmentSlot
}

type InventoryCleared struct {
	Header
	Count int
}

// LocationChanging fires before a move; cancelling it keeps the player in place.
type LocationChanging struct {
	Header
	From      string
	To        string
	Direction string
}

type LocationChanged struct {
	Header
	From      string
	To        string
	Direction string
}

type LocationDiscovered struct {
	Header
	Key  string
	Name string
}

type RandomEncounter struct {
	Header
	Location string
	Enemy    model.Enemy
}

type ItemsRevealed struct {
	Header
	Location string
	Items    []model.Item
}

type CombatStarted struct {
	Header
	Enemy           model.Enemy
	Location        string
	RandomEncounter bool
}

type CombatAction struct {
	Header
	Turn   int
	Actor  string
	Action string
}

type DamageDealt struct {
	Header
	Attacker       string
	Target         string
	TargetIsPlayer bool
	Amount         int
	Critical       bool
	Missed         bool
	TargetHealth   int
}

type CombatTurnEnded struct {
	Header
	Turn int
}

type CombatEnded struct {
	Header
	Result     string
	Enemy      string
	Turns      int
	Experience int
	Gold       int
	Loot       []model.Item
}

type SkillLearned struct {
	Header
	SkillID string
	Name    string
	Cost    int
}

type SkillUsed struct {
	Header
	SkillID  string
	ManaCost int
	Cooldown int
}

type SkillToggled struct {
	Header
	SkillID string
	On      bool
}

type SkillsReset struct {
	Header
	Count    int
	Refunded int
}

func (*GameStarted) Kind() Kind        { return KindGameStarted }
func (*GameStateChanged) Kind() Kind   { return KindGameStateChanged }
func (*CommandProcessed) Kind() Kind   { return KindCommandProcessed }
func (*Message) Kind() Kind            { return KindMessage }
func (*GameSaved) Kind() Kind          { return KindGameSaved }
func (*GameLoaded) Kind() Kind         { return KindGameLoaded }
func (*PersistenceFailed) Kind() Kind  { return KindPersistenceFail }
func (*SystemError) Kind() Kind        { return KindSystemError }
func (*HealthChanged) Kind() Kind      { return KindHealthChanged }
func (*ManaChanged) Kind() Kind        { return KindManaChanged }
func (*ExperienceGained) Kind() Kind   { return KindExperienceGained }
func (*LevelUp) Kind() Kind            { return KindLevelUp }
func (*StatsChanged) Kind() Kind       { return KindStatsChanged }
func (*GoldChanged) Kind() Kind        { return KindGoldChanged }
func (*PlayerDied) Kind() Kind         { return KindPlayerDied }
func (*PlayerRevived) Kind() Kind      { return KindPlayerRevived }
func (*SkillPointsChanged) Kind() Kind { return KindSkillPointsChanged }
func (*ItemAdded) Kind() Kind          { return KindItemAdded }
func (*ItemRemoved) Kind() Kind        { return KindItemRemoved }
func (*ItemUsing) Kind() Kind          { return KindItemUsing }
func (*ItemUsed) Kind() Kind           { return KindItemUsed }
func (*ItemEquipped) Kind() Kind       { return KindItemEquipped }
func (*ItemUnequipped) Kind() Kind     { return KindItemUnequipped }
func (*InventoryCleared) Kind() Kind   { return KindInventoryCleared }
func (*LocationChanging) Kind() Kind   { return KindLocationChanging }
func (*LocationChanged) Kind() Kind    { return KindLocationChanged }
func (*LocationDiscovered) Kind() Kind { return KindLocationDiscovered }
func (*RandomEncounter) Kind() Kind    { return KindRandomEncounter }
func (*ItemsRevealed) Kind() Kind      { return KindItemsRevealed }
func (*CombatStarted) Kind() Kind      { return KindCombatStarted }
func (*CombatAction) Kind() Kind       { return KindCombatAction }
func (*DamageDealt) Kind() Kind        { return KindDamageDealt }
func (*CombatTurnEnded) Kind() Kind    { return KindCombatTurnEnded }
func (*CombatEnded) Kind() Kind        { return KindCombatEnded }
func (*SkillLearned) Kind() Kind       { return KindSkillLearned }
func (*SkillUsed) Kind() Kind          { return KindSkillUsed }
func (*SkillToggled) Kind() Kind       { return KindSkillToggled }
func (*SkillsReset) Kind() Kind        { return KindSkillsReset }
