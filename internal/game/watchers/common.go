package watchers

import (
	"sort"

	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
)

// EnemiesDefeatedWatcher counts victories per enemy name.
type EnemiesDefeatedWatcher struct {
	*BaseWatcher
	defeated map[string]int
	fled     int
	defeats  int
}

func NewEnemiesDefeatedWatcher() *EnemiesDefeatedWatcher {
	return &EnemiesDefeatedWatcher{
		BaseWatcher: NewBaseWatcher("EnemiesDefeatedWatcher"),
		defeated:    make(map[string]int),
	}
}

func (w *EnemiesDefeatedWatcher) Watch(evt events.Event) {
	ended, ok := evt.(*events.CombatEnded)
	if !ok {
		return
	}
	switch ended.Result {
	case "VICTORY":
		w.defeated[ended.Enemy]++
		w.SetCondition(true)
	case "DEFEAT":
		w.defeats++
	case "FLED":
		w.fled++
	}
}

func (w *EnemiesDefeatedWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.defeated = make(map[string]int)
	w.fled = 0
	w.defeats = 0
}

// Count returns how many enemies of the given name were defeated.
func (w *EnemiesDefeatedWatcher) Count(name string) int { return w.defeated[name] }

// Total returns the number of victories.
func (w *EnemiesDefeatedWatcher) Total() int {
	n := 0
	for _, c := range w.defeated {
		n += c
	}
	return n
}

// Names returns the defeated enemy names in sorted order.
func (w *EnemiesDefeatedWatcher) Names() []string {
	names := make([]string, 0, len(w.defeated))
	for n := range w.defeated {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (w *EnemiesDefeatedWatcher) Summary() []Stat {
	return []Stat{
		{Label: "Enemies defeated", Value: w.Total()},
		{Label: "Fights fled", Value: w.fled},
		{Label: "Defeats", Value: w.defeats},
	}
}

// DamageWatcher tallies damage dealt and taken.
type DamageWatcher struct {
	*BaseWatcher
	dealt     int
	taken     int
	criticals int
	misses    int
}

func NewDamageWatcher() *DamageWatcher {
	return &DamageWatcher{BaseWatcher: NewBaseWatcher("DamageWatcher")}
}

func (w *DamageWatcher) Watch(evt events.Event) {
	d, ok := evt.(*events.DamageDealt)
	if !ok {
		return
	}
	if d.TargetIsPlayer {
		w.taken += d.Amount
		return
	}
	w.dealt += d.Amount
	if d.Critical {
		w.criticals++
	}
	if d.Missed {
		w.misses++
	}
	w.SetCondition(true)
}

func (w *DamageWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.dealt, w.taken, w.criticals, w.misses = 0, 0, 0, 0
}

// Dealt returns the total damage the player dealt.
func (w *DamageWatcher) Dealt() int { return w.dealt }

// Taken returns the total damage the player took.
func (w *DamageWatcher) Taken() int { return w.taken }

func (w *DamageWatcher) Summary() []Stat {
	return []Stat{
		{Label: "Damage dealt", Value: w.dealt},
		{Label: "Damage taken", Value: w.taken},
		{Label: "Critical hits", Value: w.criticals},
		{Label: "Misses", Value: w.misses},
	}
}

// GoldWatcher tracks gold earned and spent.
type GoldWatcher struct {
	*BaseWatcher
	earned int
	spent  int
}

func NewGoldWatcher() *GoldWatcher {
	return &GoldWatcher{BaseWatcher: NewBaseWatcher("GoldWatcher")}
}

func (w *GoldWatcher) Watch(evt events.Event) {
	g, ok := evt.(*events.GoldChanged)
	if !ok {
		return
	}
	if g.Delta > 0 {
		w.earned += g.Delta
		w.SetCondition(true)
	} else {
		w.spent -= g.Delta
	}
}

func (w *GoldWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.earned, w.spent = 0, 0
}

func (w *GoldWatcher) Earned() int { return w.earned }
func (w *GoldWatcher) Spent() int  { return w.spent }

func (w *GoldWatcher) Summary() []Stat {
	return []Stat{
		{Label: "Gold earned", Value: w.earned},
		{Label: "Gold spent", Value: w.spent},
	}
}

// ExplorationWatcher counts moves and newly discovered locations.
type ExplorationWatcher struct {
	*BaseWatcher
	moves      int
	discovered map[string]bool
	encounters int
}

func NewExplorationWatcher() *ExplorationWatcher {
	return &ExplorationWatcher{
		BaseWatcher: NewBaseWatcher("ExplorationWatcher"),
		discovered:  make(map[string]bool),
	}
}

func (w *ExplorationWatcher) Watch(evt events.Event) {
	switch e := evt.(type) {
	case *events.LocationChanged:
		w.moves++
	case *events.LocationDiscovered:
		w.discovered[e.Key] = true
		w.SetCondition(true)
	case *events.RandomEncounter:
		w.encounters++
	}
}

func (w *ExplorationWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.moves = 0
	w.encounters = 0
	w.discovered = make(map[string]bool)
}

func (w *ExplorationWatcher) Moves() int      { return w.moves }
func (w *ExplorationWatcher) Discovered() int { return len(w.discovered) }

func (w *ExplorationWatcher) Summary() []Stat {
	return []Stat{
		{Label: "Steps taken", Value: w.moves},
		{Label: "Places discovered", Value: len(w.discovered)},
		{Label: "Ambushes", Value: w.encounters},
	}
}

// ItemsUsedWatcher counts items used and skills cast.
type ItemsUsedWatcher struct {
	*BaseWatcher
	items  int
	skills int
}

func NewItemsUsedWatcher() *ItemsUsedWatcher {
	return &ItemsUsedWatcher{BaseWatcher: NewBaseWatcher("ItemsUsedWatcher")}
}

func (w *ItemsUsedWatcher) Watch(evt events.Event) {
	switch evt.(type) {
	case *events.ItemUsed:
		w.items++
		w.SetCondition(true)
	case *events.SkillUsed:
		w.skills++
		w.SetCondition(true)
	}
}

func (w *ItemsUsedWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.items, w.skills = 0, 0
}

func (w *ItemsUsedWatcher) Summary() []Stat {
	return []Stat{
		{Label: "Items used", Value: w.items},
		{Label: "Skills used", Value: w.skills},
	}
}
