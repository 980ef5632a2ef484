// Package presenter turns bus events into narrative text for the front ends.
package presenter

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultLimit bounds the number of lines a Transcript keeps.
const DefaultLimit = 200

// Line is one rendered event.
type Line struct {
	Kind     events.Kind
	Text     string
	Severity events.Severity
}

// Transcript subscribes to a bus and keeps the most recent rendered lines.
type Transcript struct {
	logger *zap.Logger
	title  cases.Caser
	limit  int

	mu      sync.Mutex
	lines   []Line
	unread  int
	bus     *events.Bus
	handle  events.Handle
	verbose bool
}

// Option configures a Transcript.
type Option func(*Transcript)

// WithLimit overrides DefaultLimit.
func WithLimit(n int) Option {
	return func(t *Transcript) {
		if n > 0 {
			t.limit = n
		}
	}
}

// WithVerbose also renders bookkeeping events such as state changes.
func WithVerbose() Option {
	return func(t *Transcript) { t.verbose = true }
}

// NewTranscript creates a detached transcript.
func NewTranscript(logger *zap.Logger, opts ...Option) *Transcript {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Transcript{
		logger: logger.Named("presenter"),
		title:  cases.Title(language.English),
		limit:  DefaultLimit,
		lines:  make([]Line, 0, 32),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Attach subscribes to every event on bus. A transcript follows one bus at a
// time; attaching again moves it.
func (t *Transcript) Attach(bus *events.Bus) {
	t.Detach()
	h := bus.SubscribeAll(func(evt events.Event) error {
		t.Record(evt)
		return nil
	})
	t.mu.Lock()
	t.bus, t.handle = bus, h
	t.mu.Unlock()
}

// Detach stops following the current bus.
func (t *Transcript) Detach() {
	t.mu.Lock()
	bus, h := t.bus, t.handle
	t.bus = nil
	t.mu.Unlock()
	if bus != nil {
		bus.Unsubscribe(h)
	}
}

// Record renders evt and appends it when it produces text.
func (t *Transcript) Record(evt events.Event) {
	text, sev, ok := t.Render(evt)
	if !ok {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, Line{Kind: evt.Kind(), Text: text, Severity: sev})
	if len(t.lines) > t.limit {
		t.lines = t.lines[len(t.lines)-t.limit:]
	}
	t.unread = min(t.unread+1, len(t.lines))
}

// Lines returns a copy of every retained line.
func (t *Transcript) Lines() []Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Line(nil), t.lines...)
}

// Drain returns the lines recorded since the previous Drain.
func (t *Transcript) Drain() []Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := append([]Line(nil), t.lines[len(t.lines)-t.unread:]...)
	t.unread = 0
	return out
}

// Clear drops every line.
func (t *Transcript) Clear() {
	t.mu.Lock()
	t.lines = t.lines[:0]
	t.unread = 0
	t.mu.Unlock()
}

// Texts joins lines into plain strings.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

// Render produces the narrative for a single event. Events that a command
// result already describes, or that carry no player-facing news, return false.
func (t *Transcript) Render(evt events.Event) (string, events.Severity, bool) {
	info := events.SeverityInfo
	switch e := evt.(type) {
	case *events.Message:
		return e.Text, e.Severity, e.Text != ""
	case *events.SystemError:
		return fmt.Sprintf("[%s] %s", e.Component, e.Message), e.Severity, true
	case *events.PersistenceFailed:
		return fmt.Sprintf("Could not %s %q: %v", e.Operation, e.Slot, e.Err), events.SeverityError, true
	case *events.GameSaved:
		return fmt.Sprintf("Game saved to %q.", e.Slot), info, true
	case *events.GameLoaded:
		return fmt.Sprintf("Loaded %q.", e.Slot), info, true
	case *events.LevelUp:
		return fmt.Sprintf("You reached level %d!", e.NewLevel), info, true
	case *events.ExperienceGained:
		return fmt.Sprintf("+%d experience (%d to next level).", e.Amount, max(e.ToNext-e.Total, 0)), info, true
	case *events.GoldChanged:
		if e.Delta > 0 {
			return fmt.Sprintf("+%d gold.", e.Delta), info, true
		}
		return "", info, false
	case *events.ItemAdded:
		return fmt.Sprintf("Added %s to your pack.", e.Item.Name), info, true
	case *events.ItemsRevealed:
		names := make([]string, len(e.Items))
		for i, it := range e.Items {
			names[i] = it.Name
		}
		return "You found: " + strings.Join(names, ", ") + ".", info, true
	case *events.LocationDiscovered:
		return fmt.Sprintf("Discovered %s.", e.Name), info, true
	case *events.RandomEncounter:
		return fmt.Sprintf("A %s ambushes you!", e.Enemy.Name), events.SeverityWarning, true
	case *events.DamageDealt:
		switch {
		case e.Missed:
			return fmt.Sprintf("%s misses %s.", e.Attacker, e.Target), info, true
		case e.Critical:
			return fmt.Sprintf("Critical! %s hits %s for %d.", e.Attacker, e.Target, e.Amount), info, true
		}
		return fmt.Sprintf("%s hits %s for %d.", e.Attacker, e.Target, e.Amount), info, true
	case *events.CombatEnded:
		return fmt.Sprintf("%s: %s.", t.title.String(strings.ToLower(e.Result)), e.Enemy), info, true
	case *events.PlayerDied:
		return "You have fallen.", events.SeverityWarning, true
	case *events.SkillLearned:
		return fmt.Sprintf("Learned %s.", e.Name), info, true
	case *events.SkillsReset:
		return fmt.Sprintf("Forgot %d skills, refunded %d points.", e.Count, e.Refunded), info, true
	case *events.GameStateChanged:
		if t.verbose {
			return fmt.Sprintf("%s -> %s", t.Label(e.From), t.Label(e.To)), info, true
		}
	}
	return "", info, false
}

// Label formats an identifier such as InCombat or IN_COMBAT for display.
func (t *Transcript) Label(id string) string {
	var b strings.Builder
	prev := rune(0)
	for _, r := range id {
		switch {
		case r == '_':
			r = ' '
		case unicode.IsUpper(r) && unicode.IsLower(prev):
			b.WriteRune(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return t.title.String(strings.ToLower(b.String()))
}
