package presenter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"go.uber.org/zap/zaptest"
)

func TestTranscriptRendersEvents(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t))
	tr := NewTranscript(zaptest.NewLogger(t))
	tr.Attach(bus)

	bus.Publish(&events.Message{Text: "Welcome."})
	bus.Publish(&events.DamageDealt{Attacker: "Aria", Target: "Goblin", Amount: 14})
	bus.Publish(&events.DamageDealt{Attacker: "Goblin", Target: "Aria", Missed: true})
	bus.Publish(&events.CombatEnded{Result: "VICTORY", Enemy: "Goblin"})
	bus.Publish(&events.GoldChanged{Old: 25, New: 20, Delta: -5})
	bus.Publish(&events.ItemsRevealed{Items: []model.Item{{Name: "Silver Ring"}, {Name: "Torch"}}})
	bus.Publish(&events.PersistenceFailed{Slot: "one", Operation: "load", Err: errors.New("boom")})
	bus.Publish(&events.GameStateChanged{From: "RUNNING", To: "IN_COMBAT"})

	assert.Equal(t, []string{
		"Welcome.",
		"Aria hits Goblin for 14.",
		"Goblin misses Aria.",
		"Victory: Goblin.",
		"You found: Silver Ring, Torch.",
		`Could not load "one": boom`,
	}, Texts(tr.Lines()))

	last := tr.Lines()[5]
	assert.Equal(t, events.KindPersistenceFail, last.Kind)
	assert.Equal(t, events.SeverityError, last.Severity)
}

func TestTranscriptVerboseStateChanges(t *testing.T) {
	tr := NewTranscript(nil, WithVerbose())
	tr.Record(&events.GameStateChanged{From: "Running", To: "InCombat"})
	assert.Equal(t, []string{"Running -> In Combat"}, Texts(tr.Lines()))
	assert.Equal(t, "Game Over", tr.Label("GAME_OVER"))
}

func TestTranscriptDrainAndLimit(t *testing.T) {
	tr := NewTranscript(nil, WithLimit(3))
	for i := range 5 {
		tr.Record(&events.Message{Text: fmt.Sprint(i)})
	}
	assert.Equal(t, []string{"2", "3", "4"}, Texts(tr.Lines()))
	assert.Equal(t, []string{"2", "3", "4"}, Texts(tr.Drain()))
	assert.Empty(t, tr.Drain())

	tr.Record(&events.Message{Text: "5"})
	assert.Equal(t, []string{"5"}, Texts(tr.Drain()))
	assert.Len(t, tr.Lines(), 3)

	tr.Clear()
	assert.Empty(t, tr.Lines())
}

func TestTranscriptDetach(t *testing.T) {
	bus := events.NewBus(nil)
	tr := NewTranscript(nil)
	tr.Attach(bus)
	bus.Publish(&events.Message{Text: "one"})
	tr.Detach()
	bus.Publish(&events.Message{Text: "two"})
	require.Len(t, tr.Lines(), 1)
	assert.Equal(t, 0, bus.HandlerCount(events.KindMessage))
}
