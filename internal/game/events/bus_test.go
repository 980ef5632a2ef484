package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBusSubscribeByKind(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))

	healthCount := 0
	goldCount := 0

	h1 := bus.Subscribe(KindHealthChanged, func(Event) error {
		healthCount++
		return nil
	})
	bus.Subscribe(KindGoldChanged, func(Event) error {
		goldCount++
		return nil
	})

	bus.Publish(&HealthChanged{Old: 10, New: 5, Max: 10})
	assert.Equal(t, 1, healthCount)
	assert.Equal(t, 0, goldCount)

	bus.Publish(&GoldChanged{Old: 0, New: 5, Delta: 5})
	assert.Equal(t, 1, healthCount)
	assert.Equal(t, 1, goldCount)

	assert.True(t, bus.Unsubscribe(h1))
	assert.False(t, bus.Unsubscribe(h1), "second unsubscribe is a no-op")

	bus.Publish(&HealthChanged{Old: 5, New: 4, Max: 10})
	assert.Equal(t, 1, healthCount)
}

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus(nil)

	var order []string
	bus.SubscribeAll(func(Event) error {
		order = append(order, "all")
		return nil
	})
	for _, name := range []string{"first", "second", "third"} {
		name := name
		bus.Subscribe(KindMessage, func(Event) error {
			order = append(order, name)
			return nil
		})
	}

	bus.Publish(&Message{Text: "hello", Header: Header{Priority: PriorityCritical}})

	assert.Equal(t, []string{"first", "second", "third", "all"}, order)
}

func TestBusHandlerFailuresDoNotStopDispatch(t *testing.T) {
	bus := NewBus(zaptest.NewLogger(t))

	reached := 0
	bus.Subscribe(KindMessage, func(Event) error { return errors.New("boom") })
	bus.Subscribe(KindMessage, func(Event) error { panic("handler exploded") })
	bus.Subscribe(KindMessage, func(Event) error {
		reached++
		return nil
	})

	failed := bus.Publish(&Message{Text: "x"})

	assert.Equal(t, 2, failed)
	assert.Equal(t, 1, reached)
	published, failures := bus.Stats()
	assert.Equal(t, uint64(1), published)
	assert.Equal(t, uint64(2), failures)
}

func TestBusFilters(t *testing.T) {
	bus := NewBus(nil)

	var seen []int
	bus.Subscribe(KindHealthChanged, func(evt Event) error {
		seen = append(seen, evt.(*HealthChanged).New)
		return nil
	}, func(evt Event) bool {
		return evt.(*HealthChanged).New == 0
	})

	bus.Publish(&HealthChanged{New: 50})
	bus.Publish(&HealthChanged{New: 0})

	assert.Equal(t, []int{0}, seen)
}

func TestBusCancellation(t *testing.T) {
	bus := NewBus(nil)

	bus.Subscribe(KindLocationChanging, func(evt Event) error {
		assert.True(t, evt.Meta().Cancel())
		return nil
	})
	bus.Subscribe(KindLocationChanged, func(evt Event) error {
		assert.False(t, evt.Meta().Cancel(), "non-cancellable events ignore Cancel")
		return nil
	})

	changing := &LocationChanging{From: "village", To: "forest"}
	bus.Publish(changing)
	assert.True(t, changing.Cancellable)
	assert.True(t, changing.Cancelled())

	changed := &LocationChanged{From: "village", To: "forest"}
	bus.Publish(changed)
	assert.False(t, changed.Cancelled())
}

func TestBusStampsHeader(t *testing.T) {
	bus := NewBus(nil)

	started := &CombatStarted{Location: "forest"}
	bus.Publish(started)

	assert.NotEmpty(t, started.ID)
	assert.False(t, started.Timestamp.IsZero())
	assert.Equal(t, PriorityHigh, started.Priority)
}

func TestTypedSubscription(t *testing.T) {
	bus := NewBus(nil)

	var levels []int
	On(bus, func(evt *LevelUp) error {
		levels = append(levels, evt.NewLevel)
		return nil
	})

	bus.Publish(&LevelUp{OldLevel: 1, NewLevel: 2})
	bus.Publish(&Message{Text: "ignored"})
	bus.Publish(&LevelUp{OldLevel: 2, NewLevel: 3})

	assert.Equal(t, []int{2, 3}, levels)
	assert.Equal(t, 1, bus.HandlerCount(KindLevelUp))
}

func TestBusReentrantPublish(t *testing.T) {
	bus := NewBus(nil)

	died := 0
	bus.Subscribe(KindHealthChanged, func(evt Event) error {
		if evt.(*HealthChanged).New == 0 {
			bus.Publish(&PlayerDied{Cause: "test"})
		}
		return nil
	})
	bus.Subscribe(KindPlayerDied, func(Event) error {
		died++
		return nil
	})

	require.Equal(t, 0, bus.Publish(&HealthChanged{Old: 3, New: 0}))
	assert.Equal(t, 1, died)
}

func TestNilHandlersAndEvents(t *testing.T) {
	bus := NewBus(nil)
	assert.Equal(t, Handle(0), bus.Subscribe(KindMessage, nil))
	assert.Equal(t, Handle(0), bus.SubscribeAll(nil))
	assert.Equal(t, 0, bus.Publish(nil))
}
