package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler reacts to a published event. A returned error is logged and does not
// stop delivery to the remaining handlers.
type Handler func(Event) error

// Filter is evaluated before a handler runs; the handler is skipped when any
// filter returns false.
type Filter func(Event) bool

// Handle identifies a subscription for Unsubscribe.
type Handle int

type subscription struct {
	handle  Handle
	handler Handler
	filters []Filter
}

func (s subscription) accepts(evt Event) bool {
	for _, f := range s.filters {
		if !f(evt) {
			return false
		}
	}
	return true
}

// Bus is a synchronous publish/subscribe dispatcher. Handlers run on the
// publishing goroutine in subscription order: exact-kind subscribers first,
// then catch-all subscribers.
type Bus struct {
	logger *zap.Logger

	mu         sync.Mutex
	byKind     map[Kind][]subscription
	all        []subscription
	nextHandle Handle
	published  uint64
	failures   uint64
}

// NewBus constructs a fresh bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		logger:     logger,
		byKind:     make(map[Kind][]subscription),
		nextHandle: 1,
	}
}

// Subscribe registers a handler for one event kind.
func (b *Bus) Subscribe(kind Kind, handler Handler, filters ...Filter) Handle {
	if handler == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.nextHandle
	b.nextHandle++
	b.byKind[kind] = append(b.byKind[kind], subscription{handle: h, handler: handler, filters: filters})
	return h
}

// SubscribeAll registers a handler for every event.
func (b *Bus) SubscribeAll(handler Handler, filters ...Filter) Handle {
	if handler == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.nextHandle
	b.nextHandle++
	b.all = append(b.all, subscription{handle: h, handler: handler, filters: filters})
	return h
}

// On subscribes a handler typed to one event variant.
func On[T Event](b *Bus, fn func(T) error, filters ...Filter) Handle {
	var zero T
	return b.Subscribe(zero.Kind(), func(evt Event) error {
		typed, ok := evt.(T)
		if !ok {
			return nil
		}
		return fn(typed)
	}, filters...)
}

// Unsubscribe removes a subscription. Removing an unknown handle is a no-op.
func (b *Bus) Unsubscribe(handle Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for kind, subs := range b.byKind {
		for i := range subs {
			if subs[i].handle == handle {
				b.byKind[kind] = append(subs[:i:i], subs[i+1:]...)
				return true
			}
		}
	}
	for i := range b.all {
		if b.all[i].handle == handle {
			b.all = append(b.all[:i:i], b.all[i+1:]...)
			return true
		}
	}
	return false
}

// HandlerCount returns how many handlers would see an event of this kind.
func (b *Bus) HandlerCount(kind Kind) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byKind[kind]) + len(b.all)
}

// Publish delivers the event synchronously and returns the number of handlers
// that failed. The handler list is snapshotted first, so handlers may publish or
// subscribe while being dispatched.
func (b *Bus) Publish(evt Event) int {
	if evt == nil {
		return 0
	}
	stamp(evt)

	b.mu.Lock()
	targets := make([]subscription, 0, len(b.byKind[evt.Kind()])+len(b.all))
	targets = append(targets, b.byKind[evt.Kind()]...)
	targets = append(targets, b.all...)
	b.published++
	b.mu.Unlock()

	failed := 0
	for _, sub := range targets {
		if !sub.accepts(evt) {
			continue
		}
		if err := b.dispatch(sub, evt); err != nil {
			failed++
			b.logger.Warn("event handler failed",
				zap.String("kind", string(evt.Kind())),
				zap.String("event_id", evt.Meta().ID),
				zap.Int("handle", int(sub.handle)),
				zap.Error(err),
			)
		}
	}
	if failed > 0 {
		b.mu.Lock()
		b.failures += uint64(failed)
		b.mu.Unlock()
	}
	return failed
}

// Stats returns the number of published events and handler failures so far.
func (b *Bus) Stats() (published, failures uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.published, b.failures
}

func (b *Bus) dispatch(sub subscription, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return sub.handler(evt)
}

func stamp(evt Event) {
	h := evt.Meta()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	if h.Timestamp.IsZero() {
		h.Timestamp = time.Now()
	}
	h.Cancellable = evt.Kind().IsCancellable()
	if h.Priority == PriorityNormal {
		if p, ok := defaultPriorities[evt.Kind()]; ok {
			h.Priority = p
		}
	}
}
