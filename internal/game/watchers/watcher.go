// Package watchers tracks session statistics by observing bus events.
package watchers

import (
	"sort"
	"sync"

	"github.com/wayfarer-rpg/wayfarer/internal/game/events"
)

// Watcher observes events and accumulates some condition or tally.
type Watcher interface {
	// Watch is called for every event the registry sees.
	Watch(evt events.Event)

	// Reset clears accumulated state, typically when a new game starts.
	Reset()

	// ConditionMet reports whether the watched thing has happened at least once.
	ConditionMet() bool

	// Key uniquely identifies the watcher within a registry.
	Key() string

	// Summary renders the watcher's tally as label/value pairs.
	Summary() []Stat
}

// Stat is one line of a statistics summary.
type Stat struct {
	Label string
	Value int
}

// BaseWatcher carries the key and condition flag shared by every watcher.
type BaseWatcher struct {
	key       string
	condition bool
}

// NewBaseWatcher creates a base watcher with the given key.
func NewBaseWatcher(key string) *BaseWatcher {
	return &BaseWatcher{key: key}
}

func (bw *BaseWatcher) Key() string { return bw.key }

func (bw *BaseWatcher) ConditionMet() bool { return bw.condition }

func (bw *BaseWatcher) SetCondition(condition bool) { bw.condition = condition }

func (bw *BaseWatcher) Reset() { bw.condition = false }

// Registry fans bus events out to its watchers.
type Registry struct {
	mu       sync.RWMutex
	watchers map[string]Watcher
	order    []string
	handle   events.Handle
	bus      *events.Bus
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{watchers: make(map[string]Watcher)}
}

// NewDefaultRegistry creates a registry holding every built-in watcher.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Add(NewEnemiesDefeatedWatcher())
	r.Add(NewDamageWatcher())
	r.Add(NewGoldWatcher())
	r.Add(NewExplorationWatcher())
	r.Add(NewItemsUsedWatcher())
	return r
}

// Add registers w, replacing any watcher with the same key.
func (r *Registry) Add(w Watcher) {
	if w == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.watchers[w.Key()]; !ok {
		r.order = append(r.order, w.Key())
	}
	r.watchers[w.Key()] = w
}

// Remove drops the watcher with the given key.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.watchers[key]; !ok {
		return
	}
	delete(r.watchers, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the watcher with the given key, or nil.
func (r *Registry) Get(key string) Watcher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.watchers[key]
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := append([]string(nil), r.order...)
	sort.Strings(keys)
	return keys
}

// Attach subscribes the registry to every event on bus. Attaching again moves
// the subscription to the new bus.
func (r *Registry) Attach(bus *events.Bus) {
	r.Detach()
	r.mu.Lock()
	r.bus = bus
	r.mu.Unlock()
	h := bus.SubscribeAll(func(evt events.Event) error {
		r.Watch(evt)
		return nil
	})
	r.mu.Lock()
	r.handle = h
	r.mu.Unlock()
}

// Detach removes the bus subscription, if any.
func (r *Registry) Detach() {
	r.mu.Lock()
	bus, h := r.bus, r.handle
	r.bus = nil
	r.mu.Unlock()
	if bus != nil {
		bus.Unsubscribe(h)
	}
}

// Watch hands evt to every watcher in registration order.
func (r *Registry) Watch(evt events.Event) {
	r.mu.RLock()
	list := make([]Watcher, 0, len(r.order))
	for _, k := range r.order {
		list = append(list, r.watchers[k])
	}
	r.mu.RUnlock()
	for _, w := range list {
		w.Watch(evt)
	}
}

// Reset clears every watcher.
func (r *Registry) Reset() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.watchers {
		w.Reset()
	}
}

// Summary concatenates every watcher's stats in registration order.
func (r *Registry) Summary() []Stat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Stat
	for _, k := range r.order {
		out = append(out, r.watchers[k].Summary()...)
	}
	return out
}
