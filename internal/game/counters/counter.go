// Package counters tracks named countdowns such as skill cooldowns.
package counters

import "sort"

// Counter is a named count that never drops below zero.
type Counter struct {
	Name  string
	Count int
}

// Remove subtracts a positive amount, stopping at zero.
func (c *Counter) Remove(amount int) {
	if amount <= 0 {
		return
	}
	if c.Count >= amount {
		c.Count -= amount
	} else {
		c.Count = 0
	}
}

// Counters is a collection keyed by name. Zeroed counters are dropped.
type Counters struct {
	Counters map[string]*Counter
}

// NewCounters creates an empty collection.
func NewCounters() *Counters {
	return &Counters{Counters: make(map[string]*Counter)}
}

// Set replaces a counter's value; zero or less removes it.
func (cs *Counters) Set(name string, count int) {
	if count <= 0 {
		delete(cs.Counters, name)
		return
	}
	cs.Counters[name] = &Counter{Name: name, Count: count}
}

// Tick decrements every counter by one and returns the names that reached zero,
// sorted.
func (cs *Counters) Tick() []string {
	var expired []string
	for name, counter := range cs.Counters {
		counter.Remove(1)
		if counter.Count == 0 {
			delete(cs.Counters, name)
			expired = append(expired, name)
		}
	}
	sort.Strings(expired)
	return expired
}

// GetCount returns the count for a name, zero if absent.
func (cs *Counters) GetCount(name string) int {
	if counter, ok := cs.Counters[name]; ok {
		return counter.Count
	}
	return 0
}

// HasCounter reports whether a name has a positive count.
func (cs *Counters) HasCounter(name string) bool {
	return cs.GetCount(name) > 0
}

// Clear removes every counter.
func (cs *Counters) Clear() {
	cs.Counters = make(map[string]*Counter)
}
