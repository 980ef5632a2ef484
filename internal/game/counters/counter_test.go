package counters

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterNeverNegative(t *testing.T) {
	c := &Counter{Name: "fireball", Count: 2}
	c.Remove(5)
	assert.Equal(t, 0, c.Count)

	c.Count = 3
	c.Remove(-1)
	assert.Equal(t, 3, c.Count)
}

func TestCountersTick(t *testing.T) {
	cs := NewCounters()
	cs.Set("fireball", 2)
	cs.Set("heal", 1)
	cs.Set("ignored", 0)

	assert.Len(t, cs.Counters, 2)

	expired := cs.Tick()
	assert.Equal(t, []string{"heal"}, expired)
	assert.Equal(t, 1, cs.GetCount("fireball"))
	assert.False(t, cs.HasCounter("heal"))

	expired = cs.Tick()
	assert.Equal(t, []string{"fireball"}, expired)
	assert.Empty(t, cs.Counters)
	assert.Empty(t, cs.Tick())
}

func TestCountersSetAndClear(t *testing.T) {
	cs := NewCounters()
	cs.Set("rage", 2)
	cs.Set("rage", 5)
	assert.Equal(t, 5, cs.GetCount("rage"))

	cs.Set("rage", -1)
	assert.False(t, cs.HasCounter("rage"))
	assert.Equal(t, 0, cs.GetCount("missing"))

	cs.Set("a", 3)
	cs.Set("b", 1)
	cs.Clear()
	assert.Empty(t, cs.Counters)
	assert.False(t, cs.HasCounter("a"))
}
