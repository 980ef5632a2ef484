// Package random provides the randomness used by combat and exploration.
//
// Every consumer draws through Source so a game can be replayed from a seed or
// driven by a scripted sequence in tests.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
)

// Source is the subset of *rand.Rand the game uses.
type Source interface {
	// Intn returns a value in [0, n).
	Intn(n int) int
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Seeded returns a deterministic source for the seed.
func Seeded(seed int64) Source {
	return rand.New(rand.NewSource(seed))
}

// Between returns a uniform integer in [lo, hi].
func Between(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}

// Chance reports whether a draw falls under probability p.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return src.Float64() < p
}

// Fixed always returns the midpoint for Intn and Float for Float64. With a high
// Float every Chance below it fails, which removes jitter, misses and criticals.
type Fixed struct {
	Float float64
}

func (f Fixed) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return n / 2
}

func (f Fixed) Float64() float64 {
	return f.Float
}

// Script replays queued values and falls back to Fixed once a queue runs dry.
type Script struct {
	Ints     []int
	Floats   []float64
	Fallback Fixed
}

func (s *Script) Intn(n int) int {
	if len(s.Ints) == 0 {
		return s.Fallback.Intn(n)
	}
	v := s.Ints[0]
	s.Ints = s.Ints[1:]
	if n <= 0 {
		return 0
	}
	if v < 0 {
		v = 0
	}
	return v % n
}

func (s *Script) Float64() float64 {
	if len(s.Floats) == 0 {
		return s.Fallback.Float64()
	}
	v := s.Floats[0]
	s.Floats = s.Floats[1:]
	return v
}
