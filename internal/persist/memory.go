package persist

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
)

// MemoryStore keeps encoded snapshots in memory. Saves still go through Encode
// and Decode, so a loaded snapshot never aliases the saved one.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (s *MemoryStore) Save(ctx context.Context, slot string, save *model.GameSave) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slot, err := NormalizeSlot(slot)
	if err != nil {
		return err
	}
	data, err := Encode(save)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot] = data
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, slot string) (*model.GameSave, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slot, err := NormalizeSlot(slot)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.slots[slot]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", slot, ErrNotFound)
	}
	return Decode(data)
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	slots := make([]string, 0, len(s.slots))
	for slot := range s.slots {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	return slots, nil
}

func (s *MemoryStore) Delete(ctx context.Context, slot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slot, err := NormalizeSlot(slot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slots[slot]; !ok {
		return fmt.Errorf("%s: %w", slot, ErrNotFound)
	}
	delete(s.slots, slot)
	return nil
}
