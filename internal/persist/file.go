package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"go.uber.org/zap"
)

const saveExt = ".json"

// FileStore keeps one JSON file per slot in a directory.
type FileStore struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewFileStore creates a store rooted at dir. The directory is created on the
// first save.
func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{dir: dir, logger: logger.Named("persist")}
}

func (s *FileStore) path(slot string) string {
	return filepath.Join(s.dir, slot+saveExt)
}

// Save writes the snapshot to a temporary file and renames it over the slot so
// a crash never leaves a half-written save.
func (s *FileStore) Save(ctx context.Context, slot string, save *model.GameSave) error {
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

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, slot+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write save: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close save: %w", err)
	}
	if err := os.Rename(tmpName, s.path(slot)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit save: %w", err)
	}
	s.logger.Info("game saved", zap.String("slot", slot), zap.Int("bytes", len(data)))
	return nil
}

// Load reads a slot.
func (s *FileStore) Load(ctx context.Context, slot string) (*model.GameSave, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slot, err := NormalizeSlot(slot)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.path(slot))
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", slot, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read save: %w", err)
	}
	save, err := Decode(data)
	if err != nil {
		s.logger.Warn("corrupt save", zap.String("slot", slot), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", slot, err)
	}
	return save, nil
}

// List returns the slot names in sorted order.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list saves: %w", err)
	}
	slots := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, saveExt) {
			continue
		}
		slots = append(slots, strings.TrimSuffix(name, saveExt))
	}
	sort.Strings(slots)
	return slots, nil
}

// Delete removes a slot.
func (s *FileStore) Delete(ctx context.Context, slot string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	slot, err := NormalizeSlot(slot)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(slot)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s: %w", slot, ErrNotFound)
		}
		return fmt.Errorf("failed to delete save: %w", err)
	}
	return nil
}
