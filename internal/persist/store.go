// Package persist stores GameSave snapshots in named slots.
package persist

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrNotFound    = errors.New("save not found")
	ErrCorrupt     = errors.New("save is corrupt")
	ErrInvalidSlot = errors.New("invalid save slot name")
)

// DefaultSlot is used when a save or load names no slot.
const DefaultSlot = "quicksave"

const envelopeFormat = "wayfarer-save"

// Store reads and writes whole snapshots. Partial saves are not supported.
type Store interface {
	Save(ctx context.Context, slot string, save *model.GameSave) error
	Load(ctx context.Context, slot string) (*model.GameSave, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, slot string) error
}

// envelope wraps the snapshot with a checksum so truncated or edited files are
// reported as corrupt rather than loaded.
type envelope struct {
	Format   string          `json:"format"`
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"`
	SavedAt  time.Time       `json:"saved_at"`
	Save     json.RawMessage `json:"save"`
}

// NormalizeSlot trims and lower-cases a slot name and rejects anything that is
// not letters, digits, '-' or '_'.
func NormalizeSlot(slot string) (string, error) {
	slot = strings.ToLower(strings.TrimSpace(slot))
	if slot == "" {
		return DefaultSlot, nil
	}
	if len(slot) > 64 {
		return "", fmt.Errorf("%q: %w", slot, ErrInvalidSlot)
	}
	for _, r := range slot {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return "", fmt.Errorf("%q: %w", slot, ErrInvalidSlot)
		}
	}
	return slot, nil
}

// Checksum returns the hex blake2b-256 digest of data.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Encode serializes a snapshot into a checksummed envelope.
func Encode(save *model.GameSave) ([]byte, error) {
	if save == nil || save.Player == nil {
		return nil, errors.New("encode save: snapshot has no player")
	}
	body, err := json.Marshal(save)
	if err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	env := envelope{
		Format:   envelopeFormat,
		Version:  save.Version,
		Checksum: Checksum(body),
		SavedAt:  save.Timestamp,
		Save:     body,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return data, nil
}

// Decode verifies and deserializes an envelope produced by Encode.
func Decode(data []byte) (*model.GameSave, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Format != envelopeFormat {
		return nil, fmt.Errorf("%w: unexpected format %q", ErrCorrupt, env.Format)
	}
	if env.Version > model.SaveVersion {
		return nil, fmt.Errorf("%w: version %d is newer than %d", ErrCorrupt, env.Version, model.SaveVersion)
	}
	// Reformatting the file must not invalidate it, so the digest covers the
	// compact form of the snapshot.
	var body bytes.Buffer
	if err := json.Compact(&body, env.Save); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if got := Checksum(body.Bytes()); got != env.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}
	var save model.GameSave
	if err := json.Unmarshal(env.Save, &save); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if save.Player == nil || len(save.Locations) == 0 {
		return nil, fmt.Errorf("%w: snapshot is incomplete", ErrCorrupt)
	}
	if _, ok := save.Locations[save.CurrentLocation]; !ok {
		return nil, fmt.Errorf("%w: current location %q is not in the world", ErrCorrupt, save.CurrentLocation)
	}
	return &save, nil
}
