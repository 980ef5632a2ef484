package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wayfarer-rpg/wayfarer/internal/game/model"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps every slot as a row in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at dsn and runs migrations.
// Example DSN: "file:wayfarer.db?cache=shared&mode=rwc"
func NewSQLiteStore(ctx context.Context, dsn string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLiteStore{db: sqldb, logger: logger.Named("persist")}
	if err := s.migrate(ctx); err != nil {
		sqldb.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS saves (
			slot TEXT PRIMARY KEY,
			player TEXT NOT NULL,
			level INTEGER NOT NULL,
			location TEXT NOT NULL,
			checksum TEXT NOT NULL,
			data BLOB NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_saves_saved_at ON saves(saved_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, slot string, save *model.GameSave) error {
	slot, err := NormalizeSlot(slot)
	if err != nil {
		return err
	}
	data, err := Encode(save)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO saves(slot, player, level, location, checksum, data, saved_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET
			player = excluded.player,
			level = excluded.level,
			location = excluded.location,
			checksum = excluded.checksum,
			data = excluded.data,
			saved_at = excluded.saved_at`,
		slot, save.Player.Name, save.Player.Level, save.CurrentLocation,
		Checksum(data), data, save.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save %s: %w", slot, err)
	}
	s.logger.Info("game saved", zap.String("slot", slot), zap.Int("bytes", len(data)))
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, slot string) (*model.GameSave, error) {
	slot, err := NormalizeSlot(slot)
	if err != nil {
		return nil, err
	}
	var (
		data     []byte
		checksum string
	)
	row := s.db.QueryRowContext(ctx, `SELECT data, checksum FROM saves WHERE slot = ?`, slot)
	if err := row.Scan(&data, &checksum); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", slot, ErrNotFound)
		}
		return nil, fmt.Errorf("load %s: %w", slot, err)
	}
	if Checksum(data) != checksum {
		return nil, fmt.Errorf("%s: %w: row checksum mismatch", slot, ErrCorrupt)
	}
	save, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", slot, err)
	}
	return save, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slot FROM saves ORDER BY slot ASC`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()
	slots := []string{}
	for rows.Next() {
		var slot string
		if err := rows.Scan(&slot); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, slot string) error {
	slot, err := NormalizeSlot(slot)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot)
	if err != nil {
		return fmt.Errorf("delete %s: %w", slot, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", slot, ErrNotFound)
	}
	return nil
}
