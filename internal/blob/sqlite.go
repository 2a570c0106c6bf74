package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLite stores slots in a single-table SQLite file. This is the default
// backend: one local file holding the whole dashboard state.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database file and ensures the slot table.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "studentdesk.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS slots (
		name    TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create slots table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Get returns the slot payload, or nil when absent.
func (s *SQLite) Get(ctx context.Context, slot string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM slots WHERE name = ?`, slot).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select slot %s: %w", slot, err)
	}
	return payload, nil
}

// Set replaces the slot payload.
func (s *SQLite) Set(ctx context.Context, slot string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO slots (name, payload) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET payload = excluded.payload
	`, slot, payload)
	if err != nil {
		return fmt.Errorf("upsert slot %s: %w", slot, err)
	}
	return nil
}

// Delete removes the slot.
func (s *SQLite) Delete(ctx context.Context, slot string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE name = ?`, slot); err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

// Healthy verifies the database answers a ping.
func (s *SQLite) Healthy(ctx context.Context) bool {
	return s.db.PingContext(ctx) == nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }
