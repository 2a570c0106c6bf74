package blob

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres stores slots in a shared Postgres table, for deployments where
// several dashboard instances point at one database.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects with sane pool defaults and ensures the slot table.
func NewPostgres(connString string) (*Postgres, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS slots (
		name    TEXT PRIMARY KEY,
		payload BYTEA NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create slots table: %w", err)
	}
	return &Postgres{db: db}, nil
}

// Get returns the slot payload, or nil when absent.
func (p *Postgres) Get(ctx context.Context, slot string) ([]byte, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT payload FROM slots WHERE name = $1`, slot).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select slot %s: %w", slot, err)
	}
	return payload, nil
}

// Set replaces the slot payload.
func (p *Postgres) Set(ctx context.Context, slot string, payload []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO slots (name, payload) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload
	`, slot, payload)
	if err != nil {
		return fmt.Errorf("upsert slot %s: %w", slot, err)
	}
	return nil
}

// Delete removes the slot.
func (p *Postgres) Delete(ctx context.Context, slot string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM slots WHERE name = $1`, slot); err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

// Healthy verifies the database answers a ping.
func (p *Postgres) Healthy(ctx context.Context) bool {
	return p.db.PingContext(ctx) == nil
}

// Close closes the underlying pool.
func (p *Postgres) Close() error { return p.db.Close() }
