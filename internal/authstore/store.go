package authstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store looks up API clients by key against Postgres.
type Store struct {
	db *sql.DB
}

// Config holds the store's connection pool settings.
type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	ConnMaxLife  time.Duration
}

// New opens a connection pool against cfg.DSN and verifies it with a ping.
func New(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLife > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLife)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// NewWithDB wraps an already-open *sql.DB as a Store, bypassing New's
// sql.Open/ping dance. Used by tests to inject a sqlmock-backed pool.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for schema migration at startup.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping verifies the connection is still alive, used by the /ready probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetClientByAPIKey looks up the client owning apiKey. It returns
// (nil, nil) when no client has that key, mirroring the teacher's
// not-found-as-nil convention rather than a sentinel error.
func (s *Store) GetClientByAPIKey(ctx context.Context, apiKey string) (*Client, error) {
	const query = `
		SELECT id, name, is_active, created_at, last_used_at, metadata
		FROM api_clients
		WHERE api_key = $1
	`

	var c Client
	var lastUsedAt sql.NullTime
	var metadataJSON []byte

	err := s.db.QueryRowContext(ctx, query, apiKey).Scan(
		&c.ID,
		&c.Name,
		&c.IsActive,
		&c.CreatedAt,
		&lastUsedAt,
		&metadataJSON,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if lastUsedAt.Valid {
		c.LastUsedAt = &lastUsedAt.Time
	}
	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &c.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal client metadata: %w", err)
		}
	}

	return &c, nil
}

// UpdateLastUsed stamps apiKey's last_used_at with the current time.
func (s *Store) UpdateLastUsed(ctx context.Context, apiKey string) error {
	const query = `UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`
	if _, err := s.db.ExecContext(ctx, query, apiKey); err != nil {
		return fmt.Errorf("failed to update client last_used_at: %w", err)
	}
	return nil
}
