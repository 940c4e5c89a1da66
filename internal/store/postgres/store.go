// Package postgres implements store.Durable over PostgreSQL using pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds PostgreSQL connection configuration, matching
// internal/config.DurableConfig's DSN-based shape.
type Config struct {
	DSN            string
	MaxConnections int32
}

// Store implements store.Durable.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL-backed durable store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Schema is the DDL applied at bootstrap (teacher applies migrations out
// of band; this server ships the DDL inline since it owns exactly five
// tables).
const Schema = `
CREATE TABLE IF NOT EXISTS identities (
	whisper_id TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS devices (
	whisper_id      TEXT PRIMARY KEY REFERENCES identities(whisper_id),
	device_id       TEXT NOT NULL,
	platform        TEXT NOT NULL,
	enc_public_key  BYTEA NOT NULL,
	sign_public_key BYTEA NOT NULL,
	push_token      TEXT,
	voip_token      TEXT,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS bans (
	whisper_id TEXT PRIMARY KEY REFERENCES identities(whisper_id),
	reason     TEXT NOT NULL,
	banned_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	banned_by  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS contact_backups (
	whisper_id TEXT PRIMARY KEY REFERENCES identities(whisper_id),
	nonce      BYTEA NOT NULL,
	ciphertext BYTEA NOT NULL,
	size_bytes INTEGER NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS attachment_refs (
	object_key TEXT PRIMARY KEY,
	uploader   TEXT NOT NULL,
	recipient  TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
