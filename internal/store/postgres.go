package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Store struct{ DB *sql.DB }

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{DB: db}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Close() error { return s.DB.Close() }

var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		username      TEXT NOT NULL,
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_username ON users(username);`,
	`CREATE TABLE IF NOT EXISTS provider_raw_snapshots (
		id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		provider       TEXT NOT NULL,
		endpoint       TEXT NOT NULL,
		property_key   TEXT NOT NULL,
		payload        JSONB NOT NULL,
		payload_sha256 TEXT NOT NULL,
		shape          TEXT NOT NULL,
		sold_count     INT NOT NULL DEFAULT 0,
		pending_count  INT NOT NULL DEFAULT 0,
		active_count   INT NOT NULL DEFAULT 0,
		requested_by   TEXT,
		fetched_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_provider ON provider_raw_snapshots(provider, endpoint, fetched_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_property ON provider_raw_snapshots(property_key, fetched_at DESC);`,
}

func (s *Store) Migrate(ctx context.Context) error {
	for i, q := range migrations {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
