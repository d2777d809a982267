package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens a pooled *sqlx.DB and verifies connectivity with a ping.
func Connect(ctx context.Context, dsn string, maxConns int) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS identities (
  id            TEXT PRIMARY KEY,
  email         TEXT NOT NULL,
  name          TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  phone_number  TEXT,
  department    TEXT NOT NULL DEFAULT '',
  academic_year TEXT NOT NULL DEFAULT '',
  hostel        TEXT NOT NULL DEFAULT '',
  verified      BOOLEAN NOT NULL DEFAULT false,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS identities_email_key ON identities (lower(email));
CREATE INDEX IF NOT EXISTS identities_verified_idx ON identities (verified);

CREATE TABLE IF NOT EXISTS listings (
  id          TEXT PRIMARY KEY,
  owner_id    TEXT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
  title       TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  price       NUMERIC(12,2) NOT NULL DEFAULT 0,
  condition   TEXT NOT NULL DEFAULT '',
  image_key   TEXT,
  status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved')),
  created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS listings_status_idx ON listings (status, created_at DESC);
CREATE INDEX IF NOT EXISTS listings_owner_idx ON listings (owner_id);

CREATE TABLE IF NOT EXISTS requests (
  id          TEXT PRIMARY KEY,
  owner_id    TEXT NOT NULL REFERENCES identities(id) ON DELETE CASCADE,
  title       TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  budget      NUMERIC(12,2),
  urgent      BOOLEAN NOT NULL DEFAULT false,
  status      TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved')),
  created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS requests_status_idx ON requests (status, created_at DESC);
CREATE INDEX IF NOT EXISTS requests_owner_idx ON requests (owner_id);
`

// EnsureSchema creates the tables if they do not exist (idempotent).
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
