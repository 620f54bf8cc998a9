package postgres

import (
	"context"
	"database/sql"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/usevoxlog/voxlog/internal/profile"
	"github.com/usevoxlog/voxlog/store"
)

// DB is the PostgreSQL driver. PostgreSQL is the primary production database:
// vector search runs on pgvector and keyword search on ts_rank.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL-backed store driver.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// Connection pool sized for a small personal instance.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const latestSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS users (
	id SERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	email TEXT NOT NULL DEFAULT '',
	created_ts BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS journal_entry (
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	creator_id INTEGER NOT NULL REFERENCES users(id),
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL,
	row_status TEXT NOT NULL DEFAULT 'NORMAL',
	title TEXT,
	content TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_journal_entry_creator_id ON journal_entry (creator_id);

CREATE TABLE IF NOT EXISTS entry_embedding (
	id SERIAL PRIMARY KEY,
	entry_id INTEGER NOT NULL REFERENCES journal_entry(id) ON DELETE CASCADE,
	model TEXT NOT NULL,
	embedding vector NOT NULL,
	created_ts BIGINT NOT NULL,
	updated_ts BIGINT NOT NULL,
	UNIQUE (entry_id, model)
);

CREATE TABLE IF NOT EXISTS comment (
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	entry_id INTEGER NOT NULL REFERENCES journal_entry(id) ON DELETE CASCADE,
	creator_id INTEGER NOT NULL REFERENCES users(id),
	created_ts BIGINT NOT NULL,
	content TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_comment_entry_id ON comment (entry_id);
`

// Migrate applies the latest schema. Statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, latestSchema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}
