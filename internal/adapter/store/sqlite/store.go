// Package sqlite persists users, messages, notifications, and connection
// requests in a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store implements the domain store interfaces on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dbPath and runs migrations.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			email           TEXT NOT NULL UNIQUE,
			profile_image   TEXT NOT NULL DEFAULT '',
			education       TEXT NOT NULL DEFAULT '',
			location        TEXT NOT NULL DEFAULT '',
			profession      TEXT NOT NULL DEFAULT '',
			skills_offered  TEXT NOT NULL DEFAULT '[]',
			skills_required TEXT NOT NULL DEFAULT '[]',
			rating          REAL NOT NULL DEFAULT 0,
			created_at      TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			from_id    TEXT NOT NULL,
			to_id      TEXT NOT NULL,
			content    TEXT NOT NULL,
			seen       INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages (from_id, to_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_to_unseen ON messages (to_id, seen)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			recipient  TEXT NOT NULL,
			sender     TEXT NOT NULL DEFAULT '',
			type       TEXT NOT NULL,
			title      TEXT NOT NULL DEFAULT '',
			body       TEXT NOT NULL DEFAULT '',
			data       TEXT NOT NULL DEFAULT '{}',
			delivered  INTEGER NOT NULL DEFAULT 0,
			read       INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications (recipient, created_at)`,
		`CREATE TABLE IF NOT EXISTS connections (
			id         TEXT PRIMARY KEY,
			from_id    TEXT NOT NULL,
			to_id      TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'pending',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_connections_users ON connections (from_id, to_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
