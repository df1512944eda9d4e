package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/unispaces/internal/persistence"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database handle shared by the repositories.
type Store struct {
	db *sql.DB
}

// Open establishes a SQLite connection for the provided DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// The modernc driver serializes writes; one connection avoids busy errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// migrations is the ordered list of schema versions. Applied versions are
// recorded in schema_migrations and never re-run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE COLLATE NOCASE,
		email TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL,
		university TEXT,
		bio TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		revoked_at TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS study_rooms (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS room_participants (
		id TEXT PRIMARY KEY,
		room_id TEXT NOT NULL REFERENCES study_rooms(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		joined_at TEXT NOT NULL,
		last_active TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		UNIQUE (room_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS room_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT NOT NULL REFERENCES study_rooms(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS study_blocks (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		day_index INTEGER,
		date TEXT,
		start_date TEXT,
		end_date TEXT,
		start_hour REAL NOT NULL,
		duration REAL NOT NULL,
		block_type TEXT NOT NULL CHECK (block_type IN ('fixed', 'ai')),
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS friendships (
		id TEXT PRIMARY KEY,
		from_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		to_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL,
		UNIQUE (from_user_id, to_user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS communities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		description TEXT,
		color TEXT NOT NULL,
		parent_id TEXT REFERENCES communities(id) ON DELETE SET NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS community_memberships (
		id TEXT PRIMARY KEY,
		community_id TEXT NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		joined_at TEXT NOT NULL,
		UNIQUE (community_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS community_posts (
		id TEXT PRIMARY KEY,
		community_id TEXT NOT NULL REFERENCES communities(id) ON DELETE CASCADE,
		author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS textbooks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		description TEXT,
		cover_image_url TEXT,
		open_access_url TEXT NOT NULL,
		isbn TEXT,
		provider TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_room_messages_room_id ON room_messages(room_id, id)`,
	`CREATE INDEX IF NOT EXISTS idx_room_participants_room ON room_participants(room_id, last_active)`,
	`CREATE INDEX IF NOT EXISTS idx_study_blocks_owner ON study_blocks(owner_id)`,
}

// Migrate applies any schema versions not yet recorded in schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for version := current + 1; version <= len(migrations); version++ {
		err := s.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(migrations[version-1]); err != nil {
				return fmt.Errorf("migration %d failed: %w", version, err)
			}
			if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// WithTransaction executes fn inside a transaction, rolling back on error.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// mapError converts driver-level errors into persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return persistence.ErrNotFound
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return persistence.ErrDuplicate
	case strings.Contains(msg, "CHECK constraint failed"),
		strings.Contains(msg, "NOT NULL constraint failed"),
		strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return persistence.ErrConstraintViolation
	}

	return err
}
