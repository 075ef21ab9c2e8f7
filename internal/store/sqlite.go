// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides entity, coefficient, owner and outbox persistence with automatic schema creation

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes
	// writers the way SQLite wants them anyway.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			owner      TEXT NOT NULL,
			role       INTEGER NOT NULL,
			name       TEXT NOT NULL,
			details    TEXT NOT NULL,
			rank       INTEGER NOT NULL,
			state      INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS adspaces (
			id         TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			owner      TEXT NOT NULL,
			name       TEXT NOT NULL,
			url        TEXT NOT NULL,
			details    TEXT NOT NULL,
			categories TEXT NOT NULL,
			state      INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS offers (
			id           TEXT PRIMARY KEY,
			created_at   TEXT NOT NULL,
			owner        TEXT NOT NULL,
			name         TEXT NOT NULL,
			hit_price    INTEGER NOT NULL,
			action_price INTEGER NOT NULL,
			details      TEXT NOT NULL,
			categories   TEXT NOT NULL,
			state        INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS hits (
			id         TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			hit_type   INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			space_id   TEXT NOT NULL,
			offer_id   TEXT NOT NULL,
			amount     INTEGER NOT NULL,
			details    TEXT NOT NULL,
			categories TEXT NOT NULL,
			state      INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS coefficients (
			kind       TEXT NOT NULL,
			entity_id  TEXT NOT NULL,
			vals       TEXT NOT NULL,
			updated_at TEXT NOT NULL,

			PRIMARY KEY (kind, entity_id),
			CHECK (kind IN ('user', 'adspace', 'offer', 'hit'))
		);

		CREATE TABLE IF NOT EXISTS owners (
			caller     TEXT PRIMARY KEY,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS events (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id   TEXT NOT NULL UNIQUE,
			type       TEXT NOT NULL,
			entity_id  TEXT NOT NULL,
			owner      TEXT NOT NULL DEFAULT '',
			offer_id   TEXT NOT NULL DEFAULT '',
			amount     INTEGER NOT NULL DEFAULT 0,
			ts         TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_entity ON events(entity_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// Timestamps keep nanoseconds so a write followed by a read returns the same
// instant.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func encodeCategories(c Categories) (string, error) {
	if c == nil {
		c = Categories{}
	}
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshaling categories: %w", err)
	}
	return string(data), nil
}

func decodeCategories(s string) (Categories, error) {
	var c Categories
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return nil, fmt.Errorf("unmarshaling categories: %w", err)
	}
	if len(c) == 0 {
		return nil, nil
	}
	return c, nil
}

// parseUUID parses a stored id column. An empty column is uuid.Nil.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(s)
}
