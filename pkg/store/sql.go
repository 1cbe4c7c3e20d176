package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Dialect selects the SQL flavor an SQLStore speaks.
type Dialect string

// Supported dialects. Import the matching driver in the calling program
// (github.com/lib/pq or github.com/mattn/go-sqlite3).
const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SQLStore persists keys in a relational table named clerk_state. The table
// is created on construction if missing.
type SQLStore struct {
	db      *sql.DB
	queries sqlQueries
}

type sqlQueries struct {
	get    string
	set    string
	delete string
}

var dialectQueries = map[Dialect]sqlQueries{
	DialectPostgres: {
		get: `SELECT value FROM clerk_state WHERE key = $1`,
		set: `INSERT INTO clerk_state (key, value, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		delete: `DELETE FROM clerk_state WHERE key = $1`,
	},
	DialectSQLite: {
		get: `SELECT value FROM clerk_state WHERE key = ?`,
		set: `INSERT INTO clerk_state (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		delete: `DELETE FROM clerk_state WHERE key = ?`,
	},
}

// NewSQLStore wraps an open database handle. The caller keeps ownership of
// the handle's lifecycle.
func NewSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	queries, ok := dialectQueries[dialect]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	s := &SQLStore{db: db, queries: queries}
	if err := s.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure clerk_state table: %w", err)
	}
	return s, nil
}

// ensureTable creates the clerk_state table if it doesn't exist.
func (s *SQLStore) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS clerk_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	_, err := s.db.Exec(query)
	return err
}

// Get implements Store.Get.
func (s *SQLStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.queries.get, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %q: %w", key, err)
	}
	return json.RawMessage(value), nil
}

// Set implements Store.Set.
func (s *SQLStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	if _, err := s.db.ExecContext(ctx, s.queries.set, key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.Delete.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.queries.delete, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}
