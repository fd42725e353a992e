// Package store provides the persistent state for the update tracker:
// canonical libraries, per-project component declarations, release
// history, per-project notification watermarks, and future-update
// lifecycle records. State lives in a single SQLite database opened
// with a single writer, so every read-decide-write sequence runs in a
// serialized transaction.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

const currentSchemaVersion = 1

// Error variables for store errors
var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so query helpers can
// run inside or outside an explicit transaction.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store represents the tracker's persistent state.
type Store struct {
	db *sql.DB
	queries
}

// Tx is an open transaction over the store. All queries methods are
// available on it; the caller must Commit or Rollback.
type Tx struct {
	tx *sql.Tx
	queries
}

// queries holds the shared query implementations.
type queries struct {
	q dbtx
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	// WAL with a busy timeout; immediate transactions take the write
	// lock up front so concurrent passes serialize instead of failing.
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &Store{db: db, queries: queries{q: db}}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return store, nil
}

// migrate applies the schema if it has not been applied yet.
func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		// Table missing on first open
		version = 0
	}

	if version >= currentSchemaVersion {
		return nil
	}

	if _, err := s.db.Exec(schemaV1); err != nil {
		return fmt.Errorf("failed to apply schema v1: %w", err)
	}
	if _, err := s.db.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// Begin starts a write transaction. Because the connection pool holds a
// single connection and the DSN requests immediate locking, the
// transaction owns the database for its duration, giving the engine its
// atomic read-decide-write critical section.
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx, queries: queries{q: tx}}, nil
}

// WithTx runs fn inside a transaction, committing on success and
// rolling back on error.
func (s *Store) WithTx(fn func(*Tx) error) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
