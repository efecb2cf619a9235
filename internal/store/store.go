package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// pragma is a connection setting and the value SQLite reports once it
// is applied.
type pragma struct {
	name   string
	value  string
	report string
}

var pragmas = []pragma{
	{name: "journal_mode", value: "WAL", report: "wal"},
	{name: "synchronous", value: "NORMAL", report: "1"},
	{name: "busy_timeout", value: "5000", report: "5000"},
	{name: "foreign_keys", value: "ON", report: "1"},
}

// migrations run in order on databases whose user_version is below
// their index + 1.
var migrations = []func(*sql.Tx) error{
	// 1: fingerprint lookups
	func(tx *sql.Tx) error {
		_, err := tx.Exec(`CREATE INDEX IF NOT EXISTS idx_evaluations_fingerprint ON evaluations(fingerprint)`)
		return err
	},
}

// schemaVersion is the user_version of a fully migrated journal.
var schemaVersion = len(migrations)

// Store is the evaluation journal.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal at path, applies the connection
// pragmas and brings the schema up to date. Opening an existing journal
// is a no-op apart from pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// one connection: pragmas are per connection and SQLite has a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := setup(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func setup(db *sql.DB) error {
	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return migrate(db)
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := migrations[i](tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		// PRAGMA does not take bind parameters
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: set user_version: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", i+1, err)
		}
	}
	return nil
}

// Close closes the journal. Closing a zero Store is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// checkPragmas reports the first pragma whose live value differs from
// the configured one.
func (s *Store) checkPragmas() error {
	for _, p := range pragmas {
		var got string
		if err := s.db.QueryRow("PRAGMA " + p.name).Scan(&got); err != nil {
			return fmt.Errorf("read pragma %s: %w", p.name, err)
		}
		if got != p.report {
			return fmt.Errorf("pragma %s = %q, want %q", p.name, got, p.report)
		}
	}
	return nil
}
