// Package state persists the rolling history to SQLite so a restart
// replays the last known records instead of starting empty.
package state

import (
	"database/sql"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"

	"github.com/spacefrags/kopiahook/internal/history"
	"github.com/spacefrags/kopiahook/internal/snapshot"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	idx        INTEGER PRIMARY KEY,
	record     TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// Store is a SQLite-backed mirror of the history store. One row per
// populated slot index; empty slots have no row.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the state database at path. Schema creation is
// idempotent, so opening an existing database is not an error.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Save replaces the persisted history with records (newest first, nil
// entries for empty slots). The whole write is one transaction; a failed
// save leaves the previous state intact.
func (s *Store) Save(records []snapshot.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		blob, err := jsoniter.MarshalToString(rec)
		if err != nil {
			return fmt.Errorf("marshal record %d: %w", i, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO records (idx, record, updated_at) VALUES (?, ?, ?)`,
			i, blob, now,
		); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Load returns the persisted records ordered by slot index, newest
// first. A missing or empty table yields a nil slice.
func (s *Store) Load() ([]snapshot.Record, error) {
	rows, err := s.db.Query(`SELECT idx, record FROM records ORDER BY idx ASC`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []snapshot.Record
	for rows.Next() {
		var (
			idx  int
			blob string
		)
		if err := rows.Scan(&idx, &blob); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec snapshot.Record
		if err := jsoniter.UnmarshalFromString(blob, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record %d: %w", idx, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Restore replays the persisted records into store, oldest first, so
// the newest ends up back at index 0. Call before subscribing observers.
func (s *Store) Restore(store *history.Store) error {
	records, err := s.Load()
	if err != nil {
		return err
	}
	for i := len(records) - 1; i >= 0; i-- {
		store.Update(records[i])
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }
