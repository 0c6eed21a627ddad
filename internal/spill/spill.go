// Package spill implements the DB-writer retry queue as a durable sqlite
// store: batches that fail to upload are spilled here with a next-retry
// deadline and exponential backoff, surviving a process restart.
package spill

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/telemetry-bridge/internal/telemetry"
)

// RetryBaseBackoff and RetryBackoffMax bound the exponential backoff
// applied to a spilled batch between retries.
const (
	RetryBaseBackoff = 3 * time.Second
	RetryBackoffMax  = 60 * time.Second
)

// Store is a durable queue of batches awaiting retry.
type Store struct {
	db *sql.DB
}

// Open creates or attaches to the sqlite retry store at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("spill: open %s: %w", path, err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("spill: pragmas: %w", err)
	}
	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("spill: schema: %w", err)
	}
	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS retry_batches (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			payload       BLOB NOT NULL,
			backoff_ms    INTEGER NOT NULL,
			next_retry_at INTEGER NOT NULL
		)
	`)
	return err
}

// Close releases the underlying sqlite handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying *sql.DB for read-only admin tooling (the
// tailsql debug console); callers must not mutate the schema.
func (s *Store) DB() *sql.DB { return s.db }

// Enqueue spills one failed batch with the given backoff, to be retried no
// earlier than now+backoff.
func (s *Store) Enqueue(records []*telemetry.Sample, backoff time.Duration, now time.Time) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("spill: marshal batch: %w", err)
	}
	nextRetry := now.Add(backoff)
	_, err = s.db.Exec(
		`INSERT INTO retry_batches (payload, backoff_ms, next_retry_at) VALUES (?, ?, ?)`,
		payload, backoff.Milliseconds(), nextRetry.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("spill: enqueue: %w", err)
	}
	return nil
}

// Batch is one spilled batch awaiting retry.
type Batch struct {
	ID        int64
	Records   []*telemetry.Sample
	Backoff   time.Duration
	NextRetry time.Time
}

// Due returns every batch whose next-retry deadline has passed.
func (s *Store) Due(now time.Time) ([]Batch, error) {
	rows, err := s.db.Query(
		`SELECT id, payload, backoff_ms, next_retry_at FROM retry_batches WHERE next_retry_at <= ? ORDER BY id`,
		now.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("spill: query due: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var (
			id         int64
			payload    []byte
			backoffMs  int64
			nextRetry  int64
		)
		if err := rows.Scan(&id, &payload, &backoffMs, &nextRetry); err != nil {
			return nil, fmt.Errorf("spill: scan: %w", err)
		}
		var records []*telemetry.Sample
		if err := json.Unmarshal(payload, &records); err != nil {
			return nil, fmt.Errorf("spill: unmarshal batch %d: %w", id, err)
		}
		out = append(out, Batch{
			ID:        id,
			Records:   records,
			Backoff:   time.Duration(backoffMs) * time.Millisecond,
			NextRetry: time.UnixMilli(nextRetry),
		})
	}
	return out, rows.Err()
}

// Remove deletes a batch after a successful retry.
func (s *Store) Remove(id int64) error {
	_, err := s.db.Exec(`DELETE FROM retry_batches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("spill: remove %d: %w", id, err)
	}
	return nil
}

// Reschedule doubles a batch's backoff (capped at RetryBackoffMax) and
// updates its next-retry deadline after another failed attempt.
func (s *Store) Reschedule(id int64, currentBackoff time.Duration, now time.Time) error {
	next := currentBackoff * 2
	if next > RetryBackoffMax {
		next = RetryBackoffMax
	}
	nextRetry := now.Add(next)
	_, err := s.db.Exec(
		`UPDATE retry_batches SET backoff_ms = ?, next_retry_at = ? WHERE id = ?`,
		next.Milliseconds(), nextRetry.UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("spill: reschedule %d: %w", id, err)
	}
	return nil
}

// Count returns the number of batches currently spilled.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM retry_batches`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("spill: count: %w", err)
	}
	return n, nil
}
