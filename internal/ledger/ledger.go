// Package ledger remembers which Everhour time entries were created for
// which meeting, so they can be listed and removed later.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one time entry pushed to Everhour.
type Entry struct {
	EntryID   string    `json:"entry_id"`
	Title     string    `json:"title"`
	Project   string    `json:"project"`
	TaskID    string    `json:"task_id"`
	Date      string    `json:"date"`
	Minutes   int       `json:"minutes"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a SQLite-backed ledger.
type Store struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS sent_entries (
	entry_id   TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	project    TEXT NOT NULL DEFAULT '',
	task_id    TEXT NOT NULL DEFAULT '',
	date       TEXT NOT NULL DEFAULT '',
	minutes    INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sent_entries_title ON sent_entries(title);`

// Open opens (and creates if needed) the ledger at path.
// Pass ":memory:" for a throwaway ledger.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("ledger: path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("ledger: creating directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: opening database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: pinging database: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("ledger: setting pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: migrating: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores entries in one transaction. Re-recording an entry id
// replaces the previous row.
func (s *Store) Record(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO sent_entries
		 (entry_id, title, project, task_id, date, minutes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("ledger: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if e.EntryID == "" {
			return errors.New("ledger: entry id cannot be empty")
		}
		created := e.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, e.EntryID, e.Title, e.Project, e.TaskID, e.Date, e.Minutes, created.Unix()); err != nil {
			return fmt.Errorf("ledger: recording %s: %w", e.EntryID, err)
		}
	}
	return tx.Commit()
}

// ForTitle returns the entries recorded for title, oldest first.
func (s *Store) ForTitle(ctx context.Context, title string) ([]Entry, error) {
	return s.query(ctx,
		`SELECT entry_id, title, project, task_id, date, minutes, created_at
		 FROM sent_entries WHERE title = ? ORDER BY date, created_at, entry_id`, title)
}

// List returns every recorded entry, oldest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	return s.query(ctx,
		`SELECT entry_id, title, project, task_id, date, minutes, created_at
		 FROM sent_entries ORDER BY date, created_at, entry_id`)
}

// Forget removes the given entry ids and reports how many rows went away.
func (s *Store) Forget(ctx context.Context, ids []string) (int64, error) {
	var total int64
	for _, id := range ids {
		res, err := s.db.ExecContext(ctx, `DELETE FROM sent_entries WHERE entry_id = ?`, id)
		if err != nil {
			return total, fmt.Errorf("ledger: forgetting %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: query: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			e       Entry
			created int64
		)
		if err := rows.Scan(&e.EntryID, &e.Title, &e.Project, &e.TaskID, &e.Date, &e.Minutes, &created); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
