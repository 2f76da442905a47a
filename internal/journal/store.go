// Package journal persists resolver lifecycle events to SQLite so past loads
// and resolutions can be inspected after the process exits.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zjrosen/nsresolve/internal/log"
)

//go:embed schema.sql
var schema string

// Store is a SQLite-backed event journal.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the journal database at path.
// The parent directory is created with 0700 permissions.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// A single connection serializes writers without SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply journal schema: %w", err)
	}

	log.Debug(log.CatJournal, "Opened journal", "path", path)
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts e. Empty IDs are filled with a new UUID and zero CreatedAt
// with the current time. Returns the stored entry.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}

	m := toModel(e)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, resolver_id, kind, location, key, type_name, error, count, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ResolverID, m.Kind, m.Location, m.Key, m.TypeName, m.Error, m.Count, m.DurationMs, m.CreatedAt,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to insert event: %w", err)
	}
	return e, nil
}

const entryColumns = `id, resolver_id, kind, location, key, type_name, error, count, duration_ms, created_at`

// Recent returns up to limit entries, newest first. A limit <= 0 returns nothing.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM events ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// ForKey returns every entry recorded for a namespace key, oldest first.
func (s *Store) ForKey(ctx context.Context, key string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM events WHERE key = ? ORDER BY created_at, rowid`, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for key: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntries(rows)
}

// CountByKind returns the number of entries per kind.
func (s *Store) CountByKind(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var m entryModel
		if err := rows.Scan(&m.ID, &m.ResolverID, &m.Kind, &m.Location, &m.Key, &m.TypeName,
			&m.Error, &m.Count, &m.DurationMs, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		entries = append(entries, m.toEntry())
	}
	return entries, rows.Err()
}
