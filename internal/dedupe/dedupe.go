// Package dedupe guards against processing the same submission twice.
package dedupe

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	// SQLite driver, registered as "sqlite3".
	_ "github.com/mattn/go-sqlite3"
)

// Store marks submission fingerprints as processed.
type Store interface {
	// MarkIfNew records fingerprint and reports whether it was unseen.
	// A false return means some earlier request already claimed it.
	MarkIfNew(ctx context.Context, fingerprint string) (bool, error)
	Close() error
}

// Fingerprint derives the dedupe key for a submission. The message ID scopes
// the key so the same video requested in a later message downloads again.
func Fingerprint(messageID, url string) string {
	return messageID + "|" + url
}

// SQLiteStore persists fingerprints across restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open dedupe db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS processed_items (
		fingerprint TEXT PRIMARY KEY,
		processed_at TIMESTAMP NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create dedupe table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// MarkIfNew implements Store.
func (s *SQLiteStore) MarkIfNew(ctx context.Context, fingerprint string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_items (fingerprint, processed_at) VALUES (?, ?)`,
		fingerprint, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark fingerprint: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// MemoryStore keeps fingerprints in memory. Suitable for tests and for
// single-run deployments that tolerate re-processing after a restart.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

// MarkIfNew implements Store.
func (m *MemoryStore) MarkIfNew(_ context.Context, fingerprint string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.seen[fingerprint]; ok {
		return false, nil
	}
	m.seen[fingerprint] = struct{}{}
	return true, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
