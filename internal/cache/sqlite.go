package cache

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

const createEntriesTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	fingerprint TEXT NOT NULL PRIMARY KEY,
	payload BLOB NOT NULL,
	fetched_at DATETIME NOT NULL
);
`

// SQLiteStore is a Store backed by a single SQLite file. Each entry is one
// row replaced atomically by fingerprint, which satisfies the concurrent
// writer requirement without in-place mutation.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	hits   atomic.Int64
	misses atomic.Int64
}

// Stats reports entry count and hit/miss counters since the store opened.
type Stats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// NewSQLiteStore opens (creating if needed) the cache database at path.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(createEntriesTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the payload for a fingerprint. Entries older than the TTL are
// treated as absent; expiry happens here at read time, not by a background
// job.
func (s *SQLiteStore) Get(fingerprint string) ([]byte, bool) {
	var payload []byte
	var fetchedAt time.Time

	err := s.db.QueryRow(
		`SELECT payload, fetched_at FROM cache_entries WHERE fingerprint = ?`,
		fingerprint,
	).Scan(&payload, &fetchedAt)
	if err != nil {
		s.misses.Add(1)
		return nil, false
	}

	if s.now().Sub(fetchedAt) > s.ttl {
		s.misses.Add(1)
		return nil, false
	}

	s.hits.Add(1)
	return payload, true
}

// Put stores a payload, replacing any prior entry for the fingerprint and
// resetting its fetch time.
func (s *SQLiteStore) Put(fingerprint string, payload []byte) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO cache_entries (fingerprint, payload, fetched_at) VALUES (?, ?, ?)`,
		fingerprint, payload, s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Sweep deletes expired rows.
func (s *SQLiteStore) Sweep() error {
	cutoff := s.now().UTC().Add(-s.ttl)
	if _, err := s.db.Exec(`DELETE FROM cache_entries WHERE fetched_at < ?`, cutoff); err != nil {
		return fmt.Errorf("cache sweep: %w", err)
	}
	return nil
}

// Stats returns cache size and hit/miss counters.
func (s *SQLiteStore) Stats() (Stats, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return Stats{}, fmt.Errorf("cache stats: %w", err)
	}
	return Stats{Entries: count, Hits: s.hits.Load(), Misses: s.misses.Load()}, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
