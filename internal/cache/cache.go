// Package cache stores raw upstream payloads keyed by a fingerprint of
// (repository identity, data category), with a fixed time-to-live enforced
// at read time.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/jamesmurdza/repo-health-check/internal/domain"
)

// Store is the backing storage for cache entries. Implementations must
// tolerate concurrent readers and writers; entries are replaced atomically
// per fingerprint, so duplicate concurrent fills are last-write-wins.
type Store interface {
	// Get returns the payload for a fingerprint, or false when the entry
	// is absent or expired.
	Get(fingerprint string) ([]byte, bool)
	// Put stores a payload under a fingerprint, replacing any prior entry.
	Put(fingerprint string, payload []byte) error
	// Sweep deletes expired entries. Correctness never depends on it;
	// it exists for storage hygiene only.
	Sweep() error
	Close() error
}

// FetchFunc produces the payload for a cache miss.
type FetchFunc func(ctx context.Context) ([]byte, error)

// Fingerprint derives the deterministic cache key for an identity and
// category. The identity is normalized first, so "Octocat/Hello-World" and
// "octocat/hello-world" share an entry.
func Fingerprint(id domain.Identity, category domain.Category) string {
	norm := id.Normalized()
	sum := sha256.Sum256([]byte(norm.String() + "#" + string(category)))
	return fmt.Sprintf("%x", sum)
}

// GetOrFetch returns the cached payload for (identity, category) when a
// fresh entry exists, with no network access. Otherwise it invokes fetch,
// stores the result, and returns it. Fetch failures propagate without
// writing an entry, so the next call retries the fetch rather than caching
// the failure.
//
// Duplicate concurrent misses for the same fingerprint each fetch and write;
// payloads are idempotent snapshots, so the race costs only wasted work.
func GetOrFetch(ctx context.Context, store Store, id domain.Identity, category domain.Category, fetch FetchFunc) ([]byte, error) {
	fp := Fingerprint(id, category)
	if payload, ok := store.Get(fp); ok {
		return payload, nil
	}

	payload, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := store.Put(fp, payload); err != nil {
		return nil, fmt.Errorf("store %s payload: %w", category, err)
	}
	return payload, nil
}
