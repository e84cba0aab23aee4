package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Entry is the counter state for one (identifier, endpoint) pair.
type Entry struct {
	Count      int       `json:"count"`
	ResetAt    time.Time `json:"reset_at"`
	Blocked    bool      `json:"blocked"`
	BlockUntil time.Time `json:"block_until,omitempty"`
}

// Store abstracts the counter backend so the in-memory default can be
// swapped for a shared cache without touching call sites.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Sweep removes entries whose window has lapsed and which are not
	// blocked, or whose block has expired. Returns the number removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// MemoryStore is the single-process default backend.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Get returns the entry for key.
func (s *MemoryStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	return entry, ok, nil
}

// Set stores the entry. TTL is ignored; Sweep bounds memory growth.
func (s *MemoryStore) Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

// Delete removes the entry for key.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Sweep drops lapsed entries.
func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, entry := range s.entries {
		expiredWindow := now.After(entry.ResetAt) && !entry.Blocked
		expiredBlock := entry.Blocked && now.After(entry.BlockUntil)
		if expiredWindow || expiredBlock {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
