package cache

import (
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Clock returns the current time. Tests substitute a controllable clock.
type Clock func() time.Time

// Entry is a stored value with its bookkeeping.
type Entry struct {
	Value     []byte
	CreatedAt time.Time
	// ExpiresAt is the instant the entry stops being live. Zero means the
	// entry never expires.
	ExpiresAt   time.Time
	AccessCount int64
}

// Live reports whether the entry can be served at now.
func (e *Entry) Live(now time.Time) bool {
	return e.ExpiresAt.IsZero() || e.ExpiresAt.After(now)
}

type localEntry struct {
	value       []byte
	createdAt   time.Time
	expiresAt   time.Time
	accessCount atomic.Int64
}

func (e *localEntry) live(now time.Time) bool {
	return e.expiresAt.IsZero() || e.expiresAt.After(now)
}

// LocalStore is the in-process tier: a concurrency-safe map of key to entry
// with lazy expiry on read and bulk expiry through SweepExpired.
type LocalStore struct {
	mu      sync.RWMutex
	entries map[string]*localEntry
	now     Clock

	// purged counts entries removed by lazy expiry since the last sweep.
	purged atomic.Int64
}

// NewLocalStore creates an empty store. A nil clock uses time.Now.
func NewLocalStore(clock Clock) *LocalStore {
	if clock == nil {
		clock = time.Now
	}
	return &LocalStore{
		entries: make(map[string]*localEntry),
		now:     clock,
	}
}

// Get returns a copy of the value stored under key. Absent and expired keys
// both report false; an expired entry is removed before returning.
func (s *LocalStore) Get(key string) ([]byte, bool) {
	now := s.now()

	s.mu.RLock()
	entry, ok := s.entries[key]
	if ok && entry.live(now) {
		entry.accessCount.Add(1)
		value := slices.Clone(entry.value)
		s.mu.RUnlock()
		return value, true
	}
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	s.mu.Lock()
	// Another writer may have replaced the entry since the read lock was released.
	if current, still := s.entries[key]; still && current == entry {
		delete(s.entries, key)
		s.purged.Add(1)
	}
	s.mu.Unlock()
	return nil, false
}

// Set stores value under key for ttl. A zero or negative ttl stores an entry
// that is already expired, so the next Get misses.
func (s *LocalStore) Set(key string, value []byte, ttl time.Duration) {
	now := s.now()
	entry := &localEntry{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
	if ttl <= 0 {
		entry.expiresAt = now
	}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()
}

// Delete removes key and reports whether it was present.
func (s *LocalStore) Delete(key string) bool {
	s.mu.Lock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	s.mu.Unlock()
	return ok
}

// Clear removes every entry.
func (s *LocalStore) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]*localEntry)
	s.purged.Store(0)
	s.mu.Unlock()
}

// SweepExpired removes every entry that is no longer live and returns how
// many expired entries left the store since the previous sweep, counting
// those already dropped by Get. Live entries are untouched.
func (s *LocalStore) SweepExpired() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := int(s.purged.Swap(0))
	for key, entry := range s.entries {
		if !entry.live(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired entries that
// have not been swept yet.
func (s *LocalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys returns the stored keys in sorted order.
func (s *LocalStore) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Entry returns a snapshot of the entry under key without counting an access
// or applying expiry.
func (s *LocalStore) Entry(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Value:       slices.Clone(entry.value),
		CreatedAt:   entry.createdAt,
		ExpiresAt:   entry.expiresAt,
		AccessCount: entry.accessCount.Load(),
	}, true
}
