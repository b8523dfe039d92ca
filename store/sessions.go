package store

import (
	"sync"
	"time"
)

// Sessions is a keyed value store with explicit expiry. The webchat edge
// uses it to map browser session ids to stable user identifiers without
// relying on process lifetime for correctness: every read checks the
// deadline, and expired entries are swept on write.
type Sessions struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]sessionEntry
	now     func() time.Time
}

type sessionEntry struct {
	value     string
	expiresAt time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	return &Sessions{
		ttl:     ttl,
		entries: make(map[string]sessionEntry),
		now:     time.Now,
	}
}

// Put stores value under key and refreshes its expiry.
func (s *Sessions) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep()
	s.entries[key] = sessionEntry{value: value, expiresAt: s.now().Add(s.ttl)}
}

// Get returns the value for key, refreshing its expiry on hit.
func (s *Sessions) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return "", false
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		return "", false
	}
	e.expiresAt = s.now().Add(s.ttl)
	s.entries[key] = e
	return e.value, true
}

// Delete removes key.
func (s *Sessions) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// sweep drops expired entries; callers hold the lock.
func (s *Sessions) sweep() {
	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}
