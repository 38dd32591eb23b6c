package cache

import "time"

// MemoryOption applies a configuration option to a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMaxEntries bounds the store; the oldest entry is evicted first.
// Zero or negative means unbounded.
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) {
		s.maxEntries = n
	}
}

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
