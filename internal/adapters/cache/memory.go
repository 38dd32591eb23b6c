package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// node is an entry in the insertion-ordered list used for eviction.
type node struct {
	key     string
	value   []byte
	expires time.Time
	prev    *node
	next    *node
}

func (n *node) reset() {
	*n = node{}
}

// MemoryStore is an in-process Store. Bounded stores evict the oldest
// inserted entry when full; expired entries are dropped lazily on read.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*node
	head       *node // newest
	tail       *node // oldest
	maxEntries int
	size       atomic.Int64
	nodePool   sync.Pool
	now        func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		maxEntries: 100000,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.entries = make(map[string]*node)
	s.nodePool = sync.Pool{
		New: func() any { return &node{} },
	}
	return s
}

// Get returns a copy of the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !n.expires.IsZero() && !s.now().Before(n.expires) {
		s.remove(n)
		return nil, ErrMiss
	}
	out := make([]byte, len(n.value))
	copy(out, n.value)
	return out, nil
}

// Set stores value under key. A non-positive ttl never expires.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := make([]byte, len(value))
	copy(v, value)

	var expires time.Time
	if ttl > 0 {
		expires = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.entries[key]; ok {
		s.remove(n)
	}
	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.remove(s.tail)
	}

	n := s.nodePool.Get().(*node)
	n.key = key
	n.value = v
	n.expires = expires
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
	s.entries[key] = n
	s.size.Add(1)
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.entries[key]; ok {
		s.remove(n)
	}
	return nil
}

// Size returns the number of stored entries, expired ones included until
// they are read.
func (s *MemoryStore) Size() int64 {
	return s.size.Load()
}

// remove unlinks n. Must be called with s.mu held.
func (s *MemoryStore) remove(n *node) {
	if n == nil {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		s.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		s.tail = n.prev
	}
	delete(s.entries, n.key)
	n.reset()
	s.nodePool.Put(n)
	s.size.Add(-1)
}
