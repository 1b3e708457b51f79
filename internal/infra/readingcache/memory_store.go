package readingcache

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/airguard/internal/domain/airquality"
)

type entry struct {
	reading   airquality.Reading
	expiresAt time.Time
}

// MemoryStore is an in-memory reading cache for tests/dev.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryStore constructs a cache backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get implements airquality.Cache.
func (s *MemoryStore) Get(_ context.Context, key string) (airquality.Reading, bool, error) {
	if key == "" {
		return airquality.Reading{}, false, nil
	}
	s.mu.RLock()
	item, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return airquality.Reading{}, false, nil
	}
	if !item.expiresAt.IsZero() && !item.expiresAt.After(s.now()) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return airquality.Reading{}, false, nil
	}
	return item.reading, true, nil
}

// Put implements airquality.Cache. A non-positive ttl keeps the entry until
// it is overwritten.
func (s *MemoryStore) Put(_ context.Context, key string, reading airquality.Reading, ttl time.Duration) error {
	if key == "" {
		return nil
	}
	exp := time.Time{}
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	reading.Raw = nil
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{reading: reading, expiresAt: exp}
	return nil
}

var _ airquality.Cache = (*MemoryStore)(nil)
