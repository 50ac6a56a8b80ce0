package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// CacheItem represents a cached item with expiration
type CacheItem struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the cache item has expired at now
func (c *CacheItem) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// MemoryStore is an in-process Store with a background sweeper
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*CacheItem
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a store that sweeps expired items every interval.
// A zero interval disables the sweeper.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]*CacheItem),
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	if sweepInterval > 0 {
		go s.cleanup(sweepInterval)
	}

	return s
}

// cleanup removes expired items periodically
func (s *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, item := range s.items {
		if item.IsExpired(now) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	item, exists := s.items[key]
	s.mu.RUnlock()

	if !exists {
		return nil, false, nil
	}
	if item.IsExpired(s.now()) {
		s.mu.Lock()
		if current, ok := s.items[key]; ok && current == item {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}

	return item.Data, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = &CacheItem{
		Data:      data,
		ExpiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// DeletePrefix removes every key starting with prefix
func (s *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			delete(s.items, key)
			removed++
		}
	}
	return removed, nil
}

// Stats returns item counts
func (s *MemoryStore) Stats(_ context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	expired := 0
	for _, item := range s.items {
		if item.IsExpired(now) {
			expired++
		}
	}

	return map[string]interface{}{
		"backend":       s.Name(),
		"total_items":   len(s.items),
		"expired_items": expired,
		"active_items":  len(s.items) - expired,
	}
}

// Close stops the sweeper
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}
