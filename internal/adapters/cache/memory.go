package cache

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/coocood/freecache"
)

const minMemoryCacheMB = 1

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store backed by freecache, used when Redis
// is not configured. Entries are evicted LRU-style once the arena is full.
type MemoryStore struct {
	cache *freecache.Cache
}

func NewMemoryStore(sizeMB int) *MemoryStore {
	if sizeMB < minMemoryCacheMB {
		sizeMB = minMemoryCacheMB
	}
	return &MemoryStore{cache: freecache.NewCache(sizeMB * 1024 * 1024)}
}

// ttlSeconds rounds up; freecache treats zero as "never expires".
func ttlSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	return int(math.Ceil(ttl.Seconds()))
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	val, err := s.cache.Get([]byte(key))
	if errors.Is(err, freecache.ErrNotFound) {
		return nil, ErrCacheMiss
	}
	return val, err
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return s.cache.Set([]byte(key), value, ttlSeconds(ttl))
}

func (s *MemoryStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	prev, err := s.cache.GetOrSet([]byte(key), value, ttlSeconds(ttl))
	if err != nil {
		return false, err
	}
	return prev == nil, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Del([]byte(key))
	return nil
}
