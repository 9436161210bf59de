package service

import (
	"context"
	"strings"
	"sync"
	"time"
)

// CacheService provides in-memory caching with TTL and invalidation support.
type CacheService struct {
	mu         sync.RWMutex
	cache      map[string]*cacheEntry
	defaultTTL time.Duration
	// generation растёт при каждой инвалидации; GetOrSet не кладёт значение,
	// вычисленное до инвалидации.
	generation uint64
}

type cacheEntry struct {
	data      interface{}
	expiresAt time.Time
}

// NewCacheService creates a new cache service. Cleanup stops when ctx is done.
func NewCacheService(ctx context.Context, defaultTTL time.Duration) *CacheService {
	cs := &CacheService{
		cache:      make(map[string]*cacheEntry),
		defaultTTL: defaultTTL,
	}

	go cs.cleanup(ctx, 5*time.Minute)

	return cs
}

func (cs *CacheService) DefaultTTL() time.Duration {
	return cs.defaultTTL
}

// Get retrieves a value from cache.
func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()

	entry, exists := cs.cache[key]
	if !exists {
		return nil, false
	}

	// Don't delete here, let cleanup handle it
	if time.Now().After(entry.expiresAt) {
		return nil, false
	}

	return entry.data, true
}

// Set stores a value in cache with TTL.
func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.setLocked(key, value, ttl)
}

func (cs *CacheService) setLocked(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = cs.defaultTTL
	}
	cs.cache[key] = &cacheEntry{
		data:      value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Delete removes a key from cache.
func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	delete(cs.cache, key)
	cs.generation++
}

// InvalidateByPrefix removes all keys with the given prefix.
func (cs *CacheService) InvalidateByPrefix(prefix string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key := range cs.cache {
		if strings.HasPrefix(key, prefix) {
			delete(cs.cache, key)
		}
	}
	cs.generation++
}

// Invalidate реализует InvalidationSink: удаляет все записи сущности.
func (cs *CacheService) Invalidate(_ context.Context, inv Invalidation) error {
	cs.InvalidateByPrefix(inv.Key() + ":")
	return nil
}

func (cs *CacheService) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.cache)
}

func (cs *CacheService) cleanup(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs.mu.Lock()
			now := time.Now()
			for key, entry := range cs.cache {
				if now.After(entry.expiresAt) {
					delete(cs.cache, key)
				}
			}
			cs.mu.Unlock()
		}
	}
}

// Cache key generators
func TaskViewCacheKey(chainID int64, chainTaskID string) string {
	return Invalidation{Entity: EntityTask, ID: ChainScopedID(chainID, chainTaskID)}.Key() + ":view"
}

func DisputeViewCacheKey(chainID int64, chainDisputeID string) string {
	return Invalidation{Entity: EntityDispute, ID: ChainScopedID(chainID, chainDisputeID)}.Key() + ":view"
}

func AgentViewCacheKey(address string) string {
	return Invalidation{Entity: EntityAgent, ID: address}.Key() + ":view"
}

// GetOrSet retrieves a value from cache or computes it if not found.
func (cs *CacheService) GetOrSet(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fn func() (interface{}, error),
) (interface{}, error) {
	if value, found := cs.Get(key); found {
		return value, nil
	}

	cs.mu.RLock()
	gen := cs.generation
	cs.mu.RUnlock()

	value, err := fn()
	if err != nil {
		return nil, err
	}

	cs.mu.Lock()
	if cs.generation == gen {
		cs.setLocked(key, value, ttl)
	}
	cs.mu.Unlock()

	return value, nil
}
