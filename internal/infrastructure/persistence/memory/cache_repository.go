// Package memory provides in-memory cache repository implementation
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alchemorsel/recipe-server/internal/ports/outbound"
)

// DefaultTTL applies when Set is called with a zero TTL
const DefaultTTL = 24 * time.Hour

// CacheItem represents a cached item
type CacheItem struct {
	Value     []byte
	ExpiresAt time.Time
}

// CacheRepository implements in-memory cache repository
type CacheRepository struct {
	data  map[string]CacheItem
	mutex sync.Mutex
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

var _ outbound.CacheRepository = (*CacheRepository)(nil)

// NewCacheRepository creates a new in-memory cache repository and starts
// the expiry sweeper. Call Close to stop it.
func NewCacheRepository() *CacheRepository {
	repo := newCacheRepository(time.Now)
	go repo.cleanup(5 * time.Minute)
	return repo
}

func newCacheRepository(now func() time.Time) *CacheRepository {
	return &CacheRepository{
		data: make(map[string]CacheItem),
		now:  now,
		stop: make(chan struct{}),
	}
}

// Get retrieves a value from cache
func (r *CacheRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	item, ok := r.live(key)
	if !ok {
		return nil, outbound.ErrCacheMiss
	}

	out := make([]byte, len(item.Value))
	copy(out, item.Value)
	return out, nil
}

// Set stores a value in cache with TTL
func (r *CacheRepository) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.data[key] = CacheItem{
		Value:     stored,
		ExpiresAt: r.now().Add(ttl),
	}
	return nil
}

// Delete removes a key from cache
func (r *CacheRepository) Delete(_ context.Context, key string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.data, key)
	return nil
}

// Exists checks if a key exists in cache
func (r *CacheRepository) Exists(_ context.Context, key string) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	_, ok := r.live(key)
	return ok, nil
}

// Len returns the number of unexpired entries
func (r *CacheRepository) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.sweep()
	return len(r.data)
}

// Close stops the sweeper
func (r *CacheRepository) Close() error {
	r.once.Do(func() { close(r.stop) })
	return nil
}

// live must be called with the mutex held.
func (r *CacheRepository) live(key string) (CacheItem, bool) {
	item, exists := r.data[key]
	if !exists {
		return CacheItem{}, false
	}
	if !r.now().Before(item.ExpiresAt) {
		delete(r.data, key)
		return CacheItem{}, false
	}
	return item, true
}

func (r *CacheRepository) sweep() {
	now := r.now()
	for key, item := range r.data {
		if !now.Before(item.ExpiresAt) {
			delete(r.data, key)
		}
	}
}

// cleanup removes expired items
func (r *CacheRepository) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.mutex.Lock()
			r.sweep()
			r.mutex.Unlock()
		case <-r.stop:
			return
		}
	}
}
