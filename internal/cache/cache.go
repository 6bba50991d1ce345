// Package cache provides the in-process caches used by the timeline service.
package cache

import (
	"time"

	applog "finboard/internal/log"
	"finboard/internal/timeline"
)

// Cache is the generic cache contract.
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, data V)
	Delete(key K)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// BucketCache memoizes aggregation results keyed by dataset version,
// granularity and breakdown scope. It satisfies timeline.BucketCache.
type BucketCache struct {
	*LRUCache[timeline.BucketKey, []timeline.TimeBucket]
}

var _ timeline.BucketCache = (*BucketCache)(nil)

// NewBucketCache creates a bucket cache.
func NewBucketCache(maxSize int, ttl time.Duration) *BucketCache {
	return &BucketCache{LRUCache: NewLRUCache[timeline.BucketKey, []timeline.TimeBucket](maxSize, ttl)}
}

// Put stores buckets under key.
func (c *BucketCache) Put(key timeline.BucketKey, buckets []timeline.TimeBucket) {
	c.Set(key, buckets)
}

// Manager periodically removes expired entries from registered caches.
type Manager struct {
	caches      []Cleaner
	logger      *applog.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// NewManager creates a manager that logs through logger.
func NewManager(logger *applog.Logger) *Manager {
	return &Manager{
		logger:      logger.WithComponent(applog.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the cleanup rotation. Call before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup runs cleanup every interval until Stop is called.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed := 0
			for _, c := range m.caches {
				removed += c.CleanExpired()
			}
			if removed > 0 {
				m.logger.Debug("Expired cache entries removed", "count", removed)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup loop and waits for it to exit. It must only be
// called after StartCleanup.
func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}
