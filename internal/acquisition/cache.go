package acquisition

import (
	"context"
	"sync"
	"time"

	"oi-radar/internal/domain"
	"oi-radar/internal/observability"
)

// snapshotCache carries the cached snapshot plus its expiry and the
// in-flight acquisition state. It is the only shared mutable state in the
// acquisition path; all access goes through the mutex.
type snapshotCache struct {
	mu       sync.Mutex
	snap     *domain.Snapshot
	expiry   time.Time
	inflight chan struct{} // non-nil while an acquisition is running

	now func() time.Time // injectable clock for deterministic tests
}

// newSnapshotCache creates a cache using the real clock when now is nil.
func newSnapshotCache(now func() time.Time) *snapshotCache {
	if now == nil {
		now = time.Now
	}
	return &snapshotCache{now: now}
}

// get returns the cached snapshot while it is fresh, otherwise runs acquire.
// Concurrent callers collapse into a single in-flight acquisition: late
// arrivals block on the in-flight channel and then re-check the cache.
func (c *snapshotCache) get(ctx context.Context, ttl time.Duration, acquire func(context.Context) *domain.Snapshot) (*domain.Snapshot, error) {
	for {
		c.mu.Lock()
		if c.snap != nil && c.now().Before(c.expiry) {
			snap := c.snap
			c.mu.Unlock()
			observability.RecordCacheHit()
			return snap, nil
		}
		if c.inflight != nil {
			wait := c.inflight
			c.mu.Unlock()
			observability.RecordCacheWait()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		c.inflight = make(chan struct{})
		c.mu.Unlock()
		break
	}

	snap := acquire(ctx)

	c.mu.Lock()
	c.snap = snap
	c.expiry = c.now().Add(ttl)
	close(c.inflight)
	c.inflight = nil
	c.mu.Unlock()

	return snap, nil
}

// invalidate discards the cached snapshot so the next get re-acquires.
// An acquisition already in flight is left to complete.
func (c *snapshotCache) invalidate() {
	c.mu.Lock()
	c.snap = nil
	c.expiry = time.Time{}
	c.mu.Unlock()
}
