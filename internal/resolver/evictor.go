// evictor.go houses the background sweep for Cache.  Every SweepInterval
// it scans the map and removes:
//
//   - entries past their expiry that no read has touched
//   - least-recently-used entries when map size exceeds maxEntries
//
// The expired pass always runs first: the LRU bound is a secondary
// policy and must not drop an unexpired positive entry while an expired
// one is still occupying a slot.
package resolver

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/siteforge-io/siteforge/internal/metrics"
)

func (c *Cache) sweepLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.evictTicker.C:
		}

		now := time.Now().UnixNano()
		var count int

		// ----------------------------------------------------------------
		// Expiry pass
		// ----------------------------------------------------------------
		c.m.Range(func(key, value any) bool {
			ent := value.(*entry)
			if now > atomic.LoadInt64(&ent.expires) {
				if _, loaded := c.m.LoadAndDelete(key); loaded {
					metrics.CacheEvictTotal.Inc()
					metrics.ActiveCacheEntries.Dec()
				}
				return true
			}
			count++
			return true
		})

		// ----------------------------------------------------------------
		// LRU pass
		// ----------------------------------------------------------------
		if c.maxEntries > 0 && count > c.maxEntries {
			type kv struct {
				key string
				at  int64
			}
			var all []kv
			c.m.Range(func(key, value any) bool {
				ent := value.(*entry)
				all = append(all, kv{key: key.(string), at: atomic.LoadInt64(&ent.lastSeen)})
				return true
			})
			sort.Slice(all, func(i, j int) bool { return all[i].at < all[j].at })
			for i := 0; i < len(all)-c.maxEntries; i++ {
				if _, loaded := c.m.LoadAndDelete(all[i].key); loaded {
					metrics.CacheEvictTotal.Inc()
					metrics.ActiveCacheEntries.Dec()
				}
			}
		}
	}
}
