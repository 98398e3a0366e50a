// internal/resolver/cache.go
//
// Process-wide cache of normalized host → resolution result.
//
// Context
// -------
// One cache instance is constructed at boot and injected into the
// Resolver and the admin routes; tests build isolated instances.  Values
// are either a positive *Result or a negative "no site claims this
// host" marker.  The two kinds carry different TTLs: positives live for
// minutes, negatives for tens of seconds, so typo'd or newly provisioned
// domains cannot hammer the store yet do not stay dead for long.
//
// Expiry is lazy (checked on Get) with a background sweep for entries
// nobody asks about; the sweep also applies an LRU bound, but only after
// the expired pass, so an unexpired positive entry is never dropped
// ahead of an expired one.  Store errors are never written here.
//
// Concurrency
// -----------
// Backed by sync.Map with atomic lastSeen stamps, mirroring the tenant
// cache this platform always used: O(1) critical sections, reads and
// invalidations may interleave freely, and concurrent fills for the
// same host simply overwrite each other with identical data.

package resolver

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/siteforge-io/siteforge/internal/metrics"
)

// Static defaults.  Override via conf/global.yaml `resolver:` block.
const (
	SweepInterval = 1 * time.Minute
)

// entry is one cache slot.  res == nil marks a negative entry.
type entry struct {
	res      *Result
	expires  int64 // UnixNano
	lastSeen int64 // UnixNano, for the LRU pass
}

// Cache maps normalized hosts to resolution results.  Zero value is
// unusable; construct with NewCache and Close when done.
type Cache struct {
	m           sync.Map
	posTTL      time.Duration
	negTTL      time.Duration
	maxEntries  int
	evictTicker *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

// NewCache constructs a Cache and starts the background sweep.
func NewCache(posTTL, negTTL time.Duration, maxEntries int) *Cache {
	c := &Cache{
		posTTL:     posTTL,
		negTTL:     negTTL,
		maxEntries: maxEntries,
		done:       make(chan struct{}),
	}
	c.evictTicker = time.NewTicker(SweepInterval)
	go c.sweepLoop()
	return c
}

// Close stops the background sweep.  Entries remain readable.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		c.evictTicker.Stop()
		close(c.done)
	})
}

// Get returns the cached result for host.  ok == false means miss (no
// entry, or entry expired).  ok == true with res == nil is a cached
// negative: the host is known to be unmapped.
func (c *Cache) Get(hostKey string) (res *Result, ok bool) {
	v, found := c.m.Load(hostKey)
	if !found {
		return nil, false
	}
	ent := v.(*entry)
	now := time.Now().UnixNano()
	if now > atomic.LoadInt64(&ent.expires) {
		// Lazy expiry: drop on read.
		c.m.Delete(hostKey)
		metrics.ActiveCacheEntries.Dec()
		return nil, false
	}
	atomic.StoreInt64(&ent.lastSeen, now)
	return ent.res, true
}

// Put stores a positive result (res != nil) with the positive TTL, or a
// negative marker (res == nil) with the shorter negative TTL.
func (c *Cache) Put(hostKey string, res *Result) {
	ttl := c.posTTL
	if res == nil {
		ttl = c.negTTL
	}
	now := time.Now()
	ent := &entry{
		res:      res,
		expires:  now.Add(ttl).UnixNano(),
		lastSeen: now.UnixNano(),
	}
	if _, loaded := c.m.Swap(hostKey, ent); !loaded {
		metrics.ActiveCacheEntries.Inc()
	}
}

// Invalidate drops a single host entry, if present.
func (c *Cache) Invalidate(hostKey string) {
	if _, loaded := c.m.LoadAndDelete(hostKey); loaded {
		metrics.ActiveCacheEntries.Dec()
	}
	metrics.InvalidateTotal.Inc()
}

// InvalidateAll clears every entry.  Wired to the admin cache-clear
// endpoint and to any write path touching domain mappings wholesale.
func (c *Cache) InvalidateAll() {
	c.m.Range(func(key, _ any) bool {
		if _, loaded := c.m.LoadAndDelete(key); loaded {
			metrics.ActiveCacheEntries.Dec()
		}
		return true
	})
	metrics.InvalidateTotal.Inc()
}

// Len counts current entries.  O(n); diagnostics only.
func (c *Cache) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool { n++; return true })
	return n
}
