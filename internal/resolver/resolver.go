// internal/resolver/resolver.go
//
// Host → site resolution.
//
// Context
// -------
// The resolver is the single answer to "which site does this Host header
// belong to?".  Flow per call: normalize, short-circuit reserved and
// development hosts, consult the cache, and on a miss query the mapping
// store with the full variant set, bounded by a per-call timeout.
// Positive and negative answers are cached under the *originally*
// normalized host (not the variant that matched); store errors are
// never cached, so a transient outage cannot poison a live domain.
//
// Concurrent misses for the same host may each query the store.  The
// query is read-only and idempotent, and the duplicates are bounded by
// the negative TTL, so no per-key fill lock is taken.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.

package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/siteforge-io/siteforge/internal/host"
	"github.com/siteforge-io/siteforge/internal/mapping"
	"github.com/siteforge-io/siteforge/internal/metrics"
)

// ErrUnmapped is the legitimate terminal answer for a host no site
// claims.  Callers route to the platform landing page on it.
var ErrUnmapped = errors.New("no site claims this host")

// ErrStoreUnavailable wraps mapping-store failures.  It is never cached,
// and callers are expected to fail open (pass the request through)
// rather than treat the host as unmapped.
var ErrStoreUnavailable = errors.New("mapping store unavailable")

// Result is a successful resolution: the site and the short name its
// namespaced path is built from.
type Result struct {
	SiteID    uint64
	Subdomain string
}

// Store is the narrow query capability the resolver consumes.  The
// production implementation is mapping.Store; tests substitute a
// counting fake.
type Store interface {
	FindByHost(ctx context.Context, variants []string) (*mapping.Match, error)
}

// loopback hosts never consume a cache slot or touch the store.
var loopbackHosts = map[string]struct{}{
	"localhost": {},
	"127.0.0.1": {},
	"0.0.0.0":   {},
	"[::1]":     {},
}

// Resolver owns the cache lifecycle and orchestrates lookups.  Safe for
// unbounded concurrent use.
type Resolver struct {
	store            Store
	cache            *Cache
	queryTimeout     time.Duration
	reservedSuffixes []string
}

// New builds a Resolver around an injected cache and store.
func New(store Store, cache *Cache, queryTimeout time.Duration, reservedSuffixes []string) *Resolver {
	return &Resolver{
		store:            store,
		cache:            cache,
		queryTimeout:     queryTimeout,
		reservedSuffixes: reservedSuffixes,
	}
}

// Resolve maps a raw Host header to a site.  Returns ErrUnmapped when no
// site claims the host (including empty or reserved hosts), or an error
// wrapping ErrStoreUnavailable when the store could not be queried.
func (r *Resolver) Resolve(ctx context.Context, rawHost string) (*Result, error) {
	metrics.ResolveTotal.Inc()

	h := host.Normalize(rawHost)
	if h == "" {
		// Structurally invalid input degrades to Unmapped, uncached.
		return nil, ErrUnmapped
	}
	if r.isReserved(h) {
		return nil, ErrUnmapped
	}

	if res, ok := r.cache.Get(h); ok {
		if res == nil {
			metrics.CacheNegativeHitTotal.Inc()
			return nil, ErrUnmapped
		}
		metrics.CacheHitTotal.Inc()
		return res, nil
	}
	metrics.CacheMissTotal.Inc()

	qctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	m, err := r.store.FindByHost(qctx, host.Variants(h))
	if err != nil {
		metrics.StoreErrorTotal.Inc()
		zap.L().Error("mapping store query failed",
			zap.String("host", h),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if m == nil {
		r.cache.Put(h, nil)
		return nil, ErrUnmapped
	}

	res := &Result{SiteID: m.SiteID, Subdomain: m.Subdomain}
	r.cache.Put(h, res)
	return res, nil
}

// InvalidateHost drops the cache entries for a host and its www
// companion, so admin mutations take effect on the next request for
// either spelling.
func (r *Resolver) InvalidateHost(rawHost string) {
	h := host.Normalize(rawHost)
	if h == "" {
		return
	}
	r.cache.Invalidate(h)
	if host.HasWWW(h) {
		r.cache.Invalidate(host.StripWWW(h))
	} else {
		r.cache.Invalidate("www." + h)
	}
}

// InvalidateAll clears the whole cache.
func (r *Resolver) InvalidateAll() {
	r.cache.InvalidateAll()
}

// isReserved reports whether h is a loopback or internal host that must
// never resolve to a tenant.
func (r *Resolver) isReserved(h string) bool {
	if _, ok := loopbackHosts[h]; ok {
		return true
	}
	for _, suffix := range r.reservedSuffixes {
		if suffix == "" {
			continue
		}
		if strings.HasSuffix(h, suffix) {
			return true
		}
	}
	return false
}
