// Package metrics holds Prometheus instruments used across the platform.
// All collectors are registered with the global registry, so importing
// this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ResolveTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "host_resolve_total",
			Help: "Cumulative number of host resolution attempts.",
		})

	CacheHitTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resolve_cache_hit_total",
			Help: "Resolutions answered from the cache (positive entries).",
		})

	CacheNegativeHitTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resolve_cache_negative_hit_total",
			Help: "Resolutions answered from a cached not-found entry.",
		})

	CacheMissTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resolve_cache_miss_total",
			Help: "Resolutions that fell through to the mapping store.",
		})

	StoreErrorTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mapping_store_error_total",
			Help: "Mapping store queries that failed (never cached).",
		})

	AmbiguousMappingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ambiguous_mapping_total",
			Help: "Lookups where www/bare variants matched different sites.",
		})

	InvalidateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resolve_cache_invalidate_total",
			Help: "Explicit cache invalidations (single key or wholesale).",
		})

	CacheEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "resolve_cache_evict_total",
			Help: "Entries removed by the background sweep (expiry or LRU).",
		})

	ActiveCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "resolve_cache_entries",
			Help: "Number of entries currently held by the resolution cache.",
		})
)

func init() {
	prometheus.MustRegister(
		ResolveTotal,
		CacheHitTotal,
		CacheNegativeHitTotal,
		CacheMissTotal,
		StoreErrorTotal,
		AmbiguousMappingTotal,
		InvalidateTotal,
		CacheEvictTotal,
		ActiveCacheEntries,
	)
}
