package assets

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mxproxy_asset_cache_lookups_total",
		Help: "Asset cache lookups by result (hit or miss)",
	}, []string{"result"})

	cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mxproxy_asset_cache_entries",
		Help: "Number of paths held in the asset cache",
	})

	cacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mxproxy_asset_cache_evictions_total",
		Help: "Asset cache entries dropped by capacity or expiry",
	})
)

// CountEviction is meant to be passed to cache.WithOnEvict. It runs under the
// cache lock, so the entries gauge is adjusted instead of re-read.
func CountEviction(string) {
	cacheEvictions.Inc()
	cacheEntries.Dec()
}
