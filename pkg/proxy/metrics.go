package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mxproxy_upstream_requests_total",
		Help: "Requests sent to the primary upstream by status code, or error",
	}, []string{"code"})

	upstreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mxproxy_upstream_duration_seconds",
		Help:    "Time to fetch and buffer an upstream response",
		Buckets: prometheus.DefBuckets,
	})

	htmlRewrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mxproxy_html_rewrites_total",
		Help: "HTML responses that had the content script injected",
	})

	rejectedWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mxproxy_rejected_dashboard_writes_total",
		Help: "Dashboard PUT/DELETE requests answered with 403",
	})
)
