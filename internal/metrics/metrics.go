package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// DownloadDecisions результат проверки скачивания: allowed, rate_limited, expired...
	DownloadDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_download_decisions_total",
			Help: "Download gate decisions by outcome.",
		},
		[]string{"outcome"},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_auth_attempts_total",
			Help: "Client access code checks by result.",
		},
		[]string{"kind", "result"},
	)

	LedgerPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_ledger_pruned_total",
			Help: "Download ledger windows removed by the prune job.",
		},
	)
)
