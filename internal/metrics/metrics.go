package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Callback intake metrics
	CallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devicepulse_callbacks_total",
			Help: "Total number of webhook callbacks received",
		},
		[]string{"kind", "status"},
	)

	CallbackBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devicepulse_callback_bytes_total",
			Help: "Total bytes of callback payload received",
		},
	)

	// Bulk pipeline metrics
	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devicepulse_records_total",
			Help: "Total number of bulk index records built",
		},
		[]string{"index"},
	)

	BulkDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "devicepulse_bulk_duration_seconds",
			Help:    "Duration of outbound bulk requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BulkPayloadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "devicepulse_bulk_payload_bytes",
			Help:    "Size of outbound bulk payloads in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		},
	)

	BulkTransportErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devicepulse_bulk_transport_errors_total",
			Help: "Total number of bulk requests that failed before reaching the engine",
		},
	)

	// Engine-side indexing failures are observed, never surfaced upstream.
	BulkItemErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "devicepulse_bulk_item_errors_total",
			Help: "Total number of per-document errors reported in engine bulk responses",
		},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devicepulse_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"client"},
	)

	// DLQ metrics
	DLQWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devicepulse_dlq_writes_total",
			Help: "Total number of failed callbacks written to the dead letter queue",
		},
		[]string{"reason"},
	)
)
