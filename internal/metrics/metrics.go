// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Counters
	SnapshotLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobinsights_snapshot_loads_total",
			Help: "Total number of job snapshot loads",
		},
		[]string{"source", "result"}, // result: "success" or "error"
	)

	ReportCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobinsights_report_cache_total",
			Help: "Report cache lookups by outcome",
		},
		[]string{"result"}, // hit, miss, error
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobinsights_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"route", "method", "status"},
	)

	// Gauges
	SnapshotJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "jobinsights_snapshot_jobs",
			Help: "Number of job records in the current snapshot",
		},
	)

	AnomaliesDetected = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jobinsights_anomalies_detected",
			Help: "Anomalies found in the most recent report",
		},
		[]string{"type"}, // stuck, failure_cluster
	)

	// Histograms
	// Buckets: 1ms to ~16s
	ReportDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobinsights_report_duration_seconds",
			Help:    "Time spent computing each report stage",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"stage"}, // durations, wait_times, recommendations, anomalies, total
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobinsights_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// ObserveStage records how long a report stage took since start
func ObserveStage(stage string, start time.Time) {
	ReportDurationSeconds.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// RecordSnapshotLoad counts a load attempt and, on success, updates the job gauge
func RecordSnapshotLoad(source string, jobs int, err error) {
	if err != nil {
		SnapshotLoadsTotal.WithLabelValues(source, "error").Inc()
		return
	}
	SnapshotLoadsTotal.WithLabelValues(source, "success").Inc()
	SnapshotJobs.Set(float64(jobs))
}
