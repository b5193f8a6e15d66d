package internal

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "siem"

var (
	// RecordWritesTotal counts facade writes by category and result.
	RecordWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "recorder",
			Name:      "writes_total",
			Help:      "Total record writes issued to the store",
		},
		[]string{"category", "result"},
	)

	// RecordWriteDuration tracks store acknowledgement latency.
	RecordWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "recorder",
			Name:      "write_duration_seconds",
			Help:      "Record write latency in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"category"},
	)

	// IngestRequestsTotal counts ingest server requests by route and status.
	IngestRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ingest",
			Name:      "requests_total",
			Help:      "Total ingest HTTP requests",
		},
		[]string{"route", "status"},
	)

	// NotificationsTotal counts notification attempts by channel and result.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "notifier",
			Name:      "sent_total",
			Help:      "Notification attempts by channel",
		},
		[]string{"channel", "result"},
	)
)

func observeWrite(category string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	RecordWritesTotal.WithLabelValues(category, result).Inc()
	RecordWriteDuration.WithLabelValues(category).Observe(time.Since(start).Seconds())
}
