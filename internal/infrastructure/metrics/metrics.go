// Package metrics provides Prometheus metrics for the photo identification pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchesTotal tracks identification batches by outcome
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shoplens",
			Subsystem: "identification",
			Name:      "batches_total",
			Help:      "Total number of photo identification batches by status",
		},
		[]string{"status"},
	)

	// BatchDuration tracks how long a whole batch takes
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shoplens",
			Subsystem: "identification",
			Name:      "batch_duration_seconds",
			Help:      "Duration of photo identification batches in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	// ImagesTotal tracks analyzed images by outcome (matched, unmatched, degraded)
	ImagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shoplens",
			Subsystem: "identification",
			Name:      "images_total",
			Help:      "Total number of analyzed images by outcome",
		},
		[]string{"outcome"},
	)

	// AutoAssignTotal tracks images whose top match is confident enough to auto-assign
	AutoAssignTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shoplens",
			Subsystem: "identification",
			Name:      "auto_assign_recommended_total",
			Help:      "Total number of images recommended for automatic assignment",
		},
	)

	// VisionCallsTotal tracks outbound vision model calls by status
	VisionCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shoplens",
			Subsystem: "vision",
			Name:      "calls_total",
			Help:      "Total number of vision model calls by status",
		},
		[]string{"status"},
	)

	// VisionCallDuration tracks vision model latency
	VisionCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "shoplens",
			Subsystem: "vision",
			Name:      "call_duration_seconds",
			Help:      "Duration of vision model calls in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)

	// CatalogLoadsTotal tracks catalog snapshot loads by source (cache, repository)
	CatalogLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shoplens",
			Subsystem: "catalog",
			Name:      "loads_total",
			Help:      "Total number of catalog snapshot loads by source",
		},
		[]string{"source"},
	)
)

// ObserveVisionCall records one vision model call
func ObserveVisionCall(d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	VisionCallsTotal.WithLabelValues(status).Inc()
	VisionCallDuration.Observe(d.Seconds())
}
