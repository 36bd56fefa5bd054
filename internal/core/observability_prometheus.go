package core

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports operation latency, outcome counters, and
// the current conflict counts as Prometheus collectors.
type PrometheusMetricsRecorder struct {
	durations *prometheus.HistogramVec
	results   *prometheus.CounterVec
	conflicts *prometheus.GaugeVec
}

// NewPrometheusMetricsRecorder registers the timetable collectors with reg.
// A nil registerer uses prometheus.DefaultRegisterer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rec := &PrometheusMetricsRecorder{
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "timetable_operation_duration_seconds",
			Help:    "Latency of timetable service operations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"operation"}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timetable_operations_total",
			Help: "Timetable service operations by outcome.",
		}, []string{"operation", "status"}),
		conflicts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "timetable_conflicts",
			Help: "Current number of scheduling conflicts by type.",
		}, []string{"type"}),
	}
	for _, c := range []prometheus.Collector{rec.durations, rec.results, rec.conflicts} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return rec, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := "error"
	if success {
		status = "success"
	}
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
	r.results.WithLabelValues(operation, status).Inc()
}

// ObserveConflicts implements ConflictObserver.
func (r *PrometheusMetricsRecorder) ObserveConflicts(_ context.Context, conflicts []Conflict) {
	for kind, n := range countConflicts(conflicts) {
		r.conflicts.WithLabelValues(string(kind)).Set(float64(n))
	}
}

// MultiMetricsRecorder fans observations out to several recorders.
type MultiMetricsRecorder []MetricsRecorder

// Observe implements MetricsRecorder.
func (m MultiMetricsRecorder) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range m {
		r.Observe(ctx, operation, success, duration)
	}
}

// ObserveConflicts forwards to every recorder implementing ConflictObserver.
func (m MultiMetricsRecorder) ObserveConflicts(ctx context.Context, conflicts []Conflict) {
	for _, r := range m {
		if observer, ok := r.(ConflictObserver); ok {
			observer.ObserveConflicts(ctx, conflicts)
		}
	}
}
