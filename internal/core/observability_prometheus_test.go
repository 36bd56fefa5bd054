package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"timetable/pkg/domain"
)

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	svc := NewInMemoryService(WithMetricsRecorder(rec))
	ctx := context.Background()
	mustAddEntry(t, svc, lesson("T1", 4, 1, domain.DayWed, 3))
	mustAddEntry(t, svc, lesson("T1", 4, 2, domain.DayWed, 3))
	_, _ = svc.RemoveEntry(ctx, "missing")

	if got := testutil.ToFloat64(rec.results.WithLabelValues("add_entry", "success")); got != 2 {
		t.Fatalf("expected 2 add_entry successes, got %v", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("remove_entry", "error")); got != 1 {
		t.Fatalf("expected 1 remove_entry error, got %v", got)
	}
	if got := testutil.ToFloat64(rec.conflicts.WithLabelValues(string(domain.ConflictSameTeacherSameTime))); got != 1 {
		t.Fatalf("expected one teacher conflict, got %v", got)
	}
	if got := testutil.ToFloat64(rec.conflicts.WithLabelValues(string(domain.ConflictSameClassSameTime))); got != 0 {
		t.Fatalf("expected zero class conflicts, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.durations); n != 2 {
		t.Fatalf("expected histogram series for two operations, got %d", n)
	}

	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestMultiMetricsRecorderFansOut(t *testing.T) {
	first := &captureMetricsRecorder{}
	second := &captureMetricsRecorder{}
	multi := MultiMetricsRecorder{first, second, noopMetrics{}}
	ctx := context.Background()
	multi.Observe(ctx, "op", true, time.Millisecond)
	multi.ObserveConflicts(ctx, []Conflict{{Type: domain.ConflictSameClassSameTime}})
	for i, rec := range []*captureMetricsRecorder{first, second} {
		if !rec.has("op", true) || len(rec.conflicts) != 1 {
			t.Fatalf("recorder %d missed fan-out: %+v", i, rec)
		}
	}
}
