package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"timetable/pkg/domain"
)

var expvarSeq atomic.Uint64

// ExpvarMetricsRecorder publishes operation results, cumulative latency, and the
// latest conflict counts as one expvar.Map.
type ExpvarMetricsRecorder struct {
	name      string
	mu        sync.Mutex
	results   *expvar.Map
	durations *expvar.Map
	conflicts *expvar.Map
}

// ExpvarMetricsSnapshot mirrors the published JSON document.
type ExpvarMetricsSnapshot struct {
	DurationsMS map[string]float64          `json:"durations_ms_total"`
	Results     map[string]map[string]int64 `json:"results_total"`
	Conflicts   map[domain.ConflictType]int `json:"conflicts"`
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated timetable_service_metrics_N name when name is empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("timetable_service_metrics_%d", expvarSeq.Add(1))
	}
	rec := &ExpvarMetricsRecorder{
		name:      name,
		results:   new(expvar.Map).Init(),
		durations: new(expvar.Map).Init(),
		conflicts: new(expvar.Map).Init(),
	}
	for _, kind := range []domain.ConflictType{domain.ConflictSameClassSameTime, domain.ConflictSameTeacherSameTime} {
		rec.conflicts.Set(string(kind), new(expvar.Int))
	}
	root := new(expvar.Map).Init()
	root.Set("results_total", rec.results)
	root.Set("durations_ms_total", rec.durations)
	root.Set("conflicts", rec.conflicts)
	expvar.Publish(name, root)
	return rec
}

// Name returns the expvar key the recorder is published under.
func (r *ExpvarMetricsRecorder) Name() string {
	return r.name
}

// Observe counts the outcome of operation and adds its latency.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.durations.AddFloat(operation, float64(duration)/float64(time.Millisecond))
	r.statusMap(operation).Add(status, 1)
}

func (r *ExpvarMetricsRecorder) statusMap(operation string) *expvar.Map {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.results.Get(operation).(*expvar.Map); ok {
		return m
	}
	m := new(expvar.Map).Init()
	r.results.Set(operation, m)
	return m
}

// ObserveConflicts publishes the per-type counts of conflicts.
func (r *ExpvarMetricsRecorder) ObserveConflicts(_ context.Context, conflicts []Conflict) {
	for kind, n := range countConflicts(conflicts) {
		v := new(expvar.Int)
		v.Set(int64(n))
		r.conflicts.Set(string(kind), v)
	}
}

// Snapshot decodes the currently published values.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	var snap ExpvarMetricsSnapshot
	raw := expvar.Get(r.name)
	if raw == nil {
		return snap
	}
	_ = json.Unmarshal([]byte(raw.String()), &snap)
	return snap
}

func countConflicts(conflicts []Conflict) map[domain.ConflictType]int {
	counts := map[domain.ConflictType]int{
		domain.ConflictSameClassSameTime:   0,
		domain.ConflictSameTeacherSameTime: 0,
	}
	for _, c := range conflicts {
		counts[c.Type]++
	}
	return counts
}

// SpanRecord describes one finished operation.
type SpanRecord struct {
	Operation string
	Duration  time.Duration
	Err       string
}

// LogTracer reports finished spans to a Logger and keeps the most recent ones
// for the debug surface.
type LogTracer struct {
	logger Logger
	limit  int
	now    func() time.Time

	mu     sync.Mutex
	recent []SpanRecord
}

// NewLogTracer keeps at most limit spans; a non-positive limit keeps none.
func NewLogTracer(logger Logger, limit int) *LogTracer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogTracer{logger: logger, limit: max(limit, 0), now: time.Now}
}

// Recent returns the retained spans, oldest first.
func (t *LogTracer) Recent() []SpanRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]SpanRecord(nil), t.recent...)
}

// Start implements Tracer.
func (t *LogTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &logSpan{tracer: t, operation: operation, started: t.now()}
}

func (t *LogTracer) finish(rec SpanRecord) {
	ms := float64(rec.Duration) / float64(time.Millisecond)
	if rec.Err != "" {
		t.logger.Warn("operation span failed", "operation", rec.Operation, "duration_ms", ms, "error", rec.Err)
	} else {
		t.logger.Debug("operation span", "operation", rec.Operation, "duration_ms", ms)
	}
	if t.limit == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.recent) == t.limit {
		t.recent = append(t.recent[:0], t.recent[1:]...)
	}
	t.recent = append(t.recent, rec)
}

type logSpan struct {
	tracer    *LogTracer
	operation string
	started   time.Time
}

func (s *logSpan) End(err error) {
	rec := SpanRecord{Operation: s.operation, Duration: s.tracer.now().Sub(s.started)}
	if err != nil {
		rec.Err = err.Error()
	}
	s.tracer.finish(rec)
}
