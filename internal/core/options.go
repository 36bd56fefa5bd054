package core

import (
	"time"

	"timetable/pkg/domain"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger. Nil keeps the no-op logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics recorder.
func WithMetricsRecorder(metrics MetricsRecorder) Option {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithTracer sets the tracer used to wrap each operation.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder sets the audit recorder.
func WithAuditRecorder(audit AuditRecorder) Option {
	return func(s *Service) {
		if audit != nil {
			s.audit = audit
		}
	}
}

// WithClock overrides the time source used for audit timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSnapshotSink installs the save hook invoked after each committed mutation.
func WithSnapshotSink(sink domain.SnapshotSink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}
