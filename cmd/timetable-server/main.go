// Command timetable-server serves the timetable API over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"timetable/internal/adapters/httpapi"
	"timetable/internal/blob"
	"timetable/internal/config"
	"timetable/internal/core"
	"timetable/internal/export"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "timetable-server:", err)
		exitFunc(1)
	}
}

// run serves until ctx is cancelled or the listener fails.
func run(ctx context.Context, stdout io.Writer, opts ...config.Option) error {
	cfg, err := config.Load(opts...)
	if err != nil {
		return err
	}
	srv, err := newServer(ctx, cfg, stdout)
	if err != nil {
		return err
	}
	return srv.serve(ctx)
}

type server struct {
	cfg    config.Config
	logger *slog.Logger
	closer io.Closer
	worker *export.Worker
	app    interface {
		Listen(addr string) error
		ShutdownWithContext(ctx context.Context) error
	}
}

func newServer(ctx context.Context, cfg config.Config, stdout io.Writer) (*server, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	lang, err := cfg.Language()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: level}))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMetrics, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		return nil, err
	}
	metrics := core.MultiMetricsRecorder{promMetrics, core.NewExpvarMetricsRecorder("")}

	svc, sink, err := core.OpenPersistentService(ctx, cfg.Storage,
		core.WithLogger(logger),
		core.WithMetricsRecorder(metrics),
		core.WithTracer(core.NewLogTracer(logger, 0)),
		core.WithAuditRecorder(auditLog{logger: logger}),
	)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	store, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		if sink != nil {
			_ = sink.Close()
		}
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	exporter := export.NewExporter(export.WithLanguage(lang), export.WithLogger(logger))
	worker := export.NewWorker(exporter, svc, store,
		export.WithQueueSize(cfg.Export.QueueSize),
		export.WithWorkerLogger(logger),
		export.WithAuditLogger(exportAuditLog{logger: logger}),
	)
	if restored, err := worker.RestoreArtifacts(ctx); err != nil {
		logger.Warn("restore stored exports failed", "error", err)
	} else if restored > 0 {
		logger.Info("restored stored exports", "count", restored)
	}
	handler := httpapi.NewHandler(svc,
		httpapi.WithExporter(exporter),
		httpapi.WithExportScheduler(worker),
		httpapi.WithLogger(logger),
	)
	app := httpapi.NewApp(handler, httpapi.AppConfig{
		Gatherer:     reg,
		RequestLog:   stdout,
		DebugVars:    true,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	})
	srv := &server{cfg: cfg, logger: logger, worker: worker, app: app}
	if sink != nil {
		srv.closer = sink
	}
	return srv, nil
}

// serve starts the worker and the listener, then shuts both down once ctx is
// done.
func (s *server) serve(ctx context.Context) error {
	s.worker.Start()
	listenErr := make(chan error, 1)
	go func() { listenErr <- s.app.Listen(s.cfg.HTTP.Addr) }()
	s.logger.Info("timetable server listening",
		"addr", s.cfg.HTTP.Addr,
		"storage", s.cfg.Storage.Driver,
		"blob", s.cfg.Blob.Driver,
	)

	var err error
	select {
	case err = <-listenErr:
		if err != nil {
			err = fmt.Errorf("listen %s: %w", s.cfg.HTTP.Addr, err)
		}
	case <-ctx.Done():
		s.logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if shutdownErr := s.app.ShutdownWithContext(shutdownCtx); shutdownErr != nil {
		err = errors.Join(err, fmt.Errorf("shutdown http: %w", shutdownErr))
	}
	if stopErr := s.worker.Stop(shutdownCtx); stopErr != nil {
		err = errors.Join(err, fmt.Errorf("stop export worker: %w", stopErr))
	}
	if s.closer != nil {
		if closeErr := s.closer.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close storage: %w", closeErr))
		}
	}
	return err
}

// auditLog writes service audit entries to the structured log.
type auditLog struct {
	logger *slog.Logger
}

func (a auditLog) Record(ctx context.Context, entry core.AuditEntry) {
	level := slog.LevelInfo
	if entry.Status == core.AuditStatusError {
		level = slog.LevelWarn
	}
	a.logger.Log(ctx, level, "audit",
		"operation", entry.Operation,
		"entity", entry.Entity,
		"entity_id", entry.EntityID,
		"status", entry.Status,
		"error", entry.Error,
		"changes", entry.Changes,
		"conflicts", entry.Conflicts,
		"duration", entry.Duration,
	)
}

// exportAuditLog writes export lifecycle entries to the structured log.
type exportAuditLog struct {
	logger *slog.Logger
}

func (a exportAuditLog) Record(ctx context.Context, entry export.AuditEntry) {
	level := slog.LevelInfo
	if entry.Status == export.ExportStatusFailed {
		level = slog.LevelWarn
	}
	a.logger.Log(ctx, level, "export audit",
		"export_id", entry.ExportID,
		"actor", entry.Actor,
		"format", entry.Format,
		"status", entry.Status,
		"metadata", entry.Metadata,
	)
}
