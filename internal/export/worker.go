package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"timetable/internal/blob"
	"timetable/internal/core"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
	// ExportStatusDeleted only appears in audit entries.
	ExportStatusDeleted ExportStatus = "deleted"
)

// ArtifactPrefix is the blob key prefix for stored exports.
const ArtifactPrefix = "exports/"

// ExportRecord tracks an export request and its stored artifact.
type ExportRecord struct {
	ID          string       `json:"id"`
	Format      Format       `json:"format"`
	Status      ExportStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	RequestedBy string       `json:"requested_by,omitempty"`
	FileName    string       `json:"file_name"`
	ContentType string       `json:"content_type"`
	Key         string       `json:"key,omitempty"`
	SizeBytes   int64        `json:"size_bytes,omitempty"`
	URL         string       `json:"url,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		dup.CompletedAt = &at
	}
	return dup
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	Format      Format
	RequestedBy string
}

// SnapshotSource supplies the data an export renders. *core.Service
// satisfies it.
type SnapshotSource interface {
	ExportSnapshot() Snapshot
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for exports.
type AuditEntry struct {
	ID         string         `json:"id"`
	ExportID   string         `json:"export_id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	Format     Format         `json:"format"`
	Status     ExportStatus   `json:"status"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Worker errors.
var (
	ErrQueueFull           = errors.New("export queue full")
	ErrExportNotFound      = errors.New("export not found")
	ErrExportNotReady      = errors.New("export not ready")
	ErrWorkerStopped       = errors.New("export worker stopped")
	ErrWorkerNotConfigured = errors.New("export worker not configured")
)

const auditAction = "timetable_export"

// Artifact metadata keys.
const (
	metaExportID = "export_id"
	metaFormat   = "format"
)

// Worker renders exports asynchronously and stores the artifacts.
type Worker struct {
	exporter *Exporter
	source   SnapshotSource
	store    blob.Store
	audit    AuditLogger
	logger   core.Logger

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id       string
	format   Format
	snapshot Snapshot
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithAuditLogger records queued, running, succeeded, and failed transitions.
func WithAuditLogger(audit AuditLogger) WorkerOption {
	return func(w *Worker) { w.audit = audit }
}

// WithWorkerLogger sets the logger used for failed jobs.
func WithWorkerLogger(logger core.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithQueueSize bounds the number of pending jobs.
func WithQueueSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.queue = make(chan exportTask, n)
		}
	}
}

// NewWorker constructs an export worker.
func NewWorker(exporter *Exporter, source SnapshotSource, store blob.Store, opts ...WorkerOption) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		exporter: exporter,
		source:   source,
		store:    store,
		logger:   discardLogger{},
		queue:    make(chan exportTask, 32),
		jobs:     make(map[string]*ExportRecord),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion. Later enqueues
// fail with ErrWorkerStopped.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	w.cancel()
	w.mu.Unlock()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport snapshots the current data and schedules a render. The
// returned record is in the queued state.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.exporter == nil || w.source == nil {
		return ExportRecord{}, ErrWorkerNotConfigured
	}
	if !w.exporter.Supports(input.Format) {
		return ExportRecord{}, ErrUnsupportedFormat{Format: string(input.Format)}
	}

	id := newID()
	now := time.Now().UTC()
	record := ExportRecord{
		ID:          id,
		Format:      input.Format,
		Status:      ExportStatusQueued,
		RequestedBy: strings.TrimSpace(input.RequestedBy),
		FileName:    input.Format.FileName(),
		ContentType: input.Format.ContentType(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	task := exportTask{id: id, format: input.Format, snapshot: w.source.ExportSnapshot()}

	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return ExportRecord{}, ErrWorkerStopped
	}
	select {
	case w.queue <- task:
	default:
		w.mu.Unlock()
		return ExportRecord{}, ErrQueueFull
	}
	w.jobs[id] = &record
	queued := record.copy()
	w.mu.Unlock()

	w.record(ctx, queued, nil)
	return queued, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

// ListExports returns every known export, newest first.
func (w *Worker) ListExports() []ExportRecord {
	w.mu.RLock()
	out := make([]ExportRecord, 0, len(w.jobs))
	for _, record := range w.jobs {
		out = append(out, record.copy())
	}
	w.mu.RUnlock()
	slices.SortFunc(out, func(a, b ExportRecord) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// DeleteExport forgets a finished export and removes its stored artifact.
// Queued and running exports return ErrExportNotReady.
func (w *Worker) DeleteExport(ctx context.Context, id string) (ExportRecord, error) {
	record, ok := w.GetExport(id)
	if !ok {
		return ExportRecord{}, ErrExportNotFound
	}
	if record.Status == ExportStatusQueued || record.Status == ExportStatusRunning {
		return record, ErrExportNotReady
	}
	if record.Key != "" && w.store != nil {
		if _, err := w.store.Delete(ctx, record.Key); err != nil {
			return record, fmt.Errorf("delete artifact %s: %w", record.Key, err)
		}
	}
	w.mu.Lock()
	delete(w.jobs, id)
	w.mu.Unlock()

	record.Status = ExportStatusDeleted
	record.UpdatedAt = time.Now().UTC()
	w.record(ctx, record, map[string]any{"key": record.Key})
	return record, nil
}

// RestoreArtifacts registers artifacts already present in the blob store as
// succeeded exports, so downloads survive a restart. It returns the number of
// records added.
func (w *Worker) RestoreArtifacts(ctx context.Context) (int, error) {
	if w.store == nil {
		return 0, nil
	}
	listed, err := w.store.List(ctx, ArtifactPrefix)
	if err != nil {
		return 0, fmt.Errorf("list artifacts: %w", err)
	}
	restored := 0
	for _, item := range listed {
		// Listings may omit user metadata (S3), so read it per object.
		info, err := w.store.Head(ctx, item.Key)
		if errors.Is(err, blob.ErrNotFound) {
			continue
		}
		if err != nil {
			return restored, fmt.Errorf("head artifact %s: %w", item.Key, err)
		}
		record, ok := recordFromArtifact(info)
		if !ok {
			w.logger.Warn("skipping unrecognised export artifact", "key", info.Key)
			continue
		}
		record.URL = w.presign(ctx, record.ID, record.Key)
		w.mu.Lock()
		if _, exists := w.jobs[record.ID]; !exists {
			w.jobs[record.ID] = &record
			restored++
		}
		w.mu.Unlock()
	}
	return restored, nil
}

func recordFromArtifact(info blob.Info) (ExportRecord, bool) {
	id := info.Metadata[metaExportID]
	format, err := ParseFormat(info.Metadata[metaFormat])
	if id == "" || err != nil {
		return ExportRecord{}, false
	}
	contentType := info.ContentType
	if contentType == "" {
		contentType = format.ContentType()
	}
	completed := info.LastModified.UTC()
	return ExportRecord{
		ID:          id,
		Format:      format,
		Status:      ExportStatusSucceeded,
		FileName:    format.FileName(),
		ContentType: contentType,
		Key:         info.Key,
		SizeBytes:   info.Size,
		CreatedAt:   completed,
		UpdatedAt:   completed,
		CompletedAt: &completed,
	}, true
}

// OpenArtifact returns the stored artifact of a succeeded export. The caller
// closes the reader.
func (w *Worker) OpenArtifact(ctx context.Context, id string) (ExportRecord, io.ReadCloser, error) {
	record, ok := w.GetExport(id)
	if !ok {
		return ExportRecord{}, nil, ErrExportNotFound
	}
	if record.Status != ExportStatusSucceeded {
		return record, nil, ErrExportNotReady
	}
	_, body, err := w.store.Get(ctx, record.Key)
	if err != nil {
		return record, nil, fmt.Errorf("open artifact %s: %w", record.Key, err)
	}
	return record, body, nil
}

func (w *Worker) process(task exportTask) {
	w.update(task.id, func(r *ExportRecord) { r.Status = ExportStatusRunning })

	artifact, err := w.exporter.Export(w.ctx, task.format, task.snapshot)
	if err != nil {
		w.fail(task.id, err)
		return
	}
	if w.store == nil {
		w.fail(task.id, errors.New("artifact store not configured"))
		return
	}
	key := ArtifactPrefix + task.id + "." + string(task.format)
	info, err := w.store.Put(w.ctx, key, bytes.NewReader(artifact.Data), blob.PutOptions{
		ContentType: artifact.ContentType,
		Metadata:    map[string]string{metaExportID: task.id, metaFormat: string(task.format)},
	})
	if err != nil {
		w.fail(task.id, fmt.Errorf("store artifact: %w", err))
		return
	}
	url := w.presign(w.ctx, task.id, key)
	w.update(task.id, func(r *ExportRecord) {
		now := r.UpdatedAt
		r.Status = ExportStatusSucceeded
		r.Error = ""
		r.Key = key
		r.SizeBytes = info.Size
		r.URL = url
		r.CompletedAt = &now
	})
}

func (w *Worker) presign(ctx context.Context, id, key string) string {
	url, err := w.store.PresignURL(ctx, key, blob.SignedURLOptions{})
	if err != nil && !errors.Is(err, blob.ErrUnsupported) {
		w.logger.Warn("presign export artifact failed", "export_id", id, "error", err)
	}
	return url
}

func (w *Worker) fail(id string, err error) {
	w.logger.Error("export job failed", "export_id", id, "error", err)
	w.update(id, func(r *ExportRecord) {
		now := r.UpdatedAt
		r.Status = ExportStatusFailed
		r.Error = err.Error()
		r.CompletedAt = &now
	})
}

func (w *Worker) update(id string, mutate func(*ExportRecord)) {
	w.mu.Lock()
	record, ok := w.jobs[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	record.UpdatedAt = time.Now().UTC()
	mutate(record)
	snapshot := record.copy()
	w.mu.Unlock()
	w.record(w.ctx, snapshot, nil)
}

func (w *Worker) record(ctx context.Context, r ExportRecord, metadata map[string]any) {
	if w.audit == nil {
		return
	}
	if r.Error != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["error"] = r.Error
	}
	w.audit.Record(ctx, AuditEntry{
		ID:         newID(),
		ExportID:   r.ID,
		Action:     auditAction,
		Actor:      r.RequestedBy,
		Format:     r.Format,
		Status:     r.Status,
		Metadata:   metadata,
		OccurredAt: r.UpdatedAt,
	})
}

func newID() string {
	return uuid.NewString()
}

// MemoryAuditLog captures audit entries in memory.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
