package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"timetable/internal/blob"
	"timetable/internal/core"
	"timetable/internal/export"
)

type captureLogger struct {
	errors []string
}

func (l *captureLogger) Debug(string, ...any)       {}
func (l *captureLogger) Info(string, ...any)        {}
func (l *captureLogger) Warn(string, ...any)        {}
func (l *captureLogger) Error(msg string, _ ...any) { l.errors = append(l.errors, msg) }

func newTestApp(t *testing.T, opts ...HandlerOption) (*fiber.App, *core.Service) {
	t.Helper()
	svc := core.NewInMemoryService()
	return NewApp(NewHandler(svc, opts...), AppConfig{}), svc
}

func do(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return out
}

func expectStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func TestHealthAndUnknownRoute(t *testing.T) {
	app, _ := newTestApp(t)
	resp, body := do(t, app, http.MethodGet, "/health", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if resp.Header.Get(fiber.HeaderXRequestID) == "" {
		t.Fatalf("expected request id header")
	}
	resp, body = do(t, app, http.MethodGet, "/api/v1/nope", nil)
	expectStatus(t, resp, body, http.StatusNotFound)
	if decode[map[string]any](t, body)["error"] == nil {
		t.Fatalf("expected error payload, got %s", body)
	}
}

func TestSettingsRoutes(t *testing.T) {
	app, svc := newTestApp(t)

	resp, body := do(t, app, http.MethodGet, "/api/v1/settings", nil)
	expectStatus(t, resp, body, http.StatusOK)
	settings := decode[struct {
		Grades   []core.GradeSettings `json:"grades"`
		Subjects []core.Subject       `json:"subjects"`
	}](t, body)
	if len(settings.Grades) != 6 || len(settings.Subjects) != 3 {
		t.Fatalf("expected default settings, got %+v", settings)
	}

	resp, body = do(t, app, http.MethodPost, "/api/v1/settings/grades/1/toggle", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if g, _ := svc.Grade(1); !g.Enabled {
		t.Fatalf("expected grade 1 enabled")
	}
	resp, body = do(t, app, http.MethodPost, "/api/v1/settings/grades/9/toggle", nil)
	expectStatus(t, resp, body, http.StatusBadRequest)

	resp, body = do(t, app, http.MethodPut, "/api/v1/settings/grades/3/class-count", map[string]any{"class_count": 25})
	expectStatus(t, resp, body, http.StatusOK)
	if g, _ := svc.Grade(3); g.ClassCount != 10 {
		t.Fatalf("expected clamped class count, got %d", g.ClassCount)
	}
	resp, body = do(t, app, http.MethodPut, "/api/v1/settings/grades/3/class-count", map[string]any{})
	expectStatus(t, resp, body, http.StatusBadRequest)

	resp, body = do(t, app, http.MethodPost, "/api/v1/settings/subjects", map[string]any{"name": "Music", "color": "blue"})
	expectStatus(t, resp, body, http.StatusBadRequest)
	fields := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, body).Fields
	if fields["color"] != "hexcolor" {
		t.Fatalf("expected color validation failure, got %v", fields)
	}

	resp, body = do(t, app, http.MethodPost, "/api/v1/settings/subjects", map[string]any{"name": "Music", "color": "#A855F7"})
	expectStatus(t, resp, body, http.StatusCreated)
	created := decode[struct {
		Subject core.Subject `json:"subject"`
	}](t, body).Subject

	resp, body = do(t, app, http.MethodPut, "/api/v1/settings/subjects/"+created.ID, map[string]any{"name": "Band"})
	expectStatus(t, resp, body, http.StatusOK)
	if s, _ := svc.Subject(created.ID); s.Name != "Band" || s.Color != "#A855F7" {
		t.Fatalf("expected partial subject update, got %+v", s)
	}

	resp, body = do(t, app, http.MethodDelete, "/api/v1/settings/subjects/"+created.ID, nil)
	expectStatus(t, resp, body, http.StatusNoContent)
	resp, body = do(t, app, http.MethodDelete, "/api/v1/settings/subjects/"+created.ID, nil)
	expectStatus(t, resp, body, http.StatusNotFound)

	resp, body = do(t, app, http.MethodPost, "/api/v1/settings/reset", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if g, _ := svc.Grade(1); g.Enabled {
		t.Fatalf("expected reset to restore defaults")
	}
}

func createTeacher(t *testing.T, app *fiber.App, name string) core.Teacher {
	t.Helper()
	resp, body := do(t, app, http.MethodPost, "/api/v1/teachers", map[string]any{"name": name})
	expectStatus(t, resp, body, http.StatusCreated)
	return decode[struct {
		Teacher core.Teacher `json:"teacher"`
	}](t, body).Teacher
}

type entryResponse struct {
	Entry     core.ScheduleEntry `json:"entry"`
	Conflicts []core.Conflict    `json:"conflicts"`
}

func addEntry(t *testing.T, app *fiber.App, teacherID string, class int, day string, period int) entryResponse {
	t.Helper()
	resp, body := do(t, app, http.MethodPost, "/api/v1/schedule", map[string]any{
		"teacher_id": teacherID, "grade": 3, "class_number": class, "day": day, "period": period, "subject_id": "science",
	})
	expectStatus(t, resp, body, http.StatusCreated)
	return decode[entryResponse](t, body)
}

func TestTeacherRoutes(t *testing.T) {
	app, svc := newTestApp(t)
	teacher := createTeacher(t, app, "Kang")

	resp, body := do(t, app, http.MethodPost, "/api/v1/teachers", map[string]any{"name": ""})
	expectStatus(t, resp, body, http.StatusBadRequest)

	resp, body = do(t, app, http.MethodPost, "/api/v1/teachers/"+teacher.ID+"/assignments", map[string]any{"grade": 3, "subject_id": "science"})
	expectStatus(t, resp, body, http.StatusOK)
	resp, body = do(t, app, http.MethodPost, "/api/v1/teachers/"+teacher.ID+"/assignments", map[string]any{"grade": 7, "subject_id": "science"})
	expectStatus(t, resp, body, http.StatusBadRequest)

	resp, body = do(t, app, http.MethodGet, "/api/v1/teachers/"+teacher.ID, nil)
	expectStatus(t, resp, body, http.StatusOK)
	detail := decode[struct {
		ClassOptions []core.ClassOption `json:"class_options"`
	}](t, body)
	if len(detail.ClassOptions) != 3 || detail.ClassOptions[0].Label != "3-1" {
		t.Fatalf("unexpected class options %+v", detail.ClassOptions)
	}

	resp, body = do(t, app, http.MethodGet, "/api/v1/teachers/"+teacher.ID+"/subjects?grade=3", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(string(body), `"science"`) {
		t.Fatalf("expected science in subjects, got %s", body)
	}
	resp, body = do(t, app, http.MethodGet, "/api/v1/teachers/"+teacher.ID+"/subjects", nil)
	expectStatus(t, resp, body, http.StatusBadRequest)

	resp, body = do(t, app, http.MethodGet, "/api/v1/teachers?grade=3", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if len(decode[struct {
		Teachers []core.Teacher `json:"teachers"`
	}](t, body).Teachers) != 1 {
		t.Fatalf("expected grade filter to match, got %s", body)
	}

	resp, body = do(t, app, http.MethodPut, "/api/v1/teachers/"+teacher.ID, map[string]any{"name": "Kang Min"})
	expectStatus(t, resp, body, http.StatusOK)
	if got, _ := svc.Teacher(teacher.ID); got.Name != "Kang Min" {
		t.Fatalf("expected rename, got %q", got.Name)
	}

	addEntry(t, app, teacher.ID, 1, "Mon", 1)
	addEntry(t, app, teacher.ID, 2, "Tue", 2)
	resp, body = do(t, app, http.MethodDelete, "/api/v1/teachers/"+teacher.ID+"/assignments", map[string]any{"grade": 3, "subject_id": "science"})
	expectStatus(t, resp, body, http.StatusOK)

	resp, body = do(t, app, http.MethodDelete, "/api/v1/teachers/"+teacher.ID, nil)
	expectStatus(t, resp, body, http.StatusOK)
	if removed := decode[map[string]any](t, body)["removed_entries"]; removed != float64(2) {
		t.Fatalf("expected cascade to remove 2 entries, got %v", removed)
	}
	if len(svc.ListSchedule()) != 0 {
		t.Fatalf("expected schedule to be purged")
	}
	resp, body = do(t, app, http.MethodGet, "/api/v1/teachers/"+teacher.ID, nil)
	expectStatus(t, resp, body, http.StatusNotFound)
	resp, body = do(t, app, http.MethodDelete, "/api/v1/teachers/"+teacher.ID, nil)
	expectStatus(t, resp, body, http.StatusNotFound)
}

func TestScheduleRoutesReportConflicts(t *testing.T) {
	app, svc := newTestApp(t)
	kang := createTeacher(t, app, "Kang")
	lee := createTeacher(t, app, "Lee")

	first := addEntry(t, app, kang.ID, 1, "Mon", 1)
	if len(first.Conflicts) != 0 {
		t.Fatalf("expected no conflicts for first entry")
	}
	second := addEntry(t, app, lee.ID, 1, "Mon", 1)
	if len(second.Conflicts) != 1 || second.Conflicts[0].Type != "same-class-same-time" {
		t.Fatalf("expected class clash to be reported, got %+v", second.Conflicts)
	}

	resp, body := do(t, app, http.MethodPost, "/api/v1/schedule/check", map[string]any{"grade": 3, "class_number": 1, "day": "Mon", "period": 1})
	expectStatus(t, resp, body, http.StatusOK)
	check := decode[core.SlotCheck](t, body)
	if !check.Occupied || len(check.TeacherNames) != 2 || check.TeacherNames[0] != "Kang" {
		t.Fatalf("unexpected slot check %+v", check)
	}

	resp, body = do(t, app, http.MethodGet, "/api/v1/conflicts?entry_id="+first.Entry.ID, nil)
	expectStatus(t, resp, body, http.StatusOK)
	if len(decode[struct {
		Conflicts []core.Conflict `json:"conflicts"`
	}](t, body).Conflicts) != 1 {
		t.Fatalf("expected entry conflict, got %s", body)
	}

	resp, body = do(t, app, http.MethodPatch, "/api/v1/schedule/"+second.Entry.ID, map[string]any{"class_number": 2})
	expectStatus(t, resp, body, http.StatusOK)
	moved := decode[entryResponse](t, body)
	if moved.Entry.ClassNumber != 2 || len(moved.Conflicts) != 0 {
		t.Fatalf("expected move to resolve the clash, got %+v", moved)
	}
	if len(svc.Conflicts()) != 0 {
		t.Fatalf("expected empty conflict set")
	}

	resp, body = do(t, app, http.MethodGet, "/api/v1/schedule?grade=3&class=2", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(string(body), second.Entry.ID) || strings.Contains(string(body), first.Entry.ID) {
		t.Fatalf("unexpected class filter result %s", body)
	}
	resp, body = do(t, app, http.MethodGet, "/api/v1/schedule?class=2", nil)
	expectStatus(t, resp, body, http.StatusBadRequest)

	resp, body = do(t, app, http.MethodGet, "/api/v1/dashboard", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if stats := decode[core.DashboardStats](t, body); stats.Entries != 2 || stats.Teachers != 2 || stats.EnabledGrades != 4 {
		t.Fatalf("unexpected dashboard %+v", stats)
	}

	resp, body = do(t, app, http.MethodDelete, "/api/v1/schedule/"+first.Entry.ID, nil)
	expectStatus(t, resp, body, http.StatusNoContent)
	resp, body = do(t, app, http.MethodPatch, "/api/v1/schedule/"+first.Entry.ID, map[string]any{"period": 2})
	expectStatus(t, resp, body, http.StatusNotFound)

	resp, body = do(t, app, http.MethodDelete, "/api/v1/schedule", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if removed := decode[map[string]any](t, body)["removed"]; removed != float64(1) {
		t.Fatalf("expected one removed entry, got %v", removed)
	}
}

func TestScheduleSlotFilterAndHighlighting(t *testing.T) {
	app, _ := newTestApp(t)
	kang := createTeacher(t, app, "Kang")
	lee := createTeacher(t, app, "Lee")

	clash := addEntry(t, app, kang.ID, 1, "Tue", 2)
	addEntry(t, app, kang.ID, 2, "Tue", 2)
	other := addEntry(t, app, lee.ID, 3, "Wed", 4)

	resp, body := do(t, app, http.MethodGet, "/api/v1/schedule?grade=3&class=1&day=Tue&period=2", nil)
	expectStatus(t, resp, body, http.StatusOK)
	entries := decode[struct {
		Entries []struct {
			ID           string `json:"id"`
			ConflictType string `json:"conflict_type"`
		} `json:"entries"`
	}](t, body).Entries
	if len(entries) != 1 || entries[0].ID != clash.Entry.ID {
		t.Fatalf("expected only the Tue/2 class 1 lesson, got %s", body)
	}
	if entries[0].ConflictType != "same-teacher-same-time" {
		t.Fatalf("expected teacher clash highlight, got %q", entries[0].ConflictType)
	}

	resp, body = do(t, app, http.MethodGet, "/api/v1/schedule?grade=3&class=3", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(string(body), other.Entry.ID) || strings.Contains(string(body), "conflict_type") {
		t.Fatalf("expected conflict-free lesson without highlight, got %s", body)
	}

	resp, body = do(t, app, http.MethodGet, "/api/v1/schedule?grade=3&day=Tue&period=2", nil)
	expectStatus(t, resp, body, http.StatusBadRequest)
	resp, body = do(t, app, http.MethodGet, "/api/v1/schedule?grade=3&class=1&day=Sat&period=2", nil)
	expectStatus(t, resp, body, http.StatusBadRequest)
	resp, body = do(t, app, http.MethodGet, "/api/v1/schedule?grade=3&class=1&day=Tue&period=9", nil)
	expectStatus(t, resp, body, http.StatusBadRequest)

	resp, body = do(t, app, http.MethodGet, "/api/v1/teachers/"+kang.ID, nil)
	expectStatus(t, resp, body, http.StatusOK)
	overloaded := decode[struct {
		Overloaded []struct {
			Day    string `json:"day"`
			Period int    `json:"period"`
		} `json:"overloaded"`
	}](t, body).Overloaded
	if len(overloaded) != 1 || overloaded[0].Day != "Tue" || overloaded[0].Period != 2 {
		t.Fatalf("expected Tue/2 to be overloaded, got %+v", overloaded)
	}

	resp, body = do(t, app, http.MethodGet, "/api/v1/teachers/"+lee.ID, nil)
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(string(body), `"overloaded":[]`) {
		t.Fatalf("expected empty overload list, got %s", body)
	}
}

func TestScheduleValidation(t *testing.T) {
	app, svc := newTestApp(t)
	resp, body := do(t, app, http.MethodPost, "/api/v1/schedule", map[string]any{
		"teacher_id": "t1", "grade": 3, "class_number": 0, "day": "Sat", "period": 7, "subject_id": "science",
	})
	expectStatus(t, resp, body, http.StatusBadRequest)
	fields := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, body).Fields
	if fields["day"] != "oneof" || fields["period"] != "max" || fields["class_number"] != "min" {
		t.Fatalf("unexpected validation fields %v", fields)
	}
	if len(svc.ListSchedule()) != 0 {
		t.Fatalf("rejected entries must not be stored")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	raw, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("malformed request: %v", err)
	}
	_ = raw.Body.Close()
	if raw.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed payload, got %d", raw.StatusCode)
	}

	resp, body = do(t, app, http.MethodPatch, "/api/v1/schedule/any", map[string]any{"day": "Sun"})
	expectStatus(t, resp, body, http.StatusBadRequest)
}

type failingRenderer struct{}

func (failingRenderer) Format() export.Format { return export.FormatDOCX }

func (failingRenderer) Render(io.Writer, export.Views) error {
	return errors.New("template missing")
}

func TestDirectExportDownload(t *testing.T) {
	logger := &captureLogger{}
	exporter := export.NewExporter(export.WithRenderer(failingRenderer{}))
	app, _ := newTestApp(t, WithExporter(exporter), WithLogger(logger))

	resp, body := do(t, app, http.MethodPost, "/api/v1/export/xlsx", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if resp.Header.Get(fiber.HeaderContentType) != export.FormatXLSX.ContentType() {
		t.Fatalf("unexpected content type %q", resp.Header.Get(fiber.HeaderContentType))
	}
	if got := resp.Header.Get(fiber.HeaderContentDisposition); got != `attachment; filename="schedule.xlsx"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if len(body) == 0 {
		t.Fatalf("expected workbook bytes")
	}

	resp, body = do(t, app, http.MethodPost, "/api/v1/export/pdf", nil)
	expectStatus(t, resp, body, http.StatusBadRequest)

	resp, body = do(t, app, http.MethodPost, "/api/v1/export/docx", nil)
	expectStatus(t, resp, body, http.StatusInternalServerError)
	if msg := decode[map[string]any](t, body)["error"]; msg != "export failed" {
		t.Fatalf("expected generic export failure, got %v", msg)
	}
	if len(logger.errors) == 0 {
		t.Fatalf("expected export failure to be logged")
	}

	bare, _ := newTestApp(t)
	resp, body = do(t, bare, http.MethodPost, "/api/v1/export/xlsx", nil)
	expectStatus(t, resp, body, http.StatusNotFound)
}

func TestAsyncExportRoutes(t *testing.T) {
	svc := core.NewInMemoryService()
	worker := export.NewWorker(export.NewExporter(), svc, blob.NewMemory())
	worker.Start()
	t.Cleanup(func() { _ = worker.Stop(context.Background()) })
	app := NewApp(NewHandler(svc, WithExportScheduler(worker)), AppConfig{})

	resp, body := do(t, app, http.MethodPost, "/api/v1/exports", map[string]any{"format": "hwpx", "requested_by": "office"})
	expectStatus(t, resp, body, http.StatusAccepted)
	record := decode[struct {
		Export export.ExportRecord `json:"export"`
	}](t, body).Export
	if record.Status != export.ExportStatusQueued {
		t.Fatalf("expected queued export, got %s", record.Status)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, body = do(t, app, http.MethodGet, "/api/v1/exports/"+record.ID, nil)
		expectStatus(t, resp, body, http.StatusOK)
		current := decode[struct {
			Export export.ExportRecord `json:"export"`
		}](t, body).Export
		if current.Status == export.ExportStatusSucceeded {
			record = current
			break
		}
		if current.Status == export.ExportStatusFailed {
			t.Fatalf("export failed: %s", current.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for export")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, body = do(t, app, http.MethodGet, "/api/v1/exports/"+record.ID+"/download", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if int64(len(body)) != record.SizeBytes || resp.Header.Get(fiber.HeaderContentType) != "application/hwpx" {
		t.Fatalf("unexpected artifact download (%d bytes, %q)", len(body), resp.Header.Get(fiber.HeaderContentType))
	}

	resp, body = do(t, app, http.MethodGet, "/api/v1/exports", nil)
	expectStatus(t, resp, body, http.StatusOK)
	listed := decode[struct {
		Exports []export.ExportRecord `json:"exports"`
	}](t, body).Exports
	if len(listed) != 1 || listed[0].ID != record.ID {
		t.Fatalf("expected the finished export to be listed, got %+v", listed)
	}

	resp, body = do(t, app, http.MethodDelete, "/api/v1/exports/"+record.ID, nil)
	expectStatus(t, resp, body, http.StatusNoContent)
	resp, body = do(t, app, http.MethodGet, "/api/v1/exports/"+record.ID, nil)
	expectStatus(t, resp, body, http.StatusNotFound)
	resp, body = do(t, app, http.MethodDelete, "/api/v1/exports/"+record.ID, nil)
	expectStatus(t, resp, body, http.StatusNotFound)

	resp, body = do(t, app, http.MethodGet, "/api/v1/exports/missing", nil)
	expectStatus(t, resp, body, http.StatusNotFound)
	resp, body = do(t, app, http.MethodGet, "/api/v1/exports/missing/download", nil)
	expectStatus(t, resp, body, http.StatusNotFound)
	resp, body = do(t, app, http.MethodPost, "/api/v1/exports", map[string]any{"format": "pdf"})
	expectStatus(t, resp, body, http.StatusBadRequest)
	resp, body = do(t, app, http.MethodPost, "/api/v1/exports", map[string]any{})
	expectStatus(t, resp, body, http.StatusBadRequest)
}

type stubScheduler struct {
	enqueueErr error
	openErr    error
	deleteErr  error
}

func (s stubScheduler) EnqueueExport(context.Context, export.ExportInput) (export.ExportRecord, error) {
	return export.ExportRecord{}, s.enqueueErr
}

func (s stubScheduler) GetExport(string) (export.ExportRecord, bool) {
	return export.ExportRecord{}, false
}

func (s stubScheduler) OpenArtifact(context.Context, string) (export.ExportRecord, io.ReadCloser, error) {
	return export.ExportRecord{ID: "x", Status: export.ExportStatusRunning}, nil, s.openErr
}

func (s stubScheduler) ListExports() []export.ExportRecord { return nil }

func (s stubScheduler) DeleteExport(context.Context, string) (export.ExportRecord, error) {
	return export.ExportRecord{ID: "x", Status: export.ExportStatusQueued}, s.deleteErr
}

func TestAsyncExportErrorMapping(t *testing.T) {
	app, _ := newTestApp(t, WithExportScheduler(stubScheduler{enqueueErr: export.ErrQueueFull, openErr: export.ErrExportNotReady}))
	resp, body := do(t, app, http.MethodPost, "/api/v1/exports", map[string]any{"format": "xlsx"})
	expectStatus(t, resp, body, http.StatusServiceUnavailable)
	resp, body = do(t, app, http.MethodGet, "/api/v1/exports/x/download", nil)
	expectStatus(t, resp, body, http.StatusConflict)

	logger := &captureLogger{}
	app, _ = newTestApp(t, WithLogger(logger), WithExportScheduler(stubScheduler{openErr: errors.New("bucket gone")}))
	resp, body = do(t, app, http.MethodGet, "/api/v1/exports/x/download", nil)
	expectStatus(t, resp, body, http.StatusInternalServerError)
	if len(logger.errors) != 1 {
		t.Fatalf("expected artifact failure to be logged")
	}
}

func TestEnqueueExportStatusCodes(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		logged bool
	}{
		{name: "stopped", err: export.ErrWorkerStopped, status: http.StatusServiceUnavailable},
		{name: "unconfigured", err: export.ErrWorkerNotConfigured, status: http.StatusInternalServerError, logged: true},
		{name: "unexpected", err: errors.New("snapshot unavailable"), status: http.StatusInternalServerError, logged: true},
		{name: "unsupported", err: export.ErrUnsupportedFormat{Format: "xlsx"}, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			logger := &captureLogger{}
			app, _ := newTestApp(t, WithLogger(logger), WithExportScheduler(stubScheduler{enqueueErr: tc.err}))
			resp, body := do(t, app, http.MethodPost, "/api/v1/exports", map[string]any{"format": "xlsx"})
			expectStatus(t, resp, body, tc.status)
			if got := len(logger.errors) == 1; got != tc.logged {
				t.Fatalf("expected logged=%v, got %v", tc.logged, logger.errors)
			}
			if tc.logged {
				if msg := decode[map[string]any](t, body)["error"]; msg != exportFailedMessage {
					t.Fatalf("expected generic failure message, got %v", msg)
				}
			}
		})
	}
}

func TestDeleteExportStatusCodes(t *testing.T) {
	app, _ := newTestApp(t, WithExportScheduler(stubScheduler{deleteErr: export.ErrExportNotReady}))
	resp, body := do(t, app, http.MethodDelete, "/api/v1/exports/x", nil)
	expectStatus(t, resp, body, http.StatusConflict)

	logger := &captureLogger{}
	app, _ = newTestApp(t, WithLogger(logger), WithExportScheduler(stubScheduler{deleteErr: errors.New("bucket gone")}))
	resp, body = do(t, app, http.MethodDelete, "/api/v1/exports/x", nil)
	expectStatus(t, resp, body, http.StatusInternalServerError)
	if len(logger.errors) != 1 {
		t.Fatalf("expected delete failure to be logged")
	}

	bare, _ := newTestApp(t)
	resp, body = do(t, bare, http.MethodGet, "/api/v1/exports", nil)
	expectStatus(t, resp, body, http.StatusNotFound)
}

func TestMetricsRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := core.NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("register metrics: %v", err)
	}
	svc := core.NewInMemoryService(core.WithMetricsRecorder(recorder))
	app := NewApp(NewHandler(svc), AppConfig{Gatherer: reg})

	createTeacher(t, app, "Kang")
	resp, body := do(t, app, http.MethodGet, "/metrics", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(string(body), "timetable_operations_total") {
		t.Fatalf("expected operation counter in metrics output")
	}

	bare, _ := newTestApp(t)
	resp, body = do(t, bare, http.MethodGet, "/metrics", nil)
	expectStatus(t, resp, body, http.StatusNotFound)
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	app := NewApp(NewHandler(core.NewInMemoryService()), AppConfig{RequestLog: &buf})
	resp, body := do(t, app, http.MethodGet, "/api/v1/dashboard", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(buf.String(), "/api/v1/dashboard") {
		t.Fatalf("expected request log line, got %q", buf.String())
	}
}

func TestDebugVarsRoute(t *testing.T) {
	app := NewApp(NewHandler(core.NewInMemoryService()), AppConfig{DebugVars: true})
	resp, body := do(t, app, http.MethodGet, "/debug/vars", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if !strings.Contains(string(body), "memstats") {
		t.Fatalf("expected expvar output")
	}
}

func TestOpenAPIDocumentCoversRoutes(t *testing.T) {
	app, _ := newTestApp(t)
	resp, body := do(t, app, http.MethodGet, "/api/v1/openapi.yaml", nil)
	expectStatus(t, resp, body, http.StatusOK)
	if got := resp.Header.Get("Content-Type"); got != "application/yaml" {
		t.Fatalf("expected application/yaml, got %q", got)
	}

	doc := string(body)
	for _, route := range app.GetRoutes(true) {
		if !strings.HasPrefix(route.Path, "/api/v1/") || route.Method == http.MethodHead {
			continue
		}
		path := route.Path
		for _, param := range route.Params {
			path = strings.Replace(path, ":"+param, "{"+param+"}", 1)
		}
		if !strings.Contains(doc, "\n  "+path+":") {
			t.Fatalf("route %s %s missing from OpenAPI document", route.Method, path)
		}
	}
}
