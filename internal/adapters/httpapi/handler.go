// Package httpapi exposes the timetable service over HTTP using fiber.
package httpapi

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"timetable/internal/core"
	"timetable/internal/export"
	"timetable/pkg/domain"
)

// ExportScheduler queues asynchronous exports and serves their artifacts.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input export.ExportInput) (export.ExportRecord, error)
	GetExport(id string) (export.ExportRecord, bool)
	ListExports() []export.ExportRecord
	DeleteExport(ctx context.Context, id string) (export.ExportRecord, error)
	OpenArtifact(ctx context.Context, id string) (export.ExportRecord, io.ReadCloser, error)
}

// Handler binds the service, the exporter, and the export scheduler to routes.
type Handler struct {
	svc      *core.Service
	exporter *export.Exporter
	exports  ExportScheduler
	validate *validator.Validate
	logger   core.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithExporter enables direct downloads under /api/v1/export/:format.
func WithExporter(e *export.Exporter) HandlerOption {
	return func(h *Handler) { h.exporter = e }
}

// WithExportScheduler enables the asynchronous /api/v1/exports routes.
func WithExportScheduler(s ExportScheduler) HandlerOption {
	return func(h *Handler) { h.exports = s }
}

// WithLogger sets the logger used for failed requests.
func WithLogger(logger core.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler constructs an HTTP handler for svc.
func NewHandler(svc *core.Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:      svc,
		validate: newValidator(),
		logger:   discardLogger{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts every API route under router.
func (h *Handler) Register(router fiber.Router) {
	api := router.Group("/api/v1")
	api.Get("/openapi.yaml", serveOpenAPI)

	api.Get("/settings", h.getSettings)
	api.Post("/settings/grades/:grade/toggle", h.toggleGrade)
	api.Put("/settings/grades/:grade/class-count", h.setClassCount)
	api.Post("/settings/subjects", h.addSubject)
	api.Put("/settings/subjects/:id", h.updateSubject)
	api.Delete("/settings/subjects/:id", h.removeSubject)
	api.Post("/settings/reset", h.resetSettings)

	api.Get("/teachers", h.listTeachers)
	api.Post("/teachers", h.addTeacher)
	api.Get("/teachers/:id", h.getTeacher)
	api.Put("/teachers/:id", h.renameTeacher)
	api.Delete("/teachers/:id", h.removeTeacher)
	api.Get("/teachers/:id/subjects", h.teacherSubjects)
	api.Post("/teachers/:id/assignments", h.addAssignment)
	api.Delete("/teachers/:id/assignments", h.removeAssignment)

	api.Get("/schedule", h.listSchedule)
	api.Post("/schedule", h.addEntry)
	api.Delete("/schedule", h.clearSchedule)
	api.Post("/schedule/check", h.checkSlot)
	api.Patch("/schedule/:id", h.updateEntry)
	api.Delete("/schedule/:id", h.removeEntry)

	api.Get("/conflicts", h.listConflicts)
	api.Get("/dashboard", h.dashboard)

	api.Post("/export/:format", h.downloadExport)
	api.Get("/exports", h.listExports)
	api.Post("/exports", h.enqueueExport)
	api.Get("/exports/:id", h.getExport)
	api.Delete("/exports/:id", h.deleteExport)
	api.Get("/exports/:id/download", h.downloadArtifact)
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

func writeError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

// bind decodes the JSON body into dst and validates it. It writes the 400
// response itself and reports whether the handler should continue.
func (h *Handler) bind(c *fiber.Ctx, dst any) (bool, error) {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(dst); err != nil {
			return false, writeError(c, fiber.StatusBadRequest, "invalid request payload")
		}
	}
	if err := h.validate.Struct(dst); err != nil {
		return false, h.validationError(c, err)
	}
	return true, nil
}

func (h *Handler) validationError(c *fiber.Ctx, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation failed", "fields": fields})
}

// fail maps service errors to responses. Unknown records become 404.
func (h *Handler) fail(c *fiber.Ctx, op string, err error) error {
	var notFound core.ErrNotFound
	switch {
	case errors.As(err, &notFound):
		return writeError(c, fiber.StatusNotFound, notFound.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return writeError(c, fiber.StatusServiceUnavailable, "request cancelled")
	default:
		h.logger.Error("request failed", "op", op, "path", c.Path(), "error", err)
		return writeError(c, fiber.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) gradeParam(c *fiber.Ctx) (domain.Grade, bool, error) {
	n, err := strconv.Atoi(c.Params("grade"))
	if err != nil || !domain.Grade(n).Valid() {
		return 0, false, writeError(c, fiber.StatusBadRequest, "grade must be between 1 and 6")
	}
	return domain.Grade(n), true, nil
}

// optionalInt parses an integer query parameter; has is false when it is absent.
func optionalInt(c *fiber.Ctx, key string) (value int, has bool, err error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func conflictsFor(conflicts []core.Conflict, entryID string) []core.Conflict {
	out := []core.Conflict{}
	for _, c := range conflicts {
		if c.Contains(entryID) {
			out = append(out, c)
		}
	}
	return out
}
