package export

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/text/language"

	"timetable/internal/core"
)

// Renderer writes the views in one document format.
type Renderer interface {
	Format() Format
	Render(w io.Writer, v Views) error
}

// Artifact is a rendered document.
type Artifact struct {
	Format      Format
	FileName    string
	ContentType string
	Data        []byte
}

// Exporter renders snapshots with the registered renderers.
type Exporter struct {
	renderers map[Format]Renderer
	lang      language.Tag
	logger    core.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLanguage sets the collation language used to order teacher names.
func WithLanguage(tag language.Tag) Option {
	return func(e *Exporter) {
		e.lang = tag
	}
}

// WithLogger sets the logger used for render failures.
func WithLogger(logger core.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRenderer registers r, replacing any renderer for the same format.
func WithRenderer(r Renderer) Option {
	return func(e *Exporter) {
		if r != nil {
			e.renderers[r.Format()] = r
		}
	}
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

// NewExporter returns an exporter with the spreadsheet, docx, and hwpx
// renderers registered.
func NewExporter(opts ...Option) *Exporter {
	e := &Exporter{
		renderers: map[Format]Renderer{},
		lang:      DefaultLanguage,
		logger:    discardLogger{},
	}
	for _, r := range []Renderer{XLSXRenderer{}, DOCXRenderer{}, HWPXRenderer{}} {
		e.renderers[r.Format()] = r
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Supports reports whether a renderer is registered for f.
func (e *Exporter) Supports(f Format) bool {
	_, ok := e.renderers[f]
	return ok
}

// Export renders snap in format. A failing or panicking renderer yields an
// error and never a partial artifact.
func (e *Exporter) Export(ctx context.Context, format Format, snap Snapshot) (art Artifact, err error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	r, ok := e.renderers[format]
	if !ok {
		return Artifact{}, ErrUnsupportedFormat{Format: string(format)}
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("render %s: panic: %v", format, rec)
		}
		if err != nil {
			art = Artifact{}
			e.logger.Error("export failed", "format", format, "error", err)
		}
	}()
	var buf bytes.Buffer
	if err := r.Render(&buf, BuildViews(snap, e.lang)); err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", format, err)
	}
	return Artifact{
		Format:      format,
		FileName:    format.FileName(),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}
