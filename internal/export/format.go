package export

import (
	"fmt"
	"strings"
)

// Format identifies an export document format.
type Format string

// Supported formats.
const (
	FormatXLSX Format = "xlsx"
	FormatDOCX Format = "docx"
	FormatHWPX Format = "hwpx"
)

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatXLSX, FormatDOCX, FormatHWPX}
}

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatHWPX:
		return "application/hwpx"
	default:
		return "application/octet-stream"
	}
}

// FileName returns the download file name for the format.
func (f Format) FileName() string {
	return "schedule." + string(f)
}

// ErrUnsupportedFormat is returned for formats without a renderer.
type ErrUnsupportedFormat struct {
	Format string
}

func (e ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported export format %q", e.Format)
}

// ParseFormat resolves a case-insensitive format name.
func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case FormatXLSX, FormatDOCX, FormatHWPX:
		return f, nil
	}
	return "", ErrUnsupportedFormat{Format: raw}
}
