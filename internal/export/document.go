package export

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// DocumentTitle heads the word-processor formats.
const DocumentTitle = "Specialist teacher timetable"

// flowWriter is the markup-specific half of the word-processor renderers.
// layoutDocument drives it so docx and hwpx share section order and content.
type flowWriter interface {
	title(text string)
	heading(text string)
	subheading(text string)
	paragraph(text string)
	table(headers []string, rows [][]string)
	pageBreak()
}

func layoutDocument(w flowWriter, v Views) {
	w.title(DocumentTitle)
	for _, t := range v.Teachers {
		w.pageBreak()
		w.heading(t.Title())
		w.table(GridHeaders(), t.Grid.Rows())
	}
	for _, g := range v.Grades {
		w.pageBreak()
		w.heading(g.Title() + " timetable")
		for _, c := range g.Classes {
			w.subheading(c.Title())
			w.table(GridHeaders(), c.Grid.Rows())
		}
	}
	w.pageBreak()
	w.heading(AllLessonsTitle)
	rows := make([][]string, 0, len(v.Assignments))
	for _, a := range v.Assignments {
		rows = append(rows, a.Cells())
	}
	w.table(AssignmentHeaders, rows)

	w.pageBreak()
	w.heading(SummaryTitle)
	w.subheading(TeacherCountHead)
	w.table([]string{"Name", "Lessons"}, countRows(v.Summary.Teachers))
	w.subheading(GradeCountHead)
	w.table([]string{"Grade", "Lessons"}, countRows(v.Summary.Grades))
	w.paragraph(fmt.Sprintf("%s: %d", TotalLabel, v.Summary.Total))
}

func countRows(items []CountRow) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item.Label, fmt.Sprint(item.Count)})
	}
	return rows
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

type zipPart struct {
	name string
	body string
}

// writeZip writes parts in order. The first part may be stored uncompressed
// for formats that sniff a leading mimetype entry.
func writeZip(w io.Writer, parts []zipPart, storeFirst bool) error {
	zw := zip.NewWriter(w)
	for i, p := range parts {
		method := zip.Deflate
		if i == 0 && storeFirst {
			method = zip.Store
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: method})
		if err != nil {
			return fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := io.WriteString(fw, p.body); err != nil {
			return fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	return zw.Close()
}

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
