package export

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheet      = "Sheet1"
	maxSheetNameRunes = 31
)

// XLSXRenderer writes a spreadsheet workbook: one sheet per teacher with
// lessons, one sheet per grade holding a block per class, then the
// all-assignments and summary sheets.
type XLSXRenderer struct{}

// Format implements Renderer.
func (XLSXRenderer) Format() Format { return FormatXLSX }

// Render implements Renderer.
func (XLSXRenderer) Render(w io.Writer, v Views) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	wb := &workbook{f: f, used: map[string]bool{strings.ToLower(defaultSheet): true}}
	wb.initStyles()
	for _, t := range v.Teachers {
		wb.teacherSheet(t)
	}
	for _, g := range v.Grades {
		wb.gradeSheet(g)
	}
	wb.assignmentsSheet(v.Assignments)
	wb.summarySheet(v.Summary)
	if wb.err != nil {
		return wb.err
	}
	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

// workbook carries the first error; later calls become no-ops once it is set.
type workbook struct {
	f    *excelize.File
	used map[string]bool
	err  error

	titleStyle    int
	subtitleStyle int
	headerStyle   int
	cellStyle     int
	boldStyle     int
}

func (wb *workbook) fail(err error) {
	if wb.err == nil && err != nil {
		wb.err = err
	}
}

func (wb *workbook) initStyles() {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	styles := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&wb.titleStyle, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 18}, Alignment: center}},
		{&wb.subtitleStyle, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}, Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"}}},
		{&wb.headerStyle, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 12},
			Alignment: center,
			Border:    border,
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E2E8F0"}},
		}},
		{&wb.cellStyle, &excelize.Style{Font: &excelize.Font{Size: 12}, Alignment: center, Border: border}},
		{&wb.boldStyle, &excelize.Style{Font: &excelize.Font{Bold: true, Size: 11}, Alignment: center, Border: border}},
	}
	for _, s := range styles {
		id, err := wb.f.NewStyle(s.style)
		if err != nil {
			wb.fail(fmt.Errorf("create style: %w", err))
			return
		}
		*s.dst = id
	}
}

func (wb *workbook) newSheet(name string, widths ...float64) string {
	if wb.err != nil {
		return ""
	}
	name = wb.uniqueSheetName(name)
	if _, err := wb.f.NewSheet(name); err != nil {
		wb.fail(fmt.Errorf("create sheet %q: %w", name, err))
		return ""
	}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			wb.fail(err)
			return ""
		}
		wb.fail(wb.f.SetColWidth(name, col, col, width))
	}
	return name
}

// uniqueSheetName strips characters Excel rejects, truncates to the sheet
// name limit, and appends a counter on collisions.
func (wb *workbook) uniqueSheetName(raw string) string {
	base := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '_'
		}
		return r
	}, raw)
	base = strings.Trim(strings.TrimSpace(base), "'")
	if base == "" {
		base = "Sheet"
	}
	base = truncateRunes(base, maxSheetNameRunes)
	name := base
	for n := 2; wb.used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncateRunes(base, maxSheetNameRunes-utf8.RuneCountInString(suffix)) + suffix
	}
	wb.used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (wb *workbook) setRow(sheet string, row int, values []string, style int, height float64) {
	if wb.err != nil || len(values) == 0 {
		return
	}
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		wb.fail(err)
		return
	}
	last, err := excelize.CoordinatesToCellName(len(values), row)
	if err != nil {
		wb.fail(err)
		return
	}
	wb.fail(wb.f.SetSheetRow(sheet, first, &values))
	wb.fail(wb.f.SetCellStyle(sheet, first, last, style))
	if height > 0 {
		wb.fail(wb.f.SetRowHeight(sheet, row, height))
	}
}

func (wb *workbook) mergedTitle(sheet string, row, cols int, text string, style int, height float64) {
	if wb.err != nil {
		return
	}
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(cols, row)
	wb.fail(wb.f.MergeCell(sheet, first, last))
	wb.fail(wb.f.SetCellValue(sheet, first, text))
	wb.fail(wb.f.SetCellStyle(sheet, first, last, style))
	wb.fail(wb.f.SetRowHeight(sheet, row, height))
}

// grid writes the header and six period rows starting at row and returns the
// next free row.
func (wb *workbook) grid(sheet string, row int, g Grid) int {
	wb.setRow(sheet, row, GridHeaders(), wb.headerStyle, 25)
	row++
	for _, r := range g.Rows() {
		wb.setRow(sheet, row, r, wb.cellStyle, 22)
		row++
	}
	return row
}

func (wb *workbook) teacherSheet(t TeacherGrid) {
	sheet := wb.newSheet(t.Name, 10, 18, 18, 18, 18, 18)
	if sheet == "" {
		return
	}
	wb.mergedTitle(sheet, 1, 6, t.Title(), wb.titleStyle, 30)
	wb.grid(sheet, 3, t.Grid)
}

func (wb *workbook) gradeSheet(g GradeSection) {
	sheet := wb.newSheet(g.Title(), 10, 20, 20, 20, 20, 20)
	if sheet == "" {
		return
	}
	wb.mergedTitle(sheet, 1, 6, g.Title()+" timetable", wb.titleStyle, 30)
	row := 3
	for _, c := range g.Classes {
		wb.mergedTitle(sheet, row, 6, c.Title(), wb.subtitleStyle, 25)
		row = wb.grid(sheet, row+1, c.Grid) + 1
	}
}

func (wb *workbook) assignmentsSheet(rows []AssignmentRow) {
	sheet := wb.newSheet(AllLessonsTitle, 14, 10, 8, 8, 10, 12)
	if sheet == "" {
		return
	}
	wb.mergedTitle(sheet, 1, len(AssignmentHeaders), AllLessonsTitle, wb.titleStyle, 30)
	wb.setRow(sheet, 3, AssignmentHeaders, wb.headerStyle, 25)
	for i, r := range rows {
		wb.setRow(sheet, 4+i, r.Cells(), wb.cellStyle, 22)
	}
}

func (wb *workbook) summarySheet(s Summary) {
	sheet := wb.newSheet(SummaryTitle, 18, 15)
	if sheet == "" {
		return
	}
	wb.mergedTitle(sheet, 1, 2, SummaryTitle, wb.titleStyle, 30)
	row := 3
	counts := func(title, label string, items []CountRow) {
		wb.mergedTitle(sheet, row, 2, title, wb.subtitleStyle, 25)
		wb.setRow(sheet, row+1, []string{label, "Lessons"}, wb.headerStyle, 25)
		row += 2
		for _, item := range items {
			wb.setRow(sheet, row, []string{item.Label, fmt.Sprint(item.Count)}, wb.cellStyle, 22)
			row++
		}
		row++
	}
	counts(TeacherCountHead, "Name", s.Teachers)
	counts(GradeCountHead, "Grade", s.Grades)
	wb.setRow(sheet, row, []string{TotalLabel, fmt.Sprint(s.Total)}, wb.boldStyle, 25)
}
