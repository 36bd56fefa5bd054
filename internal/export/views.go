// Package export renders the timetable into downloadable documents. Every
// format is built from the same four views: per-teacher weekly grids,
// per-class weekly grids, a flat listing of all lessons, and a summary.
package export

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"timetable/pkg/domain"
)

// Snapshot is the data an export is rendered from. Grades are expected to be
// filtered to enabled grades by the caller.
type Snapshot = domain.ExportSnapshot

// DefaultLanguage orders teacher names when no language is configured.
var DefaultLanguage = language.Korean

// Column and row labels shared by all renderers.
const (
	PeriodHeader     = "Period"
	AllLessonsTitle  = "All assignments"
	SummaryTitle     = "Summary"
	TeacherCountHead = "Teachers"
	GradeCountHead   = "Lessons per grade"
	TotalLabel       = "Total"
)

// AssignmentHeaders labels the columns of the all-assignments listing.
var AssignmentHeaders = []string{"Teacher", "Grade", "Class", "Day", "Period", "Subject"}

// GridHeaders returns the header row of a weekly grid.
func GridHeaders() []string {
	out := []string{PeriodHeader}
	for _, d := range domain.Days() {
		out = append(out, string(d))
	}
	return out
}

// PeriodLabel renders a period as an ordinal, e.g. "1st".
func PeriodLabel(p domain.Period) string {
	n := int(p)
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(n) + suffix
}

// Grid is a weekly grid of cell texts indexed by [period-1][day index].
type Grid [][]string

func newGrid() Grid {
	g := make(Grid, len(domain.Periods()))
	for i := range g {
		g[i] = make([]string, len(domain.Days()))
	}
	return g
}

func (g Grid) set(day domain.Day, period domain.Period, text string) {
	d := day.Index()
	p := int(period) - 1
	if d < 0 || p < 0 || p >= len(g) {
		return
	}
	g[p][d] = text
}

// Cell returns the text for a slot, or "" when the slot is outside the grid.
func (g Grid) Cell(day domain.Day, period domain.Period) string {
	d := day.Index()
	p := int(period) - 1
	if d < 0 || p < 0 || p >= len(g) {
		return ""
	}
	return g[p][d]
}

// Rows returns the grid as table rows with the period label in the first column.
func (g Grid) Rows() [][]string {
	rows := make([][]string, 0, len(g))
	for i, cells := range g {
		row := append([]string{PeriodLabel(domain.Period(i + 1))}, cells...)
		rows = append(rows, row)
	}
	return rows
}

// TeacherGrid is the weekly grid of one teacher. Cells list "grade-class" for
// every lesson in the slot, comma-joined.
type TeacherGrid struct {
	TeacherID string
	Name      string
	Grid      Grid
}

// Title is the heading rendered above the grid.
func (t TeacherGrid) Title() string { return t.Name + " timetable" }

// ClassGrid is the weekly grid of one class. Cells hold the subject name.
type ClassGrid struct {
	Class domain.ClassRef
	Grid  Grid
}

// Title is the heading rendered above the grid.
func (c ClassGrid) Title() string {
	return "Grade " + strconv.Itoa(int(c.Class.Grade)) + " Class " + strconv.Itoa(c.Class.ClassNumber)
}

// GradeSection groups the class grids of one grade.
type GradeSection struct {
	Grade   domain.Grade
	Classes []ClassGrid
}

// Title is the heading of the grade section.
func (g GradeSection) Title() string { return GradeLabel(g.Grade) }

// GradeLabel renders a grade, e.g. "Grade 3".
func GradeLabel(g domain.Grade) string { return "Grade " + strconv.Itoa(int(g)) }

// AssignmentRow is one line of the all-assignments listing.
type AssignmentRow struct {
	Teacher     string
	Grade       domain.Grade
	ClassNumber int
	Day         domain.Day
	Period      domain.Period
	Subject     string
}

// Cells returns the row as display strings in AssignmentHeaders order.
func (r AssignmentRow) Cells() []string {
	return []string{
		r.Teacher,
		GradeLabel(r.Grade),
		"Class " + strconv.Itoa(r.ClassNumber),
		string(r.Day),
		PeriodLabel(r.Period),
		r.Subject,
	}
}

// CountRow is a labelled lesson count.
type CountRow struct {
	Label string
	Count int
}

// Summary lists lesson counts per teacher and per grade.
type Summary struct {
	Teachers []CountRow
	Grades   []CountRow
	Total    int
}

// Views holds everything a renderer needs.
type Views struct {
	Teachers    []TeacherGrid
	Grades      []GradeSection
	Assignments []AssignmentRow
	Summary     Summary
}

// BuildViews derives the four export views from snap. Teacher names in the
// listing are ordered with the collation rules of lang. Missing teacher and
// subject lookups render as empty strings.
func BuildViews(snap Snapshot, lang language.Tag) Views {
	teacherNames := make(map[string]string, len(snap.Teachers))
	for _, t := range snap.Teachers {
		teacherNames[t.ID] = t.Name
	}
	subjectNames := make(map[string]string, len(snap.Subjects))
	for _, s := range snap.Subjects {
		subjectNames[s.ID] = s.Name
	}
	return Views{
		Teachers:    teacherGrids(snap),
		Grades:      gradeSections(snap, subjectNames),
		Assignments: assignmentRows(snap, teacherNames, subjectNames, lang),
		Summary:     summarize(snap),
	}
}

func teacherGrids(snap Snapshot) []TeacherGrid {
	out := []TeacherGrid{}
	for _, t := range snap.Teachers {
		type slotKey struct {
			day    domain.Day
			period domain.Period
		}
		labels := map[slotKey][]string{}
		for _, e := range snap.Schedule {
			if e.TeacherID != t.ID {
				continue
			}
			k := slotKey{e.Day, e.Period}
			labels[k] = append(labels[k], e.Class().String())
		}
		if len(labels) == 0 {
			continue
		}
		grid := newGrid()
		for k, classes := range labels {
			grid.set(k.day, k.period, strings.Join(classes, ", "))
		}
		out = append(out, TeacherGrid{TeacherID: t.ID, Name: t.Name, Grid: grid})
	}
	return out
}

func gradeSections(snap Snapshot, subjectNames map[string]string) []GradeSection {
	out := make([]GradeSection, 0, len(snap.Grades))
	for _, g := range snap.Grades {
		section := GradeSection{Grade: g.Grade}
		for c := 1; c <= g.ClassCount; c++ {
			class := domain.ClassRef{Grade: g.Grade, ClassNumber: c}
			grid := newGrid()
			filled := map[domain.Slot]bool{}
			for _, e := range snap.Schedule {
				if e.Class() != class || filled[e.Slot()] {
					continue
				}
				filled[e.Slot()] = true
				grid.set(e.Day, e.Period, subjectNames[e.SubjectID])
			}
			section.Classes = append(section.Classes, ClassGrid{Class: class, Grid: grid})
		}
		out = append(out, section)
	}
	return out
}

func assignmentRows(snap Snapshot, teacherNames, subjectNames map[string]string, lang language.Tag) []AssignmentRow {
	rows := make([]AssignmentRow, 0, len(snap.Schedule))
	for _, e := range snap.Schedule {
		rows = append(rows, AssignmentRow{
			Teacher:     teacherNames[e.TeacherID],
			Grade:       e.Grade,
			ClassNumber: e.ClassNumber,
			Day:         e.Day,
			Period:      e.Period,
			Subject:     subjectNames[e.SubjectID],
		})
	}
	coll := collate.New(lang)
	slices.SortStableFunc(rows, func(a, b AssignmentRow) int {
		if a.Teacher != b.Teacher {
			if c := coll.CompareString(a.Teacher, b.Teacher); c != 0 {
				return c
			}
		}
		if a.Day != b.Day {
			return a.Day.Index() - b.Day.Index()
		}
		return int(a.Period) - int(b.Period)
	})
	return rows
}

func summarize(snap Snapshot) Summary {
	byTeacher := map[string]int{}
	byGrade := map[domain.Grade]int{}
	for _, e := range snap.Schedule {
		byTeacher[e.TeacherID]++
		byGrade[e.Grade]++
	}
	s := Summary{
		Teachers: make([]CountRow, 0, len(snap.Teachers)),
		Grades:   make([]CountRow, 0, len(snap.Grades)),
		Total:    len(snap.Schedule),
	}
	for _, t := range snap.Teachers {
		s.Teachers = append(s.Teachers, CountRow{Label: t.Name, Count: byTeacher[t.ID]})
	}
	for _, g := range snap.Grades {
		s.Grades = append(s.Grades, CountRow{Label: GradeLabel(g.Grade), Count: byGrade[g.Grade]})
	}
	return s
}
