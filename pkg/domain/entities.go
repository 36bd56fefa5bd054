// Package domain defines the timetable entities, value types, and the conflict
// engine shared by the stores, the service façade, and the exporters.
package domain

import (
	"fmt"
	"strconv"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityGrade identifies a grade settings record.
	EntityGrade EntityType = "grade"
	// EntitySubject identifies a subject record.
	EntitySubject EntityType = "subject"
	// EntityTeacher identifies a teacher record including its assignments.
	EntityTeacher EntityType = "teacher"
	// EntityScheduleEntry identifies a single placed lesson.
	EntityScheduleEntry EntityType = "schedule_entry"
)

// Grade is a school year between MinGrade and MaxGrade inclusive.
type Grade int

// Grade bounds.
const (
	MinGrade Grade = 1
	MaxGrade Grade = 6
)

// Valid reports whether g lies within the supported grade range.
func (g Grade) Valid() bool {
	return g >= MinGrade && g <= MaxGrade
}

// Grades lists every grade in ascending order.
func Grades() []Grade {
	out := make([]Grade, 0, int(MaxGrade))
	for g := MinGrade; g <= MaxGrade; g++ {
		out = append(out, g)
	}
	return out
}

// Day is a weekday on which lessons may be placed.
type Day string

// Canonical weekdays in timetable order.
const (
	DayMon Day = "Mon"
	DayTue Day = "Tue"
	DayWed Day = "Wed"
	DayThu Day = "Thu"
	DayFri Day = "Fri"
)

var days = []Day{DayMon, DayTue, DayWed, DayThu, DayFri}

// Days returns the weekdays in Mon..Fri order.
func Days() []Day {
	out := make([]Day, len(days))
	copy(out, days)
	return out
}

// Index returns the zero-based position of d within the week, or -1 for an
// unknown day.
func (d Day) Index() int {
	for i, candidate := range days {
		if candidate == d {
			return i
		}
	}
	return -1
}

// Valid reports whether d is one of the five canonical weekdays.
func (d Day) Valid() bool {
	return d.Index() >= 0
}

// Period is a lesson slot within a day.
type Period int

// Period bounds.
const (
	MinPeriod Period = 1
	MaxPeriod Period = 6
)

// Valid reports whether p lies within the supported period range.
func (p Period) Valid() bool {
	return p >= MinPeriod && p <= MaxPeriod
}

// Periods lists every period in ascending order.
func Periods() []Period {
	out := make([]Period, 0, int(MaxPeriod))
	for p := MinPeriod; p <= MaxPeriod; p++ {
		out = append(out, p)
	}
	return out
}

// Class count bounds applied when a grade's class count is set.
const (
	MinClassCount = 1
	MaxClassCount = 10
)

// ClampClassCount bounds n to [MinClassCount, MaxClassCount].
func ClampClassCount(n int) int {
	return max(MinClassCount, min(MaxClassCount, n))
}

// GradeSettings captures whether a grade is taught and how many classes it has.
type GradeSettings struct {
	Grade      Grade `json:"grade"`
	Enabled    bool  `json:"enabled"`
	ClassCount int   `json:"class_count"`
}

// Subject is a taught subject with a display colour.
type Subject struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TeacherAssignment declares that a teacher teaches a subject to a grade.
type TeacherAssignment struct {
	Grade     Grade  `json:"grade"`
	SubjectID string `json:"subject_id"`
}

// Teacher is a specialist teacher and the (grade, subject) pairs they cover.
type Teacher struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Assignments []TeacherAssignment `json:"assignments"`
}

// HasAssignment reports whether the teacher already covers subjectID for grade.
func (t Teacher) HasAssignment(grade Grade, subjectID string) bool {
	for _, a := range t.Assignments {
		if a.Grade == grade && a.SubjectID == subjectID {
			return true
		}
	}
	return false
}

// TeachesGrade reports whether any assignment targets grade.
func (t Teacher) TeachesGrade(grade Grade) bool {
	for _, a := range t.Assignments {
		if a.Grade == grade {
			return true
		}
	}
	return false
}

// TeachesSubject reports whether any assignment targets subjectID.
func (t Teacher) TeachesSubject(subjectID string) bool {
	for _, a := range t.Assignments {
		if a.SubjectID == subjectID {
			return true
		}
	}
	return false
}

// ScheduleEntry is one lesson placed in the weekly grid.
type ScheduleEntry struct {
	ID          string `json:"id"`
	TeacherID   string `json:"teacher_id"`
	Grade       Grade  `json:"grade"`
	ClassNumber int    `json:"class_number"`
	Day         Day    `json:"day"`
	Period      Period `json:"period"`
	SubjectID   string `json:"subject_id"`
}

// Class returns the class the entry is taught to.
func (e ScheduleEntry) Class() ClassRef {
	return ClassRef{Grade: e.Grade, ClassNumber: e.ClassNumber}
}

// Slot returns the weekly slot the entry occupies.
func (e ScheduleEntry) Slot() Slot {
	return Slot{Day: e.Day, Period: e.Period}
}

// ClassRef identifies a single class within a grade.
type ClassRef struct {
	Grade       Grade `json:"grade"`
	ClassNumber int   `json:"class_number"`
}

// String renders the class as "grade-class", e.g. "3-1".
func (c ClassRef) String() string {
	return strconv.Itoa(int(c.Grade)) + "-" + strconv.Itoa(c.ClassNumber)
}

// Slot is a (day, period) pair in the weekly grid.
type Slot struct {
	Day    Day    `json:"day"`
	Period Period `json:"period"`
}

// String renders the slot as "Day period", e.g. "Mon 1".
func (s Slot) String() string {
	return fmt.Sprintf("%s %d", s.Day, s.Period)
}
