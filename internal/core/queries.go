package core

import (
	"slices"

	"timetable/pkg/domain"
)

// UnknownTeacherName is shown for schedule entries whose teacher no longer exists.
const UnknownTeacherName = "unknown"

// ListGrades returns all grade settings.
func (s *Service) ListGrades() []GradeSettings { return s.store.ListGrades() }

// EnabledGrades returns the grades currently taught.
func (s *Service) EnabledGrades() []GradeSettings { return s.store.EnabledGrades() }

// Grade looks up the settings for grade.
func (s *Service) Grade(grade domain.Grade) (GradeSettings, bool) { return s.store.GetGrade(grade) }

// ListSubjects returns every subject.
func (s *Service) ListSubjects() []Subject { return s.store.ListSubjects() }

// Subject looks up a subject by id.
func (s *Service) Subject(id string) (Subject, bool) { return s.store.GetSubject(id) }

// ListTeachers returns every teacher.
func (s *Service) ListTeachers() []Teacher { return s.store.ListTeachers() }

// Teacher looks up a teacher by id.
func (s *Service) Teacher(id string) (Teacher, bool) { return s.store.GetTeacher(id) }

// TeachersByGrade returns teachers assigned to grade.
func (s *Service) TeachersByGrade(grade domain.Grade) []Teacher { return s.store.TeachersByGrade(grade) }

// TeachersBySubject returns teachers assigned to subjectID.
func (s *Service) TeachersBySubject(subjectID string) []Teacher {
	return s.store.TeachersBySubject(subjectID)
}

// ListSchedule returns every schedule entry.
func (s *Service) ListSchedule() []ScheduleEntry { return s.store.ListSchedule() }

// Entry looks up a schedule entry by id.
func (s *Service) Entry(id string) (ScheduleEntry, bool) { return s.store.GetEntry(id) }

// EntriesByTeacher returns the entries taught by teacherID.
func (s *Service) EntriesByTeacher(teacherID string) []ScheduleEntry {
	return s.store.EntriesByTeacher(teacherID)
}

// EntriesByGrade returns the entries for grade.
func (s *Service) EntriesByGrade(grade domain.Grade) []ScheduleEntry {
	return s.store.EntriesByGrade(grade)
}

// EntriesByClass returns the entries for a single class.
func (s *Service) EntriesByClass(grade domain.Grade, classNumber int) []ScheduleEntry {
	return s.store.EntriesByClass(grade, classNumber)
}

// EntriesAt returns the entries occupying a class slot.
func (s *Service) EntriesAt(grade domain.Grade, classNumber int, day domain.Day, period domain.Period) []ScheduleEntry {
	return s.store.EntriesAt(grade, classNumber, day, period)
}

// Conflicts returns the current conflict set.
func (s *Service) Conflicts() []Conflict { return s.store.Conflicts() }

// ConflictsForEntry returns the conflicts that include entryID.
func (s *Service) ConflictsForEntry(entryID string) []Conflict {
	return s.store.ConflictsForEntry(entryID)
}

// ConflictTypeForEntry returns the kind of the first conflict including
// entryID. Class collisions are reported first, so they win when an entry is
// in both kinds.
func (s *Service) ConflictTypeForEntry(entryID string) (domain.ConflictType, bool) {
	conflicts := s.store.ConflictsForEntry(entryID)
	if len(conflicts) == 0 {
		return "", false
	}
	return conflicts[0].Type, true
}

// TeacherConflicts returns the conflicts in which any entry belongs to teacherID.
func (s *Service) TeacherConflicts(teacherID string) []Conflict {
	out := []Conflict{}
	for _, c := range s.store.Conflicts() {
		if c.InvolvesTeacher(teacherID) {
			out = append(out, c)
		}
	}
	return out
}

// TeacherSlotOverloaded reports whether the teacher holds more than one entry
// in the slot.
func (s *Service) TeacherSlotOverloaded(teacherID string, day domain.Day, period domain.Period) bool {
	return len(s.store.EntriesForTeacherAt(teacherID, day, period)) > 1
}

// ClassOption is a class a teacher may be placed into.
type ClassOption struct {
	Grade       domain.Grade `json:"grade"`
	ClassNumber int          `json:"class_number"`
	Label       string       `json:"label"`
}

// ClassOptions lists every class of the enabled grades the teacher is
// assigned to, in grade then class order.
func (s *Service) ClassOptions(teacherID string) ([]ClassOption, error) {
	teacher, ok := s.store.GetTeacher(teacherID)
	if !ok {
		return nil, ErrNotFound{Entity: domain.EntityTeacher, ID: teacherID}
	}
	out := []ClassOption{}
	for _, g := range s.store.EnabledGrades() {
		if !teacher.TeachesGrade(g.Grade) {
			continue
		}
		for c := 1; c <= g.ClassCount; c++ {
			ref := domain.ClassRef{Grade: g.Grade, ClassNumber: c}
			out = append(out, ClassOption{Grade: g.Grade, ClassNumber: c, Label: ref.String()})
		}
	}
	return out, nil
}

// SubjectsFor returns the existing subjects the teacher is assigned to teach
// in grade, in subject order.
func (s *Service) SubjectsFor(teacherID string, grade domain.Grade) ([]Subject, error) {
	teacher, ok := s.store.GetTeacher(teacherID)
	if !ok {
		return nil, ErrNotFound{Entity: domain.EntityTeacher, ID: teacherID}
	}
	out := []Subject{}
	for _, subject := range s.store.ListSubjects() {
		if teacher.HasAssignment(grade, subject.ID) {
			out = append(out, subject)
		}
	}
	return out, nil
}

// SlotCheck is the advisory result of checking a class slot before placing a lesson.
type SlotCheck struct {
	Occupied     bool            `json:"occupied"`
	Entries      []ScheduleEntry `json:"entries"`
	TeacherNames []string        `json:"teacher_names"`
}

// CheckSlot reports the lessons already placed in a class slot together with
// their teachers' names. It never blocks AddEntry.
func (s *Service) CheckSlot(grade domain.Grade, classNumber int, day domain.Day, period domain.Period) SlotCheck {
	entries := s.store.EntriesAt(grade, classNumber, day, period)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := UnknownTeacherName
		if t, ok := s.store.GetTeacher(e.TeacherID); ok {
			name = t.Name
		}
		names = append(names, name)
	}
	return SlotCheck{Occupied: len(entries) > 0, Entries: entries, TeacherNames: names}
}

// DashboardStats summarises the current state.
type DashboardStats struct {
	EnabledGrades int `json:"enabled_grades"`
	Teachers      int `json:"teachers"`
	Entries       int `json:"entries"`
	Conflicts     int `json:"conflicts"`
}

// Dashboard returns the summary counters.
func (s *Service) Dashboard() DashboardStats {
	return DashboardStats{
		EnabledGrades: len(s.store.EnabledGrades()),
		Teachers:      len(s.store.ListTeachers()),
		Entries:       len(s.store.ListSchedule()),
		Conflicts:     len(s.store.Conflicts()),
	}
}

// ExportSnapshot captures the data exporters consume. Grades are filtered to
// enabled grades.
func (s *Service) ExportSnapshot() domain.ExportSnapshot {
	snapshot := s.store.ExportState()
	grades := slices.DeleteFunc(snapshot.Settings.Grades, func(g GradeSettings) bool { return !g.Enabled })
	return domain.ExportSnapshot{
		Schedule: snapshot.Schedule,
		Teachers: snapshot.Teachers,
		Subjects: snapshot.Settings.Subjects,
		Grades:   grades,
	}
}
