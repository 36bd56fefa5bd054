package memory

import (
	"slices"

	"timetable/pkg/domain"
)

type memoryState struct {
	grades   []GradeSettings
	subjects []Subject
	teachers []Teacher
	schedule []ScheduleEntry
}

func newMemoryState() memoryState {
	return memoryState{
		grades:   domain.DefaultGrades(),
		subjects: domain.DefaultSubjects(),
		teachers: []Teacher{},
		schedule: []ScheduleEntry{},
	}
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		grades:   slices.Clone(s.grades),
		subjects: slices.Clone(s.subjects),
		teachers: make([]Teacher, 0, len(s.teachers)),
		schedule: slices.Clone(s.schedule),
	}
	for _, t := range s.teachers {
		cloned.teachers = append(cloned.teachers, cloneTeacher(t))
	}
	return cloned
}

func cloneConflict(c Conflict) Conflict {
	c.Entries = slices.Clone(c.Entries)
	return c
}

func cloneConflicts(conflicts []Conflict) []Conflict {
	out := make([]Conflict, len(conflicts))
	for i, c := range conflicts {
		out[i] = cloneConflict(c)
	}
	return out
}

func cloneTeacher(t Teacher) Teacher {
	t.Assignments = slices.Clone(t.Assignments)
	if t.Assignments == nil {
		t.Assignments = []domain.TeacherAssignment{}
	}
	return t
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{
		Settings: &domain.SettingsSnapshot{Grades: cloned.grades, Subjects: cloned.subjects},
		Teachers: cloned.teachers,
		Schedule: cloned.schedule,
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := memoryState{
		grades:   s.Settings.Grades,
		subjects: s.Settings.Subjects,
		teachers: s.Teachers,
		schedule: s.Schedule,
	}
	return state.clone()
}

// migrateSnapshot normalises persisted data: absent settings fall back to
// defaults, every grade appears exactly once in order with a clamped class
// count, teacher assignments are de-duplicated, and nil collections become empty.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Settings == nil {
		snapshot.Settings = &domain.SettingsSnapshot{
			Grades:   domain.DefaultGrades(),
			Subjects: domain.DefaultSubjects(),
		}
	}
	settings := *snapshot.Settings
	settings.Grades = normalizeGrades(settings.Grades)
	if settings.Subjects == nil {
		settings.Subjects = []Subject{}
	}
	snapshot.Settings = &settings

	teachers := make([]Teacher, 0, len(snapshot.Teachers))
	for _, t := range snapshot.Teachers {
		t = cloneTeacher(t)
		t.Assignments = dedupeAssignments(t.Assignments)
		teachers = append(teachers, t)
	}
	snapshot.Teachers = teachers

	if snapshot.Schedule == nil {
		snapshot.Schedule = []ScheduleEntry{}
	}
	return snapshot
}

func normalizeGrades(in []GradeSettings) []GradeSettings {
	byGrade := make(map[domain.Grade]GradeSettings, len(in))
	for _, g := range in {
		if !g.Grade.Valid() {
			continue
		}
		if _, seen := byGrade[g.Grade]; seen {
			continue
		}
		byGrade[g.Grade] = g
	}
	out := domain.DefaultGrades()
	for i, def := range out {
		if g, ok := byGrade[def.Grade]; ok {
			out[i] = g
		}
		out[i].ClassCount = domain.ClampClassCount(out[i].ClassCount)
	}
	return out
}

func dedupeAssignments(in []domain.TeacherAssignment) []domain.TeacherAssignment {
	out := make([]domain.TeacherAssignment, 0, len(in))
	for _, a := range in {
		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}

func indexOfGrade(grades []GradeSettings, grade domain.Grade) int {
	return slices.IndexFunc(grades, func(g GradeSettings) bool { return g.Grade == grade })
}

func indexOfSubject(subjects []Subject, id string) int {
	return slices.IndexFunc(subjects, func(s Subject) bool { return s.ID == id })
}

func indexOfTeacher(teachers []Teacher, id string) int {
	return slices.IndexFunc(teachers, func(t Teacher) bool { return t.ID == id })
}

func indexOfEntry(entries []ScheduleEntry, id string) int {
	return slices.IndexFunc(entries, func(e ScheduleEntry) bool { return e.ID == id })
}
