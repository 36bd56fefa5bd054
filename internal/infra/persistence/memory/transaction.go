package memory

import (
	"slices"
	"strconv"

	"timetable/pkg/domain"
)

// transaction represents a mutation set applied to a private copy of the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
}

// transactionView exposes a read-only snapshot of the transactional state.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListGrades() []GradeSettings {
	return slices.Clone(v.state.grades)
}

func (v transactionView) FindGrade(grade domain.Grade) (GradeSettings, bool) {
	if i := indexOfGrade(v.state.grades, grade); i >= 0 {
		return v.state.grades[i], true
	}
	return GradeSettings{}, false
}

func (v transactionView) ListSubjects() []Subject {
	return slices.Clone(v.state.subjects)
}

func (v transactionView) FindSubject(id string) (Subject, bool) {
	if i := indexOfSubject(v.state.subjects, id); i >= 0 {
		return v.state.subjects[i], true
	}
	return Subject{}, false
}

func (v transactionView) ListTeachers() []Teacher {
	out := make([]Teacher, 0, len(v.state.teachers))
	for _, t := range v.state.teachers {
		out = append(out, cloneTeacher(t))
	}
	return out
}

func (v transactionView) FindTeacher(id string) (Teacher, bool) {
	if i := indexOfTeacher(v.state.teachers, id); i >= 0 {
		return cloneTeacher(v.state.teachers[i]), true
	}
	return Teacher{}, false
}

func (v transactionView) ListSchedule() []ScheduleEntry {
	return slices.Clone(v.state.schedule)
}

func (v transactionView) FindEntry(id string) (ScheduleEntry, bool) {
	if i := indexOfEntry(v.state.schedule, id); i >= 0 {
		return v.state.schedule[i], true
	}
	return ScheduleEntry{}, false
}

func (tx *transaction) recordChange(entity domain.EntityType, action domain.Action, id string) {
	tx.changes = append(tx.changes, Change{Entity: entity, Action: action, EntityID: id})
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// ToggleGrade flips the enabled flag of grade.
func (tx *transaction) ToggleGrade(grade domain.Grade) (GradeSettings, bool) {
	i := indexOfGrade(tx.state.grades, grade)
	if i < 0 {
		return GradeSettings{}, false
	}
	tx.state.grades[i].Enabled = !tx.state.grades[i].Enabled
	tx.recordChange(domain.EntityGrade, domain.ActionUpdate, strconv.Itoa(int(grade)))
	return tx.state.grades[i], true
}

// SetClassCount stores count clamped to the supported class range.
func (tx *transaction) SetClassCount(grade domain.Grade, count int) (GradeSettings, bool) {
	i := indexOfGrade(tx.state.grades, grade)
	if i < 0 {
		return GradeSettings{}, false
	}
	tx.state.grades[i].ClassCount = domain.ClampClassCount(count)
	tx.recordChange(domain.EntityGrade, domain.ActionUpdate, strconv.Itoa(int(grade)))
	return tx.state.grades[i], true
}

// AddSubject appends a subject with a fresh id.
func (tx *transaction) AddSubject(name, color string) Subject {
	subject := Subject{ID: tx.store.idFn(), Name: name, Color: color}
	tx.state.subjects = append(tx.state.subjects, subject)
	tx.recordChange(domain.EntitySubject, domain.ActionCreate, subject.ID)
	return subject
}

// UpdateSubject applies mutator to the subject with id, preserving its id.
func (tx *transaction) UpdateSubject(id string, mutator func(*Subject)) (Subject, bool) {
	i := indexOfSubject(tx.state.subjects, id)
	if i < 0 {
		return Subject{}, false
	}
	current := tx.state.subjects[i]
	mutator(&current)
	current.ID = id
	tx.state.subjects[i] = current
	tx.recordChange(domain.EntitySubject, domain.ActionUpdate, id)
	return current, true
}

// RemoveSubject deletes the subject. Assignments and entries that reference it
// are left untouched.
func (tx *transaction) RemoveSubject(id string) bool {
	i := indexOfSubject(tx.state.subjects, id)
	if i < 0 {
		return false
	}
	tx.state.subjects = slices.Delete(tx.state.subjects, i, i+1)
	tx.recordChange(domain.EntitySubject, domain.ActionDelete, id)
	return true
}

// LoadSettings replaces grades and subjects wholesale.
func (tx *transaction) LoadSettings(grades []GradeSettings, subjects []Subject) {
	tx.state.grades = normalizeGrades(grades)
	tx.state.subjects = slices.Clone(subjects)
	if tx.state.subjects == nil {
		tx.state.subjects = []Subject{}
	}
	tx.recordChange(domain.EntityGrade, domain.ActionReplace, "")
	tx.recordChange(domain.EntitySubject, domain.ActionReplace, "")
}

// ResetSettings restores default grades and subjects.
func (tx *transaction) ResetSettings() {
	tx.LoadSettings(domain.DefaultGrades(), domain.DefaultSubjects())
}

// AddTeacher appends a teacher with no assignments.
func (tx *transaction) AddTeacher(name string) Teacher {
	teacher := Teacher{ID: tx.store.idFn(), Name: name, Assignments: []domain.TeacherAssignment{}}
	tx.state.teachers = append(tx.state.teachers, teacher)
	tx.recordChange(domain.EntityTeacher, domain.ActionCreate, teacher.ID)
	return cloneTeacher(teacher)
}

// UpdateTeacherName renames the teacher with id.
func (tx *transaction) UpdateTeacherName(id, name string) (Teacher, bool) {
	return tx.updateTeacher(id, func(t *Teacher) bool {
		t.Name = name
		return true
	})
}

// RemoveTeacher deletes the teacher only. Callers purge schedule entries separately.
func (tx *transaction) RemoveTeacher(id string) bool {
	i := indexOfTeacher(tx.state.teachers, id)
	if i < 0 {
		return false
	}
	tx.state.teachers = slices.Delete(tx.state.teachers, i, i+1)
	tx.recordChange(domain.EntityTeacher, domain.ActionDelete, id)
	return true
}

// AddAssignment adds (grade, subjectID) to the teacher. A duplicate pair is a
// no-op that still reports the teacher as found.
func (tx *transaction) AddAssignment(teacherID string, grade domain.Grade, subjectID string) (Teacher, bool) {
	return tx.updateTeacher(teacherID, func(t *Teacher) bool {
		if t.HasAssignment(grade, subjectID) {
			return false
		}
		t.Assignments = append(t.Assignments, domain.TeacherAssignment{Grade: grade, SubjectID: subjectID})
		return true
	})
}

// RemoveAssignment drops (grade, subjectID) from the teacher if present.
func (tx *transaction) RemoveAssignment(teacherID string, grade domain.Grade, subjectID string) (Teacher, bool) {
	return tx.updateTeacher(teacherID, func(t *Teacher) bool {
		before := len(t.Assignments)
		t.Assignments = slices.DeleteFunc(t.Assignments, func(a domain.TeacherAssignment) bool {
			return a.Grade == grade && a.SubjectID == subjectID
		})
		return len(t.Assignments) != before
	})
}

// ClearAssignments removes every assignment from the teacher.
func (tx *transaction) ClearAssignments(teacherID string) (Teacher, bool) {
	return tx.updateTeacher(teacherID, func(t *Teacher) bool {
		changed := len(t.Assignments) > 0
		t.Assignments = []domain.TeacherAssignment{}
		return changed
	})
}

// updateTeacher applies mutate to the teacher and records a change only when
// mutate reports one.
func (tx *transaction) updateTeacher(id string, mutate func(*Teacher) bool) (Teacher, bool) {
	i := indexOfTeacher(tx.state.teachers, id)
	if i < 0 {
		return Teacher{}, false
	}
	current := cloneTeacher(tx.state.teachers[i])
	if mutate(&current) {
		tx.state.teachers[i] = current
		tx.recordChange(domain.EntityTeacher, domain.ActionUpdate, id)
	}
	return cloneTeacher(current), true
}

// LoadTeachers replaces the teacher collection wholesale.
func (tx *transaction) LoadTeachers(teachers []Teacher) {
	tx.state.teachers = make([]Teacher, 0, len(teachers))
	for _, t := range teachers {
		t = cloneTeacher(t)
		t.Assignments = dedupeAssignments(t.Assignments)
		tx.state.teachers = append(tx.state.teachers, t)
	}
	tx.recordChange(domain.EntityTeacher, domain.ActionReplace, "")
}

// ResetTeachers empties the teacher collection.
func (tx *transaction) ResetTeachers() {
	tx.LoadTeachers(nil)
}

// AddEntry appends entry under a fresh id and returns the stored value.
func (tx *transaction) AddEntry(entry ScheduleEntry) ScheduleEntry {
	entry.ID = tx.store.idFn()
	tx.state.schedule = append(tx.state.schedule, entry)
	tx.recordChange(domain.EntityScheduleEntry, domain.ActionCreate, entry.ID)
	return entry
}

// UpdateEntry applies mutator to the entry with id, preserving its id.
func (tx *transaction) UpdateEntry(id string, mutator func(*ScheduleEntry)) (ScheduleEntry, bool) {
	i := indexOfEntry(tx.state.schedule, id)
	if i < 0 {
		return ScheduleEntry{}, false
	}
	current := tx.state.schedule[i]
	mutator(&current)
	current.ID = id
	tx.state.schedule[i] = current
	tx.recordChange(domain.EntityScheduleEntry, domain.ActionUpdate, id)
	return current, true
}

// RemoveEntry deletes the entry with id.
func (tx *transaction) RemoveEntry(id string) bool {
	i := indexOfEntry(tx.state.schedule, id)
	if i < 0 {
		return false
	}
	tx.state.schedule = slices.Delete(tx.state.schedule, i, i+1)
	tx.recordChange(domain.EntityScheduleEntry, domain.ActionDelete, id)
	return true
}

// RemoveEntriesByTeacher deletes every entry taught by teacherID and returns
// how many were removed.
func (tx *transaction) RemoveEntriesByTeacher(teacherID string) int {
	removed := 0
	kept := make([]ScheduleEntry, 0, len(tx.state.schedule))
	for _, e := range tx.state.schedule {
		if e.TeacherID == teacherID {
			removed++
			tx.recordChange(domain.EntityScheduleEntry, domain.ActionDelete, e.ID)
			continue
		}
		kept = append(kept, e)
	}
	tx.state.schedule = kept
	return removed
}

// ClearSchedule removes every entry and returns how many were removed.
func (tx *transaction) ClearSchedule() int {
	removed := len(tx.state.schedule)
	tx.state.schedule = []ScheduleEntry{}
	tx.recordChange(domain.EntityScheduleEntry, domain.ActionReplace, "")
	return removed
}

// LoadSchedule replaces the schedule wholesale. Entries without an id receive one.
func (tx *transaction) LoadSchedule(entries []ScheduleEntry) {
	tx.state.schedule = make([]ScheduleEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			e.ID = tx.store.idFn()
		}
		tx.state.schedule = append(tx.state.schedule, e)
	}
	tx.recordChange(domain.EntityScheduleEntry, domain.ActionReplace, "")
}
