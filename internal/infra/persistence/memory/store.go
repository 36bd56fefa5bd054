// Package memory provides the in-memory transactional store that owns the
// settings, teacher, and schedule collections together with the current
// conflict set.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"timetable/pkg/domain"
)

type (
	// GradeSettings aliases domain.GradeSettings.
	GradeSettings = domain.GradeSettings
	// Subject aliases domain.Subject.
	Subject = domain.Subject
	// Teacher aliases domain.Teacher.
	Teacher = domain.Teacher
	// ScheduleEntry aliases domain.ScheduleEntry.
	ScheduleEntry = domain.ScheduleEntry
	// Conflict aliases domain.Conflict.
	Conflict = domain.Conflict
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result returned from committed transactions.
	Result = domain.Result
	// Snapshot aliases domain.Snapshot used for import and export.
	Snapshot = domain.Snapshot
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

// Store provides an in-memory transactional store for the timetable domain.
// Every commit that touches the schedule recomputes the conflict set before
// the lock is released, so readers never observe a stale pairing.
type Store struct {
	mu        sync.RWMutex
	state     memoryState
	conflicts []Conflict
	engine    *domain.ConflictEngine
	idFn      func() string
}

// NewStore constructs an in-memory store seeded with default settings. A nil
// engine selects the default class and teacher detectors.
func NewStore(engine *domain.ConflictEngine) *Store {
	if engine == nil {
		engine = domain.NewDefaultConflictEngine()
	}
	return &Store{
		state:     newMemoryState(),
		conflicts: []Conflict{},
		engine:    engine,
		idFn:      uuid.NewString,
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot and
// recomputes conflicts.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
	s.conflicts = s.engine.Evaluate(s.state.schedule)
}

// RunInTransaction applies fn to a private copy of the state and commits it
// when fn succeeds. Conflicts are recomputed when the schedule changed.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
	}
	if err := fn(tx); err != nil {
		return Result{}, err
	}

	result := Result{Changes: tx.changes}
	if result.TouchesSchedule() {
		s.conflicts = s.engine.Evaluate(tx.state.schedule)
	}
	s.state = tx.state
	result.Conflicts = cloneConflicts(s.conflicts)
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

// Conflicts returns the conflict set computed at the last schedule commit.
func (s *Store) Conflicts() []Conflict {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneConflicts(s.conflicts)
}

// ConflictsForEntry returns every current conflict that includes entryID.
func (s *Store) ConflictsForEntry(entryID string) []Conflict {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Conflict{}
	for _, c := range s.conflicts {
		if c.Contains(entryID) {
			out = append(out, cloneConflict(c))
		}
	}
	return out
}

// ListGrades returns all grade settings in grade order.
func (s *Store) ListGrades() []GradeSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.grades)
}

// EnabledGrades returns the enabled grade settings in grade order.
func (s *Store) EnabledGrades() []GradeSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []GradeSettings{}
	for _, g := range s.state.grades {
		if g.Enabled {
			out = append(out, g)
		}
	}
	return out
}

// GetGrade returns the settings for grade.
func (s *Store) GetGrade(grade domain.Grade) (GradeSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindGrade(grade)
}

// ListSubjects returns subjects in insertion order.
func (s *Store) ListSubjects() []Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.subjects)
}

// GetSubject returns the subject with id.
func (s *Store) GetSubject(id string) (Subject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindSubject(id)
}

// ListTeachers returns teachers in insertion order.
func (s *Store) ListTeachers() []Teacher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListTeachers()
}

// GetTeacher returns the teacher with id.
func (s *Store) GetTeacher(id string) (Teacher, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindTeacher(id)
}

// TeachersByGrade returns teachers holding at least one assignment for grade.
func (s *Store) TeachersByGrade(grade domain.Grade) []Teacher {
	return s.filterTeachers(func(t Teacher) bool { return t.TeachesGrade(grade) })
}

// TeachersBySubject returns teachers holding at least one assignment for subjectID.
func (s *Store) TeachersBySubject(subjectID string) []Teacher {
	return s.filterTeachers(func(t Teacher) bool { return t.TeachesSubject(subjectID) })
}

func (s *Store) filterTeachers(keep func(Teacher) bool) []Teacher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Teacher{}
	for _, t := range s.state.teachers {
		if keep(t) {
			out = append(out, cloneTeacher(t))
		}
	}
	return out
}

// ListSchedule returns schedule entries in insertion order.
func (s *Store) ListSchedule() []ScheduleEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.schedule)
}

// GetEntry returns the schedule entry with id.
func (s *Store) GetEntry(id string) (ScheduleEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).FindEntry(id)
}

// EntriesByTeacher returns the entries taught by teacherID.
func (s *Store) EntriesByTeacher(teacherID string) []ScheduleEntry {
	return s.filterSchedule(func(e ScheduleEntry) bool { return e.TeacherID == teacherID })
}

// EntriesByGrade returns the entries for every class of grade.
func (s *Store) EntriesByGrade(grade domain.Grade) []ScheduleEntry {
	return s.filterSchedule(func(e ScheduleEntry) bool { return e.Grade == grade })
}

// EntriesByClass returns the entries for a single class.
func (s *Store) EntriesByClass(grade domain.Grade, classNumber int) []ScheduleEntry {
	return s.filterSchedule(func(e ScheduleEntry) bool {
		return e.Grade == grade && e.ClassNumber == classNumber
	})
}

// EntriesAt returns the entries occupying one class slot.
func (s *Store) EntriesAt(grade domain.Grade, classNumber int, day domain.Day, period domain.Period) []ScheduleEntry {
	return s.filterSchedule(func(e ScheduleEntry) bool {
		return e.Grade == grade && e.ClassNumber == classNumber && e.Day == day && e.Period == period
	})
}

// EntriesForTeacherAt returns the entries a teacher holds in one slot.
func (s *Store) EntriesForTeacherAt(teacherID string, day domain.Day, period domain.Period) []ScheduleEntry {
	return s.filterSchedule(func(e ScheduleEntry) bool {
		return e.TeacherID == teacherID && e.Day == day && e.Period == period
	})
}

func (s *Store) filterSchedule(keep func(ScheduleEntry) bool) []ScheduleEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []ScheduleEntry{}
	for _, e := range s.state.schedule {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
