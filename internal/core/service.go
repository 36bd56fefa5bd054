package core

import (
	"context"
	"strconv"
	"sync"
	"time"

	"timetable/internal/infra/persistence/memory"
	"timetable/pkg/domain"
)

// Service is the mutation façade over the timetable stores. Every mutation
// runs in a store transaction that recomputes conflicts before it commits,
// then hands the touched buckets to the snapshot sink.
type Service struct {
	store *memory.Store
	sink  domain.SnapshotSink

	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	now     func() time.Time

	persistMu sync.Mutex
}

// NewService constructs a service backed by the supplied store.
func NewService(store *memory.Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		audit:   noopAudit{},
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store with the
// default conflict detectors.
func NewInMemoryService(opts ...Option) *Service {
	return NewService(memory.NewStore(nil), opts...)
}

// Store returns the underlying store.
func (s *Service) Store() *memory.Store {
	return s.store
}

type operation struct {
	name   string
	entity EntityType
}

// run executes fn in a transaction and records tracing, metrics, audit, and
// persistence around it. fn returns the id of the affected record.
func (s *Service) run(ctx context.Context, op operation, fn func(tx Transaction) (string, error)) (Result, error) {
	ctx, span := s.tracer.Start(ctx, op.name)
	started := s.now()
	var entityID string
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		id, err := fn(tx)
		entityID = id
		return err
	})
	duration := s.now().Sub(started)
	span.End(err)
	s.metrics.Observe(ctx, op.name, err == nil, duration)

	entry := AuditEntry{
		Operation:  op.name,
		Entity:     op.entity,
		EntityID:   entityID,
		Status:     AuditStatusSuccess,
		Changes:    len(res.Changes),
		Conflicts:  len(res.Conflicts),
		Duration:   duration,
		OccurredAt: started,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
		s.audit.Record(ctx, entry)
		s.logger.Warn("operation failed", "operation", op.name, "entity_id", entityID, "error", err)
		return res, err
	}
	s.audit.Record(ctx, entry)
	s.logger.Debug("operation committed", "operation", op.name, "entity_id", entityID, "changes", len(res.Changes), "conflicts", len(res.Conflicts))

	if res.TouchesSchedule() {
		if observer, ok := s.metrics.(ConflictObserver); ok {
			observer.ObserveConflicts(ctx, res.Conflicts)
		}
	}
	s.persist(ctx, op, res)
	return res, nil
}

// persist writes the touched buckets to the sink. Failures are logged and
// counted but never undo the in-memory commit.
func (s *Service) persist(ctx context.Context, op operation, res Result) {
	if s.sink == nil || !res.Changed() {
		return
	}
	ctx = context.WithoutCancel(ctx)
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	started := s.now()
	err := s.sink.Save(ctx, s.store.ExportState(), res.Buckets())
	s.metrics.Observe(ctx, "persist_snapshot", err == nil, s.now().Sub(started))
	if err != nil {
		s.logger.Error("persist snapshot failed", "operation", op.name, "buckets", res.Buckets(), "error", err)
	}
}

func gradeID(grade domain.Grade) string {
	return strconv.Itoa(int(grade))
}

// ToggleGrade flips whether grade is taught.
func (s *Service) ToggleGrade(ctx context.Context, grade domain.Grade) (GradeSettings, Result, error) {
	var updated GradeSettings
	res, err := s.run(ctx, operation{"toggle_grade", domain.EntityGrade}, func(tx Transaction) (string, error) {
		var ok bool
		if updated, ok = tx.ToggleGrade(grade); !ok {
			return gradeID(grade), ErrNotFound{Entity: domain.EntityGrade, ID: gradeID(grade)}
		}
		return gradeID(grade), nil
	})
	return updated, res, err
}

// SetClassCount sets the class count for grade, clamped to [1, 10].
func (s *Service) SetClassCount(ctx context.Context, grade domain.Grade, count int) (GradeSettings, Result, error) {
	var updated GradeSettings
	res, err := s.run(ctx, operation{"set_class_count", domain.EntityGrade}, func(tx Transaction) (string, error) {
		var ok bool
		if updated, ok = tx.SetClassCount(grade, count); !ok {
			return gradeID(grade), ErrNotFound{Entity: domain.EntityGrade, ID: gradeID(grade)}
		}
		return gradeID(grade), nil
	})
	return updated, res, err
}

// AddSubject creates a subject.
func (s *Service) AddSubject(ctx context.Context, name, color string) (Subject, Result, error) {
	var created Subject
	res, err := s.run(ctx, operation{"add_subject", domain.EntitySubject}, func(tx Transaction) (string, error) {
		created = tx.AddSubject(name, color)
		return created.ID, nil
	})
	return created, res, err
}

// UpdateSubject mutates a subject using the provided mutator.
func (s *Service) UpdateSubject(ctx context.Context, id string, mutator func(*Subject)) (Subject, Result, error) {
	var updated Subject
	res, err := s.run(ctx, operation{"update_subject", domain.EntitySubject}, func(tx Transaction) (string, error) {
		var ok bool
		if updated, ok = tx.UpdateSubject(id, mutator); !ok {
			return id, ErrNotFound{Entity: domain.EntitySubject, ID: id}
		}
		return id, nil
	})
	return updated, res, err
}

// RemoveSubject deletes a subject. References to it are left in place.
func (s *Service) RemoveSubject(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, operation{"remove_subject", domain.EntitySubject}, func(tx Transaction) (string, error) {
		if !tx.RemoveSubject(id) {
			return id, ErrNotFound{Entity: domain.EntitySubject, ID: id}
		}
		return id, nil
	})
}

// ResetSettings restores default grades and subjects.
func (s *Service) ResetSettings(ctx context.Context) (Result, error) {
	return s.run(ctx, operation{"reset_settings", domain.EntityGrade}, func(tx Transaction) (string, error) {
		tx.ResetSettings()
		return "", nil
	})
}

// LoadSettings replaces grades and subjects wholesale.
func (s *Service) LoadSettings(ctx context.Context, grades []GradeSettings, subjects []Subject) (Result, error) {
	return s.run(ctx, operation{"load_settings", domain.EntityGrade}, func(tx Transaction) (string, error) {
		tx.LoadSettings(grades, subjects)
		return "", nil
	})
}

// AddTeacher creates a teacher with no assignments.
func (s *Service) AddTeacher(ctx context.Context, name string) (Teacher, Result, error) {
	var created Teacher
	res, err := s.run(ctx, operation{"add_teacher", domain.EntityTeacher}, func(tx Transaction) (string, error) {
		created = tx.AddTeacher(name)
		return created.ID, nil
	})
	return created, res, err
}

// UpdateTeacherName renames a teacher.
func (s *Service) UpdateTeacherName(ctx context.Context, id, name string) (Teacher, Result, error) {
	return s.updateTeacher(ctx, "update_teacher_name", id, func(tx Transaction) (Teacher, bool) {
		return tx.UpdateTeacherName(id, name)
	})
}

// AddAssignment adds a (grade, subject) pair to a teacher. Duplicates are ignored.
func (s *Service) AddAssignment(ctx context.Context, teacherID string, grade domain.Grade, subjectID string) (Teacher, Result, error) {
	return s.updateTeacher(ctx, "add_assignment", teacherID, func(tx Transaction) (Teacher, bool) {
		return tx.AddAssignment(teacherID, grade, subjectID)
	})
}

// RemoveAssignment drops a (grade, subject) pair from a teacher.
func (s *Service) RemoveAssignment(ctx context.Context, teacherID string, grade domain.Grade, subjectID string) (Teacher, Result, error) {
	return s.updateTeacher(ctx, "remove_assignment", teacherID, func(tx Transaction) (Teacher, bool) {
		return tx.RemoveAssignment(teacherID, grade, subjectID)
	})
}

// ClearAssignments removes every assignment from a teacher.
func (s *Service) ClearAssignments(ctx context.Context, teacherID string) (Teacher, Result, error) {
	return s.updateTeacher(ctx, "clear_assignments", teacherID, func(tx Transaction) (Teacher, bool) {
		return tx.ClearAssignments(teacherID)
	})
}

func (s *Service) updateTeacher(ctx context.Context, name, id string, apply func(Transaction) (Teacher, bool)) (Teacher, Result, error) {
	var updated Teacher
	res, err := s.run(ctx, operation{name, domain.EntityTeacher}, func(tx Transaction) (string, error) {
		var ok bool
		if updated, ok = apply(tx); !ok {
			return id, ErrNotFound{Entity: domain.EntityTeacher, ID: id}
		}
		return id, nil
	})
	return updated, res, err
}

// RemoveTeacher deletes the teacher record only. Schedule entries that
// reference it are kept; use RemoveTeacherCascade to purge them too.
func (s *Service) RemoveTeacher(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, operation{"remove_teacher", domain.EntityTeacher}, func(tx Transaction) (string, error) {
		if !tx.RemoveTeacher(id) {
			return id, ErrNotFound{Entity: domain.EntityTeacher, ID: id}
		}
		return id, nil
	})
}

// RemoveTeacherCascade purges the teacher's schedule entries and then deletes
// the teacher, committing both steps together.
func (s *Service) RemoveTeacherCascade(ctx context.Context, id string) (int, Result, error) {
	var removed int
	res, err := s.run(ctx, operation{"remove_teacher_cascade", domain.EntityTeacher}, func(tx Transaction) (string, error) {
		if _, ok := tx.Snapshot().FindTeacher(id); !ok {
			return id, ErrNotFound{Entity: domain.EntityTeacher, ID: id}
		}
		removed = tx.RemoveEntriesByTeacher(id)
		tx.RemoveTeacher(id)
		return id, nil
	})
	return removed, res, err
}

// LoadTeachers replaces the teacher collection wholesale.
func (s *Service) LoadTeachers(ctx context.Context, teachers []Teacher) (Result, error) {
	return s.run(ctx, operation{"load_teachers", domain.EntityTeacher}, func(tx Transaction) (string, error) {
		tx.LoadTeachers(teachers)
		return "", nil
	})
}

// ResetTeachers empties the teacher collection.
func (s *Service) ResetTeachers(ctx context.Context) (Result, error) {
	return s.run(ctx, operation{"reset_teachers", domain.EntityTeacher}, func(tx Transaction) (string, error) {
		tx.ResetTeachers()
		return "", nil
	})
}

// AddEntry places a lesson and returns it with its generated id. Occupied
// slots are accepted; the resulting overlap is reported as a conflict.
func (s *Service) AddEntry(ctx context.Context, entry ScheduleEntry) (ScheduleEntry, Result, error) {
	var created ScheduleEntry
	res, err := s.run(ctx, operation{"add_entry", domain.EntityScheduleEntry}, func(tx Transaction) (string, error) {
		created = tx.AddEntry(entry)
		return created.ID, nil
	})
	return created, res, err
}

// UpdateEntry mutates a schedule entry using the provided mutator.
func (s *Service) UpdateEntry(ctx context.Context, id string, mutator func(*ScheduleEntry)) (ScheduleEntry, Result, error) {
	var updated ScheduleEntry
	res, err := s.run(ctx, operation{"update_entry", domain.EntityScheduleEntry}, func(tx Transaction) (string, error) {
		var ok bool
		if updated, ok = tx.UpdateEntry(id, mutator); !ok {
			return id, ErrNotFound{Entity: domain.EntityScheduleEntry, ID: id}
		}
		return id, nil
	})
	return updated, res, err
}

// RemoveEntry deletes a schedule entry.
func (s *Service) RemoveEntry(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, operation{"remove_entry", domain.EntityScheduleEntry}, func(tx Transaction) (string, error) {
		if !tx.RemoveEntry(id) {
			return id, ErrNotFound{Entity: domain.EntityScheduleEntry, ID: id}
		}
		return id, nil
	})
}

// RemoveEntriesByTeacher deletes every entry taught by teacherID.
func (s *Service) RemoveEntriesByTeacher(ctx context.Context, teacherID string) (int, Result, error) {
	var removed int
	res, err := s.run(ctx, operation{"remove_entries_by_teacher", domain.EntityScheduleEntry}, func(tx Transaction) (string, error) {
		removed = tx.RemoveEntriesByTeacher(teacherID)
		return teacherID, nil
	})
	return removed, res, err
}

// ClearSchedule removes every entry; the conflict set becomes empty.
func (s *Service) ClearSchedule(ctx context.Context) (int, Result, error) {
	var removed int
	res, err := s.run(ctx, operation{"clear_schedule", domain.EntityScheduleEntry}, func(tx Transaction) (string, error) {
		removed = tx.ClearSchedule()
		return "", nil
	})
	return removed, res, err
}

// LoadSchedule replaces the schedule wholesale and recomputes conflicts.
func (s *Service) LoadSchedule(ctx context.Context, entries []ScheduleEntry) (Result, error) {
	return s.run(ctx, operation{"load_schedule", domain.EntityScheduleEntry}, func(tx Transaction) (string, error) {
		tx.LoadSchedule(entries)
		return "", nil
	})
}
