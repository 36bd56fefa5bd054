package core

import (
	"fmt"

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
	// Result aliases domain.Result returned by every mutation.
	Result = domain.Result
	// Transaction aliases domain.Transaction.
	Transaction = domain.Transaction
	// EntityType aliases domain.EntityType.
	EntityType = domain.EntityType
)

// ErrNotFound is returned when a mutation or lookup targets an unknown record.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
