package domain

import (
	"context"
	"encoding/json"
	"fmt"
)

// Transaction exposes the mutations a store must support within an atomic
// scope. Operations are total: an unknown id yields false rather than an error.
type Transaction interface {
	Snapshot() TransactionView

	ToggleGrade(grade Grade) (GradeSettings, bool)
	SetClassCount(grade Grade, count int) (GradeSettings, bool)
	AddSubject(name, color string) Subject
	UpdateSubject(id string, mutator func(*Subject)) (Subject, bool)
	RemoveSubject(id string) bool
	LoadSettings(grades []GradeSettings, subjects []Subject)
	ResetSettings()

	AddTeacher(name string) Teacher
	UpdateTeacherName(id, name string) (Teacher, bool)
	RemoveTeacher(id string) bool
	AddAssignment(teacherID string, grade Grade, subjectID string) (Teacher, bool)
	RemoveAssignment(teacherID string, grade Grade, subjectID string) (Teacher, bool)
	ClearAssignments(teacherID string) (Teacher, bool)
	LoadTeachers(teachers []Teacher)
	ResetTeachers()

	AddEntry(entry ScheduleEntry) ScheduleEntry
	UpdateEntry(id string, mutator func(*ScheduleEntry)) (ScheduleEntry, bool)
	RemoveEntry(id string) bool
	RemoveEntriesByTeacher(teacherID string) int
	ClearSchedule() int
	LoadSchedule(entries []ScheduleEntry)
}

// TransactionView provides read-only access to a consistent state snapshot.
type TransactionView interface {
	ListGrades() []GradeSettings
	FindGrade(grade Grade) (GradeSettings, bool)
	ListSubjects() []Subject
	FindSubject(id string) (Subject, bool)
	ListTeachers() []Teacher
	FindTeacher(id string) (Teacher, bool)
	ListSchedule() []ScheduleEntry
	FindEntry(id string) (ScheduleEntry, bool)
}

// Bucket names a persisted slot. Each store collection is written to its own bucket.
type Bucket string

// Persisted bucket names.
const (
	BucketSettings Bucket = "subject-teacher-settings"
	BucketTeachers Bucket = "subject-teacher-teachers"
	BucketSchedule Bucket = "subject-teacher-schedule"
)

// AllBuckets lists every bucket in canonical order.
func AllBuckets() []Bucket {
	return []Bucket{BucketSettings, BucketTeachers, BucketSchedule}
}

// Bucket returns the persistence bucket holding records of entity type t.
func (t EntityType) Bucket() Bucket {
	switch t {
	case EntityTeacher:
		return BucketTeachers
	case EntityScheduleEntry:
		return BucketSchedule
	default:
		return BucketSettings
	}
}

// SettingsSnapshot is the persisted form of the settings bucket.
type SettingsSnapshot struct {
	Grades   []GradeSettings `json:"grades"`
	Subjects []Subject       `json:"subjects"`
}

// Snapshot is the full persisted state. A nil Settings means the settings
// bucket was absent and defaults apply.
type Snapshot struct {
	Settings *SettingsSnapshot `json:"settings,omitempty"`
	Teachers []Teacher         `json:"teachers"`
	Schedule []ScheduleEntry   `json:"schedule"`
}

// EncodeBucket serialises the part of snapshot stored under bucket.
func EncodeBucket(snapshot Snapshot, bucket Bucket) ([]byte, error) {
	var value any
	switch bucket {
	case BucketSettings:
		settings := snapshot.Settings
		if settings == nil {
			settings = &SettingsSnapshot{Grades: DefaultGrades(), Subjects: DefaultSubjects()}
		}
		value = settings
	case BucketTeachers:
		value = nonNil(snapshot.Teachers)
	case BucketSchedule:
		value = nonNil(snapshot.Schedule)
	default:
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", bucket, err)
	}
	return payload, nil
}

// DecodeBucket populates the part of snapshot stored under bucket.
func DecodeBucket(snapshot *Snapshot, bucket Bucket, payload []byte) error {
	var err error
	switch bucket {
	case BucketSettings:
		var settings SettingsSnapshot
		if err = json.Unmarshal(payload, &settings); err == nil {
			snapshot.Settings = &settings
		}
	case BucketTeachers:
		err = json.Unmarshal(payload, &snapshot.Teachers)
	case BucketSchedule:
		err = json.Unmarshal(payload, &snapshot.Schedule)
	default:
		return fmt.Errorf("unknown bucket %q", bucket)
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}

// SnapshotSink is a durable backend for the three buckets. Save writes only
// the listed buckets; an empty list writes all of them.
type SnapshotSink interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot, buckets []Bucket) error
	Close() error
}

// ExportSnapshot is the data handed to exporters. Grades holds only enabled grades.
type ExportSnapshot struct {
	Schedule []ScheduleEntry `json:"schedule"`
	Teachers []Teacher       `json:"teachers"`
	Subjects []Subject       `json:"subjects"`
	Grades   []GradeSettings `json:"grades"`
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
