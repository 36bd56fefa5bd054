package domain

import "fmt"

// ConflictType classifies a scheduling violation.
type ConflictType string

// Conflict kinds reported by the engine.
const (
	// ConflictSameClassSameTime flags two or more lessons in one class slot.
	ConflictSameClassSameTime ConflictType = "same-class-same-time"
	// ConflictSameTeacherSameTime flags a teacher placed in two or more
	// distinct classes during one slot.
	ConflictSameTeacherSameTime ConflictType = "same-teacher-same-time"
)

// Conflict is a derived violation record. It is recomputed wholesale and never
// persisted.
type Conflict struct {
	Type    ConflictType    `json:"type"`
	Entries []ScheduleEntry `json:"entries"`
	Message string          `json:"message"`
}

// Contains reports whether the conflict includes the entry with the given id.
func (c Conflict) Contains(entryID string) bool {
	for _, e := range c.Entries {
		if e.ID == entryID {
			return true
		}
	}
	return false
}

// InvolvesTeacher reports whether any entry in the conflict belongs to teacherID.
func (c Conflict) InvolvesTeacher(teacherID string) bool {
	for _, e := range c.Entries {
		if e.TeacherID == teacherID {
			return true
		}
	}
	return false
}

// Detector reports conflicts of a single kind over a full schedule.
// Implementations must not mutate the input and cannot fail.
type Detector interface {
	Name() string
	Detect(entries []ScheduleEntry) []Conflict
}

// ConflictEngine runs registered detectors in registration order.
type ConflictEngine struct {
	detectors []Detector
}

// NewConflictEngine constructs an engine with no detectors.
func NewConflictEngine() *ConflictEngine {
	return &ConflictEngine{}
}

// NewDefaultConflictEngine returns an engine with the class collision detector
// followed by the teacher collision detector.
func NewDefaultConflictEngine() *ConflictEngine {
	engine := NewConflictEngine()
	engine.Register(ClassCollisionDetector())
	engine.Register(TeacherCollisionDetector())
	return engine
}

// Register appends a detector to the engine.
func (e *ConflictEngine) Register(d Detector) {
	e.detectors = append(e.detectors, d)
}

// Evaluate runs every detector and concatenates their conflicts. The result is
// never nil.
func (e *ConflictEngine) Evaluate(entries []ScheduleEntry) []Conflict {
	out := make([]Conflict, 0)
	for _, d := range e.detectors {
		out = append(out, d.Detect(entries)...)
	}
	return out
}

// DetectConflicts evaluates entries with the default detectors.
func DetectConflicts(entries []ScheduleEntry) []Conflict {
	return NewDefaultConflictEngine().Evaluate(entries)
}

type classSlotKey struct {
	class ClassRef
	slot  Slot
}

type teacherSlotKey struct {
	teacherID string
	slot      Slot
}

type detectorFunc struct {
	name   string
	detect func([]ScheduleEntry) []Conflict
}

func (d detectorFunc) Name() string { return d.name }

func (d detectorFunc) Detect(entries []ScheduleEntry) []Conflict { return d.detect(entries) }

// ClassCollisionDetector groups entries by (grade, class, day, period) and
// emits one conflict per group holding more than one entry.
func ClassCollisionDetector() Detector {
	return detectorFunc{name: string(ConflictSameClassSameTime), detect: detectClassCollisions}
}

// TeacherCollisionDetector groups entries by (teacher, day, period) and emits
// one conflict per group spanning at least two distinct classes. Groups where
// every entry targets the same class are co-teaching and left to the class pass.
func TeacherCollisionDetector() Detector {
	return detectorFunc{name: string(ConflictSameTeacherSameTime), detect: detectTeacherCollisions}
}

func detectClassCollisions(entries []ScheduleEntry) []Conflict {
	keys, groups := groupEntries(entries, func(e ScheduleEntry) classSlotKey {
		return classSlotKey{class: e.Class(), slot: e.Slot()}
	})
	var out []Conflict
	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		out = append(out, Conflict{
			Type:    ConflictSameClassSameTime,
			Entries: group,
			Message: fmt.Sprintf("grade %d class %d %s period %d: %d lessons overlap",
				key.class.Grade, key.class.ClassNumber, key.slot.Day, key.slot.Period, len(group)),
		})
	}
	return out
}

func detectTeacherCollisions(entries []ScheduleEntry) []Conflict {
	keys, groups := groupEntries(entries, func(e ScheduleEntry) teacherSlotKey {
		return teacherSlotKey{teacherID: e.TeacherID, slot: e.Slot()}
	})
	var out []Conflict
	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		classes := make(map[ClassRef]struct{}, len(group))
		for _, e := range group {
			classes[e.Class()] = struct{}{}
		}
		if len(classes) < 2 {
			continue
		}
		out = append(out, Conflict{
			Type:    ConflictSameTeacherSameTime,
			Entries: group,
			Message: fmt.Sprintf("teacher assigned to %d classes on %s period %d",
				len(group), key.slot.Day, key.slot.Period),
		})
	}
	return out
}

// groupEntries buckets entries by key, returning keys in first-seen order.
// Each group is a fresh slice so callers may retain it.
func groupEntries[K comparable](entries []ScheduleEntry, keyOf func(ScheduleEntry) K) ([]K, map[K][]ScheduleEntry) {
	var keys []K
	groups := make(map[K][]ScheduleEntry)
	for _, e := range entries {
		k := keyOf(e)
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], e)
	}
	return keys, groups
}
