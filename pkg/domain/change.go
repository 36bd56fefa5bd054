package domain

import "slices"

// Action describes the type of modification performed on an entity.
type Action string

const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	// ActionDelete indicates an entity was deleted.
	ActionDelete Action = "delete"
	// ActionReplace indicates a whole collection was replaced by a load or reset.
	ActionReplace Action = "replace"
)

// Change records a modification applied within a transaction.
type Change struct {
	Entity   EntityType `json:"entity"`
	Action   Action     `json:"action"`
	EntityID string     `json:"entity_id,omitempty"`
}

// Result describes the committed outcome of a transaction.
type Result struct {
	// Changes lists the modifications applied, in order.
	Changes []Change
	// Conflicts is the conflict set after commit.
	Conflicts []Conflict
}

// Changed reports whether the transaction modified any entity.
func (r Result) Changed() bool {
	return len(r.Changes) > 0
}

// Buckets returns the persistence buckets touched by the recorded changes in
// canonical bucket order.
func (r Result) Buckets() []Bucket {
	touched := make(map[Bucket]struct{}, 3)
	for _, c := range r.Changes {
		touched[c.Entity.Bucket()] = struct{}{}
	}
	var out []Bucket
	for _, b := range AllBuckets() {
		if _, ok := touched[b]; ok {
			out = append(out, b)
		}
	}
	return out
}

// TouchesSchedule reports whether any change modified a schedule entry.
func (r Result) TouchesSchedule() bool {
	return slices.ContainsFunc(r.Changes, func(c Change) bool {
		return c.Entity == EntityScheduleEntry
	})
}
