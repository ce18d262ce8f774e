package model

import "time"

// InstanceSpecifics is a sparse per-instance exception for one occurrence of
// a recurrence. Only instances that carry at least one override have a row.
// A non-nil empty Responsible slice means "delegated to nobody", which is a
// distinct state from nil ("use the default").
type InstanceSpecifics struct {
	EntryID       int64      `json:"entry_id"`
	RecurrenceID  int        `json:"recurrence_id"`
	InstanceIndex int        `json:"instance_index"`
	Skip          bool       `json:"skip"`
	Duration      *int64     `json:"duration_seconds,omitempty"`
	Responsible   []string   `json:"responsible,omitempty"`
	Note          *string    `json:"note,omitempty"`
	Start         *time.Time `json:"start,omitempty"`
}

// Empty reports whether the row carries no override at all and can be pruned.
func (s InstanceSpecifics) Empty() bool {
	return !s.Skip && s.Duration == nil && s.Responsible == nil && s.Note == nil && s.Start == nil
}

// ChoreCompletion records that a user completed one instance of a Chore
// entry. At most one completion exists per (entry, recurrence, instance).
type ChoreCompletion struct {
	ID            int64     `json:"id"`
	EntryID       int64     `json:"entry_id"`
	RecurrenceID  int       `json:"recurrence_id"`
	InstanceIndex int       `json:"instance_index"`
	CompletedBy   string    `json:"completed_by"`
	CompletedAt   time.Time `json:"completed_at"`
}
