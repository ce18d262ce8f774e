package model

import "time"

type EntryType string

const (
	EntryEvent    EntryType = "Event"
	EntryChore    EntryType = "Chore"
	EntryReminder EntryType = "Reminder"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryEvent, EntryChore, EntryReminder:
		return true
	}
	return false
}

type RecurrenceKind string

const (
	OneTime           RecurrenceKind = "OneTime"
	Weekly            RecurrenceKind = "Weekly"
	MonthlyDayOfMonth RecurrenceKind = "MonthlyDayOfMonth"
	MonthlyDayOfWeek  RecurrenceKind = "MonthlyDayOfWeek"
	AnnualDayOfMonth  RecurrenceKind = "AnnualDayOfMonth"
)

func (k RecurrenceKind) Valid() bool {
	switch k {
	case OneTime, Weekly, MonthlyDayOfMonth, MonthlyDayOfWeek, AnnualDayOfMonth:
		return true
	}
	return false
}

// Recurrence is one repeating rule within an entry. The ID is stable for the
// lifetime of the entry: assigned at creation, unique within the entry, and
// never reused, so per-instance rows keyed by (recurrence_id, instance_index)
// stay valid across edits.
type Recurrence struct {
	ID              int            `json:"id"`
	Kind            RecurrenceKind `json:"kind"`
	FirstStart      time.Time      `json:"first_start"`
	DurationSeconds int64          `json:"duration_seconds"`
	Responsible     []string       `json:"responsible,omitempty"`
}

func (r Recurrence) Duration() time.Duration {
	return time.Duration(r.DurationSeconds) * time.Second
}

// CalendarEntry is the top-level schedulable item. PreviousEntry and
// NextEntry are weak links formed only by splitting an entry.
type CalendarEntry struct {
	ID            int64        `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Type          EntryType    `json:"type"`
	Recurrences   []Recurrence `json:"recurrences"`
	NoneBefore    *time.Time   `json:"none_before,omitempty"`
	NoneAfter     *time.Time   `json:"none_after,omitempty"`
	Responsible   []string     `json:"responsible"`
	Managers      []string     `json:"managers"`
	PreviousEntry *int64       `json:"previous_entry,omitempty"`
	NextEntry     *int64       `json:"next_entry,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Recurrence returns the recurrence with the given id, if any.
func (e *CalendarEntry) Recurrence(id int) (*Recurrence, bool) {
	for i := range e.Recurrences {
		if e.Recurrences[i].ID == id {
			return &e.Recurrences[i], true
		}
	}
	return nil, false
}
