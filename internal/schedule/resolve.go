package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/hollyoak/almanac/internal/model"
)

// Start override validation failures. Both are user-facing: the caller needs
// to know which neighbor bound was violated.
var (
	ErrStartBeforePrevious = errors.New("start override falls before previous instance's start")
	ErrStartAfterNext      = errors.New("start override falls after next instance's start")
)

// ResponsibleFor resolves who is responsible for one instance. Precedence is
// strict, with no merging between layers:
//
//	instance delegation (even an empty list) > recurrence default > entry default
func ResponsibleFor(entry *model.CalendarEntry, specs *Specifics, recurrenceID, instanceIndex int) []string {
	if delegated, ok := FindDelegation(specs, recurrenceID, instanceIndex); ok {
		return delegated
	}
	if rec, ok := entry.Recurrence(recurrenceID); ok && len(rec.Responsible) > 0 {
		return rec.Responsible
	}
	return entry.Responsible
}

// FindDelegation returns the instance-level responsible override, if one is
// set. An empty (non-nil) slice means the instance was delegated to nobody.
func FindDelegation(specs *Specifics, recurrenceID, instanceIndex int) ([]string, bool) {
	sp, ok := specs.lookup(recurrenceID, instanceIndex)
	if !ok || sp.Responsible == nil {
		return nil, false
	}
	return sp.Responsible, true
}

// DurationFor returns the instance's duration: its override when present,
// the recurrence default otherwise. Zero for an unknown recurrence.
func DurationFor(entry *model.CalendarEntry, specs *Specifics, recurrenceID, instanceIndex int) time.Duration {
	if sp, ok := specs.lookup(recurrenceID, instanceIndex); ok && sp.Duration != nil {
		return time.Duration(*sp.Duration) * time.Second
	}
	if rec, ok := entry.Recurrence(recurrenceID); ok {
		return rec.Duration()
	}
	return 0
}

// InstanceNote returns the free-text note attached to an instance, if any.
func InstanceNote(specs *Specifics, recurrenceID, instanceIndex int) (string, bool) {
	sp, ok := specs.lookup(recurrenceID, instanceIndex)
	if !ok || sp.Note == nil {
		return "", false
	}
	return *sp.Note, true
}

// IsInstanceSkipped reports whether an instance is flagged as skipped.
func IsInstanceSkipped(specs *Specifics, recurrenceID, instanceIndex int) bool {
	sp, ok := specs.lookup(recurrenceID, instanceIndex)
	return ok && sp.Skip
}

// ValidateStartOverride checks that moving an instance to start would keep
// the recurrence's own sequence coherent: the new start must fall strictly
// between the (overridden or natural) starts of the neighboring instances.
// Cross-recurrence overlap is fine; only intra-recurrence order is enforced.
func ValidateStartOverride(entry *model.CalendarEntry, specs *Specifics, recurrenceID, instanceIndex int, start time.Time) error {
	if _, ok := FindTimePeriod(entry, specs, recurrenceID, instanceIndex, true); !ok {
		return fmt.Errorf("no instance %d for recurrence %d", instanceIndex, recurrenceID)
	}
	if instanceIndex > 0 {
		prev, ok := FindTimePeriod(entry, specs, recurrenceID, instanceIndex-1, true)
		if ok && !start.After(prev.Start) {
			return ErrStartBeforePrevious
		}
	}
	next, ok := FindTimePeriod(entry, specs, recurrenceID, instanceIndex+1, true)
	if ok && !start.Before(next.Start) {
		return ErrStartAfterNext
	}
	return nil
}
