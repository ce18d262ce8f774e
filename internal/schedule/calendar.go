package schedule

import (
	"fmt"
	"time"

	"github.com/hollyoak/almanac/internal/model"
)

// AddMonths adds n calendar months to t, preserving the day of month. When
// the target month lacks that day (e.g. Jan 31 + 1 month), it keeps walking
// one month at a time in the direction of n's sign until the day exists, so
// Jan 31 + 1 month lands on Mar 31 rather than overflowing into Mar 2.
// n may be negative.
func AddMonths(t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
		n = -n
	}
	year, month, day := t.Date()
	for i := 0; i < n; i++ {
		year, month = stepMonth(year, month, step)
		for day > daysInMonth(year, month) {
			year, month = stepMonth(year, month, step)
		}
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// NthWeekdayOfNextMonth takes the ordinal weekday that t falls on (2nd
// Tuesday, 5th Friday, ...) and returns the same ordinal weekday in the next
// month that has it. Months missing the ordinal are skipped entirely; the
// result is never clamped to a lower ordinal.
func NthWeekdayOfNextMonth(t time.Time) time.Time {
	nth := (t.Day()-1)/7 + 1
	weekday := t.Weekday()
	year, month := t.Year(), t.Month()
	for {
		year, month = stepMonth(year, month, 1)
		first := time.Date(year, month, 1, 0, 0, 0, 0, t.Location()).Weekday()
		day := 1 + int(weekday-first+7)%7 + (nth-1)*7
		if day > daysInMonth(year, month) {
			continue
		}
		return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	}
}

// Advance computes the next occurrence start after start for the given
// recurrence kind. The second return is false when the kind does not repeat.
// An unrecognized kind is a data-model invariant violation; validated
// construction at the store boundary is supposed to make it unreachable, so
// Advance panics rather than guessing.
func Advance(start time.Time, kind model.RecurrenceKind) (time.Time, bool) {
	switch kind {
	case model.OneTime:
		return time.Time{}, false
	case model.Weekly:
		return start.AddDate(0, 0, 7), true
	case model.MonthlyDayOfMonth:
		return AddMonths(start, 1), true
	case model.MonthlyDayOfWeek:
		return NthWeekdayOfNextMonth(start), true
	case model.AnnualDayOfMonth:
		return AddMonths(start, 12), true
	}
	panic(fmt.Sprintf("schedule: unsupported recurrence kind %q", kind))
}

func stepMonth(year int, month time.Month, step int) (int, time.Month) {
	month += time.Month(step)
	if month > time.December {
		return year + 1, time.January
	}
	if month < time.January {
		return year - 1, time.December
	}
	return year, month
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
