package clock

import (
	"fmt"
	"time"
)

// Clock provides the current time. The scheduling core never calls
// time.Now directly; callers inject a Clock so tests can pin the instant.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// System returns a Clock reporting wall-clock time in loc. A nil location
// falls back to the local zone.
func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Fixed returns a Clock frozen at t, for tests.
func Fixed(t time.Time) Clock {
	return fixedClock{t: t}
}

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time {
	return c.t
}

// naiveLayouts are the accepted forms for timestamps arriving without zone
// information (HTML datetime inputs and the like).
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseInstant parses value as either an RFC 3339 timestamp or a naive
// timestamp; naive values get loc attached as-is. That zone attach is the
// extent of timezone handling here: no conversion between zones happens.
func ParseInstant(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
