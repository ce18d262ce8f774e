package schedule

import (
	"container/heap"
	"time"

	"github.com/hollyoak/almanac/internal/model"
)

// Enumerator merges the per-recurrence cursors of an entry into one globally
// start-ordered stream of time periods. The stream can be infinite when the
// entry has no none-after bound, so callers must only ever consume a bounded
// prefix (FirstN, Before, or a bounded Next loop).
type Enumerator struct {
	cursors cursorHeap
}

// Enumerate builds an enumerator over all recurrences of entry. Two calls
// with the same entry state yield identical sequences. Ties on start time go
// to the lower recurrence id; that ordering is part of the contract, not an
// accident of heap layout.
func Enumerate(entry *model.CalendarEntry, specs *Specifics, includeSkipped bool) *Enumerator {
	e := &Enumerator{}
	for _, rec := range entry.Recurrences {
		c := newCursor(entry, rec, specs, includeSkipped)
		if c.ok {
			e.cursors = append(e.cursors, c)
		}
	}
	heap.Init(&e.cursors)
	return e
}

// Next pulls the earliest pending period. It returns false once every
// recurrence is exhausted; unbounded entries never return false.
func (e *Enumerator) Next() (TimePeriod, bool) {
	if len(e.cursors) == 0 {
		return TimePeriod{}, false
	}
	c := e.cursors[0]
	period := c.period
	c.advance()
	if c.ok {
		heap.Fix(&e.cursors, 0)
	} else {
		heap.Pop(&e.cursors)
	}
	return period, true
}

// FirstN collects up to n periods from the front of the stream.
func (e *Enumerator) FirstN(n int) []TimePeriod {
	var periods []TimePeriod
	for len(periods) < n {
		p, ok := e.Next()
		if !ok {
			break
		}
		periods = append(periods, p)
	}
	return periods
}

// Before collects every period starting strictly before t.
func (e *Enumerator) Before(t time.Time) []TimePeriod {
	var periods []TimePeriod
	for {
		p, ok := e.Next()
		if !ok || !p.Start.Before(t) {
			return periods
		}
		periods = append(periods, p)
	}
}

// FindTimePeriod resolves the period for one (recurrence, instance) pair.
// Only that recurrence's cursor is walked, so the search is bounded even on
// unbounded entries. The second return is false when the recurrence does not
// exist, the index is out of bounds, or the instance is skipped and
// includeSkipped is unset.
func FindTimePeriod(entry *model.CalendarEntry, specs *Specifics, recurrenceID, instanceIndex int, includeSkipped bool) (TimePeriod, bool) {
	rec, ok := entry.Recurrence(recurrenceID)
	if !ok {
		return TimePeriod{}, false
	}
	c := newCursor(entry, *rec, specs, includeSkipped)
	for c.ok {
		if c.period.InstanceIndex == instanceIndex {
			return c.period, true
		}
		if c.period.InstanceIndex > instanceIndex {
			break
		}
		c.advance()
	}
	return TimePeriod{}, false
}

type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	if h[i].period.Start.Equal(h[j].period.Start) {
		return h[i].period.RecurrenceID < h[j].period.RecurrenceID
	}
	return h[i].period.Start.Before(h[j].period.Start)
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) { *h = append(*h, x.(*cursor)) }

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}
