package schedule

import (
	"time"

	"github.com/hollyoak/almanac/internal/model"
)

// TimePeriod is the resolved (start, end) window for one instance after
// applying overrides. Derived only; never persisted.
type TimePeriod struct {
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	RecurrenceID  int       `json:"recurrence_id"`
	InstanceIndex int       `json:"instance_index"`
}

// cursor walks one recurrence's instances in order. It holds the primed next
// period explicitly so the merge heap can peek without pulling; there is no
// coroutine-style suspension anywhere.
//
// The natural clock (c.natural) always advances via Advance, regardless of
// skips, bounds, or start overrides. Skipped and out-of-bounds instances
// still consume an instance index; a start override changes only the yielded
// start of that one instance.
type cursor struct {
	rec            model.Recurrence
	specs          *Specifics
	noneBefore     *time.Time
	noneAfter      *time.Time
	includeSkipped bool

	natural time.Time
	index   int
	done    bool

	period TimePeriod
	ok     bool
}

func newCursor(entry *model.CalendarEntry, rec model.Recurrence, specs *Specifics, includeSkipped bool) *cursor {
	c := &cursor{
		rec:            rec,
		specs:          specs,
		noneBefore:     entry.NoneBefore,
		noneAfter:      entry.NoneAfter,
		includeSkipped: includeSkipped,
		natural:        rec.FirstStart,
	}
	c.advance()
	return c
}

// advance computes the next yieldable period into c.period, skipping over
// filtered instances. c.ok is false once the recurrence is exhausted.
func (c *cursor) advance() {
	for !c.done {
		start := c.natural
		sp, has := c.specs.lookup(c.rec.ID, c.index)
		if has && sp.Start != nil {
			start = *sp.Start
		}
		if c.noneAfter != nil && start.After(*c.noneAfter) {
			// Bounds the whole recurrence, not just this instance.
			c.done = true
			break
		}

		duration := c.rec.Duration()
		if has && sp.Duration != nil {
			duration = time.Duration(*sp.Duration) * time.Second
		}

		visible := c.noneBefore == nil || !start.Before(*c.noneBefore)
		if has && sp.Skip && !c.includeSkipped {
			visible = false
		}

		index := c.index
		c.index++
		if next, more := Advance(c.natural, c.rec.Kind); more {
			c.natural = next
		} else {
			c.done = true
		}

		if visible {
			c.period = TimePeriod{
				Start:         start,
				End:           start.Add(duration),
				RecurrenceID:  c.rec.ID,
				InstanceIndex: index,
			}
			c.ok = true
			return
		}
	}
	c.ok = false
}
