package schedule

import "github.com/hollyoak/almanac/internal/model"

type instanceKey struct {
	recurrenceID  int
	instanceIndex int
}

// Specifics is an in-memory view of one entry's sparse per-instance override
// rows, loaded once at the persistence edge. A nil *Specifics behaves like an
// entry with no overrides.
type Specifics struct {
	byKey map[instanceKey]model.InstanceSpecifics
}

func NewSpecifics(rows []model.InstanceSpecifics) *Specifics {
	s := &Specifics{byKey: make(map[instanceKey]model.InstanceSpecifics, len(rows))}
	for _, row := range rows {
		s.byKey[instanceKey{row.RecurrenceID, row.InstanceIndex}] = row
	}
	return s
}

func (s *Specifics) lookup(recurrenceID, instanceIndex int) (model.InstanceSpecifics, bool) {
	if s == nil {
		return model.InstanceSpecifics{}, false
	}
	row, ok := s.byKey[instanceKey{recurrenceID, instanceIndex}]
	return row, ok
}
