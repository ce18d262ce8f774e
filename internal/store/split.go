package store

import (
	"fmt"
	"time"

	"github.com/hollyoak/almanac/internal/model"
	"github.com/hollyoak/almanac/internal/schedule"
)

// splitBuffer keeps the original entry's none-after strictly clear of the
// new entry's none-before so an instance straddling the cutover can never
// surface in both halves.
const splitBuffer = time.Minute

// Split forks an entry at cutover into two linked entries. The original
// keeps everything that resolved to a start before the cutover and is capped
// at cutover minus the buffer; the new entry carries the same recurrence
// definitions bounded below by the cutover, plus every override and
// completion whose resolved period starts at or after it. Concatenating the
// two enumerations reproduces the pre-split stream exactly.
//
// Returns (nil, nil) when the entry does not exist. All writes happen in a
// single transaction; readers never observe a half-split entry.
func (s *EntryStore) Split(entryID int64, cutover time.Time) (*model.CalendarEntry, error) {
	entry, err := s.GetByID(entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	specificsRows, err := NewSpecificsStore(s.db).ListForEntry(entryID)
	if err != nil {
		return nil, err
	}
	completions, err := NewCompletionStore(s.db).ListForEntry(entryID)
	if err != nil {
		return nil, err
	}

	// Resolve every row against the pre-split definitions before anything
	// is mutated. Skipped instances still resolve: their overrides move too.
	specs := schedule.NewSpecifics(specificsRows)
	movesAfter := func(recurrenceID, instanceIndex int) bool {
		period, ok := schedule.FindTimePeriod(entry, specs, recurrenceID, instanceIndex, true)
		return ok && !period.Start.Before(cutover)
	}

	var movedSpecifics []model.InstanceSpecifics
	for _, sp := range specificsRows {
		if movesAfter(sp.RecurrenceID, sp.InstanceIndex) {
			movedSpecifics = append(movedSpecifics, sp)
		}
	}
	var movedCompletions []model.ChoreCompletion
	for _, c := range completions {
		if movesAfter(c.RecurrenceID, c.InstanceIndex) {
			movedCompletions = append(movedCompletions, c)
		}
	}

	newEntry := *entry
	newEntry.NoneBefore = &cutover
	newEntry.PreviousEntry = &entry.ID
	newEntry.NextEntry = nil
	recurrences, responsible, managers, err := encodeEntry(&newEntry)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin split: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO calendar_entries (title, description, type, recurrences, none_before, none_after, responsible, managers, previous_entry) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		newEntry.Title, newEntry.Description, string(newEntry.Type), recurrences,
		nullTime(newEntry.NoneBefore), nullTime(newEntry.NoneAfter), responsible, managers,
		entry.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert split entry: %w", err)
	}
	newID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	capped := cutover.Add(-splitBuffer)
	_, err = tx.Exec(
		`UPDATE calendar_entries SET none_after = ?, next_entry = ?, updated_at = ? WHERE id = ?`,
		capped.UTC(), newID, time.Now().UTC(), entry.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("cap original entry: %w", err)
	}

	for _, sp := range movedSpecifics {
		_, err = tx.Exec(
			`UPDATE instance_specifics SET entry_id = ? WHERE entry_id = ? AND recurrence_id = ? AND instance_index = ?`,
			newID, entry.ID, sp.RecurrenceID, sp.InstanceIndex,
		)
		if err != nil {
			return nil, fmt.Errorf("move specifics: %w", err)
		}
	}
	for _, c := range movedCompletions {
		_, err = tx.Exec(`UPDATE chore_completions SET entry_id = ? WHERE id = ?`, newID, c.ID)
		if err != nil {
			return nil, fmt.Errorf("move completion: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit split: %w", err)
	}
	return s.GetByID(newID)
}
