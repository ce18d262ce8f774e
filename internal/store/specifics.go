package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hollyoak/almanac/internal/model"
	"github.com/hollyoak/almanac/internal/schedule"
)

// SpecificsStore manages the sparse per-instance override rows. Setters
// upsert the single overridden field and prune the row once every override
// on it is cleared, so only instances with an active override have a row.
type SpecificsStore struct {
	db *sql.DB
}

func NewSpecificsStore(db *sql.DB) *SpecificsStore {
	return &SpecificsStore{db: db}
}

const specificsCols = `entry_id, recurrence_id, instance_index, skip, duration_seconds, responsible, note, start_override`

func scanSpecifics(scanner interface{ Scan(...any) error }) (*model.InstanceSpecifics, error) {
	var sp model.InstanceSpecifics
	var duration sql.NullInt64
	var responsible, note sql.NullString
	var start sql.NullTime

	err := scanner.Scan(
		&sp.EntryID, &sp.RecurrenceID, &sp.InstanceIndex,
		&sp.Skip, &duration, &responsible, &note, &start,
	)
	if err != nil {
		return nil, err
	}

	if duration.Valid {
		sp.Duration = &duration.Int64
	}
	if responsible.Valid {
		if err := json.Unmarshal([]byte(responsible.String), &sp.Responsible); err != nil {
			return nil, fmt.Errorf("decode responsible override: %w", err)
		}
		if sp.Responsible == nil {
			sp.Responsible = []string{}
		}
	}
	if note.Valid {
		sp.Note = &note.String
	}
	if start.Valid {
		t := start.Time
		sp.Start = &t
	}
	return &sp, nil
}

func (s *SpecificsStore) Get(entryID int64, recurrenceID, instanceIndex int) (*model.InstanceSpecifics, error) {
	row := s.db.QueryRow(
		`SELECT `+specificsCols+` FROM instance_specifics WHERE entry_id = ? AND recurrence_id = ? AND instance_index = ?`,
		entryID, recurrenceID, instanceIndex,
	)
	sp, err := scanSpecifics(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get specifics: %w", err)
	}
	return sp, nil
}

func (s *SpecificsStore) ListForEntry(entryID int64) ([]model.InstanceSpecifics, error) {
	rows, err := s.db.Query(
		`SELECT `+specificsCols+` FROM instance_specifics WHERE entry_id = ? ORDER BY recurrence_id, instance_index`,
		entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list specifics: %w", err)
	}
	defer rows.Close()

	var specifics []model.InstanceSpecifics
	for rows.Next() {
		sp, err := scanSpecifics(rows)
		if err != nil {
			return nil, fmt.Errorf("scan specifics: %w", err)
		}
		specifics = append(specifics, *sp)
	}
	return specifics, rows.Err()
}

// LoadForEntry returns the entry's overrides as the lookup view the
// schedule package consumes.
func (s *SpecificsStore) LoadForEntry(entryID int64) (*schedule.Specifics, error) {
	rows, err := s.ListForEntry(entryID)
	if err != nil {
		return nil, err
	}
	return schedule.NewSpecifics(rows), nil
}

func (s *SpecificsStore) SetSkip(entryID int64, recurrenceID, instanceIndex int, skip bool) error {
	err := s.upsert(entryID, recurrenceID, instanceIndex, "skip", skip)
	if err != nil {
		return fmt.Errorf("set skip: %w", err)
	}
	if !skip {
		return s.prune(entryID, recurrenceID, instanceIndex)
	}
	return nil
}

// SetDuration sets or clears (nil) the duration override. Non-positive
// overrides are rejected here so the generator never sees one.
func (s *SpecificsStore) SetDuration(entryID int64, recurrenceID, instanceIndex int, seconds *int64) error {
	if seconds != nil && *seconds <= 0 {
		return ErrInvalidDuration
	}
	var value sql.NullInt64
	if seconds != nil {
		value = sql.NullInt64{Int64: *seconds, Valid: true}
	}
	if err := s.upsert(entryID, recurrenceID, instanceIndex, "duration_seconds", value); err != nil {
		return fmt.Errorf("set duration: %w", err)
	}
	if seconds == nil {
		return s.prune(entryID, recurrenceID, instanceIndex)
	}
	return nil
}

// SetResponsible sets or clears (nil) the responsible override. An empty
// non-nil list is stored as an explicit "delegated to nobody".
func (s *SpecificsStore) SetResponsible(entryID int64, recurrenceID, instanceIndex int, responsible []string) error {
	var value sql.NullString
	if responsible != nil {
		encoded, err := json.Marshal(responsible)
		if err != nil {
			return fmt.Errorf("encode responsible override: %w", err)
		}
		value = sql.NullString{String: string(encoded), Valid: true}
	}
	if err := s.upsert(entryID, recurrenceID, instanceIndex, "responsible", value); err != nil {
		return fmt.Errorf("set responsible: %w", err)
	}
	if responsible == nil {
		return s.prune(entryID, recurrenceID, instanceIndex)
	}
	return nil
}

func (s *SpecificsStore) SetNote(entryID int64, recurrenceID, instanceIndex int, note *string) error {
	var value sql.NullString
	if note != nil {
		value = sql.NullString{String: *note, Valid: true}
	}
	if err := s.upsert(entryID, recurrenceID, instanceIndex, "note", value); err != nil {
		return fmt.Errorf("set note: %w", err)
	}
	if note == nil {
		return s.prune(entryID, recurrenceID, instanceIndex)
	}
	return nil
}

// SetStart sets or clears (nil) the start-time override for one instance.
// A new override must keep the recurrence's own ordering coherent: it is
// validated against both neighboring instances before anything is written.
func (s *SpecificsStore) SetStart(entryID int64, recurrenceID, instanceIndex int, start *time.Time) error {
	if start != nil {
		row := s.db.QueryRow(`SELECT `+entryCols+` FROM calendar_entries WHERE id = ?`, entryID)
		entry, err := scanEntry(row)
		if err == sql.ErrNoRows {
			return fmt.Errorf("entry %d not found", entryID)
		}
		if err != nil {
			return fmt.Errorf("get entry: %w", err)
		}
		specs, err := s.LoadForEntry(entryID)
		if err != nil {
			return err
		}
		if err := schedule.ValidateStartOverride(entry, specs, recurrenceID, instanceIndex, *start); err != nil {
			return err
		}
	}

	var value sql.NullTime
	if start != nil {
		value = sql.NullTime{Time: start.UTC(), Valid: true}
	}
	if err := s.upsert(entryID, recurrenceID, instanceIndex, "start_override", value); err != nil {
		return fmt.Errorf("set start: %w", err)
	}
	if start == nil {
		return s.prune(entryID, recurrenceID, instanceIndex)
	}
	return nil
}

func (s *SpecificsStore) upsert(entryID int64, recurrenceID, instanceIndex int, column string, value any) error {
	// column is always one of our own literals, never caller input.
	_, err := s.db.Exec(
		`INSERT INTO instance_specifics (entry_id, recurrence_id, instance_index, `+column+`) VALUES (?, ?, ?, ?)
		 ON CONFLICT(entry_id, recurrence_id, instance_index) DO UPDATE SET `+column+` = excluded.`+column,
		entryID, recurrenceID, instanceIndex, value,
	)
	return err
}

func (s *SpecificsStore) prune(entryID int64, recurrenceID, instanceIndex int) error {
	_, err := s.db.Exec(
		`DELETE FROM instance_specifics
		 WHERE entry_id = ? AND recurrence_id = ? AND instance_index = ?
		   AND skip = 0 AND duration_seconds IS NULL AND responsible IS NULL AND note IS NULL AND start_override IS NULL`,
		entryID, recurrenceID, instanceIndex,
	)
	if err != nil {
		return fmt.Errorf("prune specifics: %w", err)
	}
	return nil
}
