package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hollyoak/almanac/internal/model"
)

// Validation failures surfaced to callers at the store boundary. Invalid
// entries are rejected here and never persisted.
var (
	ErrNoRecurrences       = errors.New("calendar entry must have at least one recurrence")
	ErrNoManagers          = errors.New("calendar entry must have at least one manager")
	ErrInvalidEntryType    = errors.New("invalid calendar entry type")
	ErrInvalidKind         = errors.New("invalid recurrence kind")
	ErrInvalidDuration     = errors.New("duration must be greater than zero")
	ErrDuplicateRecurrence = errors.New("duplicate recurrence id")
)

type EntryStore struct {
	db *sql.DB
}

func NewEntryStore(db *sql.DB) *EntryStore {
	return &EntryStore{db: db}
}

func validateEntry(e *model.CalendarEntry) error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEntryType, e.Type)
	}
	if len(e.Recurrences) == 0 {
		return ErrNoRecurrences
	}
	if len(e.Managers) == 0 {
		return ErrNoManagers
	}
	seen := make(map[int]bool, len(e.Recurrences))
	for _, rec := range e.Recurrences {
		if !rec.Kind.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidKind, rec.Kind)
		}
		if rec.DurationSeconds <= 0 {
			return fmt.Errorf("recurrence %d: %w", rec.ID, ErrInvalidDuration)
		}
		if seen[rec.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateRecurrence, rec.ID)
		}
		seen[rec.ID] = true
	}
	return nil
}

const entryCols = `id, title, description, type, recurrences, none_before, none_after, responsible, managers, previous_entry, next_entry, created_at, updated_at`

// scanEntry is the single deserialization boundary for entries: the JSON
// columns are decoded into typed values here and nowhere else.
func scanEntry(scanner interface{ Scan(...any) error }) (*model.CalendarEntry, error) {
	var e model.CalendarEntry
	var recurrences, responsible, managers string
	var noneBefore, noneAfter sql.NullTime
	var previous, next sql.NullInt64

	err := scanner.Scan(
		&e.ID, &e.Title, &e.Description, &e.Type, &recurrences,
		&noneBefore, &noneAfter, &responsible, &managers,
		&previous, &next, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(recurrences), &e.Recurrences); err != nil {
		return nil, fmt.Errorf("decode recurrences: %w", err)
	}
	if err := json.Unmarshal([]byte(responsible), &e.Responsible); err != nil {
		return nil, fmt.Errorf("decode responsible: %w", err)
	}
	if err := json.Unmarshal([]byte(managers), &e.Managers); err != nil {
		return nil, fmt.Errorf("decode managers: %w", err)
	}
	if noneBefore.Valid {
		t := noneBefore.Time
		e.NoneBefore = &t
	}
	if noneAfter.Valid {
		t := noneAfter.Time
		e.NoneAfter = &t
	}
	if previous.Valid {
		e.PreviousEntry = &previous.Int64
	}
	if next.Valid {
		e.NextEntry = &next.Int64
	}
	return &e, nil
}

func encodeEntry(e *model.CalendarEntry) (recurrences, responsible, managers string, err error) {
	rec, err := json.Marshal(e.Recurrences)
	if err != nil {
		return "", "", "", fmt.Errorf("encode recurrences: %w", err)
	}
	resp, err := json.Marshal(stringsOrEmpty(e.Responsible))
	if err != nil {
		return "", "", "", fmt.Errorf("encode responsible: %w", err)
	}
	mgr, err := json.Marshal(e.Managers)
	if err != nil {
		return "", "", "", fmt.Errorf("encode managers: %w", err)
	}
	return string(rec), string(resp), string(mgr), nil
}

func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (s *EntryStore) Create(e *model.CalendarEntry) (*model.CalendarEntry, error) {
	if err := validateEntry(e); err != nil {
		return nil, err
	}
	recurrences, responsible, managers, err := encodeEntry(e)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(
		`INSERT INTO calendar_entries (title, description, type, recurrences, none_before, none_after, responsible, managers) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Title, e.Description, string(e.Type), recurrences,
		nullTime(e.NoneBefore), nullTime(e.NoneAfter), responsible, managers,
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *EntryStore) GetByID(id int64) (*model.CalendarEntry, error) {
	row := s.db.QueryRow(`SELECT `+entryCols+` FROM calendar_entries WHERE id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func (s *EntryStore) List() ([]model.CalendarEntry, error) {
	rows, err := s.db.Query(`SELECT ` + entryCols + ` FROM calendar_entries ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []model.CalendarEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *EntryStore) Update(id int64, e *model.CalendarEntry) (*model.CalendarEntry, error) {
	if err := validateEntry(e); err != nil {
		return nil, err
	}
	recurrences, responsible, managers, err := encodeEntry(e)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(
		`UPDATE calendar_entries SET title = ?, description = ?, type = ?, recurrences = ?, none_before = ?, none_after = ?, responsible = ?, managers = ?, updated_at = ? WHERE id = ?`,
		e.Title, e.Description, string(e.Type), recurrences,
		nullTime(e.NoneBefore), nullTime(e.NoneAfter), responsible, managers,
		time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return s.GetByID(id)
}

// Delete removes an entry along with its specifics and completions. It
// refuses, returning false rather than an error, when the entry still has
// completions or per-instance delegations.
func (s *EntryStore) Delete(id int64) (bool, error) {
	var completions int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM chore_completions WHERE entry_id = ?`, id).Scan(&completions)
	if err != nil {
		return false, fmt.Errorf("count completions: %w", err)
	}
	if completions > 0 {
		return false, nil
	}

	var delegations int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM instance_specifics WHERE entry_id = ? AND responsible IS NOT NULL`, id).Scan(&delegations)
	if err != nil {
		return false, fmt.Errorf("count delegations: %w", err)
	}
	if delegations > 0 {
		return false, nil
	}

	result, err := s.db.Exec(`DELETE FROM calendar_entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
