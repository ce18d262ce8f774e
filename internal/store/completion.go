package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hollyoak/almanac/internal/model"
)

type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.ChoreCompletion, error) {
	var c model.ChoreCompletion
	err := scanner.Scan(
		&c.ID, &c.EntryID, &c.RecurrenceID, &c.InstanceIndex,
		&c.CompletedBy, &c.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const completionCols = `id, entry_id, recurrence_id, instance_index, completed_by, completed_at`

func (s *CompletionStore) Get(entryID int64, recurrenceID, instanceIndex int) (*model.ChoreCompletion, error) {
	row := s.db.QueryRow(
		`SELECT `+completionCols+` FROM chore_completions WHERE entry_id = ? AND recurrence_id = ? AND instance_index = ?`,
		entryID, recurrenceID, instanceIndex,
	)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

func (s *CompletionStore) Create(entryID int64, recurrenceID, instanceIndex int, completedBy string, completedAt time.Time) (*model.ChoreCompletion, error) {
	result, err := s.db.Exec(
		`INSERT INTO chore_completions (entry_id, recurrence_id, instance_index, completed_by, completed_at) VALUES (?, ?, ?, ?, ?)`,
		entryID, recurrenceID, instanceIndex, completedBy, completedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+completionCols+` FROM chore_completions WHERE id = ?`, id)
	c, err := scanCompletion(row)
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

func (s *CompletionStore) Delete(entryID int64, recurrenceID, instanceIndex int) error {
	_, err := s.db.Exec(
		`DELETE FROM chore_completions WHERE entry_id = ? AND recurrence_id = ? AND instance_index = ?`,
		entryID, recurrenceID, instanceIndex,
	)
	if err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}

func (s *CompletionStore) ListForEntry(entryID int64) ([]model.ChoreCompletion, error) {
	rows, err := s.db.Query(
		`SELECT `+completionCols+` FROM chore_completions WHERE entry_id = ? ORDER BY recurrence_id, instance_index`,
		entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.ChoreCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}
