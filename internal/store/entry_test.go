package store

import (
	"errors"
	"testing"
	"time"

	"github.com/hollyoak/almanac/internal/database"
	"github.com/hollyoak/almanac/internal/model"
)

func setupStores(t *testing.T) (*EntryStore, *SpecificsStore, *CompletionStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewEntryStore(db), NewSpecificsStore(db), NewCompletionStore(db)
}

func sampleEntry() *model.CalendarEntry {
	return &model.CalendarEntry{
		Title:       "Trash night",
		Description: "Bins to the curb",
		Type:        model.EntryChore,
		Recurrences: []model.Recurrence{
			{ID: 0, Kind: model.Weekly, FirstStart: time.Date(2000, 1, 1, 9, 0, 0, 0, time.UTC), DurationSeconds: 3600},
		},
		Responsible: []string{"Kid"},
		Managers:    []string{"Dad"},
	}
}

func TestEntryCRUD(t *testing.T) {
	es, _, _ := setupStores(t)

	entry, err := es.Create(sampleEntry())
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	if entry.Title != "Trash night" {
		t.Errorf("title = %q", entry.Title)
	}
	if len(entry.Recurrences) != 1 || entry.Recurrences[0].Kind != model.Weekly {
		t.Fatalf("recurrences = %+v", entry.Recurrences)
	}
	if !entry.Recurrences[0].FirstStart.Equal(time.Date(2000, 1, 1, 9, 0, 0, 0, time.UTC)) {
		t.Errorf("first_start = %v", entry.Recurrences[0].FirstStart)
	}
	if len(entry.Managers) != 1 || entry.Managers[0] != "Dad" {
		t.Errorf("managers = %v", entry.Managers)
	}

	got, err := es.GetByID(entry.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got.Title != entry.Title {
		t.Errorf("got title = %q", got.Title)
	}

	updated := *got
	updated.Title = "Trash and recycling"
	limit := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	updated.NoneAfter = &limit
	result, err := es.Update(entry.ID, &updated)
	if err != nil {
		t.Fatalf("update entry: %v", err)
	}
	if result.Title != "Trash and recycling" {
		t.Errorf("updated title = %q", result.Title)
	}
	if result.NoneAfter == nil || !result.NoneAfter.Equal(limit) {
		t.Errorf("none_after = %v, want %v", result.NoneAfter, limit)
	}

	entries, err := es.List()
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	deleted, err := es.Delete(entry.ID)
	if err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if !deleted {
		t.Fatal("expected delete to succeed")
	}
	got, err = es.GetByID(entry.ID)
	if err != nil {
		t.Fatalf("get deleted entry: %v", err)
	}
	if got != nil {
		t.Error("expected nil for deleted entry")
	}
}

func TestEntryGetByIDNotFound(t *testing.T) {
	es, _, _ := setupStores(t)

	got, err := es.GetByID(9999)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if got != nil {
		t.Error("expected nil for nonexistent entry")
	}
}

func TestCreateRejectsInvalidEntries(t *testing.T) {
	es, _, _ := setupStores(t)

	tests := []struct {
		name   string
		mutate func(*model.CalendarEntry)
		want   error
	}{
		{"no recurrences", func(e *model.CalendarEntry) { e.Recurrences = nil }, ErrNoRecurrences},
		{"no managers", func(e *model.CalendarEntry) { e.Managers = nil }, ErrNoManagers},
		{"bad type", func(e *model.CalendarEntry) { e.Type = "Appointment" }, ErrInvalidEntryType},
		{"bad kind", func(e *model.CalendarEntry) { e.Recurrences[0].Kind = "Fortnightly" }, ErrInvalidKind},
		{"zero duration", func(e *model.CalendarEntry) { e.Recurrences[0].DurationSeconds = 0 }, ErrInvalidDuration},
		{"negative duration", func(e *model.CalendarEntry) { e.Recurrences[0].DurationSeconds = -60 }, ErrInvalidDuration},
		{"duplicate recurrence ids", func(e *model.CalendarEntry) {
			e.Recurrences = append(e.Recurrences, e.Recurrences[0])
		}, ErrDuplicateRecurrence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := sampleEntry()
			tt.mutate(entry)
			_, err := es.Create(entry)
			if !errors.Is(err, tt.want) {
				t.Errorf("Create error = %v, want %v", err, tt.want)
			}
		})
	}

	entries, _ := es.List()
	if len(entries) != 0 {
		t.Errorf("invalid entries were persisted: %d", len(entries))
	}
}

func TestUpdateRejectsInvalidEntries(t *testing.T) {
	es, _, _ := setupStores(t)

	entry, err := es.Create(sampleEntry())
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	updated := *entry
	updated.Managers = nil
	if _, err := es.Update(entry.ID, &updated); !errors.Is(err, ErrNoManagers) {
		t.Errorf("Update error = %v, want ErrNoManagers", err)
	}

	got, _ := es.GetByID(entry.ID)
	if len(got.Managers) != 1 {
		t.Error("invalid update was persisted")
	}
}

func TestDeleteBlockedByCompletion(t *testing.T) {
	es, _, cs := setupStores(t)

	entry, _ := es.Create(sampleEntry())
	if _, err := cs.Create(entry.ID, 0, 0, "Kid", time.Now()); err != nil {
		t.Fatalf("create completion: %v", err)
	}

	deleted, err := es.Delete(entry.ID)
	if err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if deleted {
		t.Fatal("delete should be refused while completions exist")
	}
	got, _ := es.GetByID(entry.ID)
	if got == nil {
		t.Fatal("entry should still exist")
	}

	// Unmark, then deletion goes through.
	if err := cs.Delete(entry.ID, 0, 0); err != nil {
		t.Fatalf("delete completion: %v", err)
	}
	deleted, err = es.Delete(entry.ID)
	if err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if !deleted {
		t.Error("delete should succeed after completion removed")
	}
}

func TestDeleteBlockedByDelegation(t *testing.T) {
	es, ss, _ := setupStores(t)

	entry, _ := es.Create(sampleEntry())
	if err := ss.SetResponsible(entry.ID, 0, 1, []string{"Aunt"}); err != nil {
		t.Fatalf("set responsible: %v", err)
	}

	deleted, err := es.Delete(entry.ID)
	if err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if deleted {
		t.Fatal("delete should be refused while delegations exist")
	}
}

func TestDeleteCascadesNonBlockingOverrides(t *testing.T) {
	es, ss, _ := setupStores(t)

	entry, _ := es.Create(sampleEntry())
	note := "double-check the lids"
	if err := ss.SetNote(entry.ID, 0, 1, &note); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if err := ss.SetSkip(entry.ID, 0, 2, true); err != nil {
		t.Fatalf("set skip: %v", err)
	}

	deleted, err := es.Delete(entry.ID)
	if err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if !deleted {
		t.Fatal("notes and skips should not block deletion")
	}

	rows, err := ss.ListForEntry(entry.ID)
	if err != nil {
		t.Fatalf("list specifics: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected cascade to remove specifics, got %d rows", len(rows))
	}
}

func TestDeleteNonexistentEntry(t *testing.T) {
	es, _, _ := setupStores(t)

	deleted, err := es.Delete(424242)
	if err != nil {
		t.Fatalf("delete entry: %v", err)
	}
	if deleted {
		t.Error("expected false for nonexistent entry")
	}
}
