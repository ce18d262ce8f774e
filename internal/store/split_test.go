package store

import (
	"testing"
	"time"

	"github.com/hollyoak/almanac/internal/schedule"
)

// Weekly from 2000-01-01 09:00 UTC: instance n starts jan1 + 7n days.
func instanceStart(n int) time.Time {
	return time.Date(2000, 1, 1, 9, 0, 0, 0, time.UTC).AddDate(0, 0, 7*n)
}

func TestSplitFidelity(t *testing.T) {
	es, ss, _ := setupStores(t)
	entry, _ := es.Create(sampleEntry())

	before := schedule.Enumerate(entry, nil, false).FirstN(6)

	cutover := instanceStart(3)
	newEntry, err := es.Split(entry.ID, cutover)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if newEntry == nil {
		t.Fatal("expected a new entry")
	}

	original, _ := es.GetByID(entry.ID)
	origSpecs, _ := ss.LoadForEntry(original.ID)
	newSpecs, _ := ss.LoadForEntry(newEntry.ID)

	head := schedule.Enumerate(original, origSpecs, false).Before(cutover.AddDate(1, 0, 0))
	tail := schedule.Enumerate(newEntry, newSpecs, false).FirstN(6 - len(head))

	combined := append(head, tail...)
	if len(combined) != len(before) {
		t.Fatalf("got %d periods after split, want %d", len(combined), len(before))
	}
	for i := range before {
		if !combined[i].Start.Equal(before[i].Start) {
			t.Errorf("period[%d].Start = %v, want %v", i, combined[i].Start, before[i].Start)
		}
		if combined[i].InstanceIndex != before[i].InstanceIndex {
			t.Errorf("period[%d].InstanceIndex = %d, want %d", i, combined[i].InstanceIndex, before[i].InstanceIndex)
		}
	}

	// The halves are cleanly partitioned around the cutover.
	if len(head) != 3 {
		t.Errorf("original yields %d periods, want 3", len(head))
	}
	if len(tail) > 0 && tail[0].Start.Before(cutover) {
		t.Errorf("new entry yields %v before cutover", tail[0].Start)
	}
	if len(tail) > 0 && tail[0].InstanceIndex != 3 {
		t.Errorf("new entry first index = %d, want 3", tail[0].InstanceIndex)
	}
}

func TestSplitMovesRowsAtCutover(t *testing.T) {
	es, ss, cs := setupStores(t)
	entry, _ := es.Create(sampleEntry())

	// Instance 1 stays behind; instances 3 (exactly at cutover) and 4 move.
	note := "stayed home"
	if err := ss.SetNote(entry.ID, 0, 1, &note); err != nil {
		t.Fatalf("set note: %v", err)
	}
	if err := ss.SetSkip(entry.ID, 0, 3, true); err != nil {
		t.Fatalf("set skip: %v", err)
	}
	if _, err := cs.Create(entry.ID, 0, 4, "Kid", time.Now()); err != nil {
		t.Fatalf("create completion: %v", err)
	}
	if _, err := cs.Create(entry.ID, 0, 0, "Mom", time.Now()); err != nil {
		t.Fatalf("create completion: %v", err)
	}

	cutover := instanceStart(3)
	newEntry, err := es.Split(entry.ID, cutover)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	origRows, _ := ss.ListForEntry(entry.ID)
	if len(origRows) != 1 || origRows[0].InstanceIndex != 1 {
		t.Errorf("original specifics = %+v, want only instance 1", origRows)
	}
	newRows, _ := ss.ListForEntry(newEntry.ID)
	if len(newRows) != 1 || newRows[0].InstanceIndex != 3 || !newRows[0].Skip {
		t.Errorf("new specifics = %+v, want skipped instance 3", newRows)
	}

	origCompletions, _ := cs.ListForEntry(entry.ID)
	if len(origCompletions) != 1 || origCompletions[0].InstanceIndex != 0 {
		t.Errorf("original completions = %+v, want only instance 0", origCompletions)
	}
	newCompletions, _ := cs.ListForEntry(newEntry.ID)
	if len(newCompletions) != 1 || newCompletions[0].InstanceIndex != 4 {
		t.Errorf("new completions = %+v, want only instance 4", newCompletions)
	}
}

func TestSplitMovesOverriddenStart(t *testing.T) {
	es, ss, _ := setupStores(t)
	entry, _ := es.Create(sampleEntry())

	// Instance 2 naturally starts before the cutover but its override pushes
	// it past; the override row must follow the resolved start.
	moved := instanceStart(2).AddDate(0, 0, 6)
	if err := ss.SetStart(entry.ID, 0, 2, &moved); err != nil {
		t.Fatalf("set start: %v", err)
	}

	cutover := instanceStart(2).AddDate(0, 0, 3)
	newEntry, err := es.Split(entry.ID, cutover)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	if rows, _ := ss.ListForEntry(entry.ID); len(rows) != 0 {
		t.Errorf("original specifics = %+v, want none", rows)
	}
	newRows, _ := ss.ListForEntry(newEntry.ID)
	if len(newRows) != 1 || newRows[0].InstanceIndex != 2 {
		t.Fatalf("new specifics = %+v, want instance 2", newRows)
	}
	if newRows[0].Start == nil || !newRows[0].Start.Equal(moved) {
		t.Errorf("start override = %v, want %v", newRows[0].Start, moved)
	}
}

func TestSplitLinksAndBounds(t *testing.T) {
	es, _, _ := setupStores(t)
	entry, _ := es.Create(sampleEntry())

	cutover := instanceStart(2)
	newEntry, err := es.Split(entry.ID, cutover)
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	original, _ := es.GetByID(entry.ID)
	if original.NextEntry == nil || *original.NextEntry != newEntry.ID {
		t.Errorf("original.NextEntry = %v, want %d", original.NextEntry, newEntry.ID)
	}
	if newEntry.PreviousEntry == nil || *newEntry.PreviousEntry != original.ID {
		t.Errorf("new.PreviousEntry = %v, want %d", newEntry.PreviousEntry, original.ID)
	}
	if original.NoneAfter == nil || !original.NoneAfter.Equal(cutover.Add(-time.Minute)) {
		t.Errorf("original.NoneAfter = %v, want %v", original.NoneAfter, cutover.Add(-time.Minute))
	}
	if newEntry.NoneBefore == nil || !newEntry.NoneBefore.Equal(cutover) {
		t.Errorf("new.NoneBefore = %v, want %v", newEntry.NoneBefore, cutover)
	}
	if newEntry.Title != original.Title || len(newEntry.Recurrences) != len(original.Recurrences) {
		t.Error("new entry should carry the same definition")
	}
}

func TestSplitNotFound(t *testing.T) {
	es, _, _ := setupStores(t)

	newEntry, err := es.Split(424242, time.Now())
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if newEntry != nil {
		t.Errorf("expected nil for nonexistent entry, got %+v", newEntry)
	}
}
