package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/hollyoak/almanac/internal/model"
)

func TestResponsibleForEntryDefault(t *testing.T) {
	entry := testEntry(weeklyRec(0, jan1))
	entry.Responsible = []string{"Mom", "Dad"}

	got := ResponsibleFor(entry, nil, 0, 0)
	if len(got) != 2 || got[0] != "Mom" || got[1] != "Dad" {
		t.Errorf("ResponsibleFor = %v, want entry default", got)
	}
}

func TestResponsibleForRecurrenceDefault(t *testing.T) {
	rec := weeklyRec(0, jan1)
	rec.Responsible = []string{"Kid"}
	entry := testEntry(rec)
	entry.Responsible = []string{"Mom", "Dad"}

	got := ResponsibleFor(entry, nil, 0, 3)
	if len(got) != 1 || got[0] != "Kid" {
		t.Errorf("ResponsibleFor = %v, want recurrence default", got)
	}
}

func TestResponsibleForDelegation(t *testing.T) {
	rec := weeklyRec(0, jan1)
	rec.Responsible = []string{"Kid"}
	entry := testEntry(rec)
	entry.Responsible = []string{"Mom", "Dad"}
	specs := NewSpecifics([]model.InstanceSpecifics{
		{EntryID: 1, RecurrenceID: 0, InstanceIndex: 3, Responsible: []string{"Aunt"}},
	})

	got := ResponsibleFor(entry, specs, 0, 3)
	if len(got) != 1 || got[0] != "Aunt" {
		t.Errorf("ResponsibleFor = %v, want delegation", got)
	}
	// Other instances keep the recurrence default.
	if got := ResponsibleFor(entry, specs, 0, 4); len(got) != 1 || got[0] != "Kid" {
		t.Errorf("ResponsibleFor(other) = %v, want recurrence default", got)
	}
}

func TestDelegationToNobody(t *testing.T) {
	// An empty delegation is distinct from no delegation: nobody is
	// responsible, not "fall through to defaults".
	entry := testEntry(weeklyRec(0, jan1))
	entry.Responsible = []string{"Mom"}
	specs := NewSpecifics([]model.InstanceSpecifics{
		{EntryID: 1, RecurrenceID: 0, InstanceIndex: 2, Responsible: []string{}},
	})

	got := ResponsibleFor(entry, specs, 0, 2)
	if got == nil || len(got) != 0 {
		t.Errorf("ResponsibleFor = %v, want empty non-nil list", got)
	}
	delegated, ok := FindDelegation(specs, 0, 2)
	if !ok || len(delegated) != 0 {
		t.Errorf("FindDelegation = %v, %v, want empty delegation present", delegated, ok)
	}
	if _, ok := FindDelegation(specs, 0, 3); ok {
		t.Error("no delegation expected for instance 3")
	}
}

func TestDurationFor(t *testing.T) {
	halfDay := int64(43200)
	entry := testEntry(weeklyRec(0, jan1))
	specs := NewSpecifics([]model.InstanceSpecifics{
		{EntryID: 1, RecurrenceID: 0, InstanceIndex: 1, Duration: &halfDay},
	})

	if got := DurationFor(entry, specs, 0, 0); got != time.Hour {
		t.Errorf("default duration = %v, want 1h", got)
	}
	if got := DurationFor(entry, specs, 0, 1); got != 12*time.Hour {
		t.Errorf("override duration = %v, want 12h", got)
	}
	if got := DurationFor(entry, specs, 9, 0); got != 0 {
		t.Errorf("unknown recurrence duration = %v, want 0", got)
	}
}

func TestInstanceNote(t *testing.T) {
	note := "bring the bins back in"
	specs := NewSpecifics([]model.InstanceSpecifics{
		{EntryID: 1, RecurrenceID: 0, InstanceIndex: 4, Note: &note},
	})

	got, ok := InstanceNote(specs, 0, 4)
	if !ok || got != note {
		t.Errorf("InstanceNote = %q, %v", got, ok)
	}
	if _, ok := InstanceNote(specs, 0, 5); ok {
		t.Error("no note expected for instance 5")
	}
}

func TestIsInstanceSkipped(t *testing.T) {
	specs := NewSpecifics([]model.InstanceSpecifics{
		{EntryID: 1, RecurrenceID: 0, InstanceIndex: 1, Skip: true},
	})

	if !IsInstanceSkipped(specs, 0, 1) {
		t.Error("instance 1 should be skipped")
	}
	if IsInstanceSkipped(specs, 0, 0) {
		t.Error("instance 0 should not be skipped")
	}
	if IsInstanceSkipped(nil, 0, 1) {
		t.Error("nil specifics should report nothing skipped")
	}
}

func TestValidateStartOverride(t *testing.T) {
	entry := testEntry(weeklyRec(0, jan1))

	// Instance 1's neighbors start jan1 and jan15.
	if err := ValidateStartOverride(entry, nil, 0, 1, jan1.AddDate(0, 0, 4)); err != nil {
		t.Errorf("valid override rejected: %v", err)
	}
	if err := ValidateStartOverride(entry, nil, 0, 1, jan1); !errors.Is(err, ErrStartBeforePrevious) {
		t.Errorf("err = %v, want ErrStartBeforePrevious", err)
	}
	if err := ValidateStartOverride(entry, nil, 0, 1, jan1.AddDate(0, 0, 14)); !errors.Is(err, ErrStartAfterNext) {
		t.Errorf("err = %v, want ErrStartAfterNext", err)
	}
}

func TestValidateStartOverrideFirstInstance(t *testing.T) {
	entry := testEntry(weeklyRec(0, jan1))

	// No previous bound for instance 0; it may move arbitrarily early.
	if err := ValidateStartOverride(entry, nil, 0, 0, jan1.AddDate(0, 0, -30)); err != nil {
		t.Errorf("early override on instance 0 rejected: %v", err)
	}
	if err := ValidateStartOverride(entry, nil, 0, 0, jan1.AddDate(0, 0, 8)); !errors.Is(err, ErrStartAfterNext) {
		t.Errorf("err = %v, want ErrStartAfterNext", err)
	}
}

func TestValidateStartOverrideAgainstOverriddenNeighbor(t *testing.T) {
	moved := jan1.AddDate(0, 0, 10)
	entry := testEntry(weeklyRec(0, jan1))
	specs := NewSpecifics([]model.InstanceSpecifics{
		{EntryID: 1, RecurrenceID: 0, InstanceIndex: 1, Start: &moved},
	})

	// Instance 2's previous neighbor now starts jan11, not jan8.
	if err := ValidateStartOverride(entry, specs, 0, 2, jan1.AddDate(0, 0, 9)); !errors.Is(err, ErrStartBeforePrevious) {
		t.Errorf("err = %v, want ErrStartBeforePrevious", err)
	}
	if err := ValidateStartOverride(entry, specs, 0, 2, jan1.AddDate(0, 0, 12)); err != nil {
		t.Errorf("valid override rejected: %v", err)
	}
}

func TestValidateStartOverrideMissingInstance(t *testing.T) {
	entry := testEntry(model.Recurrence{ID: 0, Kind: model.OneTime, FirstStart: jan1, DurationSeconds: 600})

	if err := ValidateStartOverride(entry, nil, 0, 1, jan1.AddDate(0, 0, 1)); err == nil {
		t.Error("expected error for nonexistent instance")
	}
	if err := ValidateStartOverride(entry, nil, 7, 0, jan1); err == nil {
		t.Error("expected error for unknown recurrence")
	}
}
