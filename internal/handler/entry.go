package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hollyoak/almanac/internal/clock"
	"github.com/hollyoak/almanac/internal/model"
	"github.com/hollyoak/almanac/internal/schedule"
	"github.com/hollyoak/almanac/internal/store"
)

// maxPeriods caps one listing request; the underlying stream can be infinite.
const maxPeriods = 500

type EntryHandler struct {
	entries     *store.EntryStore
	specifics   *store.SpecificsStore
	completions *store.CompletionStore
	clk         clock.Clock
	loc         *time.Location
	horizonDays int
	logger      *slog.Logger
}

func NewEntryHandler(es *store.EntryStore, ss *store.SpecificsStore, cs *store.CompletionStore, clk clock.Clock, loc *time.Location, horizonDays int, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{
		entries:     es,
		specifics:   ss,
		completions: cs,
		clk:         clk,
		loc:         loc,
		horizonDays: horizonDays,
		logger:      logger,
	}
}

// entryRequest carries a create or partial update. Nil slices and pointers
// mean "leave unchanged" on update.
type entryRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Type        *model.EntryType   `json:"type"`
	Recurrences []model.Recurrence `json:"recurrences"`
	NoneBefore  *time.Time         `json:"none_before"`
	NoneAfter   *time.Time         `json:"none_after"`
	Responsible []string           `json:"responsible"`
	Managers    []string           `json:"managers"`
}

func (req *entryRequest) applyTo(e *model.CalendarEntry) {
	if req.Title != nil {
		e.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.Type != nil {
		e.Type = *req.Type
	}
	if req.Recurrences != nil {
		e.Recurrences = req.Recurrences
	}
	if req.NoneBefore != nil {
		e.NoneBefore = req.NoneBefore
	}
	if req.NoneAfter != nil {
		e.NoneAfter = req.NoneAfter
	}
	if req.Responsible != nil {
		e.Responsible = req.Responsible
	}
	if req.Managers != nil {
		e.Managers = req.Managers
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, store.ErrNoRecurrences) ||
		errors.Is(err, store.ErrNoManagers) ||
		errors.Is(err, store.ErrInvalidEntryType) ||
		errors.Is(err, store.ErrInvalidKind) ||
		errors.Is(err, store.ErrInvalidDuration) ||
		errors.Is(err, store.ErrDuplicateRecurrence)
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var e model.CalendarEntry
	e.Type = model.EntryEvent
	req.applyTo(&e)
	if e.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	entry, err := h.entries.Create(&e)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("create entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create entry")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entries.List()
	if err != nil {
		h.logger.Error("list entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list entries")
		return
	}
	if entries == nil {
		entries = []model.CalendarEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Update edits an entry. When the entry already has elapsed instances and
// still has upcoming ones, the edit is applied to a fresh entry split off at
// the current instant instead, so the elapsed schedule stays exactly as it
// was recorded. The response carries the entry the edit landed on.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	specs, err := h.specifics.LoadForEntry(entry.ID)
	if err != nil {
		h.logger.Error("load specifics", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load overrides")
		return
	}

	now := h.clk.Now()
	target := entry
	if hasPast, hasFuture := entrySpan(entry, specs, now); hasPast && hasFuture {
		target, err = h.entries.Split(entry.ID, now)
		if err != nil {
			h.logger.Error("split entry", "entry", entry.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to split entry")
			return
		}
	}

	updated := *target
	req.applyTo(&updated)
	if updated.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	result, err := h.entries.Update(target.ID, &updated)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("update entry", "entry", target.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update entry")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}

	deleted, err := h.entries.Delete(entry.ID)
	if err != nil {
		h.logger.Error("delete entry", "entry", entry.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete entry")
		return
	}
	if !deleted {
		writeError(w, http.StatusConflict, "entry has completions or delegations")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EntryHandler) Split(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Cutover string `json:"cutover"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Cutover == "" {
		writeError(w, http.StatusBadRequest, "cutover is required")
		return
	}
	cutover, err := clock.ParseInstant(req.Cutover, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	newEntry, err := h.entries.Split(entry.ID, cutover)
	if err != nil {
		h.logger.Error("split entry", "entry", entry.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to split entry")
		return
	}
	if newEntry == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	writeJSON(w, http.StatusCreated, newEntry)
}

// periodView is one resolved period enriched with override and completion
// state for display.
type periodView struct {
	schedule.TimePeriod
	Responsible []string `json:"responsible"`
	Note        string   `json:"note,omitempty"`
	Skipped     bool     `json:"skipped,omitempty"`
	CompletedBy string   `json:"completed_by,omitempty"`
}

func (h *EntryHandler) Periods(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}

	specs, err := h.specifics.LoadForEntry(entry.ID)
	if err != nil {
		h.logger.Error("load specifics", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load overrides")
		return
	}

	includeSkipped := r.URL.Query().Get("include_skipped") == "true"

	count := maxPeriods
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid count")
			return
		}
		count = min(n, maxPeriods)
	}

	until := h.clk.Now().AddDate(0, 0, h.horizonDays)
	if raw := r.URL.Query().Get("until"); raw != "" {
		t, err := clock.ParseInstant(raw, h.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		until = t
	}

	completedBy := make(map[[2]int]string)
	if entry.Type == model.EntryChore {
		completions, err := h.completions.ListForEntry(entry.ID)
		if err != nil {
			h.logger.Error("list completions", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to list completions")
			return
		}
		for _, c := range completions {
			completedBy[[2]int{c.RecurrenceID, c.InstanceIndex}] = c.CompletedBy
		}
	}

	views := []periodView{}
	enum := schedule.Enumerate(entry, specs, includeSkipped)
	for len(views) < count {
		p, ok := enum.Next()
		if !ok || !p.Start.Before(until) {
			break
		}
		view := periodView{
			TimePeriod:  p,
			Responsible: schedule.ResponsibleFor(entry, specs, p.RecurrenceID, p.InstanceIndex),
			Skipped:     schedule.IsInstanceSkipped(specs, p.RecurrenceID, p.InstanceIndex),
			CompletedBy: completedBy[[2]int{p.RecurrenceID, p.InstanceIndex}],
		}
		if note, ok := schedule.InstanceNote(specs, p.RecurrenceID, p.InstanceIndex); ok {
			view.Note = note
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *EntryHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.CalendarEntry, bool) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	entry, err := h.entries.GetByID(id)
	if err != nil {
		h.logger.Error("get entry", "entry", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get entry")
		return nil, false
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return nil, false
	}
	return entry, true
}

// entrySpan reports whether the entry has any instance starting before now
// and any starting at or after it. The scan stops at the first future
// instance, so it stays bounded even for unbounded entries.
func entrySpan(entry *model.CalendarEntry, specs *schedule.Specifics, now time.Time) (hasPast, hasFuture bool) {
	enum := schedule.Enumerate(entry, specs, true)
	for {
		p, ok := enum.Next()
		if !ok {
			return hasPast, false
		}
		if !p.Start.Before(now) {
			return hasPast, true
		}
		hasPast = true
	}
}
