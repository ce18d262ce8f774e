package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hollyoak/almanac/internal/clock"
	"github.com/hollyoak/almanac/internal/model"
	"github.com/hollyoak/almanac/internal/schedule"
	"github.com/hollyoak/almanac/internal/store"
)

// InstanceHandler manages the per-instance overrides of an entry: skip,
// duration, note, delegation, and start time.
type InstanceHandler struct {
	entries   *store.EntryStore
	specifics *store.SpecificsStore
	loc       *time.Location
	logger    *slog.Logger
}

func NewInstanceHandler(es *store.EntryStore, ss *store.SpecificsStore, loc *time.Location, logger *slog.Logger) *InstanceHandler {
	return &InstanceHandler{entries: es, specifics: ss, loc: loc, logger: logger}
}

// instanceView is the fully resolved state of one instance.
type instanceView struct {
	Period      schedule.TimePeriod `json:"period"`
	Responsible []string            `json:"responsible"`
	Delegated   bool                `json:"delegated"`
	Skipped     bool                `json:"skipped"`
	Note        string              `json:"note,omitempty"`
}

func (h *InstanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, recurrenceID, instanceIndex, ok := h.lookup(w, r)
	if !ok {
		return
	}

	specs, err := h.specifics.LoadForEntry(entry.ID)
	if err != nil {
		h.logger.Error("load specifics", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load overrides")
		return
	}

	period, found := schedule.FindTimePeriod(entry, specs, recurrenceID, instanceIndex, true)
	if !found {
		writeError(w, http.StatusNotFound, "instance not found")
		return
	}

	view := instanceView{
		Period:      period,
		Responsible: schedule.ResponsibleFor(entry, specs, recurrenceID, instanceIndex),
		Skipped:     schedule.IsInstanceSkipped(specs, recurrenceID, instanceIndex),
	}
	_, view.Delegated = schedule.FindDelegation(specs, recurrenceID, instanceIndex)
	if note, ok := schedule.InstanceNote(specs, recurrenceID, instanceIndex); ok {
		view.Note = note
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *InstanceHandler) SetSkip(w http.ResponseWriter, r *http.Request) {
	entry, recurrenceID, instanceIndex, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Skip bool `json:"skip"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.specifics.SetSkip(entry.ID, recurrenceID, instanceIndex, req.Skip); err != nil {
		h.logger.Error("set skip", "entry", entry.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set skip")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InstanceHandler) SetDuration(w http.ResponseWriter, r *http.Request) {
	entry, recurrenceID, instanceIndex, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		DurationSeconds *int64 `json:"duration_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.specifics.SetDuration(entry.ID, recurrenceID, instanceIndex, req.DurationSeconds); err != nil {
		if errors.Is(err, store.ErrInvalidDuration) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("set duration", "entry", entry.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set duration")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InstanceHandler) SetNote(w http.ResponseWriter, r *http.Request) {
	entry, recurrenceID, instanceIndex, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Note *string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.specifics.SetNote(entry.ID, recurrenceID, instanceIndex, req.Note); err != nil {
		h.logger.Error("set note", "entry", entry.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set note")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDelegation sets the responsible override for one instance. A non-null
// empty list delegates to nobody; null removes the delegation.
func (h *InstanceHandler) SetDelegation(w http.ResponseWriter, r *http.Request) {
	entry, recurrenceID, instanceIndex, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Responsible []string `json:"responsible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := h.specifics.SetResponsible(entry.ID, recurrenceID, instanceIndex, req.Responsible); err != nil {
		h.logger.Error("set delegation", "entry", entry.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set delegation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InstanceHandler) SetStart(w http.ResponseWriter, r *http.Request) {
	entry, recurrenceID, instanceIndex, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req struct {
		Start *string `json:"start"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var start *time.Time
	if req.Start != nil {
		t, err := clock.ParseInstant(*req.Start, h.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		start = &t
	}

	if err := h.specifics.SetStart(entry.ID, recurrenceID, instanceIndex, start); err != nil {
		if errors.Is(err, schedule.ErrStartBeforePrevious) || errors.Is(err, schedule.ErrStartAfterNext) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("set start", "entry", entry.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set start")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InstanceHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.CalendarEntry, int, int, bool) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, 0, 0, false
	}
	recurrenceID, err := pathInt(r, "recurrence")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recurrence id")
		return nil, 0, 0, false
	}
	instanceIndex, err := pathInt(r, "index")
	if err != nil || instanceIndex < 0 {
		writeError(w, http.StatusBadRequest, "invalid instance index")
		return nil, 0, 0, false
	}

	entry, err := h.entries.GetByID(id)
	if err != nil {
		h.logger.Error("get entry", "entry", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get entry")
		return nil, 0, 0, false
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return nil, 0, 0, false
	}
	if _, ok := entry.Recurrence(recurrenceID); !ok {
		writeError(w, http.StatusNotFound, "recurrence not found")
		return nil, 0, 0, false
	}
	return entry, recurrenceID, instanceIndex, true
}
