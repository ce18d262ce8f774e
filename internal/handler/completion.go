package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hollyoak/almanac/internal/clock"
	"github.com/hollyoak/almanac/internal/model"
	"github.com/hollyoak/almanac/internal/schedule"
	"github.com/hollyoak/almanac/internal/store"
)

type CompletionHandler struct {
	entries     *store.EntryStore
	specifics   *store.SpecificsStore
	completions *store.CompletionStore
	clk         clock.Clock
	logger      *slog.Logger
}

func NewCompletionHandler(es *store.EntryStore, ss *store.SpecificsStore, cs *store.CompletionStore, clk clock.Clock, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{entries: es, specifics: ss, completions: cs, clk: clk, logger: logger}
}

func (h *CompletionHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		RecurrenceID  int    `json:"recurrence_id"`
		InstanceIndex int    `json:"instance_index"`
		CompletedBy   string `json:"completed_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.CompletedBy = strings.TrimSpace(req.CompletedBy)
	if req.CompletedBy == "" {
		writeError(w, http.StatusBadRequest, "completed_by is required")
		return
	}

	entry, err := h.entries.GetByID(id)
	if err != nil {
		h.logger.Error("get entry", "entry", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get entry")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	if entry.Type != model.EntryChore {
		writeError(w, http.StatusBadRequest, "only chores can be completed")
		return
	}

	specs, err := h.specifics.LoadForEntry(entry.ID)
	if err != nil {
		h.logger.Error("load specifics", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load overrides")
		return
	}
	if _, ok := schedule.FindTimePeriod(entry, specs, req.RecurrenceID, req.InstanceIndex, true); !ok {
		writeError(w, http.StatusNotFound, "instance not found")
		return
	}

	existing, err := h.completions.Get(entry.ID, req.RecurrenceID, req.InstanceIndex)
	if err != nil {
		h.logger.Error("get completion", "entry", entry.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check completion")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "instance already completed")
		return
	}

	completion, err := h.completions.Create(entry.ID, req.RecurrenceID, req.InstanceIndex, req.CompletedBy, h.clk.Now())
	if err != nil {
		h.logger.Error("create completion", "entry", entry.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record completion")
		return
	}
	writeJSON(w, http.StatusCreated, completion)
}

func (h *CompletionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	recurrenceID, err := pathInt(r, "recurrence")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid recurrence id")
		return
	}
	instanceIndex, err := pathInt(r, "index")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid instance index")
		return
	}

	if err := h.completions.Delete(id, recurrenceID, instanceIndex); err != nil {
		h.logger.Error("delete completion", "entry", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete completion")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CompletionHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	completions, err := h.completions.ListForEntry(id)
	if err != nil {
		h.logger.Error("list completions", "entry", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list completions")
		return
	}
	if completions == nil {
		completions = []model.ChoreCompletion{}
	}
	writeJSON(w, http.StatusOK, completions)
}
