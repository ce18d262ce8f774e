package server

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/hollyoak/almanac/internal/clock"
	"github.com/hollyoak/almanac/internal/handler"
	"github.com/hollyoak/almanac/internal/middleware"
	"github.com/hollyoak/almanac/internal/store"
)

type Server struct {
	db          *sql.DB
	entryH      *handler.EntryHandler
	instanceH   *handler.InstanceHandler
	completionH *handler.CompletionHandler
	logger      *slog.Logger
}

func New(db *sql.DB, clk clock.Clock, loc *time.Location, horizonDays int, logger *slog.Logger) *Server {
	entryStore := store.NewEntryStore(db)
	specificsStore := store.NewSpecificsStore(db)
	completionStore := store.NewCompletionStore(db)

	return &Server{
		db:          db,
		entryH:      handler.NewEntryHandler(entryStore, specificsStore, completionStore, clk, loc, horizonDays, logger.With("component", "entries")),
		instanceH:   handler.NewInstanceHandler(entryStore, specificsStore, loc, logger.With("component", "instances")),
		completionH: handler.NewCompletionHandler(entryStore, specificsStore, completionStore, clk, logger.With("component", "completions")),
		logger:      logger,
	}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /api/entries", s.entryH.Create)
	mux.HandleFunc("GET /api/entries", s.entryH.List)
	mux.HandleFunc("GET /api/entries/{id}", s.entryH.Get)
	mux.HandleFunc("PATCH /api/entries/{id}", s.entryH.Update)
	mux.HandleFunc("DELETE /api/entries/{id}", s.entryH.Delete)
	mux.HandleFunc("GET /api/entries/{id}/periods", s.entryH.Periods)
	mux.HandleFunc("POST /api/entries/{id}/split", s.entryH.Split)

	mux.HandleFunc("GET /api/entries/{id}/instances/{recurrence}/{index}", s.instanceH.Get)
	mux.HandleFunc("PUT /api/entries/{id}/instances/{recurrence}/{index}/skip", s.instanceH.SetSkip)
	mux.HandleFunc("PUT /api/entries/{id}/instances/{recurrence}/{index}/duration", s.instanceH.SetDuration)
	mux.HandleFunc("PUT /api/entries/{id}/instances/{recurrence}/{index}/note", s.instanceH.SetNote)
	mux.HandleFunc("PUT /api/entries/{id}/instances/{recurrence}/{index}/delegate", s.instanceH.SetDelegation)
	mux.HandleFunc("PUT /api/entries/{id}/instances/{recurrence}/{index}/start", s.instanceH.SetStart)

	mux.HandleFunc("POST /api/entries/{id}/completions", s.completionH.Create)
	mux.HandleFunc("GET /api/entries/{id}/completions", s.completionH.List)
	mux.HandleFunc("DELETE /api/entries/{id}/completions/{recurrence}/{index}", s.completionH.Delete)

	return middleware.RequestLogger(s.logger)(mux)
}
