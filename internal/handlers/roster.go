package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/tribute-engine/pkg/storage"
)

type RosterHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewRosterHandler(log *slog.Logger, storage storage.Storage) *RosterHandler {
	return &RosterHandler{
		log:     log,
		storage: storage,
	}
}

// ServeHTTP serves GET /v1/rosters (name -> filename) and
// GET /v1/rosters/{filename}.
func (h *RosterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	filename := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/rosters"), "/")
	if filename == "" {
		h.handleList(w, r)
		return
	}
	h.handleGet(w, r, ensureJSONExtension(filename))
}

func (h *RosterHandler) handleList(w http.ResponseWriter, r *http.Request) {
	rosters, err := h.storage.ListRosters(r.Context())
	if err != nil {
		h.log.Error("Failed to list rosters", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to list rosters")
		return
	}
	writeJSON(w, h.log, http.StatusOK, rosters)
}

func (h *RosterHandler) handleGet(w http.ResponseWriter, r *http.Request, filename string) {
	if !validFilename(filename) {
		writeError(w, h.log, http.StatusBadRequest, "Invalid filename")
		return
	}

	spec, err := h.storage.GetRoster(r.Context(), filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.log, http.StatusNotFound, "Roster not found")
			return
		}
		h.log.Error("Failed to get roster", "error", err, "filename", filename)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to retrieve roster")
		return
	}
	writeJSON(w, h.log, http.StatusOK, spec)
}

// ResultsHandler serves GET /v1/results from the archive of finished
// simulations, newest first. ?limit= caps the count.
type ResultsHandler struct {
	log     *slog.Logger
	archive storage.Archive
}

func NewResultsHandler(log *slog.Logger, archive storage.Archive) *ResultsHandler {
	return &ResultsHandler{log: log, archive: archive}
}

func (h *ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}
	if h.archive == nil {
		writeError(w, h.log, http.StatusNotFound, "Results archive is not configured")
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if limit == 0 {
		limit = 20
	}

	results, err := h.archive.Recent(r.Context(), limit)
	if err != nil {
		h.log.Error("Failed to read results", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to read results")
		return
	}
	if results == nil {
		results = []storage.Result{}
	}
	writeJSON(w, h.log, http.StatusOK, results)
}
