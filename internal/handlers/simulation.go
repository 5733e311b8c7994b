package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/internal/logger"
	"github.com/jwebster45206/tribute-engine/internal/worker"
	"github.com/jwebster45206/tribute-engine/pkg/catalog"
	"github.com/jwebster45206/tribute-engine/pkg/dice"
	"github.com/jwebster45206/tribute-engine/pkg/narrative"
	"github.com/jwebster45206/tribute-engine/pkg/queue"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
	"github.com/jwebster45206/tribute-engine/pkg/sim"
	"github.com/jwebster45206/tribute-engine/pkg/storage"
)

// NarrativeLog persists the narrative of every simulation.
type NarrativeLog interface {
	narrative.Narrator
	Lines(ctx context.Context, simulationID string, offset, limit int) ([]narrative.Line, error)
	Clear(ctx context.Context, simulationID string) error
}

// Publisher pushes live simulation events to subscribers.
type Publisher interface {
	narrative.Narrator
	PublishRound(ctx context.Context, simulationID string, res sim.StepResult) error
	PublishFinished(ctx context.Context, simulationID string, rows []roster.SummaryRow) error
	PublishDeleted(ctx context.Context, simulationID string) error
	PublishQueued(ctx context.Context, simulationID, requestID string) error
}

// Enqueuer hands requests to the background worker.
type Enqueuer interface {
	EnqueueRequest(ctx context.Context, req *queue.Request) error
}

// SimulationOptions carries the optional collaborators of a SimulationHandler.
type SimulationOptions struct {
	Log       NarrativeLog
	Publisher Publisher
	Archive   storage.Archive
	Locker    worker.Locker
	Queue     Enqueuer
	// NewSource returns the random source for each advance. Defaults to a
	// crypto-seeded source.
	NewSource func() dice.Source
	MaxDraws  int
	// IDs numbers the tributes of created simulations. Share one source per
	// process; a fresh one is created when nil.
	IDs *roster.IDSource
}

type SimulationHandler struct {
	storage   storage.Storage
	catalog   *catalog.Catalog
	ids       *roster.IDSource
	processor *worker.AdvanceProcessor
	opts      SimulationOptions
	logger    *slog.Logger
}

func NewSimulationHandler(logger *slog.Logger, st storage.Storage, c *catalog.Catalog, opts SimulationOptions) *SimulationHandler {
	popts := worker.Options{
		Archive:   opts.Archive,
		Locker:    opts.Locker,
		NewSource: opts.NewSource,
		MaxDraws:  opts.MaxDraws,
	}
	if opts.Log != nil {
		popts.Log = opts.Log
	}
	if opts.Publisher != nil {
		popts.Publisher = opts.Publisher
	}
	ids := opts.IDs
	if ids == nil {
		ids = roster.NewIDSource(1)
	}
	return &SimulationHandler{
		storage:   st,
		catalog:   c,
		ids:       ids,
		processor: worker.NewAdvanceProcessor(st, c, popts, logger),
		opts:      opts,
		logger:    logger,
	}
}

// CreateSimulationRequest defines the request body for starting a simulation.
// Either Tributes or Roster (a roster filename) is required.
type CreateSimulationRequest struct {
	Name     string               `json:"name,omitempty"`
	Tributes []roster.TributeSpec `json:"tributes,omitempty"`
	Roster   string               `json:"roster,omitempty"`
}

// AdvanceResponse is the result of playing one round.
type AdvanceResponse worker.Advance

// AutoplayRequest asks the worker to play rounds in the background. Zero
// Rounds plays to the end.
type AutoplayRequest struct {
	Rounds     int   `json:"rounds,omitempty"`
	IntervalMS int64 `json:"interval_ms,omitempty"`
}

// AutoplayResponse acknowledges a queued autoplay request.
type AutoplayResponse struct {
	RequestID    string `json:"request_id"`
	SimulationID string `json:"simulation_id"`
	Status       string `json:"status"`
}

// ServeHTTP handles HTTP requests for simulations
// Routes:
// POST   /v1/simulations              - Start a simulation
// GET    /v1/simulations/{id}         - Read simulation state
// POST   /v1/simulations/{id}/advance - Play one round
// POST   /v1/simulations/{id}/autoplay - Queue rounds for the worker
// GET    /v1/simulations/{id}/log     - Read the narrative so far
// GET    /v1/simulations/{id}/summary - Read the results table
// DELETE /v1/simulations/{id}         - Delete a simulation
func (h *SimulationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/simulations"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: POST")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	if len(parts) > 2 {
		writeError(w, h.logger, http.StatusNotFound, "Unknown simulation route")
		return
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid simulation ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid simulation ID format")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleRead(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	case action == "advance" && r.Method == http.MethodPost:
		h.handleAdvance(w, r, id)
	case action == "autoplay" && r.Method == http.MethodPost:
		h.handleAutoplay(w, r, id)
	case action == "log" && r.Method == http.MethodGet:
		h.handleLog(w, r, id)
	case action == "summary" && r.Method == http.MethodGet:
		h.handleSummary(w, r, id)
	case action == "" || action == "advance" || action == "autoplay" || action == "log" || action == "summary":
		h.logger.Warn("Method not allowed for simulation endpoint", "method", r.Method, "action", action)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed")
	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown simulation route")
	}
}

func (h *SimulationHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSimulationRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	spec := &roster.Spec{Name: strings.TrimSpace(req.Name), Tributes: req.Tributes}
	switch {
	case len(req.Tributes) > 0 && req.Roster != "":
		writeError(w, h.logger, http.StatusBadRequest, "Provide either tributes or roster, not both")
		return
	case req.Roster != "":
		filename := ensureJSONExtension(strings.TrimSpace(req.Roster))
		if !validFilename(filename) {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid roster filename")
			return
		}
		loaded, err := h.storage.GetRoster(r.Context(), filename)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, h.logger, http.StatusNotFound, "Roster not found: "+filename)
				return
			}
			h.logger.Warn("Failed to load roster", "error", err, "roster", filename)
			writeError(w, h.logger, http.StatusBadRequest, "Failed to load roster: "+err.Error())
			return
		}
		spec = loaded
	case len(req.Tributes) == 0:
		writeError(w, h.logger, http.StatusBadRequest, "tributes or roster field is required")
		return
	}

	rost, err := roster.NewFromSpec(spec, h.ids)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid roster: "+err.Error())
		return
	}
	if rost.Len() == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "Roster has no tributes")
		return
	}

	s := sim.New(rost, h.catalog, sim.Options{Logger: h.logger, MaxDraws: h.opts.MaxDraws})
	st := s.State()
	st.Roster = spec.Name
	if err := h.storage.SaveSimulation(r.Context(), s.ID, st); err != nil {
		h.logger.Error("Failed to save simulation", "error", err, "id", s.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save simulation")
		return
	}

	logger.WithSimulation(h.logger, s.ID.String()).Info("Simulation created",
		"tributes", rost.Len(),
		"roster", spec.Name)
	writeJSON(w, h.logger, http.StatusCreated, st)
}

// load returns the stored state, writing the error response itself when it
// fails.
func (h *SimulationHandler) load(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*sim.State, bool) {
	st, err := h.storage.LoadSimulation(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Simulation not found")
			return nil, false
		}
		h.logger.Error("Failed to load simulation", "error", err, "id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load simulation")
		return nil, false
	}
	return st, true
}

func (h *SimulationHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	st, ok := h.load(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, st)
}

func (h *SimulationHandler) handleAdvance(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	adv, err := h.processor.Advance(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, h.logger, http.StatusNotFound, "Simulation not found")
		case errors.Is(err, worker.ErrLocked):
			writeError(w, h.logger, http.StatusConflict, "Simulation is already advancing")
		default:
			h.logger.Error("Failed to advance simulation", "error", err, "id", id.String())
			writeError(w, h.logger, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, h.logger, http.StatusOK, AdvanceResponse(*adv))
}

func (h *SimulationHandler) handleAutoplay(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if h.opts.Queue == nil {
		writeError(w, h.logger, http.StatusNotImplemented, "Autoplay is not configured")
		return
	}

	var body AutoplayRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			h.logger.Warn("Invalid JSON in request body", "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
	}

	st, ok := h.load(w, r, id)
	if !ok {
		return
	}
	if st.Done {
		writeError(w, h.logger, http.StatusConflict, "Simulation has already finished")
		return
	}

	req := queue.NewRequest(queue.RequestTypeAutoplay, id)
	req.Rounds = body.Rounds
	req.IntervalMS = body.IntervalMS
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.opts.Queue.EnqueueRequest(r.Context(), req); err != nil {
		h.logger.Error("Failed to enqueue autoplay", "error", err, "id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to enqueue autoplay")
		return
	}
	if h.opts.Publisher != nil {
		if err := h.opts.Publisher.PublishQueued(r.Context(), id.String(), req.RequestID); err != nil {
			h.logger.Warn("Failed to publish queued event", "error", err, "id", id.String())
		}
	}

	logger.WithSimulation(h.logger, id.String()).Info("Autoplay queued",
		"request_id", req.RequestID,
		"rounds", req.Rounds)
	writeJSON(w, h.logger, http.StatusAccepted, AutoplayResponse{
		RequestID:    req.RequestID,
		SimulationID: id.String(),
		Status:       "queued",
	})
}

func (h *SimulationHandler) handleLog(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if h.opts.Log == nil {
		writeError(w, h.logger, http.StatusNotFound, "Narrative log is not configured")
		return
	}
	if _, ok := h.load(w, r, id); !ok {
		return
	}

	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "offset must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}

	lines, err := h.opts.Log.Lines(r.Context(), id.String(), offset, limit)
	if err != nil {
		h.logger.Error("Failed to read narrative log", "error", err, "id", id.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to read narrative log")
		return
	}
	if lines == nil {
		lines = []narrative.Line{}
	}
	writeJSON(w, h.logger, http.StatusOK, lines)
}

func (h *SimulationHandler) handleSummary(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	st, ok := h.load(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, st.Tributes.Summary())
}

func (h *SimulationHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	ctx := r.Context()
	simID := id.String()
	if err := h.storage.DeleteSimulation(ctx, id); err != nil {
		h.logger.Error("Failed to delete simulation", "error", err, "id", simID)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete simulation")
		return
	}
	if h.opts.Log != nil {
		if err := h.opts.Log.Clear(ctx, simID); err != nil {
			h.logger.Warn("Failed to clear narrative log", "error", err, "id", simID)
		}
	}
	if h.opts.Publisher != nil {
		if err := h.opts.Publisher.PublishDeleted(ctx, simID); err != nil {
			h.logger.Warn("Failed to publish deletion", "error", err, "id", simID)
		}
	}
	h.processor.Forget(id)

	h.logger.Debug("Simulation deleted successfully", "id", simID)
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("invalid integer")
	}
	return n, nil
}
