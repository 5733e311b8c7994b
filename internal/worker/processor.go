package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/internal/logger"
	"github.com/jwebster45206/tribute-engine/pkg/catalog"
	"github.com/jwebster45206/tribute-engine/pkg/dice"
	"github.com/jwebster45206/tribute-engine/pkg/narrative"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
	"github.com/jwebster45206/tribute-engine/pkg/sim"
	"github.com/jwebster45206/tribute-engine/pkg/storage"
)

// Publisher pushes round results to live subscribers.
type Publisher interface {
	narrative.Narrator
	PublishRound(ctx context.Context, simulationID string, res sim.StepResult) error
	PublishFinished(ctx context.Context, simulationID string, rows []roster.SummaryRow) error
}

// Options carries the optional collaborators of an AdvanceProcessor.
type Options struct {
	Log       narrative.Narrator
	Publisher Publisher
	Archive   storage.Archive
	Locker    Locker
	// NewSource returns the random source for each advance. Defaults to a
	// crypto-seeded source.
	NewSource func() dice.Source
	MaxDraws  int
}

// Advance is the outcome of playing one round of a stored simulation.
type Advance struct {
	Result  sim.StepResult      `json:"result"`
	Lines   []narrative.Line    `json:"lines"`
	State   *sim.State          `json:"state"`
	Summary []roster.SummaryRow `json:"summary,omitempty"`
}

// AdvanceProcessor plays one round of a stored simulation: load, restore,
// step, save, then announce. It's used by both the HTTP handler
// (synchronously) and the worker (asynchronously).
type AdvanceProcessor struct {
	storage storage.Storage
	catalog *catalog.Catalog
	opts    Options
	logger  *slog.Logger
}

func NewAdvanceProcessor(st storage.Storage, c *catalog.Catalog, opts Options, logger *slog.Logger) *AdvanceProcessor {
	if opts.NewSource == nil {
		opts.NewSource = dice.NewRandom
	}
	if opts.Locker == nil {
		opts.Locker = NewLocalLocker()
	}
	return &AdvanceProcessor{
		storage: st,
		catalog: c,
		opts:    opts,
		logger:  logger,
	}
}

// Advance plays the next round of simulation id. Errors wrap
// storage.ErrNotFound for unknown simulations and ErrLocked when the lock
// could not be taken.
func (p *AdvanceProcessor) Advance(ctx context.Context, id uuid.UUID) (*Advance, error) {
	unlock, err := p.opts.Locker.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	st, err := p.storage.LoadSimulation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load simulation: %w", err)
	}

	simID := id.String()
	log := logger.WithSimulation(p.logger, simID)

	var buf narrative.Buffer
	narrators := narrative.Multi{&buf}
	if p.opts.Log != nil {
		narrators = append(narrators, p.opts.Log)
	}
	if p.opts.Publisher != nil {
		narrators = append(narrators, p.opts.Publisher)
	}

	s, err := sim.Restore(st, p.catalog, sim.Options{
		Source:   p.opts.NewSource(),
		Narrator: narrators,
		Logger:   log,
		MaxDraws: p.opts.MaxDraws,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to restore simulation: %w", err)
	}

	wasDone := s.Done()
	res, err := s.Step(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to advance simulation: %w", err)
	}

	next := s.State()
	next.CreatedAt = st.CreatedAt
	next.Roster = st.Roster
	if err := p.storage.SaveSimulation(ctx, id, next); err != nil {
		return nil, fmt.Errorf("failed to save simulation: %w", err)
	}

	adv := &Advance{Result: res, Lines: buf.Lines(), State: next}
	if adv.Lines == nil {
		adv.Lines = []narrative.Line{}
	}

	if p.opts.Publisher != nil && !wasDone {
		if err := p.opts.Publisher.PublishRound(ctx, simID, res); err != nil {
			log.Warn("Failed to publish round", "error", err)
		}
	}

	if res.Done {
		adv.Summary = s.Summary()
		if !wasDone {
			p.finish(ctx, s, st.Roster, adv.Summary)
		}
	}
	return adv, nil
}

// finish announces and archives a simulation the first time it ends.
func (p *AdvanceProcessor) finish(ctx context.Context, s *sim.Simulation, rosterName string, rows []roster.SummaryRow) {
	simID := s.ID.String()
	log := logger.WithSimulation(p.logger, simID)
	if p.opts.Publisher != nil {
		if err := p.opts.Publisher.PublishFinished(ctx, simID, rows); err != nil {
			log.Warn("Failed to publish summary", "error", err)
		}
	}
	if p.opts.Archive != nil {
		err := p.opts.Archive.Record(ctx, storage.NewResult(s, rosterName))
		if err != nil && !errors.Is(err, storage.ErrAlreadyArchived) {
			log.Warn("Failed to archive result", "error", err)
		}
	}
	log.Info("Simulation finished",
		"rounds", s.Rounds(),
		"day", s.Scheduler().Day)
}

// Forget releases per-simulation resources after a delete.
func (p *AdvanceProcessor) Forget(id uuid.UUID) {
	if l, ok := p.opts.Locker.(*LocalLocker); ok {
		l.Forget(id)
	}
}
