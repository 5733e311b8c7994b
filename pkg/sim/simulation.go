// Package sim runs the elimination simulation: the round scheduler, the
// event resolver and the driver loop that ties them to a roster.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/pkg/catalog"
	"github.com/jwebster45206/tribute-engine/pkg/dice"
	"github.com/jwebster45206/tribute-engine/pkg/narrative"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
)

// Options configures a simulation. Zero values get defaults.
type Options struct {
	ID       uuid.UUID
	Source   dice.Source
	Narrator narrative.Narrator
	Logger   *slog.Logger
	MaxDraws int
	MaxPicks int
}

// StepResult describes one driver iteration.
type StepResult struct {
	Round    Round   `json:"round"`
	Outcome  Outcome `json:"outcome"`
	FellBack bool    `json:"fell_back,omitempty"`
	Done     bool    `json:"done"`
}

// Simulation owns a roster for the lifetime of one game.
type Simulation struct {
	ID        uuid.UUID
	CreatedAt time.Time

	roster    *roster.Roster
	scheduler *Scheduler
	resolver  *Resolver
	catalog   *catalog.Catalog
	src       dice.Source
	narrator  narrative.Narrator
	logger    *slog.Logger
	rounds    int
}

// New creates a simulation at the start of day 1 and derives every
// tribute's pronouns.
func New(r *roster.Roster, c *catalog.Catalog, opts Options) *Simulation {
	r.AssignPronouns()
	return build(r, NewScheduler(), c, opts)
}

func build(r *roster.Roster, sched *Scheduler, c *catalog.Catalog, opts Options) *Simulation {
	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	if opts.Source == nil {
		opts.Source = dice.NewRandom()
	}
	if opts.Narrator == nil {
		opts.Narrator = narrative.Multi{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("simulation_id", opts.ID.String())

	res := NewResolver(r, opts.Source, opts.Narrator, logger)
	res.simulationID = opts.ID.String()
	if opts.MaxDraws > 0 {
		res.MaxDraws = opts.MaxDraws
	}
	if opts.MaxPicks > 0 {
		res.MaxPicks = opts.MaxPicks
	}

	return &Simulation{
		ID:        opts.ID,
		CreatedAt: time.Now(),
		roster:    r,
		scheduler: sched,
		resolver:  res,
		catalog:   c,
		src:       opts.Source,
		narrator:  opts.Narrator,
		logger:    logger,
	}
}

// Roster returns the simulation's roster.
func (s *Simulation) Roster() *roster.Roster {
	return s.roster
}

// Scheduler returns the round scheduler.
func (s *Simulation) Scheduler() *Scheduler {
	return s.scheduler
}

// Rounds returns the number of rounds played.
func (s *Simulation) Rounds() int {
	return s.rounds
}

// Done reports whether fewer than two tributes remain.
func (s *Simulation) Done() bool {
	return s.roster.NAlive() < 2
}

// Summary returns the results table in roster order.
func (s *Simulation) Summary() []roster.SummaryRow {
	return s.roster.Summary()
}

// Step plays one round. It returns Done without playing when fewer than two
// tributes remain.
func (s *Simulation) Step(ctx context.Context) (StepResult, error) {
	if s.Done() {
		return StepResult{Done: true}, nil
	}

	round := s.scheduler.Next(s.src)
	s.rounds++
	result := StepResult{Round: round}

	s.logger.Debug("Round classified",
		"round", round.Type.String(),
		"day", round.Day,
		"fatality_factor", round.FatalityFactor,
		"feast_chance", round.FeastChance)

	if round.Type == catalog.Fallen {
		s.reportFallen(ctx, round)
		result.Done = s.Done()
		return result, nil
	}

	ev, fellBack, err := s.catalog.Lookup(round.Type, s.src)
	if err != nil {
		return result, fmt.Errorf("failed to look up %s event: %w", round.Type, err)
	}
	if fellBack {
		s.logger.Warn("No catalog entry for round, using bloodbath", "round", round.Type.String())
		result.FellBack = true
	}

	s.narrateTitle(ctx, ev, round)

	outcome, err := s.resolver.Resolve(ctx, ev, round)
	result.Outcome = outcome
	if err != nil && !errors.Is(err, ErrStalled) {
		return result, err
	}
	if err != nil {
		s.logger.Warn("Round ended early", "error", err, "round", round.Type.String(), "day", round.Day)
	}

	result.Done = s.Done()
	return result, nil
}

// Run drives the simulation to completion, waiting on adv before every
// iteration, and returns the final summary.
func (s *Simulation) Run(ctx context.Context, adv Advancer) ([]roster.SummaryRow, error) {
	s.logger.Info("Simulation starting", "tributes", s.roster.Len(), "alive", s.roster.NAlive())
	for {
		if err := adv.Advance(ctx); err != nil {
			return nil, fmt.Errorf("failed waiting to advance: %w", err)
		}
		res, err := s.Step(ctx)
		if err != nil {
			return nil, err
		}
		if res.Done {
			break
		}
	}
	s.logger.Info("Simulation complete", "rounds", s.rounds, "day", s.scheduler.Day)
	return s.Summary(), nil
}

func (s *Simulation) narrateTitle(ctx context.Context, ev *catalog.Event, round Round) {
	title, err := narrative.RenderTitle(ev.Title, round.Day)
	if err != nil {
		s.logger.Warn("Failed to render title", "error", err, "title", ev.Title)
		return
	}
	s.narrate(ctx, narrative.Line{Kind: narrative.KindTitle, Text: title}, round)
}

// reportFallen announces the day's deaths and updates the deathless streak.
func (s *Simulation) reportFallen(ctx context.Context, round Round) {
	fallen := s.roster.DeadOnDay(round.Day)
	s.scheduler.RecordFallen(len(fallen))

	s.narrate(ctx, narrative.Line{Kind: narrative.KindFallen, Text: cannonText(len(fallen))}, round)
	for _, t := range fallen {
		s.narrate(ctx, narrative.Line{Kind: narrative.KindFallen, Text: t.Name}, round)
	}
}

func (s *Simulation) narrate(ctx context.Context, line narrative.Line, round Round) {
	line.SimulationID = s.ID.String()
	line.Day = round.Day
	line.Round = round.Type.String()
	if err := s.narrator.Narrate(ctx, line); err != nil {
		s.logger.Warn("Failed to narrate line", "error", err, "kind", line.Kind)
	}
}

func cannonText(n int) string {
	if n == 1 {
		return "1 cannon shot can be heard in the distance."
	}
	return fmt.Sprintf("%d cannon shots can be heard in the distance.", n)
}
