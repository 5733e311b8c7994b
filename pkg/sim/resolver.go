package sim

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jwebster45206/tribute-engine/pkg/catalog"
	"github.com/jwebster45206/tribute-engine/pkg/dice"
	"github.com/jwebster45206/tribute-engine/pkg/narrative"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
)

// ErrStalled is returned when a round keeps drawing actions that cannot be
// satisfied by the tributes left. The remaining tributes sit the round out.
var ErrStalled = errors.New("no feasible action could be drawn")

const (
	DefaultMaxDraws = 1000
	DefaultMaxPicks = 1000
)

// Outcome summarises one resolved round.
type Outcome struct {
	Actions int `json:"actions"`
	Deaths  int `json:"deaths"`
}

// Resolver drains the available tributes of a round by drawing and
// applying catalog actions.
type Resolver struct {
	roster   *roster.Roster
	src      dice.Source
	narrator narrative.Narrator
	logger   *slog.Logger

	// MaxDraws bounds consecutive infeasible action draws in one round.
	MaxDraws int
	// MaxPicks bounds rejection sampling while assigning one tribute.
	MaxPicks int
	// Frame is the image sequence number of the next action line.
	Frame int

	simulationID string
}

// NewResolver creates a resolver over the roster.
func NewResolver(r *roster.Roster, src dice.Source, narrator narrative.Narrator, logger *slog.Logger) *Resolver {
	return &Resolver{
		roster:   r,
		src:      src,
		narrator: narrator,
		logger:   logger,
		MaxDraws: DefaultMaxDraws,
		MaxPicks: DefaultMaxPicks,
	}
}

// Resolve runs one actionable round against the event. Deaths and kill
// credit are applied before the action is narrated; narration failures are
// logged and never undo them.
func (r *Resolver) Resolve(ctx context.Context, ev *catalog.Event, round Round) (Outcome, error) {
	var out Outcome
	r.roster.Activate()

	misses := 0
	for r.roster.NAvailable() > 0 {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		action := r.draw(ev, round.FatalityFactor)
		if action == nil || !r.feasible(action) {
			misses++
			if misses >= r.MaxDraws {
				r.logger.Warn("Round stalled, benching remaining tributes",
					"round", round.Type.String(),
					"day", round.Day,
					"available", r.roster.NAvailable(),
					"alive", r.roster.NAlive())
				r.roster.Bench()
				return out, ErrStalled
			}
			continue
		}
		misses = 0

		drawn := r.assign(action.Tributes)
		for _, k := range action.Killers() {
			r.roster.AddKill(drawn[k])
		}
		for _, k := range action.Killed {
			if r.roster.Get(drawn[k]).Alive {
				out.Deaths++
			}
			r.roster.Kill(drawn[k], round.Day)
		}
		out.Actions++

		r.narrate(ctx, action, drawn, round)
		r.Frame++
	}
	return out, nil
}

// draw picks an action: fatal when the roll is under the fatality factor
// and more than one tribute lives, otherwise non-fatal. It returns nil when
// the chosen pool is empty.
func (r *Resolver) draw(ev *catalog.Event, fatality int) *catalog.Action {
	pool := ev.Nonfatal
	if r.src.IntN(10) < fatality && r.roster.NAlive() > 1 {
		pool = ev.Fatal
	}
	if len(pool) == 0 {
		return nil
	}
	return &pool[r.src.IntN(len(pool))]
}

// feasible rejects actions that would wipe out every living tribute or that
// need more tributes than are still available.
func (r *Resolver) feasible(a *catalog.Action) bool {
	if a.IsFatal() && len(a.Killed) >= r.roster.NAlive() {
		return false
	}
	return a.Tributes <= r.roster.NAvailable()
}

// assign draws n available tributes by rejection sampling over roster
// indices. Draw order defines placeholder numbering.
func (r *Resolver) assign(n int) []int {
	drawn := make([]int, 0, n)
	for len(drawn) < n {
		idx := r.pick()
		drawn = append(drawn, idx)
		r.roster.SetUnavailable(idx)
	}
	return drawn
}

func (r *Resolver) pick() int {
	for i := 0; i < r.MaxPicks; i++ {
		idx := r.src.IntN(r.roster.Len())
		if r.roster.IsAvailable(idx) {
			return idx
		}
	}
	avail := r.roster.AvailableIndices()
	return avail[r.src.IntN(len(avail))]
}

func (r *Resolver) narrate(ctx context.Context, a *catalog.Action, drawn []int, round Round) {
	placeholders := make([]roster.Placeholder, len(drawn))
	for i, idx := range drawn {
		placeholders[i] = r.roster.Get(idx).Placeholder()
	}

	text, err := narrative.RenderAction(a.Msg, placeholders)
	if err != nil {
		r.logger.Warn("Failed to render action", "error", err, "msg", a.Msg, "day", round.Day)
		return
	}

	line := narrative.Line{
		Kind:         narrative.KindAction,
		SimulationID: r.simulationID,
		Day:          round.Day,
		Round:        round.Type.String(),
		Frame:        r.Frame,
		Text:         text,
		Tributes:     drawn,
	}
	if err := r.narrator.Narrate(ctx, line); err != nil {
		r.logger.Warn("Failed to narrate action", "error", err, "frame", r.Frame)
	}
}
