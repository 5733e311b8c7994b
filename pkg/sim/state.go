package sim

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/pkg/catalog"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
)

// State is the serializable snapshot of a paused simulation.
type State struct {
	ID        uuid.UUID      `json:"id"`
	Roster    string         `json:"roster,omitempty"` // roster name, informational
	Tributes  *roster.Roster `json:"tributes"`
	Scheduler Scheduler      `json:"scheduler"`
	Frame     int            `json:"frame"`
	Rounds    int            `json:"rounds"`
	Done      bool           `json:"done"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// State snapshots the simulation. The roster is shared, not copied.
func (s *Simulation) State() *State {
	return &State{
		ID:        s.ID,
		Tributes:  s.roster,
		Scheduler: *s.scheduler,
		Frame:     s.resolver.Frame,
		Rounds:    s.rounds,
		Done:      s.Done(),
		CreatedAt: s.CreatedAt,
	}
}

// Restore resumes a simulation from a snapshot. The ID in opts is ignored.
func Restore(st *State, c *catalog.Catalog, opts Options) (*Simulation, error) {
	if st == nil || st.Tributes == nil {
		return nil, errors.New("state has no roster")
	}
	if st.ID == uuid.Nil {
		return nil, errors.New("state has no id")
	}
	sched := st.Scheduler
	if sched.Day < 1 {
		sched.Day = 1
	}

	opts.ID = st.ID
	s := build(st.Tributes, &sched, c, opts)
	s.resolver.Frame = st.Frame
	s.rounds = st.Rounds
	if !st.CreatedAt.IsZero() {
		s.CreatedAt = st.CreatedAt
	}
	return s, nil
}
