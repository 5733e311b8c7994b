package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
	"github.com/jwebster45206/tribute-engine/pkg/sim"
)

// ErrNotFound is returned when a simulation snapshot or roster does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyArchived is returned when a result is recorded twice.
var ErrAlreadyArchived = errors.New("result already archived")

// Storage defines a unified interface for all storage operations
// This interface combines simulation snapshots (Redis) with roster loading (filesystem)
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Simulation snapshots (Redis-backed)
	SaveSimulation(ctx context.Context, id uuid.UUID, st *sim.State) error
	LoadSimulation(ctx context.Context, id uuid.UUID) (*sim.State, error)
	DeleteSimulation(ctx context.Context, id uuid.UUID) error

	// Roster operations (filesystem-backed)
	ListRosters(ctx context.Context) (map[string]string, error)
	GetRoster(ctx context.Context, filename string) (*roster.Spec, error)
}

// Result is the archived outcome of a finished simulation.
type Result struct {
	SimulationID uuid.UUID           `json:"simulation_id"`
	Roster       string              `json:"roster,omitempty"`
	Days         int                 `json:"days"`
	Rounds       int                 `json:"rounds"`
	Winner       string              `json:"winner,omitempty"`
	Rows         []roster.SummaryRow `json:"rows"`
	FinishedAt   time.Time           `json:"finished_at"`
}

// NewResult builds an archive record from a finished simulation.
func NewResult(s *sim.Simulation, rosterName string) Result {
	rows := s.Summary()
	res := Result{
		SimulationID: s.ID,
		Roster:       rosterName,
		Days:         s.Scheduler().Day,
		Rounds:       s.Rounds(),
		Rows:         rows,
		FinishedAt:   time.Now().UTC(),
	}
	for _, row := range rows {
		if row.Survivor {
			res.Winner = row.Name
			break
		}
	}
	return res
}

// Archive keeps the results of finished simulations.
type Archive interface {
	Record(ctx context.Context, res Result) error
	Recent(ctx context.Context, limit int) ([]Result, error)
	Close() error
}
