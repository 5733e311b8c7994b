package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/pkg/catalog"
	"github.com/jwebster45206/tribute-engine/pkg/dice"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
	"github.com/jwebster45206/tribute-engine/pkg/sim"
)

func newSimulation(t *testing.T) *sim.Simulation {
	t.Helper()
	r, err := roster.NewFromSpec(&roster.Spec{Tributes: []roster.TributeSpec{
		{Name: "Katniss", Gender: "f"},
		{Name: "Peeta", Gender: "m"},
	}}, roster.NewIDSource(1))
	if err != nil {
		t.Fatalf("Failed to build roster: %v", err)
	}
	c := &catalog.Catalog{Bloodbath: &catalog.Event{
		Title:    "Day {0}",
		Nonfatal: []catalog.Action{{Msg: "{0.name} runs.", Tributes: 1}},
	}}
	return sim.New(r, c, sim.Options{Source: dice.New(1)})
}

func TestMockStorage_SaveAndLoadSimulation(t *testing.T) {
	mockStorage := NewMockStorage()
	ctx := context.Background()
	s := newSimulation(t)

	if err := mockStorage.SaveSimulation(ctx, s.ID, s.State()); err != nil {
		t.Fatalf("Failed to save simulation: %v", err)
	}

	// Mutating the live roster must not leak into the stored snapshot.
	s.Roster().Kill(0, 1)

	loaded, err := mockStorage.LoadSimulation(ctx, s.ID)
	if err != nil {
		t.Fatalf("Failed to load simulation: %v", err)
	}
	if loaded.ID != s.ID {
		t.Errorf("Expected ID %v, got %v", s.ID, loaded.ID)
	}
	if !loaded.Tributes.Get(0).Alive {
		t.Error("Expected stored snapshot to be unaffected by later mutation")
	}
}

func TestMockStorage_LoadMissing(t *testing.T) {
	mockStorage := NewMockStorage()

	_, err := mockStorage.LoadSimulation(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMockStorage_Rosters(t *testing.T) {
	mockStorage := NewMockStorage()
	ctx := context.Background()
	mockStorage.AddRoster("d12.json", &roster.Spec{Name: "District 12"})

	list, err := mockStorage.ListRosters(ctx)
	if err != nil {
		t.Fatalf("Failed to list rosters: %v", err)
	}
	if list["District 12"] != "d12.json" {
		t.Errorf("Expected District 12 -> d12.json, got %v", list)
	}

	if _, err := mockStorage.GetRoster(ctx, "missing.json"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestNewResult(t *testing.T) {
	s := newSimulation(t)
	s.Roster().Kill(1, 1)

	res := NewResult(s, "District 12")
	if res.Winner != "Katniss" {
		t.Errorf("Expected winner Katniss, got %q", res.Winner)
	}
	if len(res.Rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(res.Rows))
	}
	if res.SimulationID != s.ID {
		t.Errorf("Expected simulation id %v, got %v", s.ID, res.SimulationID)
	}
}

func TestMockArchive(t *testing.T) {
	archive := NewMockArchive()
	ctx := context.Background()
	now := time.Now()

	older := Result{SimulationID: uuid.New(), FinishedAt: now.Add(-time.Hour)}
	newer := Result{SimulationID: uuid.New(), FinishedAt: now}
	if err := archive.Record(ctx, older); err != nil {
		t.Fatalf("Failed to record: %v", err)
	}
	if err := archive.Record(ctx, newer); err != nil {
		t.Fatalf("Failed to record: %v", err)
	}
	if err := archive.Record(ctx, newer); !errors.Is(err, ErrAlreadyArchived) {
		t.Errorf("Expected ErrAlreadyArchived, got %v", err)
	}

	recent, err := archive.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(recent) != 1 || recent[0].SimulationID != newer.SimulationID {
		t.Errorf("Expected only the newest result, got %+v", recent)
	}
}
