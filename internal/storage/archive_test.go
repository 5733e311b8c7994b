package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
	"github.com/jwebster45206/tribute-engine/pkg/storage"
)

func openTempArchive(t *testing.T) *SQLiteArchive {
	t.Helper()
	a, err := OpenArchive(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestOpenArchiveRequiresPath(t *testing.T) {
	if _, err := OpenArchive(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestArchiveRecordAndRecent(t *testing.T) {
	a := openTempArchive(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	first := storage.Result{
		SimulationID: uuid.New(),
		Roster:       "District 12",
		Days:         4,
		Rounds:       15,
		Winner:       "Katniss",
		Rows: []roster.SummaryRow{
			{ID: 1, Name: "Katniss", Kills: 2, Survivor: true},
			{ID: 2, Name: "Cato", Kills: 1, DeathDay: 4},
		},
		FinishedAt: base,
	}
	second := storage.Result{SimulationID: uuid.New(), Days: 2, Rounds: 6, FinishedAt: base.Add(time.Hour)}

	if err := a.Record(ctx, first); err != nil {
		t.Fatalf("record first: %v", err)
	}
	if err := a.Record(ctx, second); err != nil {
		t.Fatalf("record second: %v", err)
	}

	all, err := a.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].SimulationID != second.SimulationID {
		t.Fatalf("expected newest first, got %v", all[0].SimulationID)
	}

	got := all[1]
	if got.Winner != "Katniss" || got.Roster != "District 12" {
		t.Fatalf("got %+v", got)
	}
	if len(got.Rows) != 2 || got.Rows[1].DeathDay != 4 {
		t.Fatalf("rows = %+v", got.Rows)
	}
	if !got.FinishedAt.Equal(base) {
		t.Fatalf("finished_at = %v, want %v", got.FinishedAt, base)
	}

	limited, err := a.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent limited: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("len = %d, want 1", len(limited))
	}
}

func TestArchiveRecordDuplicate(t *testing.T) {
	a := openTempArchive(t)
	ctx := context.Background()
	res := storage.Result{SimulationID: uuid.New(), Days: 1, Rounds: 1}

	if err := a.Record(ctx, res); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := a.Record(ctx, res); !errors.Is(err, storage.ErrAlreadyArchived) {
		t.Fatalf("expected ErrAlreadyArchived, got %v", err)
	}
}

func TestArchiveRecordRequiresID(t *testing.T) {
	a := openTempArchive(t)
	if err := a.Record(context.Background(), storage.Result{}); err == nil {
		t.Fatal("expected missing id error")
	}
}

func TestArchivePing(t *testing.T) {
	a := openTempArchive(t)
	if err := a.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	_ = a.Close()
	if err := a.Ping(context.Background()); err == nil {
		t.Error("expected ping on closed archive to fail")
	}
}
