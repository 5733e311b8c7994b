package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jwebster45206/tribute-engine/internal/config"
	"github.com/jwebster45206/tribute-engine/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ArchivesResult(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "results.db")
	cfg := &config.Config{
		CatalogPath:     "../../data/events.json",
		ArchivePath:     archivePath,
		AdvanceInterval: time.Millisecond,
		Seed:            74,
		MaxDraws:        1000,
		Width:           80,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := run(context.Background(), cfg, "../../data/rosters/district12.json", log)
	require.NoError(t, err)

	archive, err := storage.OpenArchive(archivePath)
	require.NoError(t, err)
	defer archive.Close()

	results, err := archive.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].Winner)
	assert.Len(t, results[0].Rows, 2)
}

func TestRun_Errors(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		name       string
		catalog    string
		rosterPath string
	}{
		{"missing catalog", "nope.json", "../../data/rosters/district12.json"},
		{"missing roster", "../../data/events.json", "nope.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{CatalogPath: tt.catalog, AdvanceInterval: time.Millisecond, MaxDraws: 10}
			assert.Error(t, run(context.Background(), cfg, tt.rosterPath, log))
		})
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := &config.Config{
		CatalogPath:     "../../data/events.json",
		AdvanceInterval: time.Hour,
		MaxDraws:        1000,
		Width:           80,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := run(ctx, cfg, "../../data/rosters/district12.json", log)
	assert.ErrorIs(t, err, context.Canceled)
}
