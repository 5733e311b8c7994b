package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jwebster45206/tribute-engine/internal/config"
	"github.com/jwebster45206/tribute-engine/internal/logger"
	"github.com/jwebster45206/tribute-engine/internal/storage"
	"github.com/jwebster45206/tribute-engine/pkg/catalog"
	"github.com/jwebster45206/tribute-engine/pkg/dice"
	"github.com/jwebster45206/tribute-engine/pkg/narrative"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
	"github.com/jwebster45206/tribute-engine/pkg/sim"
	pkgstorage "github.com/jwebster45206/tribute-engine/pkg/storage"
)

// tributeIDs numbers tributes for the lifetime of the process.
var tributeIDs = roster.NewIDSource(1)

// hunger plays a simulation in the terminal. Rounds advance on Enter, or on
// a timer when ADVANCE_INTERVAL is set. Once stdin closes the remaining
// rounds play without waiting.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.SetupTo(os.Stderr, cfg)

	rosterPath := filepath.Join(cfg.DataDir, "rosters", "seventy-fourth.json")
	if len(os.Args) > 1 {
		rosterPath = os.Args[1]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, rosterPath, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, rosterPath string, log *slog.Logger) error {
	eventCatalog, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to load event catalog: %w", err)
	}

	spec, err := storage.LoadRoster(rosterPath)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	tributes, err := roster.NewFromSpec(spec, tributeIDs)
	if err != nil {
		return fmt.Errorf("invalid roster %s: %w", rosterPath, err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = dice.NewSeed()
	}
	log.Info("Starting simulation", "roster", spec.Name, "tributes", tributes.Len(), "seed", seed)

	s := sim.New(tributes, eventCatalog, sim.Options{
		Source:   dice.New(seed),
		Narrator: narrative.NewWriterNarrator(os.Stdout, cfg.Width),
		Logger:   log,
		MaxDraws: cfg.MaxDraws,
	})

	var adv sim.Advancer
	if cfg.AdvanceInterval > 0 {
		ticker := sim.NewTickAdvancer(cfg.AdvanceInterval)
		defer ticker.Stop()
		adv = ticker
	} else {
		fmt.Println("Press Enter to advance each round.")
		adv = sim.NewLineAdvancer(os.Stdin)
	}

	rows, err := s.Run(ctx, adv)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(sim.FormatSummary(rows))

	if cfg.ArchivePath == "" {
		return nil
	}
	archive, err := storage.OpenArchive(cfg.ArchivePath)
	if err != nil {
		return fmt.Errorf("failed to open results archive: %w", err)
	}
	defer func() {
		if err := archive.Close(); err != nil {
			log.Error("Error closing results archive", "error", err)
		}
	}()
	if err := archive.Record(ctx, pkgstorage.NewResult(s, spec.Name)); err != nil {
		return fmt.Errorf("failed to archive result: %w", err)
	}
	log.Info("Result archived", "simulation_id", s.ID.String(), "path", cfg.ArchivePath)
	return nil
}
