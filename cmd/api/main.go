package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/tribute-engine/internal/config"
	"github.com/jwebster45206/tribute-engine/internal/handlers"
	"github.com/jwebster45206/tribute-engine/internal/logger"
	"github.com/jwebster45206/tribute-engine/internal/middleware"
	"github.com/jwebster45206/tribute-engine/internal/services/events"
	"github.com/jwebster45206/tribute-engine/internal/services/queue"
	"github.com/jwebster45206/tribute-engine/internal/storage"
	"github.com/jwebster45206/tribute-engine/internal/worker"
	"github.com/jwebster45206/tribute-engine/pkg/catalog"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
	pkgstorage "github.com/jwebster45206/tribute-engine/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Tribute Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"catalog", cfg.CatalogPath,
		"data_dir", cfg.DataDir)

	eventCatalog, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Error("Failed to load event catalog", "error", err, "path", cfg.CatalogPath)
		os.Exit(1)
	}
	log.Info("Event catalog loaded", "arena", len(eventCatalog.Arena))

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, cfg.SnapshotTTL, log)
	if err != nil {
		log.Error("Failed to create storage", "error", err)
		os.Exit(1)
	}
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	redisClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create Redis client", "error", err)
		os.Exit(1)
	}
	narrativeLog := queue.NewNarrativeLog(redisClient, cfg.SnapshotTTL, log)
	broadcaster := events.NewBroadcaster(redisClient.GetRedisClient(), log)
	advanceQueue := queue.NewAdvanceQueue(redisClient)
	locker := worker.NewRedisLocker(redisClient.GetRedisClient(), "api")

	components := map[string]handlers.Pinger{"storage": store}
	var archive pkgstorage.Archive
	if cfg.ArchivePath != "" {
		sqlArchive, err := storage.OpenArchive(cfg.ArchivePath)
		if err != nil {
			log.Error("Failed to open results archive", "error", err, "path", cfg.ArchivePath)
			os.Exit(1)
		}
		archive = sqlArchive
		components["archive"] = sqlArchive
		log.Info("Results archive opened", "path", cfg.ArchivePath)
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(components, log)
	mux.Handle("/health", healthHandler)

	simulationHandler := handlers.NewSimulationHandler(log, store, eventCatalog, handlers.SimulationOptions{
		Log:       narrativeLog,
		Publisher: broadcaster,
		Archive:   archive,
		Locker:    locker,
		Queue:     advanceQueue,
		MaxDraws:  cfg.MaxDraws,
		IDs:       roster.NewIDSource(1),
	})
	mux.Handle("/v1/simulations", simulationHandler)
	mux.Handle("/v1/simulations/", simulationHandler)

	rosterHandler := handlers.NewRosterHandler(log, store)
	mux.Handle("/v1/rosters", rosterHandler)
	mux.Handle("/v1/rosters/", rosterHandler)

	mux.Handle("/v1/results", handlers.NewResultsHandler(log, archive))

	eventsHandler := handlers.NewEventsHandler(redisClient.GetRedisClient(), log)
	mux.Handle("/v1/events/simulations/", eventsHandler)

	handler := middleware.Logger(mux, log)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the SSE endpoint streams indefinitely.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := redisClient.Close(); err != nil {
		log.Error("Error closing Redis client", "error", err)
	}
	if archive != nil {
		if err := archive.Close(); err != nil {
			log.Error("Error closing results archive", "error", err)
		}
	}

	log.Info("Server exited")
}
