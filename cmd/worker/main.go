package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/tribute-engine/internal/config"
	"github.com/jwebster45206/tribute-engine/internal/logger"
	"github.com/jwebster45206/tribute-engine/internal/services/events"
	"github.com/jwebster45206/tribute-engine/internal/services/queue"
	"github.com/jwebster45206/tribute-engine/internal/storage"
	"github.com/jwebster45206/tribute-engine/internal/worker"
	"github.com/jwebster45206/tribute-engine/pkg/catalog"
	pkgstorage "github.com/jwebster45206/tribute-engine/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Tribute Engine Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL)

	eventCatalog, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Error("Failed to load event catalog", "error", err, "path", cfg.CatalogPath)
		os.Exit(1)
	}

	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()
	advanceQueue := queue.NewAdvanceQueue(queueClient)
	log.Info("Queue service initialized successfully")

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
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing storage connection", "error", err)
		}
	}()
	log.Info("Storage service initialized successfully")

	var archive pkgstorage.Archive
	if cfg.ArchivePath != "" {
		sqlArchive, err := storage.OpenArchive(cfg.ArchivePath)
		if err != nil {
			log.Error("Failed to open results archive", "error", err, "path", cfg.ArchivePath)
			os.Exit(1)
		}
		defer func() {
			if err := sqlArchive.Close(); err != nil {
				log.Error("Error closing results archive", "error", err)
			}
		}()
		archive = sqlArchive
	}

	workerID := os.Getenv("WORKER_ID")
	broadcaster := events.NewBroadcaster(queueClient.GetRedisClient(), log)
	processor := worker.NewAdvanceProcessor(store, eventCatalog, worker.Options{
		Log:       queue.NewNarrativeLog(queueClient, cfg.SnapshotTTL, log),
		Publisher: broadcaster,
		Archive:   archive,
		Locker:    worker.NewRedisLocker(queueClient.GetRedisClient(), workerID),
		MaxDraws:  cfg.MaxDraws,
	}, log)
	log.Info("Advance processor initialized successfully")

	w := worker.New(advanceQueue, processor, broadcaster, log, workerID)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
		}
	}()

	log.Info("Worker started, waiting for requests...")

	<-quit
	log.Info("Worker shutdown signal received")

	w.Stop()

	// Give the worker time to finish the current round.
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Worker did not stop in time")
	}

	log.Info("Worker exited")
}
