package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/tribute-engine/pkg/queue"
)

// test-enqueue queues an autoplay request for an existing simulation so the
// worker can be exercised without the API.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <simulation-id> [rounds] [interval-ms]\n", os.Args[0])
		os.Exit(1)
	}

	simID, err := uuid.Parse(os.Args[1])
	if err != nil {
		log.Fatal("Invalid simulation ID:", err)
	}

	req := queuePkg.NewRequest(queuePkg.RequestTypeAutoplay, simID)
	if len(os.Args) > 2 {
		if req.Rounds, err = strconv.Atoi(os.Args[2]); err != nil {
			log.Fatal("Invalid rounds:", err)
		}
	}
	if len(os.Args) > 3 {
		if req.IntervalMS, err = strconv.ParseInt(os.Args[3], 10, 64); err != nil {
			log.Fatal("Invalid interval:", err)
		}
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
	}
	client, err := queue.NewClient(redisURL, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer client.Close()

	ctx := context.Background()
	q := queue.NewAdvanceQueue(client)
	if err := q.EnqueueRequest(ctx, req); err != nil {
		log.Fatal("Failed to enqueue request:", err)
	}
	fmt.Printf("Enqueued autoplay request %s for simulation %s\n", req.RequestID, simID)

	depth, err := q.Depth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth:", err)
	}
	fmt.Printf("Queue depth: %d requests\n", depth)
	fmt.Println("Start the worker to process it: go run ./cmd/worker")
}
