package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/tribute-engine/pkg/queue"
	"github.com/jwebster45206/tribute-engine/pkg/storage"
)

const (
	workerTimeout = 5 * time.Second

	// maxAutoplayRounds bounds a single autoplay request.
	maxAutoplayRounds = 10000
)

// FailureNotifier reports requests that could not be completed.
type FailureNotifier interface {
	PublishFailed(ctx context.Context, simulationID, requestID, errMsg string) error
}

// Worker processes advance and autoplay requests from the queue
type Worker struct {
	id        string
	queue     *queue.AdvanceQueue
	processor *AdvanceProcessor
	notifier  FailureNotifier
	log       *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a new worker instance. notifier may be nil.
func New(q *queue.AdvanceQueue, processor *AdvanceProcessor, notifier FailureNotifier, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:        workerID,
		queue:     q,
		processor: processor,
		notifier:  notifier,
		log:       log.With("worker_id", workerID),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start processes requests until Stop is called.
func (w *Worker) Start() error {
	w.log.Info("Worker starting")

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down")
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err)
				// Continue processing even on error
				select {
				case <-w.ctx.Done():
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested")
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	req, err := w.queue.BlockingDequeueRequest(w.ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}
	if req == nil {
		// Queue is empty or timeout occurred - this is normal
		return nil
	}

	w.log.Info("Received request from queue",
		"request_id", req.RequestID,
		"type", req.Type,
		"simulation_id", req.SimulationID.String(),
	)

	if err := w.processRequest(req); err != nil {
		w.notifyFailure(req, err)
		return err
	}
	return nil
}

// processRequest plays the rounds a request asks for. A simulation deleted
// mid-request ends the request quietly.
func (w *Worker) processRequest(req *queuePkg.Request) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request %s: %w", req.RequestID, err)
	}

	limit := 1
	if req.Type == queuePkg.RequestTypeAutoplay {
		limit = req.Rounds
		if limit == 0 || limit > maxAutoplayRounds {
			limit = maxAutoplayRounds
		}
	}

	start := time.Now()
	played := 0
	for played < limit {
		adv, err := w.processor.Advance(w.ctx, req.SimulationID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				w.log.Info("Simulation gone, dropping request",
					"request_id", req.RequestID,
					"simulation_id", req.SimulationID.String())
				return nil
			}
			if w.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to advance simulation %s: %w", req.SimulationID, err)
		}
		played++
		if adv.Result.Done {
			break
		}

		if played < limit && req.Interval() > 0 {
			select {
			case <-w.ctx.Done():
				return nil
			case <-time.After(req.Interval()):
			}
		}
	}

	w.log.Info("Request processed successfully",
		"request_id", req.RequestID,
		"rounds", played,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (w *Worker) notifyFailure(req *queuePkg.Request, err error) {
	if w.notifier == nil || req.SimulationID == uuid.Nil {
		return
	}
	if pubErr := w.notifier.PublishFailed(w.ctx, req.SimulationID.String(), req.RequestID, err.Error()); pubErr != nil {
		w.log.Error("Failed to publish failure event", "error", pubErr)
	}
}
