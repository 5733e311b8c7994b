package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/tribute-engine/pkg/narrative"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
	"github.com/jwebster45206/tribute-engine/pkg/sim"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeLine     EventType = "simulation.line"
	EventTypeRound    EventType = "simulation.round"
	EventTypeFinished EventType = "simulation.finished"
	EventTypeDeleted  EventType = "simulation.deleted"
	EventTypeQueued   EventType = "request.queued"
	EventTypeFailed   EventType = "request.failed"
)

// RequestStatus is the payload of queued and failed request events.
type RequestStatus struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error,omitempty"`
}

// Event represents a generic event structure
type Event struct {
	Type         EventType       `json:"type"`
	SimulationID string          `json:"simulation_id"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// Channel is the Pub/Sub channel carrying one simulation's events.
func Channel(simulationID string) string {
	return fmt.Sprintf("simulation:%s:events", simulationID)
}

// Broadcaster publishes events to Redis Pub/Sub for SSE distribution
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

var _ narrative.Narrator = (*Broadcaster)(nil)

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Narrate publishes a narrative line as it is produced.
func (b *Broadcaster) Narrate(ctx context.Context, line narrative.Line) error {
	if line.SimulationID == "" {
		return errors.New("narrative line has no simulation id")
	}
	return b.publish(ctx, line.SimulationID, EventTypeLine, line)
}

// PublishRound publishes the outcome of one driver step.
func (b *Broadcaster) PublishRound(ctx context.Context, simulationID string, res sim.StepResult) error {
	return b.publish(ctx, simulationID, EventTypeRound, res)
}

// PublishFinished publishes the final summary table.
func (b *Broadcaster) PublishFinished(ctx context.Context, simulationID string, rows []roster.SummaryRow) error {
	return b.publish(ctx, simulationID, EventTypeFinished, rows)
}

// PublishDeleted tells subscribers the simulation is gone.
func (b *Broadcaster) PublishDeleted(ctx context.Context, simulationID string) error {
	return b.publish(ctx, simulationID, EventTypeDeleted, nil)
}

// PublishQueued tells subscribers a worker request was accepted.
func (b *Broadcaster) PublishQueued(ctx context.Context, simulationID, requestID string) error {
	return b.publish(ctx, simulationID, EventTypeQueued, RequestStatus{RequestID: requestID})
}

// PublishFailed tells subscribers a worker request could not be completed.
func (b *Broadcaster) PublishFailed(ctx context.Context, simulationID, requestID, errMsg string) error {
	return b.publish(ctx, simulationID, EventTypeFailed, RequestStatus{RequestID: requestID, Error: errMsg})
}

// publish publishes an event to the simulation-specific channel
func (b *Broadcaster) publish(ctx context.Context, simulationID string, t EventType, payload any) error {
	event := Event{Type: t, SimulationID: simulationID}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			b.logger.Error("Failed to marshal event payload", "error", err, "event_type", t)
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
		event.Data = data
	}

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", t)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := Channel(simulationID)
	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", t,
	)

	return nil
}
