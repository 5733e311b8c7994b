package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/tribute-engine/pkg/narrative"
	"github.com/muesli/reflow/truncate"
	"github.com/redis/go-redis/v9"
)

// NarrativeLog keeps the ordered narrative of each simulation in a Redis
// list so a paused simulation can be replayed from any process.
type NarrativeLog struct {
	client *Client
	logger *slog.Logger
	ttl    time.Duration
}

var _ narrative.Narrator = (*NarrativeLog)(nil)

// NewNarrativeLog creates a narrative log. Lists expire ttl after their
// last append; a ttl <= 0 keeps them forever.
func NewNarrativeLog(client *Client, ttl time.Duration, logger *slog.Logger) *NarrativeLog {
	return &NarrativeLog{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// logKey returns the Redis key for a simulation's narrative
func (l *NarrativeLog) logKey(simulationID string) string {
	return fmt.Sprintf("simulation:%s:log", simulationID)
}

// Narrate appends the line to its simulation's log.
func (l *NarrativeLog) Narrate(ctx context.Context, line narrative.Line) error {
	if line.SimulationID == "" {
		return errors.New("narrative line has no simulation id")
	}
	return l.Append(ctx, line.SimulationID, line)
}

// Append adds a line to the end of a simulation's log
func (l *NarrativeLog) Append(ctx context.Context, simulationID string, line narrative.Line) error {
	key := l.logKey(simulationID)

	data, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("failed to marshal narrative line: %w", err)
	}

	pipe := l.client.rdb.TxPipeline()
	pipe.RPush(ctx, key, data)
	if l.ttl > 0 {
		pipe.Expire(ctx, key, l.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Error("Failed to append narrative line",
			"error", err,
			"simulation_id", simulationID,
			"key", key)
		return fmt.Errorf("failed to append narrative line: %w", err)
	}

	l.logger.Debug("Appended narrative line",
		"simulation_id", simulationID,
		"kind", line.Kind,
		"preview", preview(line.Text, 50))

	return nil
}

// Lines returns lines of a simulation's log starting at offset. A limit
// <= 0 returns everything after offset.
func (l *NarrativeLog) Lines(ctx context.Context, simulationID string, offset, limit int) ([]narrative.Line, error) {
	key := l.logKey(simulationID)

	if offset < 0 {
		offset = 0
	}
	end := int64(-1)
	if limit > 0 {
		end = int64(offset + limit - 1)
	}

	raw, err := l.client.rdb.LRange(ctx, key, int64(offset), end).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		l.logger.Error("Failed to read narrative log",
			"error", err,
			"simulation_id", simulationID,
			"key", key)
		return nil, fmt.Errorf("failed to read narrative log: %w", err)
	}

	lines := make([]narrative.Line, 0, len(raw))
	for _, item := range raw {
		var line narrative.Line
		if err := json.Unmarshal([]byte(item), &line); err != nil {
			l.logger.Warn("Skipping corrupt narrative line", "error", err, "simulation_id", simulationID)
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Clear removes a simulation's log
func (l *NarrativeLog) Clear(ctx context.Context, simulationID string) error {
	key := l.logKey(simulationID)

	if err := l.client.rdb.Del(ctx, key).Err(); err != nil {
		l.logger.Error("Failed to clear narrative log",
			"error", err,
			"simulation_id", simulationID,
			"key", key)
		return fmt.Errorf("failed to clear narrative log: %w", err)
	}

	l.logger.Debug("Cleared narrative log", "simulation_id", simulationID)
	return nil
}

// Depth returns the number of lines logged for a simulation
func (l *NarrativeLog) Depth(ctx context.Context, simulationID string) (int, error) {
	key := l.logKey(simulationID)

	count, err := l.client.rdb.LLen(ctx, key).Result()
	if err != nil {
		l.logger.Error("Failed to get narrative log depth",
			"error", err,
			"simulation_id", simulationID,
			"key", key)
		return 0, fmt.Errorf("failed to get narrative log depth: %w", err)
	}

	return int(count), nil
}

// preview cuts s to maxLen display cells, never inside a rune.
func preview(s string, maxLen int) string {
	return truncate.StringWithTail(s, uint(maxLen)+3, "...")
}
