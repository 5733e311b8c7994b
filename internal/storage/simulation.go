package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/pkg/sim"
	"github.com/jwebster45206/tribute-engine/pkg/storage"
	"github.com/redis/go-redis/v9"
)

func simulationKey(id uuid.UUID) string {
	return "simulation:" + id.String()
}

// SaveSimulation stores a snapshot and refreshes its TTL.
func (r *RedisStorage) SaveSimulation(ctx context.Context, id uuid.UUID, st *sim.State) error {
	if st == nil {
		return errors.New("simulation state cannot be nil")
	}
	st.UpdatedAt = time.Now()

	data, err := json.Marshal(st)
	if err != nil {
		r.logger.Error("Failed to marshal simulation", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal simulation: %w", err)
	}

	if err := r.client.Set(ctx, simulationKey(id), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save simulation", "uuid", id, "error", err)
		return fmt.Errorf("failed to save simulation: %w", err)
	}
	return nil
}

// LoadSimulation returns storage.ErrNotFound for unknown or expired ids.
func (r *RedisStorage) LoadSimulation(ctx context.Context, id uuid.UUID) (*sim.State, error) {
	data, err := r.client.Get(ctx, simulationKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("Simulation not found", "uuid", id)
			return nil, storage.ErrNotFound
		}
		r.logger.Error("Failed to load simulation", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load simulation: %w", err)
	}

	var st sim.State
	if err := json.Unmarshal(data, &st); err != nil {
		r.logger.Error("Failed to unmarshal simulation", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal simulation: %w", err)
	}
	return &st, nil
}

func (r *RedisStorage) DeleteSimulation(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, simulationKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete simulation", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete simulation: %w", err)
	}
	return nil
}
