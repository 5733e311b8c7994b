package storage

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/tribute-engine/pkg/sim"
)

func marshalState(st *sim.State) ([]byte, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal simulation state: %w", err)
	}
	return data, nil
}

func unmarshalState(data []byte) (*sim.State, error) {
	var st sim.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal simulation state: %w", err)
	}
	return &st, nil
}
