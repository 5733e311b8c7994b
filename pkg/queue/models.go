package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeAdvance plays a single round.
	RequestTypeAdvance RequestType = "advance"

	// RequestTypeAutoplay plays rounds until the simulation ends or Rounds
	// have been played.
	RequestTypeAutoplay RequestType = "autoplay"
)

// Request is one unit of work for the simulation worker.
type Request struct {
	RequestID    string      `json:"request_id"`
	Type         RequestType `json:"type"`
	SimulationID uuid.UUID   `json:"simulation_id"`

	// Autoplay fields. Zero Rounds means play to the end.
	Rounds     int   `json:"rounds,omitempty"`
	IntervalMS int64 `json:"interval_ms,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewRequest builds a request with a fresh ID.
func NewRequest(t RequestType, simulationID uuid.UUID) *Request {
	return &Request{
		RequestID:    uuid.New().String(),
		Type:         t,
		SimulationID: simulationID,
		EnqueuedAt:   time.Now().UTC(),
	}
}

// Interval is the pause between autoplay rounds.
func (r *Request) Interval() time.Duration {
	return time.Duration(r.IntervalMS) * time.Millisecond
}

// Validate reports requests the worker cannot process.
func (r *Request) Validate() error {
	var errs []error
	if r.RequestID == "" {
		errs = append(errs, errors.New("request_id is required"))
	}
	if r.SimulationID == uuid.Nil {
		errs = append(errs, errors.New("simulation_id is required"))
	}
	switch r.Type {
	case RequestTypeAdvance, RequestTypeAutoplay:
	default:
		errs = append(errs, fmt.Errorf("unknown request type %q", r.Type))
	}
	if r.Rounds < 0 {
		errs = append(errs, fmt.Errorf("rounds must be >= 0, got %d", r.Rounds))
	}
	if r.IntervalMS < 0 {
		errs = append(errs, fmt.Errorf("interval_ms must be >= 0, got %d", r.IntervalMS))
	}
	return errors.Join(errs...)
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
