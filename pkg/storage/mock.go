package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
	"github.com/jwebster45206/tribute-engine/pkg/sim"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu          sync.RWMutex
	simulations map[uuid.UUID][]byte
	rosters     map[string]*roster.Spec
	pingError   error
	saveError   error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		simulations: make(map[uuid.UUID][]byte),
		rosters:     make(map[string]*roster.Spec),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes every SaveSimulation call fail.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

func (m *MockStorage) Close() error {
	return nil
}

// SaveSimulation stores the snapshot as JSON so later loads do not share
// the caller's roster.
func (m *MockStorage) SaveSimulation(ctx context.Context, id uuid.UUID, st *sim.State) error {
	if st == nil {
		return errors.New("simulation state cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	data, err := marshalState(st)
	if err != nil {
		return err
	}
	m.simulations[id] = data
	return nil
}

func (m *MockStorage) LoadSimulation(ctx context.Context, id uuid.UUID) (*sim.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.simulations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return unmarshalState(data)
}

func (m *MockStorage) DeleteSimulation(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.simulations, id)
	return nil
}

func (m *MockStorage) ListRosters(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.rosters))
	for filename, spec := range m.rosters {
		out[spec.Name] = filename
	}
	return out, nil
}

func (m *MockStorage) GetRoster(ctx context.Context, filename string) (*roster.Spec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	spec, ok := m.rosters[filename]
	if !ok {
		return nil, ErrNotFound
	}
	return spec, nil
}

// AddRoster registers a roster file for GetRoster.
func (m *MockStorage) AddRoster(filename string, spec *roster.Spec) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rosters[filename] = spec
}

// MockArchive is an in-memory Archive.
type MockArchive struct {
	mu      sync.Mutex
	results []Result
}

var _ Archive = (*MockArchive)(nil)

func NewMockArchive() *MockArchive {
	return &MockArchive{}
}

func (a *MockArchive) Record(ctx context.Context, res Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.results {
		if r.SimulationID == res.SimulationID {
			return ErrAlreadyArchived
		}
	}
	a.results = append(a.results, res)
	return nil
}

func (a *MockArchive) Recent(ctx context.Context, limit int) ([]Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Result, len(a.results))
	copy(out, a.results)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FinishedAt.After(out[j].FinishedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *MockArchive) Close() error {
	return nil
}
