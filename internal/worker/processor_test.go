package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/pkg/catalog"
	"github.com/jwebster45206/tribute-engine/pkg/dice"
	"github.com/jwebster45206/tribute-engine/pkg/narrative"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
	"github.com/jwebster45206/tribute-engine/pkg/sim"
	"github.com/jwebster45206/tribute-engine/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recordingPublisher struct {
	mu       sync.Mutex
	lines    int
	rounds   int
	finished int
	failed   []string
}

func (p *recordingPublisher) Narrate(context.Context, narrative.Line) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lines++
	return nil
}

func (p *recordingPublisher) PublishRound(context.Context, string, sim.StepResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rounds++
	return nil
}

func (p *recordingPublisher) PublishFinished(context.Context, string, []roster.SummaryRow) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished++
	return nil
}

func (p *recordingPublisher) PublishFailed(_ context.Context, _, requestID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, requestID)
	return nil
}

type processorFixture struct {
	processor *AdvanceProcessor
	storage   *storage.MockStorage
	publisher *recordingPublisher
	archive   *storage.MockArchive
	catalog   *catalog.Catalog
	ids       *roster.IDSource
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	c, err := catalog.Load("../../data/events.json")
	require.NoError(t, err)

	f := &processorFixture{
		storage:   storage.NewMockStorage(),
		publisher: &recordingPublisher{},
		archive:   storage.NewMockArchive(),
		catalog:   c,
		ids:       roster.NewIDSource(1),
	}
	var seed uint64
	f.processor = NewAdvanceProcessor(f.storage, c, Options{
		Publisher: f.publisher,
		Archive:   f.archive,
		NewSource: func() dice.Source {
			seed++
			return dice.New(seed)
		},
	}, testLogger())
	return f
}

// seedSimulation stores a fresh simulation of n tributes and returns its ID.
func (f *processorFixture) seedSimulation(t *testing.T, n int) uuid.UUID {
	t.Helper()
	spec := &roster.Spec{Name: "Test Roster"}
	for i := 0; i < n; i++ {
		spec.Tributes = append(spec.Tributes, roster.TributeSpec{Name: string(rune('A' + i)), Gender: "a"})
	}
	r, err := roster.NewFromSpec(spec, f.ids)
	require.NoError(t, err)

	s := sim.New(r, f.catalog, sim.Options{Logger: testLogger()})
	st := s.State()
	st.Roster = spec.Name
	require.NoError(t, f.storage.SaveSimulation(context.Background(), s.ID, st))
	return s.ID
}

func TestAdvanceProcessor_PlaysToCompletion(t *testing.T) {
	f := newProcessorFixture(t)
	id := f.seedSimulation(t, 6)
	ctx := context.Background()

	var last *Advance
	for i := 0; i < 500; i++ {
		adv, err := f.processor.Advance(ctx, id)
		require.NoError(t, err)
		last = adv
		if adv.Result.Done {
			break
		}
	}
	require.NotNil(t, last)
	require.True(t, last.Result.Done, "simulation never finished")
	assert.Len(t, last.Summary, 6)
	assert.Equal(t, "Test Roster", last.State.Roster)

	// Advancing a finished simulation neither republishes nor re-archives.
	again, err := f.processor.Advance(ctx, id)
	require.NoError(t, err)
	assert.True(t, again.Result.Done)
	assert.Equal(t, 1, f.publisher.finished)

	results, err := f.archive.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Test Roster", results[0].Roster)
	assert.Equal(t, id, results[0].SimulationID)
	assert.Positive(t, f.publisher.lines)
	assert.Equal(t, last.State.Rounds, f.publisher.rounds)
}

func TestAdvanceProcessor_NotFound(t *testing.T) {
	f := newProcessorFixture(t)
	_, err := f.processor.Advance(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestAdvanceProcessor_SaveFailure(t *testing.T) {
	f := newProcessorFixture(t)
	id := f.seedSimulation(t, 3)
	f.storage.SetSaveError(errors.New("disk full"))

	_, err := f.processor.Advance(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save simulation")
	assert.Zero(t, f.publisher.rounds)
}

func TestAdvanceProcessor_Locked(t *testing.T) {
	f := newProcessorFixture(t)
	id := f.seedSimulation(t, 3)

	unlock, err := f.processor.opts.Locker.Lock(context.Background(), id)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.processor.Advance(ctx, id)
	assert.True(t, errors.Is(err, ErrLocked))
}
