package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jwebster45206/tribute-engine/pkg/catalog"
	"github.com/jwebster45206/tribute-engine/pkg/dice"
	"github.com/jwebster45206/tribute-engine/pkg/narrative"
	"github.com/jwebster45206/tribute-engine/pkg/queue"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
	"github.com/jwebster45206/tribute-engine/pkg/sim"
	"github.com/jwebster45206/tribute-engine/pkg/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

type memLog struct {
	mu    sync.Mutex
	lines map[string][]narrative.Line
}

func newMemLog() *memLog {
	return &memLog{lines: make(map[string][]narrative.Line)}
}

func (m *memLog) Narrate(_ context.Context, line narrative.Line) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[line.SimulationID] = append(m.lines[line.SimulationID], line)
	return nil
}

func (m *memLog) Lines(_ context.Context, id string, offset, limit int) ([]narrative.Line, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.lines[id]
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return append([]narrative.Line(nil), all...), nil
}

func (m *memLog) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines, id)
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	lines    int
	rounds   int
	finished int
	deleted  int
	queued   int
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

func (p *recordingPublisher) PublishQueued(context.Context, string, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queued++
	return nil
}

func (p *recordingPublisher) PublishDeleted(context.Context, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted++
	return nil
}

type fixture struct {
	handler   *SimulationHandler
	storage   *storage.MockStorage
	log       *memLog
	publisher *recordingPublisher
	archive   *storage.MockArchive
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c, err := catalog.Load("../../data/events.json")
	if err != nil {
		t.Fatalf("Failed to load catalog: %v", err)
	}

	f := &fixture{
		storage:   storage.NewMockStorage(),
		log:       newMemLog(),
		publisher: &recordingPublisher{},
		archive:   storage.NewMockArchive(),
	}
	seed := uint64(0)
	f.handler = NewSimulationHandler(testLogger(), f.storage, c, SimulationOptions{
		Log:       f.log,
		Publisher: f.publisher,
		Archive:   f.archive,
		NewSource: func() dice.Source {
			seed++
			return dice.New(seed)
		},
	})
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func (f *fixture) create(t *testing.T, body string) *sim.State {
	t.Helper()
	rr := f.do(http.MethodPost, "/v1/simulations", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Response body: %s", rr.Code, rr.Body.String())
	}
	var st sim.State
	if err := json.NewDecoder(rr.Body).Decode(&st); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return &st
}

func (f *fixture) advance(t *testing.T, id uuid.UUID) AdvanceResponse {
	t.Helper()
	rr := f.do(http.MethodPost, "/v1/simulations/"+id.String()+"/advance", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Response body: %s", rr.Code, rr.Body.String())
	}
	var resp AdvanceResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return resp
}

const twoTributes = `{"tributes":[{"name":"Katniss","gender":"f"},{"name":"Peeta","gender":"m"}]}`

func TestSimulationHandler_Create(t *testing.T) {
	f := newFixture(t)
	rr := f.do(http.MethodPost, "/v1/simulations", twoTributes)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Response body: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %s", rr.Header().Get("Content-Type"))
	}

	var st sim.State
	if err := json.NewDecoder(rr.Body).Decode(&st); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if st.ID == uuid.Nil {
		t.Error("Expected non-nil simulation ID")
	}
	if st.Tributes.Len() != 2 {
		t.Errorf("Expected 2 tributes, got %d", st.Tributes.Len())
	}
	if st.Scheduler.Day != 1 || st.Scheduler.BloodbathPassed {
		t.Errorf("Expected a fresh scheduler, got %+v", st.Scheduler)
	}
	if got := st.Tributes.Get(0).Pronouns.Nominative; got != "she" {
		t.Errorf("Expected pronouns to be assigned, got %q", got)
	}

	if _, err := f.storage.LoadSimulation(context.Background(), st.ID); err != nil {
		t.Errorf("Expected simulation to be stored: %v", err)
	}
}

func TestSimulationHandler_CreateFromRoster(t *testing.T) {
	f := newFixture(t)
	f.storage.AddRoster("district12.json", &roster.Spec{
		Name: "District 12",
		Tributes: []roster.TributeSpec{
			{Name: "Katniss", Gender: "f"},
			{Name: "Peeta", Gender: "m"},
			{Name: "Haymitch", Gender: "m"},
		},
	})

	st := f.create(t, `{"roster":"district12"}`)
	if st.Tributes.Len() != 3 {
		t.Errorf("Expected 3 tributes, got %d", st.Tributes.Len())
	}
}

func TestSimulationHandler_CreateErrors(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"invalid json", `{"tributes":`, http.StatusBadRequest},
		{"empty request", `{}`, http.StatusBadRequest},
		{"unknown field", `{"district":12}`, http.StatusBadRequest},
		{"both sources", `{"roster":"a.json","tributes":[{"name":"A","gender":"m"}]}`, http.StatusBadRequest},
		{"unknown gender", `{"tributes":[{"name":"A","gender":"robot"}]}`, http.StatusBadRequest},
		{"missing name", `{"tributes":[{"name":" ","gender":"m"}]}`, http.StatusBadRequest},
		{"path traversal", `{"roster":"../secrets"}`, http.StatusBadRequest},
		{"missing roster", `{"roster":"nowhere.json"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rr := f.do(http.MethodPost, "/v1/simulations", tt.body)
			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Response body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}

			var resp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil || resp.Error == "" {
				t.Errorf("Expected an error body, got %q", rr.Body.String())
			}
		})
	}
}

func TestSimulationHandler_CreateSaveFailure(t *testing.T) {
	f := newFixture(t)
	f.storage.SetSaveError(errors.New("redis down"))

	rr := f.do(http.MethodPost, "/v1/simulations", twoTributes)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rr.Code)
	}
}

func TestSimulationHandler_AdvanceFirstRound(t *testing.T) {
	f := newFixture(t)
	st := f.create(t, `{"tributes":[{"name":"A","gender":"m"},{"name":"B","gender":"f"},{"name":"C","gender":"x"},{"name":"D","gender":"m"}]}`)

	resp := f.advance(t, st.ID)
	if resp.Result.Round.Type != catalog.Bloodbath {
		t.Errorf("Expected bloodbath, got %s", resp.Result.Round.Type)
	}
	if len(resp.Lines) < 2 {
		t.Fatalf("Expected a title and at least one action, got %d lines", len(resp.Lines))
	}
	if resp.Lines[0].Kind != narrative.KindTitle || resp.Lines[0].Text != "Day 1: The Bloodbath" {
		t.Errorf("Unexpected title line %+v", resp.Lines[0])
	}
	for _, line := range resp.Lines {
		if line.SimulationID != st.ID.String() {
			t.Errorf("Expected line to carry simulation id, got %q", line.SimulationID)
		}
	}

	logged, _ := f.log.Lines(context.Background(), st.ID.String(), 0, 0)
	if len(logged) != len(resp.Lines) {
		t.Errorf("Expected %d logged lines, got %d", len(resp.Lines), len(logged))
	}
	if f.publisher.rounds != 1 || f.publisher.lines != len(resp.Lines) {
		t.Errorf("Expected 1 round and %d lines published, got %d and %d", len(resp.Lines), f.publisher.rounds, f.publisher.lines)
	}

	stored, err := f.storage.LoadSimulation(context.Background(), st.ID)
	if err != nil {
		t.Fatalf("Failed to load stored state: %v", err)
	}
	if !stored.Scheduler.BloodbathPassed || stored.Rounds != 1 {
		t.Errorf("Expected stored state to advance, got %+v", stored.Scheduler)
	}
	if !stored.CreatedAt.Equal(st.CreatedAt) {
		t.Errorf("Expected CreatedAt to be preserved, got %v want %v", stored.CreatedAt, st.CreatedAt)
	}
}

func TestSimulationHandler_AdvanceToCompletion(t *testing.T) {
	f := newFixture(t)
	st := f.create(t, twoTributes)

	var resp AdvanceResponse
	for i := 0; i < 500; i++ {
		resp = f.advance(t, st.ID)
		if resp.Result.Done {
			break
		}
	}
	if !resp.Result.Done {
		t.Fatal("Expected the simulation to finish")
	}
	if len(resp.Summary) != 2 {
		t.Fatalf("Expected 2 summary rows, got %d", len(resp.Summary))
	}
	survivors := 0
	for _, row := range resp.Summary {
		if row.Survivor {
			survivors++
		}
	}
	if survivors != 1 {
		t.Errorf("Expected one survivor, got %d", survivors)
	}

	// Advancing a finished simulation reports the summary again without
	// archiving or announcing twice.
	again := f.advance(t, st.ID)
	if !again.Result.Done || len(again.Summary) != 2 {
		t.Errorf("Expected done with summary, got %+v", again.Result)
	}

	results, _ := f.archive.Recent(context.Background(), 0)
	if len(results) != 1 {
		t.Errorf("Expected 1 archived result, got %d", len(results))
	}
	if f.publisher.finished != 1 {
		t.Errorf("Expected 1 finished event, got %d", f.publisher.finished)
	}
}

func TestSimulationHandler_ReadLogSummary(t *testing.T) {
	f := newFixture(t)
	st := f.create(t, twoTributes)
	first := f.advance(t, st.ID)

	rr := f.do(http.MethodGet, "/v1/simulations/"+st.ID.String(), "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	rr = f.do(http.MethodGet, "/v1/simulations/"+st.ID.String()+"/log?offset=1&limit=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var lines []narrative.Line
	if err := json.NewDecoder(rr.Body).Decode(&lines); err != nil {
		t.Fatalf("Failed to decode log: %v", err)
	}
	if len(lines) != 1 || lines[0].Text != first.Lines[1].Text {
		t.Errorf("Expected the second line of the log, got %+v", lines)
	}

	rr = f.do(http.MethodGet, "/v1/simulations/"+st.ID.String()+"/log?limit=-2", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a negative limit, got %d", rr.Code)
	}

	rr = f.do(http.MethodGet, "/v1/simulations/"+st.ID.String()+"/summary", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var rows []roster.SummaryRow
	if err := json.NewDecoder(rr.Body).Decode(&rows); err != nil {
		t.Fatalf("Failed to decode summary: %v", err)
	}
	if len(rows) != 2 || rows[0].Name != "Katniss" {
		t.Errorf("Unexpected summary %+v", rows)
	}
}

func TestSimulationHandler_Delete(t *testing.T) {
	f := newFixture(t)
	st := f.create(t, twoTributes)
	f.advance(t, st.ID)

	rr := f.do(http.MethodDelete, "/v1/simulations/"+st.ID.String(), "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}

	rr = f.do(http.MethodGet, "/v1/simulations/"+st.ID.String(), "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", rr.Code)
	}
	if lines, _ := f.log.Lines(context.Background(), st.ID.String(), 0, 0); len(lines) != 0 {
		t.Errorf("Expected log to be cleared, got %d lines", len(lines))
	}
	if f.publisher.deleted != 1 {
		t.Errorf("Expected 1 deleted event, got %d", f.publisher.deleted)
	}
}

func TestSimulationHandler_Routing(t *testing.T) {
	f := newFixture(t)
	id := uuid.New().String()

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"list not supported", http.MethodGet, "/v1/simulations", http.StatusMethodNotAllowed},
		{"invalid id", http.MethodGet, "/v1/simulations/not-a-uuid", http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/v1/simulations/" + id, http.StatusNotFound},
		{"unknown id advance", http.MethodPost, "/v1/simulations/" + id + "/advance", http.StatusNotFound},
		{"unknown action", http.MethodGet, "/v1/simulations/" + id + "/history", http.StatusNotFound},
		{"too deep", http.MethodGet, "/v1/simulations/" + id + "/log/1", http.StatusNotFound},
		{"wrong method", http.MethodPut, "/v1/simulations/" + id, http.StatusMethodNotAllowed},
		{"get advance", http.MethodGet, "/v1/simulations/" + id + "/advance", http.StatusMethodNotAllowed},
		{"get autoplay", http.MethodGet, "/v1/simulations/" + id + "/autoplay", http.StatusMethodNotAllowed},
		{"autoplay without queue", http.MethodPost, "/v1/simulations/" + id + "/autoplay", http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(tt.method, tt.path, "")
			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Response body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSimulationHandler_LogWithoutBackend(t *testing.T) {
	c := &catalog.Catalog{Bloodbath: &catalog.Event{
		Title:    "Day {0}",
		Nonfatal: []catalog.Action{{Msg: "{0.name} waits.", Tributes: 1}},
	}}
	mockStorage := storage.NewMockStorage()
	handler := NewSimulationHandler(testLogger(), mockStorage, c, SimulationOptions{})

	req := httptest.NewRequest(http.MethodGet, "/v1/simulations/"+uuid.New().String()+"/log", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

type memQueue struct {
	mu       sync.Mutex
	requests []*queue.Request
}

func (q *memQueue) EnqueueRequest(_ context.Context, req *queue.Request) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requests = append(q.requests, req)
	return nil
}

func TestSimulationHandler_Autoplay(t *testing.T) {
	f := newFixture(t)
	q := &memQueue{}
	f.handler.opts.Queue = q

	st := f.create(t, `{"name":"Finale","tributes":[{"name":"Katniss","gender":"f"},{"name":"Peeta","gender":"m"}]}`)
	if st.Roster != "Finale" {
		t.Errorf("Expected roster name Finale, got %q", st.Roster)
	}
	path := "/v1/simulations/" + st.ID.String() + "/autoplay"

	rr := f.do(http.MethodPost, path, `{"rounds":3,"interval_ms":100}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d. Response body: %s", rr.Code, rr.Body.String())
	}
	var resp AutoplayResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Status != "queued" || resp.SimulationID != st.ID.String() {
		t.Errorf("Unexpected response %+v", resp)
	}
	if len(q.requests) != 1 {
		t.Fatalf("Expected 1 queued request, got %d", len(q.requests))
	}
	got := q.requests[0]
	if got.RequestID != resp.RequestID || got.Rounds != 3 || got.IntervalMS != 100 || got.Type != queue.RequestTypeAutoplay {
		t.Errorf("Unexpected queued request %+v", got)
	}
	if f.publisher.queued != 1 {
		t.Errorf("Expected 1 queued event, got %d", f.publisher.queued)
	}

	// An empty body plays to the end.
	if rr := f.do(http.MethodPost, path, ""); rr.Code != http.StatusAccepted {
		t.Errorf("Expected status 202 for empty body, got %d", rr.Code)
	}

	tests := []struct {
		name           string
		path           string
		body           string
		expectedStatus int
	}{
		{"unknown field", path, `{"turns":3}`, http.StatusBadRequest},
		{"negative rounds", path, `{"rounds":-1}`, http.StatusBadRequest},
		{"unknown simulation", "/v1/simulations/" + uuid.New().String() + "/autoplay", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := f.do(http.MethodPost, tt.path, tt.body)
			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d. Response body: %s", tt.expectedStatus, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSimulationHandler_AutoplayFinished(t *testing.T) {
	f := newFixture(t)
	f.handler.opts.Queue = &memQueue{}

	st := f.create(t, `{"tributes":[{"name":"Rue","gender":"f"}]}`)
	rr := f.do(http.MethodPost, "/v1/simulations/"+st.ID.String()+"/autoplay", "")
	if rr.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", rr.Code)
	}
}

func TestSimulationHandler_CreateKeepsTributeIDsUnique(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, twoTributes)
	second := f.create(t, twoTributes)

	seen := map[int]bool{}
	for _, st := range []*sim.State{first, second} {
		for _, tr := range st.Tributes.Tributes() {
			if seen[tr.ID] {
				t.Errorf("Tribute ID %d reused by a later simulation", tr.ID)
			}
			seen[tr.ID] = true
		}
	}
	if got := second.Tributes.Get(0).ID; got <= first.Tributes.Get(1).ID {
		t.Errorf("Expected IDs to keep increasing, got %d after %d", got, first.Tributes.Get(1).ID)
	}
}
