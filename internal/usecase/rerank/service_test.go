package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventdex/internal/domain"
)

type mockCatalog struct {
	mu      sync.Mutex
	details map[string]domain.EventDetails
	err     error
	errs    map[string]error

	inFlight    int32
	maxInFlight int32
}

func (m *mockCatalog) EventDetails(_ context.Context, uuid string) (domain.EventDetails, error) {
	cur := atomic.AddInt32(&m.inFlight, 1)
	defer atomic.AddInt32(&m.inFlight, -1)
	m.mu.Lock()
	if cur > m.maxInFlight {
		m.maxInFlight = cur
	}
	m.mu.Unlock()

	if m.err != nil {
		return domain.EventDetails{}, m.err
	}
	if err := m.errs[uuid]; err != nil {
		return domain.EventDetails{}, err
	}
	d, ok := m.details[uuid]
	if !ok {
		return domain.EventDetails{}, fmt.Errorf("event %s: %w", uuid, domain.ErrNotFound)
	}
	return d, nil
}

type mockModel struct {
	payload string
	err     error
	called  bool
}

func (m *mockModel) GenerateStructured(_ context.Context, _ string, out any, _ float32) error {
	m.called = true
	if m.err != nil {
		return m.err
	}
	return json.Unmarshal([]byte(m.payload), out)
}

func candidate(uuid string, score float64) domain.ScoredCandidate {
	return domain.ScoredCandidate{
		Score:   score,
		Summary: domain.CandidateSummary{EventUUID: uuid, SentimentSummary: "summary of " + uuid},
	}
}

func catalogFor(uuids ...string) *mockCatalog {
	details := make(map[string]domain.EventDetails, len(uuids))
	for _, id := range uuids {
		details[id] = domain.EventDetails{Title: "title " + id, Venue: "venue", Date: "2025-12-12"}
	}
	return &mockCatalog{details: details}
}

func newService(catalog *mockCatalog, model *mockModel) *Service {
	return New(catalog, model, Options{
		Floor:              0.4,
		Rescue:             3,
		MaxConcurrentFetch: 2,
	}, zap.NewNop())
}

func TestRerank_JudgeOrdersAndFilters(t *testing.T) {
	model := &mockModel{payload: `{"results": [
		{"id": 0, "score": 0.5},
		{"id": 1, "score": 0.9},
		{"id": 2, "score": 0.2}
	]}`}
	svc := newService(catalogFor("a", "b", "c"), model)

	got, err := svc.Rerank(context.Background(), "jazz",
		[]domain.ScoredCandidate{candidate("a", 0.9), candidate("b", 0.8), candidate("c", 0.7)})
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (floor drops c)", len(got))
	}
	if got[0].Summary.EventUUID != "b" || got[1].Summary.EventUUID != "a" {
		t.Errorf("order = %s, %s; want b, a", got[0].Summary.EventUUID, got[1].Summary.EventUUID)
	}
	if got[0].Score != 0.9 {
		t.Errorf("judge score not applied: %v", got[0].Score)
	}
	if got[0].Details.Title != "title b" {
		t.Errorf("details not hydrated: %+v", got[0].Details)
	}
}

func TestRerank_InvalidIDsSkipped(t *testing.T) {
	model := &mockModel{payload: `{"results": [
		{"id": -1, "score": 0.9},
		{"id": 7, "score": 0.9},
		{"id": 0, "score": 0.6}
	]}`}
	svc := newService(catalogFor("a", "b"), model)

	got, err := svc.Rerank(context.Background(), "jazz",
		[]domain.ScoredCandidate{candidate("a", 0.9), candidate("b", 0.8)})
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(got) != 1 || got[0].Summary.EventUUID != "a" {
		t.Errorf("got %+v, want only a", got)
	}
}

func TestRerank_JudgeFailureKeepsRetrievalOrder(t *testing.T) {
	model := &mockModel{err: domain.ErrBackendUnavailable}
	svc := newService(catalogFor("a", "b"), model)

	got, err := svc.Rerank(context.Background(), "jazz",
		[]domain.ScoredCandidate{candidate("a", 0.9), candidate("b", 0.8)})
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(got) != 2 || got[0].Summary.EventUUID != "a" || got[1].Summary.EventUUID != "b" {
		t.Errorf("retrieval order not preserved: %+v", got)
	}
}

func TestRerank_RejectAllRescuesTop(t *testing.T) {
	model := &mockModel{payload: `{"results": []}`}
	svc := newService(catalogFor("a", "b", "c", "d", "e"), model)

	candidates := []domain.ScoredCandidate{
		candidate("a", 0.9), candidate("b", 0.8), candidate("c", 0.7),
		candidate("d", 0.6), candidate("e", 0.5),
	}
	got, err := svc.Rerank(context.Background(), "jazz", candidates)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want rescue of 3", len(got))
	}
	if got[0].Summary.EventUUID != "a" || got[2].Summary.EventUUID != "c" {
		t.Errorf("rescued wrong candidates: %+v", got)
	}
}

func TestRerank_MissingEventDropped(t *testing.T) {
	model := &mockModel{payload: `{"results": [{"id": 0, "score": 0.8}]}`}
	svc := newService(catalogFor("b"), model) // "a" has no details record

	got, err := svc.Rerank(context.Background(), "jazz",
		[]domain.ScoredCandidate{candidate("a", 0.9), candidate("b", 0.8)})
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(got) != 1 || got[0].Summary.EventUUID != "b" {
		t.Errorf("got %+v, want only b", got)
	}
}

func TestRerank_FlakyFetchDropsOnlyThatCandidate(t *testing.T) {
	model := &mockModel{payload: `{"results": [
		{"id": 0, "score": 0.7},
		{"id": 1, "score": 0.9}
	]}`}
	catalog := catalogFor("a", "b", "c")
	catalog.errs = map[string]error{"b": errors.New("connection reset")}
	svc := newService(catalog, model)

	got, err := svc.Rerank(context.Background(), "jazz",
		[]domain.ScoredCandidate{candidate("a", 0.9), candidate("b", 0.8), candidate("c", 0.7)})
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (only the flaky fetch dropped)", len(got))
	}
	if got[0].Summary.EventUUID != "c" || got[1].Summary.EventUUID != "a" {
		t.Errorf("order = %s, %s; want c, a", got[0].Summary.EventUUID, got[1].Summary.EventUUID)
	}
}

func TestRerank_AllFetchesFailReturnsEmpty(t *testing.T) {
	model := &mockModel{payload: `{"results": []}`}
	catalog := &mockCatalog{err: errors.New("connection reset")}
	svc := newService(catalog, model)

	got, err := svc.Rerank(context.Background(), "jazz",
		[]domain.ScoredCandidate{candidate("a", 0.9), candidate("b", 0.8)})
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
	if model.called {
		t.Error("judge ran with nothing hydrated")
	}
}

func TestRerank_HydrationBoundsConcurrency(t *testing.T) {
	model := &mockModel{payload: `{"results": []}`}
	catalog := catalogFor("a", "b", "c", "d", "e", "f", "g", "h")
	svc := newService(catalog, model)

	var candidates []domain.ScoredCandidate
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		candidates = append(candidates, candidate(id, 0.5))
	}
	if _, err := svc.Rerank(context.Background(), "jazz", candidates); err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if catalog.maxInFlight > 2 {
		t.Errorf("max in-flight fetches = %d, want <= 2", catalog.maxInFlight)
	}
}

func TestRerank_EmptyInput(t *testing.T) {
	model := &mockModel{}
	svc := newService(catalogFor(), model)

	got, err := svc.Rerank(context.Background(), "jazz", nil)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
	if model.called {
		t.Error("judge ran on empty input")
	}
}
