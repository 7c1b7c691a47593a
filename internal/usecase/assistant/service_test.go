package assistant

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventdex/internal/domain"
	"github.com/kailas-cloud/eventdex/internal/session"
	"github.com/kailas-cloud/eventdex/internal/usecase/answer"
)

type mockClassifier struct {
	intent domain.Intent
	err    error
}

func (m *mockClassifier) Classify(_ context.Context, _ string) (domain.Intent, error) {
	return m.intent, m.err
}

type mockExtractor struct {
	filters domain.Filters
	err     error
}

func (m *mockExtractor) Extract(_ context.Context, _ string) (domain.Filters, error) {
	return m.filters, m.err
}

type mockRetriever struct {
	candidates  []domain.ScoredCandidate
	err         error
	gotFilters  domain.Filters
	called      bool
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, f domain.Filters) ([]domain.ScoredCandidate, error) {
	m.called = true
	m.gotFilters = f
	return m.candidates, m.err
}

type mockReranker struct {
	err error
}

func (m *mockReranker) Rerank(_ context.Context, _ string, candidates []domain.ScoredCandidate) ([]domain.ScoredCandidate, error) {
	return candidates, m.err
}

type mockAggregator struct{}

func (m *mockAggregator) Group(candidates []domain.ScoredCandidate) []domain.ResultGroup {
	groups := make([]domain.ResultGroup, 0, len(candidates))
	for _, c := range candidates {
		groups = append(groups, domain.ResultGroup{Score: c.Score, Summary: c.Summary, Details: c.Details})
	}
	return groups
}

type mockSynthesizer struct {
	reply string
	err   error
}

func (m *mockSynthesizer) Synthesize(_ context.Context, _ string, results []domain.ResultGroup, _ answer.Conversation) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if len(results) == 0 {
		return answer.NoMatches, nil
	}
	return m.reply, nil
}

type mockCatalog struct {
	collections map[string][]domain.ResultGroup
	err         error
}

func (m *mockCatalog) CuratedCollection(_ context.Context, tag string, _ int) ([]domain.ResultGroup, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.collections[tag], nil
}

type fixture struct {
	classifier  *mockClassifier
	extractor   *mockExtractor
	retriever   *mockRetriever
	reranker    *mockReranker
	synthesizer *mockSynthesizer
	catalog     *mockCatalog
}

func newFixture() *fixture {
	return &fixture{
		classifier:  &mockClassifier{intent: domain.IntentSearch},
		extractor:   &mockExtractor{},
		retriever:   &mockRetriever{},
		reranker:    &mockReranker{},
		synthesizer: &mockSynthesizer{reply: "Try these."},
		catalog:     &mockCatalog{collections: map[string][]domain.ResultGroup{}},
	}
}

func (f *fixture) service() *Service {
	return New(f.classifier, f.extractor, f.retriever, f.reranker, &mockAggregator{},
		f.synthesizer, f.catalog, Options{CollectionLimit: 5}, zap.NewNop())
}

func candidate(uuid string, score float64) domain.ScoredCandidate {
	return domain.ScoredCandidate{
		Score:   score,
		Summary: domain.CandidateSummary{EventUUID: uuid},
		Details: domain.EventDetails{Title: "title " + uuid, Venue: "venue"},
	}
}

func TestAnswerQuery_SearchPath(t *testing.T) {
	f := newFixture()
	max := 500.0
	f.extractor.filters = domain.Filters{MaxPrice: &max, City: "Istanbul"}
	f.retriever.candidates = []domain.ScoredCandidate{candidate("a", 0.9)}

	got, err := f.service().AnswerQuery(context.Background(), "cheap jazz in Istanbul", session.NewMemory(24))
	if err != nil {
		t.Fatalf("AnswerQuery: %v", err)
	}
	if got.Route != "search" {
		t.Errorf("route = %q, want search", got.Route)
	}
	if got.Answer != "Try these." || len(got.Results) != 1 {
		t.Errorf("response = %+v", got)
	}
	if f.retriever.gotFilters.City != "Istanbul" {
		t.Errorf("filters not passed to retrieval: %+v", f.retriever.gotFilters)
	}
}

func TestAnswerQuery_CuratedPath(t *testing.T) {
	f := newFixture()
	f.classifier.intent = domain.IntentDateNight
	f.catalog.collections["date-night"] = []domain.ResultGroup{
		{Score: 1, Details: domain.EventDetails{Title: "Tango Night"}, Reason: "intimate venue"},
	}

	got, err := f.service().AnswerQuery(context.Background(), "romantic ideas", session.NewMemory(24))
	if err != nil {
		t.Fatalf("AnswerQuery: %v", err)
	}
	if got.Route != "date-night" {
		t.Errorf("route = %q, want date-night", got.Route)
	}
	if f.retriever.called {
		t.Error("retrieval ran for a curated hit")
	}
	if len(got.Results) != 1 || got.Results[0].Reason != "intimate venue" {
		t.Errorf("results = %+v", got.Results)
	}
}

func TestAnswerQuery_EmptyCollectionFallsBackToSearch(t *testing.T) {
	f := newFixture()
	f.classifier.intent = domain.IntentHiddenGems // no collection stored
	f.retriever.candidates = []domain.ScoredCandidate{candidate("a", 0.9)}

	got, err := f.service().AnswerQuery(context.Background(), "something unique", session.NewMemory(24))
	if err != nil {
		t.Fatalf("AnswerQuery: %v", err)
	}
	if got.Route != "search" {
		t.Errorf("route = %q, want search fallback", got.Route)
	}
	if !f.retriever.called {
		t.Error("retrieval did not run")
	}
}

func TestAnswerQuery_ClassifierErrorFailsOpen(t *testing.T) {
	f := newFixture()
	f.classifier.err = domain.ErrBackendUnavailable
	f.retriever.candidates = []domain.ScoredCandidate{candidate("a", 0.9)}

	got, err := f.service().AnswerQuery(context.Background(), "anything", session.NewMemory(24))
	if err != nil {
		t.Fatalf("AnswerQuery: %v", err)
	}
	if got.Route != "search" {
		t.Errorf("route = %q, want search", got.Route)
	}
}

func TestAnswerQuery_ExtractorErrorSearchesUnfiltered(t *testing.T) {
	f := newFixture()
	f.extractor.err = domain.ErrMalformedResponse
	f.retriever.candidates = []domain.ScoredCandidate{candidate("a", 0.9)}

	if _, err := f.service().AnswerQuery(context.Background(), "anything", session.NewMemory(24)); err != nil {
		t.Fatalf("AnswerQuery: %v", err)
	}
	if !f.retriever.gotFilters.IsEmpty() {
		t.Errorf("expected empty filters, got %+v", f.retriever.gotFilters)
	}
}

func TestAnswerQuery_RetrieverErrorDegradesToEmpty(t *testing.T) {
	f := newFixture()
	f.retriever.err = errors.New("catalog down")

	got, err := f.service().AnswerQuery(context.Background(), "anything", session.NewMemory(24))
	if err != nil {
		t.Fatalf("AnswerQuery: %v", err)
	}
	if got.Answer != answer.NoMatches {
		t.Errorf("answer = %q, want no-matches reply", got.Answer)
	}
	if len(got.Results) != 0 {
		t.Errorf("results = %+v, want none", got.Results)
	}
}

func TestAnswerQuery_SynthesisErrorDegradesToFallback(t *testing.T) {
	f := newFixture()
	f.retriever.candidates = []domain.ScoredCandidate{candidate("a", 0.9)}
	f.synthesizer.err = domain.ErrBackendUnavailable

	got, err := f.service().AnswerQuery(context.Background(), "anything", session.NewMemory(24))
	if err != nil {
		t.Fatalf("AnswerQuery: %v", err)
	}
	if got.Answer != FallbackAnswer {
		t.Errorf("answer = %q, want fallback", got.Answer)
	}
	if len(got.Results) != 1 {
		t.Errorf("results dropped alongside the answer: %+v", got.Results)
	}
}

func TestAnswerQuery_NoResults(t *testing.T) {
	f := newFixture()

	got, err := f.service().AnswerQuery(context.Background(), "impossible ask", session.NewMemory(24))
	if err != nil {
		t.Fatalf("AnswerQuery: %v", err)
	}
	if got.Answer != answer.NoMatches {
		t.Errorf("answer = %q, want no-matches reply", got.Answer)
	}
	if len(got.Results) != 0 {
		t.Errorf("results = %+v, want none", got.Results)
	}
}

func TestCuratedCollection_UnknownTag(t *testing.T) {
	f := newFixture()

	_, err := f.service().CuratedCollection(context.Background(), "party-time")
	if !errors.Is(err, domain.ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
}

func TestCuratedCollection_KnownTag(t *testing.T) {
	f := newFixture()
	f.catalog.collections["best-value"] = []domain.ResultGroup{{Score: 1}}

	got, err := f.service().CuratedCollection(context.Background(), "best-value")
	if err != nil {
		t.Fatalf("CuratedCollection: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("len = %d, want 1", len(got))
	}
}
