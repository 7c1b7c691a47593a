package assistant

import (
	"context"

	"github.com/kailas-cloud/eventdex/internal/domain"
	"github.com/kailas-cloud/eventdex/internal/usecase/answer"
)

// Classifier routes a query to a curated collection or full retrieval.
type Classifier interface {
	Classify(ctx context.Context, query string) (domain.Intent, error)
}

// Extractor pulls structured filters out of the query text.
type Extractor interface {
	Extract(ctx context.Context, query string) (domain.Filters, error)
}

// Retriever finds candidate events for a query under the given filters.
type Retriever interface {
	Retrieve(ctx context.Context, query string, f domain.Filters) ([]domain.ScoredCandidate, error)
}

// Reranker re-scores and hydrates retrieved candidates.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.ScoredCandidate) ([]domain.ScoredCandidate, error)
}

// Aggregator folds per-occurrence candidates into logical events.
type Aggregator interface {
	Group(candidates []domain.ScoredCandidate) []domain.ResultGroup
}

// Synthesizer writes the conversational reply and records the turn pair.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, results []domain.ResultGroup, conv answer.Conversation) (string, error)
}

// Catalog serves the pre-computed curated collections.
type Catalog interface {
	CuratedCollection(ctx context.Context, tag string, limit int) ([]domain.ResultGroup, error)
}
