package retrieval

import (
	"context"

	"github.com/kailas-cloud/eventdex/internal/domain"
)

// Catalog is the store contract for candidate retrieval.
type Catalog interface {
	// EligibleEvents returns identifiers matching every set filter field.
	EligibleEvents(ctx context.Context, f domain.Filters) ([]string, error)

	// VectorQuery runs an ANN lookup over the summary vector index.
	// A missing index must surface as domain.ErrIndexUnavailable.
	VectorQuery(ctx context.Context, k int, vec []float32) ([]domain.SummaryHit, error)

	// AllSummaries bulk-loads summaries for the fallback scan.
	AllSummaries(ctx context.Context, limit int) ([]domain.CandidateSummary, error)
}

// Embedder vectorizes the query text. The fast backend is wired in here.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
