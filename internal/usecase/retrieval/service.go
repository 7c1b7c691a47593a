// Package retrieval finds candidate events for a free-text query. The
// vector index is the primary path; when it is missing or empty the
// service falls back to an in-memory cosine scan over stored summaries.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventdex/internal/domain"
	"github.com/kailas-cloud/eventdex/internal/metrics"
)

// Options are the retrieval tunables.
type Options struct {
	TopK            int     // candidates returned per query
	SimilarityFloor float64 // fallback scan cutoff
	ScanLimit       int     // fallback scan summary cap
}

// Service retrieves and scores candidate events.
type Service struct {
	catalog  Catalog
	embedder Embedder
	opts     Options
	logger   *zap.Logger
}

// New creates a retrieval service.
func New(catalog Catalog, embedder Embedder, opts Options, logger *zap.Logger) *Service {
	return &Service{
		catalog:  catalog,
		embedder: embedder,
		opts:     opts,
		logger:   logger,
	}
}

// Retrieve returns up to TopK candidates for the query, best first.
// Filters are hard constraints: when they are set and nothing matches
// them, the result is empty regardless of semantic similarity.
func (s *Service) Retrieve(ctx context.Context, query string, f domain.Filters) ([]domain.ScoredCandidate, error) {
	eligible, vec, err := s.prepare(ctx, query, f)
	if err != nil {
		return nil, err
	}

	// Filters matched nothing; similarity must not resurrect candidates.
	if !f.IsEmpty() && len(eligible) == 0 {
		metrics.RetrievalPathTotal.WithLabelValues("filtered_out").Inc()
		return nil, nil
	}

	allowed := make(map[string]bool, len(eligible))
	for _, id := range eligible {
		allowed[id] = true
	}
	restrict := !f.IsEmpty()

	candidates, err := s.vectorSearch(ctx, vec, allowed, restrict)
	if err != nil {
		s.logger.Warn("Vector index unavailable, scanning summaries", zap.Error(err))
		candidates, err = s.scanSummaries(ctx, vec, allowed, restrict)
		if err != nil {
			return nil, err
		}
		metrics.RetrievalPathTotal.WithLabelValues("fallback_scan").Inc()
	} else if len(candidates) == 0 {
		// An index that answers with zero hits usually means it has not
		// been populated yet; the scan is the source of truth then.
		candidates, err = s.scanSummaries(ctx, vec, allowed, restrict)
		if err != nil {
			return nil, err
		}
		metrics.RetrievalPathTotal.WithLabelValues("fallback_scan").Inc()
	} else {
		metrics.RetrievalPathTotal.WithLabelValues("vector_index").Inc()
	}

	if len(candidates) == 0 {
		metrics.RetrievalPathTotal.WithLabelValues("empty").Inc()
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > s.opts.TopK {
		candidates = candidates[:s.opts.TopK]
	}

	metrics.RetrievalCandidates.WithLabelValues("retrieved").Observe(float64(len(candidates)))
	return candidates, nil
}

// prepare runs the eligibility query and the query embedding concurrently.
func (s *Service) prepare(ctx context.Context, query string, f domain.Filters) ([]string, []float32, error) {
	type eligibleResult struct {
		ids []string
		err error
	}
	type embedResult struct {
		vec []float32
		err error
	}

	eligibleCh := make(chan eligibleResult, 1)
	embedCh := make(chan embedResult, 1)

	go func() {
		ids, err := s.catalog.EligibleEvents(ctx, f)
		eligibleCh <- eligibleResult{ids: ids, err: err}
	}()
	go func() {
		vec, err := s.embedder.Embed(ctx, query)
		embedCh <- embedResult{vec: vec, err: err}
	}()

	el := <-eligibleCh
	em := <-embedCh
	if el.err != nil {
		return nil, nil, fmt.Errorf("filter eligibility: %w", el.err)
	}
	if em.err != nil {
		return nil, nil, fmt.Errorf("embed query: %w", em.err)
	}
	return el.ids, em.vec, nil
}

// vectorSearch queries the ANN index and keeps hits inside the eligible set.
func (s *Service) vectorSearch(ctx context.Context, vec []float32, allowed map[string]bool, restrict bool) ([]domain.ScoredCandidate, error) {
	hits, err := s.catalog.VectorQuery(ctx, s.opts.TopK, vec)
	if err != nil {
		return nil, err
	}

	candidates := make([]domain.ScoredCandidate, 0, len(hits))
	for _, hit := range hits {
		if restrict && !allowed[hit.Summary.EventUUID] {
			continue
		}
		candidates = append(candidates, domain.ScoredCandidate{
			Score:   hit.Score,
			Summary: hit.Summary,
		})
	}
	return candidates, nil
}

// scanSummaries cosine-scores stored summaries in memory.
func (s *Service) scanSummaries(ctx context.Context, vec []float32, allowed map[string]bool, restrict bool) ([]domain.ScoredCandidate, error) {
	summaries, err := s.catalog.AllSummaries(ctx, s.opts.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("scan summaries: %w", err)
	}

	var candidates []domain.ScoredCandidate
	for _, sum := range summaries {
		if restrict && !allowed[sum.EventUUID] {
			continue
		}
		score := Cosine(vec, sum.Embedding)
		if score <= s.opts.SimilarityFloor {
			continue
		}
		sum.Embedding = nil // embeddings are not needed past scoring
		candidates = append(candidates, domain.ScoredCandidate{
			Score:   score,
			Summary: sum,
		})
	}
	return candidates, nil
}
