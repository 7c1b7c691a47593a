// Package rerank re-scores retrieved candidates with a judge model and
// hydrates them with display details from the catalog.
package rerank

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventdex/internal/domain"
	"github.com/kailas-cloud/eventdex/internal/metrics"
)

// Options are the rerank tunables.
type Options struct {
	Floor              float64 // judge score cutoff
	Rescue             int     // kept from retrieval order if the judge rejects everything
	MaxConcurrentFetch int     // detail hydration fan-out bound
}

// Service reranks candidates.
type Service struct {
	catalog Catalog
	model   ModelBackend
	opts    Options
	logger  *zap.Logger
}

// New creates a rerank service.
func New(catalog Catalog, model ModelBackend, opts Options, logger *zap.Logger) *Service {
	return &Service{
		catalog: catalog,
		model:   model,
		opts:    opts,
		logger:  logger,
	}
}

type judgeVerdict struct {
	Results []struct {
		ID    int     `json:"id"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Rerank hydrates the candidates and re-scores them with the judge model,
// best first. The judge is advisory: when it fails or returns garbage the
// retrieval order stands, and when it rejects every candidate the top few
// are rescued so the caller never goes from "had candidates" to "empty"
// because of the judge alone.
func (s *Service) Rerank(ctx context.Context, query string, candidates []domain.ScoredCandidate) ([]domain.ScoredCandidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	hydrated := s.hydrate(ctx, candidates)
	if len(hydrated) == 0 {
		return nil, nil
	}

	var verdict judgeVerdict
	if err := s.model.GenerateStructured(ctx, s.prompt(query, hydrated), &verdict, 0); err != nil {
		s.logger.Warn("Judge model failed, keeping retrieval order", zap.Error(err))
		metrics.RetrievalCandidates.WithLabelValues("reranked").Observe(float64(len(hydrated)))
		return hydrated, nil
	}

	accepted := make([]domain.ScoredCandidate, 0, len(hydrated))
	for _, r := range verdict.Results {
		if r.ID < 0 || r.ID >= len(hydrated) {
			continue
		}
		if r.Score < s.opts.Floor {
			continue
		}
		c := hydrated[r.ID]
		c.Score = r.Score
		accepted = append(accepted, c)
	}

	if len(accepted) == 0 {
		// Either the verdict was garbage or the judge was too harsh.
		rescue := s.opts.Rescue
		if rescue > len(hydrated) {
			rescue = len(hydrated)
		}
		s.logger.Warn("Judge accepted no candidates, rescuing top of retrieval order",
			zap.Int("rescued", rescue))
		accepted = hydrated[:rescue]
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Score > accepted[j].Score
	})

	metrics.RetrievalCandidates.WithLabelValues("reranked").Observe(float64(len(accepted)))
	return accepted, nil
}

// hydrate fills candidate details from the catalog with a bounded fan-out,
// preserving the input order. A failed fetch drops only that candidate;
// one flaky detail lookup must not empty the whole page.
func (s *Service) hydrate(ctx context.Context, candidates []domain.ScoredCandidate) []domain.ScoredCandidate {
	type fetchResult struct {
		details domain.EventDetails
		err     error
	}

	limit := s.opts.MaxConcurrentFetch
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	results := make([]fetchResult, len(candidates))
	done := make(chan int, len(candidates))

	for i := range candidates {
		go func(i int) {
			sem <- struct{}{}
			defer func() { <-sem }()
			details, err := s.catalog.EventDetails(ctx, candidates[i].Summary.EventUUID)
			results[i] = fetchResult{details: details, err: err}
			done <- i
		}(i)
	}
	for range candidates {
		<-done
	}

	hydrated := make([]domain.ScoredCandidate, 0, len(candidates))
	for i, res := range results {
		if res.err != nil {
			if errors.Is(res.err, domain.ErrNotFound) {
				s.logger.Warn("Candidate event missing, dropping",
					zap.String("event_uuid", candidates[i].Summary.EventUUID))
			} else {
				s.logger.Warn("Candidate details fetch failed, dropping",
					zap.String("event_uuid", candidates[i].Summary.EventUUID),
					zap.Error(res.err))
			}
			continue
		}
		c := candidates[i]
		c.Details = res.details
		hydrated = append(hydrated, c)
	}
	return hydrated
}

// prompt lays out the candidates for the judge, one numbered line each.
func (s *Service) prompt(query string, candidates []domain.ScoredCandidate) string {
	var b strings.Builder
	b.WriteString("You are ranking event recommendations for relevance to a user request.\n")
	b.WriteString("User request: ")
	b.WriteString(query)
	b.WriteString("\n\nCandidates:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. title: %s | venue: %s | date: %s | summary: %s\n",
			i, c.Details.Title, c.Details.Venue, c.Details.Date, c.Summary.SentimentSummary)
	}
	b.WriteString(`
Score every candidate from 0.0 (irrelevant) to 1.0 (perfect match) for the
user request. Judge relevance only; ignore the listing order.
Respond with JSON only, no prose:
{"results": [{"id": <candidate number>, "score": <0.0-1.0>}, ...]}`)
	return b.String()
}
