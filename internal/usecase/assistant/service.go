// Package assistant is the query orchestrator: it routes each request
// through intent classification, filter extraction, retrieval, reranking,
// aggregation, and answer synthesis.
package assistant

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventdex/internal/domain"
	"github.com/kailas-cloud/eventdex/internal/metrics"
	"github.com/kailas-cloud/eventdex/internal/session"
)

// FallbackAnswer stands in for the model-written reply when synthesis
// fails but results were found. Results stay useful without prose.
const FallbackAnswer = "Here are the events I found."

// Response is one answered query.
type Response struct {
	Answer  string
	Results []domain.ResultGroup
	Route   string // curated collection tag or "search"
}

// Options are the orchestrator tunables.
type Options struct {
	CollectionLimit int // curated collection page size
}

// Service answers event discovery queries.
type Service struct {
	classifier  Classifier
	extractor   Extractor
	retriever   Retriever
	reranker    Reranker
	aggregator  Aggregator
	synthesizer Synthesizer
	catalog     Catalog
	opts        Options
	logger      *zap.Logger
}

// New wires the pipeline stages into an assistant.
func New(
	classifier Classifier,
	extractor Extractor,
	retriever Retriever,
	reranker Reranker,
	aggregator Aggregator,
	synthesizer Synthesizer,
	catalog Catalog,
	opts Options,
	logger *zap.Logger,
) *Service {
	return &Service{
		classifier:  classifier,
		extractor:   extractor,
		retriever:   retriever,
		reranker:    reranker,
		aggregator:  aggregator,
		synthesizer: synthesizer,
		catalog:     catalog,
		opts:        opts,
		logger:      logger,
	}
}

// AnswerQuery runs one query through the pipeline. Backend failures never
// surface to the caller: each stage degrades (empty filters, empty
// candidates, fallback answer) and the response is always well formed.
func (s *Service) AnswerQuery(ctx context.Context, query string, sess session.Session) (Response, error) {
	intent, err := s.classifier.Classify(ctx, query)
	if err != nil {
		s.logger.Warn("Intent classification failed, defaulting to search",
			zap.String("session_id", sess.ID()), zap.Error(err))
		intent = domain.IntentSearch
	}

	if intent.IsCurated() {
		results, err := s.catalog.CuratedCollection(ctx, string(intent), s.opts.CollectionLimit)
		if err != nil || len(results) == 0 {
			// Missing collections degrade to the full pipeline.
			s.logger.Warn("Curated collection unavailable, falling back to search",
				zap.String("collection", string(intent)), zap.Error(err))
		} else {
			metrics.QueriesTotal.WithLabelValues(string(intent)).Inc()
			return s.respond(ctx, query, results, string(intent), sess), nil
		}
	}

	metrics.QueriesTotal.WithLabelValues("search").Inc()

	filters, err := s.extractor.Extract(ctx, query)
	if err != nil {
		s.logger.Warn("Filter extraction failed, searching unfiltered",
			zap.String("session_id", sess.ID()), zap.Error(err))
		filters = domain.Filters{}
	}

	candidates, err := s.retriever.Retrieve(ctx, query, filters)
	if err != nil {
		// Degrades to the no-matches reply below.
		s.logger.Warn("Retrieval failed",
			zap.String("session_id", sess.ID()), zap.Error(err))
		candidates = nil
	}

	ranked, err := s.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		s.logger.Warn("Rerank failed",
			zap.String("session_id", sess.ID()), zap.Error(err))
		ranked = nil
	}

	results := s.aggregator.Group(ranked)
	return s.respond(ctx, query, results, "search", sess), nil
}

// respond synthesizes the reply. A synthesis failure degrades to the
// fallback answer rather than discarding the results.
func (s *Service) respond(ctx context.Context, query string, results []domain.ResultGroup, route string, sess session.Session) Response {
	answer, err := s.synthesizer.Synthesize(ctx, query, results, sess)
	if err != nil {
		s.logger.Warn("Answer synthesis failed, using fallback",
			zap.String("session_id", sess.ID()), zap.Error(err))
		answer = FallbackAnswer
	}
	return Response{Answer: answer, Results: results, Route: route}
}

// CuratedCollection serves a collection page directly, bypassing the
// conversational pipeline.
func (s *Service) CuratedCollection(ctx context.Context, tag string) ([]domain.ResultGroup, error) {
	intent, ok := domain.ParseIntent(tag)
	if !ok {
		return nil, fmt.Errorf("collection %q: %w", tag, domain.ErrUnknownCollection)
	}
	return s.catalog.CuratedCollection(ctx, string(intent), s.opts.CollectionLimit)
}
