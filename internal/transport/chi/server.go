// Package chi exposes the assistant over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/eventdex/internal/domain"
	"github.com/kailas-cloud/eventdex/internal/session"
	assistantuc "github.com/kailas-cloud/eventdex/internal/usecase/assistant"
)

// Assistant answers queries and serves curated collections.
type Assistant interface {
	AnswerQuery(ctx context.Context, query string, sess session.Session) (assistantuc.Response, error)
	CuratedCollection(ctx context.Context, tag string) ([]domain.ResultGroup, error)
}

// HealthChecker reports catalog connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	assistant Assistant
	sessions  session.Store
	health    HealthChecker
	logger    *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(assistant Assistant, sessions session.Store, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{
		assistant: assistant,
		sessions:  sessions,
		health:    health,
		logger:    logger,
	}
}

// Register mounts the API routes on the router.
func (s *Server) Register(r chi.Router) {
	r.Post("/v1/ask", s.Ask)
	r.Get("/v1/collections/{tag}", s.Collection)
	r.Get("/healthz", s.Healthz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

type askRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type askResponse struct {
	Answer    string       `json:"answer"`
	SessionID string       `json:"session_id"`
	Route     string       `json:"route"`
	Results   []resultItem `json:"results"`
}

type resultItem struct {
	Title    string   `json:"title"`
	Venue    string   `json:"venue"`
	Dates    []string `json:"dates"`
	Price    float64  `json:"price"`
	City     string   `json:"city,omitempty"`
	Genre    string   `json:"genre,omitempty"`
	Duration string   `json:"duration,omitempty"`
	Score    float64  `json:"score"`
	Reason   string   `json:"reason,omitempty"`
}

// Ask handles POST /v1/ask.
func (s *Server) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "query is required")
		return
	}

	sess := s.sessions.Open(req.SessionID)
	resp, err := s.assistant.AnswerQuery(r.Context(), req.Query, sess)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Answer:    resp.Answer,
		SessionID: sess.ID(),
		Route:     resp.Route,
		Results:   resultsToItems(resp.Results),
	})
}

type collectionResponse struct {
	Tag     string       `json:"tag"`
	Results []resultItem `json:"results"`
}

// Collection handles GET /v1/collections/{tag}.
func (s *Server) Collection(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")

	results, err := s.assistant.CuratedCollection(r.Context(), tag)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, collectionResponse{
		Tag:     tag,
		Results: resultsToItems(results),
	})
}

// Healthz handles GET /healthz.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := s.health.HealthCheck(r.Context()); err != nil {
		s.logger.Warn("Health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func resultsToItems(results []domain.ResultGroup) []resultItem {
	items := make([]resultItem, len(results))
	for i, g := range results {
		items[i] = resultItem{
			Title:    g.Details.Title,
			Venue:    g.Details.Venue,
			Dates:    g.Dates,
			Price:    g.Details.Price,
			City:     g.Details.City,
			Genre:    g.Details.Genre,
			Duration: g.Details.Duration,
			Score:    g.Score,
			Reason:   g.Reason,
		}
	}
	return items
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownCollection):
		writeError(w, http.StatusNotFound, "collection_not_found", domain.ErrUnknownCollection.Error())
	case errors.Is(err, domain.ErrBackendUnavailable):
		s.logger.Warn("Model backend unavailable", zap.Error(err))
		writeError(w, http.StatusBadGateway, "backend_unavailable", domain.ErrBackendUnavailable.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
