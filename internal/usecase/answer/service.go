// Package answer turns ranked results into a conversational reply and
// keeps the session history current.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventdex/internal/domain"
)

// NoMatches is the canned reply when retrieval produced nothing. It is
// returned without a model call and without touching the session history.
const NoMatches = "I couldn't find any events matching your request. " +
	"Try loosening a filter, like the price cap or the date range."

// Options are the synthesis tunables.
type Options struct {
	ContextResults int     // results shown to the model
	HistoryWindow  int     // prior turns shown to the model
	Temperature    float32 // answer model temperature
}

// Service synthesizes answers.
type Service struct {
	model  ModelBackend
	opts   Options
	logger *zap.Logger
}

// New creates an answer synthesis service.
func New(model ModelBackend, opts Options, logger *zap.Logger) *Service {
	return &Service{
		model:  model,
		opts:   opts,
		logger: logger,
	}
}

// Synthesize writes a grounded reply for the results and appends the
// (user, assistant) turn pair to the session. An empty result set yields
// the NoMatches reply immediately; on model failure the error is returned
// and the history is left untouched, so a retry sees the same state.
func (s *Service) Synthesize(ctx context.Context, query string, results []domain.ResultGroup, conv Conversation) (string, error) {
	if len(results) == 0 {
		return NoMatches, nil
	}

	history, err := conv.Window(ctx, s.opts.HistoryWindow)
	if err != nil {
		// A lost history degrades the reply, it does not block it.
		s.logger.Warn("Session history unavailable", zap.Error(err))
		history = nil
	}

	reply, err := s.model.Generate(ctx, s.prompt(query, results, history), s.opts.Temperature)
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}

	if err := conv.Append(ctx,
		domain.ConversationTurn{Role: domain.RoleUser, Text: query},
		domain.ConversationTurn{Role: domain.RoleAssistant, Text: reply},
	); err != nil {
		s.logger.Warn("Failed to record session turns", zap.Error(err))
	}
	return reply, nil
}

// prompt assembles the grounding context: top results first, then the
// recent conversation, then the current request.
func (s *Service) prompt(query string, results []domain.ResultGroup, history []domain.ConversationTurn) string {
	shown := results
	if len(shown) > s.opts.ContextResults {
		shown = shown[:s.opts.ContextResults]
	}

	var b strings.Builder
	b.WriteString("You are an event discovery assistant. Recommend from the events below.\n")
	b.WriteString("Only mention events from the list; never invent events, dates, or prices.\n")
	b.WriteString("Answer in the language of the user's request.\n\nEvents:\n")
	for i, g := range shown {
		fmt.Fprintf(&b, "%d. %s at %s, %s, %.0f TL", i+1, g.Details.Title, g.Details.Venue, describeDates(g.Dates), g.Details.Price)
		if g.Reason != "" {
			fmt.Fprintf(&b, " (%s)", g.Reason)
		}
		if g.Summary.SentimentSummary != "" {
			fmt.Fprintf(&b, "\n   %s", g.Summary.SentimentSummary)
		}
		b.WriteString("\n")
	}

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "%s: %s\n", turn.Role, turn.Text)
		}
	}

	b.WriteString("\nUser request: ")
	b.WriteString(query)
	return b.String()
}

// describeDates compresses a run of show dates for the prompt.
func describeDates(dates []string) string {
	switch len(dates) {
	case 0:
		return "date unknown"
	case 1:
		return dates[0]
	case 2:
		return dates[0] + " and " + dates[1]
	default:
		return fmt.Sprintf("%s to %s (%d shows)", dates[0], dates[len(dates)-1], len(dates))
	}
}
