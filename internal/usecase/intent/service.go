// Package intent routes a query either to a curated collection or to the
// full retrieval pipeline.
package intent

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventdex/internal/domain"
)

// topicKeywords mark a query as a specific search regardless of any vibe
// words around it: "cheap jazz in Istanbul" must hit retrieval, not the
// best-value collection.
var topicKeywords = []string{
	"istanbul", "ankara", "izmir",
	"concert", "jazz", "rock", "opera", "ballet", "stand-up", "standup",
	"workshop", "atölye", "sinema", "cinema", "tiyatro", "theater", "theatre",
	"museum", "exhibition", "sergi", "festival", "kids", "çocuk",
}

// currencyPattern matches "tl" only at letter boundaries, so "500 tl" and
// "500tl" read as a price while "gently" and "Beatles" do not.
var currencyPattern = regexp.MustCompile(`(?:^|[^\p{L}])tl(?:[^\p{L}]|$)`)

// shortcuts map vibe keywords straight to a curated collection, skipping
// the model call.
var shortcuts = map[domain.Intent][]string{
	domain.IntentDateNight:   {"date", "romantic", "romantik"},
	domain.IntentThisWeekend: {"weekend", "hafta sonu"},
	domain.IntentBestValue:   {"cheap", "value", "budget", "ucuz"},
	domain.IntentHiddenGems:  {"hidden", "unique", "niche", "underground"},
}

// Service classifies queries into curated-collection intents.
type Service struct {
	model  ModelBackend
	logger *zap.Logger
}

// New creates an intent classifier.
func New(model ModelBackend, logger *zap.Logger) *Service {
	return &Service{model: model, logger: logger}
}

// Classify maps a query to a curated intent or domain.IntentSearch.
// A backend failure is returned to the caller, which is expected to fail
// open toward full retrieval rather than guess a curated bucket.
func (s *Service) Classify(ctx context.Context, query string) (domain.Intent, error) {
	q := strings.ToLower(query)

	// Specific topics always go through retrieval, even when the query
	// also mentions price or romance.
	for _, kw := range topicKeywords {
		if strings.Contains(q, kw) {
			return domain.IntentSearch, nil
		}
	}
	if currencyPattern.MatchString(q) {
		return domain.IntentSearch, nil
	}

	// Keyword shortcuts for speed and cost.
	if i, ok := shortcutIntent(q); ok {
		return i, nil
	}

	var resp struct {
		Intent string `json:"intent"`
	}
	if err := s.model.GenerateStructured(ctx, classifyPrompt(query), &resp, 0.1); err != nil {
		return "", fmt.Errorf("classify intent: %w", err)
	}

	slug := strings.ToLower(strings.TrimSpace(resp.Intent))

	// Tolerate slugs embedded in chatter from smaller models.
	for tag := range domain.CuratedIntents {
		if strings.Contains(slug, string(tag)) {
			return tag, nil
		}
	}
	return domain.IntentSearch, nil
}

func shortcutIntent(q string) (domain.Intent, bool) {
	// Deterministic order: date-night wins over best-value for
	// "cheap date ideas" style queries.
	order := []domain.Intent{
		domain.IntentDateNight,
		domain.IntentThisWeekend,
		domain.IntentBestValue,
		domain.IntentHiddenGems,
	}
	for _, tag := range order {
		for _, kw := range shortcuts[tag] {
			if strings.Contains(q, kw) {
				return tag, true
			}
		}
	}
	return "", false
}

func classifyPrompt(query string) string {
	tags := make([]string, 0, len(domain.CuratedIntents))
	for tag, desc := range domain.CuratedIntents {
		tags = append(tags, fmt.Sprintf("- %s: %s", tag, desc))
	}
	sort.Strings(tags)

	return fmt.Sprintf(`You are an intent classifier for an event discovery assistant.

STRICT categories:
%s
- search: EVERYTHING ELSE. Use this for specific topics (jazz, kids, workshops), vibes (dark, happy), or general questions.

Query: %q

Return a JSON object: {"intent": "<category slug>"}.
Any query naming a specific genre, artist, or topic is "search" even if it also mentions price or romance.
If in doubt, return "search".`, strings.Join(tags, "\n"), query)
}
