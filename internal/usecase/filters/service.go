// Package filters pulls structured constraints out of a free-form query.
package filters

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/eventdex/internal/domain"
)

// Service extracts Filters from natural language.
type Service struct {
	model  ModelBackend
	now    func() time.Time
	logger *zap.Logger
}

// New creates a filter extractor. now is injectable for tests; nil means
// time.Now.
func New(model ModelBackend, now func() time.Time, logger *zap.Logger) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{model: model, now: now, logger: logger}
}

// response mirrors the JSON shape requested from the model. Pointers
// distinguish "absent" from zero values.
type response struct {
	MaxPrice  *float64 `json:"max_price"`
	City      *string  `json:"city"`
	Category  *string  `json:"category"`
	Genre     *string  `json:"genre"`
	Duration  *string  `json:"duration"`
	DateRange *struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"date_range"`
}

// Extract returns the constraints explicitly present in the query.
// A backend failure is returned as-is; the caller degrades to empty
// filters so retrieval can still run on similarity alone.
func (s *Service) Extract(ctx context.Context, query string) (domain.Filters, error) {
	var resp response
	if err := s.model.GenerateStructured(ctx, s.prompt(query), &resp, 0); err != nil {
		return domain.Filters{}, fmt.Errorf("extract filters: %w", err)
	}

	f := domain.Filters{MaxPrice: resp.MaxPrice}
	if resp.City != nil {
		f.City = strings.TrimSpace(*resp.City)
	}
	if resp.Category != nil {
		f.Category = strings.TrimSpace(*resp.Category)
	}
	if resp.Genre != nil {
		f.Genre = strings.TrimSpace(*resp.Genre)
	}
	if resp.Duration != nil {
		f.Duration = strings.TrimSpace(*resp.Duration)
	}
	if resp.DateRange != nil {
		f.DateFrom = strings.TrimSpace(resp.DateRange.Start)
		f.DateTo = strings.TrimSpace(resp.DateRange.End)
	}

	// Safeguard: the model must not invent a date range the query never
	// mentioned. Anything without a date keyword or date literal is
	// treated as a hallucination and dropped.
	if (f.DateFrom != "" || f.DateTo != "") && !mentionsDate(query) {
		s.logger.Warn("Discarding hallucinated date range",
			zap.String("query", query),
			zap.String("date_from", f.DateFrom),
			zap.String("date_to", f.DateTo),
		)
		f.DateFrom, f.DateTo = "", ""
	}

	return f, nil
}

func (s *Service) prompt(query string) string {
	now := s.now()
	return fmt.Sprintf(`You are a query parser for an event search engine.

Current date: %s (%s)

Query: %q

Return a JSON object with these keys (use null for anything not specified):
- max_price: number (e.g. 500)
- city: string (e.g. "Istanbul", "Ankara")
- category: string (e.g. "Concert", "Theater", "Workshop")
- genre: string (e.g. "Jazz", "Rock")
- duration: string (e.g. "120 min")
- date_range: object with "start" and "end" in YYYY-MM-DD format.
  - "this weekend": next Friday to Sunday.
  - "tomorrow": the day after the current date.
  - "next week": next Monday to Sunday.

IMPORTANT:
- ONLY extract filters explicitly mentioned in the query.
- If the user does NOT mention a date or time, set date_range to null.
- If the user does NOT mention a city, set city to null.
- Handle Turkish date terms: "hafta sonu" means "this weekend", "yarın" means "tomorrow".`,
		now.Format("2006-01-02"), now.Weekday(), query)
}

// dateKeywords cover English and Turkish relative dates, weekdays, and
// month names.
var dateKeywords = []string{
	"today", "tomorrow", "tonight", "weekend", "week", "month", "year",
	"bugün", "yarın", "akşam", "gece", "hafta", "ay sonu", "yıl",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"pazartesi", "salı", "çarşamba", "perşembe", "cuma", "cumartesi", "pazar",
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
	"ocak", "şubat", "mart", "nisan", "mayıs", "haziran",
	"temmuz", "ağustos", "eylül", "ekim", "kasım", "aralık",
	"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "oct", "nov", "dec",
}

var (
	numericDate = regexp.MustCompile(`\d{1,2}[./-]\d{1,2}`)
	yearLiteral = regexp.MustCompile(`\b\d{4}\b`)
)

func mentionsDate(query string) bool {
	q := strings.ToLower(query)
	for _, kw := range dateKeywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return numericDate.MatchString(q) || yearLiteral.MatchString(q)
}
