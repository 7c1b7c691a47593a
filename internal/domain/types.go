package domain

// Filters holds the structured constraints extracted from a query.
// Zero-valued fields mean "do not constrain".
type Filters struct {
	MaxPrice *float64
	City     string
	Category string
	Genre    string
	Duration string
	DateFrom string // inclusive, YYYY-MM-DD
	DateTo   string // inclusive, YYYY-MM-DD
}

// IsEmpty reports whether no constraint field is set.
func (f Filters) IsEmpty() bool {
	return f.MaxPrice == nil &&
		f.City == "" &&
		f.Category == "" &&
		f.Genre == "" &&
		f.Duration == "" &&
		f.DateFrom == "" &&
		f.DateTo == ""
}

// CandidateSummary is the lightweight projection of a stored AI event summary.
type CandidateSummary struct {
	EventUUID        string
	SentimentSummary string
	Embedding        []float32
}

// EventDetails carries the display and ranking context for one stored occurrence.
type EventDetails struct {
	Title    string
	Venue    string
	Date     string // YYYY-MM-DD
	Price    float64
	City     string
	Genre    string
	Duration string
}

// SummaryHit pairs a candidate summary with its vector index score.
type SummaryHit struct {
	Summary CandidateSummary
	Score   float64
}

// ScoredCandidate is the unit passed between retrieval stages.
// Score is normalized to [0,1] before aggregation.
type ScoredCandidate struct {
	Score   float64
	Summary CandidateSummary
	Details EventDetails
}

// ResultGroup is one logical event across all its scheduled occurrences.
// Dates is deduplicated and sorted ascending; Score is the max of the
// member candidates' scores.
type ResultGroup struct {
	Score   float64
	Summary CandidateSummary
	Details EventDetails
	Dates   []string
	Reason  string // curated collections only: why the event made the cut
}

// ConversationTurn is one utterance in a session's history.
type ConversationTurn struct {
	Role string // "user" or "assistant"
	Text string
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)
