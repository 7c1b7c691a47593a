package domain

// Intent is the routing decision for a query: one of the curated
// collection tags, or IntentSearch for the full retrieval pipeline.
type Intent string

// Known intents.
const (
	IntentBestValue   Intent = "best-value"
	IntentDateNight   Intent = "date-night"
	IntentHiddenGems  Intent = "hidden-gems"
	IntentThisWeekend Intent = "this-weekend"
	IntentSearch      Intent = "search"
)

// CuratedIntents maps each curated collection tag to its description,
// used both for prompt construction and tag validation.
var CuratedIntents = map[Intent]string{
	IntentBestValue:   "High quality events with great value for money.",
	IntentDateNight:   "Romantic, intimate, impressive date spots.",
	IntentHiddenGems:  "Unique, niche, off-the-beaten-path cool events.",
	IntentThisWeekend: "The absolute best things happening this upcoming weekend.",
}

// IsCurated reports whether the intent names a curated collection.
func (i Intent) IsCurated() bool {
	_, ok := CuratedIntents[i]
	return ok
}

// ParseIntent maps a raw tag to a known curated intent.
func ParseIntent(tag string) (Intent, bool) {
	i := Intent(tag)
	if i.IsCurated() {
		return i, true
	}
	return "", false
}
