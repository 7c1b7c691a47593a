package neo4j

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kailas-cloud/eventdex/internal/domain"
)

// Driver records carry loosely typed property values. The helpers below
// normalize them into the domain types; anything unexpected maps to the
// zero value rather than leaking an untyped map upward.

func recordString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func recordFloat(rec *neo4j.Record, key string) float64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func recordVector(rec *neo4j.Record, key string) []float32 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	switch vec := v.(type) {
	case []float32:
		return vec
	case []float64:
		out := make([]float32, len(vec))
		for i, f := range vec {
			out[i] = float32(f)
		}
		return out
	case []any:
		out := make([]float32, 0, len(vec))
		for _, el := range vec {
			switch f := el.(type) {
			case float64:
				out = append(out, float32(f))
			case int64:
				out = append(out, float32(f))
			default:
				return nil
			}
		}
		return out
	}
	return nil
}

func detailsFromRecord(rec *neo4j.Record) domain.EventDetails {
	return domain.EventDetails{
		Title:    recordString(rec, "title"),
		Venue:    recordString(rec, "venue"),
		Date:     recordString(rec, "date"),
		Price:    recordFloat(rec, "price"),
		City:     recordString(rec, "city"),
		Genre:    recordString(rec, "genre"),
		Duration: recordString(rec, "duration"),
	}
}
