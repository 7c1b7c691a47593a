// Package aggregate folds per-occurrence candidates into logical events.
// The same show on five nights is one result with five dates, scored by
// its best occurrence.
package aggregate

import (
	"sort"

	"github.com/kailas-cloud/eventdex/internal/domain"
)

// Service groups scored candidates into result pages.
type Service struct {
	maxResults int
}

// New creates an aggregation service. maxResults caps the page size.
func New(maxResults int) *Service {
	return &Service{maxResults: maxResults}
}

type groupKey struct {
	title string
	venue string
}

// Group folds occurrences of the same event (same title and venue) into
// one result each, best first. Dates are deduplicated and sorted
// ascending; the group score is the maximum member score. Equal scores
// keep their relative input order.
func (s *Service) Group(candidates []domain.ScoredCandidate) []domain.ResultGroup {
	if len(candidates) == 0 {
		return nil
	}

	index := make(map[groupKey]int, len(candidates))
	groups := make([]domain.ResultGroup, 0, len(candidates))
	dates := make(map[groupKey]map[string]bool, len(candidates))

	for _, c := range candidates {
		key := groupKey{title: c.Details.Title, venue: c.Details.Venue}
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, domain.ResultGroup{
				Score:   c.Score,
				Summary: c.Summary,
				Details: c.Details,
			})
			dates[key] = map[string]bool{}
			i = len(groups) - 1
		}
		if c.Score > groups[i].Score {
			// The best occurrence represents the group.
			groups[i].Score = c.Score
			groups[i].Summary = c.Summary
			groups[i].Details = c.Details
		}
		if c.Details.Date != "" {
			dates[key][c.Details.Date] = true
		}
	}

	for i := range groups {
		key := groupKey{title: groups[i].Details.Title, venue: groups[i].Details.Venue}
		for d := range dates[key] {
			groups[i].Dates = append(groups[i].Dates, d)
		}
		sort.Strings(groups[i].Dates)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Score > groups[j].Score
	})
	if len(groups) > s.maxResults {
		groups = groups[:s.maxResults]
	}
	return groups
}
