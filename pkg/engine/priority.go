package engine

import (
	"sort"

	"github.com/cleargate-ai/cleargate/pkg/detect"
	"github.com/cleargate-ai/cleargate/pkg/taxonomy"
)

// Candidate is one competing category proposal from a signal source.
type Candidate struct {
	Source   detect.SignalSource `json:"source"`
	Category taxonomy.Category   `json:"category"`
	Score    float64             `json:"score"`
}

// RankedCandidate annotates a candidate with its tier and priority for
// observability.
type RankedCandidate struct {
	Candidate
	Tier     taxonomy.Tier `json:"tier"`
	Priority int           `json:"priority"`
}

// Resolve collapses competing candidates into a single primary using
// tier-then-score ordering: lower priority number wins, ties break on
// higher score, and the sort is stable so equal candidates retain source
// order. Returns the top candidate plus the full ranked list.
func Resolve(candidates []Candidate) (RankedCandidate, []RankedCandidate) {
	ranked := make([]RankedCandidate, len(candidates))
	for i, c := range candidates {
		tier := taxonomy.TierOf(c.Category)
		ranked[i] = RankedCandidate{
			Candidate: c,
			Tier:      tier,
			Priority:  tier.Priority(),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority < ranked[j].Priority
		}
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) == 0 {
		return RankedCandidate{
			Candidate: Candidate{Category: taxonomy.CategoryUnknown},
			Tier:      taxonomy.TierOf(taxonomy.CategoryUnknown),
			Priority:  taxonomy.TierOf(taxonomy.CategoryUnknown).Priority(),
		}, ranked
	}
	return ranked[0], ranked
}
