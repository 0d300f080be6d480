// internal/models/scoring.go
package models

// Breakdown keys used by the scorer. Each key maps to the points that
// watchlist family contributed to the final score.
const (
	BreakdownBealls             = "bealls"
	BreakdownStopPredatory      = "stopPredatory"
	BreakdownHijacked           = "hijacked"
	BreakdownScopusDiscontinued = "scopusDiscontinued"
)

// Evidence source tags attached to a scored reference.
const (
	EvidenceBealls             = "bealls"
	EvidenceStopPredatory      = "stop-predatory-journals"
	EvidenceHijacked           = "hijacked"
	EvidenceScopusDiscontinued = "scopus-discontinued"
)

// ScoringResult is the outcome of running one reference through the
// predatory-evidence scorer.
type ScoringResult struct {
	Score           int            `json:"score"`
	Breakdown       map[string]int `json:"breakdown"`
	EvidenceSources []string       `json:"evidenceSources"`
	MatchConfidence int            `json:"matchConfidence"`
	Details         []string       `json:"details"`
}

// NewScoringResult returns an empty result with the breakdown map
// pre-populated so JSON output always carries all four families.
func NewScoringResult() *ScoringResult {
	return &ScoringResult{
		Breakdown: map[string]int{
			BreakdownBealls:             0,
			BreakdownStopPredatory:      0,
			BreakdownHijacked:           0,
			BreakdownScopusDiscontinued: 0,
		},
		EvidenceSources: []string{},
		Details:         []string{},
	}
}

// AddEvidence records points for a breakdown family and tags the source
// once. Confidence values from individual matches are accumulated by the
// caller and averaged into MatchConfidence at the end.
func (r *ScoringResult) AddEvidence(family, tag string, points int, detail string) {
	r.Breakdown[family] += points
	r.Score += points
	if r.Score > 100 {
		r.Score = 100
	}
	r.TagSource(tag)
	if detail != "" {
		r.Details = append(r.Details, detail)
	}
}

// TagSource appends the tag if it is not already present.
func (r *ScoringResult) TagSource(tag string) {
	for _, t := range r.EvidenceSources {
		if t == tag {
			return
		}
	}
	r.EvidenceSources = append(r.EvidenceSources, tag)
}
