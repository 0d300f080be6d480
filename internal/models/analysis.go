// internal/models/analysis.go
package models

import "time"

// ScoredReference is one reference after the full pipeline has run.
type ScoredReference struct {
	Reference  Reference        `json:"reference"`
	Retraction RetractionStatus `json:"retraction"`
	Scoring    *ScoringResult   `json:"scoring,omitempty"`
	Risk       RiskLevel        `json:"risk"`
	Unscored   bool             `json:"unscored,omitempty"`
}

// AnalysisSummary aggregates the per-reference outcomes of one run.
type AnalysisSummary struct {
	Total          int            `json:"total"`
	HighRiskCount  int            `json:"highRiskCount"`
	RetractedCount int            `json:"retractedCount"`
	UnscoredCount  int            `json:"unscoredCount"`
	RiskHistogram  map[string]int `json:"riskHistogram"`
}

// Analysis is the persisted result of analyzing one input paper.
type Analysis struct {
	ID         string            `json:"id"`
	InputDOI   string            `json:"inputDoi,omitempty"`
	InputTitle string            `json:"inputTitle,omitempty"`
	Warnings   []string          `json:"warnings,omitempty"`
	References []ScoredReference `json:"references"`
	Summary    AnalysisSummary   `json:"summary"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// BuildSummary recomputes the aggregate counters from the reference
// list. The histogram always sums to Total: unscored references are
// counted under their classified level.
func BuildSummary(refs []ScoredReference, highRiskThreshold int) AnalysisSummary {
	s := AnalysisSummary{
		Total:         len(refs),
		RiskHistogram: map[string]int{},
	}
	for _, r := range refs {
		s.RiskHistogram[r.Risk.Level]++
		if r.Retraction.IsRetracted {
			s.RetractedCount++
		}
		if r.Unscored {
			s.UnscoredCount++
		}
		score := 0
		if r.Retraction.IsRetracted {
			score = 100
		} else if r.Scoring != nil {
			score = r.Scoring.Score
		}
		if score >= highRiskThreshold {
			s.HighRiskCount++
		}
	}
	return s
}
