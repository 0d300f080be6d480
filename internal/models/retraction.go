// internal/models/retraction.go
package models

// RetractionStatus is a registry verdict for one reference. When
// IsRetracted is false every other field stays empty.
type RetractionStatus struct {
	IsRetracted bool     `json:"isRetracted"`
	Sources     []string `json:"retractionSource"`
	Date        string   `json:"retractionDate,omitempty"`
	Reason      string   `json:"retractionReason,omitempty"`
	Notice      string   `json:"retractionNotice,omitempty"`
	NoticeLink  string   `json:"noticeLink,omitempty"`
	Explanation string   `json:"detailedExplanation,omitempty"`
}

// AddSource appends a source tag if it is not already present.
func (s *RetractionStatus) AddSource(source string) {
	for _, t := range s.Sources {
		if t == source {
			return
		}
	}
	s.Sources = append(s.Sources, source)
}
