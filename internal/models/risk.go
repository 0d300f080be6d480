// internal/models/risk.go
package models

// RiskLevel is a classified score band with its display metadata.
type RiskLevel struct {
	Level       string `json:"level"`
	Label       string `json:"label"`
	Color       string `json:"color"`
	Description string `json:"description"`
}

// ClassifyRisk maps a 0-100 credibility-risk score onto the display
// ladder. Boundaries are inclusive at the lower edge of each band.
func ClassifyRisk(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskLevel{
			Level:       "very-high",
			Label:       "Very High Risk",
			Color:       "#DC2626",
			Description: "Multiple sources indicate this is likely a predatory journal. Avoid publishing here.",
		}
	case score >= 60:
		return RiskLevel{
			Level:       "high",
			Label:       "High Risk",
			Color:       "#EA580C",
			Description: "Strong evidence suggests predatory practices. Exercise extreme caution.",
		}
	case score >= 40:
		return RiskLevel{
			Level:       "moderate",
			Label:       "Moderate Risk",
			Color:       "#F59E0B",
			Description: "Some concerning indicators found. Research thoroughly before submission.",
		}
	case score >= 20:
		return RiskLevel{
			Level:       "low",
			Label:       "Low Risk",
			Color:       "#84CC16",
			Description: "Minor concerns. Verify journal credibility independently.",
		}
	default:
		return RiskLevel{
			Level:       "minimal",
			Label:       "Minimal Risk",
			Color:       "#22C55E",
			Description: "No major red flags detected in our databases.",
		}
	}
}

// RetractedRiskLevel is the forced classification for a retracted work,
// regardless of any watchlist evidence.
func RetractedRiskLevel() RiskLevel {
	return RiskLevel{
		Level:       "very-high",
		Label:       "RETRACTED",
		Color:       "#DC2626",
		Description: "This paper has been officially retracted.",
	}
}
