package model

import "time"

// EcoMetrics is the savings estimate for one generation, or an accumulated total.
type EcoMetrics struct {
	TokensUsed              int64   `json:"tokensUsed"`
	EstimatedBaselineTokens int64   `json:"estimatedBaselineTokens"`
	TokensSaved             int64   `json:"tokensSaved"`
	EnergySavedKWh          float64 `json:"energySavedKWh"`
	WaterSavedLitres        float64 `json:"waterSavedLitres"`
	CarbonSavedGrams        float64 `json:"carbonSavedGrams"`
}

// Add returns the field-wise sum of m and o.
func (m EcoMetrics) Add(o EcoMetrics) EcoMetrics {
	return EcoMetrics{
		TokensUsed:              m.TokensUsed + o.TokensUsed,
		EstimatedBaselineTokens: m.EstimatedBaselineTokens + o.EstimatedBaselineTokens,
		TokensSaved:             m.TokensSaved + o.TokensSaved,
		EnergySavedKWh:          m.EnergySavedKWh + o.EnergySavedKWh,
		WaterSavedLitres:        m.WaterSavedLitres + o.WaterSavedLitres,
		CarbonSavedGrams:        m.CarbonSavedGrams + o.CarbonSavedGrams,
	}
}

// GlobalStats holds totals folded across every session.
type GlobalStats struct {
	TotalCarbonSaved float64 `json:"totalCarbonSaved"`
	TotalEnergySaved float64 `json:"totalEnergySaved"`
	TotalWaterSaved  float64 `json:"totalWaterSaved"`
	TotalTokensSaved int64   `json:"totalTokensSaved"`
}

// AuditEntry is one step marker emitted by the orchestration pipeline.
type AuditEntry struct {
	Agent     string    `json:"agent"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
