// Package eco converts token savings into energy, water, and carbon estimates.
//
// The figures are a deterministic heuristic, not measurements. All
// coefficients are fixed for the process and nothing here clamps: a negative
// token delta yields a negative quantity (a cost rather than a saving).
package eco

import (
	"math"
	"unicode/utf8"

	"github.com/greenstudio/greenstudio/internal/model"
)

const (
	KWhPer1KTokens         = 0.001
	GramsCO2PerKWh         = 400
	LitresWaterPer1KTokens = 0.15

	// VerbosityMultiplier is the assumed token inflation of a non-optimized
	// generator producing equivalent content.
	VerbosityMultiplier = 3.2

	charsPerToken = 4
)

// EnergyFromTokensSaved returns kWh saved for the given token delta.
func EnergyFromTokensSaved(tokensSaved int64) float64 {
	return (float64(tokensSaved) / 1000) * KWhPer1KTokens
}

// CarbonFromEnergy returns grams of CO2 displaced by energyKWh.
// Carbon derives from energy so any change to the energy formula carries through.
func CarbonFromEnergy(energyKWh float64) float64 {
	return energyKWh * GramsCO2PerKWh
}

// WaterFromTokensSaved returns litres of cooling water saved for the given token delta.
func WaterFromTokensSaved(tokensSaved int64) float64 {
	return (float64(tokensSaved) / 1000) * LitresWaterPer1KTokens
}

// TokensUsed approximates the token count of text as ceil(chars/4).
// Characters are counted as runes, so any non-empty text is at least one token.
func TokensUsed(text string) int64 {
	n := utf8.RuneCountInString(text)
	return int64((n + charsPerToken - 1) / charsPerToken)
}

// BaselineTokens is the token count a verbose generator is assumed to need.
func BaselineTokens(tokensUsed int64) int64 {
	return int64(math.Round(float64(tokensUsed) * VerbosityMultiplier))
}

// FromTokens builds the full metrics record for an actual token count.
func FromTokens(tokensUsed int64) model.EcoMetrics {
	baseline := BaselineTokens(tokensUsed)
	saved := baseline - tokensUsed
	energy := EnergyFromTokensSaved(saved)
	return model.EcoMetrics{
		TokensUsed:              tokensUsed,
		EstimatedBaselineTokens: baseline,
		TokensSaved:             saved,
		EnergySavedKWh:          energy,
		WaterSavedLitres:        WaterFromTokensSaved(saved),
		CarbonSavedGrams:        CarbonFromEnergy(energy),
	}
}

// Estimate computes the metrics for a generated text.
func Estimate(text string) model.EcoMetrics {
	return FromTokens(TokensUsed(text))
}
