package eco

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensUsed(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 40), 10},
		{strings.Repeat("x", 41), 11},
		{"héllo wörld", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TokensUsed(tt.text), "text %q", tt.text)
	}
}

func TestTokensUsed_NonEmptyAtLeastOne(t *testing.T) {
	for l := 1; l <= 64; l++ {
		got := TokensUsed(strings.Repeat("z", l))
		require.GreaterOrEqual(t, got, int64(1))
		require.Equal(t, int64((l+3)/4), got)
	}
}

func TestBaselineTokens_NeverBelowUsed(t *testing.T) {
	for used := int64(1); used <= 500; used++ {
		b := BaselineTokens(used)
		require.GreaterOrEqual(t, b, used)
		require.Equal(t, b, BaselineTokens(used), "must be pure")
	}
}

func TestEstimate_FortyCharScenario(t *testing.T) {
	m := Estimate(strings.Repeat("a", 40))

	assert.Equal(t, int64(10), m.TokensUsed)
	assert.Equal(t, int64(32), m.EstimatedBaselineTokens)
	assert.Equal(t, int64(22), m.TokensSaved)
	assert.InDelta(t, 0.000022, m.EnergySavedKWh, 1e-12)
	assert.InDelta(t, 0.0088, m.CarbonSavedGrams, 1e-12)
	assert.InDelta(t, 0.0033, m.WaterSavedLitres, 1e-12)
}

func TestCarbonFromEnergy_MonotonicInTokens(t *testing.T) {
	prev := CarbonFromEnergy(EnergyFromTokensSaved(0))
	assert.Zero(t, prev)
	for saved := int64(1); saved <= 5000; saved += 7 {
		cur := CarbonFromEnergy(EnergyFromTokensSaved(saved))
		require.GreaterOrEqual(t, cur, prev, "saved=%d", saved)
		prev = cur
	}
}

func TestCalculators_NegativeDeltaIsNotClamped(t *testing.T) {
	energy := EnergyFromTokensSaved(-1000)
	assert.InDelta(t, -0.001, energy, 1e-12)
	assert.InDelta(t, -0.4, CarbonFromEnergy(energy), 1e-12)
	assert.InDelta(t, -0.15, WaterFromTokensSaved(-1000), 1e-12)

	m := FromTokens(-10)
	assert.Negative(t, m.TokensSaved)
	assert.Negative(t, m.EnergySavedKWh)
	assert.Negative(t, m.CarbonSavedGrams)
	assert.Negative(t, m.WaterSavedLitres)
}

func TestFromTokens_Zero(t *testing.T) {
	m := FromTokens(0)
	assert.Zero(t, m.EstimatedBaselineTokens)
	assert.Zero(t, m.TokensSaved)
	assert.Zero(t, m.EnergySavedKWh)
}
