package genetic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantforge/synth/models"
)

func healthyMetrics() *models.StrategyMetrics {
	return &models.StrategyMetrics{
		TotalReturn:      0.12,
		SharpeRatio:      1.5,
		WinRate:          0.6,
		MaxDrawdown:      0.10,
		TradeCount:       40,
		DegradationRatio: 0.9,
		RegimeReturns: map[models.Regime]float64{
			models.RegimeTrending: 0.08,
			models.RegimeRanging:  0.02,
		},
	}
}

func TestFitnessZeroTradeCandidateScoresExactlyZero(t *testing.T) {
	m := healthyMetrics()
	m.TradeCount = 0
	assert.Zero(t, Fitness(m, 5, 0.25))
}

func TestFitnessBelowMinTradesIsHardZero(t *testing.T) {
	m := healthyMetrics()
	m.TradeCount = 4
	assert.Zero(t, Fitness(m, 5, 0.25))
}

func TestFitnessDrawdownBreachIsHardZero(t *testing.T) {
	m := healthyMetrics()
	m.MaxDrawdown = 0.30
	assert.Zero(t, Fitness(m, 5, 0.25))
}

func TestFitnessNilMetrics(t *testing.T) {
	assert.Zero(t, Fitness(nil, 5, 0.25))
}

func TestFitnessHealthyStrategyScoresInUnitRange(t *testing.T) {
	score := Fitness(healthyMetrics(), 5, 0.25)
	assert.Greater(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestFitnessHandlesNaNInputs(t *testing.T) {
	m := healthyMetrics()
	m.SharpeRatio = math.NaN()
	m.TotalReturn = math.Inf(1)
	score := Fitness(m, 5, 0.25)
	assert.False(t, math.IsNaN(score))
	assert.False(t, math.IsInf(score, 0))
	assert.GreaterOrEqual(t, score, 0.0)
}

func TestFitnessRewardsLowerDegradation(t *testing.T) {
	robust := healthyMetrics()
	robust.DegradationRatio = 1.0
	overfit := healthyMetrics()
	overfit.DegradationRatio = 0.1
	assert.Greater(t, Fitness(robust, 5, 0.25), Fitness(overfit, 5, 0.25))
}

func TestRegimeDiversityScore(t *testing.T) {
	tests := []struct {
		name     string
		returns  map[models.Regime]float64
		expected float64
	}{
		{"no regimes", nil, 0},
		{"all profitable", map[models.Regime]float64{
			models.RegimeTrending: 0.05, models.RegimeRanging: 0.02,
		}, 1},
		{"half profitable", map[models.Regime]float64{
			models.RegimeTrending: 0.05, models.RegimeRanging: -0.01,
		}, 0.5},
		{"catastrophic loss halves the score", map[models.Regime]float64{
			models.RegimeTrending: 0.05, models.RegimeVolatile: -0.10,
		}, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &models.StrategyMetrics{RegimeReturns: tt.returns}
			assert.InDelta(t, tt.expected, regimeDiversityScore(m), 1e-12)
		})
	}
}

func TestAdjustedParsimonyPressure(t *testing.T) {
	assert.InDelta(t, 0.48, Adjusted(0.5, 10, 0.002), 1e-12)
	// Bigger tree, same raw score, lower adjusted score.
	assert.Less(t, Adjusted(0.5, 60, 0.002), Adjusted(0.5, 10, 0.002))
	// Floored at zero rather than going negative.
	assert.Zero(t, Adjusted(0.01, 100, 0.002))
}
