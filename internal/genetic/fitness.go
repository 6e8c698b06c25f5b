package genetic

import (
	"math"

	"github.com/quantforge/synth/models"
)

// Fitness blend weights. They sum to 1 so the raw score stays comparable
// across configurations.
const (
	weightReturn      = 0.25
	weightSharpe      = 0.20
	weightWinRate     = 0.15
	weightActivity    = 0.10
	weightDegradation = 0.20
	weightRegime      = 0.10
)

// catastrophicLoss is the per-regime return below which a strategy is
// treated as blowing up in that regime.
const catastrophicLoss = -0.05

// activityTarget is the trade count at which the activity reward saturates.
const activityTarget = 50.0

// Fitness scores one strategy's metrics. It is deliberately harsh: too few
// trades or too deep a drawdown is a hard zero, not a penalty, so such
// candidates cannot ride a strong partial score into the next generation.
// The result is always finite and non-negative; zero-trade candidates
// score exactly 0.
func Fitness(m *models.StrategyMetrics, minTrades int, maxDrawdown float64) float64 {
	if m == nil || m.TradeCount < minTrades {
		return 0
	}
	if m.MaxDrawdown > maxDrawdown {
		return 0
	}

	returnScore := clamp01((math.Tanh(m.TotalReturn*10) + 1) / 2)
	sharpeScore := clamp01(m.SharpeRatio / 3)
	winScore := clamp01(m.WinRate)
	activityScore := clamp01(float64(m.TradeCount) / activityTarget)
	degradationScore := clamp01(m.DegradationRatio)

	score := weightReturn*returnScore +
		weightSharpe*sharpeScore +
		weightWinRate*winScore +
		weightActivity*activityScore +
		weightDegradation*degradationScore +
		weightRegime*regimeDiversityScore(m)

	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return 0
	}
	return score
}

// regimeDiversityScore rewards profitability spread across regimes and
// halves the score when any single regime shows a catastrophic loss.
func regimeDiversityScore(m *models.StrategyMetrics) float64 {
	if len(m.RegimeReturns) == 0 {
		return 0
	}
	profitable := 0
	catastrophic := false
	for _, ret := range m.RegimeReturns {
		if ret > 0 {
			profitable++
		}
		if ret < catastrophicLoss {
			catastrophic = true
		}
	}
	score := float64(profitable) / float64(len(m.RegimeReturns))
	if catastrophic {
		score *= 0.5
	}
	return score
}

// Adjusted applies parsimony pressure: raw fitness minus a penalty
// proportional to tree size, floored at zero. Selection always compares
// adjusted fitness, which is the primary anti-bloat mechanism.
func Adjusted(fitness float64, nodeCount int, parsimony float64) float64 {
	adjusted := fitness - parsimony*float64(nodeCount)
	if adjusted < 0 {
		return 0
	}
	return adjusted
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Max(0, math.Min(x, 1))
}
