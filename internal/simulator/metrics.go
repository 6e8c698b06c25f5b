package simulator

import (
	"math"

	"github.com/quantforge/synth/models"
)

// profitFactorCap bounds the profit factor when a run has winners but no
// losers, so downstream scoring never sees Inf.
const profitFactorCap = 10.0

// DeriveMetrics computes the full StrategyMetrics for one simulation run.
// In-sample / out-of-sample fields are the caller's to fill; everything
// else comes from the trade list and equity curve.
func DeriveMetrics(res Result) *models.StrategyMetrics {
	m := &models.StrategyMetrics{
		TotalReturn:   res.TotalReturn,
		MaxDrawdown:   res.MaxDrawdown,
		TradeCount:    len(res.Trades),
		RegimeReturns: make(map[models.Regime]float64),
		RegimeTrades:  make(map[models.Regime]int),
	}
	if len(res.Trades) == 0 {
		return m
	}

	var wins int
	var grossProfit, grossLoss float64
	returns := make([]float64, 0, len(res.Trades))
	for _, t := range res.Trades {
		returns = append(returns, t.PnL)
		if t.PnL > 0 {
			wins++
			grossProfit += t.PnL
		} else {
			grossLoss += -t.PnL
		}
		m.RegimeReturns[t.Regime] += t.PnL
		m.RegimeTrades[t.Regime]++
	}

	m.WinRate = float64(wins) / float64(len(res.Trades))
	if grossLoss > 1e-12 {
		m.ProfitFactor = math.Min(grossProfit/grossLoss, profitFactorCap)
	} else if grossProfit > 0 {
		m.ProfitFactor = profitFactorCap
	}

	m.SharpeRatio = sharpe(returns)
	m.SortinoRatio = sortino(returns)
	return m
}

// sharpe is the trade-return Sharpe ratio scaled by sqrt(n), zero risk-free
// rate assumed.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	sd := stdDev(returns, m)
	if sd == 0 {
		return 0
	}
	return m / sd * math.Sqrt(float64(len(returns)))
}

// sortino penalizes only downside deviation.
func sortino(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	var downside float64
	var count int
	for _, r := range returns {
		if r < 0 {
			downside += r * r
			count++
		}
	}
	if count == 0 {
		return 0
	}
	dd := math.Sqrt(downside / float64(count))
	if dd == 0 {
		return 0
	}
	return m / dd * math.Sqrt(float64(len(returns)))
}

// DegradationRatio is out-of-sample return over in-sample return, the
// overfitting proxy shared by the GP fitness blend and the walk-forward
// validation stage. Defined as 0 when the in-sample return is 0 (or
// negative: a strategy that loses in-sample earns no degradation credit)
// and clamped so a lucky out-of-sample spike cannot dominate a score.
func DegradationRatio(inSample, outOfSample float64) float64 {
	if inSample <= 0 {
		return 0
	}
	ratio := outOfSample / inSample
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}
	return math.Max(0, math.Min(ratio, 2))
}

func mean(xs []float64) float64 {
	total := 0.0
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}

func stdDev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	variance := 0.0
	for _, x := range xs {
		diff := x - m
		variance += diff * diff
	}
	variance /= float64(len(xs) - 1)
	return math.Sqrt(variance)
}
