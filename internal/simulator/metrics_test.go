package simulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/synth/models"
)

func TestDeriveMetricsEmptyRun(t *testing.T) {
	m := DeriveMetrics(Result{})
	assert.Zero(t, m.TradeCount)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.ProfitFactor)
	assert.NotNil(t, m.RegimeReturns)
	assert.NotNil(t, m.RegimeTrades)
}

func TestDeriveMetricsWinRateAndProfitFactor(t *testing.T) {
	res := Result{
		TotalReturn: 0.05,
		Trades: []Trade{
			{PnL: 0.04, Regime: models.RegimeTrending},
			{PnL: 0.02, Regime: models.RegimeTrending},
			{PnL: -0.02, Regime: models.RegimeRanging},
			{PnL: -0.01, Regime: models.RegimeRanging},
		},
	}
	m := DeriveMetrics(res)

	assert.InDelta(t, 0.5, m.WinRate, 1e-12)
	assert.InDelta(t, 2.0, m.ProfitFactor, 1e-9) // 0.06 / 0.03
	assert.Equal(t, 4, m.TradeCount)
	assert.InDelta(t, 0.06, m.RegimeReturns[models.RegimeTrending], 1e-12)
	assert.InDelta(t, -0.03, m.RegimeReturns[models.RegimeRanging], 1e-12)
	assert.Equal(t, 2, m.RegimeTrades[models.RegimeTrending])
}

func TestProfitFactorCappedWithoutLosers(t *testing.T) {
	res := Result{Trades: []Trade{{PnL: 0.01}, {PnL: 0.03}}}
	m := DeriveMetrics(res)
	assert.Equal(t, profitFactorCap, m.ProfitFactor)
	assert.Equal(t, 1.0, m.WinRate)
}

func TestSharpePositiveForConsistentWinners(t *testing.T) {
	res := Result{Trades: []Trade{{PnL: 0.01}, {PnL: 0.012}, {PnL: 0.009}, {PnL: 0.011}}}
	m := DeriveMetrics(res)
	assert.Positive(t, m.SharpeRatio)
	// No losing trades, so no downside deviation.
	assert.Zero(t, m.SortinoRatio)
}

func TestDegradationRatio(t *testing.T) {
	tests := []struct {
		name     string
		in, out  float64
		expected float64
	}{
		{"flat in-sample", 0, 0.1, 0},
		{"losing in-sample", -0.05, 0.1, 0},
		{"half retained", 0.10, 0.05, 0.5},
		{"fully retained", 0.10, 0.10, 1},
		{"clamped above two", 0.01, 0.10, 2},
		{"negative out-of-sample floors at zero", 0.10, -0.05, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, DegradationRatio(tt.in, tt.out), 1e-12)
		})
	}
}

func regimeEvent(price, atr, trend, volRatio, bb float64) *models.MarketEvent {
	return &models.MarketEvent{
		Price: price,
		Indicators: &models.IndicatorSnapshot{
			RSI:               50,
			ATR:               atr,
			TrendStrength:     trend,
			VolumeRatio:       volRatio,
			BollingerPosition: bb,
		},
	}
}

func TestClassifyRegime(t *testing.T) {
	tests := []struct {
		name     string
		prev     *models.MarketEvent
		cur      *models.MarketEvent
		expected models.Regime
	}{
		{
			"price jump wins over everything",
			regimeEvent(100, 0, 0.9, 1, 0.5),
			regimeEvent(105, 0, 0.9, 1, 0.5),
			models.RegimeEvent,
		},
		{
			"strong trend",
			nil,
			regimeEvent(100, 0.5, 0.8, 1, 0.5),
			models.RegimeTrending,
		},
		{
			"strong downtrend counts too",
			nil,
			regimeEvent(100, 0.5, -0.8, 1, 0.5),
			models.RegimeTrending,
		},
		{
			"volume surge at band edge is a breakout",
			nil,
			regimeEvent(100, 0.5, 0.1, 2.5, 0.95),
			models.RegimeBreakout,
		},
		{
			"high atr is volatile",
			nil,
			regimeEvent(100, 3, 0.1, 1, 0.5),
			models.RegimeVolatile,
		},
		{
			"low atr and thin volume is quiet",
			nil,
			regimeEvent(100, 0.1, 0.1, 0.5, 0.5),
			models.RegimeQuiet,
		},
		{
			"everything else ranges",
			nil,
			regimeEvent(100, 1, 0.1, 1, 0.5),
			models.RegimeRanging,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyRegime(tt.prev, tt.cur))
		})
	}
}

func TestClassifyRegimeNilIndicators(t *testing.T) {
	cur := &models.MarketEvent{Price: 100}
	// Neutral snapshot defaults land in the quiet band.
	require.NotPanics(t, func() { ClassifyRegime(nil, cur) })
}
