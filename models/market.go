package models

import "time"

// Regime is a categorical label describing prevailing market conditions.
type Regime string

const (
	RegimeTrending Regime = "TRENDING"
	RegimeRanging  Regime = "RANGING"
	RegimeVolatile Regime = "VOLATILE"
	RegimeBreakout Regime = "BREAKOUT"
	RegimeEvent    Regime = "EVENT"
	RegimeQuiet    Regime = "QUIET"
)

// AllRegimes lists every regime label in a fixed order.
var AllRegimes = []Regime{
	RegimeTrending,
	RegimeRanging,
	RegimeVolatile,
	RegimeBreakout,
	RegimeEvent,
	RegimeQuiet,
}

// Action is the decision a strategy emits for a single market event.
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionHold  Action = "HOLD"
	ActionClose Action = "CLOSE"
)

// IndicatorSnapshot carries the pre-computed per-timestamp indicators
// supplied by the enrichment layer. All values are point-in-time.
type IndicatorSnapshot struct {
	RSI               float64 `json:"rsi"`
	MACDHistogram     float64 `json:"macd_histogram"`
	BollingerPosition float64 `json:"bollinger_position"`
	ATR               float64 `json:"atr"`
	VolumeRatio       float64 `json:"volume_ratio"`
	TrendStrength     float64 `json:"trend_strength"`
	PriceVsSMA        float64 `json:"price_vs_sma"`
	PriceVsEMA        float64 `json:"price_vs_ema"`
}

// NeutralSnapshot returns the documented fallback when an event arrives
// without indicators: RSI at its midpoint, bollinger position centered,
// every delta zero.
func NeutralSnapshot() *IndicatorSnapshot {
	return &IndicatorSnapshot{
		RSI:               50,
		BollingerPosition: 0.5,
	}
}

// MarketEvent is one element of the ordered historical event stream.
// Indicators may be nil and Regime may be empty; consumers fall back to
// NeutralSnapshot and regime classification rather than failing.
type MarketEvent struct {
	Timestamp  time.Time          `json:"timestamp"`
	Price      float64            `json:"price"`
	Volume     float64            `json:"volume"`
	Indicators *IndicatorSnapshot `json:"indicators,omitempty"`
	Regime     Regime             `json:"regime,omitempty"`
}

// Snapshot returns the event's indicators, falling back to neutral defaults.
func (e *MarketEvent) Snapshot() *IndicatorSnapshot {
	if e.Indicators != nil {
		return e.Indicators
	}
	return NeutralSnapshot()
}
