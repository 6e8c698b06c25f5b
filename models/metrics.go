package models

// StrategyMetrics summarizes one backtest of one strategy. Computed fresh
// on every run, never partially updated.
type StrategyMetrics struct {
	TotalReturn       float64 `json:"total_return"`
	SharpeRatio       float64 `json:"sharpe_ratio"`
	SortinoRatio      float64 `json:"sortino_ratio"`
	MaxDrawdown       float64 `json:"max_drawdown"`
	WinRate           float64 `json:"win_rate"`
	ProfitFactor      float64 `json:"profit_factor"`
	TradeCount        int     `json:"trade_count"`
	InSampleReturn    float64 `json:"in_sample_return"`
	OutOfSampleReturn float64 `json:"out_of_sample_return"`

	// DegradationRatio is out-of-sample return over in-sample return,
	// defined as 0 when the in-sample return is 0.
	DegradationRatio float64 `json:"degradation_ratio"`

	RegimeReturns     map[Regime]float64 `json:"regime_returns,omitempty"`
	RegimeTrades      map[Regime]int     `json:"regime_trades,omitempty"`
	ComplexityPenalty float64            `json:"complexity_penalty"`
}
