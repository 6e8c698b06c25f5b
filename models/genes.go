package models

// GeneCount is the fixed length of every bot's gene vector.
const GeneCount = 50

// GeneCategory groups genes for factor interpretation.
type GeneCategory string

const (
	CategoryRisk          GeneCategory = "risk"
	CategoryTrendFollow   GeneCategory = "trend-following"
	CategoryMeanReversion GeneCategory = "mean-reversion"
	CategoryTiming        GeneCategory = "timing"
	CategorySizing        GeneCategory = "sizing"
)

// GeneNames fixes the order and meaning of the 50 bot parameters. The
// external arena owns the live values; this core only reads them.
var GeneNames = [GeneCount]string{
	// risk (0-9)
	"stop_loss_pct", "take_profit_pct", "max_drawdown_tolerance", "trailing_stop_pct",
	"risk_per_trade", "max_open_exposure", "loss_streak_cutoff", "volatility_scaling",
	"drawdown_recovery_factor", "tail_risk_guard",
	// trend-following (10-19)
	"trend_entry_threshold", "trend_exit_threshold", "adx_floor", "ema_fast_period",
	"ema_slow_period", "breakout_lookback", "momentum_weight", "trend_confirmation_bars",
	"pullback_tolerance", "trend_strength_filter",
	// mean-reversion (20-29)
	"rsi_oversold", "rsi_overbought", "bollinger_entry_band", "bollinger_exit_band",
	"reversion_half_life", "zscore_entry", "zscore_exit", "range_filter_width",
	"fade_strength", "reversion_confirmation",
	// timing (30-39)
	"entry_delay_bars", "exit_delay_bars", "session_open_weight", "session_close_weight",
	"event_cooldown", "signal_refresh_rate", "hold_time_min", "hold_time_max",
	"reentry_cooldown", "stale_signal_cutoff",
	// sizing (40-49)
	"base_position_size", "size_volatility_divisor", "pyramid_steps", "pyramid_scale",
	"confidence_size_mult", "regime_size_mult", "kelly_fraction", "min_position_size",
	"max_position_size", "rebalance_threshold",
}

// GeneCategoryOf maps a gene index to its category block.
func GeneCategoryOf(idx int) GeneCategory {
	switch {
	case idx < 10:
		return CategoryRisk
	case idx < 20:
		return CategoryTrendFollow
	case idx < 30:
		return CategoryMeanReversion
	case idx < 40:
		return CategoryTiming
	default:
		return CategorySizing
	}
}

// DNASnapshot is a read-only view of one bot's parameters at a point in
// time: identifier, fitness, and the fixed-order non-negative gene vector.
type DNASnapshot struct {
	BotID   string    `json:"bot_id"`
	Fitness float64   `json:"fitness"`
	Genes   []float64 `json:"genes"` // length GeneCount, all >= 0
}
