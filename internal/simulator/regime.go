package simulator

import (
	"math"

	"github.com/quantforge/synth/models"
)

// Regime classification thresholds, tuned against the same bands the
// enrichment layer uses for its own labels.
const (
	trendStrengthFloor = 0.6
	breakoutVolumeMin  = 2.0
	eventJumpPct       = 0.03
	volatileATRRatio   = 0.02
	quietATRRatio      = 0.005
	quietVolumeMax     = 0.8
)

// ClassifyRegime labels an event that arrived without a regime, using its
// indicator snapshot and the jump from the previous event. It is the
// fallback only; events that carry a label keep it.
func ClassifyRegime(prev, cur *models.MarketEvent) models.Regime {
	snap := cur.Snapshot()

	// A large single-event price jump marks an event-driven market before
	// anything else gets a say.
	if prev != nil && prev.Price > 0 {
		jump := math.Abs(cur.Price-prev.Price) / prev.Price
		if jump > eventJumpPct {
			return models.RegimeEvent
		}
	}

	atrRatio := 0.0
	if cur.Price > 0 {
		atrRatio = snap.ATR / cur.Price
	}

	if math.Abs(snap.TrendStrength) > trendStrengthFloor {
		return models.RegimeTrending
	}
	if snap.VolumeRatio > breakoutVolumeMin && (snap.BollingerPosition > 0.9 || snap.BollingerPosition < 0.1) {
		return models.RegimeBreakout
	}
	if atrRatio > volatileATRRatio {
		return models.RegimeVolatile
	}
	if atrRatio < quietATRRatio && snap.VolumeRatio < quietVolumeMax {
		return models.RegimeQuiet
	}
	return models.RegimeRanging
}
