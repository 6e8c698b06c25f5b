package validator

import (
	"math"
	"time"

	"github.com/quantforge/synth/internal/simulator"
	"github.com/quantforge/synth/internal/tree"
	"github.com/quantforge/synth/models"
)

// structuralSampleSize caps how many events the structural stage replays
// when counting sample trades.
const structuralSampleSize = 100

// structuralStage rejects candidates that are malformed or could not
// plausibly trade: invalid trees, trees without an action node, trees that
// barely trade over a sample, and trees that churn past the daily rate
// ceiling.
func (v *Validator) structuralStage(strategy *tree.Node) models.ValidationResult {
	result := models.ValidationResult{
		Stage:     models.StageStructural,
		Timestamp: time.Now(),
		Details:   map[string]any{},
	}

	if strategy == nil {
		result.Details["reason"] = "no executable strategy"
		return result
	}
	checks := 0
	passed := 0

	checks++
	if err := strategy.Validate(v.cfg.Limits); err != nil {
		result.Details["reason"] = err.Error()
	} else {
		passed++
	}

	checks++
	if strategy.HasAction() {
		passed++
	} else {
		result.Details["reason"] = "no action node"
	}

	sample := v.history
	if len(sample) > structuralSampleSize {
		sample = sample[:structuralSampleSize]
	}
	res := v.sim.Run(strategy, sample)
	result.Details["sampleTrades"] = len(res.Trades)

	checks++
	if len(res.Trades) >= v.cfg.MinSampleTrades {
		passed++
	} else {
		result.Details["reason"] = "sampleTrades below minimum"
		result.Details["minSampleTrades"] = v.cfg.MinSampleTrades
	}

	checks++
	rate := dailyTradeRate(res.Trades, sample)
	result.Details["dailyTradeRate"] = rate
	if rate <= v.cfg.MaxDailyTrades {
		passed++
	} else {
		result.Details["reason"] = "daily trade rate above ceiling"
	}

	result.Score = float64(passed) / float64(checks)
	result.Passed = passed == checks
	return result
}

func dailyTradeRate(trades []simulator.Trade, events []models.MarketEvent) float64 {
	if len(trades) == 0 || len(events) < 2 {
		return 0
	}
	span := events[len(events)-1].Timestamp.Sub(events[0].Timestamp)
	days := span.Hours() / 24
	if days <= 0 {
		days = 1
	}
	return float64(len(trades)) / days
}

// walkForwardStage is the primary anti-overfitting defense: the history is
// split into chronological folds, and for each boundary the candidate's
// in-sample window (everything before) is compared with the next fold out
// of sample. It demands both enough profitable out-of-sample folds and an
// out-of-sample/in-sample return ratio above the degradation floor.
func (v *Validator) walkForwardStage(strategy *tree.Node) models.ValidationResult {
	result := models.ValidationResult{
		Stage:     models.StageWalkForward,
		Timestamp: time.Now(),
		Details:   map[string]any{},
	}

	foldSize := len(v.history) / v.cfg.Folds
	if foldSize == 0 {
		result.Details["reason"] = "history too short"
		return result
	}

	profitable := 0
	boundaries := v.cfg.Folds - 1
	var inTotal, outTotal float64
	for k := 1; k <= boundaries; k++ {
		inEnd := k * foldSize
		outEnd := inEnd + foldSize
		if k == boundaries {
			outEnd = len(v.history)
		}
		// Training on everything before the boundary is conceptual (no
		// parameters are refit). The in-sample return is measured over the
		// trailing fold of the training window so the degradation ratio
		// compares windows of equal length.
		inStart := inEnd - foldSize
		inRes := v.sim.Run(strategy, v.history[inStart:inEnd])
		outRes := v.sim.Run(strategy, v.history[inEnd:outEnd])
		inTotal += inRes.TotalReturn
		outTotal += outRes.TotalReturn
		if outRes.TotalReturn > 0 {
			profitable++
		}
	}

	avgIn := inTotal / float64(boundaries)
	avgOut := outTotal / float64(boundaries)
	ratio := simulator.DegradationRatio(avgIn, avgOut)

	result.Details["folds"] = v.cfg.Folds
	result.Details["profitableFolds"] = profitable
	result.Details["inSampleReturn"] = avgIn
	result.Details["outOfSampleReturn"] = avgOut
	result.Details["degradationRatio"] = ratio

	foldsOK := profitable >= v.cfg.MinProfitableFolds
	ratioOK := ratio >= v.cfg.DegradationFloor
	if !foldsOK {
		result.Details["reason"] = "too few profitable out-of-sample folds"
	} else if !ratioOK {
		result.Details["reason"] = "out-of-sample degradation below floor"
	}

	result.Score = clampScore(0.6*float64(profitable)/float64(boundaries) + 0.4*math.Min(ratio, 1))
	result.Passed = foldsOK && ratioOK
	return result
}

// regimeStressStage re-simulates the candidate restricted to each regime
// label, requiring profitability in at least two regimes and capping the
// worst single-regime loss.
func (v *Validator) regimeStressStage(strategy *tree.Node) models.ValidationResult {
	result := models.ValidationResult{
		Stage:     models.StageRegimeStress,
		Timestamp: time.Now(),
		Details:   map[string]any{},
	}

	byRegime := make(map[models.Regime][]models.MarketEvent)
	var prev *models.MarketEvent
	for i := range v.history {
		ev := v.history[i]
		regime := ev.Regime
		if regime == "" {
			regime = simulator.ClassifyRegime(prev, &ev)
		}
		byRegime[regime] = append(byRegime[regime], ev)
		prev = &v.history[i]
	}

	tested := 0
	profitable := 0
	worstLoss := 0.0
	regimeReturns := make(map[string]float64)
	for _, regime := range models.AllRegimes {
		events := byRegime[regime]
		if len(events) < v.cfg.MinRegimeEvents {
			continue
		}
		tested++
		res := v.sim.Run(strategy, events)
		regimeReturns[string(regime)] = res.TotalReturn
		if res.TotalReturn > 0 {
			profitable++
		}
		if res.TotalReturn < worstLoss {
			worstLoss = res.TotalReturn
		}
	}

	result.Details["regimesTested"] = tested
	result.Details["profitableRegimes"] = profitable
	result.Details["worstRegimeLoss"] = worstLoss
	result.Details["regimeReturns"] = regimeReturns

	profitOK := profitable >= v.cfg.MinProfitableRegimes
	lossOK := worstLoss >= -v.cfg.MaxRegimeLoss
	if !profitOK {
		result.Details["reason"] = "profitable in too few regimes"
	} else if !lossOK {
		result.Details["reason"] = "single-regime loss beyond ceiling"
	}

	score := 0.0
	if tested > 0 {
		score = 0.7 * float64(profitable) / float64(tested)
		if lossOK {
			score += 0.3
		}
	}
	result.Score = clampScore(score)
	result.Passed = profitOK && lossOK
	return result
}

func clampScore(s float64) float64 {
	return math.Max(0, math.Min(s, 1))
}
