package nmf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/quantforge/synth/models"
)

// SynthesisMethod tags how a candidate parameter vector was produced.
type SynthesisMethod string

const (
	MethodAmplification SynthesisMethod = "amplification"
	MethodNovelCombo    SynthesisMethod = "novel_combination"
	MethodGapFilling    SynthesisMethod = "gap_filling"
)

// FactorCombination is one synthesized candidate: a factor-weight vector
// and the gene vector it decodes to.
type FactorCombination struct {
	Weights      []float64       `json:"weights"` // length NumFactors
	Genes        []float64       `json:"genes"`   // length GeneCount, clamped >= 0
	Method       SynthesisMethod `json:"method"`
	NoveltyScore float64         `json:"novelty_score"`
}

// Correlation bands used when amplifying factors.
const (
	amplifyCorrelation = 0.1
	amplifyBoost       = 1.5
	amplifySuppress    = 0.5
)

// gapAttempts bounds the rejection sampling per gap-filling candidate.
const gapAttempts = 50

// SynthesizeStrategies decomposes the snapshots and produces count novel
// candidates, cycling through the three synthesis methods: amplification
// of fitness-correlated factors, pairing of rarely co-occurring factors,
// and sampling of unoccupied regions of factor space.
func (e *Engine) SynthesizeStrategies(snapshots []models.DNASnapshot, count int) ([]FactorCombination, error) {
	if count < 1 {
		return nil, fmt.Errorf("candidate count %d invalid", count)
	}
	dec, err := e.Decompose(snapshots)
	if err != nil {
		return nil, fmt.Errorf("synthesis decomposition: %w", err)
	}

	out := make([]FactorCombination, 0, count)
	for i := 0; i < count; i++ {
		var cand FactorCombination
		switch i % 3 {
		case 0:
			cand = e.amplify(dec, snapshots)
		case 1:
			cand = e.novelCombination(dec)
		default:
			cand = e.gapFill(dec)
		}
		cand.Genes = decode(cand.Weights, dec.H)
		cand.NoveltyScore = e.novelty(dec.W, cand.Weights)
		out = append(out, cand)
	}
	e.logger.Info().Int("count", len(out)).Msg("synthesized factor combinations")
	return out, nil
}

// amplify starts from the fittest bot's factor weights, scales up factors
// positively correlated with fitness and suppresses negatively correlated
// ones.
func (e *Engine) amplify(dec *Decomposition, snapshots []models.DNASnapshot) FactorCombination {
	best := 0
	for i, s := range snapshots {
		if s.Fitness > snapshots[best].Fitness {
			best = i
		}
	}
	k := len(dec.Factors)
	weights := make([]float64, k)
	for f := 0; f < k; f++ {
		w := dec.W.At(best, f)
		switch corr := dec.Factors[f].FitnessCorrelation; {
		case corr > amplifyCorrelation:
			w *= amplifyBoost
		case corr < -amplifyCorrelation:
			w *= amplifySuppress
		}
		weights[f] = w
	}
	return FactorCombination{Weights: weights, Method: MethodAmplification}
}

// novelCombination pairs the two factors that co-occur least across the
// current population and activates them together at their typical
// magnitudes.
func (e *Engine) novelCombination(dec *Decomposition) FactorCombination {
	n, k := dec.W.Dims()
	if k < 2 {
		return e.gapFill(dec)
	}

	means := make([]float64, k)
	for f := 0; f < k; f++ {
		for b := 0; b < n; b++ {
			means[f] += dec.W.At(b, f)
		}
		means[f] /= float64(n)
	}

	// Co-occurrence of two factors: summed product of their per-bot
	// activations. Low product means no existing bot uses both.
	bestI, bestJ := 0, 1
	lowest := math.Inf(1)
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			co := 0.0
			for b := 0; b < n; b++ {
				co += dec.W.At(b, i) * dec.W.At(b, j)
			}
			if co < lowest {
				lowest, bestI, bestJ = co, i, j
			}
		}
	}

	weights := make([]float64, k)
	for f := 0; f < k; f++ {
		weights[f] = means[f] * 0.25
	}
	weights[bestI] = means[bestI] * amplifyBoost
	weights[bestJ] = means[bestJ] * amplifyBoost
	return FactorCombination{Weights: weights, Method: MethodNovelCombo}
}

// gapFill samples random points in factor space and keeps the first one
// whose distance from every existing bot clears the configured threshold.
// When sampling keeps landing near the population the farthest draw wins,
// so synthesis always yields a candidate.
func (e *Engine) gapFill(dec *Decomposition) FactorCombination {
	n, k := dec.W.Dims()

	maxW := make([]float64, k)
	for f := 0; f < k; f++ {
		for b := 0; b < n; b++ {
			if w := dec.W.At(b, f); w > maxW[f] {
				maxW[f] = w
			}
		}
		if maxW[f] == 0 {
			maxW[f] = 1
		}
	}

	var bestWeights []float64
	bestDist := -1.0
	for attempt := 0; attempt < gapAttempts; attempt++ {
		weights := make([]float64, k)
		for f := 0; f < k; f++ {
			weights[f] = e.rng.Float64() * maxW[f] * 1.5
		}
		dist := minDistance(dec.W, weights)
		if dist > bestDist {
			bestDist = dist
			bestWeights = weights
		}
		if dist >= e.cfg.GapDistance {
			break
		}
	}
	return FactorCombination{Weights: bestWeights, Method: MethodGapFilling}
}

// decode maps factor weights back to gene space (weights · H), clamped
// non-negative so the result is a valid DNA vector.
func decode(weights []float64, h *mat.Dense) []float64 {
	_, g := h.Dims()
	genes := make([]float64, g)
	for j := 0; j < g; j++ {
		total := 0.0
		for f, w := range weights {
			total += w * h.At(f, j)
		}
		genes[j] = math.Max(0, total)
	}
	return genes
}

// novelty normalizes the candidate's factor-space distance from the
// nearest existing bot against the gap threshold.
func (e *Engine) novelty(w *mat.Dense, weights []float64) float64 {
	dist := minDistance(w, weights)
	return math.Min(dist/(e.cfg.GapDistance*2), 1)
}

func minDistance(w *mat.Dense, point []float64) float64 {
	n, k := w.Dims()
	lowest := math.Inf(1)
	for b := 0; b < n; b++ {
		total := 0.0
		for f := 0; f < k; f++ {
			d := w.At(b, f) - point[f]
			total += d * d
		}
		if dist := math.Sqrt(total); dist < lowest {
			lowest = dist
		}
	}
	return lowest
}
