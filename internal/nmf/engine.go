// Package nmf extracts reusable strategy principles from bot parameter
// vectors via non-negative matrix factorization and recombines them into
// novel parameter sets.
package nmf

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/quantforge/synth/internal/telemetry"
	"github.com/quantforge/synth/models"
)

// eps keeps the multiplicative-update denominators away from zero; together
// with the L2 terms it is what stops near-singular matrices from producing
// NaN.
const eps = 1e-10

// Config holds the decomposition knobs.
type Config struct {
	NumFactors    int
	MaxIterations int
	Tolerance     float64 // relative error change treated as converged
	Lambda        float64 // L2 regularization strength
	Restarts      int     // randomized restarts on a degenerate run
	GapDistance   float64 // factor-space distance for gap-filling candidates
	Seed          int64
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		NumFactors:    5,
		MaxIterations: 500,
		Tolerance:     1e-4,
		Lambda:        0.01,
		Restarts:      3,
		GapDistance:   2.0,
	}
}

// Decomposition is the immutable output of one decompose run.
type Decomposition struct {
	W                   *mat.Dense // bots x factors
	H                   *mat.Dense // factors x genes
	Factors             []LatentFactor
	ReconstructionError float64
	ErrorHistory        []float64
	Converged           bool
	Iterations          int
}

// Engine runs decompositions. The iterative solver is inherently
// sequential; independent engines may run concurrently.
type Engine struct {
	cfg       Config
	rng       *rand.Rand
	logger    zerolog.Logger
	collector *telemetry.Collector
}

func NewEngine(cfg Config, collector *telemetry.Collector) (*Engine, error) {
	if cfg.NumFactors < 1 {
		return nil, fmt.Errorf("num factors %d invalid", cfg.NumFactors)
	}
	if cfg.MaxIterations < 1 {
		return nil, fmt.Errorf("max iterations %d invalid", cfg.MaxIterations)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(seed)),
		logger:    log.With().Str("component", "nmf_engine").Logger(),
		collector: collector,
	}, nil
}

// Decompose factorizes the bots-by-genes matrix into non-negative W and H
// by multiplicative updates with L2 regularization, iterating until the
// relative reconstruction-error change drops below tolerance or the
// iteration cap is hit. A degenerate run (non-finite error) is retried
// with a fresh random initialization up to the configured restart budget.
func (e *Engine) Decompose(snapshots []models.DNASnapshot) (*Decomposition, error) {
	v, err := buildMatrix(snapshots)
	if err != nil {
		return nil, err
	}

	var dec *Decomposition
	attempt := func() error {
		dec = e.factorize(v)
		if !isFinite(dec.ReconstructionError) {
			return fmt.Errorf("degenerate factorization, error=%v", dec.ReconstructionError)
		}
		return nil
	}
	policy := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(e.cfg.Restarts))
	if err := backoff.Retry(attempt, policy); err != nil {
		return nil, fmt.Errorf("nmf failed after %d restarts: %w", e.cfg.Restarts, err)
	}

	dec.Factors = e.interpret(dec.W, dec.H, snapshots)
	e.collector.ObserveNMF(dec.Iterations)
	e.logger.Info().
		Int("bots", len(snapshots)).
		Int("factors", e.cfg.NumFactors).
		Int("iterations", dec.Iterations).
		Bool("converged", dec.Converged).
		Float64("error", dec.ReconstructionError).
		Msg("decomposition finished")
	return dec, nil
}

// buildMatrix copies the gene vectors into a dense matrix; the snapshots
// themselves are never mutated. Negative inputs are rejected, not clamped,
// because the arena contract says they cannot occur.
func buildMatrix(snapshots []models.DNASnapshot) (*mat.Dense, error) {
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("no snapshots to decompose")
	}
	v := mat.NewDense(len(snapshots), models.GeneCount, nil)
	for i, snap := range snapshots {
		if len(snap.Genes) != models.GeneCount {
			return nil, fmt.Errorf("bot %s gene vector length %d, want %d", snap.BotID, len(snap.Genes), models.GeneCount)
		}
		for j, g := range snap.Genes {
			if g < 0 {
				return nil, fmt.Errorf("bot %s gene %q is negative", snap.BotID, models.GeneNames[j])
			}
			v.Set(i, j, g)
		}
	}
	return v, nil
}

func (e *Engine) factorize(v *mat.Dense) *Decomposition {
	n, g := v.Dims()
	k := e.cfg.NumFactors

	// Random non-negative init scaled so W*H starts near V's magnitude.
	scale := math.Sqrt(matrixMean(v)/float64(k)) + eps
	w := randomMatrix(e.rng, n, k, scale)
	h := randomMatrix(e.rng, k, g, scale)

	dec := &Decomposition{ErrorHistory: make([]float64, 0, e.cfg.MaxIterations)}
	prevErr := math.Inf(1)

	for iter := 0; iter < e.cfg.MaxIterations; iter++ {
		updateH(v, w, h, e.cfg.Lambda)
		updateW(v, w, h, e.cfg.Lambda)

		recErr := reconstructionError(v, w, h)
		dec.ErrorHistory = append(dec.ErrorHistory, recErr)
		dec.Iterations = iter + 1

		if prevErr < math.Inf(1) {
			rel := math.Abs(prevErr-recErr) / math.Max(prevErr, eps)
			if rel < e.cfg.Tolerance {
				dec.Converged = true
				dec.ReconstructionError = recErr
				break
			}
		}
		prevErr = recErr
		dec.ReconstructionError = recErr
	}

	dec.W, dec.H = w, h
	return dec
}

// updateH applies H <- H .* (WtV) ./ (WtWH + lambda*H + eps).
func updateH(v, w, h *mat.Dense, lambda float64) {
	var wtv, wtw, wtwh mat.Dense
	wtv.Mul(w.T(), v)
	wtw.Mul(w.T(), w)
	wtwh.Mul(&wtw, h)

	r, c := h.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			cur := h.At(i, j)
			denom := wtwh.At(i, j) + lambda*cur + eps
			h.Set(i, j, cur*wtv.At(i, j)/denom)
		}
	}
}

// updateW applies W <- W .* (VHt) ./ (WHHt + lambda*W + eps).
func updateW(v, w, h *mat.Dense, lambda float64) {
	var vht, hht, whht mat.Dense
	vht.Mul(v, h.T())
	hht.Mul(h, h.T())
	whht.Mul(w, &hht)

	r, c := w.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			cur := w.At(i, j)
			denom := whht.At(i, j) + lambda*cur + eps
			w.Set(i, j, cur*vht.At(i, j)/denom)
		}
	}
}

func reconstructionError(v, w, h *mat.Dense) float64 {
	var wh, diff mat.Dense
	wh.Mul(w, h)
	diff.Sub(v, &wh)
	return mat.Norm(&diff, 2)
}

func randomMatrix(rng *rand.Rand, r, c int, scale float64) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		data[i] = rng.Float64() * scale
	}
	return mat.NewDense(r, c, data)
}

func matrixMean(v *mat.Dense) float64 {
	r, c := v.Dims()
	total := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			total += v.At(i, j)
		}
	}
	return total / float64(r*c)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
