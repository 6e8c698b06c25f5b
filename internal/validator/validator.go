// Package validator runs every synthesized candidate through the
// four-stage gauntlet that is the single gate to approved status, and
// tracks approved strategies through their paper-trading lifecycle.
package validator

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantforge/synth/internal/simulator"
	"github.com/quantforge/synth/internal/telemetry"
	"github.com/quantforge/synth/internal/tree"
	"github.com/quantforge/synth/models"
)

// Config holds every gauntlet threshold.
type Config struct {
	Limits tree.Limits

	// Structural stage.
	MinSampleTrades int
	MaxDailyTrades  float64

	// Walk-forward stage.
	Folds              int
	MinProfitableFolds int
	DegradationFloor   float64

	// Regime-stress stage.
	MinProfitableRegimes int
	MaxRegimeLoss        float64 // worst tolerated single-regime loss, as a positive fraction
	MinRegimeEvents      int

	// Paper trading.
	BurnInHours float64

	StartingEquity float64
}

// DefaultConfig returns the gauntlet defaults.
func DefaultConfig() Config {
	return Config{
		Limits:               tree.DefaultLimits,
		MinSampleTrades:      3,
		MaxDailyTrades:       50,
		Folds:                5,
		MinProfitableFolds:   3,
		DegradationFloor:     0.5,
		MinProfitableRegimes: 2,
		MaxRegimeLoss:        0.05,
		MinRegimeEvents:      5,
		BurnInHours:          72,
		StartingEquity:       simulator.DefaultStartingEquity,
	}
}

func (c Config) Validate() error {
	if c.Folds < 2 {
		return fmt.Errorf("folds %d too few for walk-forward", c.Folds)
	}
	if c.MinProfitableFolds > c.Folds-1 {
		return fmt.Errorf("min profitable folds %d exceeds out-of-sample fold count %d", c.MinProfitableFolds, c.Folds-1)
	}
	if c.DegradationFloor < 0 {
		return fmt.Errorf("degradation floor %.2f negative", c.DegradationFloor)
	}
	return nil
}

// Candidate is one synthesized strategy entering the gauntlet: a tree from
// the GP path, or a gene vector from the NMF path (decoded to its proxy
// tree before simulation).
type Candidate struct {
	ID    string
	Tree  *tree.Node
	Genes []float64
}

// Report is the full gauntlet outcome for one candidate. Results are
// append-only and ordered by stage.
type Report struct {
	CandidateID string                    `json:"candidate_id"`
	Results     []models.ValidationResult `json:"results"`
	Approved    bool                      `json:"approved"`
	Metrics     *models.StrategyMetrics   `json:"metrics,omitempty"`
}

// Validator runs the gauntlet. Stages are sequential per candidate and
// independent across candidates.
type Validator struct {
	cfg       Config
	sim       *simulator.Simulator
	history   []models.MarketEvent
	collector *telemetry.Collector
	logger    zerolog.Logger

	mu       sync.Mutex
	trackers map[string]*Tracker
}

// New wires a validator over the historical event window every stage
// simulates against. collector may be nil.
func New(cfg Config, history []models.MarketEvent, collector *telemetry.Collector) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid validator config: %w", err)
	}
	if len(history) < cfg.Folds {
		return nil, fmt.Errorf("history of %d events too short for %d folds", len(history), cfg.Folds)
	}
	return &Validator{
		cfg:       cfg,
		sim:       simulator.New(cfg.StartingEquity),
		history:   history,
		collector: collector,
		logger:    log.With().Str("component", "validator").Logger(),
		trackers:  make(map[string]*Tracker),
	}, nil
}

// Validate runs structural, walk-forward, and regime-stress in order with a
// hard stop on the first failure. An approved candidate enters paper
// trading with zero capital allocation. Validation never returns an error
// for a bad candidate; failure is a typed result.
func (v *Validator) Validate(cand Candidate) *Report {
	report := &Report{CandidateID: cand.ID}
	if report.CandidateID == "" {
		report.CandidateID = uuid.NewString()
	}

	strategy := cand.Tree
	if strategy == nil && len(cand.Genes) > 0 {
		strategy = GeneTree(cand.Genes)
	}

	stages := []struct {
		name models.ValidationStage
		run  func(*tree.Node) models.ValidationResult
	}{
		{models.StageStructural, v.structuralStage},
		{models.StageWalkForward, v.walkForwardStage},
		{models.StageRegimeStress, v.regimeStressStage},
	}

	for _, stage := range stages {
		result := stage.run(strategy)
		report.Results = append(report.Results, result)
		v.collector.ObserveValidation(string(stage.name), result.Passed)
		v.logger.Info().
			Str("candidate", report.CandidateID).
			Str("stage", string(stage.name)).
			Bool("passed", result.Passed).
			Float64("score", result.Score).
			Msg("validation stage finished")
		if !result.Passed {
			return report
		}
	}

	report.Approved = true
	report.Metrics = simulator.DeriveMetrics(v.sim.Run(strategy, v.history))
	report.Results = append(report.Results, models.ValidationResult{
		Stage:     models.StageApproved,
		Passed:    true,
		Score:     1,
		Timestamp: time.Now(),
		Details:   map[string]any{"lifecycle": string(models.LifecyclePaperTrading)},
	})
	v.collector.ObserveValidation(string(models.StageApproved), true)

	v.mu.Lock()
	v.trackers[report.CandidateID] = NewTracker(report.CandidateID, strategy, v.cfg)
	v.collector.SetPaperTrading(len(v.trackers))
	v.mu.Unlock()

	return report
}

// ValidateBatch fans candidates out across goroutines; each candidate's
// stages stay sequential. The returned reports are ordered as the input.
func (v *Validator) ValidateBatch(cands []Candidate) []*Report {
	reports := make([]*Report, len(cands))
	var wg sync.WaitGroup
	for i := range cands {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i] = v.Validate(cands[i])
		}(i)
	}
	wg.Wait()
	return reports
}

// Tracker returns the paper-trading tracker for an approved strategy.
func (v *Validator) Tracker(id string) (*Tracker, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	t, ok := v.trackers[id]
	return t, ok
}

// Feed replays a market event through every paper-trading strategy.
func (v *Validator) Feed(event models.MarketEvent) {
	v.mu.Lock()
	trackers := make([]*Tracker, 0, len(v.trackers))
	for _, t := range v.trackers {
		trackers = append(trackers, t)
	}
	v.mu.Unlock()
	for _, t := range trackers {
		t.Process(event)
	}
}
