package main

import (
	"context"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantforge/synth/internal/config"
	"github.com/quantforge/synth/internal/genetic"
	"github.com/quantforge/synth/internal/nmf"
	"github.com/quantforge/synth/internal/simulator"
	"github.com/quantforge/synth/internal/telemetry"
	"github.com/quantforge/synth/internal/tree"
	"github.com/quantforge/synth/internal/validator"
	"github.com/quantforge/synth/models"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(os.Getenv("SYNTH_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	collector := telemetry.NewCollector(prometheus.NewRegistry())
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	events := syntheticEvents(rng, 400)
	log.Info().Int("events", len(events)).Msg("synthetic event history ready")

	// 1) Evolve tree-shaped candidates.
	gcfg := geneticConfig(cfg)
	engine, err := genetic.NewEngine(gcfg, simulator.New(cfg.Simulator.StartingEquity), collector)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build genetic engine")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	runResult, err := engine.Run(ctx, events)
	if err != nil {
		log.Fatal().Err(err).Msg("evolution failed")
	}
	best := runResult.Best
	log.Info().
		Int("generations", len(runResult.History)).
		Float64("best_fitness", best.Fitness).
		Int("tree_nodes", best.Tree.Count()).
		Msg("evolution finished")

	// 2) Decompose bot DNA into latent factors and synthesize parameter
	// vectors.
	ncfg := nmfConfig(cfg)
	factorEngine, err := nmf.NewEngine(ncfg, collector)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build nmf engine")
	}
	snapshots := syntheticDNA(rng, 21)
	combos, err := factorEngine.SynthesizeStrategies(snapshots, 6)
	if err != nil {
		log.Fatal().Err(err).Msg("factor synthesis failed")
	}
	for _, c := range combos {
		log.Info().
			Str("method", string(c.Method)).
			Float64("novelty", c.NoveltyScore).
			Msg("synthesized candidate")
	}

	// 3) Run both candidate types through the gauntlet.
	vcfg := validatorConfig(cfg)
	gate, err := validator.New(vcfg, events, collector)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build validator")
	}

	candidates := []validator.Candidate{{ID: best.ID, Tree: tree.Simplify(best.Tree)}}
	for _, c := range combos {
		candidates = append(candidates, validator.Candidate{Genes: c.Genes})
	}
	reports := gate.ValidateBatch(candidates)

	approved := 0
	for _, report := range reports {
		if report.Approved {
			approved++
			log.Info().Str("candidate", report.CandidateID).Msg("candidate approved, entering paper trading")
		} else {
			last := report.Results[len(report.Results)-1]
			log.Info().
				Str("candidate", report.CandidateID).
				Str("stage", string(last.Stage)).
				Interface("details", last.Details).
				Msg("candidate rejected")
		}
	}

	// Replay the tail of the history through the paper traders.
	for _, ev := range events[len(events)/2:] {
		gate.Feed(ev)
	}
	log.Info().
		Int("candidates", len(reports)).
		Int("approved", approved).
		Msg("synthesis pipeline complete")
}

func geneticConfig(cfg *config.Config) genetic.Config {
	g := genetic.DefaultConfig()
	g.PopulationSize = cfg.Genetic.PopulationSize
	g.MaxGenerations = cfg.Genetic.MaxGenerations
	g.ElitismCount = cfg.Genetic.ElitismCount
	g.TournamentSize = cfg.Genetic.TournamentSize
	g.CrossoverRate = cfg.Genetic.CrossoverRate
	g.MutationRate = cfg.Genetic.MutationRate
	g.ParsimonyCoeff = cfg.Genetic.ParsimonyCoeff
	g.StagnationLimit = cfg.Genetic.StagnationLimit
	g.InjectionPortion = cfg.Genetic.InjectionPortion
	g.FitnessTarget = cfg.Genetic.FitnessTarget
	if cfg.Genetic.Workers > 0 {
		g.Workers = cfg.Genetic.Workers
	}
	g.MinTrades = cfg.Genetic.MinTrades
	g.MaxDrawdown = cfg.Genetic.MaxDrawdown
	g.InSampleFraction = cfg.Genetic.InSampleFraction
	g.Limits = tree.Limits{MaxDepth: cfg.Tree.MaxDepth, MaxNodes: cfg.Tree.MaxNodes}
	return g
}

func nmfConfig(cfg *config.Config) nmf.Config {
	n := nmf.DefaultConfig()
	n.NumFactors = cfg.NMF.NumFactors
	n.MaxIterations = cfg.NMF.MaxIterations
	n.Tolerance = cfg.NMF.Tolerance
	n.Lambda = cfg.NMF.Lambda
	n.Restarts = cfg.NMF.Restarts
	n.GapDistance = cfg.NMF.GapDistance
	return n
}

func validatorConfig(cfg *config.Config) validator.Config {
	v := validator.DefaultConfig()
	v.Limits = tree.Limits{MaxDepth: cfg.Tree.MaxDepth, MaxNodes: cfg.Tree.MaxNodes}
	v.MinSampleTrades = cfg.Validator.MinSampleTrades
	v.MaxDailyTrades = cfg.Validator.MaxDailyTrades
	v.Folds = cfg.Validator.Folds
	v.MinProfitableFolds = cfg.Validator.MinProfitableFolds
	v.DegradationFloor = cfg.Validator.DegradationFloor
	v.MinProfitableRegimes = cfg.Validator.MinProfitableRegimes
	v.MaxRegimeLoss = cfg.Validator.MaxRegimeLoss
	v.BurnInHours = cfg.Validator.BurnInHours
	v.StartingEquity = cfg.Simulator.StartingEquity
	return v
}

// syntheticEvents builds a noisy up-trending price path with indicator
// snapshots and cycling regime labels, enough to exercise every stage.
func syntheticEvents(rng *rand.Rand, n int) []models.MarketEvent {
	events := make([]models.MarketEvent, 0, n)
	start := time.Now().Add(-time.Duration(n) * time.Hour)
	price := 100.0
	for i := 0; i < n; i++ {
		price *= 1 + 0.002 + rng.NormFloat64()*0.004
		phase := float64(i) / float64(n)
		events = append(events, models.MarketEvent{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Price:     price,
			Volume:    1000 + rng.Float64()*500,
			Regime:    models.AllRegimes[i/(n/len(models.AllRegimes)+1)],
			Indicators: &models.IndicatorSnapshot{
				RSI:               45 + 20*math.Sin(phase*12) + rng.Float64()*5,
				MACDHistogram:     rng.NormFloat64() * 0.5,
				BollingerPosition: 0.3 + 0.4*rng.Float64(),
				ATR:               price * 0.01,
				VolumeRatio:       0.8 + rng.Float64()*0.6,
				TrendStrength:     0.5 + 0.3*math.Sin(phase*6),
				PriceVsSMA:        rng.NormFloat64() * 0.01,
				PriceVsEMA:        rng.NormFloat64() * 0.01,
			},
		})
	}
	return events
}

// syntheticDNA fabricates arena bot snapshots with fitness loosely tied to
// the risk genes, so the factor correlations have something to find.
func syntheticDNA(rng *rand.Rand, n int) []models.DNASnapshot {
	snapshots := make([]models.DNASnapshot, 0, n)
	for i := 0; i < n; i++ {
		genes := make([]float64, models.GeneCount)
		for j := range genes {
			genes[j] = rng.Float64() * 10
		}
		fitness := 0.3 + genes[0]*0.02 + rng.Float64()*0.3
		snapshots = append(snapshots, models.DNASnapshot{
			BotID:   "bot-" + uuid.NewString()[:8],
			Fitness: fitness,
			Genes:   genes,
		})
	}
	return snapshots
}
