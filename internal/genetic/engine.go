package genetic

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quantforge/synth/internal/simulator"
	"github.com/quantforge/synth/internal/telemetry"
	"github.com/quantforge/synth/internal/tree"
	"github.com/quantforge/synth/models"
)

// Config holds every knob of the evolution loop.
type Config struct {
	PopulationSize   int
	MaxGenerations   int
	ElitismCount     int
	TournamentSize   int
	CrossoverRate    float64
	MutationRate     float64
	ParsimonyCoeff   float64
	StagnationLimit  int
	InjectionPortion float64
	FitnessTarget    float64
	Workers          int
	Seed             int64

	Limits tree.Limits

	// Hard fitness floors: below MinTrades or above MaxDrawdown the score
	// is exactly 0.
	MinTrades   int
	MaxDrawdown float64

	// InSampleFraction is the chronological share of events used as the
	// in-sample window for the degradation ratio.
	InSampleFraction float64

	HallOfFameSize int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		PopulationSize:   50,
		MaxGenerations:   30,
		ElitismCount:     3,
		TournamentSize:   3,
		CrossoverRate:    0.65,
		MutationRate:     0.25,
		ParsimonyCoeff:   0.002,
		StagnationLimit:  8,
		InjectionPortion: 0.30,
		FitnessTarget:    0.85,
		Workers:          runtime.NumCPU(),
		Limits:           tree.DefaultLimits,
		MinTrades:        5,
		MaxDrawdown:      0.25,
		InSampleFraction: 0.7,
		HallOfFameSize:   10,
	}
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	if c.PopulationSize < 2 {
		return fmt.Errorf("population size %d too small", c.PopulationSize)
	}
	if c.MaxGenerations < 1 {
		return fmt.Errorf("max generations %d too small", c.MaxGenerations)
	}
	if c.ElitismCount < 0 || c.ElitismCount >= c.PopulationSize {
		return fmt.Errorf("elitism count %d outside [0,%d)", c.ElitismCount, c.PopulationSize)
	}
	if c.TournamentSize < 1 || c.TournamentSize > c.PopulationSize {
		return fmt.Errorf("tournament size %d invalid", c.TournamentSize)
	}
	if c.CrossoverRate < 0 || c.MutationRate < 0 || c.CrossoverRate+c.MutationRate > 1 {
		return fmt.Errorf("crossover %.2f + mutation %.2f rates must fit in [0,1]", c.CrossoverRate, c.MutationRate)
	}
	if c.InjectionPortion < 0 || c.InjectionPortion > 1 {
		return fmt.Errorf("injection portion %.2f outside [0,1]", c.InjectionPortion)
	}
	if c.InSampleFraction <= 0 || c.InSampleFraction >= 1 {
		return fmt.Errorf("in-sample fraction %.2f outside (0,1)", c.InSampleFraction)
	}
	if c.Limits.MaxDepth < 3 {
		return fmt.Errorf("max depth %d too small for an executable tree", c.Limits.MaxDepth)
	}
	if c.Limits.MaxNodes < 7 {
		return fmt.Errorf("max nodes %d too small for an executable tree", c.Limits.MaxNodes)
	}
	return nil
}

// Result is what a finished run hands back: the full immutable generation
// history, the best individual ever seen, and the hall of fame.
type Result struct {
	History    []Generation
	Best       *Individual
	HallOfFame []*Individual
}

// Engine owns one population and runs the generation-synchronous loop.
type Engine struct {
	cfg        Config
	sim        *simulator.Simulator
	collector  *telemetry.Collector
	rng        *rand.Rand
	logger     zerolog.Logger
	stagnation int
	hallOfFame []*Individual
}

// NewEngine wires an engine. collector may be nil.
func NewEngine(cfg Config, sim *simulator.Simulator, collector *telemetry.Collector) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid genetic config: %w", err)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		cfg:       cfg,
		sim:       sim,
		collector: collector,
		rng:       rand.New(rand.NewSource(seed)),
		logger:    log.With().Str("component", "genetic_engine").Logger(),
	}, nil
}

// Run evolves against the event history until the fitness target is reached
// or the generation budget is spent. A new generation is never bred before
// every individual of the current one is scored; each published snapshot is
// immutable. The context is only checked between generations, so a timeout
// abandons whole generations, never half-evaluated ones.
func (e *Engine) Run(ctx context.Context, events []models.MarketEvent) (*Result, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("no events to evolve against")
	}

	population := e.seedPopulation()
	history := make([]Generation, 0, e.cfg.MaxGenerations)

	for gen := 0; gen < e.cfg.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evolution abandoned at generation %d: %w", gen, err)
		}

		e.evaluatePopulation(population, events)
		stats := computeStats(population)
		history = append(history, Generation{Index: gen, Population: population, Stats: stats})
		e.updateHallOfFame(population)
		e.collector.ObserveGeneration(stats.Best, stats.Diversity)
		e.logger.Info().
			Int("generation", gen).
			Float64("best", stats.Best).
			Float64("avg", stats.Avg).
			Float64("diversity", stats.Diversity).
			Msg("generation evaluated")

		if stats.Best >= e.cfg.FitnessTarget {
			e.logger.Info().Int("generation", gen).Float64("fitness", stats.Best).Msg("fitness target reached")
			break
		}
		if gen == e.cfg.MaxGenerations-1 {
			break
		}

		next := e.breed(population, gen+1)
		if e.checkStagnation(history) {
			e.logger.Warn().Int("generation", gen).Msg("stagnation detected, injecting fresh individuals")
			e.InjectDiversity(next, gen+1)
		}
		population = next
	}

	return &Result{
		History:    history,
		Best:       BestEver(history),
		HallOfFame: append([]*Individual(nil), e.hallOfFame...),
	}, nil
}

// seedPopulation builds the initial population with ramped depths so it
// spans shallow and deep structures.
func (e *Engine) seedPopulation() []*Individual {
	population := make([]*Individual, e.cfg.PopulationSize)
	for i := range population {
		depth := 3 + i%(e.cfg.Limits.MaxDepth-2)
		limits := tree.Limits{MaxDepth: depth, MaxNodes: e.cfg.Limits.MaxNodes}
		population[i] = newIndividual(tree.Generate(e.rng, limits), 0, OriginRandom)
	}
	return population
}

// evaluatePopulation fans fitness evaluation out across workers and blocks
// until every individual is scored: a synchronization barrier, not a
// queue. Elites arriving with scores keep them.
func (e *Engine) evaluatePopulation(population []*Individual, events []models.MarketEvent) {
	jobs := make(chan *Individual)
	var wg sync.WaitGroup
	for w := 0; w < e.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ind := range jobs {
				e.evaluate(ind, events)
			}
		}()
	}
	for _, ind := range population {
		if !ind.evaluated() {
			jobs <- ind
		}
	}
	close(jobs)
	wg.Wait()
}

// evaluate backtests one individual over the full window plus the two
// degradation windows, then scores it. Evaluation never fails: a tree that
// cannot trade simply scores 0 and is out-competed.
func (e *Engine) evaluate(ind *Individual, events []models.MarketEvent) {
	full := e.sim.Run(ind.Tree, events)
	m := simulator.DeriveMetrics(full)

	split := int(float64(len(events)) * e.cfg.InSampleFraction)
	if split > 0 && split < len(events) {
		// In-sample return is measured over the trailing window of the
		// in-sample slice, equal in length to the out-of-sample slice, so
		// the degradation ratio compares like with like.
		inStart := 0
		if tail := split - (len(events) - split); tail > 0 {
			inStart = tail
		}
		inRes := e.sim.Run(ind.Tree, events[inStart:split])
		outRes := e.sim.Run(ind.Tree, events[split:])
		m.InSampleReturn = inRes.TotalReturn
		m.OutOfSampleReturn = outRes.TotalReturn
		m.DegradationRatio = simulator.DegradationRatio(m.InSampleReturn, m.OutOfSampleReturn)
	}

	nodeCount := ind.Tree.Count()
	m.ComplexityPenalty = e.cfg.ParsimonyCoeff * float64(nodeCount)

	ind.Metrics = m
	ind.Fitness = Fitness(m, e.cfg.MinTrades, e.cfg.MaxDrawdown)
	ind.AdjustedFitness = Adjusted(ind.Fitness, nodeCount, e.cfg.ParsimonyCoeff)
}

// breed assembles the next generation: elites copied verbatim, remaining
// slots filled by crossover, mutation, or straight reproduction chosen by
// the configured rates, parents picked by tournament on adjusted fitness.
func (e *Engine) breed(population []*Individual, generation int) []*Individual {
	next := make([]*Individual, 0, e.cfg.PopulationSize)

	ranked := append([]*Individual(nil), population...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].AdjustedFitness > ranked[j].AdjustedFitness
	})
	for i := 0; i < e.cfg.ElitismCount && i < len(ranked); i++ {
		elite := *ranked[i]
		elite.Origin = OriginElite
		// Deep-clone the tree: two live individuals must never alias nodes.
		elite.Tree = ranked[i].Tree.Clone()
		next = append(next, &elite)
	}

	for len(next) < e.cfg.PopulationSize {
		roll := e.rng.Float64()
		switch {
		case roll < e.cfg.CrossoverRate && e.cfg.PopulationSize-len(next) >= 2:
			pa := e.tournament(population)
			pb := e.tournament(population)
			ca, cb := tree.Crossover(e.rng, pa.Tree, pb.Tree, e.cfg.Limits)
			next = append(next, newIndividual(ca, generation, OriginCrossover, pa.ID, pb.ID))
			if len(next) < e.cfg.PopulationSize {
				next = append(next, newIndividual(cb, generation, OriginCrossover, pa.ID, pb.ID))
			}
		case roll < e.cfg.CrossoverRate+e.cfg.MutationRate:
			parent := e.tournament(population)
			child := e.mutateTree(parent.Tree)
			next = append(next, newIndividual(child, generation, OriginMutation, parent.ID))
		default:
			parent := e.tournament(population)
			child := newIndividual(parent.Tree.Clone(), generation, OriginReproduction, parent.ID)
			next = append(next, child)
		}
	}
	return next
}

// mutateTree picks among the three mutation operators: point mutation most
// of the time, subtree replacement for exploration, hoist for bloat
// control.
func (e *Engine) mutateTree(t *tree.Node) *tree.Node {
	switch roll := e.rng.Float64(); {
	case roll < 0.6:
		return tree.Mutate(e.rng, t, e.cfg.Limits)
	case roll < 0.85:
		return tree.SubtreeMutate(e.rng, t, e.cfg.Limits)
	default:
		return tree.HoistMutate(e.rng, t, e.cfg.Limits)
	}
}

// tournament picks the best adjusted fitness among TournamentSize random
// individuals.
func (e *Engine) tournament(population []*Individual) *Individual {
	best := population[e.rng.Intn(len(population))]
	for i := 1; i < e.cfg.TournamentSize; i++ {
		challenger := population[e.rng.Intn(len(population))]
		if challenger.AdjustedFitness > best.AdjustedFitness {
			best = challenger
		}
	}
	return best
}

// checkStagnation reports whether the best-ever fitness has failed to
// improve for StagnationLimit consecutive generations. It is an explicit
// transition: crossing the threshold resets the counter so injection fires
// once per stagnation episode.
func (e *Engine) checkStagnation(history []Generation) bool {
	if len(history) < 2 {
		return false
	}
	latest := history[len(history)-1].Stats.Best
	previousBest := BestEver(history[:len(history)-1])
	if previousBest == nil || latest > previousBest.Fitness {
		e.stagnation = 0
		return false
	}
	e.stagnation++
	if e.stagnation >= e.cfg.StagnationLimit {
		e.stagnation = 0
		return true
	}
	return false
}

// InjectDiversity replaces the worst InjectionPortion of the population
// with fresh random individuals. Exposed as its own operation so the
// trigger condition and the effect stay independently testable.
func (e *Engine) InjectDiversity(population []*Individual, generation int) {
	count := int(float64(len(population)) * e.cfg.InjectionPortion)
	if count == 0 {
		return
	}
	sort.SliceStable(population, func(i, j int) bool {
		return population[i].AdjustedFitness > population[j].AdjustedFitness
	})
	for i := len(population) - count; i < len(population); i++ {
		depth := 3 + e.rng.Intn(e.cfg.Limits.MaxDepth-2)
		limits := tree.Limits{MaxDepth: depth, MaxNodes: e.cfg.Limits.MaxNodes}
		population[i] = newIndividual(tree.Generate(e.rng, limits), generation, OriginInjection)
	}
}

func (e *Engine) updateHallOfFame(population []*Individual) {
	seen := make(map[uint64]bool, len(e.hallOfFame))
	merged := append([]*Individual(nil), e.hallOfFame...)
	for _, ind := range merged {
		seen[ind.Tree.StructuralHash()] = true
	}
	for _, ind := range population {
		if h := ind.Tree.StructuralHash(); !seen[h] {
			seen[h] = true
			merged = append(merged, ind)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].AdjustedFitness > merged[j].AdjustedFitness
	})
	if len(merged) > e.cfg.HallOfFameSize {
		merged = merged[:e.cfg.HallOfFameSize]
	}
	e.hallOfFame = merged
}
