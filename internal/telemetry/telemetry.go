// Package telemetry exposes the core's observability counters on a
// caller-supplied prometheus registry. The core itself never serves HTTP;
// whoever embeds it decides whether and where the metrics are scraped.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles the synthesis metrics. A nil *Collector is valid and
// turns every method into a no-op, so components can treat telemetry as
// optional.
type Collector struct {
	generations     prometheus.Counter
	bestFitness     prometheus.Gauge
	diversity       prometheus.Gauge
	validations     *prometheus.CounterVec
	nmfIterations   prometheus.Counter
	nmfRuns         prometheus.Counter
	paperStrategies prometheus.Gauge
}

// NewCollector registers the synthesis metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synth_generations_total",
			Help: "Generations evolved by the GP engine.",
		}),
		bestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synth_best_fitness",
			Help: "Best raw fitness in the most recent generation.",
		}),
		diversity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synth_population_diversity",
			Help: "Structural-hash diversity index of the most recent generation.",
		}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "synth_validations_total",
			Help: "Validation stage outcomes.",
		}, []string{"stage", "outcome"}),
		nmfIterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synth_nmf_iterations_total",
			Help: "Multiplicative-update iterations across NMF runs.",
		}),
		nmfRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "synth_nmf_runs_total",
			Help: "Completed NMF decomposition runs.",
		}),
		paperStrategies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "synth_paper_trading_strategies",
			Help: "Strategies currently in paper trading.",
		}),
	}
	reg.MustRegister(
		c.generations, c.bestFitness, c.diversity,
		c.validations, c.nmfIterations, c.nmfRuns, c.paperStrategies,
	)
	return c
}

// ObserveGeneration records one finished generation.
func (c *Collector) ObserveGeneration(bestFitness, diversity float64) {
	if c == nil {
		return
	}
	c.generations.Inc()
	c.bestFitness.Set(bestFitness)
	c.diversity.Set(diversity)
}

// ObserveValidation records one stage outcome.
func (c *Collector) ObserveValidation(stage string, passed bool) {
	if c == nil {
		return
	}
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	c.validations.WithLabelValues(stage, outcome).Inc()
}

// ObserveNMF records one decomposition run and its iteration count.
func (c *Collector) ObserveNMF(iterations int) {
	if c == nil {
		return
	}
	c.nmfRuns.Inc()
	c.nmfIterations.Add(float64(iterations))
}

// SetPaperTrading reports the live paper-trading strategy count.
func (c *Collector) SetPaperTrading(n int) {
	if c == nil {
		return
	}
	c.paperStrategies.Set(float64(n))
}
