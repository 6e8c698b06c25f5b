// Package genetic runs the evolve/select/breed loop over a population of
// expression-tree individuals.
package genetic

import (
	"github.com/google/uuid"

	"github.com/quantforge/synth/internal/tree"
	"github.com/quantforge/synth/models"
)

// Origin records how an individual came to exist.
type Origin string

const (
	OriginRandom       Origin = "random"
	OriginCrossover    Origin = "crossover"
	OriginMutation     Origin = "mutation"
	OriginReproduction Origin = "reproduction"
	OriginElite        Origin = "elite"
	OriginInjection    Origin = "injection"
)

// Individual wraps one tree with its scores and lineage. Fitness and
// metrics are written once during evaluation; after a generation snapshot
// is published the individual is never mutated again.
type Individual struct {
	ID              string                  `json:"id"`
	Tree            *tree.Node              `json:"tree"`
	Fitness         float64                 `json:"fitness"`
	AdjustedFitness float64                 `json:"adjusted_fitness"`
	Generation      int                     `json:"generation"`
	ParentIDs       []string                `json:"parent_ids,omitempty"`
	Origin          Origin                  `json:"origin"`
	Metrics         *models.StrategyMetrics `json:"metrics,omitempty"`
}

func newIndividual(t *tree.Node, generation int, origin Origin, parents ...string) *Individual {
	return &Individual{
		ID:         uuid.NewString(),
		Tree:       t,
		Generation: generation,
		Origin:     origin,
		ParentIDs:  parents,
	}
}

// evaluated reports whether this individual already carries a score from
// the current or an earlier generation (elites keep theirs).
func (ind *Individual) evaluated() bool {
	return ind.Metrics != nil
}
