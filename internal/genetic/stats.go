package genetic

import "sort"

// Stats summarizes one evaluated generation.
type Stats struct {
	Best      float64 `json:"best"`
	Avg       float64 `json:"avg"`
	Median    float64 `json:"median"`
	Worst     float64 `json:"worst"`
	Diversity float64 `json:"diversity"` // unique structural hashes / population
}

// Generation is an immutable snapshot of one evaluated population. Once a
// Generation enters the history it is never mutated, so consumers may read
// it concurrently while the next generation is being assembled.
type Generation struct {
	Index      int           `json:"index"`
	Population []*Individual `json:"population"`
	Stats      Stats         `json:"stats"`
}

// computeStats folds best/avg/median/worst raw fitness and the
// structural-hash diversity index over one population.
func computeStats(population []*Individual) Stats {
	if len(population) == 0 {
		return Stats{}
	}
	fits := make([]float64, len(population))
	hashes := make(map[uint64]struct{}, len(population))
	total := 0.0
	for i, ind := range population {
		fits[i] = ind.Fitness
		total += ind.Fitness
		hashes[ind.Tree.StructuralHash()] = struct{}{}
	}
	sort.Float64s(fits)
	return Stats{
		Best:      fits[len(fits)-1],
		Avg:       total / float64(len(fits)),
		Median:    fits[len(fits)/2],
		Worst:     fits[0],
		Diversity: float64(len(hashes)) / float64(len(population)),
	}
}

// BestEver is a pure fold over generation history: the individual with the
// highest raw fitness across every snapshot, ties broken by adjusted
// fitness. Keeping this a function of history (rather than a mutable
// engine field) keeps the evolution loop testable in isolation.
func BestEver(history []Generation) *Individual {
	var best *Individual
	for _, gen := range history {
		for _, ind := range gen.Population {
			if best == nil ||
				ind.Fitness > best.Fitness ||
				(ind.Fitness == best.Fitness && ind.AdjustedFitness > best.AdjustedFitness) {
				best = ind
			}
		}
	}
	return best
}
