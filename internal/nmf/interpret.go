package nmf

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/quantforge/synth/models"
)

// topGeneCount is how many leading genes name a factor.
const topGeneCount = 5

// GeneLoading pairs a gene with its loading inside one factor.
type GeneLoading struct {
	Gene    string  `json:"gene"`
	Index   int     `json:"index"`
	Loading float64 `json:"loading"`
}

// LatentFactor is one interpreted row of H: its full gene-loading vector,
// the genes that dominate it, how strongly each bot relies on it, and its
// correlation with bot fitness.
type LatentFactor struct {
	Index              int                `json:"index"`
	Loadings           []float64          `json:"loadings"` // length GeneCount
	TopGenes           []GeneLoading      `json:"top_genes"`
	BotWeights         map[string]float64 `json:"bot_weights"`
	FitnessCorrelation float64            `json:"fitness_correlation"`
	Category           models.GeneCategory `json:"category"`
	Name               string             `json:"name"`
	Interpretation     string             `json:"interpretation"`
}

// interpret derives the human-readable factor descriptions from one
// decomposition. The naming is heuristic: a factor is labelled by the gene
// category its top loadings concentrate in.
func (e *Engine) interpret(w, h *mat.Dense, snapshots []models.DNASnapshot) []LatentFactor {
	k, _ := h.Dims()
	factors := make([]LatentFactor, 0, k)

	fitness := make([]float64, len(snapshots))
	for i, s := range snapshots {
		fitness[i] = s.Fitness
	}

	for f := 0; f < k; f++ {
		loadings := make([]float64, models.GeneCount)
		mat.Row(loadings, f, h)

		top := rankLoadings(loadings)
		category := dominantCategory(top)

		weights := make(map[string]float64, len(snapshots))
		column := make([]float64, len(snapshots))
		for b, s := range snapshots {
			column[b] = w.At(b, f)
			weights[s.BotID] = column[b]
		}

		corr := stat.Correlation(column, fitness, nil)
		if !isFinite(corr) {
			corr = 0
		}

		factor := LatentFactor{
			Index:              f,
			Loadings:           loadings,
			TopGenes:           top,
			BotWeights:         weights,
			FitnessCorrelation: corr,
			Category:           category,
			Name:               fmt.Sprintf("%s_factor_%d", category, f+1),
		}
		factor.Interpretation = describe(factor)
		factors = append(factors, factor)
	}
	return factors
}

func rankLoadings(loadings []float64) []GeneLoading {
	ranked := make([]GeneLoading, models.GeneCount)
	for i, l := range loadings {
		ranked[i] = GeneLoading{Gene: models.GeneNames[i], Index: i, Loading: l}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Loading > ranked[j].Loading
	})
	return ranked[:topGeneCount]
}

// dominantCategory votes across the top genes, weighting each vote by its
// loading so one strong gene outranks several weak ones.
func dominantCategory(top []GeneLoading) models.GeneCategory {
	votes := make(map[models.GeneCategory]float64)
	for _, gl := range top {
		votes[models.GeneCategoryOf(gl.Index)] += gl.Loading
	}
	best := models.CategoryRisk
	bestVote := -1.0
	for _, cat := range []models.GeneCategory{
		models.CategoryRisk, models.CategoryTrendFollow, models.CategoryMeanReversion,
		models.CategoryTiming, models.CategorySizing,
	} {
		if v := votes[cat]; v > bestVote {
			best, bestVote = cat, v
		}
	}
	return best
}

func describe(f LatentFactor) string {
	names := make([]string, 0, len(f.TopGenes))
	for _, gl := range f.TopGenes {
		names = append(names, gl.Gene)
	}
	direction := "uncorrelated with"
	switch {
	case f.FitnessCorrelation > 0.1:
		direction = "positively correlated with"
	case f.FitnessCorrelation < -0.1:
		direction = "negatively correlated with"
	}
	return fmt.Sprintf("%s principle loading on %s; %s bot fitness (r=%.2f)",
		f.Category, strings.Join(names, ", "), direction, f.FitnessCorrelation)
}
