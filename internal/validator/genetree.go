package validator

import (
	"github.com/quantforge/synth/internal/tree"
	"github.com/quantforge/synth/models"
)

// Gene indices the proxy decode reads. They follow the fixed ordering of
// models.GeneNames.
const (
	geneTrendEntry  = 10 // trend_entry_threshold
	geneRSIOversold = 20 // rsi_oversold
	geneRSIOverbuy  = 21 // rsi_overbought
	geneConfidence  = 44 // confidence_size_mult
)

// GeneTree decodes a synthesized gene vector into an executable proxy
// strategy so NMF candidates face the same gauntlet as GP trees: buy when
// RSI drops below the vector's oversold level or trend strength clears its
// entry threshold, sell when RSI breaks the overbought level, hold
// otherwise.
func GeneTree(genes []float64) *tree.Node {
	if len(genes) != models.GeneCount {
		return nil
	}
	oversold := clampRange(genes[geneRSIOversold], 10, 45)
	overbought := clampRange(genes[geneRSIOverbuy], 55, 90)
	trendEntry := clampRange(genes[geneTrendEntry], 0.1, 0.9)
	confidence := clampRange(genes[geneConfidence], 0.4, 1)

	buySignal := &tree.Node{
		Kind: tree.KindLogical,
		Op:   tree.OpOr,
		Children: []*tree.Node{
			comparison(tree.OpLess, "rsi", oversold),
			comparison(tree.OpGreater, "trend_strength", trendEntry),
		},
	}

	return &tree.Node{
		Kind: tree.KindLogical,
		Op:   tree.OpIfThenElse,
		Children: []*tree.Node{
			buySignal,
			{Kind: tree.KindAction, Op: "buy", Confidence: confidence},
			{
				Kind: tree.KindLogical,
				Op:   tree.OpIfThenElse,
				Children: []*tree.Node{
					comparison(tree.OpGreater, "rsi", overbought),
					{Kind: tree.KindAction, Op: "sell", Confidence: confidence},
					{Kind: tree.KindAction, Op: "hold", Confidence: 0.5},
				},
			},
		},
	}
}

func comparison(op, indicator string, bound float64) *tree.Node {
	return &tree.Node{
		Kind: tree.KindComparator,
		Op:   op,
		Children: []*tree.Node{
			{Kind: tree.KindIndicator, Name: indicator},
			{Kind: tree.KindConstant, Value: bound},
		},
	}
}

func clampRange(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
