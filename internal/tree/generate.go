package tree

import (
	"math/rand"
)

// IndicatorNames are the market features an indicator leaf may reference.
// They mirror the fields of models.IndicatorSnapshot plus the raw price.
var IndicatorNames = []string{
	"rsi",
	"macd_histogram",
	"bollinger_position",
	"atr",
	"volume_ratio",
	"trend_strength",
	"price_vs_sma",
	"price_vs_ema",
}

var arithmeticOps = []string{OpAdd, OpSub, OpMul, OpDiv, OpMax, OpMin, OpAbs, OpNegate}
var comparatorList = []string{OpGreater, OpLess, OpGreaterEq, OpLessEq, OpEqual, OpCrossAbove, OpCrossBelow}
var booleanOps = []string{OpAnd, OpOr, OpNot, OpXor}
var actionNames = []string{"buy", "sell", "hold", "close"}

// Generate produces a structurally valid random tree using ramped
// half-and-half: half the calls grow variable-depth trees, half build
// full-depth ones. The root is always an if-then-else wrapping a boolean
// condition and two action leaves, so every tree is directly executable as
// a decision rule. The result always satisfies both caps in limits.
func Generate(rng *rand.Rand, limits Limits) *Node {
	full := rng.Intn(2) == 0
	n := generateRooted(rng, limits.MaxDepth, full)
	enforceLimits(rng, n, limits)
	return n
}

func generateRooted(rng *rand.Rand, maxDepth int, full bool) *Node {
	if maxDepth < 3 {
		maxDepth = 3
	}
	return &Node{
		Kind: KindLogical,
		Op:   OpIfThenElse,
		Children: []*Node{
			randomCondition(rng, maxDepth-1, full),
			randomAction(rng),
			randomAction(rng),
		},
	}
}

// randomCondition builds a boolean-valued subtree within the depth budget.
func randomCondition(rng *rand.Rand, depth int, full bool) *Node {
	if depth <= 2 || (!full && rng.Float64() < 0.35) {
		return randomComparison(rng, depth)
	}
	op := booleanOps[rng.Intn(len(booleanOps))]
	n := &Node{Kind: KindLogical, Op: op}
	arity := logicalArity[op]
	for i := 0; i < arity; i++ {
		n.Children = append(n.Children, randomCondition(rng, depth-1, full))
	}
	return n
}

// randomComparison builds comparator(numeric, numeric).
func randomComparison(rng *rand.Rand, depth int) *Node {
	return &Node{
		Kind: KindComparator,
		Op:   comparatorList[rng.Intn(len(comparatorList))],
		Children: []*Node{
			randomNumeric(rng, depth-1),
			randomNumeric(rng, depth-1),
		},
	}
}

// randomNumeric builds a numeric-valued subtree within the depth budget.
func randomNumeric(rng *rand.Rand, depth int) *Node {
	if depth <= 1 || rng.Float64() < 0.55 {
		return randomTerminal(rng)
	}
	op := arithmeticOps[rng.Intn(len(arithmeticOps))]
	n := &Node{Kind: KindOperator, Op: op}
	for i := 0; i < operatorArity[op]; i++ {
		n.Children = append(n.Children, randomNumeric(rng, depth-1))
	}
	return n
}

// randomTerminal returns an indicator reference or a numeric literal.
func randomTerminal(rng *rand.Rand) *Node {
	if rng.Intn(2) == 0 {
		name := IndicatorNames[rng.Intn(len(IndicatorNames))]
		n := &Node{Kind: KindIndicator, Name: name}
		if rng.Float64() < 0.3 {
			n.Lookback = 1 + rng.Intn(20)
		}
		return n
	}
	return &Node{Kind: KindConstant, Value: randomConstant(rng)}
}

// randomConstant samples literals across the ranges indicators live in:
// oscillator levels, band positions, and small deltas.
func randomConstant(rng *rand.Rand) float64 {
	switch rng.Intn(3) {
	case 0: // oscillator scale (RSI and friends)
		return float64(10 + rng.Intn(81))
	case 1: // normalized position scale
		return rng.Float64()
	default: // small signed delta
		return rng.Float64()*4 - 2
	}
}

func randomAction(rng *rand.Rand) *Node {
	return &Node{
		Kind:       KindAction,
		Op:         actionNames[rng.Intn(len(actionNames))],
		Confidence: 0.4 + rng.Float64()*0.6,
	}
}

// randomSubtree builds a free-standing subtree (not necessarily rooted at
// if-then-else) for subtree mutation and depth re-pruning. The returned
// subtree's value type matches the slot kind it replaces.
func randomSubtree(rng *rand.Rand, slot Kind, depth int) *Node {
	switch slot {
	case KindComparator, KindLogical:
		if depth < 2 {
			depth = 2
		}
		return randomCondition(rng, depth, false)
	case KindAction:
		return randomAction(rng)
	default:
		if depth < 1 {
			depth = 1
		}
		return randomNumeric(rng, depth)
	}
}
