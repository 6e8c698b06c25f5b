package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantforge/synth/models"
)

func snapshot(rsi float64) *models.IndicatorSnapshot {
	return &models.IndicatorSnapshot{RSI: rsi, BollingerPosition: 0.5}
}

func TestProtectedDivision(t *testing.T) {
	tests := []struct {
		name     string
		num      float64
		den      float64
		expected float64
	}{
		{"zero denominator", 42, 0, 0},
		{"negative numerator zero denominator", -5, 0, 0},
		{"normal division", 10, 4, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Node{
				Kind: KindOperator,
				Op:   OpDiv,
				Children: []*Node{
					{Kind: KindConstant, Value: tt.num},
					{Kind: KindConstant, Value: tt.den},
				},
			}
			visited := 0
			got := eval(n, models.NeutralSnapshot(), &visited).asNumber()
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEvaluateIfThenElse(t *testing.T) {
	n := sampleTree() // sell when rsi > 70, else hold

	res := Evaluate(n, snapshot(80), models.RegimeTrending)
	assert.Equal(t, models.ActionSell, res.Action)
	assert.InDelta(t, 0.8, res.Confidence, 1e-9)

	res = Evaluate(n, snapshot(40), models.RegimeTrending)
	assert.Equal(t, models.ActionHold, res.Action)
}

func TestSignThresholdPolicy(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		expected models.Action
	}{
		{"above buy threshold", 0.9, models.ActionBuy},
		{"exactly at buy threshold holds", 0.5, models.ActionHold},
		{"between thresholds", 0.1, models.ActionHold},
		{"below sell threshold", -0.8, models.ActionSell},
		{"exactly at sell threshold holds", -0.5, models.ActionHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Node{Kind: KindConstant, Value: tt.value}
			res := Evaluate(n, models.NeutralSnapshot(), models.RegimeRanging)
			assert.Equal(t, tt.expected, res.Action)
		})
	}
}

func TestBooleanRootFoldsToSignPolicy(t *testing.T) {
	// A bare comparator root folds true to 1 (buy) and false to 0 (hold).
	n := &Node{
		Kind: KindComparator,
		Op:   OpGreater,
		Children: []*Node{
			{Kind: KindIndicator, Name: "rsi"},
			{Kind: KindConstant, Value: 50},
		},
	}
	assert.Equal(t, models.ActionBuy, Evaluate(n, snapshot(60), "").Action)
	assert.Equal(t, models.ActionHold, Evaluate(n, snapshot(40), "").Action)
}

func TestNilSnapshotUsesNeutralDefaults(t *testing.T) {
	// rsi > 49 is true for the neutral default of 50.
	n := &Node{
		Kind: KindComparator,
		Op:   OpGreater,
		Children: []*Node{
			{Kind: KindIndicator, Name: "rsi"},
			{Kind: KindConstant, Value: 49},
		},
	}
	res := Evaluate(n, nil, "")
	assert.Equal(t, models.ActionBuy, res.Action)
}

func TestUnknownIndicatorReadsZero(t *testing.T) {
	n := &Node{Kind: KindIndicator, Name: "no_such_feature"}
	visited := 0
	assert.Equal(t, 0.0, eval(n, models.NeutralSnapshot(), &visited).asNumber())
}

func TestCrossAboveRequiresNarrowMargin(t *testing.T) {
	cross := func(left float64) bool {
		return compare(OpCrossAbove, left, 50)
	}
	assert.False(t, cross(49))   // not above
	assert.True(t, cross(50.5))  // just above
	assert.False(t, cross(60))   // far above, crossed long ago
}

func TestLogicalOperators(t *testing.T) {
	boolConst := func(b bool) *Node {
		v := 0.0
		if b {
			v = 1.0
		}
		return &Node{Kind: KindConstant, Value: v}
	}
	tests := []struct {
		op       string
		inputs   []bool
		expected bool
	}{
		{OpAnd, []bool{true, true}, true},
		{OpAnd, []bool{true, false}, false},
		{OpOr, []bool{false, true}, true},
		{OpOr, []bool{false, false}, false},
		{OpXor, []bool{true, false}, true},
		{OpXor, []bool{true, true}, false},
		{OpNot, []bool{false}, true},
	}
	for _, tt := range tests {
		n := &Node{Kind: KindLogical, Op: tt.op}
		for _, in := range tt.inputs {
			n.Children = append(n.Children, boolConst(in))
		}
		visited := 0
		got := eval(n, models.NeutralSnapshot(), &visited)
		assert.Equal(t, tt.expected, got.b, "op %s %v", tt.op, tt.inputs)
	}
}

func TestNodesVisitedCountsEveryNode(t *testing.T) {
	n := sampleTree()
	res := Evaluate(n, snapshot(80), "")
	// Root, condition, its two leaves, and the taken action branch.
	assert.Equal(t, 5, res.NodesVisited)
}
