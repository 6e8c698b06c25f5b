package tree

import (
	"math"

	"github.com/quantforge/synth/models"
)

// Sign-threshold root policy: a tree whose root reduces to a bare number
// (or boolean, folded to 1/0) instead of an action is mapped to an action
// by sign. Constants, not configuration.
const (
	BuyThreshold  = 0.5
	SellThreshold = -0.5
)

// crossBand is the relative band a comparison must fall inside for
// cross_above / cross_below to fire. Evaluation is stateless per snapshot,
// so "crossed recently" is approximated as "above, but only just".
const crossBand = 0.02

// EvalResult is the outcome of interpreting one tree against one snapshot.
type EvalResult struct {
	Action         models.Action
	Confidence     float64
	SignalStrength float64
	NodesVisited   int
}

type valueKind int

const (
	numVal valueKind = iota
	boolVal
	actVal
)

type value struct {
	kind       valueKind
	num        float64
	b          bool
	action     models.Action
	confidence float64
}

func (v value) asNumber() float64 {
	switch v.kind {
	case numVal:
		return v.num
	case boolVal:
		if v.b {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// Evaluate interprets the tree against one indicator snapshot in a single
// recursive pass. Numeric nodes fold to floats, comparator/logical nodes to
// booleans, and the result is reduced to one of buy/sell/hold/close via the
// sign-threshold policy when no explicit action was reached.
func Evaluate(n *Node, snap *models.IndicatorSnapshot, regime models.Regime) EvalResult {
	if snap == nil {
		snap = models.NeutralSnapshot()
	}
	visited := 0
	v := eval(n, snap, &visited)

	res := EvalResult{NodesVisited: visited}
	switch v.kind {
	case actVal:
		res.Action = v.action
		res.Confidence = v.confidence
		res.SignalStrength = v.confidence
	default:
		num := v.asNumber()
		res.SignalStrength = math.Abs(num)
		switch {
		case num > BuyThreshold:
			res.Action = models.ActionBuy
			res.Confidence = math.Min(math.Abs(num), 1)
		case num < SellThreshold:
			res.Action = models.ActionSell
			res.Confidence = math.Min(math.Abs(num), 1)
		default:
			res.Action = models.ActionHold
			res.Confidence = 0
		}
	}
	return res
}

func eval(n *Node, snap *models.IndicatorSnapshot, visited *int) value {
	if n == nil {
		return value{kind: numVal}
	}
	*visited++

	switch n.Kind {
	case KindConstant:
		return value{kind: numVal, num: n.Value}

	case KindIndicator:
		// Lookback is an evolvable parameter carried on the node; with a
		// single point-in-time snapshot it does not alter the lookup.
		return value{kind: numVal, num: indicatorValue(n.Name, snap)}

	case KindOperator:
		return value{kind: numVal, num: evalOperator(n, snap, visited)}

	case KindComparator:
		left := eval(n.Children[0], snap, visited).asNumber()
		right := eval(n.Children[1], snap, visited).asNumber()
		return value{kind: boolVal, b: compare(n.Op, left, right)}

	case KindLogical:
		return evalLogical(n, snap, visited)

	case KindAction:
		return value{kind: actVal, action: actionOps[n.Op], confidence: n.Confidence}
	}
	return value{kind: numVal}
}

func evalOperator(n *Node, snap *models.IndicatorSnapshot, visited *int) float64 {
	a := eval(n.Children[0], snap, visited).asNumber()
	var b float64
	if len(n.Children) > 1 {
		b = eval(n.Children[1], snap, visited).asNumber()
	}
	switch n.Op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		// Protected division: zero denominator folds to 0 instead of
		// propagating Inf/NaN through the tree.
		if math.Abs(b) < 1e-12 {
			return 0
		}
		return a / b
	case OpMax:
		return math.Max(a, b)
	case OpMin:
		return math.Min(a, b)
	case OpAbs:
		return math.Abs(a)
	case OpNegate:
		return -a
	}
	return 0
}

func compare(op string, left, right float64) bool {
	switch op {
	case OpGreater:
		return left > right
	case OpLess:
		return left < right
	case OpGreaterEq:
		return left >= right
	case OpLessEq:
		return left <= right
	case OpEqual:
		return math.Abs(left-right) < 1e-6
	case OpCrossAbove:
		return left > right && left-right <= crossMargin(right)
	case OpCrossBelow:
		return left < right && right-left <= crossMargin(right)
	}
	return false
}

func crossMargin(reference float64) float64 {
	return math.Max(math.Abs(reference), 1) * crossBand
}

func evalLogical(n *Node, snap *models.IndicatorSnapshot, visited *int) value {
	asBool := func(idx int) bool {
		v := eval(n.Children[idx], snap, visited)
		if v.kind == boolVal {
			return v.b
		}
		return v.asNumber() > 0
	}
	switch n.Op {
	case OpAnd:
		return value{kind: boolVal, b: asBool(0) && asBool(1)}
	case OpOr:
		return value{kind: boolVal, b: asBool(0) || asBool(1)}
	case OpXor:
		return value{kind: boolVal, b: asBool(0) != asBool(1)}
	case OpNot:
		return value{kind: boolVal, b: !asBool(0)}
	case OpIfThenElse:
		if asBool(0) {
			return eval(n.Children[1], snap, visited)
		}
		return eval(n.Children[2], snap, visited)
	}
	return value{kind: boolVal}
}

func indicatorValue(name string, snap *models.IndicatorSnapshot) float64 {
	switch name {
	case "rsi":
		return snap.RSI
	case "macd_histogram":
		return snap.MACDHistogram
	case "bollinger_position":
		return snap.BollingerPosition
	case "atr":
		return snap.ATR
	case "volume_ratio":
		return snap.VolumeRatio
	case "trend_strength":
		return snap.TrendStrength
	case "price_vs_sma":
		return snap.PriceVsSMA
	case "price_vs_ema":
		return snap.PriceVsEMA
	}
	// Unknown feature names read as 0 rather than failing evaluation.
	return 0
}
