package tree

import "math"

// Simplify applies a best-effort semantic-equivalence pass: double
// negations drop, AND branches comparing the same indicator collapse to the
// stricter bound, and constant-only comparisons fold to a boolean constant.
// The input is never modified; the result of simplifying twice equals the
// result of simplifying once.
func Simplify(n *Node) *Node {
	if n == nil {
		return nil
	}
	return simplify(n.Clone())
}

func simplify(n *Node) *Node {
	for i, c := range n.Children {
		n.Children[i] = simplify(c)
	}

	switch n.Kind {
	case KindLogical:
		return simplifyLogical(n)
	case KindComparator:
		return simplifyComparator(n)
	}
	return n
}

func simplifyLogical(n *Node) *Node {
	switch n.Op {
	case OpNot:
		if inner := n.Children[0]; inner.Kind == KindLogical && inner.Op == OpNot {
			return inner.Children[0]
		}
	case OpAnd:
		a, b := n.Children[0], n.Children[1]
		if Equal(a, b) {
			return a
		}
		if merged := mergeStricter(a, b); merged != nil {
			return merged
		}
	}
	return n
}

// mergeStricter collapses and(cmp(ind, c1), cmp(ind, c2)) over the same
// indicator and comparison direction into the stricter of the two bounds.
func mergeStricter(a, b *Node) *Node {
	if a.Kind != KindComparator || b.Kind != KindComparator {
		return nil
	}
	if !sameDirection(a.Op, b.Op) {
		return nil
	}
	ai, ac := indicatorVsConstant(a)
	bi, bc := indicatorVsConstant(b)
	if ai == nil || bi == nil || ai.Name != bi.Name {
		return nil
	}
	switch a.Op {
	case OpGreater, OpGreaterEq:
		if bc.Value > ac.Value {
			return b
		}
		return a
	case OpLess, OpLessEq:
		if bc.Value < ac.Value {
			return b
		}
		return a
	}
	return nil
}

func sameDirection(opA, opB string) bool {
	greater := func(op string) bool { return op == OpGreater || op == OpGreaterEq }
	less := func(op string) bool { return op == OpLess || op == OpLessEq }
	return (greater(opA) && greater(opB)) || (less(opA) && less(opB))
}

// indicatorVsConstant recognizes the cmp(indicator, constant) shape.
func indicatorVsConstant(cmp *Node) (*Node, *Node) {
	left, right := cmp.Children[0], cmp.Children[1]
	if left.Kind == KindIndicator && right.Kind == KindConstant {
		return left, right
	}
	return nil, nil
}

// simplifyComparator folds comparisons between two constants into a boolean
// constant (1 or 0), which the interpreter coerces back to a boolean.
func simplifyComparator(n *Node) *Node {
	left, right := n.Children[0], n.Children[1]
	if left.Kind != KindConstant || right.Kind != KindConstant {
		return n
	}
	result := compare(n.Op, left.Value, right.Value)
	v := 0.0
	if result {
		v = 1.0
	}
	return &Node{Kind: KindConstant, Value: v}
}

// Equal reports deep structural and value equality of two trees.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Op != b.Op || a.Name != b.Name ||
		a.Lookback != b.Lookback || len(a.Children) != len(b.Children) {
		return false
	}
	if math.Abs(a.Value-b.Value) > 1e-12 || math.Abs(a.Confidence-b.Confidence) > 1e-12 {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}
