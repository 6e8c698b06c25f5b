package tree

import (
	"math/rand"
)

// nodeRef locates a node inside a tree: the node itself, its parent (nil
// for the root), its index among the parent's children, and its depth from
// the root (root depth 1).
type nodeRef struct {
	node     *Node
	parent   *Node
	childIdx int
	depth    int
}

func collectRefs(n *Node) []nodeRef {
	var refs []nodeRef
	var walk func(node, parent *Node, idx, depth int)
	walk = func(node, parent *Node, idx, depth int) {
		refs = append(refs, nodeRef{node: node, parent: parent, childIdx: idx, depth: depth})
		for i, c := range node.Children {
			walk(c, node, i, depth+1)
		}
	}
	walk(n, nil, -1, 1)
	return refs
}

// internalRefs returns the non-root, non-leaf positions of a tree. Genetic
// operators pick their working points here so the if-then-else root is
// never disturbed.
func internalRefs(n *Node) []nodeRef {
	var out []nodeRef
	for _, r := range collectRefs(n) {
		if r.parent != nil && len(r.node.Children) > 0 {
			out = append(out, r)
		}
	}
	return out
}

func nonRootRefs(n *Node) []nodeRef {
	var out []nodeRef
	for _, r := range collectRefs(n) {
		if r.parent != nil {
			out = append(out, r)
		}
	}
	return out
}

// Crossover deep-clones both parents, picks one internal crossover point in
// each and swaps the subtrees' kind/value/params/children wholesale, then
// re-prunes both children to the structural caps. The parents are never
// touched; the children share no nodes with them or each other.
func Crossover(rng *rand.Rand, a, b *Node, limits Limits) (*Node, *Node) {
	childA := a.Clone()
	childB := b.Clone()

	pointsA := internalRefs(childA)
	pointsB := internalRefs(childB)
	if len(pointsA) > 0 && len(pointsB) > 0 {
		pa := pointsA[rng.Intn(len(pointsA))].node
		pb := pointsB[rng.Intn(len(pointsB))].node
		*pa, *pb = *pb, *pa
	}

	enforceLimits(rng, childA, limits)
	enforceLimits(rng, childB, limits)
	return childA, childB
}

// Mutate clones the tree and perturbs a single node's value in place:
// constants jitter, indicators re-point, operators swap within their arity
// class, action leaves change verb or confidence.
func Mutate(rng *rand.Rand, n *Node, limits Limits) *Node {
	c := n.Clone()
	refs := collectRefs(c)
	target := refs[rng.Intn(len(refs))].node
	pointMutate(rng, target)
	enforceLimits(rng, c, limits)
	return c
}

func pointMutate(rng *rand.Rand, n *Node) {
	switch n.Kind {
	case KindConstant:
		if rng.Intn(2) == 0 {
			n.Value *= 0.8 + rng.Float64()*0.4
		} else {
			n.Value = randomConstant(rng)
		}
	case KindIndicator:
		n.Name = IndicatorNames[rng.Intn(len(IndicatorNames))]
		if n.Lookback > 0 {
			n.Lookback = 1 + rng.Intn(20)
		}
	case KindOperator:
		arity := operatorArity[n.Op]
		for {
			op := arithmeticOps[rng.Intn(len(arithmeticOps))]
			if operatorArity[op] == arity {
				n.Op = op
				break
			}
		}
	case KindComparator:
		n.Op = comparatorList[rng.Intn(len(comparatorList))]
	case KindLogical:
		// and/or/xor are interchangeable; not and if-then-else keep their
		// shape and are left alone.
		if logicalArity[n.Op] == 2 {
			two := []string{OpAnd, OpOr, OpXor}
			n.Op = two[rng.Intn(len(two))]
		}
	case KindAction:
		if rng.Intn(2) == 0 {
			n.Op = actionNames[rng.Intn(len(actionNames))]
		} else {
			n.Confidence = 0.4 + rng.Float64()*0.6
		}
	}
}

// SubtreeMutate clones the tree and replaces one random non-root subtree
// with a freshly generated one bounded by the remaining depth budget.
func SubtreeMutate(rng *rand.Rand, n *Node, limits Limits) *Node {
	c := n.Clone()
	refs := nonRootRefs(c)
	if len(refs) == 0 {
		return c
	}
	r := refs[rng.Intn(len(refs))]
	budget := limits.MaxDepth - r.depth + 1
	fresh := randomSubtree(rng, r.node.Kind, budget)
	r.parent.Children[r.childIdx] = fresh
	enforceLimits(rng, c, limits)
	return c
}

// HoistMutate collapses the tree's condition to one of its own boolean
// subtrees, a bloat-control move. The if-then-else root and its action
// branches survive; only the condition shrinks.
func HoistMutate(rng *rand.Rand, n *Node, limits Limits) *Node {
	c := n.Clone()
	if c.Op != OpIfThenElse || len(c.Children) != 3 {
		return c
	}
	cond := c.Children[0]
	var candidates []*Node
	for _, r := range collectRefs(cond) {
		if r.parent == nil {
			continue
		}
		if r.node.Kind == KindLogical || r.node.Kind == KindComparator {
			candidates = append(candidates, r.node)
		}
	}
	if len(candidates) == 0 {
		return c
	}
	c.Children[0] = candidates[rng.Intn(len(candidates))].Clone()
	enforceLimits(rng, c, limits)
	return c
}

// enforceLimits restores the depth and node-count invariants after a
// genetic operation: any subtree past the depth cap is replaced by a random
// terminal, and oversized trees have their largest non-root subtrees
// collapsed until the count fits.
func enforceLimits(rng *rand.Rand, n *Node, limits Limits) {
	pruneDepth(rng, n, limits.MaxDepth)
	for n.Count() > limits.MaxNodes {
		refs := nonRootRefs(n)
		var biggest nodeRef
		size := 1
		for _, r := range refs {
			if c := r.node.Count(); c > size {
				size = c
				biggest = r
			}
		}
		if biggest.parent == nil {
			return
		}
		biggest.parent.Children[biggest.childIdx] = terminalFor(rng, biggest.node.Kind)
	}
}

func pruneDepth(rng *rand.Rand, n *Node, budget int) {
	for i, c := range n.Children {
		if budget <= 2 && len(c.Children) > 0 {
			n.Children[i] = terminalFor(rng, c.Kind)
			continue
		}
		pruneDepth(rng, c, budget-1)
	}
}

// terminalFor picks a leaf standing in for a pruned subtree. Action slots
// stay actions; everything else becomes an indicator or constant, which the
// interpreter coerces as needed.
func terminalFor(rng *rand.Rand, slot Kind) *Node {
	if slot == KindAction {
		return randomAction(rng)
	}
	return randomTerminal(rng)
}
