// Package tree implements the executable expression-tree representation of
// a trading decision rule and the genetic operators that act on it.
package tree

import (
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/quantforge/synth/models"
)

// Kind discriminates the node variants of the tagged union.
type Kind string

const (
	KindIndicator  Kind = "indicator"
	KindConstant   Kind = "constant"
	KindOperator   Kind = "operator"
	KindComparator Kind = "comparator"
	KindLogical    Kind = "logical"
	KindAction     Kind = "action"
)

// Arithmetic operators.
const (
	OpAdd    = "add"
	OpSub    = "sub"
	OpMul    = "mul"
	OpDiv    = "div" // protected: x/0 == 0
	OpMax    = "max"
	OpMin    = "min"
	OpAbs    = "abs"
	OpNegate = "negate"
)

// Comparators.
const (
	OpGreater    = "gt"
	OpLess       = "lt"
	OpGreaterEq  = "gte"
	OpLessEq     = "lte"
	OpEqual      = "eq"
	OpCrossAbove = "cross_above"
	OpCrossBelow = "cross_below"
)

// Logical operators. OpIfThenElse is the distinguished control node every
// generated tree is rooted at.
const (
	OpAnd        = "and"
	OpOr         = "or"
	OpNot        = "not"
	OpXor        = "xor"
	OpIfThenElse = "if_then_else"
)

// Limits are the structural caps enforced on every tree.
type Limits struct {
	MaxDepth int
	MaxNodes int
}

// DefaultLimits matches the configured defaults: depth 7, 63 nodes.
var DefaultLimits = Limits{MaxDepth: 7, MaxNodes: 63}

// Node is one tagged node of an expression tree. Trees are strictly owned
// and acyclic: no node is ever shared between two live trees, so every
// operator that reuses a subtree deep-clones it first.
type Node struct {
	Kind Kind `json:"kind"`

	// KindIndicator: market-feature name plus optional lookback.
	Name     string `json:"name,omitempty"`
	Lookback int    `json:"lookback,omitempty"`

	// KindConstant: numeric literal. KindAction reuses Value for nothing;
	// its payload is Confidence.
	Value float64 `json:"value,omitempty"`

	// KindOperator / KindComparator / KindLogical: operator tag.
	// KindAction: the action name (buy/sell/hold/close lowercased).
	Op string `json:"op,omitempty"`

	// KindAction: confidence scalar in [0,1].
	Confidence float64 `json:"confidence,omitempty"`

	Children []*Node `json:"children,omitempty"`
}

// operatorArity maps arithmetic operators to their child count.
var operatorArity = map[string]int{
	OpAdd: 2, OpSub: 2, OpMul: 2, OpDiv: 2, OpMax: 2, OpMin: 2,
	OpAbs: 1, OpNegate: 1,
}

// logicalArity maps logical operators to their child count.
var logicalArity = map[string]int{
	OpAnd: 2, OpOr: 2, OpXor: 2, OpNot: 1, OpIfThenElse: 3,
}

var comparatorOps = map[string]bool{
	OpGreater: true, OpLess: true, OpGreaterEq: true, OpLessEq: true,
	OpEqual: true, OpCrossAbove: true, OpCrossBelow: true,
}

var actionOps = map[string]models.Action{
	"buy":   models.ActionBuy,
	"sell":  models.ActionSell,
	"hold":  models.ActionHold,
	"close": models.ActionClose,
}

// Clone returns a deep copy sharing no nodes with the receiver.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	if len(n.Children) > 0 {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return &c
}

// Count returns the total number of nodes in the tree.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// Depth returns the tree depth; a single node has depth 1.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	deepest := 0
	for _, c := range n.Children {
		if d := c.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// HasAction reports whether at least one action leaf exists in the tree.
func (n *Node) HasAction() bool {
	if n == nil {
		return false
	}
	if n.Kind == KindAction {
		return true
	}
	for _, c := range n.Children {
		if c.HasAction() {
			return true
		}
	}
	return false
}

// Validate enforces the structural invariants: depth and node caps plus
// per-kind arity and tag consistency. A tree that fails here never enters
// evaluation.
func (n *Node) Validate(limits Limits) error {
	if n == nil {
		return fmt.Errorf("nil tree")
	}
	if d := n.Depth(); d > limits.MaxDepth {
		return fmt.Errorf("depth %d exceeds cap %d", d, limits.MaxDepth)
	}
	if c := n.Count(); c > limits.MaxNodes {
		return fmt.Errorf("node count %d exceeds cap %d", c, limits.MaxNodes)
	}
	return n.validateArity()
}

func (n *Node) validateArity() error {
	switch n.Kind {
	case KindIndicator:
		if n.Name == "" {
			return fmt.Errorf("indicator node missing name")
		}
		if len(n.Children) != 0 {
			return fmt.Errorf("indicator node must be a leaf")
		}
	case KindConstant:
		if len(n.Children) != 0 {
			return fmt.Errorf("constant node must be a leaf")
		}
	case KindOperator:
		want, ok := operatorArity[n.Op]
		if !ok {
			return fmt.Errorf("unknown operator %q", n.Op)
		}
		if len(n.Children) != want {
			return fmt.Errorf("operator %q wants %d children, has %d", n.Op, want, len(n.Children))
		}
	case KindComparator:
		if !comparatorOps[n.Op] {
			return fmt.Errorf("unknown comparator %q", n.Op)
		}
		if len(n.Children) != 2 {
			return fmt.Errorf("comparator %q wants 2 children, has %d", n.Op, len(n.Children))
		}
	case KindLogical:
		want, ok := logicalArity[n.Op]
		if !ok {
			return fmt.Errorf("unknown logical op %q", n.Op)
		}
		if len(n.Children) != want {
			return fmt.Errorf("logical %q wants %d children, has %d", n.Op, want, len(n.Children))
		}
	case KindAction:
		if _, ok := actionOps[n.Op]; !ok {
			return fmt.Errorf("unknown action %q", n.Op)
		}
		if len(n.Children) != 0 {
			return fmt.Errorf("action node must be a leaf")
		}
		if n.Confidence < 0 || n.Confidence > 1 {
			return fmt.Errorf("action confidence %v outside [0,1]", n.Confidence)
		}
	default:
		return fmt.Errorf("unknown node kind %q", n.Kind)
	}
	for _, c := range n.Children {
		if err := c.validateArity(); err != nil {
			return err
		}
	}
	return nil
}

// StructuralHash fingerprints the tree shape and tags (not constant values)
// for population diversity tracking.
func (n *Node) StructuralHash() uint64 {
	h := fnv.New64a()
	n.writeHash(h)
	return h.Sum64()
}

func (n *Node) writeHash(h interface{ Write([]byte) (int, error) }) {
	if n == nil {
		return
	}
	h.Write([]byte(n.Kind))
	h.Write([]byte(n.Op))
	h.Write([]byte(n.Name))
	h.Write([]byte{'('})
	for _, c := range n.Children {
		c.writeHash(h)
	}
	h.Write([]byte{')'})
}

// ToJSON serializes the tree. The tagged-union layout round-trips directly.
func (n *Node) ToJSON() ([]byte, error) {
	return json.Marshal(n)
}

// FromJSON deserializes a tree and checks its structural validity before
// handing it back.
func FromJSON(data []byte, limits Limits) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	if err := n.Validate(limits); err != nil {
		return nil, fmt.Errorf("decoded tree invalid: %w", err)
	}
	return &n, nil
}
