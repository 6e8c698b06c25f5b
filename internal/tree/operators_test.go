package tree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRespectsCaps(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for depth := 3; depth <= 7; depth++ {
		limits := Limits{MaxDepth: depth, MaxNodes: 63}
		for i := 0; i < 200; i++ {
			n := Generate(rng, limits)
			require.NoError(t, n.Validate(limits), "depth=%d iteration=%d", depth, i)
			assert.LessOrEqual(t, n.Depth(), depth)
			assert.LessOrEqual(t, n.Count(), 63)
		}
	}
}

func TestGenerateRootIsExecutableRule(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 100; i++ {
		n := Generate(rng, DefaultLimits)
		assert.Equal(t, KindLogical, n.Kind)
		assert.Equal(t, OpIfThenElse, n.Op)
		require.Len(t, n.Children, 3)
		assert.True(t, n.HasAction())
	}
}

func TestCrossoverChildrenStayValid(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 300; i++ {
		a := Generate(rng, DefaultLimits)
		b := Generate(rng, DefaultLimits)
		ca, cb := Crossover(rng, a, b, DefaultLimits)
		require.NoError(t, ca.Validate(DefaultLimits), "iteration %d", i)
		require.NoError(t, cb.Validate(DefaultLimits), "iteration %d", i)
	}
}

func TestCrossoverDoesNotTouchParents(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	a := Generate(rng, DefaultLimits)
	b := Generate(rng, DefaultLimits)
	aBefore := a.Clone()
	bBefore := b.Clone()

	for i := 0; i < 50; i++ {
		Crossover(rng, a, b, DefaultLimits)
	}
	assert.True(t, Equal(a, aBefore))
	assert.True(t, Equal(b, bBefore))
}

func TestMutationOperatorsStayValidAndPure(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	operators := map[string]func(*rand.Rand, *Node, Limits) *Node{
		"point":   Mutate,
		"subtree": SubtreeMutate,
		"hoist":   HoistMutate,
	}
	for name, op := range operators {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				original := Generate(rng, DefaultLimits)
				before := original.Clone()
				mutant := op(rng, original, DefaultLimits)
				require.NoError(t, mutant.Validate(DefaultLimits), "iteration %d", i)
				assert.True(t, Equal(original, before), "operator mutated its input")
			}
		})
	}
}

func TestHoistMutateNeverGrows(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	for i := 0; i < 200; i++ {
		original := Generate(rng, DefaultLimits)
		hoisted := HoistMutate(rng, original, DefaultLimits)
		assert.LessOrEqual(t, hoisted.Count(), original.Count())
		assert.Equal(t, OpIfThenElse, hoisted.Op)
	}
}

func TestEnforceLimitsCollapsesOversizedTrees(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := Generate(rng, DefaultLimits)
	tight := Limits{MaxDepth: 4, MaxNodes: 12}
	enforceLimits(rng, n, tight)
	assert.NoError(t, n.Validate(tight))
}
