package dag

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-stark/internal/stark/field"
	"github.com/vybium/vybium-stark/internal/stark/polynomial"
)

type tableAccessor struct {
	cols [][]field.Element
}

func (a tableAccessor) At(row, column, offset int) field.Element {
	n := len(a.cols[column])
	idx := ((row+offset)%n + n) % n
	return a.cols[column][idx]
}

// direct is a tree-walk reference evaluator over the same logical
// expression (a0*a1 + 3), used to check the DAG agrees with it.
func direct(a tableAccessor, row int) field.Element {
	a0 := a.At(row, 0, 0)
	a1 := a.At(row, 1, 0)
	return a0.Mul(a1).Add(field.FromUint64(3))
}

func buildExpr(g *Graph) int {
	t0 := g.Trace(0, 0)
	t1 := g.Trace(1, 0)
	prod := g.Mul(t0, t1)
	return g.Add(prod, g.Constant(field.FromUint64(3)))
}

func TestDAGAgreesWithDirectEvaluation(t *testing.T) {
	domainSize := 32
	g := New(field.FromUint64(12345))
	out := buildExpr(g)
	shaken := g.TreeShake([]int{out})
	evaluator := NewEvaluator(shaken)

	col0 := make([]field.Element, domainSize)
	col1 := make([]field.Element, domainSize)
	for i := range col0 {
		col0[i] = field.FromUint64(uint64(i + 1))
		col1[i] = field.FromUint64(uint64(2*i + 5))
	}
	access := tableAccessor{cols: [][]field.Element{col0, col1}}

	domain, err := polynomial.NewDomain(domainSize, field.One())
	require.NoError(t, err)

	values, err := evaluator.EvaluateDomain(access, domain)
	require.NoError(t, err)

	for row := 0; row < domainSize; row++ {
		require.True(t, values[row].Equal(direct(access, row)), "row %d", row)
	}
}

func TestFingerprintDedupDoesNotChangeValue(t *testing.T) {
	g := New(field.FromUint64(777))
	a := g.Trace(0, 0)
	b := g.Trace(0, 0) // identical reference, must dedup to the same node
	require.Equal(t, a, b)

	sum1 := g.Add(a, b)
	sum2 := g.Add(b, a)
	_ = sum2 // commutative construction also dedups via fingerprint equality once simplification folds them

	out := g.TreeShake([]int{sum1})
	evaluator := NewEvaluator(out)

	col0 := []field.Element{field.FromUint64(9)}
	access := tableAccessor{cols: [][]field.Element{col0}}
	v, err := evaluator.EvalAt(field.Zero(), func(col, offset int) field.Element { return access.At(0, col, offset) })
	require.NoError(t, err)
	require.True(t, v.Equal(field.FromUint64(18)))
}

func TestTreeShakeMatchesUnshakenEvaluation(t *testing.T) {
	g := New(field.FromUint64(42))
	// Build several nodes, only some of which feed the output.
	unused := g.Mul(g.Constant(field.FromUint64(2)), g.Constant(field.FromUint64(3)))
	_ = unused
	out := buildExpr(g)

	shaken := g.TreeShake([]int{out})
	evaluator := NewEvaluator(shaken)

	col0 := []field.Element{field.FromUint64(4)}
	col1 := []field.Element{field.FromUint64(5)}
	access := tableAccessor{cols: [][]field.Element{col0, col1}}

	v, err := evaluator.EvalAt(field.Zero(), func(col, offset int) field.Element { return access.At(0, col, offset) })
	require.NoError(t, err)
	require.True(t, v.Equal(field.FromUint64(4*5 + 3)))

	unshaken := NewEvaluator(&Shaken{Nodes: g.nodes, Outputs: []int{out}})
	full, err := unshaken.EvalAt(field.Zero(), func(col, offset int) field.Element { return access.At(0, col, offset) })
	require.NoError(t, err)
	require.True(t, v.Equal(full))
	require.Less(t, len(shaken.Nodes), g.NodeCount())
}

func TestConstantFoldingCollapsesArithmetic(t *testing.T) {
	g := New(field.FromUint64(1))
	sum := g.Add(g.Constant(field.FromUint64(2)), g.Constant(field.FromUint64(3)))
	require.Equal(t, OpConstant, g.nodes[sum].Op)
	require.True(t, g.nodes[sum].Constant.Equal(field.FromUint64(5)))
}

func TestExpFusion(t *testing.T) {
	g := New(field.FromUint64(1))
	x := g.X()
	e1 := g.Exp(x, 2)
	e2 := g.Exp(e1, 3)
	require.Equal(t, OpExp, g.nodes[e2].Op)
	require.Equal(t, uint64(6), g.nodes[e2].Exponent)
}
