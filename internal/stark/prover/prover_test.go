package prover

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vybium/vybium-stark/internal/stark/constraints"
	"github.com/vybium/vybium-stark/internal/stark/dag"
	"github.com/vybium/vybium-stark/internal/stark/field"
)

type fibTrace struct{ a, b []field.Element }

func (t *fibTrace) Rows() int    { return len(t.a) }
func (t *fibTrace) Columns() int { return 2 }
func (t *fibTrace) Value(column, row int) field.Element {
	if column == 0 {
		return t.a[row]
	}
	return t.b[row]
}

// buildFibConstraints builds the same Fibonacci-shaped constraint system as
// cmd/starkprove's fibonacciScenario, at a small row count suited to
// package-level tests.
func buildFibConstraints(t *testing.T, rows int) (*constraints.Constraints, *fibTrace, field.Element) {
	t.Helper()
	a := make([]field.Element, rows)
	b := make([]field.Element, rows)
	a[0], b[0] = field.One(), field.One()
	for i := 1; i < rows; i++ {
		a[i] = b[i-1]
		b[i] = a[i-1].Add(b[i-1])
	}
	trace := &fibTrace{a: a, b: b}

	const blowup = 4
	g := dag.New(field.FromUint64(101))
	traceGen, err := field.Root(uint64(rows))
	require.NoError(t, err)

	x := g.X()
	one := g.Constant(field.One())
	lastPoint := g.Constant(traceGen.PowUint64(uint64(rows - 1)))
	vanish := g.Sub(g.Exp(x, uint64(rows)), one)
	exceptLast := g.Mul(g.Sub(x, lastPoint), g.Inv(vanish))
	a0, a1 := g.Trace(0, 0), g.Trace(0, 1)
	b0, b1 := g.Trace(1, 0), g.Trace(1, 1)
	transitionA := g.Mul(g.Sub(a1, b0), exceptLast)
	transitionB := g.Mul(g.Sub(b1, g.Add(a0, b0)), exceptLast)
	boundaryAt := func(row, column int, value field.Element) int {
		point := g.Constant(traceGen.PowUint64(uint64(row)))
		return g.Mul(g.Sub(g.Trace(column, 0), g.Constant(value)), g.Inv(g.Sub(x, point)))
	}
	finalValue := a[rows-1]
	expressions := []int{
		transitionA, transitionB,
		boundaryAt(0, 0, field.One()),
		boundaryAt(0, 1, field.One()),
		boundaryAt(rows-1, 0, finalValue),
	}
	cs, err := constraints.New(g, rows, 2, expressions)
	require.NoError(t, err)
	cs.Blowup = blowup
	cs.NumQueries = 8
	cs.PoWBits = 16
	cs.FRILayout = []int{1, 1}
	return cs, trace, finalValue
}

func TestProveProducesNonEmptyProof(t *testing.T) {
	cs, trace, finalValue := buildFibConstraints(t, 8)
	p := New(cs, nil)
	finalBytes := finalValue.Bytes()
	proof, err := p.Prove(trace, finalBytes[:])
	require.NoError(t, err)
	require.NotEmpty(t, proof.Bytes)
}

// TestProveIsDeterministic exercises spec §8 "Replaying the prover twice on
// the same (constraints, trace) yields byte-identical proofs".
func TestProveIsDeterministic(t *testing.T) {
	cs, trace, finalValue := buildFibConstraints(t, 8)
	p := New(cs, nil)
	finalBytes := finalValue.Bytes()
	proof1, err := p.Prove(trace, finalBytes[:])
	require.NoError(t, err)
	proof2, err := p.Prove(trace, finalBytes[:])
	require.NoError(t, err)
	require.Equal(t, proof1.Bytes, proof2.Bytes)
}

func TestProveRejectsShapeMismatch(t *testing.T) {
	cs, trace, finalValue := buildFibConstraints(t, 8)
	trace.a = trace.a[:4]
	p := New(cs, nil)
	finalBytes := finalValue.Bytes()
	_, err := p.Prove(trace, finalBytes[:])
	require.Error(t, err)
}
