package verifier

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vybium/vybium-stark/internal/stark/constraints"
	"github.com/vybium/vybium-stark/internal/stark/dag"
	"github.com/vybium/vybium-stark/internal/stark/field"
	"github.com/vybium/vybium-stark/internal/stark/merkle"
	"github.com/vybium/vybium-stark/internal/stark/prover"
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

func proveFib(t *testing.T, cs *constraints.Constraints, trace *fibTrace, finalValue field.Element) *prover.Proof {
	t.Helper()
	finalBytes := finalValue.Bytes()
	proof, err := prover.New(cs, nil).Prove(trace, finalBytes[:])
	require.NoError(t, err)
	return proof
}

func TestVerifyAcceptsGenuineProof(t *testing.T) {
	cs, trace, finalValue := buildFibConstraints(t, 8)
	proof := proveFib(t, cs, trace, finalValue)
	finalBytes := finalValue.Bytes()
	require.NoError(t, New(cs, nil).Verify(proof.Bytes, finalBytes[:]))
}

func TestVerifyDetectsFlippedOODSValue(t *testing.T) {
	cs, trace, finalValue := buildFibConstraints(t, 8)
	proof := proveFib(t, cs, trace, finalValue)

	tampered := append([]byte(nil), proof.Bytes...)
	oodsOffset := 2 * merkle.HashSize
	tampered[oodsOffset] ^= 0xff

	finalBytes := finalValue.Bytes()
	err := New(cs, nil).Verify(tampered, finalBytes[:])
	require.Error(t, err)
}

func TestVerifyDetectsMaliciousPoW(t *testing.T) {
	cs, trace, finalValue := buildFibConstraints(t, 8)
	proof := proveFib(t, cs, trace, finalValue)

	traceArgs := cs.TraceArguments()
	rounds := 0
	for _, step := range cs.FRILayout {
		rounds += step
	}
	n0 := cs.TraceRows * cs.Blowup
	finalLen := (n0 >> uint(rounds)) / cs.Blowup

	// trace root, composition root, trace OODS values, composition OODS
	// value, FRI layer roots, final coefficients, then the nonce.
	offset := merkle.HashSize + merkle.HashSize + len(traceArgs)*32 + 32 + (rounds-1)*merkle.HashSize + finalLen*32
	tampered := append([]byte(nil), proof.Bytes...)
	for i := 0; i < 8; i++ {
		tampered[offset+i] = 0
	}

	finalBytes := finalValue.Bytes()
	err := New(cs, nil).Verify(tampered, finalBytes[:])
	require.Error(t, err)
	var serr *Error
	require.ErrorAs(t, err, &serr)
	require.Equal(t, InvalidPoW, serr.Code)
}

func TestVerifyRejectsExtraBytes(t *testing.T) {
	cs, trace, finalValue := buildFibConstraints(t, 8)
	proof := proveFib(t, cs, trace, finalValue)

	extended := append(append([]byte(nil), proof.Bytes...), 0x42)
	finalBytes := finalValue.Bytes()
	err := New(cs, nil).Verify(extended, finalBytes[:])
	require.ErrorIs(t, err, ErrProofTooLong)
}

func TestVerifyRejectsTruncatedProof(t *testing.T) {
	cs, trace, finalValue := buildFibConstraints(t, 8)
	proof := proveFib(t, cs, trace, finalValue)
	require.Greater(t, len(proof.Bytes), 32)

	truncated := proof.Bytes[:len(proof.Bytes)-32]
	finalBytes := finalValue.Bytes()
	err := New(cs, nil).Verify(truncated, finalBytes[:])
	require.Error(t, err)
}
