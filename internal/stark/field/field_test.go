package field

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/stretchr/testify/require"
)

func genElement() gopter.Gen {
	return gen.UInt64().Map(func(x uint64) Element { return FromUint64(x) })
}

func TestInverseMul(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("a * inv(a) == 1 for a != 0", gopter.ForAll(
		func(a Element) bool {
			if a.IsZero() {
				a = One()
			}
			inv, err := a.Inv()
			if err != nil {
				return false
			}
			return a.Mul(inv).IsOne()
		},
		genElement(),
	))

	properties.TestingRun(t)
}

func TestFermatsLittleTheorem(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("a^p == a", gopter.ForAll(
		func(a Element) bool {
			return a.Pow(Modulus).Equal(a)
		},
		genElement(),
	))

	properties.TestingRun(t)
}

func TestRootOfUnityDefinition(t *testing.T) {
	for _, n := range []uint64{1, 2, 4, 8, 16, 1024} {
		root, err := Root(n)
		require.NoError(t, err)
		require.True(t, root.PowUint64(n).IsOne(), "root(%d)^%d should be 1", n, n)
		for d := uint64(1); d < n; d *= 2 {
			require.False(t, root.PowUint64(d).IsOne(), "root(%d) should not have order dividing %d", n, d)
		}
	}
}

func TestRootRejectsNonDivisor(t *testing.T) {
	_, err := Root(3)
	require.ErrorIs(t, err, ErrNoRootOfUnity)
}

func TestBatchInvertAgreesWithIndividual(t *testing.T) {
	elements := make([]Element, 0, 16)
	for i := uint64(1); i <= 16; i++ {
		elements = append(elements, FromUint64(i*7+1))
	}
	batched, err := BatchInvert(elements)
	require.NoError(t, err)
	for i, e := range elements {
		individual, err := e.Inv()
		require.NoError(t, err)
		require.True(t, individual.Equal(batched[i]))
	}
}

func TestBatchInvertRejectsZero(t *testing.T) {
	_, err := BatchInvert([]Element{One(), Zero()})
	require.ErrorIs(t, err, ErrInverseOfZero)
}

func TestInvZeroFails(t *testing.T) {
	_, err := Zero().Inv()
	require.ErrorIs(t, err, ErrInverseOfZero)
}

func TestPowZeroExponentIsOneEvenForZero(t *testing.T) {
	require.True(t, Zero().Pow(big.NewInt(0)).IsOne())
}

func TestSqrtRoundTrip(t *testing.T) {
	a := FromUint64(1234567891)
	sq := a.Square()
	root, err := sq.Sqrt()
	require.NoError(t, err)
	require.True(t, root.Square().Equal(sq))
}

func TestMontgomeryBytesRoundTrip(t *testing.T) {
	a := FromUint64(424242)
	b := a.Bytes()
	back, err := FromMontgomeryBytes(b)
	require.NoError(t, err)
	require.True(t, a.Equal(back))
}

func TestMontgomeryBytesRejectsOutOfRange(t *testing.T) {
	var raw [32]byte
	Modulus.FillBytes(raw[:])
	_, err := FromMontgomeryBytes(raw)
	require.Error(t, err)
}
