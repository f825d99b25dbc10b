package polynomial

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-stark/internal/stark/field"
)

func randomCoeffs(n int, seed uint64) []field.Element {
	out := make([]field.Element, n)
	for i := range out {
		out[i] = field.FromUint64(seed + uint64(i)*2654435761)
	}
	return out
}

// referenceDFT is the O(n^2) Horner-based evaluator used as ground truth.
func referenceDFT(coeffs []field.Element, root field.Element) []field.Element {
	n := len(coeffs)
	out := make([]field.Element, n)
	x := field.One()
	for i := 0; i < n; i++ {
		acc := field.Zero()
		xp := field.One()
		for _, c := range coeffs {
			acc = acc.Add(c.Mul(xp))
			xp = xp.Mul(x)
		}
		out[i] = acc
		x = x.Mul(root)
	}
	return out
}

func TestFFTAgreesWithReferenceDFT(t *testing.T) {
	n := 16
	coeffs := randomCoeffs(n, 1)
	root, err := field.Root(uint64(n))
	require.NoError(t, err)

	expected := referenceDFT(coeffs, root)

	got := make([]field.Element, n)
	copy(got, coeffs)
	require.NoError(t, FFT(got))
	BitReverse(got) // un-permute to compare against the natural-order reference

	for i := range expected {
		require.True(t, expected[i].Equal(got[i]), "index %d: expected %s got %s", i, expected[i], got[i])
	}
}

func TestIFFTInvertsFFT(t *testing.T) {
	for _, n := range []int{1, 2, 4, 8, 32, 128} {
		coeffs := randomCoeffs(n, 7)
		v := make([]field.Element, n)
		copy(v, coeffs)

		require.NoError(t, FFT(v))
		require.NoError(t, IFFT(v))

		for i := range coeffs {
			require.True(t, coeffs[i].Equal(v[i]), "n=%d index %d", n, i)
		}
	}
}

func TestFFTCofactorMatchesDirectEvaluation(t *testing.T) {
	n := 8
	coeffs := randomCoeffs(n, 3)
	p := New(coeffs)
	cofactor := field.FromUint64(5)

	values, err := EvaluateDomain(p, cofactor, n)
	require.NoError(t, err)
	BitReverse(values)

	root, err := field.Root(uint64(n))
	require.NoError(t, err)
	x := cofactor
	for i := 0; i < n; i++ {
		require.True(t, p.Eval(x).Equal(values[i]), "index %d", i)
		x = x.Mul(root)
	}
}

func TestBitReverseIsSelfInverse(t *testing.T) {
	n := 16
	v := randomCoeffs(n, 9)
	original := make([]field.Element, n)
	copy(original, v)

	BitReverse(v)
	BitReverse(v)

	for i := range v {
		require.True(t, original[i].Equal(v[i]))
	}
}

func TestInterpolateRootsOfUnityRoundTrip(t *testing.T) {
	n := 8
	coeffs := randomCoeffs(n, 11)
	p := New(coeffs)

	values := make([]field.Element, n)
	copy(values, coeffs)
	require.NoError(t, FFT(values))

	recovered, err := InterpolateRootsOfUnity(values)
	require.NoError(t, err)
	require.Equal(t, p.Degree(), recovered.Degree())
	for i := 0; i <= p.Degree(); i++ {
		require.True(t, p.Coefficient(i).Equal(recovered.Coefficient(i)))
	}
}
