package fri

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-stark/internal/stark/field"
	"github.com/vybium/vybium-stark/internal/stark/merkle"
	"github.com/vybium/vybium-stark/internal/stark/polynomial"
)

// splitEvenOdd decomposes p(X) = E(X^2) + X*O(X^2) and returns E, O.
func splitEvenOdd(p *polynomial.Polynomial) (*polynomial.Polynomial, *polynomial.Polynomial) {
	var evenCoeffs, oddCoeffs []field.Element
	for i := 0; i <= p.Degree(); i++ {
		c := p.Coefficient(i)
		if i%2 == 0 {
			evenCoeffs = append(evenCoeffs, c)
		} else {
			oddCoeffs = append(oddCoeffs, c)
		}
	}
	return polynomial.New(evenCoeffs), polynomial.New(oddCoeffs)
}

func TestFoldMatchesEvenOddDecomposition(t *testing.T) {
	n := 16
	coeffs := make([]field.Element, n/2)
	for i := range coeffs {
		coeffs[i] = field.FromUint64(uint64(3*i + 1))
	}
	p := polynomial.New(coeffs)

	domain, err := polynomial.NewDomain(n, field.Generator)
	require.NoError(t, err)
	values, err := polynomial.EvaluateDomain(p, domain.Offset, n)
	require.NoError(t, err)

	beta := field.FromUint64(17)
	folded, halfDomain, err := Fold(values, domain, beta)
	require.NoError(t, err)
	require.Equal(t, n/2, halfDomain.Length)

	evenPoly, oddPoly := splitEvenOdd(p)
	two := field.FromUint64(2)
	for k := 0; k < n/2; k++ {
		naturalIdx := polynomial.PermuteIndex(n/2, k)
		y := halfDomain.At(naturalIdx)
		expected := evenPoly.Eval(y).Add(beta.Mul(oddPoly.Eval(y))).Mul(two)
		require.True(t, folded[k].Equal(expected), "group %d", k)
	}
}

func TestVerifyFoldAgreesWithFold(t *testing.T) {
	n := 8
	coeffs := []field.Element{field.FromUint64(5), field.FromUint64(2), field.FromUint64(9), field.FromUint64(1)}
	p := polynomial.New(coeffs)
	domain, err := polynomial.NewDomain(n, field.One())
	require.NoError(t, err)
	values, err := polynomial.EvaluateDomain(p, domain.Offset, n)
	require.NoError(t, err)

	beta := field.FromUint64(42)
	folded, _, err := Fold(values, domain, beta)
	require.NoError(t, err)

	for k := 0; k < n/2; k++ {
		ok, err := VerifyFold(values[2*k], values[2*k+1], domain, k, beta, folded[k])
		require.NoError(t, err)
		require.True(t, ok)
	}

	// Tampering with the expected value must fail verification.
	ok, err := VerifyFold(values[0], values[1], domain, 0, beta, folded[0].Add(field.One()))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCommitLayerProducesVerifiableProof(t *testing.T) {
	n := 8
	values := make([]field.Element, n)
	for i := range values {
		values[i] = field.FromUint64(uint64(i + 1))
	}
	domain, err := polynomial.NewDomain(n, field.One())
	require.NoError(t, err)
	layer, err := CommitLayer(values, domain, nil)
	require.NoError(t, err)

	indices := []int{0, 3, 5}
	proof, err := layer.Tree.Prove(indices)
	require.NoError(t, err)

	have := map[int]merkle.Hash{}
	for _, i := range indices {
		have[i] = LeafHash(values[i], nil)
	}
	err = merkle.Verify(layer.Commitment, have, proof, merkle.Keccak256)
	require.NoError(t, err)
}
