package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vybium/vybium-stark/internal/stark/field"
)

func TestProverVerifierAgreeOnChallenges(t *testing.T) {
	seed := []byte("test-seed")
	prover := NewProverChannel(seed)

	root := [32]byte{1, 2, 3}
	prover.WriteBytes(root[:])
	coeffs := prover.SampleFieldElements(4)

	prover.WriteElement(field.FromUint64(42))
	indices := prover.SampleIndices(5, 10)

	proofBytes := prover.Proof()

	verifier := NewVerifierChannel(seed, proofBytes)
	gotRoot, err := verifier.ReadBytes(32)
	require.NoError(t, err)
	require.Equal(t, root[:], gotRoot)

	gotCoeffs := verifier.SampleFieldElements(4)
	for i := range coeffs {
		require.True(t, coeffs[i].Equal(gotCoeffs[i]))
	}

	gotElem, err := verifier.ReadElement()
	require.NoError(t, err)
	require.True(t, gotElem.Equal(field.FromUint64(42)))

	gotIndices := verifier.SampleIndices(5, 10)
	require.Equal(t, indices, gotIndices)

	require.True(t, verifier.AtEnd())
}

func TestVerifierDetectsTruncatedProof(t *testing.T) {
	seed := []byte("seed")
	prover := NewProverChannel(seed)
	prover.WriteElement(field.FromUint64(7))
	proofBytes := prover.Proof()

	verifier := NewVerifierChannel(seed, proofBytes[:len(proofBytes)-1])
	_, err := verifier.ReadElement()
	require.ErrorIs(t, err, ErrProofTooShort)
}

func TestVerifierDetectsExtraBytes(t *testing.T) {
	seed := []byte("seed")
	prover := NewProverChannel(seed)
	prover.WriteElement(field.FromUint64(7))
	proofBytes := append(prover.Proof(), 0xff)

	verifier := NewVerifierChannel(seed, proofBytes)
	_, err := verifier.ReadElement()
	require.NoError(t, err)
	require.False(t, verifier.AtEnd())
}

func TestPowGrindAndVerify(t *testing.T) {
	seed := [32]byte{9, 9, 9}
	nonce := PowGrind(seed, 8)
	require.True(t, PowVerify(seed, nonce, 8))
	require.False(t, PowVerify(seed, 0, 64))
}

func TestSampleIndicesDeduped(t *testing.T) {
	seed := []byte("idx-seed")
	prover := NewProverChannel(seed)
	indices := prover.SampleIndices(20, 8)
	seen := make(map[int]bool)
	for i, idx := range indices {
		require.False(t, seen[idx])
		seen[idx] = true
		if i > 0 {
			require.Greater(t, idx, indices[i-1])
		}
	}
}
