package merkle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func leafSet(n int) []Hash {
	leaves := make([]Hash, n)
	for i := range leaves {
		leaves[i] = Keccak256([]byte{byte(i)})
	}
	return leaves
}

func TestCommitRejectsNonPowerOfTwo(t *testing.T) {
	_, _, err := Commit(leafSet(3), nil)
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestMultiProofRoundTrip(t *testing.T) {
	leaves := leafSet(16)
	tree, commitment, err := Commit(leaves, nil)
	require.NoError(t, err)

	indices := []int{1, 2, 3, 9, 15}
	proof, err := tree.Prove(indices)
	require.NoError(t, err)

	values := make(map[int]Hash, len(indices))
	for _, i := range indices {
		values[i] = leaves[i]
	}
	require.NoError(t, Verify(commitment, values, proof, nil))
}

func TestMultiProofRejectsWrongValue(t *testing.T) {
	leaves := leafSet(8)
	tree, commitment, err := Commit(leaves, nil)
	require.NoError(t, err)

	indices := []int{0, 5}
	proof, err := tree.Prove(indices)
	require.NoError(t, err)

	values := map[int]Hash{0: leaves[0], 5: Keccak256([]byte("wrong"))}
	require.Error(t, Verify(commitment, values, proof, nil))
}

func TestProofIsMinimal(t *testing.T) {
	leaves := leafSet(8)
	tree, _, err := Commit(leaves, nil)
	require.NoError(t, err)

	// Querying two sibling leaves should need strictly fewer sibling
	// hashes than querying two leaves in disjoint subtrees.
	siblingProof, err := tree.Prove([]int{0, 1})
	require.NoError(t, err)
	disjointProof, err := tree.Prove([]int{0, 4})
	require.NoError(t, err)

	require.Less(t, len(siblingProof.Hashes), len(disjointProof.Hashes))
}

func TestSingleIndexProof(t *testing.T) {
	leaves := leafSet(4)
	tree, commitment, err := Commit(leaves, nil)
	require.NoError(t, err)

	proof, err := tree.Prove([]int{2})
	require.NoError(t, err)
	require.Len(t, proof.Hashes, 2) // log2(4) siblings for one index

	require.NoError(t, Verify(commitment, map[int]Hash{2: leaves[2]}, proof, nil))
}
