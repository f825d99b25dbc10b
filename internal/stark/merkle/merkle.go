// Package merkle implements a binary leaf-addressed Merkle tree with
// multi-index minimal decommitment proofs (spec COMPONENT DESIGN 4.5).
package merkle

import (
	"fmt"
	"sort"

	"golang.org/x/crypto/sha3"

	"github.com/vybium/vybium-stark/internal/stark/utils"
)

// HashSize is the digest size of the fingerprint hash (Keccak-256).
const HashSize = 32

// Hash is a single tree-node digest.
type Hash [HashSize]byte

// HashFunc is the pluggable fingerprint hash used for leaves and internal
// nodes. Adapted from the teacher's GetFieldFriendlyHash dispatch idiom
// (core/hash.go), re-homed onto raw bytes since Merkle leaves here are
// byte-encoded field elements (spec EXTERNAL INTERFACES, "Merkle leaf
// encoding").
type HashFunc func(data ...[]byte) Hash

// Keccak256 is the spec-mandated default fingerprint hash.
func Keccak256(data ...[]byte) Hash {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Commitment is (leaf-count, root-hash).
type Commitment struct {
	Size int
	Root Hash
}

// Tree is a binary Merkle tree over a power-of-two number of leaves.
type Tree struct {
	hash   HashFunc
	levels [][]Hash // levels[0] = leaves, levels[len-1] = [root]
}

// ErrInvalidSize is returned when a size is not a power of two >= 1.
var ErrInvalidSize = fmt.Errorf("merkle: size must be a power of two >= 1")

// Commit builds a tree over the given leaves using hashFn (Keccak256 if
// nil), returning the tree and its commitment.
func Commit(leaves []Hash, hashFn HashFunc) (*Tree, Commitment, error) {
	if !utils.IsPowerOfTwo(len(leaves)) {
		return nil, Commitment{}, ErrInvalidSize
	}
	if hashFn == nil {
		hashFn = Keccak256
	}
	levels := make([][]Hash, 0, log2(len(leaves))+1)
	levels = append(levels, append([]Hash(nil), leaves...))
	for len(levels[len(levels)-1]) > 1 {
		cur := levels[len(levels)-1]
		next := make([]Hash, len(cur)/2)
		for i := range next {
			next[i] = hashFn(cur[2*i][:], cur[2*i+1][:])
		}
		levels = append(levels, next)
	}
	t := &Tree{hash: hashFn, levels: levels}
	return t, Commitment{Size: len(leaves), Root: levels[len(levels)-1][0]}, nil
}

// CommitLeafData hashes each element of data (concatenating its byte
// chunks) into a leaf and commits over the resulting leaf set — the
// "Merkle leaf encoding" of spec EXTERNAL INTERFACES.
func CommitLeafData(data [][][]byte, hashFn HashFunc) (*Tree, Commitment, error) {
	if hashFn == nil {
		hashFn = Keccak256
	}
	leaves := make([]Hash, len(data))
	for i, row := range data {
		leaves[i] = hashFn(row...)
	}
	return Commit(leaves, hashFn)
}

func log2(n int) int {
	r := 0
	for n > 1 {
		n >>= 1
		r++
	}
	return r
}

// Proof is a multi-index decommitment proof: the minimal list of sibling
// hashes, level by level, needed to recompute the root from the claimed
// leaves at Indices.
type Proof struct {
	Indices []int
	Hashes  []Hash
}

// ProofSize returns the number of sibling hashes a multi-index proof for
// indices (deduplicated) will contain, without constructing it.
func (t *Tree) ProofSize(indices []int) int {
	return len(t.buildProof(dedupSorted(indices)).Hashes)
}

// Prove constructs the minimal multi-index decommitment proof for indices.
// Multi-proof construction walks indices level-by-level: siblings that are
// themselves in the index set at that level are skipped; otherwise the
// sibling hash is emitted (spec 4.5).
func (t *Tree) Prove(indices []int) (*Proof, error) {
	for _, i := range indices {
		if i < 0 || i >= len(t.levels[0]) {
			return nil, fmt.Errorf("merkle: index %d out of range [0,%d)", i, len(t.levels[0]))
		}
	}
	p := t.buildProof(dedupSorted(indices))
	return p, nil
}

func dedupSorted(indices []int) []int {
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func (t *Tree) buildProof(sortedIndices []int) *Proof {
	p := &Proof{Indices: sortedIndices}
	level := sortedIndices
	set := make(map[int]bool, len(level))
	for _, i := range level {
		set[i] = true
	}
	for depth := 0; depth < len(t.levels)-1; depth++ {
		nodes := t.levels[depth]
		var nextLevel []int
		nextSet := make(map[int]bool)
		seenParent := make(map[int]bool)
		for _, idx := range level {
			parent := idx / 2
			if seenParent[parent] {
				continue
			}
			seenParent[parent] = true

			sibling := idx ^ 1
			if !set[sibling] {
				p.Hashes = append(p.Hashes, nodes[sibling])
			}
			if !nextSet[parent] {
				nextLevel = append(nextLevel, parent)
				nextSet[parent] = true
			}
		}
		level = nextLevel
		set = nextSet
	}
	return p
}

// RequiredProofLength computes the number of sibling hashes a multi-index
// proof over a tree of the given size would contain for indices, without
// needing the tree itself: the count depends only on which indices share
// parents at each level, not on any hash value (spec 4.5 query
// decommitment, used by the verifier to know how many hashes to read off
// the wire before it has anything to check them against).
func RequiredProofLength(size int, indices []int) (int, error) {
	if !utils.IsPowerOfTwo(size) {
		return 0, ErrInvalidSize
	}
	depth := log2(size)
	level := dedupSorted(indices)
	for _, i := range level {
		if i < 0 || i >= size {
			return 0, fmt.Errorf("merkle: index %d out of range [0,%d)", i, size)
		}
	}
	set := make(map[int]bool, len(level))
	for _, i := range level {
		set[i] = true
	}
	count := 0
	for d := 0; d < depth; d++ {
		var nextLevel []int
		nextSet := make(map[int]bool)
		seenParent := make(map[int]bool)
		for _, idx := range level {
			parent := idx / 2
			if seenParent[parent] {
				continue
			}
			seenParent[parent] = true
			sibling := idx ^ 1
			if !set[sibling] {
				count++
			}
			if !nextSet[parent] {
				nextLevel = append(nextLevel, parent)
				nextSet[parent] = true
			}
		}
		level = nextLevel
		set = nextSet
	}
	return count, nil
}

// Root returns the tree's committed root.
func (t *Tree) Root() Hash { return t.levels[len(t.levels)-1][0] }

// Verify checks that recomputing the root from the claimed (index, leaf)
// pairs and the proof's sibling hashes reproduces commitment.Root.
func Verify(commitment Commitment, values map[int]Hash, proof *Proof, hashFn HashFunc) error {
	if hashFn == nil {
		hashFn = Keccak256
	}
	if !utils.IsPowerOfTwo(commitment.Size) {
		return ErrInvalidSize
	}
	depth := log2(commitment.Size)

	type node struct {
		index int
		hash  Hash
	}
	level := make([]node, 0, len(proof.Indices))
	for _, idx := range proof.Indices {
		v, ok := values[idx]
		if !ok {
			return fmt.Errorf("merkle: missing claimed value for index %d", idx)
		}
		level = append(level, node{index: idx, hash: v})
	}
	sort.Slice(level, func(i, j int) bool { return level[i].index < level[j].index })

	siblingPos := 0
	for d := 0; d < depth; d++ {
		have := make(map[int]Hash, len(level))
		for _, n := range level {
			have[n.index] = n.hash
		}
		var next []node
		seenParent := make(map[int]bool)
		for _, n := range level {
			parent := n.index / 2
			if seenParent[parent] {
				continue
			}
			seenParent[parent] = true

			sibIdx := n.index ^ 1
			var sibHash Hash
			if h, ok := have[sibIdx]; ok {
				sibHash = h
			} else {
				if siblingPos >= len(proof.Hashes) {
					return fmt.Errorf("merkle: proof exhausted before reaching root")
				}
				sibHash = proof.Hashes[siblingPos]
				siblingPos++
			}
			var left, right Hash
			if n.index%2 == 0 {
				left, right = n.hash, sibHash
			} else {
				left, right = sibHash, n.hash
			}
			next = append(next, node{index: parent, hash: hashFn(left[:], right[:])})
		}
		level = next
	}
	if siblingPos != len(proof.Hashes) {
		return fmt.Errorf("merkle: proof has unused sibling hashes")
	}
	if len(level) != 1 || level[0].hash != commitment.Root {
		return fmt.Errorf("merkle: recomputed root does not match commitment")
	}
	return nil
}
