// Package fri implements the Fast Reed-Solomon IOP of Proximity: repeated
// pairwise folding of an evaluation codeword into ever-smaller committed
// layers, down to a final polynomial written out explicitly in coefficient
// form (spec COMPONENT DESIGN 4.?, "FRI fold").
//
// A codeword is always stored in the bit-reversed order that
// polynomial.EvaluateDomain produces: storage position 2k holds the
// evaluation at the domain's natural index PermuteIndex(n, 2k), and 2k+1
// holds the evaluation at its negation. This is exactly the pairing
// Fold consumes, so no un-permutation is needed between FFT and FRI.
package fri

import (
	"errors"

	"github.com/vybium/vybium-stark/internal/stark/field"
	"github.com/vybium/vybium-stark/internal/stark/merkle"
	"github.com/vybium/vybium-stark/internal/stark/polynomial"
)

// ErrOddLength is returned when folding a codeword of odd length.
var ErrOddLength = errors.New("fri: codeword length must be even to fold")

// ErrLengthMismatch is returned when a codeword's length does not match
// its claimed domain.
var ErrLengthMismatch = errors.New("fri: codeword length does not match domain length")

// singleFold combines one (f(x), f(-x)) pair into the folded polynomial's
// value at x^2: (f(x)+f(-x)) + evalPoint/x*(f(x)-f(-x)) (spec "FRI fold").
func singleFold(fx, fNegX, x, evalPoint field.Element) (field.Element, error) {
	xInv, err := x.Inv()
	if err != nil {
		return field.Element{}, err
	}
	sum := fx.Add(fNegX)
	diff := fx.Sub(fNegX)
	return sum.Add(evalPoint.Mul(xInv).Mul(diff)), nil
}

// Fold halves a codeword once: group k (storage positions 2k, 2k+1) folds
// to value k of the returned codeword, which lives on domain.Halve().
func Fold(values []field.Element, domain *polynomial.Domain, evalPoint field.Element) ([]field.Element, *polynomial.Domain, error) {
	if len(values) != domain.Length {
		return nil, nil, ErrLengthMismatch
	}
	if domain.Length%2 != 0 {
		return nil, nil, ErrOddLength
	}
	half := domain.Length / 2
	next := make([]field.Element, half)
	for k := 0; k < half; k++ {
		x := domain.At(polynomial.PermuteIndex(domain.Length, 2*k))
		folded, err := singleFold(values[2*k], values[2*k+1], x, evalPoint)
		if err != nil {
			return nil, nil, err
		}
		next[k] = folded
	}
	nextDomain, err := domain.Halve()
	if err != nil {
		return nil, nil, err
	}
	return next, nextDomain, nil
}

// Layer is one committed round of the FRI protocol.
type Layer struct {
	Values     []field.Element
	Domain     *polynomial.Domain
	Tree       *merkle.Tree
	Commitment merkle.Commitment
}

// LeafHash hashes a single field element into a Merkle leaf using hashFn
// (merkle.Keccak256 if nil). Exported so the prover and verifier can
// independently recompute it for opened query values without re-deriving
// the fold codeword.
func LeafHash(v field.Element, hashFn merkle.HashFunc) merkle.Hash {
	if hashFn == nil {
		hashFn = merkle.Keccak256
	}
	b := v.Bytes()
	return hashFn(b[:])
}

// CommitLayer builds a Merkle tree over a codeword, one leaf per value,
// using hashFn (merkle.Keccak256 if nil) as the pluggable fingerprint hash.
func CommitLayer(values []field.Element, domain *polynomial.Domain, hashFn merkle.HashFunc) (*Layer, error) {
	leaves := make([]merkle.Hash, len(values))
	for i, v := range values {
		leaves[i] = LeafHash(v, hashFn)
	}
	tree, commitment, err := merkle.Commit(leaves, hashFn)
	if err != nil {
		return nil, err
	}
	return &Layer{Values: values, Domain: domain, Tree: tree, Commitment: commitment}, nil
}

// VerifyFold checks that folding one (f(x), f(-x)) pair from storage
// positions (2*groupIndex, 2*groupIndex+1) of domain reproduces
// expectedValue, the value the next layer's commitment claims for
// groupIndex (spec "FRI fold" verification).
func VerifyFold(fx, fNegX field.Element, domain *polynomial.Domain, groupIndex int, evalPoint field.Element, expectedValue field.Element) (bool, error) {
	x := domain.At(polynomial.PermuteIndex(domain.Length, 2*groupIndex))
	folded, err := singleFold(fx, fNegX, x, evalPoint)
	if err != nil {
		return false, err
	}
	return folded.Equal(expectedValue), nil
}
