// Package stark is the public API of the STARK proof engine: a Config for
// tuning the blowup/query/PoW/FRI-layout/hash-function tradeoffs, a Claim
// describing what is being proven, and Prove/Verify entry points. The
// internal packages (field, polynomial, dag, merkle, transcript,
// constraints, prover, verifier) are not importable outside this module.
package stark

import (
	"github.com/vybium/vybium-stark/internal/stark/constraints"
	"github.com/vybium/vybium-stark/internal/stark/field"
	"github.com/vybium/vybium-stark/internal/stark/merkle"
	"github.com/vybium/vybium-stark/internal/stark/prover"
)

// FieldElement is the public type for elements of the 252-bit STARK prime
// field used throughout this module.
type FieldElement = field.Element

// Proof is an opaque, self-describing proof byte string.
type Proof = prover.Proof

// Trace supplies the witness a prover extends and commits.
type Trace = prover.Trace

// Constraints is the constraint set (expression DAG, trace shape, and
// tuning parameters) a Prover/Verifier pair is bound to.
type Constraints = constraints.Constraints

// Claim is the public statement a proof attests to: the public input bytes
// (boundary values, claimed outputs) the transcript is seeded with. The
// trace shape and tuning parameters live in Constraints, not here. Both
// Prove and Verify must be called with byte-identical PublicInput for a
// genuine proof to verify.
type Claim struct {
	// PublicInput is absorbed into the Fiat-Shamir transcript before any
	// challenge is sampled, binding the proof to this specific claim
	// (boundary values, claimed final trace values, and so on).
	PublicInput []byte
}

// Config tunes the prover/verifier tradeoff between proof size, prover
// time, and soundness. Zero-value fields passed to NewConstraints keep
// constraints.New's defaults (blowup 16, 13 queries, 20 proof-of-work bits,
// constraints.DefaultFRILayout), not DefaultConfig's values.
type Config struct {
	// BlowupFactor is the low-degree-extension domain size relative to the
	// trace domain. Must be a power of two.
	BlowupFactor int

	// NumQueries is the number of positions sampled from the committed
	// oracles.
	NumQueries int

	// PowBits is the number of leading zero bits the grinding nonce must
	// produce.
	PowBits int

	// FRILayout lists how many degree-halvings fold between FRI commitment
	// rounds. Nil selects constraints.DefaultFRILayout for the trace size.
	FRILayout []int

	// HashFunction is the pluggable fingerprint hash used for every Merkle
	// commitment and FRI leaf. Nil selects merkle.Keccak256.
	HashFunction merkle.HashFunc
}

// DefaultConfig returns blowup 16, 20 queries, 12 bits of proof-of-work,
// the default FRI layout and Keccak-256.
func DefaultConfig() Config {
	return Config{
		BlowupFactor: 16,
		NumQueries:   20,
		PowBits:      12,
		HashFunction: merkle.Keccak256,
	}
}
