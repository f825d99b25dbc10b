package stark

import (
	"fmt"

	"github.com/vybium/vybium-stark/internal/stark/constraints"
	"github.com/vybium/vybium-stark/internal/stark/dag"
	"github.com/vybium/vybium-stark/internal/stark/prover"
	"github.com/vybium/vybium-stark/internal/stark/utils"
	"github.com/vybium/vybium-stark/internal/stark/verifier"
)

// Validate checks that c's non-zero fields are internally consistent:
// BlowupFactor must be a power of two, NumQueries and PowBits must be
// non-negative, traceRows must be a power of two, and each FRILayout step
// (if set) must be positive.
func (c Config) Validate(traceRows int) error {
	if c.BlowupFactor != 0 && !utils.IsPowerOfTwo(c.BlowupFactor) {
		return fmt.Errorf("stark: BlowupFactor %d is not a power of two", c.BlowupFactor)
	}
	if c.NumQueries < 0 {
		return fmt.Errorf("stark: NumQueries must be non-negative, got %d", c.NumQueries)
	}
	if c.PowBits < 0 {
		return fmt.Errorf("stark: PowBits must be non-negative, got %d", c.PowBits)
	}
	if utils.Log2(traceRows) < 0 {
		return fmt.Errorf("stark: traceRows %d is not a power of two", traceRows)
	}
	for _, step := range c.FRILayout {
		if step <= 0 {
			return fmt.Errorf("stark: FRILayout steps must be positive, got %d", step)
		}
	}
	return nil
}

// NewConstraints builds a Constraints set over graph, applying c's
// non-zero fields on top of constraints.New's defaults (spec 4.6, SPEC_FULL
// §10 "Configuration").
func NewConstraints(graph *dag.Graph, traceRows, traceColumns int, expressions []int, c Config) (*Constraints, error) {
	if err := c.Validate(traceRows); err != nil {
		return nil, err
	}
	cs, err := constraints.New(graph, traceRows, traceColumns, expressions)
	if err != nil {
		return nil, err
	}
	if c.BlowupFactor != 0 {
		cs.Blowup = c.BlowupFactor
	}
	if c.NumQueries != 0 {
		cs.NumQueries = c.NumQueries
	}
	if c.PowBits != 0 {
		cs.PoWBits = c.PowBits
	}
	if c.FRILayout != nil {
		cs.FRILayout = c.FRILayout
	}
	return cs, nil
}

// Prove generates a proof that trace satisfies cs, binding the proof to
// claim.PublicInput via the Fiat-Shamir transcript.
func Prove(cs *Constraints, trace Trace, claim Claim, cfg Config) (*Proof, error) {
	return prover.New(cs, cfg.HashFunction).Prove(trace, claim.PublicInput)
}

// Verify checks proof against cs and claim, returning nil if the proof
// is accepted and a *Error describing the first failed check otherwise.
func Verify(cs *Constraints, proof *Proof, claim Claim, cfg Config) error {
	return verifier.New(cs, cfg.HashFunction).Verify(proof.Bytes, claim.PublicInput)
}
