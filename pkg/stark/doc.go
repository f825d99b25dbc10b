// Package stark is a STARK (Scalable Transparent Argument of Knowledge)
// proof engine: given an arithmetic execution trace and a constraint set
// describing the relation it must satisfy, Prove produces a proof and
// Verify checks one, both without a trusted setup.
//
// # Features
//
// - DEEP-ALI constraint composition with out-of-domain sampling
// - FRI low-degree testing with a configurable layer fold schedule
// - Fiat-Shamir transcript with proof-of-work grinding against free queries
// - Pluggable Merkle commitment hash function
// - Structured, typed verification errors identifying the exact failed check
//
// # Quick Start
//
// Building a constraint system and proving a trace:
//
//	cfg := stark.DefaultConfig()
//	cs, err := stark.NewConstraints(graph, traceRows, traceColumns, outputs, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	proof, err := stark.Prove(cs, trace, stark.Claim{PublicInput: publicInput}, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Verifying it:
//
//	err = stark.Verify(cs, proof, stark.Claim{PublicInput: publicInput}, cfg)
//	if err != nil {
//		var verr *stark.Error
//		if errors.As(err, &verr) {
//			log.Fatalf("rejected: %s (%s)", verr.Code, verr.Message)
//		}
//		log.Fatal(err)
//	}
//
// # Architecture
//
// The package follows a hybrid public/private layout:
//
//   - pkg/stark/: public API (this package) - Config, Claim, Prove, Verify,
//     and the Error taxonomy
//   - internal/stark/: the field, polynomial, expression-graph (dag), Merkle,
//     transcript, FRI, constraints, prover, and verifier packages, not
//     importable outside this module
//
// The internal layering lets the wire format, folding schedule, and hash
// function evolve without touching the four calls above.
package stark
