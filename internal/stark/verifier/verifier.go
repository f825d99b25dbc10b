// Package verifier implements the verifying half of the FRI-based STARK
// engine: it replays the prover's transcript step for step, checking every
// Merkle decommitment, the out-of-domain consistency equation, the
// proof-of-work grind, and the FRI fold chain (spec COMPONENT DESIGN 4.8).
package verifier

import (
	"fmt"
	"math/bits"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vybium/vybium-stark/internal/stark/constraints"
	"github.com/vybium/vybium-stark/internal/stark/dag"
	"github.com/vybium/vybium-stark/internal/stark/field"
	"github.com/vybium/vybium-stark/internal/stark/fri"
	"github.com/vybium/vybium-stark/internal/stark/merkle"
	"github.com/vybium/vybium-stark/internal/stark/polynomial"
	"github.com/vybium/vybium-stark/internal/stark/transcript"
)

// ErrorKind enumerates every way verification can fail (spec §7).
type ErrorKind int

const (
	_ ErrorKind = iota
	InvalidTraceLength
	RootUnavailable
	InvalidPoW
	InvalidLdeCommitment
	InvalidConstraintCommitment
	InvalidFriCommitment
	OodsMismatch
	OodsCalculationFailure
	FriCalculationFailure
	ProofTooLong
	HashMapFailure
	InverseOfZero
	NoSquareRoot
	NoRootOfUnity
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidTraceLength:
		return "InvalidTraceLength"
	case RootUnavailable:
		return "RootUnavailable"
	case InvalidPoW:
		return "InvalidPoW"
	case InvalidLdeCommitment:
		return "InvalidLdeCommitment"
	case InvalidConstraintCommitment:
		return "InvalidConstraintCommitment"
	case InvalidFriCommitment:
		return "InvalidFriCommitment"
	case OodsMismatch:
		return "OodsMismatch"
	case OodsCalculationFailure:
		return "OodsCalculationFailure"
	case FriCalculationFailure:
		return "FriCalculationFailure"
	case ProofTooLong:
		return "ProofTooLong"
	case HashMapFailure:
		return "HashMapFailure"
	case InverseOfZero:
		return "InverseOfZero"
	case NoSquareRoot:
		return "NoSquareRoot"
	case NoRootOfUnity:
		return "NoRootOfUnity"
	default:
		return "Unknown"
	}
}

// Error is the verifier's structured failure type: a Code identifying which
// of spec §7's checks failed, a human-readable Message, and an optional
// wrapped Cause (spec "generalized from pkg/vybium-starks-vm/errors.go's
// VMError pattern").
type Error struct {
	Code    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("stark verifier error [%s]: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("stark verifier error [%s]: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func fail(code ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrap(code ErrorKind, cause error, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ErrProofTooLong is the sentinel exposed for errors.Is callers (spec
// SPEC_FULL.md §10 "Sentinel values").
var ErrProofTooLong = &Error{Code: ProofTooLong, Message: "proof contains unconsumed bytes"}

// Verifier checks proof bytes against one constraint set, replaying the
// prover's transcript from the proof and the public input and hashing every
// Merkle commitment with hashFn.
type Verifier struct {
	cs     *constraints.Constraints
	hashFn merkle.HashFunc
	log    zerolog.Logger
}

// New builds a Verifier bound to cs, checking commitments with hashFn
// (merkle.Keccak256 if nil).
func New(cs *constraints.Constraints, hashFn merkle.HashFunc) *Verifier {
	if hashFn == nil {
		hashFn = merkle.Keccak256
	}
	return &Verifier{cs: cs, hashFn: hashFn, log: log.With().Str("component", "verifier").Logger()}
}

// WithLogger returns a copy of v that logs protocol transitions to logger
// instead of the package-global zerolog logger.
func (v *Verifier) WithLogger(logger zerolog.Logger) *Verifier {
	cp := *v
	cp.log = logger
	return &cp
}

// Verify checks proofBytes against the bound constraint system, replaying
// the same transcript publicInput must have seeded the prover with.
func (v *Verifier) Verify(proofBytes []byte, publicInput []byte) error {
	cs := v.cs
	n := cs.TraceRows
	n0 := n * cs.Blowup
	if n0 <= 0 || n0&(n0-1) != 0 {
		return fail(InvalidTraceLength, "trace*blowup size %d is not a power of two", n0)
	}
	traceDomain, err := polynomial.NewDomain(n, field.One())
	if err != nil {
		return wrap(RootUnavailable, err, "trace domain")
	}
	ldeDomain, err := polynomial.NewDomain(n0, field.Generator)
	if err != nil {
		return wrap(RootUnavailable, err, "LDE domain")
	}

	channel := transcript.NewVerifierChannel(publicInput, proofBytes)

	traceRoot, err := channel.ReadHash()
	if err != nil {
		return wrap(ProofTooLong, err, "reading trace commitment")
	}
	traceCommitment := merkle.Commitment{Size: n0, Root: traceRoot}

	coefficients := channel.SampleFieldElements(2 * len(cs.Expressions))
	combined, err := cs.Combine(coefficients)
	if err != nil {
		return wrap(InvalidConstraintCommitment, err, "recombining constraints")
	}
	shaken := cs.Graph.TreeShake([]int{combined})
	evaluator := dag.NewEvaluator(shaken)

	compRoot, err := channel.ReadHash()
	if err != nil {
		return wrap(ProofTooLong, err, "reading composition commitment")
	}
	compCommitment := merkle.Commitment{Size: n0, Root: compRoot}

	z := channel.SampleFieldElement()
	traceArgs := cs.Graph.TraceArguments([]int{combined})
	traceGen := traceDomain.Generator
	traceGenInv, err := traceGen.Inv()
	if err != nil {
		return wrap(RootUnavailable, err, "trace generator inverse")
	}
	shiftedZ := make([]field.Element, len(traceArgs))
	for i, arg := range traceArgs {
		shiftedZ[i] = z.Mul(powSigned(traceGen, traceGenInv, arg.Offset))
	}
	oodsValues, err := channel.ReadElements(len(traceArgs))
	if err != nil {
		return wrap(ProofTooLong, err, "reading OODS trace values")
	}
	compOODSValue, err := channel.ReadElement()
	if err != nil {
		return wrap(ProofTooLong, err, "reading composition OODS value")
	}

	traceAtOODS := func(column, offset int) field.Element {
		for i, arg := range traceArgs {
			if arg.Column == column && arg.Offset == offset {
				return oodsValues[i]
			}
		}
		return field.Zero()
	}
	constraintValueAtZ, err := evaluator.EvalAt(z, traceAtOODS)
	if err != nil {
		return wrap(OodsCalculationFailure, err, "evaluating composition at OODS point")
	}
	// oods_value_from_trace_values (constraintValueAtZ, recombined from the
	// revealed trace values) must agree with oods_value_from_constraint_values
	// (compOODSValue, read off the composition commitment itself); this is
	// the only check tying the composition commitment to the trace, since
	// the DEEP/FRI machinery below only ever checks compOODSValue for
	// self-consistency with what was committed, never against the trace
	// (verifier.rs OodsMismatch).
	if !constraintValueAtZ.Equal(compOODSValue) {
		return fail(OodsMismatch, "composition value at z disagrees with the trace-derived constraint combination")
	}

	deepCoefficients := channel.SampleFieldElements(len(traceArgs) + 1)

	rounds := sumInts(cs.FRILayout)
	roundEvalPoints := make([]field.Element, rounds)
	friRoots := make([]merkle.Hash, rounds-1)
	// domains[r] is where round r's codeword lives; domains[rounds] is
	// where the final, uncommitted polynomial lives.
	domains := make([]*polynomial.Domain, rounds+1)
	domains[0] = ldeDomain
	for r := 0; r < rounds; r++ {
		roundEvalPoints[r] = channel.SampleFieldElement()
		if r < rounds-1 {
			root, err := channel.ReadHash()
			if err != nil {
				return wrap(ProofTooLong, err, "reading FRI layer %d commitment", r)
			}
			friRoots[r] = root
		}
		next, err := domains[r].Halve()
		if err != nil {
			return wrap(RootUnavailable, err, "FRI round %d domain", r)
		}
		domains[r+1] = next
	}

	// The final layer is read at only finalLen = domain/Blowup
	// coefficients, matching the prover's truncation: this restriction to a
	// rate-1/Blowup codeword is the low-degree test itself, not folding
	// consistency (spec 4.8, verifier.rs replay_fri_layer(fri_size /
	// constraints.blowup)). A finalPoly built from the full domain length
	// would accept a codeword of any degree, since every codeword folds
	// consistently with itself.
	finalLen := domains[rounds].Length / cs.Blowup
	finalCoeffs, err := channel.ReadElements(finalLen)
	if err != nil {
		return wrap(ProofTooLong, err, "reading final FRI polynomial")
	}
	finalPoly := polynomial.New(finalCoeffs)

	powSeed := channel.PowChallengeSeed()
	nonce, err := channel.ReadNonce()
	if err != nil {
		return wrap(ProofTooLong, err, "reading proof-of-work nonce")
	}
	if !transcript.PowVerify(powSeed, nonce, cs.PoWBits) {
		return fail(InvalidPoW, "nonce %d does not meet difficulty %d bits", nonce, cs.PoWBits)
	}

	domainBits := bits.TrailingZeros(uint(n0))
	queries := channel.SampleIndices(cs.NumQueries, domainBits)

	// roundValues[r] holds every opened (storage position -> value) pair
	// needed to check round r's fold, for every round 0..rounds-1.
	roundValues := make([]map[int]field.Element, rounds)
	traceColumns := cs.TraceColumns

	for r := 0; r < rounds; r++ {
		positions := pairPositions(queries, r)

		if r == 0 {
			traceValues, err := channel.ReadElements(len(positions) * traceColumns)
			if err != nil {
				return wrap(ProofTooLong, err, "reading trace openings")
			}
			proofLen, err := merkle.RequiredProofLength(n0, positions)
			if err != nil {
				return wrap(InvalidLdeCommitment, err, "trace proof shape")
			}
			traceHashes, err := channel.ReadHashes(proofLen)
			if err != nil {
				return wrap(ProofTooLong, err, "reading trace decommitment")
			}
			traceLeafValues := make(map[int]merkle.Hash, len(positions))
			columnAt := make(map[int][]field.Element, len(positions))
			for i, pos := range positions {
				row := traceValues[i*traceColumns : (i+1)*traceColumns]
				columnAt[pos] = row
				rowBytes := make([][]byte, traceColumns)
				for c, v := range row {
					b := v.Bytes()
					rowBytes[c] = b[:]
				}
				traceLeafValues[pos] = v.hashFn(rowBytes...)
			}
			if err := merkle.Verify(traceCommitment, traceLeafValues, &merkle.Proof{Indices: positions, Hashes: traceHashes}, v.hashFn); err != nil {
				return wrap(InvalidLdeCommitment, err, "trace decommitment")
			}

			compValues, err := channel.ReadElements(len(positions))
			if err != nil {
				return wrap(ProofTooLong, err, "reading composition openings")
			}
			compProofLen, err := merkle.RequiredProofLength(n0, positions)
			if err != nil {
				return wrap(InvalidConstraintCommitment, err, "composition proof shape")
			}
			compHashes, err := channel.ReadHashes(compProofLen)
			if err != nil {
				return wrap(ProofTooLong, err, "reading composition decommitment")
			}
			compLeafValues := make(map[int]merkle.Hash, len(positions))
			compAt := make(map[int]field.Element, len(positions))
			for i, pos := range positions {
				compAt[pos] = compValues[i]
				compLeafValues[pos] = fri.LeafHash(compValues[i], v.hashFn)
			}
			if err := merkle.Verify(compCommitment, compLeafValues, &merkle.Proof{Indices: positions, Hashes: compHashes}, v.hashFn); err != nil {
				return wrap(InvalidConstraintCommitment, err, "composition decommitment")
			}

			values := make(map[int]field.Element, len(positions))
			for _, pos := range positions {
				v, err := deepValue(ldeDomain, n0, pos, columnAt[pos], compAt[pos], traceArgs, shiftedZ, oodsValues, z, compOODSValue, deepCoefficients)
				if err != nil {
					return wrap(OodsCalculationFailure, err, "DEEP value at %d", pos)
				}
				values[pos] = v
			}
			roundValues[0] = values
			continue
		}

		values, err := channel.ReadElements(len(positions))
		if err != nil {
			return wrap(ProofTooLong, err, "reading FRI layer %d openings", r)
		}
		layerSize := domains[r].Length
		proofLen, err := merkle.RequiredProofLength(layerSize, positions)
		if err != nil {
			return wrap(InvalidFriCommitment, err, "FRI layer %d proof shape", r)
		}
		hashes, err := channel.ReadHashes(proofLen)
		if err != nil {
			return wrap(ProofTooLong, err, "reading FRI layer %d decommitment", r)
		}
		leafValues := make(map[int]merkle.Hash, len(positions))
		valueAt := make(map[int]field.Element, len(positions))
		for i, pos := range positions {
			valueAt[pos] = values[i]
			leafValues[pos] = fri.LeafHash(values[i], v.hashFn)
		}
		commitment := merkle.Commitment{Size: layerSize, Root: friRoots[r-1]}
		if err := merkle.Verify(commitment, leafValues, &merkle.Proof{Indices: positions, Hashes: hashes}, v.hashFn); err != nil {
			return wrap(InvalidFriCommitment, err, "FRI layer %d decommitment", r)
		}
		roundValues[r] = valueAt
	}

	// Second pass: recompute every fold and compare it against either the
	// next round's opened value (intermediate rounds) or the final
	// polynomial's evaluation (the last round).
	for _, q := range queries {
		for r := 0; r < rounds; r++ {
			base := (q >> uint(r)) &^ 1
			partner := base | 1
			groupIndex := base / 2
			x := domains[r].At(polynomial.PermuteIndex(domains[r].Length, base))
			folded, err := singleFoldLocal(roundValues[r][base], roundValues[r][partner], x, roundEvalPoints[r])
			if err != nil {
				return wrap(FriCalculationFailure, err, "round %d fold", r)
			}
			if r < rounds-1 {
				expected, ok := roundValues[r+1][groupIndex]
				if !ok {
					return fail(FriCalculationFailure, "round %d fold target %d not opened in round %d", r, groupIndex, r+1)
				}
				if !folded.Equal(expected) {
					return fail(FriCalculationFailure, "FRI fold at round %d disagrees with committed layer %d", r, r+1)
				}
				continue
			}
			y := domains[rounds].At(polynomial.PermuteIndex(domains[rounds].Length, groupIndex))
			if !folded.Equal(finalPoly.Eval(y)) {
				return fail(OodsCalculationFailure, "FRI final layer disagrees with folded query at round %d", r)
			}
		}
	}

	if !channel.AtEnd() {
		return ErrProofTooLong
	}

	v.log.Info().Int("queries", cs.NumQueries).Int("friRounds", rounds).Msg("proof verified")
	return nil
}

func singleFoldLocal(fx, fNegX, x, evalPoint field.Element) (field.Element, error) {
	xInv, err := x.Inv()
	if err != nil {
		return field.Element{}, err
	}
	sum := fx.Add(fNegX)
	diff := fx.Sub(fNegX)
	return sum.Add(evalPoint.Mul(xInv).Mul(diff)), nil
}

func powSigned(gen, genInv field.Element, exponent int) field.Element {
	if exponent >= 0 {
		return gen.PowUint64(uint64(exponent))
	}
	return genInv.PowUint64(uint64(-exponent))
}

// deepValue recomputes the DEEP-ALI combined codeword value at one LDE
// domain position from its opened trace row and composition value (spec
// GLOSSARY "DEEP", "OODS").
func deepValue(
	ldeDomain *polynomial.Domain,
	n0 int,
	storagePos int,
	traceRow []field.Element,
	compValue field.Element,
	traceArgs []dag.TraceArgument,
	shiftedZ []field.Element,
	oodsValues []field.Element,
	z field.Element,
	compOODSValue field.Element,
	deepCoefficients []field.Element,
) (field.Element, error) {
	natural := polynomial.PermuteIndex(n0, storagePos)
	x := ldeDomain.At(natural)
	sum := field.Zero()
	for i, arg := range traceArgs {
		fx := traceRow[arg.Column]
		numerator := fx.Sub(oodsValues[i])
		denominator := x.Sub(shiftedZ[i])
		quotient, err := numerator.Div(denominator)
		if err != nil {
			return field.Element{}, err
		}
		sum = sum.Add(deepCoefficients[i].Mul(quotient))
	}
	compNumerator := compValue.Sub(compOODSValue)
	compDenominator := x.Sub(z)
	compQuotient, err := compNumerator.Div(compDenominator)
	if err != nil {
		return field.Element{}, err
	}
	sum = sum.Add(deepCoefficients[len(traceArgs)].Mul(compQuotient))
	return sum, nil
}

func pairPositions(queries []int, shift int) []int {
	set := make(map[int]bool)
	for _, q := range queries {
		qr := q >> uint(shift)
		base := qr &^ 1
		set[base] = true
		set[base|1] = true
	}
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func sumInts(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}
