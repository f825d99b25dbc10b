// Package prover implements the proving half of the FRI-based STARK engine:
// interpolate and low-degree-extend a trace, commit it, combine its
// constraints into a single composition oracle, DEEP-quotient it against an
// out-of-domain sample, and fold the result down via FRI (spec COMPONENT
// DESIGN 4.7).
package prover

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

// Trace supplies the witness: a dense TraceRows x TraceColumns table of
// field elements.
type Trace interface {
	Rows() int
	Columns() int
	Value(column, row int) field.Element
}

// Proof is an opaque, self-describing proof byte string (spec EXTERNAL
// INTERFACES "Proof").
type Proof struct {
	Bytes []byte
}

// Prover generates proofs against one fixed constraint system.
type Prover struct {
	cs     *constraints.Constraints
	hashFn merkle.HashFunc
	log    zerolog.Logger
}

// New builds a Prover bound to cs, committing with hashFn (merkle.Keccak256
// if nil).
func New(cs *constraints.Constraints, hashFn merkle.HashFunc) *Prover {
	if hashFn == nil {
		hashFn = merkle.Keccak256
	}
	return &Prover{cs: cs, hashFn: hashFn, log: log.With().Str("component", "prover").Logger()}
}

// WithLogger returns a copy of p that logs protocol transitions to logger
// instead of the package-global zerolog logger.
func (p *Prover) WithLogger(logger zerolog.Logger) *Prover {
	cp := *p
	cp.log = logger
	return &cp
}

// traceAccessor resolves dag.TraceAccessor reads against the low-degree
// extension of the trace: a trace-relative offset is scaled by the blowup
// factor to land in the LDE domain, and the resulting natural domain index
// is converted to its bit-reversed storage slot (spec 4.4, "Batched row
// evaluation").
type traceAccessor struct {
	columns    [][]field.Element // LDE values, storage (bit-reversed) order
	domainSize int
	blowup     int
}

func (t *traceAccessor) At(row, column, offset int) field.Element {
	n := t.domainSize
	idx := ((row+offset*t.blowup)%n + n) % n
	storage := polynomial.PermuteIndex(n, idx)
	return t.columns[column][storage]
}

// Prove runs the full proving pipeline for trace, seeding the transcript
// with publicInput (the byte encoding of the claim being proven).
func (p *Prover) Prove(trace Trace, publicInput []byte) (*Proof, error) {
	cs := p.cs
	if trace.Rows() != cs.TraceRows || trace.Columns() != cs.TraceColumns {
		return nil, fmt.Errorf("prover: trace shape %dx%d does not match constraint system %dx%d",
			trace.Rows(), trace.Columns(), cs.TraceRows, cs.TraceColumns)
	}

	n := cs.TraceRows
	n0 := n * cs.Blowup
	traceDomain, err := polynomial.NewDomain(n, field.One())
	if err != nil {
		return nil, err
	}
	ldeDomain, err := polynomial.NewDomain(n0, field.Generator)
	if err != nil {
		return nil, err
	}

	channel := transcript.NewProverChannel(publicInput)

	// Step 1: interpolate and low-degree-extend every trace column.
	tracePolys := make([]*polynomial.Polynomial, cs.TraceColumns)
	traceLDE := make([][]field.Element, cs.TraceColumns)
	for col := 0; col < cs.TraceColumns; col++ {
		natural := make([]field.Element, n)
		for row := 0; row < n; row++ {
			natural[row] = trace.Value(col, row)
		}
		storage := make([]field.Element, n)
		for i, v := range natural {
			storage[polynomial.PermuteIndex(n, i)] = v
		}
		poly, err := polynomial.InterpolateRootsOfUnity(storage)
		if err != nil {
			return nil, fmt.Errorf("prover: interpolating column %d: %w", col, err)
		}
		tracePolys[col] = poly
		lde, err := polynomial.EvaluateDomain(poly, ldeDomain.Offset, n0)
		if err != nil {
			return nil, fmt.Errorf("prover: extending column %d: %w", col, err)
		}
		traceLDE[col] = lde
	}
	p.log.Debug().Int("columns", cs.TraceColumns).Int("rows", n).Msg("trace low-degree extended")

	// Step 2: Merkle-commit the extended trace, one leaf per LDE row.
	traceLeafData := make([][][]byte, n0)
	for s := 0; s < n0; s++ {
		row := make([][]byte, cs.TraceColumns)
		for col := 0; col < cs.TraceColumns; col++ {
			b := traceLDE[col][s].Bytes()
			row[col] = b[:]
		}
		traceLeafData[s] = row
	}
	traceTree, traceCommitment, err := merkle.CommitLeafData(traceLeafData, p.hashFn)
	if err != nil {
		return nil, fmt.Errorf("prover: committing trace: %w", err)
	}
	channel.WriteHash(traceCommitment.Root)

	// Step 3: sample constraint-combination coefficients and build the
	// composition expression.
	coefficients := channel.SampleFieldElements(2 * len(cs.Expressions))
	combined, err := cs.Combine(coefficients)
	if err != nil {
		return nil, fmt.Errorf("prover: combining constraints: %w", err)
	}
	shaken := cs.Graph.TreeShake([]int{combined})
	evaluator := dag.NewEvaluator(shaken)
	accessor := &traceAccessor{columns: traceLDE, domainSize: n0, blowup: cs.Blowup}
	compNatural, err := evaluator.EvaluateDomain(accessor, ldeDomain)
	if err != nil {
		return nil, fmt.Errorf("prover: evaluating composition polynomial: %w", err)
	}
	compStorage := make([]field.Element, n0)
	for i, v := range compNatural {
		compStorage[polynomial.PermuteIndex(n0, i)] = v
	}

	// Step 4: Merkle-commit the composition oracle.
	compTree, compCommitment, err := merkle.CommitLeafData(leafDataOf(compStorage), p.hashFn)
	if err != nil {
		return nil, fmt.Errorf("prover: committing composition oracle: %w", err)
	}
	channel.WriteHash(compCommitment.Root)

	// Step 5: sample the out-of-domain point and evaluate every distinct
	// trace argument at its shifted OOD point.
	z := channel.SampleFieldElement()
	traceArgs := cs.Graph.TraceArguments([]int{combined})
	traceGen := traceDomain.Generator
	traceGenInv, err := traceGen.Inv()
	if err != nil {
		return nil, err
	}
	shiftedZ := make([]field.Element, len(traceArgs))
	oodsValues := make([]field.Element, len(traceArgs))
	for i, arg := range traceArgs {
		shift := powSigned(traceGen, traceGenInv, arg.Offset)
		point := z.Mul(shift)
		shiftedZ[i] = point
		oodsValues[i] = tracePolys[arg.Column].Eval(point)
	}
	channel.WriteElements(oodsValues)

	// The composition's OODS value is read off the actual committed
	// polynomial, not recomputed symbolically from the trace: only this
	// makes the verifier's later cross-check (oods_value_from_trace_values
	// vs. this value) a genuine test of the composition commitment rather
	// than a tautology (spec 4.7 step 7, verifier.rs oods_value_from_*).
	compPoly, err := polynomial.InterpolateCoset(ldeDomain.Offset, compStorage)
	if err != nil {
		return nil, fmt.Errorf("prover: interpolating composition polynomial: %w", err)
	}
	compOODSValue := compPoly.Eval(z)
	channel.WriteElement(compOODSValue)

	// Step 6: sample DEEP coefficients and build the combined DEEP
	// codeword (spec "DEEP-ALI combination").
	deepCoefficients := channel.SampleFieldElements(len(traceArgs) + 1)
	deepStorage, err := buildDEEPCodeword(traceLDE, compStorage, ldeDomain, traceArgs, shiftedZ, oodsValues, z, compOODSValue, deepCoefficients)
	if err != nil {
		return nil, fmt.Errorf("prover: building DEEP codeword: %w", err)
	}

	// Step 7: fold the DEEP codeword via FRI, committing every
	// intermediate layer except the last (sent explicitly as coefficients).
	rounds := sumInts(cs.FRILayout)
	current := deepStorage
	currentDomain := ldeDomain
	layers := make([]*fri.Layer, 0, rounds-1)
	for r := 0; r < rounds; r++ {
		evalPoint := channel.SampleFieldElement()
		next, nextDomain, err := fri.Fold(current, currentDomain, evalPoint)
		if err != nil {
			return nil, fmt.Errorf("prover: FRI fold round %d: %w", r, err)
		}
		if r < rounds-1 {
			layer, err := fri.CommitLayer(next, nextDomain, p.hashFn)
			if err != nil {
				return nil, fmt.Errorf("prover: committing FRI layer %d: %w", r, err)
			}
			channel.WriteHash(layer.Commitment.Root)
			layers = append(layers, layer)
		}
		current, currentDomain = next, nextDomain
	}
	finalPoly, err := polynomial.InterpolateCoset(currentDomain.Offset, current)
	if err != nil {
		return nil, fmt.Errorf("prover: interpolating final FRI polynomial: %w", err)
	}
	// Only the low-degree coefficients are sent: this truncation IS the
	// low-degree test. Folding consistency alone proves nothing about
	// degree (every codeword of the final layer's length folds
	// consistently with itself); restricting the final layer to
	// finalLen = Length/Blowup coefficients is what actually binds the proof to a
	// rate-1/Blowup codeword (spec 4.7 step 12, verifier.rs
	// replay_fri_layer(fri_size / constraints.blowup)).
	finalLen := currentDomain.Length / cs.Blowup
	finalCoeffs := make([]field.Element, finalLen)
	for i := 0; i <= finalPoly.Degree() && i < finalLen; i++ {
		finalCoeffs[i] = finalPoly.Coefficient(i)
	}
	channel.WriteElements(finalCoeffs)

	// Step 8: proof-of-work grind.
	powSeed := channel.PowChallengeSeed()
	nonce := transcript.PowGrind(powSeed, cs.PoWBits)
	channel.WriteNonce(nonce)
	p.log.Debug().Uint64("nonce", nonce).Int("bits", cs.PoWBits).Msg("proof-of-work grind complete")

	// Step 9: sample query indices and decommit every round.
	domainBits := bits.TrailingZeros(uint(n0))
	queries := channel.SampleIndices(cs.NumQueries, domainBits)
	for r := 0; r < rounds; r++ {
		positions := pairPositions(queries, r)
		if r == 0 {
			for _, pos := range positions {
				for col := 0; col < cs.TraceColumns; col++ {
					channel.WriteElement(traceLDE[col][pos])
				}
			}
			traceProof, err := traceTree.Prove(positions)
			if err != nil {
				return nil, fmt.Errorf("prover: building trace decommitment: %w", err)
			}
			channel.WriteHashes(traceProof.Hashes)

			for _, pos := range positions {
				channel.WriteElement(compStorage[pos])
			}
			compProof, err := compTree.Prove(positions)
			if err != nil {
				return nil, fmt.Errorf("prover: building composition decommitment: %w", err)
			}
			channel.WriteHashes(compProof.Hashes)
			continue
		}
		layer := layers[r-1]
		for _, pos := range positions {
			channel.WriteElement(layer.Values[pos])
		}
		layerProof, err := layer.Tree.Prove(positions)
		if err != nil {
			return nil, fmt.Errorf("prover: building FRI layer %d decommitment: %w", r, err)
		}
		channel.WriteHashes(layerProof.Hashes)
	}

	p.log.Info().Int("queries", cs.NumQueries).Int("friRounds", rounds).Int("proofBytes", len(channel.Proof())).Msg("proof complete")
	return &Proof{Bytes: channel.Proof()}, nil
}

// leafDataOf wraps a codeword of single field elements into the
// [][][]byte shape merkle.CommitLeafData expects: one leaf per value.
func leafDataOf(values []field.Element) [][][]byte {
	out := make([][][]byte, len(values))
	for i, v := range values {
		b := v.Bytes()
		out[i] = [][]byte{b[:]}
	}
	return out
}

// powSigned raises gen to a possibly-negative exponent, using genInv for
// negative offsets (spec GLOSSARY "Row offset").
func powSigned(gen, genInv field.Element, exponent int) field.Element {
	if exponent >= 0 {
		return gen.PowUint64(uint64(exponent))
	}
	return genInv.PowUint64(uint64(-exponent))
}

// buildDEEPCodeword combines, at every LDE domain point, the trace columns'
// and the composition oracle's DEEP quotients into one random linear
// combination (spec GLOSSARY "DEEP", "OODS"). The result is returned in
// bit-reversed storage order, ready for fri.Fold.
func buildDEEPCodeword(
	traceLDE [][]field.Element,
	compStorage []field.Element,
	ldeDomain *polynomial.Domain,
	traceArgs []dag.TraceArgument,
	shiftedZ []field.Element,
	oodsValues []field.Element,
	z field.Element,
	compOODSValue field.Element,
	deepCoefficients []field.Element,
) ([]field.Element, error) {
	n0 := ldeDomain.Length
	denominators := make([]field.Element, n0*(len(traceArgs)+1))
	idx := 0
	xs := make([]field.Element, n0)
	for s := 0; s < n0; s++ {
		natural := polynomial.PermuteIndex(n0, s)
		xs[s] = ldeDomain.At(natural)
	}
	for s := 0; s < n0; s++ {
		for _, point := range shiftedZ {
			denominators[idx] = xs[s].Sub(point)
			idx++
		}
		denominators[idx] = xs[s].Sub(z)
		idx++
	}
	invDenominators, err := field.BatchInvert(denominators)
	if err != nil {
		return nil, err
	}

	out := make([]field.Element, n0)
	idx = 0
	for s := 0; s < n0; s++ {
		sum := field.Zero()
		for i, arg := range traceArgs {
			fx := traceLDE[arg.Column][s]
			numerator := fx.Sub(oodsValues[i])
			sum = sum.Add(deepCoefficients[i].Mul(numerator.Mul(invDenominators[idx])))
			idx++
		}
		compNumerator := compStorage[s].Sub(compOODSValue)
		sum = sum.Add(deepCoefficients[len(traceArgs)].Mul(compNumerator.Mul(invDenominators[idx])))
		idx++
		out[s] = sum
	}
	return out, nil
}

// pairPositions returns the sorted, deduplicated union, over every query
// index, of the bit-reversed-pair position it maps to after shift folds:
// (q>>shift)&^1 and its partner (q>>shift)|1 (spec "FRI fold" query
// consistency).
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
