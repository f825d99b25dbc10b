package dag

import (
	"github.com/vybium/vybium-stark/internal/stark/field"
	"github.com/vybium/vybium-stark/internal/stark/polynomial"
)

// TraceAccessor supplies Trace(column, offset) values to the batched
// domain evaluator at a given domain row index.
type TraceAccessor interface {
	At(row, column, offset int) field.Element
}

// Evaluator runs a tree-shaken graph either at a single point (for
// out-of-domain sampling) or across an entire evaluation domain in
// CHUNK-sized batches (for the prover's composition-polynomial pass).
type Evaluator struct {
	shaken *Shaken
}

// NewEvaluator wraps a tree-shaken graph for evaluation.
func NewEvaluator(shaken *Shaken) *Evaluator {
	return &Evaluator{shaken: shaken}
}

// EvalAt evaluates the first output at a single field point x, resolving
// Trace references via traceAt. Used for out-of-domain sampling, where the
// trace polynomials are evaluated directly rather than read from a table.
func (e *Evaluator) EvalAt(x field.Element, traceAt func(column, offset int) field.Element) (field.Element, error) {
	values := make([]field.Element, len(e.shaken.Nodes))
	for i, n := range e.shaken.Nodes {
		switch n.Op {
		case OpConstant:
			values[i] = n.Constant
		case OpX:
			values[i] = x
		case OpCoset:
			// Coset nodes encode a domain-index-relative stride used only by
			// the batched domain evaluator below; evaluated standalone they
			// degenerate to their constant factor.
			values[i] = n.Constant
		case OpTrace:
			values[i] = traceAt(n.Column, n.Offset)
		case OpAdd:
			values[i] = values[n.Left].Add(values[n.Right])
		case OpNeg:
			values[i] = values[n.Left].Neg()
		case OpMul:
			values[i] = values[n.Left].Mul(values[n.Right])
		case OpInv:
			inv, err := values[n.Left].Inv()
			if err != nil {
				return field.Element{}, err
			}
			values[i] = inv
		case OpExp:
			values[i] = values[n.Left].PowUint64(n.Exponent)
		case OpPoly:
			values[i] = n.Poly.Eval(values[n.Left])
		}
	}
	return values[e.shaken.Outputs[0]], nil
}

// EvaluateDomain evaluates the first output at every point of domain, in
// row-batches of ChunkSize: each node's values for the whole chunk are
// computed before its parent's, and Inv nodes invoke field.BatchInvert
// over the chunk to amortize the one required modular inversion (spec 4.4
// "Batched row evaluation").
func (e *Evaluator) EvaluateDomain(trace TraceAccessor, domain *polynomial.Domain) ([]field.Element, error) {
	n := domain.Length
	out := make([]field.Element, n)
	numNodes := len(e.shaken.Nodes)

	for start := 0; start < n; start += ChunkSize {
		end := start + ChunkSize
		if end > n {
			end = n
		}
		width := end - start
		values := make([][]field.Element, numNodes)

		for i, nd := range e.shaken.Nodes {
			v := make([]field.Element, width)
			switch nd.Op {
			case OpConstant:
				for k := range v {
					v[k] = nd.Constant
				}
			case OpX:
				for k := 0; k < width; k++ {
					v[k] = domain.At(start + k)
				}
			case OpCoset:
				root, err := field.Root(uint64(nd.CosetSize))
				if err != nil {
					return nil, err
				}
				for k := 0; k < width; k++ {
					idx := (start + k) % nd.CosetSize
					v[k] = nd.Constant.Mul(root.PowUint64(uint64(idx)))
				}
			case OpTrace:
				for k := 0; k < width; k++ {
					v[k] = trace.At(start+k, nd.Column, nd.Offset)
				}
			case OpAdd:
				l, r := values[nd.Left], values[nd.Right]
				for k := 0; k < width; k++ {
					v[k] = l[k].Add(r[k])
				}
			case OpNeg:
				l := values[nd.Left]
				for k := 0; k < width; k++ {
					v[k] = l[k].Neg()
				}
			case OpMul:
				l, r := values[nd.Left], values[nd.Right]
				for k := 0; k < width; k++ {
					v[k] = l[k].Mul(r[k])
				}
			case OpInv:
				inv, err := field.BatchInvert(values[nd.Left])
				if err != nil {
					return nil, err
				}
				v = inv
			case OpExp:
				l := values[nd.Left]
				for k := 0; k < width; k++ {
					v[k] = l[k].PowUint64(nd.Exponent)
				}
			case OpPoly:
				l := values[nd.Left]
				for k := 0; k < width; k++ {
					v[k] = nd.Poly.Eval(l[k])
				}
			}
			values[i] = v
		}
		copy(out[start:end], values[e.shaken.Outputs[0]])
	}
	return out, nil
}
