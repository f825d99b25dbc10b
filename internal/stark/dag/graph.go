// Package dag implements the constraint-evaluation expression graph: a
// common-subexpression-deduplicated arena of rational-expression nodes,
// together with the batched row evaluator used to turn a combined
// constraint expression into values across an entire LDE coset (spec
// COMPONENT DESIGN 4.4).
package dag

import (
	"github.com/vybium/vybium-stark/internal/stark/field"
	"github.com/vybium/vybium-stark/internal/stark/polynomial"
)

// ChunkSize is the row-batch size the evaluator advances by; Inv nodes
// amortize their one required modular inversion over this many outputs.
const ChunkSize = 16

// Op identifies a node's operation.
type Op int

const (
	OpConstant Op = iota
	OpX
	OpCoset
	OpTrace
	OpAdd
	OpNeg
	OpMul
	OpInv
	OpExp
	OpPoly
)

// Node is one arena entry. Children are always indices strictly less than
// the node's own index (spec DESIGN NOTES: "parent -> child edges always
// point to strictly lower indices").
type Node struct {
	Op          Op
	Left, Right int // child indices; -1 when unused
	Constant    field.Element
	Column      int
	Offset      int
	Exponent    uint64
	Poly        *polynomial.Polynomial
	CosetSize   int
	Fingerprint field.Element
}

// Graph is the arena of deduplicated expression nodes.
type Graph struct {
	nodes        []Node
	byFingerprint map[string]int

	xValue       field.Element
	traceValues  map[[2]int]field.Element
	cosetSamples map[int]field.Element
}

// New builds an empty graph. seed derandomizes the Schwartz-Zippel
// fingerprint check (spec: "a field-element evaluation at a fixed random
// seed point derived from (cofactor, coset_size)").
func New(seed field.Element) *Graph {
	return &Graph{
		byFingerprint: make(map[string]int),
		xValue:        seed,
		traceValues:   make(map[[2]int]field.Element),
		cosetSamples:  make(map[int]field.Element),
	}
}

func (g *Graph) traceValue(col, offset int) field.Element {
	key := [2]int{col, offset}
	if v, ok := g.traceValues[key]; ok {
		return v
	}
	// Deterministic pseudorandom value derived from the graph seed and the
	// (column, offset) pair: preserves Schwartz-Zippel soundness without
	// requiring an actual trace at graph-construction time.
	mix := g.xValue.Add(field.FromInt64(int64(col)*1_000_003 + int64(offset)))
	v := mix.Square().Add(field.FromUint64(uint64(col + 1)))
	g.traceValues[key] = v
	return v
}

func (g *Graph) cosetSample(size int) field.Element {
	if v, ok := g.cosetSamples[size]; ok {
		return v
	}
	root, err := field.Root(uint64(size))
	if err != nil {
		root = g.xValue
	}
	v := root.Mul(g.xValue).Add(field.FromUint64(uint64(size)))
	g.cosetSamples[size] = v
	return v
}

func (g *Graph) fingerprintOf(n Node) field.Element {
	switch n.Op {
	case OpConstant:
		return n.Constant
	case OpX:
		return g.xValue
	case OpCoset:
		return n.Constant.Mul(g.cosetSample(n.CosetSize))
	case OpTrace:
		return g.traceValue(n.Column, n.Offset)
	case OpAdd:
		return g.nodes[n.Left].Fingerprint.Add(g.nodes[n.Right].Fingerprint)
	case OpNeg:
		return g.nodes[n.Left].Fingerprint.Neg()
	case OpMul:
		return g.nodes[n.Left].Fingerprint.Mul(g.nodes[n.Right].Fingerprint)
	case OpInv:
		lf := g.nodes[n.Left].Fingerprint
		if lf.IsZero() {
			// Negligible-probability collision at the fingerprint point;
			// perturb deterministically rather than fail the insertion.
			lf = lf.Add(field.One())
		}
		inv, err := lf.Inv()
		if err != nil {
			return field.One()
		}
		return inv
	case OpExp:
		return g.nodes[n.Left].Fingerprint.PowUint64(n.Exponent)
	case OpPoly:
		return n.Poly.Eval(g.nodes[n.Left].Fingerprint)
	default:
		panic("dag: unknown op in fingerprintOf")
	}
}

func fingerprintKey(f field.Element) string {
	b := f.Bytes()
	return string(b[:])
}

// insert deduplicates n by fingerprint, inserting it into the arena if no
// existing node shares its fingerprint. Simplified rewrites are expected to
// have already been applied by the caller.
func (g *Graph) insert(n Node) int {
	n.Fingerprint = g.fingerprintOf(n)
	key := fingerprintKey(n.Fingerprint)
	if existing, ok := g.byFingerprint[key]; ok {
		return existing
	}
	idx := len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.byFingerprint[key] = idx
	return idx
}

// Constant inserts a literal field element.
func (g *Graph) Constant(a field.Element) int {
	return g.insert(Node{Op: OpConstant, Left: -1, Right: -1, Constant: a})
}

// X inserts the evaluation variable.
func (g *Graph) X() int {
	return g.insert(Node{Op: OpX, Left: -1, Right: -1})
}

// Coset inserts the size-s coset point c*omega_s^i (the periodic evaluation
// variable used by periodic columns).
func (g *Graph) Coset(c field.Element, size int) int {
	return g.insert(Node{Op: OpCoset, Left: -1, Right: -1, Constant: c, CosetSize: size})
}

// Trace inserts a reference to column c at row-offset j.
func (g *Graph) Trace(column, offset int) int {
	return g.insert(Node{Op: OpTrace, Left: -1, Right: -1, Column: column, Offset: offset})
}

// Add inserts a+b, applying constant folding, coset propagation and
// zero-collapse simplifications.
func (g *Graph) Add(a, b int) int {
	na, nb := g.nodes[a], g.nodes[b]
	if na.Op == OpConstant && na.Constant.IsZero() {
		return b
	}
	if nb.Op == OpConstant && nb.Constant.IsZero() {
		return a
	}
	if na.Op == OpConstant && nb.Op == OpConstant {
		return g.Constant(na.Constant.Add(nb.Constant))
	}
	if na.Op == OpCoset && nb.Op == OpCoset && na.CosetSize == nb.CosetSize {
		return g.Coset(na.Constant.Add(nb.Constant), na.CosetSize)
	}
	return g.insert(Node{Op: OpAdd, Left: a, Right: b})
}

// Neg inserts -a.
func (g *Graph) Neg(a int) int {
	na := g.nodes[a]
	if na.Op == OpConstant {
		return g.Constant(na.Constant.Neg())
	}
	if na.Op == OpCoset {
		return g.Coset(na.Constant.Neg(), na.CosetSize)
	}
	return g.insert(Node{Op: OpNeg, Left: a, Right: -1})
}

// Sub inserts a-b.
func (g *Graph) Sub(a, b int) int {
	return g.Add(a, g.Neg(b))
}

// Mul inserts a*b, applying constant folding and zero/one collapse.
func (g *Graph) Mul(a, b int) int {
	na, nb := g.nodes[a], g.nodes[b]
	if na.Op == OpConstant {
		if na.Constant.IsZero() {
			return a
		}
		if na.Constant.IsOne() {
			return b
		}
	}
	if nb.Op == OpConstant {
		if nb.Constant.IsZero() {
			return b
		}
		if nb.Constant.IsOne() {
			return a
		}
	}
	if na.Op == OpConstant && nb.Op == OpConstant {
		return g.Constant(na.Constant.Mul(nb.Constant))
	}
	return g.insert(Node{Op: OpMul, Left: a, Right: b})
}

// Inv inserts 1/a.
func (g *Graph) Inv(a int) int {
	na := g.nodes[a]
	if na.Op == OpConstant {
		inv, err := na.Constant.Inv()
		if err != nil {
			panic("dag: Inv(0) at constant-folding time is a caller bug")
		}
		return g.Constant(inv)
	}
	return g.insert(Node{Op: OpInv, Left: a, Right: -1})
}

// Exp inserts a^e, fusing nested exponents (Exp(Exp(a,e1),e2) == Exp(a,e1*e2)).
func (g *Graph) Exp(a int, e uint64) int {
	if e == 0 {
		return g.Constant(field.One())
	}
	if e == 1 {
		return a
	}
	na := g.nodes[a]
	if na.Op == OpConstant {
		return g.Constant(na.Constant.PowUint64(e))
	}
	if na.Op == OpExp {
		return g.Exp(na.Left, na.Exponent*e)
	}
	return g.insert(Node{Op: OpExp, Left: a, Right: -1, Exponent: e})
}

// Poly inserts p(inner), used for periodic columns (spec GLOSSARY
// "Periodic column").
func (g *Graph) Poly(p *polynomial.Polynomial, inner int) int {
	ninner := g.nodes[inner]
	if ninner.Op == OpConstant {
		return g.Constant(p.Eval(ninner.Constant))
	}
	return g.insert(Node{Op: OpPoly, Left: inner, Right: -1, Poly: p})
}

// NodeCount returns the number of distinct nodes currently in the arena.
func (g *Graph) NodeCount() int { return len(g.nodes) }
