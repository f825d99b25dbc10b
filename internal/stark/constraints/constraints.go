// Package constraints holds the constraint set applied to a trace table,
// together with the tuning parameters (blowup, proof-of-work difficulty,
// query count, FRI layout) that trade off security, prover time, verifier
// time and proof size (spec COMPONENT DESIGN 4.6).
package constraints

import (
	"errors"
	"math/bits"

	"golang.org/x/sync/errgroup"

	"github.com/vybium/vybium-stark/internal/stark/dag"
	"github.com/vybium/vybium-stark/internal/stark/field"
)

// ErrInvalidTraceLength is returned when the trace row count is not a
// power of two, or when no root of unity of that order exists in the field.
var ErrInvalidTraceLength = errors.New("constraints: trace row count must be a power of two")

// ErrWrongCoefficientCount is returned by Combine when the coefficient
// slice does not carry exactly two entries (low, high) per constraint.
var ErrWrongCoefficientCount = errors.New("constraints: expected 2 coefficients per constraint")

// ErrNoConstraints is returned when a degree or combination is requested
// of an empty constraint set.
var ErrNoConstraints = errors.New("constraints: no constraints registered")

// logTarget is the binary logarithm of the final FRI layer's polynomial
// degree that DefaultFRILayout folds down to.
const logTarget = 8

// Constraints is the set of rational-expression constraint nodes that must
// vanish on the trace domain, plus the parameters controlling how the
// resulting proof is computed. It does not include the claim being proven.
type Constraints struct {
	Graph *dag.Graph

	TraceRows    int
	TraceColumns int

	// Expressions holds one Graph output-node index per constraint.
	Expressions []int

	// Blowup is the size of the low-degree-extension domain relative to
	// the trace domain. Must be a power of two; 16, 32 or 64 are typical.
	Blowup int

	// PoWBits is the number of leading zero bits the grinding nonce must
	// produce.
	PoWBits int

	// NumQueries is the number of positions sampled from the committed
	// oracles.
	NumQueries int

	// FRILayout lists how many degree-halvings are folded between each
	// FRI commitment round.
	FRILayout []int
}

// New builds a Constraints set with the default tuning parameters (spec
// 4.6: blowup 16, 13 queries, pow_bits 20, default FRI layout).
func New(graph *dag.Graph, traceRows, traceColumns int, expressions []int) (*Constraints, error) {
	if traceRows <= 0 || traceRows&(traceRows-1) != 0 {
		return nil, ErrInvalidTraceLength
	}
	if _, err := field.Root(uint64(traceRows)); err != nil {
		return nil, ErrInvalidTraceLength
	}
	return &Constraints{
		Graph:        graph,
		TraceRows:    traceRows,
		TraceColumns: traceColumns,
		Expressions:  expressions,
		Blowup:       16,
		PoWBits:      20,
		NumQueries:   13,
		FRILayout:    DefaultFRILayout(traceRows),
	}, nil
}

// DefaultFRILayout groups reductions three at a time until the remaining
// polynomial degree reaches 2^logTarget, pushing any remainder into a
// final, smaller group (spec 4.6 "FRI layout").
func DefaultFRILayout(traceRows int) []int {
	log2Trace := bits.TrailingZeros(uint(traceRows))
	var numReductions int
	if log2Trace > logTarget {
		numReductions = log2Trace - logTarget
	} else {
		numReductions = log2Trace
	}
	layout := make([]int, numReductions/3)
	for i := range layout {
		layout[i] = 3
	}
	if r := numReductions % 3; r != 0 {
		layout = append(layout, r)
	}
	return layout
}

// Len returns the number of registered constraints.
func (c *Constraints) Len() int { return len(c.Expressions) }

// Degree returns the maximum trace-unit degree (numerator minus
// denominator, with every trace cell counted as degree 1 rather than its
// absolute polynomial degree) across every constraint, computed in
// parallel since each constraint's degree walk touches only its own
// subgraph. This mirrors RationalExpression::trace_degree() in the
// original, a small constant used only to size Combine's shared target
// degree — not the absolute degree used by Combine's own per-constraint
// adjustment below.
func (c *Constraints) Degree() (int, error) {
	if len(c.Expressions) == 0 {
		return 0, ErrNoConstraints
	}
	degrees := make([]int, len(c.Expressions))
	var g errgroup.Group
	for i, expr := range c.Expressions {
		i, expr := i, expr
		g.Go(func() error {
			num, den := c.Graph.TraceDegree(expr, 1)
			degrees[i] = num - den
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	max := degrees[0]
	for _, d := range degrees[1:] {
		if d > max {
			max = d
		}
	}
	return max, nil
}

// SecurityBits estimates the proof's conservative bit security: the
// soundness error is roughly (1/2^blowup_log)^(queries/2) * (1/2^pow_bits),
// so security is blowup_log*(queries/2) + pow_bits (spec 4.6 "Security
// bits").
func (c *Constraints) SecurityBits() int {
	blowupLog := bits.Len(uint(c.Blowup)) - 1
	return blowupLog*(c.NumQueries/2) + c.PoWBits
}

// MaxProofSize returns a conservative upper bound on proof size in bytes,
// assuming no overlap is removed between per-query decommitments (spec 4.6
// "Max proof size").
func (c *Constraints) MaxProofSize() int {
	traceLenLog := bits.TrailingZeros(uint(c.TraceRows))
	total := c.NumQueries * (traceLenLog*c.TraceColumns + traceLenLog)

	currentSize := traceLenLog - 3
	total += c.NumQueries * (currentSize + 7)

	for _, i := range c.FRILayout {
		currentSize -= i
		total += c.NumQueries * (currentSize + (1 << uint(i)) - 1)
	}

	finalList := 1 << uint(currentSize)
	if finalList > c.NumQueries {
		total += finalList - c.NumQueries
	}
	return 32 * total
}

// Combine folds every constraint into a single degree-adjusted rational
// expression: each constraint C_i is multiplied by (alpha_i +
// beta_i*X^adjustment_i), where adjustment_i raises C_i's trace-relative
// degree up to the shared target degree (spec 4.6 "Combine"). coefficients
// must hold exactly 2*Len() field elements, alternating low/high per
// constraint in order.
func (c *Constraints) Combine(coefficients []field.Element) (int, error) {
	if len(coefficients) != 2*len(c.Expressions) {
		return 0, ErrWrongCoefficientCount
	}
	targetDegree, err := c.Degree()
	if err != nil {
		return 0, err
	}
	targetDegree = targetDegree*c.TraceRows - 1

	type adjustment struct {
		degree int
	}
	adjustments := make([]adjustment, len(c.Expressions))
	var g errgroup.Group
	for i, expr := range c.Expressions {
		i, expr := i, expr
		g.Go(func() error {
			num, den := c.Graph.TraceDegree(expr, c.TraceRows-1)
			adjustments[i] = adjustment{degree: targetDegree + den - num}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	x := c.Graph.X()
	sum := -1
	for i, expr := range c.Expressions {
		lo := coefficients[2*i]
		hi := coefficients[2*i+1]
		adjDegree := adjustments[i].degree
		if adjDegree < 0 {
			adjDegree = 0
		}
		term := c.Graph.Add(c.Graph.Constant(lo), c.Graph.Mul(c.Graph.Constant(hi), c.Graph.Exp(x, uint64(adjDegree))))
		weighted := c.Graph.Mul(term, expr)
		if sum < 0 {
			sum = weighted
		} else {
			sum = c.Graph.Add(sum, weighted)
		}
	}
	return sum, nil
}

// TraceArguments returns the sorted, deduplicated (column, offset) pairs
// every constraint reads from the trace table.
func (c *Constraints) TraceArguments() []dag.TraceArgument {
	return c.Graph.TraceArguments(c.Expressions)
}
