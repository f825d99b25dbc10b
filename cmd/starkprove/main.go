// Command starkprove is a JSON stdin/stdout front end over the STARK
// prover and verifier (teacher idiom: cmd/vybium-vm-prover/main.go reads a
// fixed sequence of JSON lines from stdin and writes one JSON result to
// stdout).
//
// Request (one JSON object per line on stdin):
//
//	{"mode":"prove","scenario":"fibonacci"}
//	{"mode":"verify","scenario":"fibonacci","proof_hex":"..."}
//
// scenario is one of "fibonacci" or "recurrence". prove writes
// {"ok":true,"proof_hex":"...","bytes":N} to stdout; verify writes
// {"ok":true} or {"ok":false,"error":"..."}.
package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/vybium/vybium-stark/internal/stark/dag"
	"github.com/vybium/vybium-stark/internal/stark/field"
	"github.com/vybium/vybium-stark/pkg/stark"
)

type request struct {
	Mode     string `json:"mode"`
	Scenario string `json:"scenario"`
	ProofHex string `json:"proof_hex,omitempty"`
}

type response struct {
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
	ProofHex string `json:"proof_hex,omitempty"`
	Bytes    int    `json:"bytes,omitempty"`
}

func main() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	if !scanner.Scan() {
		fatal("failed to read request line")
	}
	var req request
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		fatal(fmt.Sprintf("failed to parse request: %v", err))
	}

	cs, trace, claim, cfg, err := scenarioFor(req.Scenario)
	if err != nil {
		writeResponse(response{OK: false, Error: err.Error()})
		return
	}

	switch req.Mode {
	case "prove":
		proof, err := stark.Prove(cs, trace, claim, cfg)
		if err != nil {
			writeResponse(response{OK: false, Error: err.Error()})
			return
		}
		writeResponse(response{OK: true, ProofHex: hex.EncodeToString(proof.Bytes), Bytes: len(proof.Bytes)})
	case "verify":
		proofBytes, err := hex.DecodeString(req.ProofHex)
		if err != nil {
			writeResponse(response{OK: false, Error: fmt.Sprintf("invalid proof_hex: %v", err)})
			return
		}
		err = stark.Verify(cs, &stark.Proof{Bytes: proofBytes}, claim, cfg)
		if err != nil {
			writeResponse(response{OK: false, Error: err.Error()})
			return
		}
		writeResponse(response{OK: true})
	default:
		fatal(fmt.Sprintf("unknown mode %q", req.Mode))
	}
}

// scenarioFor builds the named built-in scenario's constraint system,
// trace, claim and tuning config (spec §8 "Concrete scenarios" 1 and 2).
func scenarioFor(name string) (*stark.Constraints, stark.Trace, stark.Claim, stark.Config, error) {
	switch name {
	case "fibonacci":
		return fibonacciScenario()
	case "recurrence":
		return recurrenceScenario()
	default:
		return nil, nil, stark.Claim{}, stark.Config{}, fmt.Errorf("unknown scenario %q", name)
	}
}

const fibRows = 1024

type fibonacciTrace struct{ a, b []field.Element }

func (t *fibonacciTrace) Rows() int    { return len(t.a) }
func (t *fibonacciTrace) Columns() int { return 2 }
func (t *fibonacciTrace) Value(column, row int) field.Element {
	if column == 0 {
		return t.a[row]
	}
	return t.b[row]
}

func fibonacciScenario() (*stark.Constraints, stark.Trace, stark.Claim, stark.Config, error) {
	cfg := stark.Config{BlowupFactor: 16, NumQueries: 20, PowBits: 12, FRILayout: []int{3, 2}}

	a := make([]field.Element, fibRows)
	b := make([]field.Element, fibRows)
	a[0], b[0] = field.One(), field.One()
	for i := 1; i < fibRows; i++ {
		a[i] = b[i-1]
		b[i] = a[i-1].Add(b[i-1])
	}
	trace := &fibonacciTrace{a: a, b: b}
	finalValue := a[fibRows-1]

	g := dag.New(field.FromUint64(8191))
	traceGen, err := field.Root(uint64(fibRows))
	if err != nil {
		return nil, nil, stark.Claim{}, cfg, err
	}
	x := g.X()
	one := g.Constant(field.One())
	lastPoint := g.Constant(traceGen.PowUint64(uint64(fibRows - 1)))
	vanish := g.Sub(g.Exp(x, uint64(fibRows)), one)
	exceptLast := g.Mul(g.Sub(x, lastPoint), g.Inv(vanish))
	a0, a1 := g.Trace(0, 0), g.Trace(0, 1)
	b0, b1 := g.Trace(1, 0), g.Trace(1, 1)
	transitionA := g.Mul(g.Sub(a1, b0), exceptLast)
	transitionB := g.Mul(g.Sub(b1, g.Add(a0, b0)), exceptLast)
	boundaryAt := func(row, column int, value field.Element) int {
		point := g.Constant(traceGen.PowUint64(uint64(row)))
		return g.Mul(g.Sub(g.Trace(column, 0), g.Constant(value)), g.Inv(g.Sub(x, point)))
	}
	expressions := []int{
		transitionA, transitionB,
		boundaryAt(0, 0, field.One()),
		boundaryAt(0, 1, field.One()),
		boundaryAt(fibRows-1, 0, finalValue),
	}
	cs, err := stark.NewConstraints(g, fibRows, 2, expressions, cfg)
	if err != nil {
		return nil, nil, stark.Claim{}, cfg, err
	}
	claim := stark.Claim{PublicInput: finalValue.Bytes()[:]}
	return cs, trace, claim, cfg, nil
}

const recurrenceRows = 4096

type recurrenceTrace struct{ x []field.Element }

func (t *recurrenceTrace) Rows() int    { return len(t.x) }
func (t *recurrenceTrace) Columns() int { return 1 }
func (t *recurrenceTrace) Value(column, row int) field.Element {
	return t.x[row]
}

func recurrenceScenario() (*stark.Constraints, stark.Trace, stark.Claim, stark.Config, error) {
	cfg := stark.Config{BlowupFactor: 16, NumQueries: 20, PowBits: 12, FRILayout: []int{2, 1, 4, 2}}

	x0Int, ok := new(big.Int).SetString("0f00dbabe0cafebabe", 16)
	if !ok {
		return nil, nil, stark.Claim{}, cfg, fmt.Errorf("parsing x0 constant failed")
	}
	x0 := field.FromBigInt(x0Int)
	x := make([]field.Element, recurrenceRows)
	x[0] = x0
	for i := 1; i < recurrenceRows; i++ {
		x[i] = x[i-1].Square()
	}
	trace := &recurrenceTrace{x: x}

	g := dag.New(field.FromUint64(24571))
	traceGen, err := field.Root(uint64(recurrenceRows))
	if err != nil {
		return nil, nil, stark.Claim{}, cfg, err
	}
	xVar := g.X()
	one := g.Constant(field.One())
	lastPoint := g.Constant(traceGen.PowUint64(uint64(recurrenceRows - 1)))
	vanish := g.Sub(g.Exp(xVar, uint64(recurrenceRows)), one)
	exceptLast := g.Mul(g.Sub(xVar, lastPoint), g.Inv(vanish))
	cur, next := g.Trace(0, 0), g.Trace(0, 1)
	transition := g.Mul(g.Sub(next, g.Exp(cur, 2)), exceptLast)
	firstPoint := g.Constant(field.One())
	boundary := g.Mul(g.Sub(g.Trace(0, 0), g.Constant(x0)), g.Inv(g.Sub(xVar, firstPoint)))

	cs, err := stark.NewConstraints(g, recurrenceRows, 1, []int{transition, boundary}, cfg)
	if err != nil {
		return nil, nil, stark.Claim{}, cfg, err
	}
	claim := stark.Claim{PublicInput: x0.Bytes()[:]}
	return cs, trace, claim, cfg, nil
}

func writeResponse(r response) {
	b, err := json.Marshal(r)
	if err != nil {
		fatal(fmt.Sprintf("failed to marshal response: %v", err))
	}
	os.Stdout.Write(b)
	os.Stdout.Write([]byte("\n"))
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "starkprove: ERROR:", msg)
	os.Exit(1)
}
