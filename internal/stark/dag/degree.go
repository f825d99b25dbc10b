package dag

// TraceDegree computes an upper bound on a node's (numerator, denominator)
// degree when every Trace/Coset leaf is taken to have degree traceDegree
// (normally trace_rows-1) and X has degree 1, mirroring how a rational expression's degree is
// tracked symbolically rather than by Schwartz-Zippel sampling (spec 4.6
// "Combine": "constraint.degree(trace_nrows-1)"). Results are cached per
// node since the same subexpression may be reached from multiple outputs.
func (g *Graph) TraceDegree(node int, traceDegree int) (numerator, denominator int) {
	cache := make([]*[2]int, len(g.nodes))
	var walk func(int) [2]int
	walk = func(i int) [2]int {
		if cache[i] != nil {
			return *cache[i]
		}
		n := g.nodes[i]
		var num, den int
		switch n.Op {
		case OpConstant:
			num, den = 0, 0
		case OpX:
			num, den = 1, 0
		case OpCoset:
			num, den = traceDegree, 0
		case OpTrace:
			num, den = traceDegree, 0
		case OpAdd:
			l, r := walk(n.Left), walk(n.Right)
			crossA := l[0] + r[1]
			crossB := r[0] + l[1]
			num = crossA
			if crossB > num {
				num = crossB
			}
			den = l[1] + r[1]
		case OpNeg:
			l := walk(n.Left)
			num, den = l[0], l[1]
		case OpMul:
			l, r := walk(n.Left), walk(n.Right)
			num, den = l[0]+r[0], l[1]+r[1]
		case OpInv:
			l := walk(n.Left)
			num, den = l[1], l[0]
		case OpExp:
			l := walk(n.Left)
			num, den = l[0]*int(n.Exponent), l[1]*int(n.Exponent)
		case OpPoly:
			l := walk(n.Left)
			deg := n.Poly.Degree()
			if deg < 0 {
				deg = 0
			}
			num, den = deg*l[0], deg*l[1]
		}
		cache[i] = &[2]int{num, den}
		return *cache[i]
	}
	result := walk(node)
	return result[0], result[1]
}

// TraceArgument identifies one (column, offset) pair referenced by a Trace
// node.
type TraceArgument struct {
	Column int
	Offset int
}

// TraceArguments returns the sorted, deduplicated set of (column, offset)
// pairs referenced by Trace nodes reachable from the given output nodes
// (spec 4.6 "trace_arguments").
func (g *Graph) TraceArguments(outputs []int) []TraceArgument {
	seen := make(map[TraceArgument]bool)
	visited := make(map[int]bool, len(g.nodes))
	var visit func(int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		visited[i] = true
		n := g.nodes[i]
		if n.Op == OpTrace {
			seen[TraceArgument{Column: n.Column, Offset: n.Offset}] = true
		}
		if n.Left >= 0 {
			visit(n.Left)
		}
		if n.Right >= 0 {
			visit(n.Right)
		}
	}
	for _, o := range outputs {
		visit(o)
	}
	args := make([]TraceArgument, 0, len(seen))
	for a := range seen {
		args = append(args, a)
	}
	for i := 1; i < len(args); i++ {
		for j := i; j > 0; j-- {
			a, b := args[j-1], args[j]
			if a.Column < b.Column || (a.Column == b.Column && a.Offset <= b.Offset) {
				break
			}
			args[j-1], args[j] = args[j], args[j-1]
		}
	}
	return args
}
