package dag

// Shaken is a tree-shaken, densely-renumbered copy of a Graph: only nodes
// reachable from the chosen outputs survive, and every child index is
// strictly less than its parent's (spec 4.4 "Tree-shake").
type Shaken struct {
	Nodes   []Node
	Outputs []int
}

// TreeShake performs the mark-and-sweep pass: nodes unreachable from
// outputs are dropped, and surviving nodes are renumbered in topological
// (child-before-parent) order.
func (g *Graph) TreeShake(outputs []int) *Shaken {
	visited := make(map[int]bool, len(g.nodes))
	order := make([]int, 0, len(g.nodes))

	var visit func(int)
	visit = func(i int) {
		if visited[i] {
			return
		}
		n := g.nodes[i]
		if n.Left >= 0 {
			visit(n.Left)
		}
		if n.Right >= 0 {
			visit(n.Right)
		}
		visited[i] = true
		order = append(order, i)
	}
	for _, o := range outputs {
		visit(o)
	}

	remap := make(map[int]int, len(order))
	nodes := make([]Node, len(order))
	for newIdx, oldIdx := range order {
		remap[oldIdx] = newIdx
		n := g.nodes[oldIdx]
		if n.Left >= 0 {
			n.Left = remap[n.Left]
		}
		if n.Right >= 0 {
			n.Right = remap[n.Right]
		}
		nodes[newIdx] = n
	}

	newOutputs := make([]int, len(outputs))
	for i, o := range outputs {
		newOutputs[i] = remap[o]
	}
	return &Shaken{Nodes: nodes, Outputs: newOutputs}
}
