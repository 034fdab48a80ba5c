package cycles

import "gonum.org/v1/gonum/graph"

// Edge is a directed pair of node ids
type Edge struct {
	From, To int64
}

// BackEdges returns the edges that close a cycle during a depth-first search
// started from each node in ascending id order. Reversing all of them makes
// the graph acyclic.
func BackEdges(g graph.Directed) []Edge {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[int64]int)
	var back []Edge

	var visit func(id int64)
	visit = func(id int64) {
		state[id] = active
		for _, next := range sortedIDs(g.From(id)) {
			switch state[next] {
			case unvisited:
				visit(next)
			case active:
				back = append(back, Edge{From: id, To: next})
			}
		}
		state[id] = done
	}

	for _, id := range sortedIDs(g.Nodes()) {
		if state[id] == unvisited {
			visit(id)
		}
	}
	return back
}
