package cycles

import (
	"slices"

	"gonum.org/v1/gonum/graph"
)

// Find returns the cycles of g as sorted groups of node ids. A cycle is a
// strongly connected component with more than one node; self loops are not
// reported. Nodes are visited in ascending id order so the result is stable.
func Find(g graph.Directed) [][]int64 {
	type mark struct {
		order, low int
		onStack    bool
	}
	marks := make(map[int64]*mark)
	var stack []int64
	var found [][]int64

	var connect func(id int64)
	connect = func(id int64) {
		m := &mark{order: len(marks), low: len(marks), onStack: true}
		marks[id] = m
		stack = append(stack, id)

		for _, next := range sortedIDs(g.From(id)) {
			switch n, seen := marks[next]; {
			case !seen:
				connect(next)
				m.low = min(m.low, marks[next].low)
			case n.onStack:
				m.low = min(m.low, n.order)
			}
		}
		if m.low != m.order {
			return
		}

		// id roots a component; everything above it on the stack belongs to it
		at := slices.Index(stack, id)
		group := slices.Clone(stack[at:])
		stack = stack[:at]
		for _, member := range group {
			marks[member].onStack = false
		}
		if len(group) > 1 {
			slices.Sort(group)
			found = append(found, group)
		}
	}

	for _, id := range sortedIDs(g.Nodes()) {
		if _, seen := marks[id]; !seen {
			connect(id)
		}
	}
	return found
}

func sortedIDs(it graph.Nodes) []int64 {
	var ids []int64
	for it.Next() {
		ids = append(ids, it.Node().ID())
	}
	slices.Sort(ids)
	return ids
}
