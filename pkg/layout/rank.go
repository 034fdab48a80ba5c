package layout

import (
	"github.com/ritzau/storygraph/pkg/cycles"
	"gonum.org/v1/gonum/graph/topo"
)

// assignRanks places every node on the longest path from a source. The result
// does not depend on which topological order gonum returns.
func (lg *layoutGraph) assignRanks() {
	lg.ranks = make([]int, lg.real)

	order, err := topo.Sort(lg.g)
	if err != nil {
		// breakCycles guarantees a DAG; fall back to a single rank rather than panic
		return
	}
	for _, node := range order {
		id := node.ID()
		preds := lg.g.To(id)
		for preds.Next() {
			if r := lg.ranks[preds.Node().ID()] + 1; r > lg.ranks[id] {
				lg.ranks[id] = r
			}
		}
	}
}

// splitLongEdges replaces edges spanning several ranks with chains of dummy
// nodes, one per intermediate rank, and returns the number of dummies added
func (lg *layoutGraph) splitLongEdges() int {
	split := make([]cycles.Edge, 0, len(lg.edges))
	dummies := 0

	for _, e := range lg.edges {
		from := e.From
		for r := lg.ranks[e.From] + 1; r < lg.ranks[e.To]; r++ {
			dummy := int64(len(lg.ranks))
			lg.ranks = append(lg.ranks, r)
			split = append(split, cycles.Edge{From: from, To: dummy})
			from = dummy
			dummies++
		}
		split = append(split, cycles.Edge{From: from, To: e.To})
	}

	lg.edges = split
	return dummies
}

func (lg *layoutGraph) isDummy(id int64) bool {
	return id >= int64(lg.real)
}

func (lg *layoutGraph) buildAdjacency() {
	n := len(lg.ranks)
	lg.up = make([][]int64, n)
	lg.down = make([][]int64, n)
	for _, e := range lg.edges {
		lg.down[e.From] = append(lg.down[e.From], e.To)
		lg.up[e.To] = append(lg.up[e.To], e.From)
	}

	maxRank := 0
	for _, r := range lg.ranks {
		maxRank = max(maxRank, r)
	}
	lg.layers = make([][]int64, maxRank+1)
}
