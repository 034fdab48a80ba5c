package layout

import "sort"

// initOrder fills the layers by a depth-first walk from the real nodes in
// input order, which keeps siblings next to each other
func (lg *layoutGraph) initOrder() {
	visited := make([]bool, len(lg.ranks))

	var visit func(id int64)
	visit = func(id int64) {
		if visited[id] {
			return
		}
		visited[id] = true
		lg.layers[lg.ranks[id]] = append(lg.layers[lg.ranks[id]], id)
		for _, next := range lg.down[id] {
			visit(next)
		}
	}

	for id := int64(0); id < int64(lg.real); id++ {
		visit(id)
	}
}

// reduceCrossings runs alternating barycenter sweeps and keeps the ordering
// with the fewest crossings. It returns that crossing count.
func (lg *layoutGraph) reduceCrossings(iterations int) int {
	best := cloneLayers(lg.layers)
	bestCrossings := lg.countCrossings()

	for i := 0; i < iterations && bestCrossings > 0; i++ {
		if i%2 == 0 {
			for r := 1; r < len(lg.layers); r++ {
				lg.sortByBarycenter(r, lg.up)
			}
		} else {
			for r := len(lg.layers) - 2; r >= 0; r-- {
				lg.sortByBarycenter(r, lg.down)
			}
		}

		if c := lg.countCrossings(); c < bestCrossings {
			bestCrossings = c
			best = cloneLayers(lg.layers)
		}
	}

	lg.layers = best
	return bestCrossings
}

// sortByBarycenter reorders layer r by the mean position of each node's
// neighbours in the adjacent layer. Nodes without neighbours keep their slot.
func (lg *layoutGraph) sortByBarycenter(r int, neighbours [][]int64) {
	positions := lg.positionsInLayers()
	layer := lg.layers[r]

	weights := make(map[int64]float64, len(layer))
	for i, id := range layer {
		adj := neighbours[id]
		if len(adj) == 0 {
			weights[id] = float64(i)
			continue
		}
		sum := 0.0
		for _, n := range adj {
			sum += float64(positions[n])
		}
		weights[id] = sum / float64(len(adj))
	}

	sort.SliceStable(layer, func(i, j int) bool {
		return weights[layer[i]] < weights[layer[j]]
	})
}

func (lg *layoutGraph) positionsInLayers() []int {
	positions := make([]int, len(lg.ranks))
	for _, layer := range lg.layers {
		for i, id := range layer {
			positions[id] = i
		}
	}
	return positions
}

// countCrossings counts pairwise crossings between every pair of adjacent layers
func (lg *layoutGraph) countCrossings() int {
	positions := lg.positionsInLayers()
	total := 0

	for r := 0; r+1 < len(lg.layers); r++ {
		type span struct{ top, bottom int }
		var spans []span
		for _, id := range lg.layers[r] {
			for _, next := range lg.down[id] {
				spans = append(spans, span{positions[id], positions[next]})
			}
		}
		for i := 0; i < len(spans); i++ {
			for j := i + 1; j < len(spans); j++ {
				a, b := spans[i], spans[j]
				if (a.top < b.top && a.bottom > b.bottom) || (a.top > b.top && a.bottom < b.bottom) {
					total++
				}
			}
		}
	}
	return total
}

func cloneLayers(layers [][]int64) [][]int64 {
	out := make([][]int64, len(layers))
	for i, layer := range layers {
		out[i] = append([]int64(nil), layer...)
	}
	return out
}
