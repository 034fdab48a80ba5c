package layout

// alignmentPasses alternates downward and upward passes, ending upward so
// that parents settle over the middle of their children
const alignmentPasses = 4

// assignCross sets the center coordinate of every node along its rank
func (lg *layoutGraph) assignCross(cfg Config) {
	lg.cross = make([]float64, len(lg.ranks))

	for _, layer := range lg.layers {
		x := 0.0
		for i, id := range layer {
			if i > 0 {
				x += lg.gap(layer[i-1], id, cfg)
			}
			lg.cross[id] = x
		}
	}

	for pass := 0; pass < alignmentPasses; pass++ {
		if pass%2 == 0 {
			for r := 1; r < len(lg.layers); r++ {
				lg.alignLayer(r, lg.up, cfg)
			}
		} else {
			for r := len(lg.layers) - 2; r >= 0; r-- {
				lg.alignLayer(r, lg.down, cfg)
			}
		}
	}

	lg.normalize(cfg)
}

// alignLayer moves nodes of layer r toward the mean of their neighbours while
// keeping the order and minimum gaps. A left-to-right and a right-to-left
// placement are averaged; both respect the gaps, so their mean does too.
func (lg *layoutGraph) alignLayer(r int, neighbours [][]int64, cfg Config) {
	layer := lg.layers[r]
	n := len(layer)
	if n == 0 {
		return
	}

	desired := make([]float64, n)
	for i, id := range layer {
		adj := neighbours[id]
		if len(adj) == 0 {
			desired[i] = lg.cross[id]
			continue
		}
		sum := 0.0
		for _, a := range adj {
			sum += lg.cross[a]
		}
		desired[i] = sum / float64(len(adj))
	}

	left := make([]float64, n)
	for i := range layer {
		left[i] = desired[i]
		if i > 0 {
			left[i] = max(desired[i], left[i-1]+lg.gap(layer[i-1], layer[i], cfg))
		}
	}

	right := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		right[i] = desired[i]
		if i < n-1 {
			right[i] = min(desired[i], right[i+1]-lg.gap(layer[i], layer[i+1], cfg))
		}
	}

	for i, id := range layer {
		lg.cross[id] = (left[i] + right[i]) / 2
	}
}

// gap is the minimum center distance between neighbours a and b in a rank
func (lg *layoutGraph) gap(a, b int64, cfg Config) float64 {
	return lg.halfExtent(a, cfg) + lg.halfExtent(b, cfg)
}

// halfExtent is half a node's size plus half of its separation. Dummy nodes
// have no size and only reserve edge separation.
func (lg *layoutGraph) halfExtent(id int64, cfg Config) float64 {
	if lg.isDummy(id) {
		return cfg.EdgeSep / 2
	}
	return cfg.crossSize()/2 + cfg.NodeSep/2
}

// normalize shifts the layout so that the first real node edge sits at zero
func (lg *layoutGraph) normalize(cfg Config) {
	lowest := 0.0
	found := false
	for id := int64(0); id < int64(lg.real); id++ {
		edge := lg.cross[id] - cfg.crossSize()/2
		if !found || edge < lowest {
			lowest = edge
			found = true
		}
	}
	for id := range lg.cross {
		lg.cross[id] -= lowest
	}
}
