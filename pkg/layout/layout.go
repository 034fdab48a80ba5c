// Package layout computes layered (Sugiyama style) coordinates for a visual graph.
//
// Every call builds its own layout graph; nothing is kept between calls, so a
// layout depends only on its nodes, edges and Config.
package layout

import (
	"errors"
	"fmt"

	"github.com/ritzau/storygraph/pkg/cycles"
	"github.com/ritzau/storygraph/pkg/logging"
	"github.com/ritzau/storygraph/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
)

// ErrInvalidConfig is returned for a Config that fails validation
var ErrInvalidConfig = errors.New("invalid layout config")

// Drop reasons reported for edges that were not submitted to the layout
const (
	DropUnknownSource = "unknown source"
	DropUnknownTarget = "unknown target"
	DropSelfLoop      = "self-loop"
)

// DroppedEdge is an edge the layout ignored
type DroppedEdge struct {
	EdgeID string `json:"edgeId"`
	Reason string `json:"reason"`
}

// Stats describes what one layout pass did
type Stats struct {
	Invoked       bool `json:"invoked"`
	Ranks         int  `json:"ranks"`
	DummyNodes    int  `json:"dummyNodes"`
	Crossings     int  `json:"crossings"`
	ReversedEdges int  `json:"reversedEdges"`
	Cycles        int  `json:"cycles"`
}

// Result holds positioned copies of the input nodes. Node Data pointers are
// shared with the input and edges are passed through, minus dropped ones.
type Result struct {
	Nodes   []*model.VisualNode `json:"nodes"`
	Edges   []*model.VisualEdge `json:"edges"`
	Dropped []DroppedEdge       `json:"dropped,omitempty"`
	Stats   Stats               `json:"stats"`
}

// Layout positions nodes top-left anchored and sets their handle sides for
// cfg.Direction. Edges referencing unknown nodes and self-loops are dropped
// with a warning instead of failing the pass.
func Layout(nodes []*model.VisualNode, edges []*model.VisualEdge, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	result := &Result{
		Nodes: make([]*model.VisualNode, 0, len(nodes)),
		Edges: make([]*model.VisualEdge, 0, len(edges)),
	}
	if len(nodes) == 0 {
		return result, nil
	}

	lg, err := newLayoutGraph(nodes)
	if err != nil {
		return nil, err
	}

	for _, edge := range edges {
		if reason := lg.addEdge(edge); reason != "" {
			logging.Warn("dropping edge from layout", "edge", edge.ID, "source", edge.Source, "target", edge.Target, "reason", reason)
			result.Dropped = append(result.Dropped, DroppedEdge{EdgeID: edge.ID, Reason: reason})
			continue
		}
		result.Edges = append(result.Edges, edge)
	}

	result.Stats = lg.run(cfg)

	source, target := cfg.Direction.Handles()
	for i, node := range nodes {
		out := *node
		out.Position = lg.topLeft(int64(i), cfg)
		out.SourcePosition = source
		out.TargetPosition = target
		result.Nodes = append(result.Nodes, &out)
	}

	logging.Debug("layout complete",
		"direction", string(cfg.Direction),
		"nodes", len(result.Nodes),
		"edges", len(result.Edges),
		"dropped", len(result.Dropped),
		"ranks", result.Stats.Ranks,
		"crossings", result.Stats.Crossings,
	)
	return result, nil
}

// layoutGraph is the transient state of a single layout pass. Real nodes have
// ids 0..n-1 in input order; dummy nodes for long edges follow.
type layoutGraph struct {
	g      *simple.DirectedGraph
	index  map[string]int64
	real   int
	edges  []cycles.Edge // submitted edges in input order, deduplicated
	ranks  []int
	layers [][]int64
	cross  []float64 // center coordinate along the rank
	up     [][]int64 // predecessors per node, in edge order
	down   [][]int64 // successors per node, in edge order
}

func newLayoutGraph(nodes []*model.VisualNode) (*layoutGraph, error) {
	lg := &layoutGraph{
		g:     simple.NewDirectedGraph(),
		index: make(map[string]int64, len(nodes)),
		real:  len(nodes),
	}
	for i, node := range nodes {
		if _, dup := lg.index[node.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", node.ID)
		}
		lg.index[node.ID] = int64(i)
		lg.g.AddNode(simple.Node(int64(i)))
	}
	return lg, nil
}

// addEdge registers an edge and returns a drop reason if it cannot take part
func (lg *layoutGraph) addEdge(edge *model.VisualEdge) string {
	from, ok := lg.index[edge.Source]
	if !ok {
		return DropUnknownSource
	}
	to, ok := lg.index[edge.Target]
	if !ok {
		return DropUnknownTarget
	}
	if from == to {
		return DropSelfLoop
	}
	// Parallel edges carry no extra layout information
	if !lg.g.HasEdgeFromTo(from, to) {
		lg.g.SetEdge(lg.g.NewEdge(lg.g.Node(from), lg.g.Node(to)))
		lg.edges = append(lg.edges, cycles.Edge{From: from, To: to})
	}
	return ""
}

func (lg *layoutGraph) run(cfg Config) Stats {
	stats := Stats{Invoked: true}

	stats.Cycles = len(cycles.Find(lg.g))
	stats.ReversedEdges = lg.breakCycles()
	if stats.Cycles > 0 {
		logging.Debug("reversed edges to break cycles", "cycles", stats.Cycles, "reversed", stats.ReversedEdges)
	}

	lg.assignRanks()
	stats.DummyNodes = lg.splitLongEdges()
	lg.buildAdjacency()
	lg.initOrder()
	stats.Crossings = lg.reduceCrossings(cfg.OrderIterations)
	lg.assignCross(cfg)
	stats.Ranks = len(lg.layers)

	logging.Trace("layout phases done", "ranks", stats.Ranks, "dummies", stats.DummyNodes, "crossings", stats.Crossings)
	return stats
}

// breakCycles reverses back edges so that ranking sees a DAG
func (lg *layoutGraph) breakCycles() int {
	back := cycles.BackEdges(lg.g)
	if len(back) == 0 {
		return 0
	}
	reversed := make(map[cycles.Edge]bool, len(back))
	for _, e := range back {
		reversed[e] = true
		lg.g.RemoveEdge(e.From, e.To)
	}

	kept := lg.edges[:0]
	for _, e := range lg.edges {
		if !reversed[e] {
			kept = append(kept, e)
			continue
		}
		flipped := cycles.Edge{From: e.To, To: e.From}
		if !lg.g.HasEdgeFromTo(flipped.From, flipped.To) {
			lg.g.SetEdge(lg.g.NewEdge(lg.g.Node(flipped.From), lg.g.Node(flipped.To)))
			kept = append(kept, flipped)
		}
	}
	lg.edges = kept
	return len(back)
}

func (lg *layoutGraph) topLeft(id int64, cfg Config) model.Position {
	rankCenter := float64(lg.ranks[id])*(cfg.rankSize()+cfg.RankSep) + cfg.rankSize()/2
	crossCenter := lg.cross[id]

	var cx, cy float64
	if cfg.Direction == model.DirectionLeftToRight {
		cx, cy = rankCenter, crossCenter
	} else {
		cx, cy = crossCenter, rankCenter
	}
	return model.Position{X: cx - cfg.NodeWidth/2, Y: cy - cfg.NodeHeight/2}
}
