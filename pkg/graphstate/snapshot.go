package graphstate

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ritzau/storygraph/pkg/layout"
	"github.com/ritzau/storygraph/pkg/model"
)

// Snapshot is an immutable copy of the live graph at one version.
// Node data pointers are shared with the controller.
type Snapshot struct {
	Version   int                 `json:"version"`
	Direction model.Direction     `json:"direction"`
	Nodes     []*model.VisualNode `json:"nodes"`
	Edges     []*model.VisualEdge `json:"edges"`
	Layout    layout.Stats        `json:"layout"`
}

// Node returns the node with the given id
func (s *Snapshot) Node(id string) (*model.VisualNode, bool) {
	for _, node := range s.Nodes {
		if node.ID == id {
			return node, true
		}
	}
	return nil, false
}

// Hash identifies the visual content of the snapshot, independent of its version
func (s *Snapshot) Hash() string {
	content := struct {
		Direction model.Direction     `json:"direction"`
		Nodes     []*model.VisualNode `json:"nodes"`
		Edges     []*model.VisualEdge `json:"edges"`
	}{s.Direction, s.Nodes, s.Edges}

	jsonData, err := json.Marshal(content)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256(jsonData))
}

// Diff is the difference between two snapshots
type Diff struct {
	AddedNodes    []*model.VisualNode `json:"addedNodes"`
	RemovedNodes  []string            `json:"removedNodes"`
	ModifiedNodes []*model.VisualNode `json:"modifiedNodes"` // position, handles, selection or data changed
	AddedEdges    []*model.VisualEdge `json:"addedEdges"`
	RemovedEdges  []string            `json:"removedEdges"`
	ModifiedEdges []*model.VisualEdge `json:"modifiedEdges"`
	FullGraph     bool                `json:"fullGraph"` // True if this is a full graph, not a diff
}

// Empty reports whether the diff carries no change
func (d *Diff) Empty() bool {
	return !d.FullGraph &&
		len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 && len(d.ModifiedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0 && len(d.ModifiedEdges) == 0
}

// ComputeDiff computes the difference from old to current. Entries keep the
// order of current; removed ids are sorted.
func ComputeDiff(old, current *Snapshot) *Diff {
	if old == nil {
		return &Diff{
			AddedNodes: current.Nodes,
			AddedEdges: current.Edges,
			FullGraph:  true,
		}
	}

	diff := &Diff{
		AddedNodes:    make([]*model.VisualNode, 0),
		RemovedNodes:  make([]string, 0),
		ModifiedNodes: make([]*model.VisualNode, 0),
		AddedEdges:    make([]*model.VisualEdge, 0),
		RemovedEdges:  make([]string, 0),
		ModifiedEdges: make([]*model.VisualEdge, 0),
	}

	oldNodes := make(map[string]*model.VisualNode, len(old.Nodes))
	for _, node := range old.Nodes {
		oldNodes[node.ID] = node
	}
	seen := make(map[string]bool, len(current.Nodes))
	for _, node := range current.Nodes {
		seen[node.ID] = true
		prev, exists := oldNodes[node.ID]
		switch {
		case !exists:
			diff.AddedNodes = append(diff.AddedNodes, node)
		case *prev != *node:
			diff.ModifiedNodes = append(diff.ModifiedNodes, node)
		}
	}
	for id := range oldNodes {
		if !seen[id] {
			diff.RemovedNodes = append(diff.RemovedNodes, id)
		}
	}

	oldEdges := make(map[string]*model.VisualEdge, len(old.Edges))
	for _, edge := range old.Edges {
		oldEdges[edge.ID] = edge
	}
	seen = make(map[string]bool, len(current.Edges))
	for _, edge := range current.Edges {
		seen[edge.ID] = true
		prev, exists := oldEdges[edge.ID]
		switch {
		case !exists:
			diff.AddedEdges = append(diff.AddedEdges, edge)
		case *prev != *edge:
			diff.ModifiedEdges = append(diff.ModifiedEdges, edge)
		}
	}
	for id := range oldEdges {
		if !seen[id] {
			diff.RemovedEdges = append(diff.RemovedEdges, id)
		}
	}

	sort.Strings(diff.RemovedNodes)
	sort.Strings(diff.RemovedEdges)
	return diff
}
