package model

import (
	"fmt"
	"strings"
)

// NodeType is the tag the rendering surface uses to pick a node renderer
type NodeType string

const (
	NodeTypeChapter NodeType = "chapter"
)

// EdgeType is the tag the rendering surface uses to pick an edge renderer
type EdgeType string

const (
	EdgeTypeDefault    EdgeType = "default"
	EdgeTypeSmoothStep EdgeType = "smoothstep"
)

// HandlePosition is the side of a node an edge attaches to
type HandlePosition string

const (
	HandleTop    HandlePosition = "top"
	HandleBottom HandlePosition = "bottom"
	HandleLeft   HandlePosition = "left"
	HandleRight  HandlePosition = "right"
)

// Direction is the main flow direction of a laid out graph
type Direction string

const (
	DirectionTopToBottom Direction = "TB"
	DirectionLeftToRight Direction = "LR"
)

// ParseDirection accepts "TB", "LR", "top-to-bottom" and "left-to-right" (any case)
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tb", "top-to-bottom":
		return DirectionTopToBottom, nil
	case "lr", "left-to-right":
		return DirectionLeftToRight, nil
	}
	return "", fmt.Errorf("unknown layout direction %q (want TB or LR)", s)
}

// Handles returns the source and target handle sides for the direction
func (d Direction) Handles() (source, target HandlePosition) {
	if d == DirectionLeftToRight {
		return HandleRight, HandleLeft
	}
	return HandleBottom, HandleTop
}

// Position is a top-left anchored coordinate on the rendering surface
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the display snapshot of a chapter carried by a visual node.
// It is shared by pointer between graph states and never mutated after mapping.
type NodeData struct {
	ChapterID   string          `json:"chapterId"`
	StoryID     string          `json:"storyId"`
	Title       string          `json:"title"`
	Status      ChapterStatus   `json:"status"`
	Version     int             `json:"version"`
	Depth       int             `json:"depth"`
	Author      Author          `json:"author"`
	Votes       Votes           `json:"votes"`
	Stats       Stats           `json:"stats"`
	ReportCount int             `json:"reportCount"`
	IsFlagged   bool            `json:"isFlagged"`
	PullRequest *PullRequestRef `json:"pullRequest,omitempty"`
	TimeAgo     string          `json:"timeAgo"`
	ReadTime    int             `json:"readTime"` // minutes
	HasChildren bool            `json:"hasChildren"`

	// OnComment is bound to the chapter by the mapper; nil when no handler was injected
	OnComment func() `json:"-"`
}

// VisualNode is a positioned node on the rendering surface
type VisualNode struct {
	ID             string         `json:"id"`
	Type           NodeType       `json:"type"`
	Position       Position       `json:"position"`
	SourcePosition HandlePosition `json:"sourcePosition,omitempty"`
	TargetPosition HandlePosition `json:"targetPosition,omitempty"`
	Selected       bool           `json:"selected,omitempty"`
	Dragging       bool           `json:"dragging,omitempty"`
	Data           *NodeData      `json:"data"`
}

// EdgeStyle is the stroke of an edge
type EdgeStyle struct {
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

// EdgeData is the payload handed to edge handlers
type EdgeData struct {
	StoryID string `json:"storyId,omitempty"`
}

// VisualEdge is a directed connection between two visual nodes
type VisualEdge struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	Target   string    `json:"target"`
	Type     EdgeType  `json:"type"`
	Animated bool      `json:"animated"`
	Style    EdgeStyle `json:"style"`
	Selected bool      `json:"selected,omitempty"`
	Data     EdgeData  `json:"data"`
}

// EdgeID is the deterministic id of the edge between a parent and a child chapter
func EdgeID(parentID, childID string) string {
	return parentID + "-" + childID
}

// Graph is a set of visual nodes and edges
type Graph struct {
	Nodes []*VisualNode `json:"nodes"`
	Edges []*VisualEdge `json:"edges"`
}

// NewGraph creates a new empty graph
func NewGraph() *Graph {
	return &Graph{
		Nodes: make([]*VisualNode, 0),
		Edges: make([]*VisualEdge, 0),
	}
}

// AddNode appends a node to the graph
func (g *Graph) AddNode(node *VisualNode) {
	g.Nodes = append(g.Nodes, node)
}

// AddEdge appends an edge to the graph
func (g *Graph) AddEdge(edge *VisualEdge) {
	g.Edges = append(g.Edges, edge)
}

// NodeIndex maps node ids to their index in Nodes
func (g *Graph) NodeIndex() map[string]int {
	index := make(map[string]int, len(g.Nodes))
	for i, node := range g.Nodes {
		index[node.ID] = i
	}
	return index
}

// Clone returns a graph with copied node and edge values. NodeData pointers are shared.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Nodes: make([]*VisualNode, len(g.Nodes)),
		Edges: make([]*VisualEdge, len(g.Edges)),
	}
	for i, node := range g.Nodes {
		n := *node
		out.Nodes[i] = &n
	}
	for i, edge := range g.Edges {
		e := *edge
		out.Edges[i] = &e
	}
	return out
}
