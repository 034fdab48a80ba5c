// Package render turns graph snapshots into display views and performs the
// actions a user can trigger on a node.
package render

import (
	"github.com/ritzau/storygraph/pkg/graphstate"
	"github.com/ritzau/storygraph/pkg/model"
)

// NodeRenderer renders one kind of node
type NodeRenderer interface {
	RenderNode(node *model.VisualNode) NodeView
}

// EdgeRenderer renders one kind of edge
type EdgeRenderer interface {
	RenderEdge(edge *model.VisualEdge) EdgeView
}

// NodeRendererFunc adapts a function to NodeRenderer
type NodeRendererFunc func(node *model.VisualNode) NodeView

func (f NodeRendererFunc) RenderNode(node *model.VisualNode) NodeView { return f(node) }

// EdgeRendererFunc adapts a function to EdgeRenderer
type EdgeRendererFunc func(edge *model.VisualEdge) EdgeView

func (f EdgeRendererFunc) RenderEdge(edge *model.VisualEdge) EdgeView { return f(edge) }

// View is a fully rendered snapshot
type View struct {
	Version   int             `json:"version"`
	Direction model.Direction `json:"direction"`
	Nodes     []NodeView      `json:"nodes"`
	Edges     []EdgeView      `json:"edges"`
}

// Registry maps type tags to renderers. Unknown tags use the fallbacks.
type Registry struct {
	nodes        map[model.NodeType]NodeRenderer
	edges        map[model.EdgeType]EdgeRenderer
	fallbackNode NodeRenderer
	fallbackEdge EdgeRenderer
}

// NewRegistry returns a registry with the chapter node renderer and the
// smoothstep and default edge renderers
func NewRegistry() *Registry {
	r := &Registry{
		nodes:        make(map[model.NodeType]NodeRenderer),
		edges:        make(map[model.EdgeType]EdgeRenderer),
		fallbackNode: NodeRendererFunc(renderPlainNode),
		fallbackEdge: EdgeRendererFunc(renderEdge(PathBezier)),
	}
	r.RegisterNode(model.NodeTypeChapter, ChapterRenderer{})
	r.RegisterEdge(model.EdgeTypeSmoothStep, EdgeRendererFunc(renderEdge(PathSmoothStep)))
	r.RegisterEdge(model.EdgeTypeDefault, EdgeRendererFunc(renderEdge(PathBezier)))
	return r
}

// RegisterNode sets the renderer for a node type
func (r *Registry) RegisterNode(t model.NodeType, renderer NodeRenderer) {
	r.nodes[t] = renderer
}

// RegisterEdge sets the renderer for an edge type
func (r *Registry) RegisterEdge(t model.EdgeType, renderer EdgeRenderer) {
	r.edges[t] = renderer
}

// ResolveNode returns the renderer for a node type
func (r *Registry) ResolveNode(t model.NodeType) NodeRenderer {
	if renderer, ok := r.nodes[t]; ok {
		return renderer
	}
	return r.fallbackNode
}

// ResolveEdge returns the renderer for an edge type
func (r *Registry) ResolveEdge(t model.EdgeType) EdgeRenderer {
	if renderer, ok := r.edges[t]; ok {
		return renderer
	}
	return r.fallbackEdge
}

// Build renders every node and edge of the snapshot. Each type tag is
// resolved once per build.
func (r *Registry) Build(snap *graphstate.Snapshot) *View {
	view := &View{
		Version:   snap.Version,
		Direction: snap.Direction,
		Nodes:     make([]NodeView, 0, len(snap.Nodes)),
		Edges:     make([]EdgeView, 0, len(snap.Edges)),
	}

	nodeRenderers := make(map[model.NodeType]NodeRenderer)
	for _, node := range snap.Nodes {
		renderer, ok := nodeRenderers[node.Type]
		if !ok {
			renderer = r.ResolveNode(node.Type)
			nodeRenderers[node.Type] = renderer
		}
		view.Nodes = append(view.Nodes, renderer.RenderNode(node))
	}

	edgeRenderers := make(map[model.EdgeType]EdgeRenderer)
	for _, edge := range snap.Edges {
		renderer, ok := edgeRenderers[edge.Type]
		if !ok {
			renderer = r.ResolveEdge(edge.Type)
			edgeRenderers[edge.Type] = renderer
		}
		view.Edges = append(view.Edges, renderer.RenderEdge(edge))
	}
	return view
}
