// Package graphstate owns the live node and edge collections of a story graph
// view and applies every interactive transition to them.
package graphstate

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ritzau/storygraph/pkg/layout"
	"github.com/ritzau/storygraph/pkg/logging"
	"github.com/ritzau/storygraph/pkg/model"
)

var (
	ErrSelfConnection      = errors.New("cannot connect a node to itself")
	ErrUnknownNode         = errors.New("unknown node")
	ErrDuplicateConnection = errors.New("nodes are already connected")
	ErrInvalidDirection    = errors.New("invalid layout direction")
)

// Transition reasons reported to listeners
const (
	ReasonMount    = "mount"
	ReasonNodes    = "nodes"
	ReasonEdges    = "edges"
	ReasonConnect  = "connect"
	ReasonRelayout = "relayout"
)

// Notice kinds
const (
	NoticeConnectRejected = "connect_rejected"
)

// ConnectionStyle is the stroke of user-created connections
var ConnectionStyle = model.EdgeStyle{Stroke: "#6366f1", StrokeWidth: 2}

// Transition describes one applied state change
type Transition struct {
	Reason   string
	Previous *Snapshot // nil before the first mount
	Current  *Snapshot
}

// Notice is a non-blocking message for the user
type Notice struct {
	Kind    string
	Message string
	Source  string
	Target  string
}

// Listener observes the controller. Calls happen with the controller locked,
// in transition order; a listener must not call back into the controller.
type Listener interface {
	GraphChanged(t Transition)
	Noticed(n Notice)
}

// LayoutFunc positions a graph; layout.Layout in production
type LayoutFunc func(nodes []*model.VisualNode, edges []*model.VisualEdge, cfg layout.Config) (*layout.Result, error)

// Controller holds the canonical live graph. All methods are safe for
// concurrent use; transitions are serialized.
type Controller struct {
	mu       sync.Mutex
	cfg      layout.Config
	layoutFn LayoutFunc
	listener Listener

	nodes   []*model.VisualNode
	edges   []*model.VisualEdge
	stats   layout.Stats
	version int
	mounted bool
}

// Option configures a Controller
type Option func(*Controller)

// WithListener registers the transition listener
func WithListener(l Listener) Option {
	return func(c *Controller) { c.listener = l }
}

// WithLayoutFunc replaces the layout implementation
func WithLayoutFunc(fn LayoutFunc) Option {
	return func(c *Controller) { c.layoutFn = fn }
}

// NewController creates an empty controller laying out with cfg
func NewController(cfg layout.Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg,
		layoutFn: layout.Layout,
		nodes:    make([]*model.VisualNode, 0),
		edges:    make([]*model.VisualEdge, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mount replaces the whole state with a freshly mapped graph laid out in
// direction. On error the current state is kept.
func (c *Controller) Mount(graph *model.Graph, direction model.Direction) error {
	if !validDirection(direction) {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	result, err := c.layoutFn(graph.Nodes, graph.Edges, c.cfg.WithDirection(direction))
	if err != nil {
		return fmt.Errorf("layout failed: %w", err)
	}

	var previous *Snapshot
	if c.mounted {
		previous = c.snapshotLocked()
	}
	c.cfg = c.cfg.WithDirection(direction)
	c.nodes = result.Nodes
	c.edges = result.Edges
	c.stats = result.Stats
	c.mounted = true
	c.commitLocked(ReasonMount, previous)

	logging.Info("graph mounted", "nodes", len(c.nodes), "edges", len(c.edges), "direction", string(direction), "version", c.version)
	return nil
}

// Relayout recomputes every position for direction. Node ids and data are
// preserved; only positions and handle sides change.
func (c *Controller) Relayout(direction model.Direction) error {
	if !validDirection(direction) {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := c.cfg.WithDirection(direction)
	result, err := c.layoutFn(c.nodes, c.edges, cfg)
	if err != nil {
		return fmt.Errorf("layout failed: %w", err)
	}

	previous := c.snapshotLocked()
	c.cfg = cfg
	c.nodes = result.Nodes
	c.edges = result.Edges
	c.stats = result.Stats
	c.commitLocked(ReasonRelayout, previous)

	logging.Debug("graph relayout", "direction", string(direction), "dropped", len(result.Dropped), "version", c.version)
	return nil
}

// ApplyNodeChanges applies a batch of node deltas and returns how many took
// effect. Changes for unknown ids are ignored. An invalid batch is rejected
// as a whole with ErrInvalidChange.
func (c *Controller) ApplyNodeChanges(changes []NodeChange) (int, error) {
	if err := validateBatch(changes); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.snapshotLocked()
	applied := 0
	for _, change := range changes {
		i := indexOfNode(c.nodes, change.ID)
		if i < 0 {
			logging.Trace("ignoring change for unknown node", "id", change.ID, "type", string(change.Type))
			continue
		}
		node := c.nodes[i]

		switch change.Type {
		case ChangePosition:
			node.Position = *change.Position
			if change.Dragging != nil {
				node.Dragging = *change.Dragging
			}
		case ChangeSelect:
			node.Selected = *change.Selected
		case ChangeRemove:
			c.nodes = slices.Delete(c.nodes, i, i+1)
		}
		applied++
	}

	if applied > 0 {
		c.commitLocked(ReasonNodes, previous)
	}
	return applied, nil
}

// ApplyEdgeChanges applies a batch of edge deltas, like ApplyNodeChanges
func (c *Controller) ApplyEdgeChanges(changes []EdgeChange) (int, error) {
	if err := validateBatch(changes); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.snapshotLocked()
	applied := 0
	for _, change := range changes {
		i := indexOfEdge(c.edges, change.ID)
		if i < 0 {
			continue
		}

		switch change.Type {
		case ChangeSelect:
			c.edges[i].Selected = *change.Selected
		case ChangeRemove:
			c.edges = slices.Delete(c.edges, i, i+1)
		}
		applied++
	}

	if applied > 0 {
		c.commitLocked(ReasonEdges, previous)
	}
	return applied, nil
}

// Connect adds a presentation-only edge between two existing, distinct nodes.
// A rejected connection leaves the state untouched and emits a Notice.
func (c *Controller) Connect(conn Connection) (*model.VisualEdge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkConnectionLocked(conn); err != nil {
		logging.Debug("connection rejected", "source", conn.Source, "target", conn.Target, "error", err)
		if c.listener != nil {
			c.listener.Noticed(Notice{
				Kind:    NoticeConnectRejected,
				Message: err.Error(),
				Source:  conn.Source,
				Target:  conn.Target,
			})
		}
		return nil, err
	}

	edge := &model.VisualEdge{
		ID:       "conn-" + conn.Source + "-" + conn.Target,
		Source:   conn.Source,
		Target:   conn.Target,
		Type:     model.EdgeTypeSmoothStep,
		Animated: true,
		Style:    ConnectionStyle,
	}
	if target := c.nodes[indexOfNode(c.nodes, conn.Target)]; target.Data != nil {
		edge.Data.StoryID = target.Data.StoryID
	}

	previous := c.snapshotLocked()
	c.edges = append(c.edges, edge)
	c.commitLocked(ReasonConnect, previous)

	out := *edge
	return &out, nil
}

func (c *Controller) checkConnectionLocked(conn Connection) error {
	if conn.Source == conn.Target {
		return fmt.Errorf("%w: %q", ErrSelfConnection, conn.Source)
	}
	for _, id := range []string{conn.Source, conn.Target} {
		if indexOfNode(c.nodes, id) < 0 {
			return fmt.Errorf("%w: %q", ErrUnknownNode, id)
		}
	}
	for _, edge := range c.edges {
		if edge.Source == conn.Source && edge.Target == conn.Target {
			return fmt.Errorf("%w: %s -> %s", ErrDuplicateConnection, conn.Source, conn.Target)
		}
	}
	return nil
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Direction returns the direction of the last layout
func (c *Controller) Direction() model.Direction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Direction
}

func (c *Controller) snapshotLocked() *Snapshot {
	g := (&model.Graph{Nodes: c.nodes, Edges: c.edges}).Clone()
	return &Snapshot{
		Version:   c.version,
		Direction: c.cfg.Direction,
		Nodes:     g.Nodes,
		Edges:     g.Edges,
		Layout:    c.stats,
	}
}

func (c *Controller) commitLocked(reason string, previous *Snapshot) {
	c.version++
	if c.listener == nil {
		return
	}
	c.listener.GraphChanged(Transition{
		Reason:   reason,
		Previous: previous,
		Current:  c.snapshotLocked(),
	})
}

func validDirection(d model.Direction) bool {
	return d == model.DirectionTopToBottom || d == model.DirectionLeftToRight
}

func indexOfNode(nodes []*model.VisualNode, id string) int {
	for i, node := range nodes {
		if node.ID == id {
			return i
		}
	}
	return -1
}

func indexOfEdge(edges []*model.VisualEdge, id string) int {
	for i, edge := range edges {
		if edge.ID == id {
			return i
		}
	}
	return -1
}
