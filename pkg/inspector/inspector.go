// Package inspector answers read-only detail queries about one node of a
// graph snapshot.
package inspector

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ritzau/storygraph/pkg/graphstate"
	"github.com/ritzau/storygraph/pkg/model"
)

// ErrNodeNotFound is returned for ids that are not in the snapshot
var ErrNodeNotFound = errors.New("node not found")

// Details are the views derived for one node
type Details struct {
	Node      *model.VisualNode   `json:"node"`
	Incoming  []*model.VisualEdge `json:"incoming"`  // edges targeting the node
	Outgoing  []*model.VisualEdge `json:"outgoing"`  // edges leaving the node
	Connected []string            `json:"connected"` // distinct nodes at the other end of either, sorted
}

// Inspector derives node details from snapshots. Results are memoized for the
// most recent snapshot version only; any other version recomputes.
type Inspector struct {
	mu      sync.Mutex
	version int
	memo    map[string]*Details
}

// New creates an inspector with an empty memo
func New() *Inspector {
	return &Inspector{version: -1}
}

// Inspect returns incoming, outgoing and connected views for id. The returned
// value is shared with the memo and must be treated as read-only.
func (i *Inspector) Inspect(snap *graphstate.Snapshot, id string) (*Details, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if snap.Version != i.version {
		i.version = snap.Version
		i.memo = make(map[string]*Details)
	}
	if details, ok := i.memo[id]; ok {
		return details, nil
	}

	details, err := derive(snap, id)
	if err != nil {
		return nil, err
	}
	i.memo[id] = details
	return details, nil
}

func derive(snap *graphstate.Snapshot, id string) (*Details, error) {
	node, ok := snap.Node(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}

	details := &Details{
		Node:      node,
		Incoming:  make([]*model.VisualEdge, 0),
		Outgoing:  make([]*model.VisualEdge, 0),
		Connected: make([]string, 0),
	}
	connected := make(map[string]struct{})
	for _, edge := range snap.Edges {
		if edge.Target == id {
			details.Incoming = append(details.Incoming, edge)
			connected[edge.Source] = struct{}{}
		}
		if edge.Source == id {
			details.Outgoing = append(details.Outgoing, edge)
			connected[edge.Target] = struct{}{}
		}
	}
	for other := range connected {
		details.Connected = append(details.Connected, other)
	}
	sort.Strings(details.Connected)
	return details, nil
}
