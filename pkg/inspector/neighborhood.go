package inspector

import (
	"fmt"

	"github.com/ritzau/storygraph/pkg/graphstate"
)

// queueEntry is a node in the BFS queue
type queueEntry struct {
	nodeID   string
	distance int
}

// Neighborhood returns the undirected hop distance from id to every node
// within hops. A negative hops value does not limit the search. Edges with
// an endpoint outside the snapshot are ignored.
func Neighborhood(snap *graphstate.Snapshot, id string, hops int) (map[string]int, error) {
	if _, ok := snap.Node(id); !ok {
		return nil, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
	}

	adjacency := buildAdjacency(snap)
	distances := map[string]int{id: 0}
	queue := []queueEntry{{nodeID: id}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if hops >= 0 && current.distance >= hops {
			continue
		}

		for _, neighbor := range adjacency[current.nodeID] {
			if _, seen := distances[neighbor]; seen {
				continue
			}
			distances[neighbor] = current.distance + 1
			queue = append(queue, queueEntry{nodeID: neighbor, distance: current.distance + 1})
		}
	}
	return distances, nil
}

// buildAdjacency creates an undirected adjacency list over the snapshot's nodes
func buildAdjacency(snap *graphstate.Snapshot) map[string][]string {
	present := make(map[string]bool, len(snap.Nodes))
	for _, node := range snap.Nodes {
		present[node.ID] = true
	}

	adjacency := make(map[string][]string)
	for _, edge := range snap.Edges {
		if !present[edge.Source] || !present[edge.Target] {
			continue
		}
		adjacency[edge.Source] = append(adjacency[edge.Source], edge.Target)
		adjacency[edge.Target] = append(adjacency[edge.Target], edge.Source)
	}
	return adjacency
}
