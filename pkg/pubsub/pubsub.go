package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by the story graph service
const (
	TopicGraph      = "graph"       // graph diffs after every controller transition
	TopicLoadStatus = "load_status" // loader phases
	TopicNotices    = "notices"     // non-blocking user notices, e.g. rejected connections
)

// Event is one message on a topic. Version counts the events of the topic
// and doubles as the SSE event id.
type Event struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"` // e.g. "diff", "fetching", "connect_rejected"
	Data    json.RawMessage `json:"data"`
	Version int             `json:"version"`
}

// Subscription delivers the events of one topic until closed
type Subscription interface {
	Topic() string
	Events() <-chan Event
	Close() error
}

// Publisher is the fan-out the web layer streams from
type Publisher interface {
	// Subscribe closes the subscription when ctx is done
	Subscribe(ctx context.Context, topic string) (Subscription, error)
	// SubscribeAfter resumes a client that last saw version lastSeen
	SubscribeAfter(ctx context.Context, topic string, lastSeen int) (Subscription, error)
	Publish(topic string, eventType string, data any) error
	Close() error
}

// LoadStatus represents the state of loading a story into the graph
type LoadStatus struct {
	State   string `json:"state"`   // fetching, mapping, layout, ready, error
	StoryID string `json:"storyId"` // Story being loaded
	Message string `json:"message"` // Human-readable status message
	Step    int    `json:"step"`    // Current step number (1-based)
	Total   int    `json:"total"`   // Total number of steps
}

// GraphUpdate summarizes a graph transition alongside its diff
type GraphUpdate struct {
	Version int    `json:"version"`
	Hash    string `json:"hash"`
	Reason  string `json:"reason"` // mount, nodes, edges, connect, relayout
	Nodes   int    `json:"nodes"`
	Edges   int    `json:"edges"`
	Diff    any    `json:"diff"`
}

// Notice is a lightweight message for the user that never blocks an interaction
type Notice struct {
	Kind    string `json:"kind"` // e.g. connect_rejected, load_failed
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
	Target  string `json:"target,omitempty"`
}

// DefaultTopics are the buffering settings of the service topics
func DefaultTopics() map[string]TopicConfig {
	return map[string]TopicConfig{
		TopicGraph:      {BufferSize: 5, ReplayAll: false},
		TopicLoadStatus: {BufferSize: 10, ReplayAll: false},
		TopicNotices:    {BufferSize: 20, ReplayAll: true},
	}
}
