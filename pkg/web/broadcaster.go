package web

import (
	"github.com/ritzau/storygraph/pkg/graphstate"
	"github.com/ritzau/storygraph/pkg/logging"
	"github.com/ritzau/storygraph/pkg/pubsub"
)

// Notice kinds published besides the controller's own
const (
	NoticeCommentRequested = "comment_requested"
	NoticeLoadFailed       = "load_failed"
	NoticeStoryRemoved     = "story_removed"
)

// Broadcaster publishes controller transitions, notices and load progress
// to the SSE topics
type Broadcaster struct {
	publisher pubsub.Publisher
}

// NewBroadcaster creates a broadcaster on publisher
func NewBroadcaster(publisher pubsub.Publisher) *Broadcaster {
	return &Broadcaster{publisher: publisher}
}

// GraphChanged publishes the diff of a transition on the graph topic
func (b *Broadcaster) GraphChanged(t graphstate.Transition) {
	diff := graphstate.ComputeDiff(t.Previous, t.Current)
	update := pubsub.GraphUpdate{
		Version: t.Current.Version,
		Hash:    t.Current.Hash(),
		Reason:  t.Reason,
		Nodes:   len(t.Current.Nodes),
		Edges:   len(t.Current.Edges),
		Diff:    diff,
	}
	eventType := "diff"
	if diff.FullGraph {
		eventType = "full"
	}
	b.publish(pubsub.TopicGraph, eventType, update)
}

// Noticed publishes a controller notice
func (b *Broadcaster) Noticed(n graphstate.Notice) {
	b.Notice(pubsub.Notice{Kind: n.Kind, Message: n.Message, Source: n.Source, Target: n.Target})
}

// Notice publishes a notice on the notices topic
func (b *Broadcaster) Notice(n pubsub.Notice) {
	b.publish(pubsub.TopicNotices, n.Kind, n)
}

// CommentRequested asks clients to open the comment panel of a chapter
func (b *Broadcaster) CommentRequested(chapterID string) {
	b.Notice(pubsub.Notice{Kind: NoticeCommentRequested, Message: "open comments", Target: chapterID})
}

// PublishLoadStatus publishes a loader phase
func (b *Broadcaster) PublishLoadStatus(state, storyID, message string, step, total int) {
	b.publish(pubsub.TopicLoadStatus, state, pubsub.LoadStatus{
		State:   state,
		StoryID: storyID,
		Message: message,
		Step:    step,
		Total:   total,
	})
}

func (b *Broadcaster) publish(topic, eventType string, data any) {
	if err := b.publisher.Publish(topic, eventType, data); err != nil {
		logging.Warn("failed to publish event", "topic", topic, "type", eventType, "error", err)
	}
}
