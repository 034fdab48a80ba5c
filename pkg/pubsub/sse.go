package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/ritzau/storygraph/pkg/logging"
)

var (
	ErrClosed       = errors.New("publisher is closed")
	ErrUnknownTopic = errors.New("unknown topic")
)

// subscriberBuffer is the number of events a subscriber may fall behind
// before events are dropped for it
const subscriberBuffer = 100

// TopicConfig sets how much history a topic keeps for late subscribers
type TopicConfig struct {
	BufferSize int  // events kept; 0 keeps none
	ReplayAll  bool // replay the whole history instead of only the latest event
}

type topic struct {
	config  TopicConfig
	version int
	history []Event
	subs    map[*sseSubscription]struct{}
}

func newTopic(config TopicConfig) *topic {
	return &topic{config: config, subs: make(map[*sseSubscription]struct{})}
}

// replay returns what a new subscriber receives first. A positive after
// resumes a reconnecting client at the first event newer than after.
func (t *topic) replay(after int) []Event {
	if after > 0 {
		i := slices.IndexFunc(t.history, func(e Event) bool { return e.Version > after })
		if i < 0 {
			return nil
		}
		return slices.Clone(t.history[i:])
	}
	if t.config.ReplayAll || len(t.history) == 0 {
		return slices.Clone(t.history)
	}
	return slices.Clone(t.history[len(t.history)-1:])
}

func (t *topic) record(event Event) {
	if t.config.BufferSize <= 0 {
		return
	}
	t.history = append(t.history, event)
	if over := len(t.history) - t.config.BufferSize; over > 0 {
		t.history = slices.Delete(t.history, 0, over)
	}
}

// SSEPublisher fans events out to the subscribers of each topic and keeps a
// short per-topic history for clients that connect late or reconnect.
type SSEPublisher struct {
	mu     sync.Mutex
	topics map[string]*topic
	strict bool // only configured topics may be used
	closed bool
}

// NewSSEPublisher creates a publisher that accepts any topic name
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{topics: make(map[string]*topic)}
}

// NewServicePublisher creates a publisher limited to DefaultTopics
func NewServicePublisher() *SSEPublisher {
	p := NewSSEPublisher()
	for name, config := range DefaultTopics() {
		p.ConfigureTopic(name, config)
	}
	p.strict = true
	return p
}

// ConfigureTopic sets the history of a topic, registering it if needed
func (p *SSEPublisher) ConfigureTopic(name string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.topics[name]; ok {
		t.config = config
		return
	}
	p.topics[name] = newTopic(config)
}

func (p *SSEPublisher) topicLocked(name string) (*topic, error) {
	if t, ok := p.topics[name]; ok {
		return t, nil
	}
	if p.strict {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, name)
	}
	t := newTopic(TopicConfig{})
	p.topics[name] = t
	return t, nil
}

// Subscribe subscribes to a topic, replaying history per the topic config
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	return p.SubscribeAfter(ctx, topic, 0)
}

// SubscribeAfter subscribes to a topic starting after version lastSeen.
// lastSeen <= 0 behaves like Subscribe. The subscription closes with ctx.
func (p *SSEPublisher) SubscribeAfter(ctx context.Context, topic string, lastSeen int) (Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	t, err := p.topicLocked(topic)
	if err != nil {
		return nil, err
	}

	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, subscriberBuffer),
		done:      make(chan struct{}),
		publisher: p,
	}

	// Replayed under the lock so no live event can overtake history
	replay := t.replay(lastSeen)
	for _, event := range replay {
		if !sub.offer(event) {
			logging.Warn("history exceeds subscriber buffer", "topic", topic, "version", event.Version)
			break
		}
	}
	t.subs[sub] = struct{}{}
	logging.Debug("subscribed", "topic", topic, "replayed", len(replay), "lastSeen", lastSeen)

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Publish marshals data and delivers it to every subscriber of topic. A
// subscriber whose buffer is full misses the event; Publish never blocks.
func (p *SSEPublisher) Publish(topic string, eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	t, err := p.topicLocked(topic)
	if err != nil {
		return err
	}

	t.version++
	event := Event{Topic: topic, Type: eventType, Data: payload, Version: t.version}
	t.record(event)

	for sub := range t.subs {
		if !sub.offer(event) {
			logging.Warn("subscriber is not keeping up, dropping event", "topic", topic, "type", eventType, "version", event.Version)
		}
	}
	return nil
}

// Close ends every subscription. Later calls do nothing.
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, t := range p.topics {
		for sub := range t.subs {
			sub.closeLocked()
		}
		t.subs = make(map[*sseSubscription]struct{})
	}
	return nil
}

func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if sub.closed {
		return
	}
	if t, ok := p.topics[sub.topic]; ok {
		delete(t.subs, sub)
	}
	sub.closeLocked()
}

// sseSubscription state is guarded by the publisher's mutex
type sseSubscription struct {
	topic     string
	events    chan Event
	done      chan struct{}
	publisher *SSEPublisher
	closed    bool
}

func (s *sseSubscription) Topic() string {
	return s.topic
}

// Events is closed when the subscription ends
func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

func (s *sseSubscription) Close() error {
	s.publisher.unsubscribe(s)
	return nil
}

func (s *sseSubscription) offer(event Event) bool {
	select {
	case s.events <- event:
		return true
	default:
		return false
	}
}

func (s *sseSubscription) closeLocked() {
	s.closed = true
	close(s.events)
	close(s.done)
}

// WriteSSE writes event as one SSE message. The id line carries the topic
// version, which browsers send back as Last-Event-ID when they reconnect.
func WriteSSE(w io.Writer, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.Version, payload)
	return err
}
