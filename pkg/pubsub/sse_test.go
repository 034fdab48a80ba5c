package pubsub

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func versions(t *testing.T, sub Subscription, n int) []int {
	t.Helper()
	var got []int
	for len(got) < n {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				t.Fatalf("subscription closed after %d events", len(got))
			}
			got = append(got, event.Version)
		case <-time.After(200 * time.Millisecond):
			t.Fatalf("timeout after %d of %d events", len(got), n)
		}
	}
	return got
}

func expectNothing(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events():
		t.Errorf("unexpected event version %d", event.Version)
	case <-time.After(30 * time.Millisecond):
	}
}

func publishN(t *testing.T, pub *SSEPublisher, topic string, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		if err := pub.Publish(topic, "event", map[string]int{"n": i}); err != nil {
			t.Fatalf("Publish(%d) error = %v", i, err)
		}
	}
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReplayPolicies(t *testing.T) {
	tests := []struct {
		name   string
		config TopicConfig
		want   []int
	}{
		{"replay all keeps the last buffer", TopicConfig{BufferSize: 3, ReplayAll: true}, []int{3, 4, 5}},
		{"replay last", TopicConfig{BufferSize: 3}, []int{5}},
		{"no buffer", TopicConfig{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := NewSSEPublisher()
			defer pub.Close()
			pub.ConfigureTopic("test", tt.config)
			publishN(t, pub, "test", 5)

			sub, err := pub.Subscribe(context.Background(), "test")
			if err != nil {
				t.Fatalf("Subscribe() error = %v", err)
			}
			defer sub.Close()

			if got := versions(t, sub, len(tt.want)); !equal(got, tt.want) {
				t.Errorf("replayed %v, want %v", got, tt.want)
			}
			expectNothing(t, sub)
		})
	}
}

func TestLiveEventsFollowReplay(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()
	pub.ConfigureTopic("test", TopicConfig{BufferSize: 2})
	publishN(t, pub, "test", 2)

	sub, err := pub.Subscribe(context.Background(), "test")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	publishN(t, pub, "test", 2)

	if got := versions(t, sub, 3); !equal(got, []int{2, 3, 4}) {
		t.Errorf("got %v, want [2 3 4]", got)
	}
}

func TestSubscribeAfter(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()
	pub.ConfigureTopic("test", TopicConfig{BufferSize: 5})
	publishN(t, pub, "test", 5)

	sub, err := pub.SubscribeAfter(context.Background(), "test", 3)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	if got := versions(t, sub, 2); !equal(got, []int{4, 5}) {
		t.Errorf("resumed with %v, want [4 5]", got)
	}

	// Nothing newer than the client's last event
	caughtUp, err := pub.SubscribeAfter(context.Background(), "test", 9)
	if err != nil {
		t.Fatal(err)
	}
	defer caughtUp.Close()
	expectNothing(t, caughtUp)
}

func TestStrictTopics(t *testing.T) {
	pub := NewServicePublisher()
	defer pub.Close()

	if _, err := pub.Subscribe(context.Background(), "gossip"); !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Subscribe(gossip) error = %v, want ErrUnknownTopic", err)
	}
	if err := pub.Publish("gossip", "x", nil); !errors.Is(err, ErrUnknownTopic) {
		t.Errorf("Publish(gossip) error = %v, want ErrUnknownTopic", err)
	}
	for topic := range DefaultTopics() {
		if err := pub.Publish(topic, "x", nil); err != nil {
			t.Errorf("Publish(%s) error = %v", topic, err)
		}
	}
}

func TestServicePublisherTopics(t *testing.T) {
	pub := NewServicePublisher()
	defer pub.Close()

	for i := 1; i <= 3; i++ {
		if err := pub.Publish(TopicNotices, "connect_rejected", Notice{Kind: "connect_rejected", Message: "self"}); err != nil {
			t.Fatal(err)
		}
		if err := pub.Publish(TopicLoadStatus, "fetching", LoadStatus{State: "fetching", Step: i, Total: 4}); err != nil {
			t.Fatal(err)
		}
	}

	notices, err := pub.Subscribe(context.Background(), TopicNotices)
	if err != nil {
		t.Fatal(err)
	}
	if got := versions(t, notices, 3); !equal(got, []int{1, 2, 3}) {
		t.Errorf("notices replayed %v, want all three", got)
	}

	status, err := pub.Subscribe(context.Background(), TopicLoadStatus)
	if err != nil {
		t.Fatal(err)
	}
	if got := versions(t, status, 1); got[0] != 3 {
		t.Errorf("status replayed version %d, want only the latest (3)", got[0])
	}
}

func TestContextCancelEndsSubscription(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := pub.Subscribe(ctx, "test")
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Error("expected the events channel to close, got an event")
		}
	case <-time.After(time.Second):
		t.Fatal("events channel not closed after cancel")
	}

	// Publishing to a topic without subscribers still works
	if err := pub.Publish("test", "event", nil); err != nil {
		t.Errorf("Publish() after unsubscribe error = %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	sub, err := pub.Subscribe(context.Background(), "test")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		publishN(t, pub, "test", subscriberBuffer+20)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if n := len(sub.Events()); n != subscriberBuffer {
		t.Errorf("buffered %d events, want %d", n, subscriberBuffer)
	}
}

func TestPublishRejectsUnmarshalableData(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()
	pub.ConfigureTopic("test", TopicConfig{BufferSize: 1})

	if err := pub.Publish("test", "bad", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
	publishN(t, pub, "test", 1)

	sub, err := pub.Subscribe(context.Background(), "test")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()
	if got := versions(t, sub, 1); got[0] != 1 {
		t.Errorf("failed publish consumed a version: got %d", got[0])
	}
}

func TestCloseAfterPublisherClose(t *testing.T) {
	pub := NewSSEPublisher()

	sub, err := pub.Subscribe(context.Background(), "test")
	if err != nil {
		t.Fatal(err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := <-sub.Events(); ok {
		t.Error("expected events channel to be closed")
	}
	if err := sub.Close(); err != nil {
		t.Errorf("subscription Close() after publisher Close() error = %v", err)
	}
	if err := pub.Publish("test", "event", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Publish() on closed publisher error = %v, want ErrClosed", err)
	}
	if _, err := pub.Subscribe(context.Background(), "test"); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe() on closed publisher error = %v, want ErrClosed", err)
	}
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	event := Event{Topic: TopicGraph, Type: "diff", Data: []byte(`{"version":7}`), Version: 7}
	if err := WriteSSE(&buf, event); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "id: 7\ndata: {") || !strings.HasSuffix(out, "}\n\n") {
		t.Errorf("unexpected SSE framing %q", out)
	}
	if !strings.Contains(out, `"type":"diff"`) {
		t.Errorf("event type missing from %q", out)
	}
}
