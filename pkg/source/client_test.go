package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ritzau/storygraph/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treeJSON = `{"data":[{"id":"root","storyId":"s1","parentChapterId":null,"ancestorIds":[],"depth":0,
"title":"Start","author":{"username":"ann","externalId":"u1"},
"createdAt":"2024-05-01T10:00:00Z","updatedAt":"2024-05-01T10:00:00Z",
"children":[{"id":"c1","storyId":"s1","parentChapterId":"root","ancestorIds":["root"],"depth":1,
"title":"Next","author":{"username":"bo","externalId":"u2"},"children":[]}]}]}`

func TestClientFetchForest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/stories/s1/tree", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(treeJSON))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/api/", WithToken("secret"), WithRateLimit(0))
	roots, err := client.FetchForest(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, roots, 1)
	assert.Equal(t, "root", roots[0].ID)
	assert.True(t, roots[0].IsRoot())
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "root", *roots[0].Children[0].ParentChapterID)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), roots[0].CreatedAt)
}

func TestClientFetchEmptyForest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":null}`))
	}))
	defer server.Close()

	roots, err := NewClient(server.URL).FetchForest(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   []error
	}{
		{"not found", http.StatusNotFound, "", []error{ErrFetch, ErrNotFound}},
		{"unauthorized", http.StatusUnauthorized, "", []error{ErrFetch, ErrUnauthorized}},
		{"forbidden", http.StatusForbidden, "", []error{ErrFetch, ErrUnauthorized}},
		{"rate limited", http.StatusTooManyRequests, "", []error{ErrFetch, ErrRateLimited}},
		{"server error", http.StatusInternalServerError, "boom", []error{ErrFetch}},
		{"bad json", http.StatusOK, "{not json", []error{ErrFetch}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).FetchForest(context.Background(), "s1")
			require.Error(t, err)
			for _, want := range tt.want {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestClientHonoursCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(server.URL).FetchForest(ctx, "s1")
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClientVote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chapters/c1/votes", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "down", body["direction"])

		_, _ = w.Write([]byte(`{"data":{"upvotes":3,"downvotes":2,"score":1}}`))
	}))
	defer server.Close()

	votes, err := NewClient(server.URL).Vote(context.Background(), "c1", model.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, model.Votes{Upvotes: 3, Downvotes: 2, Score: 1}, votes)
}
