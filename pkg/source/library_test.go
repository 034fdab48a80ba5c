package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storyYAML = `
- id: root
  storyId: pirates
  parentChapterId: null
  ancestorIds: []
  depth: 0
  title: Set sail
  author:
    username: ann
  createdAt: 2024-05-01T10:00:00Z
  children:
    - id: mutiny
      storyId: pirates
      parentChapterId: root
      ancestorIds: [root]
      depth: 1
      title: Mutiny
      author:
        username: bo
`

func library(t *testing.T) *Library {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"dragons.json": treeJSON,
		"bare.json":    `[{"id":"only","storyId":"bare","depth":0,"title":"Alone","author":{"username":"x"}}]`,
		"pirates.yaml": storyYAML,
		"envelope.yml": "data:\n  - id: e\n    storyId: envelope\n    depth: 0\n    title: E\n    author: {username: y}\n",
		"empty.yaml":   "",
		"broken.json":  "{",
		"notes.txt":    "not a story",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return NewLibrary(dir)
}

func TestLibraryStories(t *testing.T) {
	lib := library(t)

	stories, err := lib.Stories()
	require.NoError(t, err)

	var ids []string
	for _, s := range stories {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"bare", "broken", "dragons", "empty", "envelope", "pirates"}, ids)
}

func TestLibraryFetchForest(t *testing.T) {
	lib := library(t)
	ctx := context.Background()

	dragons, err := lib.FetchForest(ctx, "dragons")
	require.NoError(t, err)
	require.Len(t, dragons, 1)
	assert.Len(t, dragons[0].Children, 1)

	bare, err := lib.FetchForest(ctx, "bare")
	require.NoError(t, err)
	require.Len(t, bare, 1)
	assert.Equal(t, "only", bare[0].ID)

	pirates, err := lib.FetchForest(ctx, "pirates")
	require.NoError(t, err)
	require.Len(t, pirates, 1)
	assert.Equal(t, "Set sail", pirates[0].Title)
	assert.Nil(t, pirates[0].ParentChapterID)
	require.Len(t, pirates[0].Children, 1)
	assert.Equal(t, []string{"root"}, pirates[0].Children[0].AncestorIDs)
	assert.Equal(t, 2024, pirates[0].CreatedAt.Year())

	envelope, err := lib.FetchForest(ctx, "envelope")
	require.NoError(t, err)
	require.Len(t, envelope, 1)

	empty, err := lib.FetchForest(ctx, "empty")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestLibraryErrors(t *testing.T) {
	lib := library(t)
	ctx := context.Background()

	_, err := lib.FetchForest(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = lib.FetchForest(ctx, "../dragons")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = lib.FetchForest(ctx, "broken")
	assert.ErrorIs(t, err, ErrFetch)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = lib.FetchForest(cancelled, "dragons")
	assert.ErrorIs(t, err, context.Canceled)
}
