package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/ritzau/storygraph/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storyJSON = `{"data": [{
  "id": "root", "storyId": "dragons", "parentChapterId": null, "ancestorIds": [], "depth": 0,
  "title": "The Egg", "author": {"username": "ada"},
  "children": [
    {"id": "a", "storyId": "dragons", "parentChapterId": "root", "ancestorIds": ["root"], "depth": 1,
     "title": "Hatching", "author": {"username": "ada"}, "children": []},
    {"id": "b", "storyId": "dragons", "parentChapterId": "root", "ancestorIds": ["root"], "depth": 1,
     "title": "Stolen", "author": {"username": "bo"}, "children": []}
  ]
}]}`

func library(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dragons.json"), []byte(storyJSON), 0o644))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	missing := filepath.Join(t.TempDir(), "missing")
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--config", missing+".toml", "--env-file", missing+".env"))
	err := cmd.Execute()
	return out.String(), err
}

func TestLayoutCommand(t *testing.T) {
	out, err := run(t, "layout", "--library", library(t), "--direction", "LR")
	require.NoError(t, err)

	var snap struct {
		Version   int    `json:"version"`
		Direction string `json:"direction"`
		Nodes     []struct {
			ID             string `json:"id"`
			SourcePosition string `json:"sourcePosition"`
		} `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &snap), out)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, "LR", snap.Direction)
	require.Len(t, snap.Nodes, 3)
	assert.Len(t, snap.Edges, 2)
	for _, n := range snap.Nodes {
		assert.Equal(t, "right", n.SourcePosition)
	}
}

func TestLayoutCommandView(t *testing.T) {
	out, err := run(t, "layout", "--library", library(t), "--view")
	require.NoError(t, err)
	assert.Contains(t, out, `"byline"`)
	assert.Contains(t, out, `"path": "smoothstep"`)
}

func TestStoriesCommand(t *testing.T) {
	color.NoColor = true
	out, err := run(t, "stories", "--library", library(t))
	require.NoError(t, err)
	assert.Contains(t, out, "dragons")
}

func TestTreeCommand(t *testing.T) {
	color.NoColor = true
	out, err := run(t, "tree", "--library", library(t))
	require.NoError(t, err)
	assert.Contains(t, out, "The Egg")
	assert.Contains(t, out, "Stolen")
}

func TestMissingSource(t *testing.T) {
	_, err := run(t, "layout")
	assert.Error(t, err)
}

func TestResolveStory(t *testing.T) {
	dir := library(t)
	_, _, lib := storySource(&config.Config{Library: dir})

	id, err := resolveStory(&config.Config{Library: dir}, lib)
	require.NoError(t, err)
	assert.Equal(t, "dragons", id)

	id, err = resolveStory(&config.Config{Story: "pirates"}, lib)
	require.NoError(t, err)
	assert.Equal(t, "pirates", id)

	_, err = resolveStory(&config.Config{API: "http://example.test"}, nil)
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))
	_, _, emptyLib := storySource(&config.Config{Library: empty})
	_, err = resolveStory(&config.Config{Library: empty}, emptyLib)
	assert.Error(t, err)
}
