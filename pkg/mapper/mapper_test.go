package mapper

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ritzau/storygraph/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func chapter(id string, children ...*model.ChapterNode) *model.ChapterNode {
	return &model.ChapterNode{
		ID:        id,
		StoryID:   "story-1",
		Title:     "Chapter " + id,
		Status:    model.ChapterStatus("published"),
		Author:    model.Author{Username: "writer"},
		Children:  children,
		CreatedAt: clock.Add(-3 * time.Hour),
	}
}

// tree fills in parent ids, depth and ancestry below root
func tree(root *model.ChapterNode) *model.ChapterNode {
	var fix func(node *model.ChapterNode, ancestors []string)
	fix = func(node *model.ChapterNode, ancestors []string) {
		node.Depth = len(ancestors)
		node.AncestorIDs = append([]string(nil), ancestors...)
		if len(ancestors) > 0 {
			parent := ancestors[len(ancestors)-1]
			node.ParentChapterID = &parent
		}
		for _, child := range node.Children {
			fix(child, append(ancestors, node.ID))
		}
	}
	fix(root, nil)
	return root
}

func fixedClock() Options {
	return Options{Now: func() time.Time { return clock }}
}

func TestMapRootWithTwoChildren(t *testing.T) {
	roots := []*model.ChapterNode{tree(chapter("root", chapter("a"), chapter("b")))}

	g, err := Map(roots, fixedClock())
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)

	ids := []string{g.Nodes[0].ID, g.Nodes[1].ID, g.Nodes[2].ID}
	assert.Equal(t, []string{"root", "a", "b"}, ids)
	assert.Equal(t, model.Position{X: 0, Y: 0}, g.Nodes[0].Position)
	assert.Equal(t, model.Position{X: 300, Y: 0}, g.Nodes[1].Position)
	assert.Equal(t, model.Position{X: 300, Y: 150}, g.Nodes[2].Position)

	for _, e := range g.Edges {
		assert.Equal(t, "root", e.Source)
		assert.Equal(t, model.EdgeID("root", e.Target), e.ID)
		assert.Equal(t, model.EdgeTypeSmoothStep, e.Type)
		assert.Equal(t, "story-1", e.Data.StoryID)
		assert.False(t, e.Animated)
	}
}

func TestMapForestSharesDepthCounter(t *testing.T) {
	roots := []*model.ChapterNode{
		tree(chapter("r1", chapter("a"))),
		tree(chapter("r2", chapter("b", chapter("c")))),
	}

	g, err := Map(roots, Options{HorizontalGap: 100, VerticalGap: 10, Now: fixedClock().Now})
	require.NoError(t, err)

	positions := make(map[string]model.Position)
	for _, n := range g.Nodes {
		positions[n.ID] = n.Position
	}
	assert.Equal(t, model.Position{X: 0, Y: 0}, positions["r1"])
	assert.Equal(t, model.Position{X: 0, Y: 10}, positions["r2"])
	assert.Equal(t, model.Position{X: 100, Y: 0}, positions["a"])
	assert.Equal(t, model.Position{X: 100, Y: 10}, positions["b"])
	assert.Equal(t, model.Position{X: 200, Y: 0}, positions["c"])

	// One edge per non-root chapter
	assert.Len(t, g.Edges, len(g.Nodes)-len(roots))
}

func TestMapEmptyForest(t *testing.T) {
	g, err := Map(nil, Options{})
	require.NoError(t, err)
	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Edges)
	assert.Empty(t, g.Nodes)
	assert.Empty(t, g.Edges)
}

func TestMapNodeData(t *testing.T) {
	root := chapter("root", chapter("a"))
	root.Votes = model.Votes{Upvotes: 10, Downvotes: 2, Score: 8}
	root.Stats = model.Stats{Reads: 1200, Comments: 3, ChildBranches: 1}
	root.PullRequest = &model.PullRequestRef{ID: "pr-1", Status: "open"}

	var commented []string
	opts := fixedClock()
	opts.OnComment = func(id string) { commented = append(commented, id) }

	g, err := Map([]*model.ChapterNode{tree(root)}, opts)
	require.NoError(t, err)

	data := g.Nodes[0].Data
	assert.Equal(t, "root", data.ChapterID)
	assert.Equal(t, 0, data.Depth)
	assert.Equal(t, "3 hours ago", data.TimeAgo)
	assert.Equal(t, 1, data.ReadTime)
	assert.True(t, data.HasChildren)
	assert.Equal(t, 8, data.Votes.Score)
	assert.Equal(t, "pr-1", data.PullRequest.ID)
	assert.Equal(t, 1, g.Nodes[1].Data.Depth)
	assert.False(t, g.Nodes[1].Data.HasChildren)

	require.NotNil(t, data.OnComment)
	data.OnComment()
	g.Nodes[1].Data.OnComment()
	assert.Equal(t, []string{"root", "a"}, commented)
}

func TestMapWithoutCommentHandler(t *testing.T) {
	g, err := Map([]*model.ChapterNode{tree(chapter("root"))}, fixedClock())
	require.NoError(t, err)
	assert.Nil(t, g.Nodes[0].Data.OnComment)
}

func TestMapRejectsMalformedForest(t *testing.T) {
	wrongDepth := tree(chapter("root", chapter("a")))
	wrongDepth.Children[0].Depth = 3

	orphanRoot := tree(chapter("root"))
	other := "elsewhere"
	orphanRoot.ParentChapterID = &other

	duplicate := tree(chapter("root", chapter("a"), chapter("a")))

	missingTitle := tree(chapter("root"))
	missingTitle.Title = ""

	nullChild := tree(chapter("root"))
	nullChild.Children = []*model.ChapterNode{nil}

	tests := []struct {
		name  string
		root  *model.ChapterNode
		field string
	}{
		{"depth", wrongDepth, "depth"},
		{"root with parent", orphanRoot, "parentChapterId"},
		{"duplicate id", duplicate, "id"},
		{"missing title", missingTitle, "title"},
		{"null child", nullChild, "children"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Map([]*model.ChapterNode{tt.root}, fixedClock())
			assert.Nil(t, g)
			require.ErrorIs(t, err, ErrMalformedForest)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			var fields []string
			for _, issue := range verr.Issues {
				fields = append(fields, issue.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestReadTime(t *testing.T) {
	assert.Equal(t, 1, ReadTime(""))
	assert.Equal(t, 1, ReadTime("a short title"))
	assert.Equal(t, 2, ReadTime(strings.Repeat("word ", 2*WordsPerMinute)))
}

func TestTimeAgo(t *testing.T) {
	assert.Equal(t, "", TimeAgo(time.Time{}, clock))
	assert.Equal(t, "3 hours ago", TimeAgo(clock.Add(-3*time.Hour), clock))
	assert.Equal(t, "now", TimeAgo(clock.Add(time.Hour), clock))
}
