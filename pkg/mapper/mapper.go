// Package mapper turns a backend chapter forest into visual nodes and edges.
package mapper

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ritzau/storygraph/pkg/logging"
	"github.com/ritzau/storygraph/pkg/model"
)

const (
	// DefaultHorizontalGap is the x distance between consecutive depths
	DefaultHorizontalGap = 300
	// DefaultVerticalGap is the y distance between chapters at the same depth
	DefaultVerticalGap = 150
	// WordsPerMinute is the reading speed behind the read time estimate
	WordsPerMinute = 200
)

// Chapter edges are drawn as quiet smooth-step connectors
var chapterEdgeStyle = model.EdgeStyle{Stroke: "#94a3b8", StrokeWidth: 2}

// Options tunes the placeholder placement and wires UI callbacks into node data
type Options struct {
	HorizontalGap float64
	VerticalGap   float64

	// Now is the reference time for the time-ago strings (defaults to time.Now)
	Now func() time.Time

	// OnComment is invoked with the chapter id when a node's comment action fires
	OnComment func(chapterID string)
}

func (o Options) withDefaults() Options {
	if o.HorizontalGap == 0 {
		o.HorizontalGap = DefaultHorizontalGap
	}
	if o.VerticalGap == 0 {
		o.VerticalGap = DefaultVerticalGap
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Map validates the forest and converts it to a graph. Nodes are emitted in
// depth-first pre-order. Each node is placed at x = depth * HorizontalGap and
// y = (n-1) * VerticalGap, where n counts the chapters already seen at that
// depth anywhere in the forest. Nothing is returned for a malformed forest.
func Map(roots []*model.ChapterNode, opts Options) (*model.Graph, error) {
	if err := ValidateForest(roots); err != nil {
		return nil, err
	}

	opts = opts.withDefaults()
	now := opts.Now()
	graph := model.NewGraph()

	// Shared by all roots so that subtrees stack instead of overlapping
	perDepth := make(map[int]int)

	for _, root := range roots {
		root.Walk(func(chapter, parent *model.ChapterNode) {
			row := perDepth[chapter.Depth]
			perDepth[chapter.Depth] = row + 1

			graph.AddNode(&model.VisualNode{
				ID:   chapter.ID,
				Type: model.NodeTypeChapter,
				Position: model.Position{
					X: float64(chapter.Depth) * opts.HorizontalGap,
					Y: float64(row) * opts.VerticalGap,
				},
				Data: nodeData(chapter, now, opts.OnComment),
			})

			if parent != nil {
				graph.AddEdge(chapterEdge(parent, chapter))
			}
		})
	}

	logging.Debug("mapped chapter forest", "roots", len(roots), "nodes", len(graph.Nodes), "edges", len(graph.Edges))
	return graph, nil
}

func chapterEdge(parent, child *model.ChapterNode) *model.VisualEdge {
	return &model.VisualEdge{
		ID:     model.EdgeID(parent.ID, child.ID),
		Source: parent.ID,
		Target: child.ID,
		Type:   model.EdgeTypeSmoothStep,
		Style:  chapterEdgeStyle,
		Data:   model.EdgeData{StoryID: child.StoryID},
	}
}

func nodeData(chapter *model.ChapterNode, now time.Time, onComment func(string)) *model.NodeData {
	data := &model.NodeData{
		ChapterID:   chapter.ID,
		StoryID:     chapter.StoryID,
		Title:       chapter.Title,
		Status:      chapter.Status,
		Version:     chapter.Version,
		Depth:       chapter.Depth,
		Author:      chapter.Author,
		Votes:       chapter.Votes,
		Stats:       chapter.Stats,
		ReportCount: chapter.ReportCount,
		IsFlagged:   chapter.IsFlagged,
		PullRequest: chapter.PullRequest,
		TimeAgo:     TimeAgo(chapter.CreatedAt, now),
		ReadTime:    ReadTime(chapter.Title),
		HasChildren: len(chapter.Children) > 0,
	}
	if onComment != nil {
		id := chapter.ID
		data.OnComment = func() { onComment(id) }
	}
	return data
}

// ReadTime estimates the reading time in minutes, never less than one
func ReadTime(text string) int {
	minutes := len(strings.Fields(text)) / WordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}

// TimeAgo renders t relative to now, e.g. "3 hours ago"
func TimeAgo(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.After(now) {
		// Clock skew between backend and client; a chapter cannot be from the future
		t = now
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
