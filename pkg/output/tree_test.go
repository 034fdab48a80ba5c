package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/ritzau/storygraph/pkg/model"
)

func TestPrintStoryTree(t *testing.T) {
	color.NoColor = true

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rootID := "root"
	roots := []*model.ChapterNode{{
		ID: rootID, StoryID: "s1", Title: "Once upon a time", Status: model.ChapterStatusPublished,
		Author:    model.Author{Username: "ann"},
		Votes:     model.Votes{Upvotes: 1500},
		Stats:     model.Stats{Reads: 1},
		CreatedAt: now.Add(-2 * time.Hour),
		Children: []*model.ChapterNode{{
			ID: "child", StoryID: "s1", ParentChapterID: &rootID, AncestorIDs: []string{rootID}, Depth: 1,
			Title: "A turn", Author: model.Author{Username: "bo"}, ReportCount: 2,
			PullRequest: &model.PullRequestRef{ID: "pr-1", Status: "open"},
		}},
	}}

	var buf bytes.Buffer
	PrintStoryTree(&buf, "s1", roots, now)
	out := buf.String()

	for _, want := range []string{
		"Story s1\n",
		"2 chapters in 1 root",
		"● Once upon a time by ann [root]",
		"▲ 1,500 ▼ 0 · 1 read · 1 min read · 2 hours ago",
		"  ├─ A turn by bo [child] ⚑ 2 reports PR pr-1 (open)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintStoryTreeEmpty(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	PrintStoryTree(&buf, "empty", nil, time.Now())
	if !strings.Contains(buf.String(), "No chapters yet") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
