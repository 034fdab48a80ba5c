package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/ritzau/storygraph/pkg/mapper"
	"github.com/ritzau/storygraph/pkg/model"
)

// PrintStoryTree prints a story's chapter forest as an indented, coloured tree
func PrintStoryTree(w io.Writer, storyID string, roots []*model.ChapterNode, now time.Time) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	faint := color.New(color.Faint)

	// Header
	bold.Fprintf(w, "Story %s\n", storyID)
	bold.Fprintln(w, strings.Repeat("=", len("Story ")+len(storyID)))

	total := model.CountForest(roots)
	if total == 0 {
		yellow.Fprintln(w, "No chapters yet")
		return
	}
	fmt.Fprintf(w, "%s in %s\n\n",
		plural(total, "chapter", "chapters"),
		plural(len(roots), "root", "roots"))

	for _, root := range roots {
		root.Walk(func(chapter, _ *model.ChapterNode) {
			indent := strings.Repeat("  ", chapter.Depth)
			branch := "├─"
			if chapter.Depth == 0 {
				branch = "●"
			}

			fmt.Fprintf(w, "%s%s ", indent, branch)
			statusColor(chapter.Status, green, yellow, red).Fprint(w, chapter.Title)
			cyan.Fprintf(w, " by %s", chapter.Author.Username)
			faint.Fprintf(w, " [%s]", chapter.ID)
			if chapter.IsFlagged || chapter.ReportCount > 0 {
				red.Fprintf(w, " ⚑ %s", plural(chapter.ReportCount, "report", "reports"))
			}
			if pr := chapter.PullRequest; pr != nil {
				yellow.Fprintf(w, " PR %s (%s)", pr.ID, pr.Status)
			}
			fmt.Fprintln(w)

			meta := []string{
				fmt.Sprintf("▲ %s ▼ %s", humanize.Comma(int64(chapter.Votes.Upvotes)), humanize.Comma(int64(chapter.Votes.Downvotes))),
				plural(chapter.Stats.Reads, "read", "reads"),
				fmt.Sprintf("%d min read", mapper.ReadTime(chapter.Title)),
			}
			if ago := mapper.TimeAgo(chapter.CreatedAt, now); ago != "" {
				meta = append(meta, ago)
			}
			faint.Fprintf(w, "%s   %s\n", indent, strings.Join(meta, " · "))
		})
	}
}

func statusColor(status model.ChapterStatus, green, yellow, red *color.Color) *color.Color {
	switch status {
	case model.ChapterStatusPublished:
		return green
	case model.ChapterStatusPending, model.ChapterStatusDraft:
		return yellow
	case model.ChapterStatusRejected:
		return red
	}
	return color.New(color.Reset)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return humanize.Comma(int64(n)) + " " + many
}
