package render

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/ritzau/storygraph/pkg/model"
)

// Edge path styles understood by the rendering surface
const (
	PathSmoothStep = "smoothstep"
	PathBezier     = "bezier"
)

// NodeView is the display form of a node
type NodeView struct {
	ID        string         `json:"id"`
	Type      model.NodeType `json:"type"`
	Position  model.Position `json:"position"`
	Selected  bool           `json:"selected,omitempty"`
	Title     string         `json:"title"`
	Byline    string         `json:"byline,omitempty"`
	Status    string         `json:"status,omitempty"`
	Meta      string         `json:"meta,omitempty"`  // time-ago and read time
	Stats     string         `json:"stats,omitempty"` // votes, reads, comments, branches
	Badges    []string       `json:"badges,omitempty"`
	AvatarURL string         `json:"avatarUrl,omitempty"`
	Actions   []ActionLink   `json:"actions,omitempty"`
}

// ActionLink is an action offered on a node view
type ActionLink struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Route string `json:"route,omitempty"`
}

// EdgeView is the display form of an edge
type EdgeView struct {
	ID          string  `json:"id"`
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	Path        string  `json:"path"`
	Animated    bool    `json:"animated,omitempty"`
	Selected    bool    `json:"selected,omitempty"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

// ChapterRenderer renders chapter nodes with their social and moderation data
type ChapterRenderer struct{}

func (ChapterRenderer) RenderNode(node *model.VisualNode) NodeView {
	view := renderPlainNode(node)
	data := node.Data
	if data == nil {
		return view
	}

	view.Title = data.Title
	if data.Author.Username != "" {
		view.Byline = "by " + data.Author.Username
	}
	view.AvatarURL = data.Author.AvatarURL
	view.Status = string(data.Status)

	meta := []string{fmt.Sprintf("%d min read", data.ReadTime)}
	if data.TimeAgo != "" {
		meta = append([]string{data.TimeAgo}, meta...)
	}
	view.Meta = strings.Join(meta, " · ")
	view.Stats = StatsLine(data)

	if data.IsFlagged {
		view.Badges = append(view.Badges, "flagged")
	}
	if data.ReportCount > 0 {
		view.Badges = append(view.Badges, humanize.Comma(int64(data.ReportCount))+" "+plural(data.ReportCount, "report", "reports"))
	}
	if pr := data.PullRequest; pr != nil {
		view.Badges = append(view.Badges, fmt.Sprintf("PR %s (%s)", pr.ID, pr.Status))
	}
	if data.HasChildren {
		view.Badges = append(view.Badges, humanize.Comma(int64(data.Stats.ChildBranches))+" "+plural(data.Stats.ChildBranches, "branch", "branches"))
	}

	view.Actions = []ActionLink{
		{Name: ActionOpenEditor, Label: "Edit", Route: EditorRoute(data.StoryID, node.ID)},
		{Name: ActionVote, Label: "Vote"},
	}
	if data.OnComment != nil {
		view.Actions = append(view.Actions, ActionLink{Name: ActionComment, Label: "Comment"})
	}
	return view
}

// StatsLine formats the vote and engagement counters of a chapter
func StatsLine(data *model.NodeData) string {
	return fmt.Sprintf("▲ %s ▼ %s (%+d) · %s %s · %s %s",
		humanize.Comma(int64(data.Votes.Upvotes)),
		humanize.Comma(int64(data.Votes.Downvotes)),
		data.Votes.Score,
		humanize.Comma(int64(data.Stats.Reads)), plural(data.Stats.Reads, "read", "reads"),
		humanize.Comma(int64(data.Stats.Comments)), plural(data.Stats.Comments, "comment", "comments"),
	)
}

func renderPlainNode(node *model.VisualNode) NodeView {
	return NodeView{
		ID:       node.ID,
		Type:     node.Type,
		Position: node.Position,
		Selected: node.Selected,
		Title:    node.ID,
	}
}

func renderEdge(path string) func(edge *model.VisualEdge) EdgeView {
	return func(edge *model.VisualEdge) EdgeView {
		return EdgeView{
			ID:          edge.ID,
			Source:      edge.Source,
			Target:      edge.Target,
			Path:        path,
			Animated:    edge.Animated,
			Selected:    edge.Selected,
			Stroke:      edge.Style.Stroke,
			StrokeWidth: edge.Style.StrokeWidth,
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
