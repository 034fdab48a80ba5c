package model

import (
	"fmt"
	"time"
)

// ChapterStatus is the editorial state of a chapter as reported by the backend
type ChapterStatus string

const (
	ChapterStatusDraft     ChapterStatus = "draft"
	ChapterStatusPublished ChapterStatus = "published"
	ChapterStatusPending   ChapterStatus = "pending_review"
	ChapterStatusRejected  ChapterStatus = "rejected"
)

// Author describes the writer of a chapter
type Author struct {
	Username   string `json:"username" yaml:"username" validate:"required"`
	ExternalID string `json:"externalId" yaml:"externalId"` // ID at the auth provider
	AvatarURL  string `json:"avatarUrl,omitempty" yaml:"avatarUrl,omitempty"`
}

// Votes is the vote tally of a chapter
type Votes struct {
	Upvotes   int `json:"upvotes" yaml:"upvotes" validate:"min=0"`
	Downvotes int `json:"downvotes" yaml:"downvotes" validate:"min=0"`
	Score     int `json:"score" yaml:"score"`
}

// Stats holds engagement counters for a chapter
type Stats struct {
	Reads         int `json:"reads" yaml:"reads" validate:"min=0"`
	Comments      int `json:"comments" yaml:"comments" validate:"min=0"`
	ChildBranches int `json:"childBranches" yaml:"childBranches" validate:"min=0"`
}

// PullRequestRef points at the pull request a chapter was submitted through
type PullRequestRef struct {
	ID     string `json:"id" yaml:"id" validate:"required"`
	Status string `json:"status" yaml:"status"` // open, merged, closed
	Title  string `json:"title,omitempty" yaml:"title,omitempty"`
}

// ChapterNode is one chapter of a branching story as delivered by the backend.
// Children form a tree: every chapter has at most one parent.
type ChapterNode struct {
	ID              string          `json:"id" yaml:"id" validate:"required"`
	StoryID         string          `json:"storyId" yaml:"storyId" validate:"required"`
	ParentChapterID *string         `json:"parentChapterId" yaml:"parentChapterId"`
	AncestorIDs     []string        `json:"ancestorIds" yaml:"ancestorIds"` // root first, parent last
	Depth           int             `json:"depth" yaml:"depth" validate:"min=0"`
	Children        []*ChapterNode  `json:"children" yaml:"children"`
	Title           string          `json:"title" yaml:"title" validate:"required"`
	Status          ChapterStatus   `json:"status" yaml:"status"`
	Version         int             `json:"version" yaml:"version" validate:"min=0"`
	Author          Author          `json:"author" yaml:"author"`
	Votes           Votes           `json:"votes" yaml:"votes"`
	Stats           Stats           `json:"stats" yaml:"stats"`
	ReportCount     int             `json:"reportCount" yaml:"reportCount" validate:"min=0"`
	IsFlagged       bool            `json:"isFlagged" yaml:"isFlagged"`
	PullRequest     *PullRequestRef `json:"pullRequest,omitempty" yaml:"pullRequest,omitempty"`
	CreatedAt       time.Time       `json:"createdAt" yaml:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" yaml:"updatedAt"`
}

// IsRoot returns true if the chapter starts a story (no parent)
func (c *ChapterNode) IsRoot() bool {
	return c.ParentChapterID == nil
}

// Walk visits the chapter and all of its descendants in depth-first pre-order.
// The parent is nil for the chapter Walk was called on.
func (c *ChapterNode) Walk(visit func(node, parent *ChapterNode)) {
	c.walk(nil, visit)
}

func (c *ChapterNode) walk(parent *ChapterNode, visit func(node, parent *ChapterNode)) {
	visit(c, parent)
	for _, child := range c.Children {
		child.walk(c, visit)
	}
}

// CountForest returns the total number of chapters in a forest
func CountForest(roots []*ChapterNode) int {
	count := 0
	for _, root := range roots {
		root.Walk(func(_, _ *ChapterNode) { count++ })
	}
	return count
}

// VoteDirection is the direction of a reader's vote on a chapter
type VoteDirection string

const (
	VoteUp   VoteDirection = "up"
	VoteDown VoteDirection = "down"
)

// ParseVoteDirection accepts "up" and "down"
func ParseVoteDirection(s string) (VoteDirection, error) {
	switch d := VoteDirection(s); d {
	case VoteUp, VoteDown:
		return d, nil
	}
	return "", fmt.Errorf("unknown vote direction %q (want up or down)", s)
}
