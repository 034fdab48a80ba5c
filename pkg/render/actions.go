package render

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/ritzau/storygraph/pkg/logging"
	"github.com/ritzau/storygraph/pkg/model"
)

// Node actions
const (
	ActionOpenEditor = "open-editor"
	ActionComment    = "comment"
	ActionVote       = "vote"
)

var (
	ErrUnknownAction     = errors.New("unknown action")
	ErrActionUnavailable = errors.New("action not available for this node")
	ErrInvalidArguments  = errors.New("invalid action arguments")
)

// Voter records votes with the backend
type Voter interface {
	Vote(ctx context.Context, chapterID string, direction model.VoteDirection) (model.Votes, error)
}

// ActionRequest carries the optional arguments of an action
type ActionRequest struct {
	Direction model.VoteDirection `json:"direction,omitempty" validate:"omitempty,oneof=up down"`
}

// ActionResult reports what an action did
type ActionResult struct {
	Action string       `json:"action"`
	NodeID string       `json:"nodeId"`
	Route  string       `json:"route,omitempty"` // where the client should navigate
	Votes  *model.Votes `json:"votes,omitempty"` // tally after a vote
}

// Actions performs node actions. Voter may be nil, which disables voting.
type Actions struct {
	Voter Voter
}

// Perform runs action on node
func (a *Actions) Perform(ctx context.Context, node *model.VisualNode, action string, req ActionRequest) (*ActionResult, error) {
	result := &ActionResult{Action: action, NodeID: node.ID}
	data := node.Data
	if data == nil {
		data = &model.NodeData{}
	}

	switch action {
	case ActionOpenEditor:
		result.Route = EditorRoute(data.StoryID, node.ID)

	case ActionComment:
		if data.OnComment == nil {
			return nil, fmt.Errorf("%w: %s on %q", ErrActionUnavailable, action, node.ID)
		}
		data.OnComment()

	case ActionVote:
		if a.Voter == nil {
			return nil, fmt.Errorf("%w: %s on %q", ErrActionUnavailable, action, node.ID)
		}
		direction, err := model.ParseVoteDirection(string(req.Direction))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		votes, err := a.Voter.Vote(ctx, node.ID, direction)
		if err != nil {
			return nil, fmt.Errorf("vote on %q: %w", node.ID, err)
		}
		result.Votes = &votes

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	logging.DebugContext(ctx, "node action performed", "action", action, "node", node.ID)
	return result, nil
}

// EditorRoute is the client route of the chapter editor
func EditorRoute(storyID, chapterID string) string {
	return "/stories/" + url.PathEscape(storyID) + "/chapters/" + url.PathEscape(chapterID) + "/edit"
}
