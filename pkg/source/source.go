// Package source fetches story chapter forests from the backend API or from a
// local story library.
package source

import (
	"context"
	"errors"

	"github.com/ritzau/storygraph/pkg/model"
)

var (
	// ErrFetch wraps every failure to retrieve or decode a forest
	ErrFetch = errors.New("fetch failed")
	// ErrNotFound is returned for stories that do not exist
	ErrNotFound     = errors.New("story not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
)

// Source retrieves the chapter forest of a story
type Source interface {
	FetchForest(ctx context.Context, storyID string) ([]*model.ChapterNode, error)
}

// treeResponse is the envelope of a chapter forest
type treeResponse struct {
	Data []*model.ChapterNode `json:"data" yaml:"data"`
}
