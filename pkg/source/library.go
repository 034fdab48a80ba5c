package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ritzau/storygraph/pkg/finder"
	"github.com/ritzau/storygraph/pkg/model"
	"gopkg.in/yaml.v3"
)

// Library reads stories from a directory of <storyId>.json, .yaml or .yml
// files. A file holds either a bare list of root chapters or a {"data": [...]}
// envelope like the backend's.
type Library struct {
	Dir string
}

// StoryFile is one story found in a library
type StoryFile struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// NewLibrary creates a library over dir
func NewLibrary(dir string) *Library {
	return &Library{Dir: dir}
}

// Stories lists the stories in the library
func (l *Library) Stories() ([]StoryFile, error) {
	paths, err := finder.FindStoryFiles(l.Dir)
	if err != nil {
		return nil, fmt.Errorf("listing library %s: %w", l.Dir, err)
	}

	stories := make([]StoryFile, 0, len(paths))
	for _, path := range paths {
		stories = append(stories, StoryFile{ID: finder.StoryID(path), Path: path})
	}
	return stories, nil
}

// Path returns the file holding storyID
func (l *Library) Path(storyID string) (string, error) {
	if storyID == "" || strings.ContainsAny(storyID, `/\`) || storyID == "." || storyID == ".." {
		return "", fmt.Errorf("%w: invalid story id %q", ErrNotFound, storyID)
	}
	for _, ext := range finder.StoryExtensions {
		path := filepath.Join(l.Dir, storyID+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %q in %s", ErrNotFound, storyID, l.Dir)
}

// FetchForest reads the chapter forest of storyID
func (l *Library) FetchForest(ctx context.Context, storyID string) ([]*model.ChapterNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	path, err := l.Path(storyID)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	roots, err := DecodeForest(content, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, path, err)
	}
	return roots, nil
}

// DecodeForest parses a forest from JSON (ext ".json") or YAML content
func DecodeForest(content []byte, ext string) ([]*model.ChapterNode, error) {
	var roots []*model.ChapterNode
	var envelope treeResponse

	if strings.EqualFold(ext, ".json") {
		trimmed := bytes.TrimSpace(content)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			if err := json.Unmarshal(trimmed, &envelope); err != nil {
				return nil, err
			}
			roots = envelope.Data
		} else if err := json.Unmarshal(trimmed, &roots); err != nil {
			return nil, err
		}
	} else {
		var doc yaml.Node
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, err
		}
		if len(doc.Content) > 0 && doc.Content[0].Kind == yaml.MappingNode {
			if err := doc.Decode(&envelope); err != nil {
				return nil, err
			}
			roots = envelope.Data
		} else if len(doc.Content) > 0 {
			if err := doc.Decode(&roots); err != nil {
				return nil, err
			}
		}
	}

	if roots == nil {
		roots = make([]*model.ChapterNode, 0)
	}
	return roots, nil
}
