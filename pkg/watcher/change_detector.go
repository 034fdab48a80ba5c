package watcher

import (
	"sort"

	"github.com/ritzau/storygraph/pkg/finder"
)

// ChangeAnalysis describes which stories changed and whether the mounted one needs a reload
type ChangeAnalysis struct {
	Stories      []string // affected story ids, sorted
	NeedReload   bool     // the mounted story was written
	StoryRemoved bool     // the mounted story file disappeared
	ChangedFiles []string
}

// AnalyzeChanges determines what a debounced event means for the mounted story
func AnalyzeChanges(event ChangeEvent, mountedStory string) *ChangeAnalysis {
	analysis := &ChangeAnalysis{
		ChangedFiles: event.Paths,
	}

	seen := make(map[string]bool)
	for _, path := range event.Paths {
		id := finder.StoryID(path)
		if !seen[id] {
			seen[id] = true
			analysis.Stories = append(analysis.Stories, id)
		}
		if id != mountedStory {
			continue
		}

		switch event.Type {
		case ChangeTypeStoryWritten:
			// Content changed; the graph must be remounted
			analysis.NeedReload = true
		case ChangeTypeStoryRemoved:
			analysis.StoryRemoved = true
		}
	}
	sort.Strings(analysis.Stories)

	return analysis
}
