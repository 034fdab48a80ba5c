package finder

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// StoryExtensions are the file extensions of story files, in lookup order
var StoryExtensions = []string{".json", ".yaml", ".yml"}

// FindStoryFiles walks the library directory and returns all story files in
// lexical order, skipping hidden directories and files.
func FindStoryFiles(libraryRoot string) ([]string, error) {
	var storyFiles []string

	err := filepath.WalkDir(libraryRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			// Skip hidden directories (.git, editor state) but not the root itself
			if path != libraryRoot && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}

		if IsStoryFile(path) {
			storyFiles = append(storyFiles, path)
		}
		return nil
	})

	return storyFiles, err
}

// IsStoryFile reports whether path has a story file extension
func IsStoryFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range StoryExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// StoryID derives the story id from a story file path: its base name
// without extension
func StoryID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
