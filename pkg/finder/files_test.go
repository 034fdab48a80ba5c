package finder

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFindStoryFiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"dragons.json",
		"pirates.yaml",
		"nested/space.yml",
		"notes.txt",
		".hidden.json",
		".git/config.json",
	} {
		writeFile(t, filepath.Join(root, name))
	}

	files, err := FindStoryFiles(root)
	if err != nil {
		t.Fatalf("FindStoryFiles() error = %v", err)
	}

	want := []string{
		filepath.Join(root, "dragons.json"),
		filepath.Join(root, "nested", "space.yml"),
		filepath.Join(root, "pirates.yaml"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("FindStoryFiles() = %v, want %v", files, want)
	}
}

func TestFindStoryFilesMissingDir(t *testing.T) {
	if _, err := FindStoryFiles(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("FindStoryFiles() expected an error for a missing directory")
	}
}

func TestStoryID(t *testing.T) {
	tests := map[string]string{
		"/lib/dragons.json":   "dragons",
		"pirates.yaml":        "pirates",
		"a/b/space.opera.yml": "space.opera",
	}
	for path, want := range tests {
		if got := StoryID(path); got != want {
			t.Errorf("StoryID(%q) = %q, want %q", path, got, want)
		}
	}
	if IsStoryFile("notes.txt") || !IsStoryFile("UPPER.JSON") {
		t.Error("IsStoryFile() misclassified a file")
	}
}
