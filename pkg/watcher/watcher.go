package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ritzau/storygraph/pkg/finder"
	"github.com/ritzau/storygraph/pkg/logging"
)

// ChangeType represents the type of file change detected
type ChangeType int

const (
	ChangeTypeStoryWritten ChangeType = iota // created, written or renamed into place
	ChangeTypeStoryRemoved
)

func (t ChangeType) String() string {
	switch t {
	case ChangeTypeStoryWritten:
		return "written"
	case ChangeTypeStoryRemoved:
		return "removed"
	}
	return fmt.Sprintf("ChangeType(%d)", int(t))
}

// ChangeEvent represents a batch of file system changes
type ChangeEvent struct {
	Type      ChangeType
	Paths     []string
	Timestamp time.Time
}

// batchWindow groups raw fsnotify events before they are emitted
const batchWindow = 100 * time.Millisecond

// FileWatcher watches a story library directory for story file changes
type FileWatcher struct {
	watcher *fsnotify.Watcher
	library string
	events  chan ChangeEvent
	once    sync.Once
}

// NewFileWatcher creates a new file system watcher for a story library
func NewFileWatcher(library string) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher: watcher,
		library: library,
		events:  make(chan ChangeEvent, 100),
	}, nil
}

// Start watches the library and all its non-hidden subdirectories. Events
// flow until ctx is cancelled, after which Events is closed.
func (fw *FileWatcher) Start(ctx context.Context) error {
	count, err := fw.watchTree(fw.library)
	if err != nil {
		return err
	}
	logging.Info("started watching story library", "path", fw.library, "directories", count)

	go fw.processEvents(ctx)
	return nil
}

// watchTree adds root and its subdirectories to the watcher
func (fw *FileWatcher) watchTree(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // Skip entries we can't access
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			logging.Warn("failed to watch directory", "path", path, "error", err)
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to walk library: %w", err)
	}
	return count, nil
}

// processEvents processes file system events and batches them by type
func (fw *FileWatcher) processEvents(ctx context.Context) {
	// Batch events to avoid sending one event per file
	var written, removed []string

	flushTimer := time.NewTimer(batchWindow)
	flushTimer.Stop()

	flush := func() {
		if len(written) > 0 {
			fw.events <- ChangeEvent{Type: ChangeTypeStoryWritten, Paths: written, Timestamp: time.Now()}
			written = nil
		}
		if len(removed) > 0 {
			fw.events <- ChangeEvent{Type: ChangeTypeStoryRemoved, Paths: removed, Timestamp: time.Now()}
			removed = nil
		}
	}

	defer close(fw.events)
	defer fw.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Create) && fw.isNewDirectory(event.Name) {
				if _, err := fw.watchTree(event.Name); err != nil {
					logging.Warn("failed to watch new directory", "path", event.Name, "error", err)
				}
				continue
			}
			if !finder.IsStoryFile(event.Name) || strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}

			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				removed = append(removed, event.Name)
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				written = append(written, event.Name)
			default:
				continue
			}
			logging.Trace("story file event", "path", event.Name, "op", event.Op.String())
			flushTimer.Reset(batchWindow)

		case <-flushTimer.C:
			flush()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			logging.Error("watcher error", "error", err)
		}
	}
}

func (fw *FileWatcher) isNewDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir() && !strings.HasPrefix(filepath.Base(path), ".")
}

// Events returns the channel of change events
func (fw *FileWatcher) Events() <-chan ChangeEvent {
	return fw.events
}

// Stop stops the file watcher
func (fw *FileWatcher) Stop() error {
	var err error
	fw.once.Do(func() {
		err = fw.watcher.Close()
	})
	return err
}
