// Package loader fetches a story, maps it and mounts it into the graph
// controller, reporting each phase.
package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ritzau/storygraph/pkg/logging"
	"github.com/ritzau/storygraph/pkg/mapper"
	"github.com/ritzau/storygraph/pkg/model"
	"github.com/ritzau/storygraph/pkg/source"
)

// Load states published while a story loads
const (
	StateFetching = "fetching"
	StateMapping  = "mapping"
	StateLayout   = "layout"
	StateReady    = "ready"
	StateError    = "error"
)

const totalSteps = 4

// StatusPublisher receives load progress
type StatusPublisher interface {
	PublishLoadStatus(state, storyID, message string, step, total int)
}

// Mounter replaces the live graph; *graphstate.Controller in production
type Mounter interface {
	Mount(graph *model.Graph, direction model.Direction) error
}

// Runner orchestrates loading a story into the controller
type Runner struct {
	source  source.Source
	mounter Mounter
	status  StatusPublisher
	mapOpts mapper.Options
	mu      sync.Mutex // Prevent concurrent loads
}

// Options configures one load
type Options struct {
	StoryID   string
	Direction model.Direction
	Reason    string // e.g., "initial load", "story file changed"
}

// NewRunner creates a new load runner. status may be nil.
func NewRunner(src source.Source, mounter Mounter, status StatusPublisher, mapOpts mapper.Options) *Runner {
	return &Runner{
		source:  src,
		mounter: mounter,
		status:  status,
		mapOpts: mapOpts,
	}
}

// Run fetches, maps and mounts a story. A failing phase publishes an error
// status and leaves the mounted graph untouched; later phases do not run.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	// Lock to prevent concurrent loads
	r.mu.Lock()
	defer r.mu.Unlock()

	direction := opts.Direction
	if direction == "" {
		direction = model.DirectionTopToBottom
	}
	start := time.Now()
	logging.Info("loading story", "story", opts.StoryID, "reason", opts.Reason)

	// Phase 1: fetch
	r.publish(StateFetching, opts.StoryID, "Fetching chapter tree...", 1)
	roots, err := r.source.FetchForest(ctx, opts.StoryID)
	if err != nil {
		return r.fail(opts.StoryID, 1, "fetch", err)
	}
	logging.Debug("fetched chapter tree", "story", opts.StoryID, "roots", len(roots), "chapters", model.CountForest(roots))

	// Phase 2: map
	r.publish(StateMapping, opts.StoryID, "Mapping chapters to graph...", 2)
	graph, err := mapper.Map(roots, r.mapOpts)
	if err != nil {
		return r.fail(opts.StoryID, 2, "map", err)
	}

	// Phase 3: layout and mount
	r.publish(StateLayout, opts.StoryID, "Laying out graph...", 3)
	if err := r.mounter.Mount(graph, direction); err != nil {
		return r.fail(opts.StoryID, 3, "mount", err)
	}

	r.publish(StateReady, opts.StoryID, fmt.Sprintf("Loaded %d chapters", len(graph.Nodes)), totalSteps)
	logging.Info("story loaded",
		"story", opts.StoryID,
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
		"durationMs", time.Since(start).Milliseconds(),
	)
	return nil
}

func (r *Runner) fail(storyID string, step int, phase string, err error) error {
	logging.Error("story load failed", "story", storyID, "phase", phase, "error", err)
	r.publish(StateError, storyID, fmt.Sprintf("%s failed: %v", phase, err), step)
	return fmt.Errorf("%s %q: %w", phase, storyID, err)
}

func (r *Runner) publish(state, storyID, message string, step int) {
	if r.status != nil {
		r.status.PublishLoadStatus(state, storyID, message, step, totalSteps)
	}
}
