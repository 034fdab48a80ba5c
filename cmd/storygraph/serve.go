package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ritzau/storygraph/pkg/config"
	"github.com/ritzau/storygraph/pkg/graphstate"
	"github.com/ritzau/storygraph/pkg/loader"
	"github.com/ritzau/storygraph/pkg/logging"
	"github.com/ritzau/storygraph/pkg/pubsub"
	"github.com/ritzau/storygraph/pkg/render"
	"github.com/ritzau/storygraph/pkg/watcher"
	"github.com/ritzau/storygraph/pkg/web"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the story graph with live updates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().Int("port", 8080, "Port for the web server")
	cmd.Flags().Bool("watch", false, "Reload the story when its file changes (library mode)")
	return cmd
}

// app holds the long-lived pieces of a serve run
type app struct {
	story       *story
	broadcaster *web.Broadcaster
	controller  *graphstate.Controller
	runner      *loader.Runner
}

func serve(ctx context.Context, cfg *config.Config) error {
	st, err := openStory(cfg)
	if err != nil {
		return err
	}

	publisher := pubsub.NewServicePublisher()
	broadcaster := web.NewBroadcaster(publisher)
	controller := graphstate.NewController(cfg.LayoutConfig(), graphstate.WithListener(broadcaster))

	mapOpts := cfg.MapperOptions()
	mapOpts.OnComment = broadcaster.CommentRequested

	a := &app{
		story:       st,
		broadcaster: broadcaster,
		controller:  controller,
		runner:      loader.NewRunner(st.Source, controller, broadcaster, mapOpts),
	}

	actions := &render.Actions{}
	if st.Client != nil {
		actions.Voter = st.Client
	}

	server, err := web.NewServer(web.Options{
		Controller: controller,
		Publisher:  publisher,
		Library:    st.Library,
		Actions:    actions,
		Reload: func(ctx context.Context) error {
			return a.load(ctx, "manual reload")
		},
		StoryID: func() string { return st.ID },
	})
	if err != nil {
		return err
	}

	// The server comes up first; the story loads in the background and
	// clients follow progress on the load_status topic.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.load(ctx, "initial load"); err != nil {
			broadcaster.Notice(pubsub.Notice{Kind: web.NoticeLoadFailed, Message: err.Error(), Target: st.ID})
		}
	}()

	if cfg.Watch {
		if st.Library == nil {
			logging.Warn("--watch only applies to a story library; ignoring")
		} else if err := a.watch(ctx, &wg); err != nil {
			return err
		}
	}

	err = server.Start(ctx, cfg.Port)
	wg.Wait()
	return err
}

func (a *app) load(ctx context.Context, reason string) error {
	return a.runner.Run(ctx, loader.Options{
		StoryID:   a.story.ID,
		Direction: a.controller.Direction(),
		Reason:    reason,
	})
}

// watch reloads the mounted story whenever its file is written
func (a *app) watch(ctx context.Context, wg *sync.WaitGroup) error {
	fw, err := watcher.NewFileWatcher(a.story.Library.Dir)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Start(ctx); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	debouncer := watcher.NewDebouncer(fw.Events(), 300*time.Millisecond, 2*time.Second)
	debouncer.Start(ctx)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for event := range debouncer.Output() {
			analysis := watcher.AnalyzeChanges(event, a.story.ID)
			logging.Debug("story files changed", "type", event.Type, "stories", analysis.Stories)
			switch {
			case analysis.StoryRemoved:
				a.broadcaster.Notice(pubsub.Notice{
					Kind:    web.NoticeStoryRemoved,
					Message: "the story file was removed; keeping the last loaded graph",
					Target:  a.story.ID,
				})
			case analysis.NeedReload:
				if err := a.load(ctx, "story file changed"); err != nil {
					a.broadcaster.Notice(pubsub.Notice{Kind: web.NoticeLoadFailed, Message: err.Error(), Target: a.story.ID})
				}
			}
		}
	}()
	logging.Info("watching story library", "dir", a.story.Library.Dir)
	return nil
}
