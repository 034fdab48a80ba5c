// Command storygraph lays out the chapter tree of a branching story and
// serves it as an interactive graph.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ritzau/storygraph/pkg/config"
	"github.com/ritzau/storygraph/pkg/layout"
	"github.com/ritzau/storygraph/pkg/logging"
	"github.com/ritzau/storygraph/pkg/mapper"
	"github.com/ritzau/storygraph/pkg/source"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storygraph",
		Short:         "Lay out and explore branching story chapter trees",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.String("config", config.DefaultConfigFile, "TOML configuration file")
	f.String("env-file", config.DefaultEnvFile, "dotenv file with STORYGRAPH_ variables")
	f.String("story", "", "Story id to load (defaults to the first story in the library)")
	f.String("library", "", "Directory of story files")
	f.String("api", "", "Base URL of the story API; takes precedence over --library")
	f.String("token", "", "Bearer token for the story API")
	f.Float64("rps", 5, "Story API requests per second (0 disables limiting)")
	f.String("direction", "TB", "Layout direction: TB or LR")
	lc := layout.DefaultConfig()
	f.Float64("node-width", lc.NodeWidth, "Width of a chapter node")
	f.Float64("node-height", lc.NodeHeight, "Height of a chapter node")
	f.Float64("node-sep", lc.NodeSep, "Space between nodes in a rank")
	f.Float64("rank-sep", lc.RankSep, "Space between ranks")
	f.Float64("edge-sep", lc.EdgeSep, "Space reserved for edges routed between nodes")
	f.Int("iterations", lc.OrderIterations, "Crossing reduction sweeps")
	f.Float64("h-gap", mapper.DefaultHorizontalGap, "Horizontal gap of the initial placement")
	f.Float64("v-gap", mapper.DefaultVerticalGap, "Vertical gap of the initial placement")
	f.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	f.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	f.Bool("json", false, "Log as JSON")

	root.AddCommand(newServeCmd(), newLayoutCmd(), newTreeCmd(), newStoriesCmd())
	return root
}

// loadConfig resolves the configuration of cmd and configures logging
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config")
	envFile, _ := flags.GetString("env-file")

	cfg, err := config.LoadFiles(flags, config.Files{Config: configFile, Env: envFile})
	if err != nil {
		return nil, err
	}

	level, err := logging.LevelFromVerbosity(cfg.Verbosity, cfg.VerboseCnt)
	if err != nil {
		return nil, err
	}
	logging.Configure(logging.Options{Level: level, JSON: cfg.JSON, Output: cmd.ErrOrStderr()})
	logging.Debug("configuration loaded", "library", cfg.Library, "api", cfg.API, "direction", cfg.Direction)
	return cfg, nil
}

// storySource picks the API client when an API is configured and the local
// library otherwise. The library is returned separately since only it can
// be listed and watched.
func storySource(cfg *config.Config) (source.Source, *source.Client, *source.Library) {
	if cfg.API != "" {
		client := source.NewClient(cfg.API, source.WithToken(cfg.Token), source.WithRateLimit(cfg.RPS))
		return client, client, nil
	}
	lib := source.NewLibrary(cfg.Library)
	return lib, nil, lib
}

// resolveStory returns the configured story or the first one in lib
func resolveStory(cfg *config.Config, lib *source.Library) (string, error) {
	if cfg.Story != "" {
		return cfg.Story, nil
	}
	if lib == nil {
		return "", errors.New("--story is required with --api")
	}
	stories, err := lib.Stories()
	if err != nil {
		return "", err
	}
	if len(stories) == 0 {
		return "", fmt.Errorf("no story files in %s", lib.Dir)
	}
	return stories[0].ID, nil
}

// story bundles the source a command reads from
type story struct {
	ID      string
	Source  source.Source
	Client  *source.Client  // nil unless an API is configured
	Library *source.Library // nil when an API is configured
}

func openStory(cfg *config.Config) (*story, error) {
	src, client, lib := storySource(cfg)
	id, err := resolveStory(cfg, lib)
	if err != nil {
		return nil, err
	}
	return &story{ID: id, Source: src, Client: client, Library: lib}, nil
}
