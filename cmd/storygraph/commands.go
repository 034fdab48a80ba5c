package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/ritzau/storygraph/pkg/graphstate"
	"github.com/ritzau/storygraph/pkg/mapper"
	"github.com/ritzau/storygraph/pkg/output"
	"github.com/ritzau/storygraph/pkg/render"
	"github.com/spf13/cobra"
)

func newLayoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Lay out a story and print the positioned graph as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStory(cfg)
			if err != nil {
				return err
			}

			roots, err := st.Source.FetchForest(cmd.Context(), st.ID)
			if err != nil {
				return err
			}
			graph, err := mapper.Map(roots, cfg.MapperOptions())
			if err != nil {
				return err
			}
			controller := graphstate.NewController(cfg.LayoutConfig())
			if err := controller.Mount(graph, cfg.ParsedDirection()); err != nil {
				return err
			}

			var doc any = controller.Snapshot()
			if view, _ := cmd.Flags().GetBool("view"); view {
				doc = render.NewRegistry().Build(controller.Snapshot())
			}

			out := cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
	cmd.Flags().StringP("out", "o", "", "Write to a file instead of stdout")
	cmd.Flags().Bool("view", false, "Print the rendered view models instead of the raw graph")
	return cmd
}

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the chapter tree of a story",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStory(cfg)
			if err != nil {
				return err
			}
			roots, err := st.Source.FetchForest(cmd.Context(), st.ID)
			if err != nil {
				return err
			}
			if err := mapper.ValidateForest(roots); err != nil {
				return err
			}
			output.PrintStoryTree(cmd.OutOrStdout(), st.ID, roots, time.Now())
			return nil
		},
	}
}

func newStoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stories",
		Short: "List the stories in the library",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			_, _, lib := storySource(cfg)
			if lib == nil {
				return fmt.Errorf("listing stories needs --library")
			}
			stories, err := lib.Stories()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(stories) == 0 {
				color.New(color.FgYellow).Fprintf(out, "No stories in %s\n", lib.Dir)
				return nil
			}
			for _, s := range stories {
				color.New(color.Bold).Fprint(out, s.ID)
				fmt.Fprintf(out, "  %s\n", s.Path)
			}
			return nil
		},
	}
}
