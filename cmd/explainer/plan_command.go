package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivlev/explainer/internal/director"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:         "plan [file]",
		Short:       "Print a saved frame plan (default: newest in plans/)",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) > 0 {
				path = args[0]
			} else {
				latest, err := director.FindLatestPlan(dir)
				if err != nil {
					return err
				}
				path = latest
			}

			plan, err := director.ReadPlan(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Plan: %s (v%s)\n", path, plan.Version)
			fmt.Fprintf(out, "Topic: %s\n", plan.Topic)
			fmt.Fprintln(out, renderTimeline(plan.Timeline))
			fmt.Fprintf(out, "%dx%d @ %d FPS | %d frames (%.2fs)\n",
				plan.Width, plan.Height, plan.Timeline.FPS, plan.Timeline.TotalFrames, plan.Timeline.Seconds())
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", director.DefaultPlanDir, "Directory searched when no file is given")
	return cmd
}
