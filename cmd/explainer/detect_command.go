package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivlev/explainer/internal/analyzer"
	"github.com/ivlev/explainer/internal/source"
)

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var detectorVariant string

	cmd := &cobra.Command{
		Use:   "detect [input]",
		Short: "Show which rendering engines an input needs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := source.Load(inputArg(args))
			if err != nil {
				return err
			}
			detector, err := analyzer.NewDetector(detectorVariant)
			if err != nil {
				return err
			}
			req := detector.Detect(input.VideoData.Sections)

			rows := make([][]string, 0, len(analyzer.AllEngines))
			for _, e := range analyzer.AllEngines {
				rows = append(rows, []string{string(e), yesNo(req.Needs(e))})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Engine", "Required"}, rows, nil))

			languages := "none"
			if len(req.Languages) > 0 {
				languages = strings.Join(req.Languages, ", ")
			}
			fmt.Fprintf(out, "Languages: %s\n", languages)
			return nil
		},
	}

	cmd.Flags().StringVar(&detectorVariant, "detector", "scan", "Capability detector: scan, eager")
	return cmd
}
