package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivlev/explainer/internal/analyzer"
	"github.com/ivlev/explainer/internal/config"
	"github.com/ivlev/explainer/internal/system"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, host resources and theme legibility",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ctx.configPath != "" {
				fmt.Fprintf(out, "Config: %s\n", ctx.configPath)
			}

			statuses := system.CheckBinaries(cmd.Context(), requirements(cfg))
			rows := make([][]string, 0, len(statuses))
			missing := 0
			for _, s := range statuses {
				state := "ok"
				if !s.Available {
					state = "missing"
					missing++
				}
				detail := s.Version
				if detail == "" {
					detail = s.Detail
				}
				rows = append(rows, []string{s.Name, s.Command, state, detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Tool", "Command", "Status", "Detail"}, rows, nil))

			host, err := system.Host(cmd.Context())
			if err != nil {
				fmt.Fprintf(out, "[!] Не удалось получить сведения о системе: %v\n", err)
			} else {
				fmt.Fprintf(out, "CPU: %d logical / %d physical | Memory: %s free of %s (%.0f%% used) | Workers: %d\n",
					host.LogicalCPUs, host.PhysicalCPUs,
					formatBytes(host.AvailableMemory), formatBytes(host.TotalMemory), host.UsedPercent,
					system.ResolveWorkers(cfg.Engines.Workers))
			}

			results, err := analyzer.CheckContrast(themePairs(cfg.Theme))
			if err != nil {
				return fmt.Errorf("theme contrast: %w", err)
			}
			contrastRows := make([][]string, 0, len(results))
			for _, r := range results {
				contrastRows = append(contrastRows, []string{
					r.Name,
					r.Foreground + " on " + r.Background,
					fmt.Sprintf("%.2f", r.Ratio),
					yesNo(r.Legible()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Theme pair", "Colors", "Ratio", "Legible"},
				contrastRows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))

			if missing > 0 {
				fmt.Fprintf(out, "[!] Не найдено инструментов: %d. Зависящие от них секции будут показаны как текст.\n", missing)
			}
			return nil
		},
	}
}

func requirements(cfg *config.Config) []system.Requirement {
	return []system.Requirement{
		{Name: "mermaid-cli", Command: cfg.Engines.MermaidBinary, Description: "diagram rendering", Optional: true, VersionArgs: []string{"--version"}},
		{Name: "katex", Command: cfg.Engines.KatexBinary, Description: "equation typesetting", Optional: true, VersionArgs: []string{"--version"}},
		{Name: "ffprobe", Command: cfg.Audio.FFprobeBinary, Description: "narration duration", Optional: true, VersionArgs: []string{"-version"}},
	}
}

func themePairs(theme config.Theme) []analyzer.ContrastPair {
	return []analyzer.ContrastPair{
		{Name: "node text", Foreground: theme.PrimaryText, Background: theme.Primary},
		{Name: "body text", Foreground: theme.PrimaryText, Background: theme.Background},
		{Name: "cluster text", Foreground: theme.PrimaryText, Background: theme.Secondary},
		{Name: "edges", Foreground: theme.Line, Background: theme.Background},
		{Name: "errors", Foreground: theme.ErrorColor, Background: theme.Background},
	}
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), strings.ToUpper("kmgtpe")[exp])
}
