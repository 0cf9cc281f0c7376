package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ivlev/explainer/internal/analyzer"
	"github.com/ivlev/explainer/internal/director"
	"github.com/ivlev/explainer/internal/effects"
	"github.com/ivlev/explainer/internal/engine"
	"github.com/ivlev/explainer/internal/source"
	"github.com/ivlev/explainer/internal/system"
)

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var planPath string
	var noPlan bool
	var jsonOutput bool
	var detectorVariant string
	var reusePlan string

	cmd := &cobra.Command{
		Use:   "build [input]",
		Short: "Materialize sections and audio and compile the frame plan",
		Long: "Build reads a generation result (a .json/.yaml file, or the newest one in a directory; default: input/),\n" +
			"renders every section, measures narration and prints the resulting timeline.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			system.InitResourceLimits(logger)

			out := cmd.OutOrStdout()
			progress := out
			if jsonOutput {
				progress = io.Discard
			}

			src, err := source.NewFileSource(inputArg(args))
			if err != nil {
				return fmt.Errorf("открыть входные данные: %w", err)
			}
			input, err := src.Read()
			if err != nil {
				return err
			}
			fmt.Fprintf(progress, "[*] Источник: %s | Секций: %d | Аудио: %d\n",
				src.Path(), len(input.VideoData.Sections), len(input.AudioSegments))

			detector, err := analyzer.NewDetector(detectorVariant)
			if err != nil {
				return err
			}
			opts := []engine.Option{
				engine.WithLogger(logger),
				engine.WithDetector(detector),
				engine.WithOnChange(progressPrinter(progress)),
			}
			if reusePlan != "" {
				saved, err := director.ReadPlan(reusePlan)
				if err != nil {
					return fmt.Errorf("read plan: %w", err)
				}
				fallback, err := effects.NewEffect(cfg.Timeline.Transition)
				if err != nil {
					return err
				}
				opts = append(opts, engine.WithEffect(effects.NewPlanEffect(saved, fallback)))
				fmt.Fprintf(progress, "[*] Переходы взяты из плана: %s\n", reusePlan)
			}

			pipeline, err := engine.NewPipeline(cfg, opts...)
			if err != nil {
				return err
			}
			defer pipeline.Detach()

			if err := pipeline.Submit(input); err != nil {
				return err
			}
			snap, err := pipeline.Await(cmd.Context())
			if err != nil {
				return err
			}
			result := snap.Result

			if jsonOutput {
				return writeJSON(cmd, result)
			}

			fmt.Fprintln(out, renderTimeline(result.Timeline))
			fmt.Fprintf(out, "[*] Разрешение: %dx%d @ %d FPS | Кадров: %d (%.2fs)\n",
				result.Width, result.Height, result.FPS, result.TotalFrames, result.Timeline.Seconds())
			if n := result.Degraded(); n > 0 {
				fmt.Fprintf(out, "[!] Секций без визуализации: %d (показаны как текст)\n", n)
			}

			if noPlan {
				return nil
			}
			target := strings.TrimSpace(planPath)
			if target == "" {
				target = director.GeneratePlanPath("")
			}
			if err := director.WritePlan(result.Plan(), target); err != nil {
				return fmt.Errorf("write plan: %w", err)
			}
			fmt.Fprintf(out, "[+++] Успех! План сохранен: %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "Where to write the plan YAML (default: plans/plan_<timestamp>.yaml)")
	cmd.Flags().BoolVar(&noPlan, "no-plan", false, "Do not write a plan file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the processed result as JSON instead of a table")
	cmd.Flags().StringVar(&detectorVariant, "detector", "scan", "Capability detector: scan, eager")
	cmd.Flags().StringVar(&reusePlan, "reuse-transitions", "", "Replay transition presentations from a saved plan")
	return cmd
}

// progressPrinter reports state changes. Callbacks arrive serialized.
func progressPrinter(w io.Writer) func(engine.Snapshot) {
	var mu sync.Mutex
	var visuals, narration bool
	return func(s engine.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.RenderingVisuals && !visuals {
			fmt.Fprintln(w, "[>] Рендеринг визуализаций...")
		}
		if s.ProcessingAudio && !narration {
			fmt.Fprintln(w, "[>] Обработка озвучки...")
		}
		visuals, narration = s.RenderingVisuals, s.ProcessingAudio
		if s.State == engine.Failed {
			fmt.Fprintf(w, "[!] Ошибка обработки: %s\n", s.Message)
		}
	}
}

func renderTimeline(tl director.Timeline) string {
	presentations := make(map[int]string, len(tl.Transitions))
	for _, tr := range tl.Transitions {
		presentations[tr.Into] = tr.Presentation
	}

	rows := make([][]string, 0, len(tl.Blocks))
	for i, b := range tl.Blocks {
		name := string(b.Kind)
		if b.Kind == director.BlockSection {
			name = fmt.Sprintf("%d. %s", b.Index+1, b.Title)
		}
		length := "fixed"
		if b.Kind == director.BlockSection {
			length = "weight"
			if b.AudioDriven {
				length = "audio"
			}
		}
		rows = append(rows, []string{
			name,
			string(b.SceneType),
			strconv.Itoa(b.StartFrame),
			strconv.Itoa(b.Frames),
			length,
			presentations[i],
		})
	}
	return renderTable(
		[]string{"Block", "Scene", "Start", "Frames", "Length", "Transition in"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	)
}
