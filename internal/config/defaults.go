package config

const (
	defaultFPS                = 30
	defaultWidth              = 1080
	defaultHeight             = 1920
	defaultTitleBlockFrames   = 3 * defaultFPS
	defaultSummaryBlockFrames = 3 * defaultFPS
	defaultTransitionFrames   = 12
	defaultAudioBufferFrames  = 15
	defaultBaseSectionFrames  = 5 * defaultFPS
	defaultVisualMultiplier   = 1.3
	defaultTransition         = "alternate"

	defaultMermaidBinary        = "mmdc"
	defaultKatexBinary          = "katex"
	defaultLoadTimeoutSeconds   = 30
	defaultRenderTimeoutSeconds = 20

	defaultFFprobeBinary  = "ffprobe"
	defaultProbeTimeoutMs = 5000

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

var defaultFallbackLanguages = []string{"javascript", "typescript", "python"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Timeline: Timeline{
			FPS:                defaultFPS,
			Width:              defaultWidth,
			Height:             defaultHeight,
			TitleBlockFrames:   defaultTitleBlockFrames,
			SummaryBlockFrames: defaultSummaryBlockFrames,
			TransitionFrames:   defaultTransitionFrames,
			AudioBufferFrames:  defaultAudioBufferFrames,
			BaseSectionFrames:  defaultBaseSectionFrames,
			VisualMultiplier:   defaultVisualMultiplier,
			Transition:         defaultTransition,
		},
		Theme: Theme{
			Background:    "#ffffff",
			Primary:       "#e9f3ff",
			PrimaryText:   "#0c3169",
			PrimaryBorder: "#75aafc",
			Line:          "#1f1f1f",
			Secondary:     "#f5f9ff",
			Tertiary:      "#daecff",
			FontFamily:    "Inter, system-ui, sans-serif",
			FontSize:      "16px",
			CodeStyle:     "github",
			ErrorColor:    "#cc0000",
		},
		Engines: Engines{
			MermaidBinary:        defaultMermaidBinary,
			KatexBinary:          defaultKatexBinary,
			LoadTimeoutSeconds:   defaultLoadTimeoutSeconds,
			RenderTimeoutSeconds: defaultRenderTimeoutSeconds,
			FallbackLanguages:    append([]string(nil), defaultFallbackLanguages...),
		},
		Audio: Audio{
			FFprobeBinary:  defaultFFprobeBinary,
			ProbeTimeoutMs: defaultProbeTimeoutMs,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
