package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Timeline holds the frame lengths of every block.
type Timeline struct {
	FPS                int     `toml:"fps"`
	Width              int     `toml:"width"`
	Height             int     `toml:"height"`
	TitleBlockFrames   int     `toml:"title_block_frames"`
	SummaryBlockFrames int     `toml:"summary_block_frames"`
	TransitionFrames   int     `toml:"transition_frames"`
	AudioBufferFrames  int     `toml:"audio_buffer_frames"`
	BaseSectionFrames  int     `toml:"base_section_frames"`
	VisualMultiplier   float64 `toml:"visual_multiplier"`
	Transition         string  `toml:"transition"` // alternate, fade, slide
}

// Theme is the fixed look every engine is initialized with.
type Theme struct {
	Background    string `toml:"background"`
	Primary       string `toml:"primary"`
	PrimaryText   string `toml:"primary_text"`
	PrimaryBorder string `toml:"primary_border"`
	Line          string `toml:"line"`
	Secondary     string `toml:"secondary"`
	Tertiary      string `toml:"tertiary"`
	FontFamily    string `toml:"font_family"`
	FontSize      string `toml:"font_size"`
	CodeStyle     string `toml:"code_style"`
	ErrorColor    string `toml:"error_color"`
}

// Engines configures the rendering engines.
type Engines struct {
	MermaidBinary        string   `toml:"mermaid_binary"`
	KatexBinary          string   `toml:"katex_binary"`
	LoadTimeoutSeconds   int      `toml:"load_timeout_seconds"`
	RenderTimeoutSeconds int      `toml:"render_timeout_seconds"`
	FallbackLanguages    []string `toml:"fallback_languages"`
	ScratchDir           string   `toml:"scratch_dir"`
	Workers              int      `toml:"workers"`
}

// Audio configures narration materialization.
type Audio struct {
	FFprobeBinary  string `toml:"ffprobe_binary"`
	ProbeTimeoutMs int    `toml:"probe_timeout_ms"`
	Dir            string `toml:"dir"`
}

// Summary configures the closing card.
type Summary struct {
	ShareURL string `toml:"share_url"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
}

// Config encapsulates every option of the explainer pipeline.
//
//   - Timeline: frame rate, composition size and block lengths
//   - Theme: colors and fonts handed to every engine
//   - Engines: external binaries, timeouts and concurrency
//   - Audio: ffprobe and the duration measurement timeout
//   - Summary: optional share link for the closing card
//   - Logging: log format, level and directory
type Config struct {
	Timeline Timeline `toml:"timeline"`
	Theme    Theme    `toml:"theme"`
	Engines  Engines  `toml:"engines"`
	Audio    Audio    `toml:"audio"`
	Summary  Summary  `toml:"summary"`
	Logging  Logging  `toml:"logging"`

	BuildVersion string `toml:"-"`
}

// Timing is the explicit set of numbers the timeline compiler works from.
type Timing struct {
	FPS                int
	TitleBlockFrames   int
	SummaryBlockFrames int
	TransitionFrames   int
	AudioBufferFrames  int
	BaseSectionFrames  int
	VisualMultiplier   float64
}

// Timing extracts the timeline numbers.
func (c *Config) Timing() Timing {
	return Timing{
		FPS:                c.Timeline.FPS,
		TitleBlockFrames:   c.Timeline.TitleBlockFrames,
		SummaryBlockFrames: c.Timeline.SummaryBlockFrames,
		TransitionFrames:   c.Timeline.TransitionFrames,
		AudioBufferFrames:  c.Timeline.AudioBufferFrames,
		BaseSectionFrames:  c.Timeline.BaseSectionFrames,
		VisualMultiplier:   c.Timeline.VisualMultiplier,
	}
}

// ProbeTimeout is the per-segment ceiling for audio duration measurement.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Audio.ProbeTimeoutMs) * time.Millisecond
}

// LoadTimeout bounds a single engine load.
func (c *Config) LoadTimeout() time.Duration {
	return time.Duration(c.Engines.LoadTimeoutSeconds) * time.Second
}

// RenderTimeout bounds a single engine render call.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Engines.RenderTimeoutSeconds) * time.Second
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/explainer/config.toml")
}

// Load locates, parses, normalizes and validates a configuration file.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("explainer.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes the sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
