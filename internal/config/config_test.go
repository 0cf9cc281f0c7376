package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ivlev/explainer/internal/config"
)

func TestLoadDefaultConfigWhenAbsent(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "explainer", "config.toml"); resolved != want {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, want)
	}

	timing := cfg.Timing()
	if timing.FPS != 30 || timing.TitleBlockFrames != 90 || timing.SummaryBlockFrames != 90 {
		t.Fatalf("unexpected timing defaults: %+v", timing)
	}
	if timing.TransitionFrames != 12 || timing.AudioBufferFrames != 15 || timing.BaseSectionFrames != 150 {
		t.Fatalf("unexpected timing defaults: %+v", timing)
	}
	if timing.VisualMultiplier != 1.3 {
		t.Fatalf("unexpected visual multiplier: %v", timing.VisualMultiplier)
	}
	if cfg.Timeline.Width != 1080 || cfg.Timeline.Height != 1920 {
		t.Fatalf("unexpected composition size: %dx%d", cfg.Timeline.Width, cfg.Timeline.Height)
	}
	if cfg.ProbeTimeout() != 5*time.Second {
		t.Fatalf("unexpected probe timeout: %s", cfg.ProbeTimeout())
	}
	if got := strings.Join(cfg.Engines.FallbackLanguages, ","); got != "javascript,typescript,python" {
		t.Fatalf("unexpected fallback languages: %s", got)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "explainer.toml")

	type payload struct {
		Timeline struct {
			FPS        int    `toml:"fps"`
			Transition string `toml:"transition"`
		} `toml:"timeline"`
		Theme struct {
			Background string `toml:"background"`
			Line       string `toml:"line"`
		} `toml:"theme"`
		Audio struct {
			ProbeTimeoutMs int    `toml:"probe_timeout_ms"`
			Dir            string `toml:"dir"`
		} `toml:"audio"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Timeline.FPS = 60
	custom.Timeline.Transition = " FADE "
	custom.Theme.Background = "White"
	custom.Theme.Line = "#ABC"
	custom.Audio.ProbeTimeoutMs = 250
	custom.Audio.Dir = "~/narration"
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Timeline.FPS != 60 {
		t.Fatalf("expected fps 60, got %d", cfg.Timeline.FPS)
	}
	if cfg.Timeline.TitleBlockFrames != 90 {
		t.Fatalf("expected untouched defaults to survive, got %d", cfg.Timeline.TitleBlockFrames)
	}
	if cfg.Timeline.Transition != "fade" {
		t.Fatalf("expected normalized transition, got %q", cfg.Timeline.Transition)
	}
	if cfg.Theme.Background != "#ffffff" {
		t.Fatalf("expected named color to resolve, got %q", cfg.Theme.Background)
	}
	if cfg.Theme.Line != "#aabbcc" {
		t.Fatalf("expected short hex to expand, got %q", cfg.Theme.Line)
	}
	if cfg.ProbeTimeout() != 250*time.Millisecond {
		t.Fatalf("unexpected probe timeout: %s", cfg.ProbeTimeout())
	}
	if cfg.Audio.Dir != filepath.Join(tempHome, "narration") {
		t.Fatalf("expected expanded audio dir, got %q", cfg.Audio.Dir)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lower-cased format, got %q", cfg.Logging.Format)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"zero fps", "[timeline]\nfps = 0\n", "timeline.fps"},
		{"unknown transition", "[timeline]\ntransition = \"wipe\"\n", "timeline.transition"},
		{"multiplier below one", "[timeline]\nvisual_multiplier = 0.5\n", "visual_multiplier"},
		{"oversized transition", "[timeline]\ntransition_frames = 90\n", "transition_frames"},
		{"probe timeout", "[audio]\nprobe_timeout_ms = 0\n", "probe_timeout_ms"},
		{"log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"bad color", "[theme]\nprimary = \"notacolor\"\n", "theme.primary"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "explainer.toml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCreateSampleLoadsCleanly(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	def := config.Default()
	if cfg.Timing() != def.Timing() {
		t.Fatalf("sample timing diverges from defaults: %+v vs %+v", cfg.Timing(), def.Timing())
	}
	if cfg.Theme != def.Theme {
		t.Fatalf("sample theme diverges from defaults: %+v vs %+v", cfg.Theme, def.Theme)
	}
}

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"navy", "#000080", false},
		{" #FFF ", "#ffffff", false},
		{"#11223344", "#11223344", false},
		{"#12345", "", true},
		{"#zzzzzz", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := config.NormalizeColor(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeColor(%q) expected error, got %q", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeColor(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeColor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
