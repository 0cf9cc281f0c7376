package renderer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/google/uuid"

	"github.com/ivlev/explainer/internal/analyzer"
	"github.com/ivlev/explainer/internal/config"
)

// Measurer reports the intrinsic size of a rendered document.
type Measurer interface {
	Measure(path string) (width, height int, err error)
}

// FitzMeasurer measures the first page bounds with MuPDF.
type FitzMeasurer struct{}

func (FitzMeasurer) Measure(path string) (int, int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, 0, err
	}
	defer doc.Close()

	rect, err := doc.Bound(0)
	if err != nil {
		return 0, 0, err
	}
	return rect.Dx(), rect.Dy(), nil
}

// MermaidOptions configures the diagram engine.
type MermaidOptions struct {
	Binary     string
	ScratchDir string
	Theme      config.Theme
	// Measurer is optional; without it diagrams carry no intrinsic size.
	Measurer Measurer
}

// MermaidEngine renders diagrams through mermaid-cli.
type MermaidEngine struct {
	binary     string
	dir        string
	configPath string
	measure    Measurer

	mu     sync.RWMutex
	closed bool
}

// LoadMermaid verifies mermaid-cli and prepares a scratch directory holding
// the theme configuration.
func LoadMermaid(ctx context.Context, opts MermaidOptions) (*MermaidEngine, error) {
	path, err := resolveBinary(ctx, opts.Binary, "--version")
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(opts.ScratchDir, "explainer-mermaid-")
	if err != nil {
		return nil, fmt.Errorf("create mermaid scratch dir: %w", err)
	}

	data, err := json.Marshal(mermaidConfig(opts.Theme))
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("encode mermaid config: %w", err)
	}
	configPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("write mermaid config: %w", err)
	}

	return &MermaidEngine{
		binary:     path,
		dir:        dir,
		configPath: configPath,
		measure:    opts.Measurer,
	}, nil
}

func mermaidConfig(theme config.Theme) map[string]any {
	return map[string]any{
		"theme":      "base",
		"fontFamily": theme.FontFamily,
		"themeVariables": map[string]string{
			"background":         theme.Background,
			"primaryColor":       theme.Primary,
			"primaryTextColor":   theme.PrimaryText,
			"primaryBorderColor": theme.PrimaryBorder,
			"lineColor":          theme.Line,
			"secondaryColor":     theme.Secondary,
			"tertiaryColor":      theme.Tertiary,
			"fontFamily":         theme.FontFamily,
			"fontSize":           theme.FontSize,
		},
	}
}

func (m *MermaidEngine) Kind() analyzer.Engine { return analyzer.EngineDiagram }

// Dir is the scratch directory, removed on Close.
func (m *MermaidEngine) Dir() string { return m.dir }

// RenderDiagram renders source to SVG. Every call uses its own files, so
// calls may run concurrently.
func (m *MermaidEngine) RenderDiagram(ctx context.Context, source string) (DiagramResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return DiagramResult{}, ErrEngineUnavailable
	}

	id := uuid.NewString()
	in := filepath.Join(m.dir, id+".mmd")
	out := filepath.Join(m.dir, id+".svg")
	defer os.Remove(in)
	defer os.Remove(out)

	if err := os.WriteFile(in, []byte(source), 0o644); err != nil {
		return DiagramResult{}, fmt.Errorf("write diagram source: %w", err)
	}
	if _, err := run(ctx, m.binary, nil, "--quiet", "-i", in, "-o", out, "-c", m.configPath, "-b", "transparent"); err != nil {
		return DiagramResult{}, fmt.Errorf("mermaid render: %w", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return DiagramResult{}, fmt.Errorf("read rendered diagram: %w", err)
	}
	markup := strings.TrimSpace(string(data))
	if !strings.Contains(markup, "<svg") {
		return DiagramResult{}, errors.New("mermaid render: output is not svg")
	}

	result := DiagramResult{Markup: markup}
	if m.measure != nil {
		if w, h, err := m.measure.Measure(out); err == nil {
			result.Width, result.Height = w, h
		}
	}
	return result, nil
}

// Close removes the scratch directory. Renders still in flight finish first.
func (m *MermaidEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return os.RemoveAll(m.dir)
}
