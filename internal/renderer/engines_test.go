package renderer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/explainer/internal/config"
)

const mermaidStub = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "10.9.1"
  exit 0
fi
in=""
out=""
while [ $# -gt 0 ]; do
  case "$1" in
    -i) in="$2"; shift ;;
    -o) out="$2"; shift ;;
  esac
  shift
done
if grep -q INVALID "$in"; then
  echo "Parse error on line 1" >&2
  exit 1
fi
printf '<svg xmlns="http://www.w3.org/2000/svg" width="120" height="80"><g>%s</g></svg>' "$(cat "$in")" > "$out"
`

const katexStub = `#!/bin/sh
if [ "$1" = "--version" ]; then
  echo "0.16.9"
  exit 0
fi
printf '<span class="katex-display" data-args="%s">' "$*"
cat
printf '</span>'
`

func writeStub(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

type fixedMeasurer struct{ w, h int }

func (m fixedMeasurer) Measure(string) (int, int, error) { return m.w, m.h, nil }

func TestMermaidEngineRendersAndCleansUp(t *testing.T) {
	binary := writeStub(t, "mmdc", mermaidStub)
	scratch := t.TempDir()

	eng, err := LoadMermaid(context.Background(), MermaidOptions{
		Binary:     binary,
		ScratchDir: scratch,
		Theme:      config.Default().Theme,
		Measurer:   fixedMeasurer{w: 120, h: 80},
	})
	if err != nil {
		t.Fatalf("LoadMermaid: %v", err)
	}

	cfgData, err := os.ReadFile(filepath.Join(eng.Dir(), "config.json"))
	if err != nil {
		t.Fatalf("read theme config: %v", err)
	}
	if !strings.Contains(string(cfgData), `"primaryColor":"#e9f3ff"`) {
		t.Fatalf("theme not written to config: %s", cfgData)
	}

	res, err := eng.RenderDiagram(context.Background(), "graph TD; A-->B")
	if err != nil {
		t.Fatalf("RenderDiagram: %v", err)
	}
	if !strings.HasPrefix(res.Markup, "<svg") || !strings.Contains(res.Markup, "A-->B") {
		t.Fatalf("unexpected markup: %s", res.Markup)
	}
	if res.Width != 120 || res.Height != 80 {
		t.Fatalf("expected measured size, got %dx%d", res.Width, res.Height)
	}

	entries, err := os.ReadDir(eng.Dir())
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only config.json to remain, got %d entries", len(entries))
	}

	if _, err := eng.RenderDiagram(context.Background(), "INVALID"); err == nil || !strings.Contains(err.Error(), "Parse error") {
		t.Fatalf("expected parse error, got %v", err)
	}

	if err := eng.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := os.Stat(eng.Dir()); !os.IsNotExist(err) {
		t.Fatalf("scratch dir should be removed, stat err = %v", err)
	}
	if _, err := eng.RenderDiagram(context.Background(), "graph TD; A"); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("render after close should fail with ErrEngineUnavailable, got %v", err)
	}
}

func TestLoadMermaidMissingBinary(t *testing.T) {
	_, err := LoadMermaid(context.Background(), MermaidOptions{Binary: "clearly-not-present-mmdc"})
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestKatexEngine(t *testing.T) {
	binary := writeStub(t, "katex", katexStub)
	eng, err := LoadKatex(context.Background(), binary, "#cc0000")
	if err != nil {
		t.Fatalf("LoadKatex: %v", err)
	}
	out, err := eng.Typeset(context.Background(), `\frac{a}{b}`)
	if err != nil {
		t.Fatalf("Typeset: %v", err)
	}
	if !strings.Contains(out, `\frac{a}{b}`) {
		t.Fatalf("expression not passed on stdin: %s", out)
	}
	for _, flag := range []string{"--display-mode", "--no-throw-on-error", "--error-color cc0000"} {
		if !strings.Contains(out, flag) {
			t.Fatalf("expected %q in invocation, got %s", flag, out)
		}
	}
	_ = eng.Close()
	if _, err := eng.Typeset(context.Background(), "x"); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable after close, got %v", err)
	}
}

func TestHighlighter(t *testing.T) {
	h, err := LoadHighlighter(context.Background(), []string{"Go", " python "}, "github")
	if err != nil {
		t.Fatalf("LoadHighlighter: %v", err)
	}
	out, err := h.Highlight(context.Background(), "package main\n\nfunc main() {}\n", "GO", []int{3})
	if err != nil {
		t.Fatalf("Highlight: %v", err)
	}
	if !strings.Contains(out, "<pre") || !strings.Contains(out, "main") {
		t.Fatalf("unexpected markup: %s", out)
	}
	if _, err := h.Highlight(context.Background(), "fn main() {}", "rust", nil); !errors.Is(err, ErrLanguageNotLoaded) {
		t.Fatalf("expected ErrLanguageNotLoaded, got %v", err)
	}
	if _, err := LoadHighlighter(context.Background(), []string{"definitely-not-a-language"}, "github"); !errors.Is(err, ErrLanguageNotLoaded) {
		t.Fatalf("expected load failure, got %v", err)
	}
	_ = h.Close()
	if _, err := h.Highlight(context.Background(), "x", "go", nil); !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable after close, got %v", err)
	}
}

func TestShareCode(t *testing.T) {
	theme := config.Default().Theme
	svg, err := ShareCode("https://example.com/watch/42", theme)
	if err != nil {
		t.Fatalf("ShareCode: %v", err)
	}
	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("unexpected svg: %.80s", svg)
	}
	if !strings.Contains(svg, theme.PrimaryText) || !strings.Contains(svg, "h1v1h-1z") {
		t.Fatalf("expected dark modules in primary text color")
	}
	if _, err := ShareCode("  ", theme); err == nil {
		t.Fatal("expected error for empty url")
	}
}
