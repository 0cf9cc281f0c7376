// Package renderer turns raw section payloads into display-ready markup.
//
// It owns the rendering engines (diagram, code highlight, equation typeset),
// loads only the ones a batch needs, and dispatches every section through a
// table keyed by scene type. Render failures never escape a section: they
// come back as degraded outcomes.
package renderer

import (
	"context"
	"errors"

	"github.com/ivlev/explainer/internal/analyzer"
)

var (
	// ErrEngineUnavailable marks a section whose engine was not loaded.
	ErrEngineUnavailable = errors.New("rendering engine unavailable")
	// ErrLanguageNotLoaded marks code in a language the highlighter was not
	// initialized with.
	ErrLanguageNotLoaded = errors.New("language not loaded")
)

// Engine is a loaded rendering engine.
type Engine interface {
	Kind() analyzer.Engine
	// Close releases scratch state. It is safe to call more than once.
	Close() error
}

// DiagramResult is rendered diagram markup with its intrinsic size. Width and
// Height are zero when the size could not be measured.
type DiagramResult struct {
	Markup string
	Width  int
	Height int
}

// DiagramEngine renders mermaid source to SVG.
type DiagramEngine interface {
	Engine
	RenderDiagram(ctx context.Context, source string) (DiagramResult, error)
}

// CodeEngine highlights source code to HTML.
type CodeEngine interface {
	Engine
	Highlight(ctx context.Context, code, language string, highlightLines []int) (string, error)
	Languages() []string
}

// MathEngine typesets LaTeX to HTML without failing on invalid input.
type MathEngine interface {
	Engine
	Typeset(ctx context.Context, latex string) (string, error)
}

// Engines is the set of engines available to one run. A nil field means the
// engine was not required or failed to load.
type Engines struct {
	Diagram DiagramEngine
	Code    CodeEngine
	Math    MathEngine

	// Failures records why a required engine is unavailable.
	Failures map[analyzer.Engine]error
}

// Available reports whether engine e is loaded.
func (e *Engines) Available(kind analyzer.Engine) bool {
	if e == nil {
		return false
	}
	switch kind {
	case analyzer.EngineDiagram:
		return e.Diagram != nil
	case analyzer.EngineHighlight:
		return e.Code != nil
	case analyzer.EngineTypeset:
		return e.Math != nil
	}
	return false
}

// Close disposes every loaded engine.
func (e *Engines) Close() error {
	if e == nil {
		return nil
	}
	var errs []error
	for _, eng := range e.all() {
		if err := eng.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *Engines) all() []Engine {
	var out []Engine
	if e.Diagram != nil {
		out = append(out, e.Diagram)
	}
	if e.Code != nil {
		out = append(out, e.Code)
	}
	if e.Math != nil {
		out = append(out, e.Math)
	}
	return out
}

// set stores eng under its kind. It reports false when eng does not
// implement the interface its kind requires.
func (e *Engines) set(eng Engine) bool {
	switch eng.Kind() {
	case analyzer.EngineDiagram:
		if d, ok := eng.(DiagramEngine); ok {
			e.Diagram = d
			return true
		}
	case analyzer.EngineHighlight:
		if c, ok := eng.(CodeEngine); ok {
			e.Code = c
			return true
		}
	case analyzer.EngineTypeset:
		if m, ok := eng.(MathEngine); ok {
			e.Math = m
			return true
		}
	}
	return false
}
