package renderer

import (
	"context"

	"github.com/ivlev/explainer/internal/scene"
)

// Renderer produces the visual of one section.
type Renderer interface {
	// Accepts reports whether s carries the payload this renderer consumes.
	Accepts(s scene.Section) bool
	Render(ctx context.Context, s scene.Section) (scene.Visual, error)
}

// Table maps a scene type onto its renderer. Types without an entry are
// passed through as plain sections.
type Table map[scene.Type]Renderer

// NewTable builds the dispatch table over the loaded engines. Engines that
// failed to load keep their entry; their sections degrade.
func NewTable(engines *Engines) Table {
	if engines == nil {
		engines = &Engines{}
	}
	diagram := diagramRenderer{engine: engines.Diagram}
	return Table{
		scene.TypeDiagram: diagram,
		scene.TypeSplit:   diagram,
		scene.TypeCode:    codeRenderer{engine: engines.Code},
		scene.TypeMath:    mathRenderer{engine: engines.Math},
		scene.TypeChart:   chartRenderer{},
	}
}

// Lookup returns the renderer for t.
func (t Table) Lookup(typ scene.Type) (Renderer, bool) {
	r, ok := t[typ]
	return r, ok && r != nil
}

type diagramRenderer struct {
	engine DiagramEngine
}

func (r diagramRenderer) Accepts(s scene.Section) bool { return s.HasDiagram() }

func (r diagramRenderer) Render(ctx context.Context, s scene.Section) (scene.Visual, error) {
	if r.engine == nil {
		return scene.Visual{}, ErrEngineUnavailable
	}
	res, err := r.engine.RenderDiagram(ctx, s.Diagram.MermaidCode)
	if err != nil {
		return scene.Visual{}, err
	}
	return scene.Visual{Diagram: &scene.ProcessedDiagram{
		Markup:  res.Markup,
		Type:    s.Diagram.Type,
		Caption: s.Diagram.Caption,
		Width:   res.Width,
		Height:  res.Height,
	}}, nil
}

type codeRenderer struct {
	engine CodeEngine
}

func (r codeRenderer) Accepts(s scene.Section) bool { return s.HasCode() }

func (r codeRenderer) Render(ctx context.Context, s scene.Section) (scene.Visual, error) {
	if r.engine == nil {
		return scene.Visual{}, ErrEngineUnavailable
	}
	block := s.CodeBlock
	markup, err := r.engine.Highlight(ctx, block.Code, block.Language, block.HighlightLines)
	if err != nil {
		return scene.Visual{}, err
	}
	return scene.Visual{Code: &scene.ProcessedCode{
		Markup:         markup,
		Language:       block.Language,
		HighlightLines: block.HighlightLines,
		Caption:        block.Caption,
	}}, nil
}

type mathRenderer struct {
	engine MathEngine
}

func (r mathRenderer) Accepts(s scene.Section) bool { return s.HasMath() }

func (r mathRenderer) Render(ctx context.Context, s scene.Section) (scene.Visual, error) {
	if r.engine == nil {
		return scene.Visual{}, ErrEngineUnavailable
	}
	markup, err := r.engine.Typeset(ctx, s.Math.Latex)
	if err != nil {
		return scene.Visual{}, err
	}
	return scene.Visual{Math: &scene.ProcessedMath{Markup: markup, Caption: s.Math.Caption}}, nil
}

// chartRenderer hands chart data through untouched; it is drawn downstream.
type chartRenderer struct{}

func (chartRenderer) Accepts(s scene.Section) bool { return s.HasChart() }

func (chartRenderer) Render(_ context.Context, s scene.Section) (scene.Visual, error) {
	return scene.Visual{Chart: s.Chart}, nil
}
