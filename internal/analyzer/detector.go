package analyzer

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ivlev/explainer/internal/scene"
)

// Engine identifies a rendering engine a batch may need.
type Engine string

const (
	EngineDiagram   Engine = "diagram"
	EngineHighlight Engine = "highlight"
	EngineTypeset   Engine = "typeset"
)

// AllEngines lists every engine in load order.
var AllEngines = []Engine{EngineDiagram, EngineHighlight, EngineTypeset}

// Requirements is the set of engines a batch needs, plus the distinct
// language tags its code sections reference.
type Requirements struct {
	Diagram   bool
	Highlight bool
	Typeset   bool
	Languages []string
}

// Needs reports whether engine e is required.
func (r Requirements) Needs(e Engine) bool {
	switch e {
	case EngineDiagram:
		return r.Diagram
	case EngineHighlight:
		return r.Highlight
	case EngineTypeset:
		return r.Typeset
	}
	return false
}

// Engines returns the required engines in load order.
func (r Requirements) Engines() []Engine {
	var out []Engine
	for _, e := range AllEngines {
		if r.Needs(e) {
			out = append(out, e)
		}
	}
	return out
}

// Empty reports whether no engine is required.
func (r Requirements) Empty() bool {
	return !r.Diagram && !r.Highlight && !r.Typeset
}

// Detector is the interface for capability detection strategies.
type Detector interface {
	Detect(sections []scene.Section) Requirements
}

// ScanDetector requires an engine only when at least one section both asks
// for it and carries a non-empty payload for it.
type ScanDetector struct{}

// NewScanDetector creates the default detector.
func NewScanDetector() *ScanDetector {
	return &ScanDetector{}
}

// Detect scans sections. It has no side effects and never fails.
func (d *ScanDetector) Detect(sections []scene.Section) Requirements {
	var req Requirements
	langs := make(map[string]struct{})

	for _, s := range sections {
		switch scene.ParseType(string(s.SceneType)) {
		case scene.TypeDiagram, scene.TypeSplit:
			if s.HasDiagram() {
				req.Diagram = true
			}
		case scene.TypeCode:
			if s.HasCode() {
				req.Highlight = true
				if lang := NormalizeLanguage(s.CodeBlock.Language); lang != "" {
					langs[lang] = struct{}{}
				}
			}
		case scene.TypeMath:
			if s.HasMath() {
				req.Typeset = true
			}
		}
	}

	req.Languages = sortedKeys(langs)
	return req
}

// EagerDetector requires every engine regardless of content. It backs
// engine warm-up checks.
type EagerDetector struct {
	Languages []string
}

// Detect returns every engine plus the scanned and configured languages.
func (d *EagerDetector) Detect(sections []scene.Section) Requirements {
	req := NewScanDetector().Detect(sections)
	langs := make(map[string]struct{}, len(req.Languages)+len(d.Languages))
	for _, l := range append(req.Languages, d.Languages...) {
		if l = NormalizeLanguage(l); l != "" {
			langs[l] = struct{}{}
		}
	}
	return Requirements{Diagram: true, Highlight: true, Typeset: true, Languages: sortedKeys(langs)}
}

var lower = cases.Lower(language.Und)

// NormalizeLanguage case-normalizes a code language tag.
func NormalizeLanguage(tag string) string {
	return lower.String(strings.TrimSpace(tag))
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
