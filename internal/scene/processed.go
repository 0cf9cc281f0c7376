package scene

// ProcessedDiagram is a rendered diagram.
type ProcessedDiagram struct {
	Markup  string `json:"svgString" yaml:"svgString"`
	Type    string `json:"type" yaml:"type"`
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`
	Width   int    `json:"width,omitempty" yaml:"width,omitempty"`
	Height  int    `json:"height,omitempty" yaml:"height,omitempty"`
}

// ProcessedCode is highlighted source code.
type ProcessedCode struct {
	Markup         string `json:"htmlString" yaml:"htmlString"`
	Language       string `json:"language" yaml:"language"`
	HighlightLines []int  `json:"highlightLines,omitempty" yaml:"highlightLines,omitempty"`
	Caption        string `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// ProcessedMath is a typeset expression.
type ProcessedMath struct {
	Markup  string `json:"htmlString" yaml:"htmlString"`
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// Visual carries at most one processed kind.
type Visual struct {
	Diagram *ProcessedDiagram
	Code    *ProcessedCode
	Math    *ProcessedMath
	Chart   *Chart
}

// Empty reports whether no kind is set.
func (v Visual) Empty() bool {
	return v.Diagram == nil && v.Code == nil && v.Math == nil && v.Chart == nil
}

// ProcessedSection is a section ready for composition.
type ProcessedSection struct {
	Title             string   `json:"title" yaml:"title"`
	Narration         string   `json:"narration" yaml:"narration"`
	KeyPoints         []string `json:"keyPoints" yaml:"keyPoints"`
	VisualDescription string   `json:"visualDescription,omitempty" yaml:"visualDescription,omitempty"`
	IconEmoji         string   `json:"iconEmoji" yaml:"iconEmoji"`
	DurationWeight    float64  `json:"durationWeight" yaml:"durationWeight"`
	SceneType         Type     `json:"sceneType" yaml:"sceneType"`

	Diagram *ProcessedDiagram `json:"processedDiagram,omitempty" yaml:"processedDiagram,omitempty"`
	Code    *ProcessedCode    `json:"processedCode,omitempty" yaml:"processedCode,omitempty"`
	Math    *ProcessedMath    `json:"processedMath,omitempty" yaml:"processedMath,omitempty"`
	Chart   *Chart            `json:"chart,omitempty" yaml:"chart,omitempty"`
}

// WithVisual attaches v, replacing any visual already present.
func (p ProcessedSection) WithVisual(v Visual) ProcessedSection {
	p.Diagram = v.Diagram
	p.Code = v.Code
	p.Math = v.Math
	p.Chart = v.Chart
	return p
}

// Visual returns the attached visual, if any.
func (p ProcessedSection) Visual() Visual {
	return Visual{Diagram: p.Diagram, Code: p.Code, Math: p.Math, Chart: p.Chart}
}

// Degrade drops any visual and turns the section into a plain text section.
// Narration and key points are kept.
func (p ProcessedSection) Degrade() ProcessedSection {
	p = p.WithVisual(Visual{})
	p.SceneType = TypeText
	return p
}

// AudioInfo is a materialized narration segment. Handle addresses the
// playable resource; it is only valid while the run that created it is live.
type AudioInfo struct {
	SectionIndex      int     `json:"sectionIndex" yaml:"sectionIndex"`
	Handle            string  `json:"handle" yaml:"handle"`
	DurationInSeconds float64 `json:"durationInSeconds" yaml:"durationInSeconds"`
	Measured          bool    `json:"measured" yaml:"measured"`
}
