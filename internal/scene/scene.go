// Package scene holds the section and audio data exchanged between the
// content planner, the materializers and the presentation layer.
package scene

import "strings"

// Type is the content category of a section.
type Type string

const (
	TypeText    Type = "text"
	TypeDiagram Type = "diagram"
	TypeCode    Type = "code"
	TypeMath    Type = "math"
	TypeChart   Type = "chart"
	TypeSplit   Type = "split"
)

// ParseType maps a raw tag onto a known scene type. Unknown and empty tags
// become text, matching the planner's default.
func ParseType(raw string) Type {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeDiagram:
		return TypeDiagram
	case TypeCode:
		return TypeCode
	case TypeMath:
		return TypeMath
	case TypeChart:
		return TypeChart
	case TypeSplit:
		return TypeSplit
	default:
		return TypeText
	}
}

// Visual reports whether the scene type is visually dense and earns extra
// dwell time when no narration audio is available.
func (t Type) Visual() bool {
	switch t {
	case TypeDiagram, TypeCode, TypeMath, TypeChart:
		return true
	}
	return false
}

// Diagram is the raw diagram payload (mermaid source).
type Diagram struct {
	Type        string `json:"type" yaml:"type"` // flowchart, sequence, mindmap, graph
	MermaidCode string `json:"mermaidCode" yaml:"mermaidCode"`
	Caption     string `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// CodeBlock is the raw code payload.
type CodeBlock struct {
	Language       string `json:"language" yaml:"language"`
	Code           string `json:"code" yaml:"code"`
	HighlightLines []int  `json:"highlightLines,omitempty" yaml:"highlightLines,omitempty"`
	Caption        string `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// Math is the raw equation payload (LaTeX source).
type Math struct {
	Latex   string `json:"latex" yaml:"latex"`
	Caption string `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// ChartItem is one labeled value of a chart.
type ChartItem struct {
	Label string  `json:"label" yaml:"label"`
	Value float64 `json:"value" yaml:"value"`
	Color string  `json:"color,omitempty" yaml:"color,omitempty"`
}

// Chart is drawn procedurally downstream, so it is never rendered here.
type Chart struct {
	Type    string      `json:"type" yaml:"type"` // bar, pie, comparison
	Title   string      `json:"title,omitempty" yaml:"title,omitempty"`
	Items   []ChartItem `json:"items" yaml:"items"`
	Caption string      `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// Section is one planned section of the video. It is read-only input.
type Section struct {
	Title             string   `json:"title" yaml:"title"`
	Narration         string   `json:"narration" yaml:"narration"`
	KeyPoints         []string `json:"keyPoints" yaml:"keyPoints"`
	VisualDescription string   `json:"visualDescription,omitempty" yaml:"visualDescription,omitempty"`
	IconEmoji         string   `json:"iconEmoji" yaml:"iconEmoji"`
	DurationWeight    float64  `json:"durationWeight" yaml:"durationWeight"`
	SceneType         Type     `json:"sceneType" yaml:"sceneType"`

	Diagram   *Diagram   `json:"diagram,omitempty" yaml:"diagram,omitempty"`
	CodeBlock *CodeBlock `json:"codeBlock,omitempty" yaml:"codeBlock,omitempty"`
	Math      *Math      `json:"math,omitempty" yaml:"math,omitempty"`
	Chart     *Chart     `json:"chart,omitempty" yaml:"chart,omitempty"`
}

// HasDiagram reports whether a non-empty diagram source is present.
func (s Section) HasDiagram() bool {
	return s.Diagram != nil && strings.TrimSpace(s.Diagram.MermaidCode) != ""
}

// HasCode reports whether non-empty source code is present.
func (s Section) HasCode() bool {
	return s.CodeBlock != nil && strings.TrimSpace(s.CodeBlock.Code) != ""
}

// HasMath reports whether a non-empty expression is present.
func (s Section) HasMath() bool {
	return s.Math != nil && strings.TrimSpace(s.Math.Latex) != ""
}

// HasChart reports whether chart data is present.
func (s Section) HasChart() bool {
	return s.Chart != nil
}

// Strip drops the raw content payloads and returns the plain processed form.
func (s Section) Strip() ProcessedSection {
	return ProcessedSection{
		Title:             s.Title,
		Narration:         s.Narration,
		KeyPoints:         s.KeyPoints,
		VisualDescription: s.VisualDescription,
		IconEmoji:         s.IconEmoji,
		DurationWeight:    s.DurationWeight,
		SceneType:         ParseType(string(s.SceneType)),
	}
}

// VideoData is the planner's structured description of the whole video.
type VideoData struct {
	Topic                 string    `json:"topic" yaml:"topic"`
	Summary               string    `json:"summary" yaml:"summary"`
	TotalDurationEstimate float64   `json:"totalDurationEstimate" yaml:"totalDurationEstimate"`
	Sections              []Section `json:"sections" yaml:"sections"`
}

// AudioSegment is the raw narration audio of one section.
type AudioSegment struct {
	SectionIndex        int    `json:"sectionIndex" yaml:"sectionIndex"`
	EncodedAudio        string `json:"base64Audio" yaml:"base64Audio"`
	EstimatedDurationMs int64  `json:"durationMs" yaml:"durationMs"`
}

// EstimatedSeconds is the server-side duration estimate in seconds.
func (a AudioSegment) EstimatedSeconds() float64 {
	return float64(a.EstimatedDurationMs) / 1000
}

// GenerationResult is one immutable input batch.
type GenerationResult struct {
	VideoData     VideoData      `json:"videoData" yaml:"videoData"`
	AudioSegments []AudioSegment `json:"audioSegments" yaml:"audioSegments"`
}
