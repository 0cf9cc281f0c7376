package director

import "github.com/ivlev/explainer/internal/scene"

// BlockKind names the role of a block in the timeline.
type BlockKind string

const (
	BlockTitle   BlockKind = "title"
	BlockSection BlockKind = "section"
	BlockSummary BlockKind = "summary"
)

// Block is one contiguous stretch of the video.
type Block struct {
	Kind        BlockKind  `yaml:"kind" json:"kind"`
	Index       int        `yaml:"index" json:"index"` // section index, -1 for bookends
	Title       string     `yaml:"title,omitempty" json:"title,omitempty"`
	SceneType   scene.Type `yaml:"sceneType,omitempty" json:"sceneType,omitempty"`
	StartFrame  int        `yaml:"startFrame" json:"startFrame"`
	Frames      int        `yaml:"frames" json:"frames"`
	AudioDriven bool       `yaml:"audioDriven,omitempty" json:"audioDriven,omitempty"`
}

// Transition overlaps the end of one block with the start of the next.
type Transition struct {
	Into         int    `yaml:"into" json:"into"` // position in Blocks of the incoming block
	StartFrame   int    `yaml:"startFrame" json:"startFrame"`
	Frames       int    `yaml:"frames" json:"frames"`
	Presentation string `yaml:"presentation" json:"presentation"`
}

// Timeline is the frame plan of a whole video.
type Timeline struct {
	FPS           int          `yaml:"fps" json:"fps"`
	Blocks        []Block      `yaml:"blocks" json:"blocks"`
	Transitions   []Transition `yaml:"transitions" json:"transitions"`
	SectionFrames []int        `yaml:"sectionFrames" json:"perSectionFrames"`
	TotalFrames   int          `yaml:"totalFrames" json:"totalFrames"`
}

// Seconds is the total running time.
func (t Timeline) Seconds() float64 {
	if t.FPS <= 0 {
		return 0
	}
	return float64(t.TotalFrames) / float64(t.FPS)
}

// Plan is a compiled timeline saved for the presentation layer.
type Plan struct {
	Version  string   `yaml:"version"`
	Topic    string   `yaml:"topic"`
	Width    int      `yaml:"width"`
	Height   int      `yaml:"height"`
	Timeline Timeline `yaml:"timeline"`
}

// PlanVersion is written into every saved plan.
const PlanVersion = "1.0"

// NewPlan wraps a timeline.
func NewPlan(topic string, width, height int, tl Timeline) *Plan {
	return &Plan{Version: PlanVersion, Topic: topic, Width: width, Height: height, Timeline: tl}
}
