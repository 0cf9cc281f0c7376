package engine

import (
	"github.com/ivlev/explainer/internal/director"
	"github.com/ivlev/explainer/internal/renderer"
	"github.com/ivlev/explainer/internal/scene"
)

// Result is everything the presentation layer needs to compose a video.
// Audio handles stay valid only while the run that produced them is live.
type Result struct {
	Topic                 string  `json:"topic"`
	Summary               string  `json:"summary"`
	TotalDurationEstimate float64 `json:"totalDurationEstimate"`

	Sections []scene.ProcessedSection `json:"processedSections"`
	Audio    []scene.AudioInfo        `json:"processedAudio"`
	Outcomes []renderer.Outcome       `json:"-"`

	Timeline         director.Timeline `json:"timeline"`
	PerSectionFrames []int             `json:"perSectionFrames"`
	TotalFrames      int               `json:"totalFrames"`

	FPS    int `json:"fps"`
	Width  int `json:"width"`
	Height int `json:"height"`

	ShareCode string `json:"shareCode,omitempty"`
}

// Degraded counts sections that fell back to text.
func (r *Result) Degraded() int {
	if r == nil {
		return 0
	}
	return renderer.Count(r.Outcomes, renderer.Degraded)
}

// Plan wraps the timeline for saving.
func (r *Result) Plan() *director.Plan {
	return director.NewPlan(r.Topic, r.Width, r.Height, r.Timeline)
}
