package director

import (
	"math"

	"github.com/ivlev/explainer/internal/config"
	"github.com/ivlev/explainer/internal/scene"
)

// TransitionChooser picks the presentation of each transition. slot is the
// zero-based section a transition leads into; closing marks the transition
// into the summary block.
type TransitionChooser interface {
	Presentation(slot int, closing bool) string
}

// Director compiles frame-accurate timelines from processed sections.
type Director struct {
	Timing  config.Timing
	Chooser TransitionChooser
}

// NewDirector creates a Director. A nil chooser fades every transition.
func NewDirector(timing config.Timing, chooser TransitionChooser) *Director {
	return &Director{Timing: timing, Chooser: chooser}
}

// SectionFrames returns the frame count of one section. Narration, when
// present, dictates the length plus a buffer; otherwise the weight does,
// stretched for visually dense scenes. The second result reports whether
// audio drove the length.
func (d *Director) SectionFrames(section scene.ProcessedSection, audio *scene.AudioInfo) (int, bool) {
	t := d.Timing
	if audio != nil && audio.DurationInSeconds > 0 {
		return int(math.Ceil(audio.DurationInSeconds*float64(t.FPS))) + t.AudioBufferFrames, true
	}

	weight := section.DurationWeight
	if weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		weight = 1
	}
	multiplier := 1.0
	if section.SceneType.Visual() {
		multiplier = t.VisualMultiplier
	}
	return int(math.Round(float64(t.BaseSectionFrames) * weight * multiplier)), false
}

// Compile lays out title, sections and summary back to back. Each
// transition overlaps the two blocks it connects, so the total is
// title + sections + summary - (sections+1) * transition.
func (d *Director) Compile(sections []scene.ProcessedSection, audio []scene.AudioInfo) Timeline {
	t := d.Timing
	byIndex := indexAudio(audio)

	tl := Timeline{
		FPS:           t.FPS,
		SectionFrames: make([]int, len(sections)),
		Blocks:        make([]Block, 0, len(sections)+2),
		Transitions:   make([]Transition, 0, len(sections)+1),
	}

	tl.Blocks = append(tl.Blocks, Block{Kind: BlockTitle, Index: -1, Frames: t.TitleBlockFrames})
	for i, s := range sections {
		frames, audioDriven := d.SectionFrames(s, byIndex[i])
		tl.SectionFrames[i] = frames
		tl.Blocks = append(tl.Blocks, Block{
			Kind:        BlockSection,
			Index:       i,
			Title:       s.Title,
			SceneType:   s.SceneType,
			Frames:      frames,
			AudioDriven: audioDriven,
		})
	}
	tl.Blocks = append(tl.Blocks, Block{Kind: BlockSummary, Index: -1, Frames: t.SummaryBlockFrames})

	for i := 1; i < len(tl.Blocks); i++ {
		prev := tl.Blocks[i-1]
		start := prev.StartFrame + prev.Frames - t.TransitionFrames
		tl.Blocks[i].StartFrame = start

		closing := i == len(tl.Blocks)-1
		tl.Transitions = append(tl.Transitions, Transition{
			Into:         i,
			StartFrame:   start,
			Frames:       t.TransitionFrames,
			Presentation: d.presentation(i-1, closing),
		})
	}

	last := tl.Blocks[len(tl.Blocks)-1]
	tl.TotalFrames = last.StartFrame + last.Frames
	return tl
}

func (d *Director) presentation(slot int, closing bool) string {
	if d.Chooser == nil {
		return "fade"
	}
	return d.Chooser.Presentation(slot, closing)
}

// indexAudio keys audio by section index. The first segment for an index wins.
func indexAudio(audio []scene.AudioInfo) map[int]*scene.AudioInfo {
	byIndex := make(map[int]*scene.AudioInfo, len(audio))
	for i := range audio {
		if _, ok := byIndex[audio[i].SectionIndex]; !ok {
			byIndex[audio[i].SectionIndex] = &audio[i]
		}
	}
	return byIndex
}
