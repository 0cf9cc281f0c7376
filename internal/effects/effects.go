package effects

import (
	"fmt"
	"strings"
)

// Presentations understood by the presentation layer.
const (
	Fade  = "fade"
	Slide = "slide"
)

// Transition variants accepted in configuration.
const (
	VariantAlternate = "alternate"
	VariantFade      = Fade
	VariantSlide     = Slide
)

// Effect defines the interface for transition effects
type Effect interface {
	// Presentation returns the presentation of the transition leading into
	// section slot. closing is set for the transition into the summary.
	Presentation(slot int, closing bool) string
}

// DefaultEffect alternates fade and slide between sections and always fades
// into the summary.
type DefaultEffect struct{}

// NewDefaultEffect creates a new DefaultEffect
func NewDefaultEffect() *DefaultEffect {
	return &DefaultEffect{}
}

// Presentation implements Effect.
func (e *DefaultEffect) Presentation(slot int, closing bool) string {
	if closing || slot%2 == 0 {
		return Fade
	}
	return Slide
}

// FixedEffect uses one presentation for every section transition. The closing
// transition still fades.
type FixedEffect struct {
	Kind string
}

// Presentation implements Effect.
func (e FixedEffect) Presentation(_ int, closing bool) string {
	if closing {
		return Fade
	}
	return e.Kind
}

// NewEffect resolves a configured transition variant.
func NewEffect(variant string) (Effect, error) {
	switch strings.ToLower(strings.TrimSpace(variant)) {
	case "", VariantAlternate:
		return NewDefaultEffect(), nil
	case VariantFade:
		return FixedEffect{Kind: Fade}, nil
	case VariantSlide:
		return FixedEffect{Kind: Slide}, nil
	default:
		return nil, fmt.Errorf("unknown transition variant %q", variant)
	}
}
