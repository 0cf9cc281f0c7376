package effects

import "github.com/ivlev/explainer/internal/director"

// PlanEffect replays the transitions of a saved plan so a rebuilt video keeps
// the presentation choices made earlier.
type PlanEffect struct {
	Plan     *director.Plan
	Fallback Effect
}

// NewPlanEffect creates a new PlanEffect. Slots missing from the plan use
// fallback, or DefaultEffect when fallback is nil.
func NewPlanEffect(plan *director.Plan, fallback Effect) *PlanEffect {
	if fallback == nil {
		fallback = NewDefaultEffect()
	}
	return &PlanEffect{Plan: plan, Fallback: fallback}
}

// Presentation implements Effect.
func (e *PlanEffect) Presentation(slot int, closing bool) string {
	if closing {
		return Fade
	}
	if e.Plan == nil {
		return e.Fallback.Presentation(slot, closing)
	}

	transitions := e.Plan.Timeline.Transitions
	// The closing transition is the last one; only section transitions replay.
	if slot >= 0 && slot < len(transitions)-1 {
		switch p := transitions[slot].Presentation; p {
		case Fade, Slide:
			return p
		}
	}
	return e.Fallback.Presentation(slot, closing)
}
