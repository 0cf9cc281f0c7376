package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/explainer/internal/logging"
	"github.com/ivlev/explainer/internal/scene"
)

// OutcomeKind tags how a section left the materializer.
type OutcomeKind int

const (
	// Plain: nothing to render, the section passed through unchanged.
	Plain OutcomeKind = iota
	// Rendered: a visual is attached.
	Rendered
	// Degraded: rendering failed and the section became text.
	Degraded
)

func (k OutcomeKind) String() string {
	switch k {
	case Rendered:
		return "rendered"
	case Degraded:
		return "degraded"
	default:
		return "plain"
	}
}

// Outcome is the result for one section.
type Outcome struct {
	Kind    OutcomeKind
	Section scene.ProcessedSection
	// Err is the cause of a Degraded outcome.
	Err error
}

var errNoVisual = errors.New("renderer returned no visual")

// Materializer renders every section of a batch through a Table.
type Materializer struct {
	table   Table
	timeout time.Duration
	workers int
	logger  *slog.Logger
}

// MaterializerOption customizes a Materializer.
type MaterializerOption func(*Materializer)

// WithRenderTimeout bounds each render call.
func WithRenderTimeout(d time.Duration) MaterializerOption {
	return func(m *Materializer) { m.timeout = d }
}

// WithWorkers limits how many sections render at once. Zero means no limit.
func WithWorkers(n int) MaterializerOption {
	return func(m *Materializer) { m.workers = n }
}

// WithMaterializerLogger sets the logger used for degrade warnings.
func WithMaterializerLogger(logger *slog.Logger) MaterializerOption {
	return func(m *Materializer) {
		m.logger = logging.NewComponentLogger(logger, "materializer")
	}
}

// NewMaterializer creates a materializer dispatching through table.
func NewMaterializer(table Table, opts ...MaterializerOption) *Materializer {
	m := &Materializer{table: table, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Materialize processes sections concurrently and returns one outcome per
// section, in input order. Render failures are contained in their outcome;
// the only error is cancellation of ctx.
func (m *Materializer) Materialize(ctx context.Context, sections []scene.Section) ([]Outcome, error) {
	outcomes := make([]Outcome, len(sections))

	var g errgroup.Group
	if m.workers > 0 {
		g.SetLimit(m.workers)
	}
	for i := range sections {
		i := i
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = m.materializeOne(ctx, i, sections[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (m *Materializer) materializeOne(ctx context.Context, index int, s scene.Section) (out Outcome) {
	base := s.Strip()

	renderer, ok := m.table.Lookup(base.SceneType)
	if !ok || !renderer.Accepts(s) {
		return Outcome{Kind: Plain, Section: base}
	}

	defer func() {
		if r := recover(); r != nil {
			out = m.degrade(index, base, fmt.Errorf("render panicked: %v", r))
		}
	}()

	rctx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	visual, err := renderer.Render(rctx, s)
	if err == nil && visual.Empty() {
		err = errNoVisual
	}
	if err != nil {
		return m.degrade(index, base, err)
	}
	return Outcome{Kind: Rendered, Section: base.WithVisual(visual)}
}

func (m *Materializer) degrade(index int, base scene.ProcessedSection, err error) Outcome {
	m.logger.Warn("section render failed, falling back to text",
		logging.Int(logging.FieldSectionIndex, index),
		logging.String(logging.FieldSceneType, string(base.SceneType)),
		logging.Error(err),
	)
	return Outcome{Kind: Degraded, Section: base.Degrade(), Err: err}
}

// Sections extracts the processed sections of outcomes.
func Sections(outcomes []Outcome) []scene.ProcessedSection {
	out := make([]scene.ProcessedSection, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Section
	}
	return out
}

// Count returns how many outcomes are of kind k.
func Count(outcomes []Outcome, k OutcomeKind) int {
	n := 0
	for _, o := range outcomes {
		if o.Kind == k {
			n++
		}
	}
	return n
}
