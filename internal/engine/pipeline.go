// Package engine sequences detection, engine loading, section and audio
// materialization and timeline compilation for one generation result at a
// time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/explainer/internal/analyzer"
	"github.com/ivlev/explainer/internal/audio"
	"github.com/ivlev/explainer/internal/config"
	"github.com/ivlev/explainer/internal/director"
	"github.com/ivlev/explainer/internal/effects"
	"github.com/ivlev/explainer/internal/logging"
	"github.com/ivlev/explainer/internal/renderer"
	"github.com/ivlev/explainer/internal/resource"
	"github.com/ivlev/explainer/internal/scene"
	"github.com/ivlev/explainer/internal/system"
)

var (
	// ErrNoInput is returned when there is no generation result to work on.
	ErrNoInput = errors.New("no input submitted")
	// ErrNotFailed is returned by Retry unless the pipeline is in Failed.
	ErrNotFailed = errors.New("pipeline has not failed")
	// ErrRunFailed wraps the message of a failed run.
	ErrRunFailed = errors.New("run failed")
)

// EngineLoader loads the rendering engines a batch requires.
type EngineLoader interface {
	Load(ctx context.Context, req analyzer.Requirements, scope *resource.Scope) (*renderer.Engines, error)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithLoader replaces the production engine loader.
func WithLoader(loader EngineLoader) Option {
	return func(p *Pipeline) { p.loader = loader }
}

// WithProber replaces ffprobe for audio measurement.
func WithProber(prober audio.Prober) Option {
	return func(p *Pipeline) { p.prober = prober }
}

// WithEffect overrides the configured transition variant.
func WithEffect(effect effects.Effect) Option {
	return func(p *Pipeline) { p.effect = effect }
}

// WithDetector replaces the capability detector.
func WithDetector(detector analyzer.Detector) Option {
	return func(p *Pipeline) { p.detector = detector }
}

// WithOnChange registers a callback receiving every state change in order.
// The callback may call Snapshot but must not call Submit, Retry or Detach.
func WithOnChange(fn func(Snapshot)) Option {
	return func(p *Pipeline) { p.onChange = fn }
}

type run struct {
	id     string
	input  *scene.GenerationResult
	ctx    context.Context
	cancel context.CancelFunc
	scope  *resource.Scope
}

type stage int

const (
	stageVisuals stage = iota
	stageAudio
)

// Pipeline is the orchestrator state machine. One run is current at a time;
// a new input cancels the current run and releases its resources.
type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	log      *slog.Logger
	detector analyzer.Detector
	loader   EngineLoader
	prober   audio.Prober
	effect   effects.Effect
	onChange func(Snapshot)

	audio    *audio.Materializer
	director *director.Director
	workers  int

	// notifyMu serializes state changes with their callbacks. It is always
	// taken before mu.
	notifyMu sync.Mutex
	mu       sync.Mutex
	state    State
	message  string
	result   *Result
	current  *run
	visuals  bool
	narrated bool
	changed  chan struct{}
}

// NewPipeline creates a pipeline in the Idle state.
func NewPipeline(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: nil config")
	}
	p := &Pipeline{
		cfg:      cfg,
		logger:   logging.NewNop(),
		detector: analyzer.NewScanDetector(),
		prober:   audio.FFprobe{Binary: cfg.Audio.FFprobeBinary},
		changed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.effect == nil {
		effect, err := effects.NewEffect(cfg.Timeline.Transition)
		if err != nil {
			return nil, err
		}
		p.effect = effect
	}
	if p.loader == nil {
		p.loader = renderer.NewLoader(cfg, renderer.WithLoaderLogger(p.logger))
	}

	p.log = logging.NewComponentLogger(p.logger, "pipeline")
	p.workers = system.ResolveWorkers(cfg.Engines.Workers)
	p.audio = audio.NewMaterializer(p.prober,
		audio.WithProbeTimeout(cfg.ProbeTimeout()),
		audio.WithDir(cfg.Audio.Dir),
		audio.WithWorkers(p.workers),
		audio.WithLogger(p.logger),
	)
	p.director = director.NewDirector(cfg.Timing(), p.effect)
	return p, nil
}

// Submit starts processing input. Any current run is cancelled and its
// resources released. Submitting the input the current run already holds
// is a no-op.
func (p *Pipeline) Submit(input *scene.GenerationResult) error {
	if input == nil {
		return ErrNoInput
	}

	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if p.current != nil && p.current.input == input {
		p.mu.Unlock()
		return nil
	}
	stale := p.current
	r := p.startLocked(input)
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.retire(stale)
	p.emit(snap)
	go p.execute(r)
	return nil
}

// Retry restarts the last input after a failure.
func (p *Pipeline) Retry() error {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if p.state != Failed || p.current == nil {
		p.mu.Unlock()
		return ErrNotFailed
	}
	stale := p.current
	r := p.startLocked(stale.input)
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.retire(stale)
	p.emit(snap)
	go p.execute(r)
	return nil
}

// Detach cancels the current run, releases its resources and returns the
// pipeline to Idle.
func (p *Pipeline) Detach() {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	stale := p.current
	if stale == nil && p.state == Idle {
		p.mu.Unlock()
		return
	}
	p.current = nil
	p.state = Idle
	p.message = ""
	p.result = nil
	p.visuals, p.narrated = false, false
	p.signalLocked()
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.retire(stale)
	p.emit(snap)
}

// Snapshot returns the current state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Await blocks until the pipeline leaves Processing. It returns ErrNoInput
// in Idle and wraps ErrRunFailed in Failed.
func (p *Pipeline) Await(ctx context.Context) (Snapshot, error) {
	for {
		p.mu.Lock()
		snap := p.snapshotLocked()
		changed := p.changed
		p.mu.Unlock()

		switch snap.State {
		case Idle:
			return snap, ErrNoInput
		case Ready:
			return snap, nil
		case Failed:
			return snap, fmt.Errorf("%w: %s", ErrRunFailed, snap.Message)
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return snap, ctx.Err()
		}
	}
}

// Process runs the whole pipeline once, synchronously, outside the state
// machine. Resources are registered on scope; the caller releases it once
// the result is no longer needed.
func (p *Pipeline) Process(ctx context.Context, input *scene.GenerationResult, scope *resource.Scope) (*Result, error) {
	if scope == nil {
		return nil, errors.New("pipeline: process without a resource scope")
	}
	return p.safeProcess(ctx, uuid.NewString(), input, scope, nil)
}

func (p *Pipeline) startLocked(input *scene.GenerationResult) *run {
	ctx, cancel := context.WithCancel(context.Background())
	r := &run{
		id:     uuid.NewString(),
		input:  input,
		ctx:    ctx,
		cancel: cancel,
		scope:  resource.NewScope(),
	}
	p.current = r
	p.state = Processing
	p.message = ""
	p.result = nil
	p.visuals, p.narrated = false, false
	p.signalLocked()

	p.log.Info("run started",
		logging.String(logging.FieldRunID, r.id),
		logging.Int("sections", len(input.VideoData.Sections)),
		logging.Int("audio_segments", len(input.AudioSegments)),
	)
	return r
}

// retire cancels r and releases everything it registered.
func (p *Pipeline) retire(r *run) {
	if r == nil {
		return
	}
	r.cancel()
	if err := r.scope.Release(); err != nil {
		p.log.Warn("releasing run resources failed",
			logging.String(logging.FieldRunID, r.id),
			logging.Error(err),
		)
	}
}

func (p *Pipeline) execute(r *run) {
	result, err := p.safeProcess(r.ctx, r.id, r.input, r.scope, func(s stage, active bool) {
		p.track(r, s, active)
	})
	p.finish(r, result, err)
}

func (p *Pipeline) finish(r *run, result *Result, err error) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	stale := p.current != r
	p.mu.Unlock()
	if stale {
		p.log.Debug("discarding stale run", logging.String(logging.FieldRunID, r.id))
		return
	}
	if err != nil {
		p.log.Error("run failed", logging.String(logging.FieldRunID, r.id), logging.Error(err))
		// No partial result is published, so nothing may keep its resources.
		if rerr := r.scope.Release(); rerr != nil {
			p.log.Warn("releasing run resources failed", logging.String(logging.FieldRunID, r.id), logging.Error(rerr))
		}
	}

	p.mu.Lock()
	if err != nil {
		p.state = Failed
		p.message = err.Error()
		p.result = nil
	} else {
		p.state = Ready
		p.result = result
	}
	p.visuals, p.narrated = false, false
	p.signalLocked()
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(snap)
}

func (p *Pipeline) track(r *run, s stage, active bool) {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if p.current != r || p.state != Processing {
		p.mu.Unlock()
		return
	}
	switch s {
	case stageVisuals:
		p.visuals = active
	case stageAudio:
		p.narrated = active
	}
	snap := p.snapshotLocked()
	p.mu.Unlock()

	p.emit(snap)
}

func (p *Pipeline) signalLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *Pipeline) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:            p.state,
		Message:          p.message,
		Result:           p.result,
		RenderingVisuals: p.visuals,
		ProcessingAudio:  p.narrated,
	}
	if p.current != nil {
		snap.RunID = p.current.id
	}
	return snap
}

func (p *Pipeline) emit(snap Snapshot) {
	if p.onChange != nil {
		p.onChange(snap)
	}
}

func (p *Pipeline) safeProcess(ctx context.Context, runID string, input *scene.GenerationResult, scope *resource.Scope, track func(stage, bool)) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("pipeline panicked: %v", r)
		}
	}()
	return p.process(ctx, runID, input, scope, track)
}

func (p *Pipeline) process(ctx context.Context, runID string, input *scene.GenerationResult, scope *resource.Scope, track func(stage, bool)) (*Result, error) {
	if input == nil {
		return nil, ErrNoInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if track == nil {
		track = func(stage, bool) {}
	}

	logger := p.logger.With(logging.String(logging.FieldRunID, runID))
	data := input.VideoData
	req := p.detector.Detect(data.Sections)
	p.log.Debug("capabilities detected",
		logging.String(logging.FieldRunID, runID),
		logging.Any("engines", req.Engines()),
		logging.Any("languages", req.Languages),
	)

	var (
		outcomes []renderer.Outcome
		infos    []scene.AudioInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(guard("visuals", func() error {
		track(stageVisuals, true)
		defer track(stageVisuals, false)

		engines, err := p.loader.Load(gctx, req, scope)
		if err != nil {
			return fmt.Errorf("load engines: %w", err)
		}
		defer engines.Close()

		m := renderer.NewMaterializer(renderer.NewTable(engines),
			renderer.WithRenderTimeout(p.cfg.RenderTimeout()),
			renderer.WithWorkers(p.workers),
			renderer.WithMaterializerLogger(logger),
		)
		outcomes, err = m.Materialize(gctx, data.Sections)
		if err != nil {
			return fmt.Errorf("materialize sections: %w", err)
		}
		return nil
	}))
	if len(input.AudioSegments) > 0 {
		g.Go(guard("audio", func() error {
			track(stageAudio, true)
			defer track(stageAudio, false)

			var err error
			infos, err = p.audio.Materialize(gctx, input.AudioSegments, scope)
			if err != nil {
				return fmt.Errorf("materialize audio: %w", err)
			}
			return nil
		}))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sections := renderer.Sections(outcomes)
	timeline := p.director.Compile(sections, infos)
	result := &Result{
		Topic:                 data.Topic,
		Summary:               data.Summary,
		TotalDurationEstimate: data.TotalDurationEstimate,
		Sections:              sections,
		Audio:                 infos,
		Outcomes:              outcomes,
		Timeline:              timeline,
		PerSectionFrames:      timeline.SectionFrames,
		TotalFrames:           timeline.TotalFrames,
		FPS:                   p.cfg.Timeline.FPS,
		Width:                 p.cfg.Timeline.Width,
		Height:                p.cfg.Timeline.Height,
	}

	if url := p.cfg.Summary.ShareURL; url != "" {
		code, err := renderer.ShareCode(url, p.cfg.Theme)
		if err != nil {
			p.log.Warn("share code skipped", logging.String(logging.FieldRunID, runID), logging.Error(err))
		} else {
			result.ShareCode = code
		}
	}

	p.log.Info("run complete",
		logging.String(logging.FieldRunID, runID),
		logging.Int("sections", len(sections)),
		logging.Int("degraded", result.Degraded()),
		logging.Int("total_frames", timeline.TotalFrames),
		logging.Float64("seconds", timeline.Seconds()),
	)
	return result, nil
}

// guard turns a panic inside a fan-out branch into an error.
func guard(name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", name, r)
			}
		}()
		return fn()
	}
}
