package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ivlev/explainer/internal/analyzer"
	"github.com/ivlev/explainer/internal/config"
	"github.com/ivlev/explainer/internal/renderer"
	"github.com/ivlev/explainer/internal/resource"
	"github.com/ivlev/explainer/internal/scene"
)

type fakeDiagram struct {
	closes atomic.Int32
}

func (f *fakeDiagram) Kind() analyzer.Engine { return analyzer.EngineDiagram }

func (f *fakeDiagram) Close() error {
	f.closes.Add(1)
	return nil
}

func (f *fakeDiagram) RenderDiagram(_ context.Context, source string) (renderer.DiagramResult, error) {
	if strings.Contains(source, "INVALID") {
		return renderer.DiagramResult{}, errors.New("parse error on line 1")
	}
	return renderer.DiagramResult{Markup: "<svg/>", Width: 10, Height: 10}, nil
}

// fakeLoader hands out a fresh diagram engine per load. gate, when set,
// blocks loads until it is closed or the load is cancelled.
type fakeLoader struct {
	mu      sync.Mutex
	gate    chan struct{}
	panics  bool
	loads   int
	engines []*fakeDiagram
}

func (l *fakeLoader) Load(ctx context.Context, req analyzer.Requirements, scope *resource.Scope) (*renderer.Engines, error) {
	l.mu.Lock()
	l.loads++
	gate := l.gate
	panics := l.panics
	l.mu.Unlock()

	if panics {
		panic("loader exploded")
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	engines := &renderer.Engines{Failures: map[analyzer.Engine]error{}}
	if req.Needs(analyzer.EngineDiagram) {
		eng := &fakeDiagram{}
		l.mu.Lock()
		l.engines = append(l.engines, eng)
		l.mu.Unlock()
		if err := scope.Register("engine diagram", eng.Close); err != nil {
			return nil, err
		}
		engines.Diagram = eng
	}
	return engines, nil
}

func (l *fakeLoader) setPanics(v bool) {
	l.mu.Lock()
	l.panics = v
	l.mu.Unlock()
}

type fixedProber struct{ seconds float64 }

func (p fixedProber) Duration(context.Context, string) (float64, error) {
	return p.seconds, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Audio.Dir = t.TempDir()
	cfg.Engines.Workers = 2
	return &cfg
}

func newTestPipeline(t *testing.T, loader EngineLoader, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{WithLoader(loader), WithProber(fixedProber{seconds: 4})}, opts...)
	p, err := NewPipeline(testConfig(t), opts...)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	t.Cleanup(p.Detach)
	return p
}

func sampleInput(withAudio bool) *scene.GenerationResult {
	input := &scene.GenerationResult{VideoData: scene.VideoData{
		Topic:   "Как работает DNS",
		Summary: "Имена превращаются в адреса",
		Sections: []scene.Section{
			{Title: "Intro", SceneType: scene.TypeText, DurationWeight: 1},
			{Title: "Flow", SceneType: scene.TypeDiagram, DurationWeight: 1,
				Diagram: &scene.Diagram{Type: "flowchart", MermaidCode: "graph TD; A-->B"}},
			{Title: "Broken", SceneType: scene.TypeDiagram, DurationWeight: 1,
				Diagram: &scene.Diagram{Type: "flowchart", MermaidCode: "INVALID"}},
		},
	}}
	if withAudio {
		input.AudioSegments = []scene.AudioSegment{{
			SectionIndex:        0,
			EncodedAudio:        base64.StdEncoding.EncodeToString([]byte("ID3narration")),
			EstimatedDurationMs: 3000,
		}}
	}
	return input
}

func awaitReady(t *testing.T, p *Pipeline) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := p.Await(ctx)
	if err != nil {
		t.Fatalf("Await: %v (state %s)", err, snap.State)
	}
	return snap
}

func TestPipelineReachesReady(t *testing.T) {
	p := newTestPipeline(t, &fakeLoader{})
	if s := p.Snapshot(); s.State != Idle {
		t.Fatalf("expected idle, got %s", s.State)
	}

	if err := p.Submit(sampleInput(true)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	snap := awaitReady(t, p)
	if snap.State != Ready || snap.RunID == "" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	res := snap.Result
	if res.Topic != "Как работает DNS" || res.FPS != 30 || res.Width != 1080 || res.Height != 1920 {
		t.Errorf("unexpected result header: %+v", res)
	}
	if res.Sections[1].Diagram == nil || res.Sections[1].SceneType != scene.TypeDiagram {
		t.Errorf("diagram section should be rendered: %+v", res.Sections[1])
	}
	if res.Sections[2].SceneType != scene.TypeText || res.Sections[2].Diagram != nil {
		t.Errorf("broken diagram should degrade: %+v", res.Sections[2])
	}
	if res.Degraded() != 1 {
		t.Errorf("expected 1 degraded section, got %d", res.Degraded())
	}

	// 4s narration: ceil(4*30)+15 = 135; rendered diagram 195; degraded text 150.
	want := []int{135, 195, 150}
	for i, w := range want {
		if res.PerSectionFrames[i] != w {
			t.Errorf("section %d: expected %d frames, got %d", i, w, res.PerSectionFrames[i])
		}
	}
	if res.TotalFrames != 90+135+195+150+90-4*12 {
		t.Errorf("unexpected total %d", res.TotalFrames)
	}
	if len(res.Audio) != 1 || res.Audio[0].DurationInSeconds != 4 {
		t.Fatalf("unexpected audio: %+v", res.Audio)
	}
	if _, err := os.Stat(res.Audio[0].Handle); err != nil {
		t.Errorf("audio handle should exist while ready: %v", err)
	}
}

func TestPipelineSupersedeReleasesStaleRun(t *testing.T) {
	loader := &fakeLoader{gate: make(chan struct{})}
	var mu sync.Mutex
	var states []Snapshot
	p := newTestPipeline(t, loader, WithOnChange(func(s Snapshot) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}))

	first := sampleInput(true)
	if err := p.Submit(first); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	firstRun := p.Snapshot().RunID

	second := sampleInput(false)
	second.VideoData.Topic = "second"
	if err := p.Submit(second); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	close(loader.gate)

	snap := awaitReady(t, p)
	if snap.Result.Topic != "second" || snap.RunID == firstRun {
		t.Fatalf("stale run reached ready: %+v", snap)
	}

	// Give the cancelled run time to finish; it must never publish.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	for _, s := range states {
		if s.RunID == firstRun && s.State != Processing {
			t.Fatalf("stale run published state %s", s.State)
		}
	}

	entries, _ := os.ReadDir(p.cfg.Audio.Dir)
	if len(entries) != 0 {
		t.Fatalf("stale audio resources leaked: %d entries", len(entries))
	}
}

func TestPipelineSupersedeReleasesEnginesOnce(t *testing.T) {
	loader := &fakeLoader{}
	p := newTestPipeline(t, loader)

	if err := p.Submit(sampleInput(true)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	first := awaitReady(t, p)
	handle := first.Result.Audio[0].Handle

	if err := p.Submit(sampleInput(false)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	awaitReady(t, p)

	if _, err := os.Stat(handle); !os.IsNotExist(err) {
		t.Fatalf("superseded audio handle should be removed, stat err = %v", err)
	}

	loader.mu.Lock()
	defer loader.mu.Unlock()
	// The first engine is closed when materialization ends and again by the
	// scope; both paths go through the idempotent Close.
	if got := loader.engines[0].closes.Load(); got < 1 {
		t.Fatalf("first run engine was never closed")
	}
}

func TestPipelineSameInputDoesNotRestart(t *testing.T) {
	loader := &fakeLoader{}
	p := newTestPipeline(t, loader)
	input := sampleInput(false)

	if err := p.Submit(input); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	first := awaitReady(t, p)
	if err := p.Submit(input); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	second := p.Snapshot()
	if second.State != Ready || second.RunID != first.RunID {
		t.Fatalf("same input restarted the run: %+v", second)
	}
	loader.mu.Lock()
	defer loader.mu.Unlock()
	if loader.loads != 1 {
		t.Fatalf("expected one load, got %d", loader.loads)
	}
}

func TestPipelineDetach(t *testing.T) {
	p := newTestPipeline(t, &fakeLoader{})
	if err := p.Submit(sampleInput(true)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	snap := awaitReady(t, p)
	handle := snap.Result.Audio[0].Handle

	p.Detach()
	after := p.Snapshot()
	if after.State != Idle || after.Result != nil || after.RunID != "" {
		t.Fatalf("expected idle after detach: %+v", after)
	}
	if _, err := os.Stat(handle); !os.IsNotExist(err) {
		t.Fatalf("detach should release audio, stat err = %v", err)
	}
	if _, err := p.Await(context.Background()); !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput after detach, got %v", err)
	}
	p.Detach()
}

func TestPipelineDetachWhileProcessing(t *testing.T) {
	loader := &fakeLoader{gate: make(chan struct{})}
	p := newTestPipeline(t, loader)
	if err := p.Submit(sampleInput(true)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	p.Detach()
	close(loader.gate)

	time.Sleep(50 * time.Millisecond)
	if s := p.Snapshot(); s.State != Idle {
		t.Fatalf("cancelled run must not publish, state %s", s.State)
	}
}

func TestPipelinePanicFailsAndRetry(t *testing.T) {
	loader := &fakeLoader{panics: true}
	p := newTestPipeline(t, loader)

	if err := p.Retry(); !errors.Is(err, ErrNotFailed) {
		t.Fatalf("expected ErrNotFailed before any run, got %v", err)
	}
	if err := p.Submit(sampleInput(true)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap, err := p.Await(ctx)
	if !errors.Is(err, ErrRunFailed) || snap.State != Failed {
		t.Fatalf("expected failed run, got %v (%s)", err, snap.State)
	}
	if !strings.Contains(snap.Message, "loader exploded") || snap.Result != nil {
		t.Fatalf("unexpected failed snapshot: %+v", snap)
	}
	entries, _ := os.ReadDir(p.cfg.Audio.Dir)
	if len(entries) != 0 {
		t.Fatalf("failed run leaked %d audio entries", len(entries))
	}

	loader.setPanics(false)
	if err := p.Retry(); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if snap := awaitReady(t, p); snap.Result == nil {
		t.Fatal("retry should produce a result")
	}
}

func TestPipelineRejectsNilInput(t *testing.T) {
	p := newTestPipeline(t, &fakeLoader{})
	if err := p.Submit(nil); !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
	scope := resource.NewScope()
	defer scope.Release()
	if _, err := p.Process(context.Background(), nil, scope); !errors.Is(err, ErrNoInput) {
		t.Fatalf("expected ErrNoInput, got %v", err)
	}
}

func TestProcessOneShot(t *testing.T) {
	cfg := testConfig(t)
	cfg.Summary.ShareURL = "https://example.com/v/42"
	p, err := NewPipeline(cfg, WithLoader(&fakeLoader{}), WithProber(fixedProber{seconds: 2}))
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	scope := resource.NewScope()
	res, err := p.Process(context.Background(), sampleInput(true), scope)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.HasPrefix(res.ShareCode, "<svg") {
		t.Errorf("expected share code markup, got %q", res.ShareCode)
	}
	if res.PerSectionFrames[0] != 75 {
		t.Errorf("expected 75 frames for 2s narration, got %d", res.PerSectionFrames[0])
	}
	if got := res.Timeline.Transitions[1].Presentation; got != "slide" {
		t.Errorf("expected alternating transitions, got %s", got)
	}
	if s := p.Snapshot(); s.State != Idle {
		t.Errorf("one-shot processing must not touch the state machine, got %s", s.State)
	}
	if err := scope.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(res.Audio[0].Handle); !os.IsNotExist(err) {
		t.Errorf("handle should be gone after release")
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Process(cancelled, sampleInput(false), resource.NewScope()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewPipelineRejectsUnknownTransition(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timeline.Transition = "wipe"
	if _, err := NewPipeline(cfg); err == nil {
		t.Fatal("expected error for unknown transition")
	}
}
