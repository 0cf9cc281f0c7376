package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/explainer/internal/analyzer"
	"github.com/ivlev/explainer/internal/config"
	"github.com/ivlev/explainer/internal/logging"
	"github.com/ivlev/explainer/internal/resource"
)

var (
	_ DiagramEngine = (*MermaidEngine)(nil)
	_ CodeEngine    = (*Highlighter)(nil)
	_ MathEngine    = (*KatexEngine)(nil)
)

// Factory loads one engine. languages is only used by the highlighter.
type Factory func(ctx context.Context, languages []string) (Engine, error)

// DefaultFactories wires the production engines to cfg.
func DefaultFactories(cfg *config.Config) map[analyzer.Engine]Factory {
	return map[analyzer.Engine]Factory{
		analyzer.EngineDiagram: func(ctx context.Context, _ []string) (Engine, error) {
			eng, err := LoadMermaid(ctx, MermaidOptions{
				Binary:     cfg.Engines.MermaidBinary,
				ScratchDir: cfg.Engines.ScratchDir,
				Theme:      cfg.Theme,
				Measurer:   FitzMeasurer{},
			})
			if err != nil {
				return nil, err
			}
			return eng, nil
		},
		analyzer.EngineHighlight: func(ctx context.Context, languages []string) (Engine, error) {
			eng, err := LoadHighlighter(ctx, languages, cfg.Theme.CodeStyle)
			if err != nil {
				return nil, err
			}
			return eng, nil
		},
		analyzer.EngineTypeset: func(ctx context.Context, _ []string) (Engine, error) {
			eng, err := LoadKatex(ctx, cfg.Engines.KatexBinary, cfg.Theme.ErrorColor)
			if err != nil {
				return nil, err
			}
			return eng, nil
		},
	}
}

// Loader loads the engines a batch requires, concurrently.
type Loader struct {
	factories         map[analyzer.Engine]Factory
	fallbackLanguages []string
	timeout           time.Duration
	logger            *slog.Logger
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithFactory replaces the factory of one engine kind.
func WithFactory(kind analyzer.Engine, f Factory) LoaderOption {
	return func(l *Loader) {
		l.factories[kind] = f
	}
}

// WithLoaderLogger sets the logger used for load warnings.
func WithLoaderLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logging.NewComponentLogger(logger, "loader")
	}
}

// NewLoader creates a loader with the production factories.
func NewLoader(cfg *config.Config, opts ...LoaderOption) *Loader {
	l := &Loader{
		factories:         DefaultFactories(cfg),
		fallbackLanguages: cfg.Engines.FallbackLanguages,
		timeout:           cfg.LoadTimeout(),
		logger:            logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load initializes every engine req needs. Engines that fail to load are
// recorded in Engines.Failures and left nil; that is never an error. Loaded
// engines are registered on scope. The only errors are cancellation of ctx
// and a scope released while loading.
func (l *Loader) Load(ctx context.Context, req analyzer.Requirements, scope *resource.Scope) (*Engines, error) {
	engines := &Engines{Failures: make(map[analyzer.Engine]error)}
	kinds := req.Engines()
	if len(kinds) == 0 {
		return engines, nil
	}

	loaded := make([]Engine, len(kinds))
	failures := make([]error, len(kinds))

	var g errgroup.Group
	for i, kind := range kinds {
		i, kind := i, kind
		g.Go(func() error {
			loaded[i], failures[i] = l.loadOne(ctx, kind, req.Languages)
			return nil
		})
	}
	_ = g.Wait()

	closeLoaded := func() {
		for _, eng := range loaded {
			if eng != nil {
				_ = eng.Close()
			}
		}
	}

	if err := ctx.Err(); err != nil {
		closeLoaded()
		return nil, err
	}

	for i, kind := range kinds {
		if failures[i] != nil {
			engines.Failures[kind] = failures[i]
			l.logger.Warn("engine unavailable, dependent sections fall back to text",
				logging.String(logging.FieldEngine, string(kind)),
				logging.Error(failures[i]),
			)
			continue
		}
		if !engines.set(loaded[i]) {
			_ = loaded[i].Close()
			engines.Failures[kind] = fmt.Errorf("%w: %s factory returned %T", ErrEngineUnavailable, kind, loaded[i])
			continue
		}
		if scope != nil {
			if err := scope.Register("engine "+string(kind), loaded[i].Close); err != nil {
				closeLoaded()
				return nil, err
			}
		}
	}
	return engines, nil
}

func (l *Loader) loadOne(ctx context.Context, kind analyzer.Engine, languages []string) (Engine, error) {
	factory, ok := l.factories[kind]
	if !ok || factory == nil {
		return nil, fmt.Errorf("%w: no factory for %s", ErrEngineUnavailable, kind)
	}

	eng, err := l.attempt(ctx, factory, languages)
	if err == nil || kind != analyzer.EngineHighlight || ctx.Err() != nil {
		return eng, err
	}

	l.logger.Warn("highlighter rejected language set, retrying with fallback languages",
		logging.Any("languages", languages),
		logging.Any("fallback", l.fallbackLanguages),
		logging.Error(err),
	)
	eng, retryErr := l.attempt(ctx, factory, l.fallbackLanguages)
	if retryErr != nil {
		return nil, errors.Join(err, retryErr)
	}
	return eng, nil
}

func (l *Loader) attempt(ctx context.Context, factory Factory, languages []string) (eng Engine, err error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			eng = nil
			err = fmt.Errorf("%w: load panicked: %v", ErrEngineUnavailable, r)
		}
	}()

	eng, err = factory(ctx, languages)
	if err != nil {
		return nil, err
	}
	if eng == nil {
		return nil, fmt.Errorf("%w: factory returned no engine", ErrEngineUnavailable)
	}
	return eng, nil
}
