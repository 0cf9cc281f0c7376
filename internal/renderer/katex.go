package renderer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ivlev/explainer/internal/analyzer"
)

// KatexEngine typesets equations with the KaTeX command line tool.
type KatexEngine struct {
	binary     string
	errorColor string
	closed     atomic.Bool
}

// LoadKatex verifies the katex binary. errorColor is the color invalid
// input is drawn in.
func LoadKatex(ctx context.Context, binary, errorColor string) (*KatexEngine, error) {
	path, err := resolveBinary(ctx, binary, "--version")
	if err != nil {
		return nil, err
	}
	return &KatexEngine{
		binary:     path,
		errorColor: strings.TrimPrefix(errorColor, "#"),
	}, nil
}

func (k *KatexEngine) Kind() analyzer.Engine { return analyzer.EngineTypeset }

// Typeset renders latex in display mode. Invalid expressions come back as
// best-effort markup colored with the error color rather than an error.
func (k *KatexEngine) Typeset(ctx context.Context, latex string) (string, error) {
	if k.closed.Load() {
		return "", ErrEngineUnavailable
	}
	args := []string{"--display-mode", "--no-throw-on-error"}
	if k.errorColor != "" {
		args = append(args, "--error-color", k.errorColor)
	}
	out, err := run(ctx, k.binary, strings.NewReader(latex), args...)
	if err != nil {
		return "", fmt.Errorf("katex: %w", err)
	}
	markup := strings.TrimSpace(out)
	if markup == "" {
		return "", errors.New("katex: empty output")
	}
	return markup, nil
}

// Close marks the engine unusable. The CLI holds no state between calls.
func (k *KatexEngine) Close() error {
	k.closed.Store(true)
	return nil
}
