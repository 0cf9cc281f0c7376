package renderer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/ivlev/explainer/internal/analyzer"
	"github.com/ivlev/explainer/internal/system"
)

// Highlighter renders code with chroma. It only knows the languages it was
// loaded with.
type Highlighter struct {
	style *chroma.Style

	mu     sync.RWMutex
	lexers map[string]chroma.Lexer
	closed bool
}

// LoadHighlighter initializes lexers for exactly languages. Any unknown
// language fails the whole load.
func LoadHighlighter(ctx context.Context, languages []string, styleName string) (*Highlighter, error) {
	loaded := make(map[string]chroma.Lexer, len(languages))
	for _, lang := range languages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tag := analyzer.NormalizeLanguage(lang)
		if tag == "" {
			continue
		}
		lexer := lexers.Get(tag)
		if lexer == nil {
			return nil, fmt.Errorf("%w: %s", ErrLanguageNotLoaded, tag)
		}
		loaded[tag] = chroma.Coalesce(lexer)
	}
	return &Highlighter{
		style:  styles.Get(styleName),
		lexers: loaded,
	}, nil
}

func (h *Highlighter) Kind() analyzer.Engine { return analyzer.EngineHighlight }

// Languages returns the loaded language tags, sorted.
func (h *Highlighter) Languages() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.lexers))
	for tag := range h.lexers {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Highlight renders code as inline-styled HTML. highlightLines are 1-based.
func (h *Highlighter) Highlight(ctx context.Context, code, language string, highlightLines []int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tag := analyzer.NormalizeLanguage(language)

	h.mu.RLock()
	lexer, ok := h.lexers[tag]
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return "", ErrEngineUnavailable
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrLanguageNotLoaded, language)
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", fmt.Errorf("tokenise %s: %w", tag, err)
	}

	ranges := make([][2]int, 0, len(highlightLines))
	for _, line := range highlightLines {
		if line > 0 {
			ranges = append(ranges, [2]int{line, line})
		}
	}
	formatter := html.New(
		html.WithClasses(false),
		html.TabWidth(4),
		html.HighlightLines(ranges),
	)

	buf := system.GetBuffer()
	defer system.PutBuffer(buf)
	if err := formatter.Format(buf, h.style, iterator); err != nil {
		return "", fmt.Errorf("format %s: %w", tag, err)
	}
	return buf.String(), nil
}

// Close drops the loaded lexers.
func (h *Highlighter) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	h.lexers = nil
	return nil
}
