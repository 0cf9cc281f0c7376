// Package audio turns encoded narration segments into playable files with a
// measured duration.
package audio

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/explainer/internal/logging"
	"github.com/ivlev/explainer/internal/resource"
	"github.com/ivlev/explainer/internal/scene"
)

// DefaultProbeTimeout is the per-segment ceiling on duration measurement.
const DefaultProbeTimeout = 5 * time.Second

// Materializer decodes segments into files owned by a run scope and measures
// each one, falling back to the estimated duration.
type Materializer struct {
	prober  Prober
	timeout time.Duration
	dir     string
	workers int
	logger  *slog.Logger
}

// Option customizes a Materializer.
type Option func(*Materializer)

// WithProbeTimeout overrides DefaultProbeTimeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(m *Materializer) { m.timeout = d }
}

// WithDir sets the parent of each run's temp directory. Empty means the
// system temp dir.
func WithDir(dir string) Option {
	return func(m *Materializer) { m.dir = dir }
}

// WithWorkers limits concurrent segments. Zero means no limit.
func WithWorkers(n int) Option {
	return func(m *Materializer) { m.workers = n }
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Materializer) {
		m.logger = logging.NewComponentLogger(logger, "audio")
	}
}

// NewMaterializer creates a materializer measuring with prober.
func NewMaterializer(prober Prober, opts ...Option) *Materializer {
	m := &Materializer{prober: prober, timeout: DefaultProbeTimeout, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Materialize processes segments concurrently. The result keeps the input
// order. Every file and the run directory are registered on scope, which
// alone releases them. Decode and measurement failures become estimated
// durations; the only errors are cancellation and a released scope.
func (m *Materializer) Materialize(ctx context.Context, segments []scene.AudioSegment, scope *resource.Scope) ([]scene.AudioInfo, error) {
	if len(segments) == 0 {
		return nil, nil
	}
	if scope == nil {
		return nil, errors.New("audio: materialize without a resource scope")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(m.dir, "explainer-audio-")
	if err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	if err := scope.Register("audio dir "+dir, func() error { return os.RemoveAll(dir) }); err != nil {
		return nil, err
	}

	infos := make([]scene.AudioInfo, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	if m.workers > 0 {
		g.SetLimit(m.workers)
	}
	for i, seg := range segments {
		i, seg := i, seg
		g.Go(func() error {
			info, err := m.materializeOne(gctx, dir, seg, scope)
			if err != nil {
				return err
			}
			infos[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

func (m *Materializer) materializeOne(ctx context.Context, dir string, seg scene.AudioSegment, scope *resource.Scope) (scene.AudioInfo, error) {
	info := scene.AudioInfo{
		SectionIndex:      seg.SectionIndex,
		DurationInSeconds: seg.EstimatedSeconds(),
	}
	if err := ctx.Err(); err != nil {
		return info, err
	}

	data, err := decode(seg.EncodedAudio)
	if err != nil {
		m.fallback(seg, "decode", err)
		return info, nil
	}

	path := filepath.Join(dir, uuid.NewString()+sniffExtension(data))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		m.fallback(seg, "write", err)
		return info, nil
	}
	if err := scope.Register("audio "+path, func() error { return removeIfExists(path) }); err != nil {
		// The scope released the run directory while this file was being
		// written; the file is gone now, so the directory may be empty.
		_ = os.Remove(dir)
		return info, err
	}
	info.Handle = path

	seconds, err := m.measure(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return info, ctxErr
		}
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		m.fallback(seg, reason, err)
		return info, nil
	}
	info.DurationInSeconds = seconds
	info.Measured = true
	return info, nil
}

type probeResult struct {
	seconds float64
	err     error
}

// measure races the prober against the timeout. Whichever finishes first
// decides; a prober that ignores its context is abandoned.
func (m *Materializer) measure(ctx context.Context, path string) (float64, error) {
	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	done := make(chan probeResult, 1)
	go func() {
		seconds, err := m.prober.Duration(pctx, path)
		done <- probeResult{seconds: seconds, err: err}
	}()

	select {
	case r := <-done:
		if r.err == nil && r.seconds <= 0 {
			r.err = errors.New("non-positive duration")
		}
		return r.seconds, r.err
	case <-pctx.Done():
		return 0, pctx.Err()
	}
}

func (m *Materializer) fallback(seg scene.AudioSegment, reason string, err error) {
	m.logger.Warn("audio duration not measured, using estimate",
		logging.Int(logging.FieldSectionIndex, seg.SectionIndex),
		logging.String(logging.FieldReason, reason),
		logging.Float64("estimated_seconds", seg.EstimatedSeconds()),
		logging.Error(err),
	)
}

func decode(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if i := strings.Index(encoded, ";base64,"); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+len(";base64,"):]
	}
	if encoded == "" {
		return nil, errors.New("empty audio payload")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(encoded); rawErr == nil {
			return raw, nil
		}
		return nil, err
	}
	return data, nil
}

// sniffExtension picks a file extension from the container magic bytes so
// tools that key on extensions can open the file.
func sniffExtension(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("RIFF")):
		return ".wav"
	case bytes.HasPrefix(data, []byte("ID3")), len(data) > 1 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return ".mp3"
	case bytes.HasPrefix(data, []byte("OggS")):
		return ".ogg"
	case bytes.HasPrefix(data, []byte("fLaC")):
		return ".flac"
	case len(data) > 8 && bytes.Equal(data[4:8], []byte("ftyp")):
		return ".m4a"
	default:
		return ".bin"
	}
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
