package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ivlev/explainer/internal/system"
)

// Prober measures the playable duration of an audio file.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// FFprobe measures durations by reading container metadata with ffprobe.
type FFprobe struct {
	Binary string
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

// Duration returns the container duration in seconds, falling back to the
// first audio stream when the container reports none.
func (p FFprobe) Duration(ctx context.Context, path string) (float64, error) {
	binary := strings.TrimSpace(p.Binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, errors.New("ffprobe: empty path")
	}

	stdout := system.GetBuffer()
	defer system.PutBuffer(stdout)
	stderr := system.GetBuffer()
	defer system.PutBuffer(stderr)

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return 0, fmt.Errorf("ffprobe parse: %w", err)
	}

	candidates := []string{out.Format.Duration}
	for _, s := range out.Streams {
		if s.CodecType == "audio" {
			candidates = append(candidates, s.Duration)
		}
	}
	for _, raw := range candidates {
		if d, ok := parseSeconds(raw); ok {
			return d, nil
		}
	}
	return 0, errors.New("ffprobe: no duration in metadata")
}

func parseSeconds(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "N/A" {
		return 0, false
	}
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return 0, false
	}
	return d, true
}
