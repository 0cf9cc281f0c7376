// Package source reads generation results produced by the content planner.
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/explainer/internal/scene"
	"github.com/ivlev/explainer/internal/system"
)

// ErrNoInput is returned when no generation result can be located.
var ErrNoInput = errors.New("no input")

type Source interface {
	Path() string
	Read() (*scene.GenerationResult, error)
}

// FileSource reads a generation result from a JSON or YAML file.
type FileSource struct {
	path string
}

// NewFileSource resolves path. A directory selects its newest input file.
func NewFileSource(path string) (*FileSource, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrNoInput
	}
	resolved, err := system.FindLatestInput(path)
	if err != nil {
		if errors.Is(err, system.ErrNoMatch) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %v", ErrNoInput, err)
		}
		return nil, err
	}
	return &FileSource{path: resolved}, nil
}

func (f *FileSource) Path() string {
	return f.path
}

func (f *FileSource) Read() (*scene.GenerationResult, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	result, err := Decode(data, filepath.Ext(f.path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return result, nil
}

// Load reads the generation result at path.
func Load(path string) (*scene.GenerationResult, error) {
	src, err := NewFileSource(path)
	if err != nil {
		return nil, err
	}
	return src.Read()
}

// Decode parses data by extension. An unknown extension is sniffed: a
// leading brace means JSON, anything else is tried as YAML.
func Decode(data []byte, ext string) (*scene.GenerationResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoInput
	}

	var result scene.GenerationResult
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(trimmed, &result); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(trimmed, &result); err != nil {
			return nil, err
		}
	default:
		if trimmed[0] == '{' {
			return Decode(trimmed, ".json")
		}
		return Decode(trimmed, ".yaml")
	}

	return &result, nil
}
