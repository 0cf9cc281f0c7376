package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoMatch is returned when a directory holds no file with a wanted extension.
var ErrNoMatch = errors.New("no matching files")

// InputExtensions are the file types a generation result can be read from.
var InputExtensions = []string{".json", ".yaml", ".yml"}

// FindLatestFile returns the most recently modified regular file in dir whose
// name ends with one of exts (case-insensitive).
func FindLatestFile(dir string, exts []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExtension(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if latestFile == "" || info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("%w in %s (%s)", ErrNoMatch, dir, strings.Join(exts, ", "))
	}
	return latestFile, nil
}

// FindLatestInput resolves path to an input file. A directory selects its
// newest generation result; a file is returned as is.
func FindLatestInput(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !fi.IsDir() {
		return path, nil
	}
	return FindLatestFile(path, InputExtensions)
}

func hasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
