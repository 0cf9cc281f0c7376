package director

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ivlev/explainer/internal/system"
)

// DefaultPlanDir is where plans are saved when no directory is given.
const DefaultPlanDir = "plans"

// GeneratePlanPath creates a timestamped plan filename in dir
func GeneratePlanPath(dir string) string {
	if dir == "" {
		dir = DefaultPlanDir
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("plan_%s.yaml", timestamp))
}

// FindLatestPlan finds the most recent plan file in dir
func FindLatestPlan(dir string) (string, error) {
	if dir == "" {
		dir = DefaultPlanDir
	}
	path, err := system.FindLatestFile(dir, []string{".yaml", ".yml"})
	if err != nil {
		return "", fmt.Errorf("find latest plan: %w", err)
	}
	return path, nil
}
