//go:build !linux && !darwin

package system

import "log/slog"

// OpenFileTarget is the soft limit requested for open file descriptors.
const OpenFileTarget = 2048

// InitResourceLimits is a no-op where rlimits do not exist.
func InitResourceLimits(logger *slog.Logger) uint64 {
	return 0
}
