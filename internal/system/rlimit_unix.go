//go:build linux || darwin

package system

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// OpenFileTarget is the soft limit requested for open file descriptors.
// Every engine call and audio segment holds a temp file or a pipe.
const OpenFileTarget = 2048

// InitResourceLimits raises the soft open-file limit toward OpenFileTarget,
// never above the hard limit. It returns the resulting soft limit.
func InitResourceLimits(logger *slog.Logger) uint64 {
	var rLimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("read open file limit", "error", err)
		return 0
	}
	if rLimit.Cur >= OpenFileTarget {
		return rLimit.Cur
	}

	rLimit.Cur = OpenFileTarget
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("raise open file limit", "error", err)
		return 0
	}
	logger.Debug("open file limit raised", "limit", rLimit.Cur)
	return rLimit.Cur
}
