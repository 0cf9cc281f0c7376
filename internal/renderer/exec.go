package renderer

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/ivlev/explainer/internal/system"
)

// resolveBinary finds binary on PATH and checks that it starts by running it
// with versionArgs.
func resolveBinary(ctx context.Context, binary string, versionArgs ...string) (string, error) {
	path, err := exec.LookPath(strings.TrimSpace(binary))
	if err != nil {
		return "", fmt.Errorf("%w: %s not found", ErrEngineUnavailable, binary)
	}
	if len(versionArgs) > 0 {
		if _, err := run(ctx, path, nil, versionArgs...); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrEngineUnavailable, binary, err)
		}
	}
	return path, nil
}

// run executes path and returns its stdout. Stderr is folded into the error.
func run(ctx context.Context, path string, stdin io.Reader, args ...string) (string, error) {
	stdout := system.GetBuffer()
	defer system.PutBuffer(stdout)
	stderr := system.GetBuffer()
	defer system.PutBuffer(stderr)

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
