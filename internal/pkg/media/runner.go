package media

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external media tool and returns its combined output
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

// Run implements Runner
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return out, fmt.Errorf("%s: %w", name, ctx.Err())
		}
		return out, fmt.Errorf("%s failed: %w: %s", name, err, tail(string(out), 300))
	}
	return out, nil
}

func tail(s string, l int) string {
	s = strings.TrimSpace(s)
	if len(s) > l {
		return "..." + s[len(s)-l:]
	}
	return s
}
