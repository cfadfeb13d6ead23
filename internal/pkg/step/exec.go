package step

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"

	clog "github.com/openshift/airgap-mirror/internal/pkg/log"
)

// CommandRunner abstracts external-process invocation so step pipelines can
// be exercised in tests without touching the host.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands on the host, teeing their output into the session
// transcript.
type ExecRunner struct {
	Log clog.PluggableLoggerInterface
	Out io.Writer
}

func (e *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	e.Log.Debug("exec: %s %s", name, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = e.Out
	cmd.Stderr = e.Out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Command adapts a single external invocation into a Step run function.
func Command(runner CommandRunner, name string, args ...string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return runner.Run(ctx, name, args...)
	}
}
