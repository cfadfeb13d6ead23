package step

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/pflag"

	clog "github.com/openshift/airgap-mirror/internal/pkg/log"
)

// RetryOptions is the operator-tunable retry policy for networked steps.
type RetryOptions struct {
	MaxRetry int
	Delay    time.Duration
}

// RetryFlags binds the retry policy to the command line.
func RetryFlags(fs *pflag.FlagSet, opts *RetryOptions) {
	fs.IntVar(&opts.MaxRetry, "retry-times", 2, "the number of times to possibly retry a networked step")
	fs.DurationVar(&opts.Delay, "retry-delay", 10*time.Second, "delay between 2 retries")
}

// Result reports how far a session got. A session either completes all steps
// or halts at the first aborting failure.
type Result struct {
	Completed []string
	Skipped   []string
	Failed    string
	Err       error
}

// Runner executes an ordered pipeline of provisioning steps.
type Runner struct {
	Log    clog.PluggableLoggerInterface
	DryRun bool
}

// Run executes steps strictly in declared order. Repeatable steps get their
// configured retries with the configured delay; a final failure aborts or is
// logged and skipped according to the step's policy.
func (r *Runner) Run(ctx context.Context, steps []Step) Result {
	var res Result
	total := len(steps)
	for i, s := range steps {
		r.Log.Info("step %d/%d: %s", i+1, total, s.Name)
		if r.DryRun {
			r.Log.Info("dry-run: skipping %s", s.Name)
			res.Completed = append(res.Completed, s.Name)
			continue
		}

		err := r.runOne(ctx, s)
		if err == nil {
			res.Completed = append(res.Completed, s.Name)
			continue
		}

		if s.OnError == Continue {
			r.Log.Warn("step %s failed, continuing: %v", s.Name, err)
			res.Skipped = append(res.Skipped, s.Name)
			continue
		}
		res.Failed = s.Name
		res.Err = fmt.Errorf("session halted at step %q (%d/%d): %w", s.Name, i+1, total, err)
		return res
	}
	return res
}

func (r *Runner) runOne(ctx context.Context, s Step) error {
	attempts := s.attempts()
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = s.Run(ctx); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		r.Log.Warn("step %s attempt %d/%d failed: %v, retrying in %s", s.Name, attempt, attempts, err, s.Delay)
		if sleepErr := sleep(ctx, s.Delay); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
