package step

import (
	"context"
	"time"
)

// Class marks whether a step may be re-run without manual cleanup.
type Class int

const (
	// Repeatable steps are safe to repeat; a retry or a re-run of the whole
	// session converges to the same state.
	Repeatable Class = iota
	// OneShot steps mutate the environment in a way that is unsafe to repeat.
	// When one fails the operator must inspect and clean up before retrying.
	OneShot
)

// Policy decides what a step failure does to the session.
type Policy int

const (
	// Abort halts the session at this step.
	Abort Policy = iota
	// Continue logs the failure and moves on to the next step.
	Continue
)

// Step is one ordered unit of provisioning work. Run is usually an external
// process invocation or a filesystem mutation; the runner only sequences and
// gates it.
type Step struct {
	Name    string
	Class   Class
	OnError Policy
	// Retries and Delay apply to transient failures of Repeatable steps.
	// OneShot steps are never retried regardless of these values.
	Retries int
	Delay   time.Duration
	Run     func(ctx context.Context) error
}

func (s Step) attempts() int {
	if s.Class == OneShot || s.Retries < 0 {
		return 1
	}
	return 1 + s.Retries
}
