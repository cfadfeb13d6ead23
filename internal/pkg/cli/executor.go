package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/afero"

	"github.com/openshift/airgap-mirror/internal/pkg/api/v1alpha1"
	"github.com/openshift/airgap-mirror/internal/pkg/config"
	"github.com/openshift/airgap-mirror/internal/pkg/errcode"
	clog "github.com/openshift/airgap-mirror/internal/pkg/log"
	"github.com/openshift/airgap-mirror/internal/pkg/preflight"
	"github.com/openshift/airgap-mirror/internal/pkg/prompt"
	"github.com/openshift/airgap-mirror/internal/pkg/secret"
	"github.com/openshift/airgap-mirror/internal/pkg/session"
	"github.com/openshift/airgap-mirror/internal/pkg/step"
)

// Options carries every runtime input of one invocation. Nothing is read
// from ambient process state once Complete has run.
type Options struct {
	Inputs         session.Inputs
	PullSecretFile string
	LogLevel       string
	DryRun         bool
	QuayRoot       string
	Retry          step.RetryOptions
}

// ExecutorSchema aggregates the session collaborators behind interfaces so
// commands stay testable without a terminal or a host to mutate.
type ExecutorSchema struct {
	Log      clog.PluggableLoggerInterface
	Fs       afero.Fs
	Opts     *Options
	Session  *session.Session
	Plan     v1alpha1.ImageSetConfiguration
	PlanPath string
	Checker  *preflight.Checker
	Secrets  *secret.Handler
	Runner   *step.Runner
	Exec     step.CommandRunner
	Prompt   prompt.Source
	In       io.Reader
	Out      io.Writer

	logFile afero.File
}

// NewExecutor wires the default collaborators against the real host.
func NewExecutor(log clog.PluggableLoggerInterface, opts *Options) *ExecutorSchema {
	fs := afero.NewOsFs()
	return &ExecutorSchema{
		Log:     log,
		Fs:      fs,
		Opts:    opts,
		Checker: preflight.New(log),
		Secrets: secret.New(fs),
		Runner:  &step.Runner{Log: log, DryRun: opts.DryRun},
		Exec:    &step.ExecRunner{Log: log, Out: os.Stdout},
		Prompt:  prompt.New(os.Stdin, os.Stderr),
		In:      os.Stdin,
		Out:     os.Stdout,
	}
}

// Validate checks the flag values that gate everything else.
func (ex *ExecutorSchema) Validate() error {
	if !slices.Contains([]string{"info", "debug", "trace", "error"}, ex.Opts.LogLevel) {
		return errcode.Inputf("log-level has an invalid value %s, it should be one of (info, debug, trace, error)", ex.Opts.LogLevel)
	}
	if ex.Opts.Retry.MaxRetry < 0 {
		return errcode.Inputf("retry-times must not be negative")
	}
	return nil
}

// Complete gathers and validates the session inputs, then opens the
// transcript log file under the working directory.
func (ex *ExecutorSchema) Complete(phase session.Phase) error {
	ex.Log.Level(ex.Opts.LogLevel)
	ex.Runner.DryRun = ex.Opts.DryRun

	builder := &session.Builder{Fs: ex.Fs, Phase: phase, Prompt: ex.Prompt}
	s, err := builder.Complete(ex.Opts.Inputs)
	if err != nil {
		return err
	}
	ex.Session = s

	if err := ex.setupLogFile(); err != nil {
		return err
	}
	ex.Log.Info("session %s: %s phase, base %s, upgrade %s",
		s.ID, s.Phase, s.BaseVersion, s.UpgradeVersion)
	return nil
}

// setupLogFile tees every log line of the session into a timestamped file so
// each run leaves a full transcript for audit.
func (ex *ExecutorSchema) setupLogFile() error {
	dir := filepath.Join(ex.Session.WorkDir, logsDir)
	if err := ex.Fs.MkdirAll(dir, 0o755); err != nil {
		return errcode.Pathf("creating logs directory %q: %v", dir, err)
	}
	name := fmt.Sprintf("airgap-mirror-%s-%.8s.log", time.Now().Format("20060102-150405"), ex.Session.ID)
	logFile, err := ex.Fs.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return errcode.Pathf("opening log file: %v", err)
	}
	ex.logFile = logFile

	sink := io.MultiWriter(ex.Out, logFile)
	log.SetOutput(sink)
	if er, ok := ex.Exec.(*step.ExecRunner); ok {
		er.Out = sink
	}
	return nil
}

// CloseLogFile flushes and closes the session transcript.
func (ex *ExecutorSchema) CloseLogFile() {
	if ex.logFile != nil {
		log.SetOutput(os.Stderr)
		ex.logFile.Close()
	}
}

func (ex *ExecutorSchema) preflight() error {
	res := ex.Checker.Run(ex.Session)
	if err := res.Err(); err != nil {
		return err
	}
	return nil
}

// ingestPullSecret reads the pull-secret payload from the configured file or
// from stdin until end-of-stream, validates it, and persists it.
func (ex *ExecutorSchema) ingestPullSecret() error {
	var raw []byte
	var err error
	if ex.Opts.PullSecretFile != "" {
		raw, err = afero.ReadFile(ex.Fs, ex.Opts.PullSecretFile)
		if err != nil {
			return errcode.Pathf("could not read pull secret file: %v", err)
		}
	} else {
		ex.Log.Info("paste the pull secret, then close the stream (Ctrl-D)")
		raw, err = prompt.ReadAll(ex.In)
		if err != nil {
			return errcode.Secretf("reading pull secret from stdin: %v", err)
		}
	}
	path, err := ex.Secrets.Ingest(raw)
	if err != nil {
		return err
	}
	ex.Log.Info("pull secret stored at %s", path)
	return nil
}

// emitPlan derives the mirror plan from the session and writes it at its
// fixed path under the working directory.
func (ex *ExecutorSchema) emitPlan() error {
	ex.Plan = config.BuildPlan(ex.Session)
	path, err := config.WritePlan(ex.Fs, ex.Session.WorkDir, ex.Plan)
	if err != nil {
		return err
	}
	ex.PlanPath = path
	ex.Log.Info("mirror plan written to %s", path)
	return nil
}

// loadPlan re-reads the plan document the download phase shipped inside the
// payload.
func (ex *ExecutorSchema) loadPlan() error {
	path := config.PlanPath(ex.Session.WorkDir)
	cfg, err := config.ReadPlan(ex.Fs, path)
	if err != nil {
		return err
	}
	ex.Plan = cfg
	ex.PlanPath = path
	return nil
}

func (ex *ExecutorSchema) runSteps(ctx context.Context, steps []step.Step) error {
	res := ex.Runner.Run(ctx, steps)
	if res.Err != nil {
		return res.Err
	}
	if len(res.Skipped) > 0 {
		ex.Log.Warn("session finished with skipped steps: %v", res.Skipped)
	}
	ex.Log.Info("all %d steps succeeded", len(res.Completed))
	return nil
}
