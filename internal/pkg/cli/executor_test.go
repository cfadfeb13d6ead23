package cli

import (
	"bytes"
	"context"
	stdlog "log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/openshift/airgap-mirror/internal/pkg/config"
	"github.com/openshift/airgap-mirror/internal/pkg/errcode"
	clog "github.com/openshift/airgap-mirror/internal/pkg/log"
	"github.com/openshift/airgap-mirror/internal/pkg/preflight"
	"github.com/openshift/airgap-mirror/internal/pkg/secret"
	"github.com/openshift/airgap-mirror/internal/pkg/session"
	"github.com/openshift/airgap-mirror/internal/pkg/step"
)

const testPullSecret = `{"auths":{"registry.redhat.io":{"auth":"dGVzdA=="}}}`

// execRecorder records every external invocation instead of running it.
type execRecorder struct {
	calls []string
}

func (e *execRecorder) Run(ctx context.Context, name string, args ...string) error {
	e.calls = append(e.calls, strings.Join(append([]string{name}, args...), " "))
	return nil
}

func (e *execRecorder) joined() string {
	return strings.Join(e.calls, "\n")
}

// stubPrompt answers every prompt with a blank line, as an operator hitting
// enter would.
type stubPrompt struct{}

func (stubPrompt) Ask(label string) (string, error) {
	return "", nil
}

func passingChecker(fs afero.Fs) *preflight.Checker {
	return &preflight.Checker{
		Log:      clog.New("error"),
		Fs:       fs,
		LookPath: func(file string) (string, error) { return "/usr/bin/" + file, nil },
		DiskFree: func(path string) (uint64, error) { return uint64(2) << 40, nil },
		RunQuiet: func(name string, args ...string) error { return nil },
		Dial: func(network, addr string, timeout time.Duration) (net.Conn, error) {
			client, server := net.Pipe()
			server.Close()
			return client, nil
		},
		ProbeTimeout: time.Second,
	}
}

func newTestExecutor(t *testing.T, opts *Options) (*ExecutorSchema, *execRecorder) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data/mirror", 0o755))

	log := clog.New("error")
	rec := &execRecorder{}
	ex := &ExecutorSchema{
		Log:     log,
		Fs:      fs,
		Opts:    opts,
		Checker: passingChecker(fs),
		Secrets: &secret.Handler{Fs: fs, RuntimeDir: "/run/user/0/containers"},
		Runner:  &step.Runner{Log: log, DryRun: opts.DryRun},
		Exec:    rec,
		Prompt:  stubPrompt{},
		In:      strings.NewReader(testPullSecret),
		Out:     &bytes.Buffer{},
	}
	t.Cleanup(ex.CloseLogFile)
	return ex, rec
}

func downloadOpts(version, upgrade string) *Options {
	return &Options{
		Inputs:   session.Inputs{WorkDir: "/data/mirror", Version: version, UpgradeVersion: upgrade},
		LogLevel: "error",
	}
}

func uploadOpts() *Options {
	return &Options{
		Inputs: session.Inputs{
			WorkDir: "/data/mirror", Version: "4.19.5",
			BastionHost: "bastion.example.com", RegistryUser: "init", RegistryPassword: "secret",
		},
		LogLevel: "error",
	}
}

func TestRunDownload(t *testing.T) {
	type spec struct {
		name       string
		upgrade    string
		expUpgrade bool
	}

	cases := []spec{
		{name: "SingleVersion", upgrade: ""},
		{name: "UpgradeWindow", upgrade: "4.19.7", expUpgrade: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ex, rec := newTestExecutor(t, downloadOpts("4.19.5", c.upgrade))
			require.NoError(t, ex.Complete(session.PhaseDownload))
			require.NoError(t, ex.RunDownload(context.Background()))

			// pipeline starts with prereq installation and ends mirroring to disk
			require.Contains(t, rec.calls[0], "dnf -y install")
			require.Contains(t, rec.calls[len(rec.calls)-1], "oc-mirror --config /data/mirror/mirror/imageset-config.yaml file:///data/mirror/mirror")

			require.Contains(t, rec.joined(), "openshift-client-linux-4.19.5.tar.gz")
			if c.expUpgrade {
				require.Contains(t, rec.joined(), "openshift-client-linux-4.19.7.tar.gz")
			} else {
				require.NotContains(t, rec.joined(), "4.19.7")
			}

			// payload layout is created on the in-memory filesystem
			for _, dir := range []string{toolsDir, rpmsDir, mirrorDir} {
				ok, err := afero.DirExists(ex.Fs, filepath.Join("/data/mirror", dir))
				require.NoError(t, err)
				require.True(t, ok, dir)
			}

			// the pull secret is ingested from stdin before any step runs
			info, err := ex.Fs.Stat("/run/user/0/containers/auth.json")
			require.NoError(t, err)
			require.Equal(t, "-rw-------", info.Mode().String())

			// the emitted plan reloads cleanly and carries the version range
			cfg, err := config.ReadPlan(ex.Fs, ex.PlanPath)
			require.NoError(t, err)
			channel := cfg.Mirror.Platform.Channels[0]
			require.Equal(t, "4.19.5", channel.MinVersion)
			if c.expUpgrade {
				require.Equal(t, "4.19.7", channel.MaxVersion)
			} else {
				require.Equal(t, "4.19.5", channel.MaxVersion)
			}
		})
	}
}

func TestDownloadHaltsOnInvalidVersion(t *testing.T) {
	ex, rec := newTestExecutor(t, downloadOpts("4.19", ""))

	err := ex.Complete(session.PhaseDownload)
	require.Error(t, err)
	require.Equal(t, errcode.InputErr, errcode.ExitCodeFromError(err))

	// nothing may run or persist after a rejected input
	require.Empty(t, rec.calls)
	ok, statErr := afero.Exists(ex.Fs, "/run/user/0/containers/auth.json")
	require.NoError(t, statErr)
	require.False(t, ok)
}

func TestDownloadHaltsOnInsufficientDisk(t *testing.T) {
	ex, rec := newTestExecutor(t, downloadOpts("4.19.5", ""))
	ex.Checker.DiskFree = func(path string) (uint64, error) { return 500 << 30, nil }

	require.NoError(t, ex.Complete(session.PhaseDownload))
	err := ex.RunDownload(context.Background())
	require.Error(t, err)
	require.Equal(t, errcode.DiskSpaceErr, errcode.ExitCodeFromError(err))
	require.Contains(t, err.Error(), "short by 524 GB")

	// preflight gates the secret and every step
	require.Empty(t, rec.calls)
	ok, statErr := afero.Exists(ex.Fs, "/run/user/0/containers/auth.json")
	require.NoError(t, statErr)
	require.False(t, ok)
}

// stagePayload lays out what a completed download leaves behind.
func stagePayload(t *testing.T, ex *ExecutorSchema) {
	t.Helper()
	for _, dir := range []string{toolsDir, rpmsDir, mirrorDir} {
		require.NoError(t, ex.Fs.MkdirAll(filepath.Join("/data/mirror", dir), 0o755))
	}
	down, _ := newTestExecutor(t, downloadOpts("4.19.5", "4.19.7"))
	require.NoError(t, down.Complete(session.PhaseDownload))
	require.NoError(t, down.emitPlan())
	data, err := afero.ReadFile(down.Fs, down.PlanPath)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(ex.Fs, config.PlanPath("/data/mirror"), data, 0o644))
}

func TestRunUploadPipeline(t *testing.T) {
	opts := uploadOpts()
	opts.DryRun = true
	ex, _ := newTestExecutor(t, opts)
	stagePayload(t, ex)

	require.NoError(t, ex.Complete(session.PhaseUpload))
	require.NoError(t, ex.RunUpload(context.Background()))

	// the reloaded plan drives the disk-to-mirror step
	require.Equal(t, "/data/mirror/mirror/imageset-config.yaml", ex.PlanPath)
	require.Equal(t, "4.19.7", ex.Plan.Mirror.Platform.Channels[0].MaxVersion)

	var names []string
	for _, s := range ex.uploadSteps() {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{
		"install-oc-client",
		"install-oc-mirror",
		"extract-mirror-registry",
		"stage-rpm-repo",
		"install-packages",
		"install-mirror-registry",
		"trust-registry-ca",
		"registry-login",
		"disk-to-mirror",
	}, names)
}

func TestUploadStepCommands(t *testing.T) {
	opts := uploadOpts()
	ex, rec := newTestExecutor(t, opts)
	stagePayload(t, ex)

	require.NoError(t, ex.Complete(session.PhaseUpload))
	require.NoError(t, ex.loadPlan())

	byName := map[string]step.Step{}
	for _, s := range ex.uploadSteps() {
		byName[s.Name] = s
	}

	require.NoError(t, byName["registry-login"].Run(context.Background()))
	require.Contains(t, rec.joined(), "podman login --username init --password secret bastion.example.com:8443")

	require.NoError(t, byName["disk-to-mirror"].Run(context.Background()))
	require.Contains(t, rec.joined(),
		"oc-mirror --config /data/mirror/mirror/imageset-config.yaml --from file:///data/mirror/mirror docker://bastion.example.com:8443")

	require.NoError(t, byName["install-mirror-registry"].Run(context.Background()))
	require.Contains(t, rec.joined(), "mirror-registry install --quayHostname bastion.example.com --initUser init --initPassword secret")
}

// An upgrade window ships a second client archive in the payload; the bastion
// installs it on top of the base client.
func TestUploadInstallsUpgradeClient(t *testing.T) {
	opts := uploadOpts()
	opts.Inputs.UpgradeVersion = "4.19.7"
	ex, rec := newTestExecutor(t, opts)
	stagePayload(t, ex)

	require.NoError(t, ex.Complete(session.PhaseUpload))

	var names []string
	byName := map[string]step.Step{}
	for _, s := range ex.uploadSteps() {
		names = append(names, s.Name)
		byName[s.Name] = s
	}
	require.Equal(t, []string{"install-oc-client", "install-upgrade-client"}, names[:2])

	require.NoError(t, byName["install-upgrade-client"].Run(context.Background()))
	require.Contains(t, rec.joined(), "openshift-client-linux-4.19.7.tar.gz")
}

func TestCloseLogFileRestoresStderr(t *testing.T) {
	ex, _ := newTestExecutor(t, downloadOpts("4.19.5", ""))
	require.NoError(t, ex.Complete(session.PhaseDownload))
	require.NotSame(t, os.Stderr, stdlog.Writer())

	ex.CloseLogFile()
	require.Same(t, os.Stderr, stdlog.Writer())
}

func TestUploadRejectsTamperedPlan(t *testing.T) {
	ex, rec := newTestExecutor(t, uploadOpts())
	stagePayload(t, ex)

	data, err := afero.ReadFile(ex.Fs, config.PlanPath("/data/mirror"))
	require.NoError(t, err)
	tampered := append(bytes.TrimRight(data, "\n"), []byte("\nbogusKey: true\n")...)
	require.NoError(t, afero.WriteFile(ex.Fs, config.PlanPath("/data/mirror"), tampered, 0o644))

	require.NoError(t, ex.Complete(session.PhaseUpload))
	err = ex.RunUpload(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
	require.Empty(t, rec.calls)
}

func TestUploadHaltsOnMissingPayload(t *testing.T) {
	ex, rec := newTestExecutor(t, uploadOpts())
	// no payload staged: preflight must reject the layout

	require.NoError(t, ex.Complete(session.PhaseUpload))
	err := ex.RunUpload(context.Background())
	require.Error(t, err)
	require.Equal(t, errcode.PathErr, errcode.ExitCodeFromError(err))
	require.Empty(t, rec.calls)
}

func TestValidate(t *testing.T) {
	type spec struct {
		name   string
		mutate func(o *Options)
		expErr string
	}

	cases := []spec{
		{name: "Valid", mutate: func(o *Options) {}},
		{
			name:   "Invalid/LogLevel",
			mutate: func(o *Options) { o.LogLevel = "verbose" },
			expErr: "log-level",
		},
		{
			name:   "Invalid/NegativeRetries",
			mutate: func(o *Options) { o.Retry.MaxRetry = -1 },
			expErr: "retry-times",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			opts := downloadOpts("4.19.5", "")
			c.mutate(opts)
			ex, _ := newTestExecutor(t, opts)

			err := ex.Validate()
			if c.expErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Equal(t, errcode.InputErr, errcode.ExitCodeFromError(err))
			require.Contains(t, err.Error(), c.expErr)
		})
	}
}
