package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"k8s.io/kubectl/pkg/util/templates"

	"github.com/openshift/airgap-mirror/internal/pkg/errcode"
	clog "github.com/openshift/airgap-mirror/internal/pkg/log"
	"github.com/openshift/airgap-mirror/internal/pkg/session"
	"github.com/openshift/airgap-mirror/internal/pkg/step"
)

var (
	downloadLongDesc = templates.LongDesc(
		`
		Stage everything an air-gapped OpenShift mirror needs onto a connected host.

		The download phase verifies the host preconditions (active subscription, 1 TiB of
		free space at the working directory, required tools), ingests the pull secret,
		derives the image set configuration from the requested version range, and then
		runs the provisioning pipeline: prerequisite packages, CLI clients, the
		mirror-registry installer, the RPM payload, and the oc-mirror mirror-to-disk
		invocation.

		The populated working directory is the payload to transfer to the bastion and
		replay with the upload command.
		`,
	)
	downloadExamples = templates.Examples(
		`
# Interactive run; the pull secret is pasted on stdin
airgap-mirror download

# Non-interactive run with an upgrade window
airgap-mirror download --workdir /data/mirror --version 4.19.5 --upgrade-version 4.19.7 \
  --pull-secret-file ~/pull-secret.json
		`,
	)
)

// NewDownloadCmd - connected-host phase entry point.
func NewDownloadCmd(log clog.PluggableLoggerInterface) *cobra.Command {
	opts := &Options{LogLevel: "info"}
	ex := NewExecutor(log, opts)

	cmd := &cobra.Command{
		Use:           "download",
		Short:         "Stage the mirror payload on a connected host",
		Long:          downloadLongDesc,
		Example:       downloadExamples,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ex.Validate(); err != nil {
				return err
			}
			if err := ex.Complete(session.PhaseDownload); err != nil {
				return err
			}
			defer ex.CloseLogFile()
			return ex.RunDownload(cmd.Context())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.Inputs.WorkDir, "workdir", "d", "", "working directory receiving the mirror payload")
	fs.StringVar(&opts.Inputs.Version, "version", "", "target OCP version (4.y.z)")
	fs.StringVar(&opts.Inputs.UpgradeVersion, "upgrade-version", "", "optional upgrade target version (4.y.z)")
	fs.StringVar(&opts.PullSecretFile, "pull-secret-file", "", "read the pull secret from this file instead of stdin")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "log level (info, debug, trace, error)")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "plan and print the step pipeline without executing")
	step.RetryFlags(fs, &opts.Retry)
	return cmd
}

// RunDownload executes the connected-host pipeline: preflight, secret
// ingestion, plan emission, then the ordered provisioning steps.
func (ex *ExecutorSchema) RunDownload(ctx context.Context) error {
	if err := ex.preflight(); err != nil {
		return err
	}
	if err := ex.ingestPullSecret(); err != nil {
		return err
	}
	if err := ex.emitPlan(); err != nil {
		return err
	}
	return ex.runSteps(ctx, ex.downloadSteps())
}

func (ex *ExecutorSchema) downloadSteps() []step.Step {
	s := ex.Session
	tools := filepath.Join(s.WorkDir, toolsDir)
	rpms := filepath.Join(s.WorkDir, rpmsDir)

	steps := []step.Step{
		{
			Name:  "workspace-layout",
			Class: step.Repeatable,
			Run: func(context.Context) error {
				for _, dir := range []string{tools, rpms, filepath.Join(s.WorkDir, mirrorDir)} {
					if err := ex.Fs.MkdirAll(dir, 0o755); err != nil {
						return errcode.Pathf("creating %q: %v", dir, err)
					}
				}
				return nil
			},
		},
		{
			Name:  "install-prereqs",
			Class: step.Repeatable,
			Run:   step.Command(ex.Exec, "dnf", append([]string{"-y", "install"}, hostPrereqs...)...),
		},
		ex.fetchStep("download-oc-client",
			clientURL(s.BaseVersion.String(), clientArchive(s.BaseVersion.String())),
			filepath.Join(tools, clientArchive(s.BaseVersion.String()))),
		ex.fetchStep("download-oc-mirror",
			clientURL(s.BaseVersion.String(), ocMirrorArchive),
			filepath.Join(tools, ocMirrorArchive)),
		ex.fetchStep("download-mirror-registry", mirrorRegistryURL,
			filepath.Join(tools, mirrorRegistryArchive)),
	}

	// the upgrade client only travels when an upgrade window is planned
	if s.HasUpgrade() {
		steps = append(steps, ex.fetchStep("download-upgrade-client",
			clientURL(s.UpgradeVersion.String(), clientArchive(s.UpgradeVersion.String())),
			filepath.Join(tools, clientArchive(s.UpgradeVersion.String()))))
	}

	steps = append(steps,
		step.Step{
			Name:    "download-rpms",
			Class:   step.Repeatable,
			Retries: ex.Opts.Retry.MaxRetry,
			Delay:   ex.Opts.Retry.Delay,
			Run: step.Command(ex.Exec, "dnf",
				append([]string{"download", "--resolve", "--destdir", rpms}, bastionPackages...)...),
		},
		step.Step{
			Name:  "create-rpm-repo",
			Class: step.Repeatable,
			Run:   step.Command(ex.Exec, "createrepo_c", rpms),
		},
		step.Step{
			Name:    "mirror-to-disk",
			Class:   step.Repeatable,
			Retries: ex.Opts.Retry.MaxRetry,
			Delay:   ex.Opts.Retry.Delay,
			Run: step.Command(ex.Exec, "oc-mirror",
				"--config", ex.PlanPath,
				fmt.Sprintf("file://%s", filepath.Join(s.WorkDir, mirrorDir))),
		},
	)
	return steps
}

// fetchStep downloads url to dest, tolerating transient network failures via
// the operator-tunable retry policy.
func (ex *ExecutorSchema) fetchStep(name, url, dest string) step.Step {
	return step.Step{
		Name:    name,
		Class:   step.Repeatable,
		Retries: ex.Opts.Retry.MaxRetry,
		Delay:   ex.Opts.Retry.Delay,
		Run:     step.Command(ex.Exec, "curl", "-sSL", "--fail", "-o", dest, url),
	}
}

func clientArchive(version string) string {
	return fmt.Sprintf("openshift-client-linux-%s.tar.gz", version)
}

func clientURL(version, archive string) string {
	return fmt.Sprintf("%s/%s/%s", clientsBaseURL, version, archive)
}
