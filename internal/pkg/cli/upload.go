package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"

	cp "github.com/otiai10/copy"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"k8s.io/kubectl/pkg/util/templates"

	"github.com/openshift/airgap-mirror/internal/pkg/errcode"
	clog "github.com/openshift/airgap-mirror/internal/pkg/log"
	"github.com/openshift/airgap-mirror/internal/pkg/session"
	"github.com/openshift/airgap-mirror/internal/pkg/step"
)

var (
	uploadLongDesc = templates.LongDesc(
		`
		Replay a staged mirror payload onto the disconnected bastion host.

		The upload phase verifies the payload layout produced by the download phase,
		re-reads the image set configuration shipped inside it, then runs the
		provisioning pipeline: tool installation, local RPM repo configuration,
		mirror-registry installation, CA trust import, registry login, and the
		oc-mirror disk-to-mirror invocation against the local registry.

		Registry installation and CA trust import are one-shot actions: when one of
		them fails the session halts and the environment must be inspected manually
		before retrying.
		`,
	)
	uploadExamples = templates.Examples(
		`
# Replay the payload against the bastion registry
airgap-mirror upload --workdir /data/mirror --version 4.19.5 \
  --bastion-host bastion.example.com --registry-user init --registry-password secret
		`,
	)
)

// NewUploadCmd - bastion phase entry point.
func NewUploadCmd(log clog.PluggableLoggerInterface) *cobra.Command {
	opts := &Options{LogLevel: "info"}
	ex := NewExecutor(log, opts)

	cmd := &cobra.Command{
		Use:           "upload",
		Short:         "Replay the mirror payload onto the bastion",
		Long:          uploadLongDesc,
		Example:       uploadExamples,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ex.Validate(); err != nil {
				return err
			}
			if err := ex.Complete(session.PhaseUpload); err != nil {
				return err
			}
			defer ex.CloseLogFile()
			return ex.RunUpload(cmd.Context())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.Inputs.WorkDir, "workdir", "d", "", "working directory holding the mirror payload")
	fs.StringVar(&opts.Inputs.Version, "version", "", "target OCP version (4.y.z)")
	fs.StringVar(&opts.Inputs.UpgradeVersion, "upgrade-version", "", "optional upgrade target version (4.y.z)")
	fs.StringVar(&opts.Inputs.BastionHost, "bastion-host", "", "hostname of the bastion running the local registry")
	fs.StringVar(&opts.Inputs.RegistryUser, "registry-user", "", "username for the local registry")
	fs.StringVar(&opts.Inputs.RegistryPassword, "registry-password", "", "password for the local registry")
	fs.StringVar(&opts.QuayRoot, "quay-root", "", "mirror-registry install root (defaults to $HOME/quay-install)")
	fs.StringVar(&opts.LogLevel, "log-level", "info", "log level (info, debug, trace, error)")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "plan and print the step pipeline without executing")
	step.RetryFlags(fs, &opts.Retry)
	return cmd
}

// RunUpload executes the bastion pipeline: preflight, plan re-load, then the
// ordered provisioning steps.
func (ex *ExecutorSchema) RunUpload(ctx context.Context) error {
	if err := ex.preflight(); err != nil {
		return err
	}
	if err := ex.loadPlan(); err != nil {
		return err
	}
	return ex.runSteps(ctx, ex.uploadSteps())
}

func (ex *ExecutorSchema) uploadSteps() []step.Step {
	s := ex.Session
	tools := filepath.Join(s.WorkDir, toolsDir)
	rpms := filepath.Join(s.WorkDir, rpmsDir)
	registry := net.JoinHostPort(s.BastionHost, registryPort)
	registryDir := filepath.Join(tools, "mirror-registry")

	steps := []step.Step{
		{
			Name:  "install-oc-client",
			Class: step.Repeatable,
			Run: step.Command(ex.Exec, "tar", "--extract", "--gzip",
				"--file", filepath.Join(tools, clientArchive(s.BaseVersion.String())),
				"--directory", binInstallDir, "oc", "kubectl"),
		},
	}

	// the newer client from the payload replaces the base install when an
	// upgrade window is planned
	if s.HasUpgrade() {
		steps = append(steps, step.Step{
			Name:  "install-upgrade-client",
			Class: step.Repeatable,
			Run: step.Command(ex.Exec, "tar", "--extract", "--gzip",
				"--file", filepath.Join(tools, clientArchive(s.UpgradeVersion.String())),
				"--directory", binInstallDir, "oc", "kubectl"),
		})
	}

	steps = append(steps,
		step.Step{
			Name:  "install-oc-mirror",
			Class: step.Repeatable,
			Run: step.Command(ex.Exec, "tar", "--extract", "--gzip",
				"--file", filepath.Join(tools, ocMirrorArchive),
				"--directory", binInstallDir),
		},
		step.Step{
			Name:  "extract-mirror-registry",
			Class: step.Repeatable,
			Run: func(ctx context.Context) error {
				if err := ex.Fs.MkdirAll(registryDir, 0o755); err != nil {
					return errcode.Pathf("creating %q: %v", registryDir, err)
				}
				return ex.Exec.Run(ctx, "tar", "--extract", "--gzip",
					"--file", filepath.Join(tools, mirrorRegistryArchive),
					"--directory", registryDir)
			},
		},
		step.Step{
			Name:  "stage-rpm-repo",
			Class: step.Repeatable,
			Run: func(context.Context) error {
				return ex.stageRPMRepo(rpms)
			},
		},
		step.Step{
			Name:  "install-packages",
			Class: step.Repeatable,
			Run: step.Command(ex.Exec, "dnf",
				append([]string{"-y", "install", "--disablerepo=*", "--enablerepo=" + localRepoID}, bastionPackages...)...),
		},
		step.Step{
			Name:  "install-mirror-registry",
			Class: step.OneShot,
			Run: step.Command(ex.Exec, filepath.Join(registryDir, "mirror-registry"), "install",
				"--quayHostname", s.BastionHost,
				"--initUser", s.RegistryUser,
				"--initPassword", s.RegistryPassword),
		},
		step.Step{
			Name:  "trust-registry-ca",
			Class: step.OneShot,
			Run: func(ctx context.Context) error {
				rootCA := filepath.Join(ex.quayRoot(), "quay-rootCA", "rootCA.pem")
				if err := ex.Exec.Run(ctx, "cp", rootCA, filepath.Join(caAnchorsDir, "quay-rootCA.pem")); err != nil {
					return err
				}
				return ex.Exec.Run(ctx, "update-ca-trust")
			},
		},
		step.Step{
			Name:    "registry-login",
			Class:   step.Repeatable,
			Retries: ex.Opts.Retry.MaxRetry,
			Delay:   ex.Opts.Retry.Delay,
			Run: step.Command(ex.Exec, "podman", "login",
				"--username", s.RegistryUser,
				"--password", s.RegistryPassword,
				registry),
		},
		step.Step{
			Name:    "disk-to-mirror",
			Class:   step.Repeatable,
			Retries: ex.Opts.Retry.MaxRetry,
			Delay:   ex.Opts.Retry.Delay,
			Run: step.Command(ex.Exec, "oc-mirror",
				"--config", ex.PlanPath,
				"--from", fmt.Sprintf("file://%s", filepath.Join(s.WorkDir, mirrorDir)),
				fmt.Sprintf("docker://%s", registry)),
		},
	)
	return steps
}

// stageRPMRepo copies the RPM payload to its system location and points dnf
// at it with a local repo definition.
func (ex *ExecutorSchema) stageRPMRepo(rpms string) error {
	if err := cp.Copy(rpms, localRepoDir); err != nil {
		return errcode.Pathf("staging RPMs to %q: %v", localRepoDir, err)
	}
	repo := fmt.Sprintf("[%s]\nname=Air-gapped local repo\nbaseurl=file://%s\nenabled=1\ngpgcheck=0\n",
		localRepoID, localRepoDir)
	if err := afero.WriteFile(ex.Fs, localRepoFile, []byte(repo), 0o644); err != nil {
		return errcode.Pathf("writing %q: %v", localRepoFile, err)
	}
	return nil
}

func (ex *ExecutorSchema) quayRoot() string {
	if ex.Opts.QuayRoot != "" {
		return ex.Opts.QuayRoot
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/root/quay-install"
	}
	return filepath.Join(home, "quay-install")
}
