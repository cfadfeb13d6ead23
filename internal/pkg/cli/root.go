package cli

import (
	"k8s.io/kubectl/pkg/util/templates"

	"github.com/spf13/cobra"

	clog "github.com/openshift/airgap-mirror/internal/pkg/log"
)

var rootLongDesc = templates.LongDesc(
	`
	Provision an air-gapped OpenShift container image mirror.

	The workflow has two halves. The download command runs on a connected host and
	stages CLI tools, RPM packages and the mirrored image set into a working
	directory. That directory is then transferred to the disconnected bastion,
	where the upload command replays it into a freshly installed local registry.
	`,
)

// NewAirgapMirrorCmd - cobra entry point.
func NewAirgapMirrorCmd(log clog.PluggableLoggerInterface) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "airgap-mirror",
		Short:         "Provision an air-gapped OpenShift image mirror",
		Long:          rootLongDesc,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.AddCommand(NewDownloadCmd(log))
	cmd.AddCommand(NewUploadCmd(log))
	return cmd
}
