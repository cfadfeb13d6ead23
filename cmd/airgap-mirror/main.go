package main

import (
	"os"

	"github.com/openshift/airgap-mirror/internal/pkg/cli"
	"github.com/openshift/airgap-mirror/internal/pkg/errcode"
	clog "github.com/openshift/airgap-mirror/internal/pkg/log"
)

func main() {
	// Setup pluggable logger. Any logging system can be plugged in via the
	// PluggableLoggerInterface in internal/pkg/log/logger.go.
	log := clog.New("info")
	rootCmd := cli.NewAirgapMirrorCmd(log)
	if err := rootCmd.Execute(); err != nil {
		log.Error("%v", err)
		os.Exit(errcode.ExitCodeFromError(err))
	}
}
