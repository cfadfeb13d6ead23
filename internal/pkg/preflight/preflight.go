package preflight

import (
	"fmt"
	"io"
	"net"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/openshift/airgap-mirror/internal/pkg/errcode"
	clog "github.com/openshift/airgap-mirror/internal/pkg/log"
	"github.com/openshift/airgap-mirror/internal/pkg/session"
)

const (
	// requiredFreeBytes is the free-space floor for the download phase.
	// Release payload, operator catalogs and RPMs comfortably exceed
	// half of this on a full mirror.
	requiredFreeBytes uint64 = 1 << 40 // 1 TiB
	gib               uint64 = 1 << 30

	defaultProbeTimeout = 5 * time.Second
	sshPort             = "22"
)

// payloadDirs is the layout the download phase produces and the upload phase
// consumes.
var payloadDirs = []string{"tools", "rpms", "mirror"}

// createrepo_c and podman are not preconditions on the connected host; the
// install-prereqs step brings them in via dnf. Likewise on a fresh bastion
// podman arrives from the local repo during install-packages.
var downloadTools = []string{"dnf", "curl", "tar"}
var uploadTools = []string{"dnf", "tar"}

// Check is the outcome of one named precondition probe.
type Check struct {
	Name   string
	Passed bool
	Detail string
	err    error
}

// Result aggregates all checks of one preflight pass.
type Result struct {
	Checks []Check
}

// Err returns nil when every check passed. Otherwise it returns a single
// error carrying every failure detail, whose exit code is taken from the
// first failed check in declared order.
func (r Result) Err() error {
	var errs []error
	code := 0
	for _, c := range r.Checks {
		if c.Passed {
			continue
		}
		errs = append(errs, c.err)
		if code == 0 {
			code = errcode.ExitCodeFromError(c.err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &failure{code: code, agg: utilerrors.NewAggregate(errs)}
}

type failure struct {
	code int
	agg  error
}

func (f *failure) Error() string {
	return f.agg.Error()
}

func (f *failure) ExitCode() int {
	return f.code
}

// Checker verifies environment preconditions before any mutating step runs.
// The probing functions are fields so tests can substitute them.
type Checker struct {
	Log          clog.PluggableLoggerInterface
	Fs           afero.Fs
	LookPath     func(file string) (string, error)
	DiskFree     func(path string) (uint64, error)
	RunQuiet     func(name string, args ...string) error
	Dial         func(network, addr string, timeout time.Duration) (net.Conn, error)
	ProbeTimeout time.Duration
}

// New returns a Checker probing the real host.
func New(log clog.PluggableLoggerInterface) *Checker {
	return &Checker{
		Log:      log,
		Fs:       afero.NewOsFs(),
		LookPath: exec.LookPath,
		DiskFree: diskFree,
		RunQuiet: func(name string, args ...string) error {
			cmd := exec.Command(name, args...)
			cmd.Stdout = io.Discard
			cmd.Stderr = io.Discard
			return cmd.Run()
		},
		Dial:         net.DialTimeout,
		ProbeTimeout: defaultProbeTimeout,
	}
}

// Run executes the preflight checks for the session's phase. Independent
// checks all run so the operator sees every failure at once.
func (c *Checker) Run(s *session.Session) Result {
	var checks []Check
	switch s.Phase {
	case session.PhaseDownload:
		checks = []Check{
			c.subscriptionCheck(),
			c.diskSpaceCheck(s.WorkDir),
			c.toolsCheck(downloadTools),
		}
	case session.PhaseUpload:
		checks = []Check{
			c.layoutCheck(s.WorkDir),
			c.toolsCheck(uploadTools),
			c.reachableCheck(s.BastionHost),
		}
	}

	for _, check := range checks {
		if check.Passed {
			c.Log.Info("preflight %s: ok (%s)", check.Name, check.Detail)
		} else {
			c.Log.Error("preflight %s: %s", check.Name, check.Detail)
		}
	}
	return Result{Checks: checks}
}

// subscriptionCheck requires a subscription-management facility and an active
// subscription. An absent facility and an inactive subscription are distinct
// failures with distinct exit codes; downstream tooling depends on that.
func (c *Checker) subscriptionCheck() Check {
	if _, err := c.LookPath("subscription-manager"); err != nil {
		e := errcode.Toolf("subscription-manager not found on PATH")
		return Check{Name: "subscription-active", Detail: e.Error(), err: e}
	}
	if err := c.RunQuiet("subscription-manager", "status"); err != nil {
		e := errcode.Subscriptionf("host has no active subscription: %v", err)
		return Check{Name: "subscription-active", Detail: e.Error(), err: e}
	}
	return Check{Name: "subscription-active", Passed: true, Detail: "subscription is active"}
}

func (c *Checker) diskSpaceCheck(workDir string) Check {
	free, err := c.DiskFree(workDir)
	if err != nil {
		e := errcode.Pathf("checking free space at %q: %v", workDir, err)
		return Check{Name: "disk-space", Detail: e.Error(), err: e}
	}
	if free < requiredFreeBytes {
		shortGB := (requiredFreeBytes - free + gib - 1) / gib
		e := errcode.DiskSpacef("insufficient space at %q: need 1 TiB free, short by %d GB", workDir, shortGB)
		return Check{Name: "disk-space", Detail: e.Error(), err: e}
	}
	return Check{Name: "disk-space", Passed: true, Detail: fmt.Sprintf("%d GB free", free/gib)}
}

func (c *Checker) layoutCheck(workDir string) Check {
	var missing []string
	for _, dir := range payloadDirs {
		ok, err := afero.DirExists(c.Fs, filepath.Join(workDir, dir))
		if err != nil || !ok {
			missing = append(missing, dir)
		}
	}
	if len(missing) > 0 {
		e := errcode.Pathf("payload layout incomplete at %q: missing %s", workDir, strings.Join(missing, ", "))
		return Check{Name: "payload-layout", Detail: e.Error(), err: e}
	}
	return Check{Name: "payload-layout", Passed: true, Detail: "tools, rpms and mirror directories present"}
}

func (c *Checker) toolsCheck(tools []string) Check {
	var missing []string
	for _, tool := range tools {
		if _, err := c.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		e := errcode.Toolf("required tools not found on PATH: %s", strings.Join(missing, ", "))
		return Check{Name: "tools-present", Detail: e.Error(), err: e}
	}
	return Check{Name: "tools-present", Passed: true, Detail: "all required tools present"}
}

// reachableCheck issues a single bounded TCP probe against the bastion's ssh
// port. This is the only network call preflight makes.
func (c *Checker) reachableCheck(host string) Check {
	conn, err := c.Dial("tcp", net.JoinHostPort(host, sshPort), c.ProbeTimeout)
	if err != nil {
		e := errcode.Inputf("bastion host %q unreachable: %v", host, err)
		return Check{Name: "host-reachable", Detail: e.Error(), err: e}
	}
	conn.Close()
	return Check{Name: "host-reachable", Passed: true, Detail: fmt.Sprintf("%s answers on port %s", host, sshPort)}
}
