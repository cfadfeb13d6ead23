package cli

const (
	logsDir   string = "logs"
	toolsDir  string = "tools"
	rpmsDir   string = "rpms"
	mirrorDir string = "mirror"

	clientsBaseURL    string = "https://mirror.openshift.com/pub/openshift-v4/x86_64/clients/ocp"
	mirrorRegistryURL string = "https://mirror.openshift.com/pub/cgw/mirror-registry/latest/mirror-registry-amd64.tar.gz"

	mirrorRegistryArchive string = "mirror-registry-amd64.tar.gz"
	ocMirrorArchive       string = "oc-mirror.tar.gz"

	registryPort  string = "8443"
	binInstallDir string = "/usr/local/bin"

	localRepoID   string = "airgap-local"
	localRepoDir  string = "/opt/airgap-mirror/rpms"
	localRepoFile string = "/etc/yum.repos.d/airgap-local.repo"

	caAnchorsDir string = "/etc/pki/ca-trust/source/anchors"
)

// bastionPackages travel as RPMs in the payload and are installed on the
// disconnected host from the local repo.
var bastionPackages = []string{"podman", "jq", "httpd-tools", "createrepo_c"}

// hostPrereqs are installed on the connected host before downloads start.
var hostPrereqs = []string{"podman", "createrepo_c", "jq"}
