package config

// operatorCatalogTemplate is the versioned catalog the operator packages
// below are mirrored from. The tag tracks the base release minor.
const operatorCatalogTemplate = "registry.redhat.io/redhat/redhat-operator-index:v%d.%d"

// operatorPackages is the curated package list every disconnected install of
// ours carries. Order here is the order in the emitted plan; do not sort.
var operatorPackages = []string{
	"advanced-cluster-management",
	"multicluster-engine",
	"local-storage-operator",
	"odf-operator",
	"lvms-operator",
	"kubernetes-nmstate-operator",
	"cluster-logging",
	"loki-operator",
	"quay-operator",
	"cincinnati-operator",
}

// additionalImages are non-operator images the bastion needs for day-2
// debugging and provisioning.
var additionalImages = []string{
	"registry.redhat.io/ubi9/ubi:latest",
	"registry.redhat.io/rhel9/support-tools:latest",
}
