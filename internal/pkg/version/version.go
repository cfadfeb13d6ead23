package version

import (
	"fmt"
	"regexp"

	"github.com/blang/semver/v4"

	"github.com/openshift/airgap-mirror/internal/pkg/errcode"
)

// ocpVersionRegex gates the accepted OCP version format before semver parsing.
// Only 4.y.z releases with two-digit minor and patch components are provisioned
// by this tool.
var ocpVersionRegex = regexp.MustCompile(`^4\.[0-9]{1,2}\.[0-9]{1,2}$`)

// Relation describes how an upgrade version relates to its base version.
type Relation int

const (
	// RelationSame means no upgrade is planned.
	RelationSame Relation = iota
	// RelationUpgrade means the upgrade version is newer than the base.
	RelationUpgrade
	// RelationInverted means the upgrade version is older than the base.
	RelationInverted
)

// ParseOCP validates and parses an OCP release version of the form 4.y.z.
func ParseOCP(s string) (semver.Version, error) {
	if !ocpVersionRegex.MatchString(s) {
		return semver.Version{}, errcode.Inputf("version %q is not a valid OCP release version (expected 4.y.z)", s)
	}
	v, err := semver.Parse(s)
	if err != nil {
		return semver.Version{}, errcode.Inputf("version %q: %v", s, err)
	}
	return v, nil
}

// UpgradeRelation orders an upgrade version against its base using numeric
// semantic comparison, never lexical.
func UpgradeRelation(base, upgrade semver.Version) Relation {
	switch upgrade.Compare(base) {
	case 0:
		return RelationSame
	case 1:
		return RelationUpgrade
	default:
		return RelationInverted
	}
}

// ValidateUpgradePair checks that the planned upgrade does not move backwards.
// Equal versions are accepted and mean no upgrade is planned.
func ValidateUpgradePair(base, upgrade semver.Version) error {
	if UpgradeRelation(base, upgrade) == RelationInverted {
		return errcode.Inputf("upgrade version %s is older than base version %s", upgrade, base)
	}
	return nil
}

// Channel returns the release channel for a version, e.g. stable-4.19.
func Channel(v semver.Version) string {
	return fmt.Sprintf("stable-%d.%d", v.Major, v.Minor)
}
