package session

import (
	"github.com/blang/semver/v4"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/openshift/airgap-mirror/internal/pkg/errcode"
	"github.com/openshift/airgap-mirror/internal/pkg/prompt"
	"github.com/openshift/airgap-mirror/internal/pkg/version"
)

// Phase selects which half of the provisioning workflow a session drives.
type Phase string

const (
	// PhaseDownload runs on the connected host and stages the mirror payload.
	PhaseDownload Phase = "download"
	// PhaseUpload runs on the bastion and replays the payload into the local registry.
	PhaseUpload Phase = "upload"
)

// Session is the top-level planning object for one provisioning run. It is
// constructed once from user input, immutable after validation succeeds, and
// discarded at process exit.
type Session struct {
	ID               string
	Phase            Phase
	WorkDir          string
	BastionHost      string
	BaseVersion      semver.Version
	UpgradeVersion   semver.Version
	RegistryUser     string
	RegistryPassword string
}

// HasUpgrade reports whether an upgrade newer than the base version is planned.
func (s *Session) HasUpgrade() bool {
	return s.UpgradeVersion.GT(s.BaseVersion)
}

// Channel returns the release channel derived from the base version.
func (s *Session) Channel() string {
	return version.Channel(s.BaseVersion)
}

// Inputs carries the raw user-supplied values before validation. Empty fields
// that the phase requires are filled from the prompt source.
type Inputs struct {
	WorkDir          string
	BastionHost      string
	Version          string
	UpgradeVersion   string
	RegistryUser     string
	RegistryPassword string
}

// Builder turns raw inputs into a validated Session.
type Builder struct {
	Fs     afero.Fs
	Phase  Phase
	Prompt prompt.Source
}

type validationFunc func(b *Builder, in Inputs, s *Session) error

var validationChecks = []validationFunc{
	validateVersions,
	validateWorkDir,
	validateBastion,
}

// Complete fills missing required inputs from the prompt source, then
// validates every input. The first violated rule halts the session.
func (b *Builder) Complete(in Inputs) (*Session, error) {
	in, err := b.fill(in)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:               uuid.NewString(),
		Phase:            b.Phase,
		RegistryUser:     in.RegistryUser,
		RegistryPassword: in.RegistryPassword,
	}
	for _, check := range validationChecks {
		if err := check(b, in, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (b *Builder) fill(in Inputs) (Inputs, error) {
	type field struct {
		value *string
		label string
		want  bool
	}
	fields := []field{
		{&in.WorkDir, "Working directory", true},
		{&in.Version, "Target OCP version (4.y.z)", true},
		{&in.UpgradeVersion, "Upgrade OCP version (blank for none)", b.Phase == PhaseDownload},
		{&in.BastionHost, "Bastion hostname", b.Phase == PhaseUpload},
		{&in.RegistryUser, "Registry username", b.Phase == PhaseUpload},
		{&in.RegistryPassword, "Registry password", b.Phase == PhaseUpload},
	}
	for _, f := range fields {
		if !f.want || *f.value != "" {
			continue
		}
		// the upgrade version prompt may legitimately stay blank
		answer, err := b.Prompt.Ask(f.label)
		if err != nil {
			return in, err
		}
		*f.value = answer
	}
	return in, nil
}

func validateVersions(_ *Builder, in Inputs, s *Session) error {
	base, err := version.ParseOCP(in.Version)
	if err != nil {
		return err
	}
	s.BaseVersion = base
	s.UpgradeVersion = base

	if in.UpgradeVersion == "" || in.UpgradeVersion == in.Version {
		return nil
	}
	upgrade, err := version.ParseOCP(in.UpgradeVersion)
	if err != nil {
		return err
	}
	if err := version.ValidateUpgradePair(base, upgrade); err != nil {
		return err
	}
	s.UpgradeVersion = upgrade
	return nil
}

func validateWorkDir(b *Builder, in Inputs, s *Session) error {
	if in.WorkDir == "" {
		return errcode.Inputf("working directory must be set")
	}
	ok, err := afero.DirExists(b.Fs, in.WorkDir)
	if err != nil {
		return errcode.Pathf("working directory %q: %v", in.WorkDir, err)
	}
	if !ok {
		return errcode.Pathf("working directory %q not found", in.WorkDir)
	}
	s.WorkDir = in.WorkDir
	return nil
}

func validateBastion(b *Builder, in Inputs, s *Session) error {
	if b.Phase != PhaseUpload {
		return nil
	}
	if in.BastionHost == "" {
		return errcode.Inputf("bastion hostname must be set")
	}
	if in.RegistryUser == "" || in.RegistryPassword == "" {
		return errcode.Inputf("registry credentials must be set")
	}
	s.BastionHost = in.BastionHost
	return nil
}
