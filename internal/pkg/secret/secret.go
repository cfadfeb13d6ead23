package secret

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"

	"github.com/openshift/airgap-mirror/internal/pkg/errcode"
)

const (
	runtimeEnvVar = "XDG_RUNTIME_DIR"
	authFilename  = "auth.json"
	containersDir = "containers"
)

// Handler ingests the pull-secret payload and persists it where podman and
// oc-mirror expect registry credentials.
type Handler struct {
	Fs         afero.Fs
	RuntimeDir string
}

// New returns a Handler rooted at $XDG_RUNTIME_DIR/containers, falling back
// to the per-user runtime path when the variable is unset.
func New(fs afero.Fs) *Handler {
	base := os.Getenv(runtimeEnvVar)
	if base == "" {
		base = filepath.Join("/run/user", strconv.Itoa(os.Getuid()))
	}
	return &Handler{Fs: fs, RuntimeDir: filepath.Join(base, containersDir)}
}

// Ingest validates that raw is well-formed JSON and persists it with
// owner-only permissions. The validation is parse-only; credentials inside
// the payload are not inspected. An existing secret file is overwritten.
func (h *Handler) Ingest(raw []byte) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return "", errcode.Secretf("pull secret payload is not valid JSON")
	}
	if err := h.Fs.MkdirAll(h.RuntimeDir, 0o700); err != nil {
		return "", errcode.Secretf("creating runtime directory %q: %v", h.RuntimeDir, err)
	}
	path := filepath.Join(h.RuntimeDir, authFilename)
	if err := afero.WriteFile(h.Fs, path, trimmed, 0o600); err != nil {
		return "", errcode.Secretf("writing pull secret to %q: %v", path, err)
	}
	return path, nil
}
