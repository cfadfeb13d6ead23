package secret

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/openshift/airgap-mirror/internal/pkg/errcode"
)

func TestIngest(t *testing.T) {
	type spec struct {
		name    string
		payload string
		expErr  bool
	}

	cases := []spec{
		{name: "Valid/PullSecret", payload: `{"auths":{"registry.redhat.io":{"auth":"abc"}}}`},
		{name: "Valid/SurroundingWhitespace", payload: "\n  {\"auths\":{}}  \n"},
		{name: "Invalid/Truncated", payload: `{"auths":{"registry`, expErr: true},
		{name: "Invalid/NotJSON", payload: "not a secret", expErr: true},
		{name: "Invalid/Empty", payload: "", expErr: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			h := &Handler{Fs: fs, RuntimeDir: "/run/user/1000/containers"}

			path, err := h.Ingest([]byte(c.payload))
			if c.expErr {
				require.Error(t, err)
				require.Equal(t, errcode.SecretErr, errcode.ExitCodeFromError(err))
				// a rejected payload must never be persisted
				ok, statErr := afero.Exists(fs, filepath.Join(h.RuntimeDir, authFilename))
				require.NoError(t, statErr)
				require.False(t, ok)
				return
			}
			require.NoError(t, err)
			require.Equal(t, filepath.Join(h.RuntimeDir, authFilename), path)

			info, err := fs.Stat(path)
			require.NoError(t, err)
			require.Equal(t, "-rw-------", info.Mode().String())
		})
	}
}

func TestIngestOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	h := &Handler{Fs: fs, RuntimeDir: "/run/user/1000/containers"}

	_, err := h.Ingest([]byte(`{"auths":{"old":{}}}`))
	require.NoError(t, err)
	path, err := h.Ingest([]byte(`{"auths":{"new":{}}}`))
	require.NoError(t, err)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	require.JSONEq(t, `{"auths":{"new":{}}}`, string(data))
}
