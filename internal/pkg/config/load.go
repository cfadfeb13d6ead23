package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"github.com/openshift/airgap-mirror/internal/pkg/api/v1alpha1"
	"github.com/openshift/airgap-mirror/internal/pkg/errcode"
)

// ReadPlan opens the plan document emitted by the download phase and loads it
// for the upload phase. Unknown fields and a wrong kind are rejected so a
// hand-edited or truncated plan fails before any mutating step runs.
func ReadPlan(fs afero.Fs, path string) (v1alpha1.ImageSetConfiguration, error) {
	var cfg v1alpha1.ImageSetConfiguration

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return cfg, errcode.Pathf("could not read mirror plan: %v", err)
	}

	var configMap map[string]any
	if err := yaml.UnmarshalStrict(data, &configMap); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	kind, ok := configMap["kind"]
	if !ok {
		return cfg, fmt.Errorf("plan %s missing `kind`", path)
	}
	if kind != v1alpha1.ImageSetConfigurationKind {
		return cfg, fmt.Errorf("cannot parse %q as %q", kind, v1alpha1.ImageSetConfigurationKind)
	}

	cfg, err = loadPlan(data)
	if err != nil {
		return cfg, err
	}
	if err := Validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadPlan(data []byte) (cfg v1alpha1.ImageSetConfiguration, err error) {
	if data, err = yaml.YAMLToJSON(data); err != nil {
		return cfg, fmt.Errorf("yaml to json %s: %v", v1alpha1.ImageSetConfigurationKind, err)
	}

	dec := json.NewDecoder(bytes.NewBuffer(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %v", v1alpha1.ImageSetConfigurationKind, err)
	}
	return cfg, nil
}
