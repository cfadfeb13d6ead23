package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"github.com/openshift/airgap-mirror/internal/pkg/api/v1alpha1"
	"github.com/openshift/airgap-mirror/internal/pkg/session"
)

const (
	// PlanDir is the payload subdirectory holding the mirror configuration
	// and the mirrored image set.
	PlanDir = "mirror"
	// PlanFilename is the image set configuration file consumed by oc-mirror.
	PlanFilename = "imageset-config.yaml"
)

// PlanPath returns the fixed location of the plan document under workDir.
func PlanPath(workDir string) string {
	return filepath.Join(workDir, PlanDir, PlanFilename)
}

// BuildPlan derives the declarative mirror configuration from a validated
// session. It is a pure function of the session: the same session always
// yields an identical document.
func BuildPlan(s *session.Session) v1alpha1.ImageSetConfiguration {
	return v1alpha1.ImageSetConfiguration{
		TypeMeta: metav1.TypeMeta{
			Kind:       v1alpha1.ImageSetConfigurationKind,
			APIVersion: v1alpha1.ImageSetConfigurationAPIVersion,
		},
		ImageSetConfigurationSpec: v1alpha1.ImageSetConfigurationSpec{
			Mirror: v1alpha1.Mirror{
				Platform: v1alpha1.Platform{
					Channels: []v1alpha1.ReleaseChannel{
						{
							Name:         s.Channel(),
							MinVersion:   s.BaseVersion.String(),
							MaxVersion:   s.UpgradeVersion.String(),
							ShortestPath: true,
						},
					},
				},
				Operators: []v1alpha1.Operator{
					{
						Catalog:  fmt.Sprintf(operatorCatalogTemplate, s.BaseVersion.Major, s.BaseVersion.Minor),
						Packages: includePackages(),
					},
				},
				AdditionalImages: images(),
			},
		},
	}
}

func includePackages() []v1alpha1.IncludePackage {
	pkgs := make([]v1alpha1.IncludePackage, 0, len(operatorPackages))
	for _, name := range operatorPackages {
		pkgs = append(pkgs, v1alpha1.IncludePackage{Name: name})
	}
	return pkgs
}

func images() []v1alpha1.Image {
	imgs := make([]v1alpha1.Image, 0, len(additionalImages))
	for _, name := range additionalImages {
		imgs = append(imgs, v1alpha1.Image{Name: name})
	}
	return imgs
}

// MarshalPlan renders the plan as YAML. Key order comes from the YAML
// serializer and is stable across calls, so repeated marshals of the same
// plan are byte-identical.
func MarshalPlan(cfg v1alpha1.ImageSetConfiguration) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshalling image set configuration: %w", err)
	}
	return data, nil
}

// WritePlan persists the plan document at its fixed path under workDir,
// creating the payload directory when absent.
func WritePlan(fs afero.Fs, workDir string, cfg v1alpha1.ImageSetConfiguration) (string, error) {
	data, err := MarshalPlan(cfg)
	if err != nil {
		return "", err
	}
	path := PlanPath(workDir)
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating plan directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
