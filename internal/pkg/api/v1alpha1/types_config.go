package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const (
	// ImageSetConfiguration object kind.
	ImageSetConfigurationKind = "ImageSetConfiguration"
	// ImageSetConfigurationAPIVersion is the schema version consumed by oc-mirror.
	ImageSetConfigurationAPIVersion = "mirror.openshift.io/v1alpha2"
)

// ImageSetConfiguration is the declarative mirror-configuration document
// handed to oc-mirror. It is the serialized form of a MirrorPlan.
type ImageSetConfiguration struct {
	metav1.TypeMeta `json:",inline"`
	// ImageSetConfigurationSpec defines the global configuration for an imageset.
	ImageSetConfigurationSpec `json:",inline"`
}

// ImageSetConfigurationSpec defines the global configuration for an imageset.
type ImageSetConfigurationSpec struct {
	// Mirror defines the configuration for content types within the imageset.
	Mirror Mirror `json:"mirror"`
}

// Mirror defines the configuration for content types within the imageset.
type Mirror struct {
	// Platform defines the configuration for the OpenShift platform release.
	Platform Platform `json:"platform,omitempty"`
	// Operators defines the configuration for Operator content types.
	Operators []Operator `json:"operators,omitempty"`
	// AdditionalImages defines the configuration for a list
	// of individual image content types.
	AdditionalImages []Image `json:"additionalImages,omitempty"`
}

// Platform defines the configuration for the OpenShift platform release.
type Platform struct {
	// Channels defines the configuration for individual release channels.
	Channels []ReleaseChannel `json:"channels,omitempty"`
}

// ReleaseChannel defines the configuration for an individual release channel.
type ReleaseChannel struct {
	Name string `json:"name"`
	// MinVersion is the minimum version in the release channel to mirror.
	MinVersion string `json:"minVersion,omitempty"`
	// MaxVersion is the maximum version in the release channel to mirror.
	MaxVersion string `json:"maxVersion,omitempty"`
	// ShortestPath mode calculates the shortest upgrade path
	// between the min and max version.
	ShortestPath bool `json:"shortestPath,omitempty"`
}

// Operator defines the configuration for operator catalog mirroring.
type Operator struct {
	// Catalog image to mirror. This image must be pullable and available for
	// subsequent pulls on later mirrors.
	Catalog string `json:"catalog"`
	// Packages is the list of operator packages to include from the catalog.
	Packages []IncludePackage `json:"packages,omitempty"`
}

// IncludePackage contains a single operator package to mirror.
type IncludePackage struct {
	// Name of the operator package.
	Name string `json:"name"`
}

// Image contains image pull information.
type Image struct {
	// Name of the image. This should be an exact image pin
	// (registry/namespace/name@sha256:<hash>) but is not required to be.
	Name string `json:"name"`
}
