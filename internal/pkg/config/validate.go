package config

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/openshift/airgap-mirror/internal/pkg/api/v1alpha1"
)

type validationFunc func(cfg *v1alpha1.ImageSetConfiguration) error

var validationChecks = []validationFunc{validateChannels, validateOperators}

// Validate will check an ImageSetConfiguration for input errors.
func Validate(cfg *v1alpha1.ImageSetConfiguration) error {
	var errs []error
	for _, check := range validationChecks {
		if err := check(cfg); err != nil {
			errs = append(errs, fmt.Errorf("invalid configuration: %v", err))
		}
	}
	return utilerrors.NewAggregate(errs)
}

func validateChannels(cfg *v1alpha1.ImageSetConfiguration) error {
	if len(cfg.Mirror.Platform.Channels) == 0 {
		return fmt.Errorf("at least one release channel is required")
	}
	seen := map[string]bool{}
	for _, channel := range cfg.Mirror.Platform.Channels {
		if seen[channel.Name] {
			return fmt.Errorf(
				"release channel %q: duplicate found in configuration", channel.Name,
			)
		}
		seen[channel.Name] = true
	}
	return nil
}

func validateOperators(cfg *v1alpha1.ImageSetConfiguration) error {
	seen := map[string]bool{}
	for _, ctlg := range cfg.Mirror.Operators {
		if ctlg.Catalog == "" {
			return fmt.Errorf("operator entry missing catalog reference")
		}
		if seen[ctlg.Catalog] {
			return fmt.Errorf(
				"catalog %q: duplicate found in configuration", ctlg.Catalog,
			)
		}
		seen[ctlg.Catalog] = true
	}
	return nil
}
