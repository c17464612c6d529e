// util/validation_util.go

package util

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dev-mohitbeniwal/warden/config"
	"github.com/dev-mohitbeniwal/warden/model"
)

type ValidationUtil struct {
	validate *validator.Validate
}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{validate: validator.New()}
}

// ValidateObjectIdentityTypes checks a requested type list before it reaches
// the cache: empty lists and blank entries are rejected.
func (v *ValidationUtil) ValidateObjectIdentityTypes(types []model.ObjectIdentityType) error {
	if len(types) == 0 {
		return fmt.Errorf("at least one object identity type is required")
	}
	for _, t := range types {
		if err := v.validate.Var(string(t), "required,min=1,max=128"); err != nil {
			return fmt.Errorf("invalid object identity type %q: %w", t, err)
		}
	}
	return nil
}

// ValidateCacheConfiguration checks the cache section of the configuration at
// startup.
func (v *ValidationUtil) ValidateCacheConfiguration(cfg config.CacheConfiguration) error {
	if !cfg.Enabled {
		return nil
	}
	if len(cfg.TrackedTypes) == 0 {
		return fmt.Errorf("cache.trackedTypes cannot be empty when the cache is enabled")
	}
	if err := v.validate.Var(cfg.ConsistencyTimeoutSeconds, "gt=0"); err != nil {
		return fmt.Errorf("cache.consistencyTimeoutSeconds must be positive: %w", err)
	}
	if err := v.validate.Var(cfg.RefreshIntervalSeconds, "gt=0"); err != nil {
		return fmt.Errorf("cache.refreshIntervalSeconds must be positive: %w", err)
	}
	return nil
}
