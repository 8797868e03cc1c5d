package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/marmos91/dittohandle/pkg/handle"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// bitstring: HS_ADMIN permission strings are made of 0 and 1 only
	_ = validate.RegisterValidation("bitstring", func(fl validator.FieldLevel) bool {
		return handle.IsBitString(fl.Field().String())
	})

	// owner: "index:prefix/suffix"
	_ = validate.RegisterValidation("owner", func(fl validator.FieldLevel) bool {
		_, _, err := handle.ParseOwner(fl.Field().String())
		return err == nil
	})
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Metrics.Textfile != "" && !cfg.Metrics.Enabled {
		return fmt.Errorf("metrics: textfile is set but metrics are not enabled")
	}

	if len(cfg.Client.AdminPermissions) > 12 {
		return fmt.Errorf("client: admin_permissions must not exceed 12 bits (got %d)", len(cfg.Client.AdminPermissions))
	}
	if !cfg.Client.PadAdminPermissions && len(cfg.Client.AdminPermissions) != 12 {
		return fmt.Errorf("client: admin_permissions must have 12 bits (got %d), or set pad_admin_permissions",
			len(cfg.Client.AdminPermissions))
	}

	seen := make(map[string]bool)
	for i, key := range cfg.Client.AllowedSearchKeys {
		if seen[key] {
			return fmt.Errorf("client.allowed_search_keys[%d]: duplicate key %q", i, key)
		}
		seen[key] = true
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
