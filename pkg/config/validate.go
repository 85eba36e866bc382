package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// Exactly one backend mode must be configured.
	if c.Jupyter.URL != "" && c.Jupyter.SandboxTemplate != "" {
		errs = append(errs, fmt.Errorf("jupyter.url and jupyter.sandbox_template are mutually exclusive"))
	}
	if c.Jupyter.URL == "" && c.Jupyter.SandboxTemplate == "" {
		errs = append(errs, fmt.Errorf("either jupyter.url or jupyter.sandbox_template is required"))
	}

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	if c.Images.Dir == "" {
		errs = append(errs, fmt.Errorf("images.dir is required"))
	}

	switch c.Auth.Type {
	case "none", "apikey", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	if c.Auth.Type == "jwt" && c.Auth.JWTSecret == "" && c.Auth.JWTSecretFile == "" {
		errs = append(errs, fmt.Errorf("auth.jwt_secret or auth.jwt_secret_file is required when auth.type is \"jwt\""))
	}
	if c.Auth.Type == "apikey" && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, fmt.Errorf("auth.api_keys must not be empty when auth.type is \"apikey\""))
	}

	return errors.Join(errs...)
}
