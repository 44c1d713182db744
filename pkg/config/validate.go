package config

import (
	"errors"
	"fmt"
	"strings"
)

// BackendScheme returns the storage backend selected by DatabaseURL's
// scheme ("sqlite" or "postgres").
func (c *StorageConfig) BackendScheme() string {
	if idx := strings.Index(c.DatabaseURL, "://"); idx >= 0 {
		return c.DatabaseURL[:idx]
	}
	return ""
}

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Upstream.URL == "" {
		errs = append(errs, fmt.Errorf("upstream.url is required"))
	}

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	switch c.Storage.BackendScheme() {
	case "sqlite", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.database_url must have scheme \"sqlite\" or \"postgres\", got %q", c.Storage.DatabaseURL))
	}

	switch c.Auth.Mode {
	case "none", "apikey", "jwt":
		// valid
	default:
		errs = append(errs, fmt.Errorf("auth.mode must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Mode))
	}

	if c.Auth.Mode == "apikey" && len(c.Auth.APIKeys) == 0 {
		errs = append(errs, fmt.Errorf("auth.api_keys is required when auth.mode is \"apikey\""))
	}

	if c.Auth.Mode == "jwt" && c.Auth.JWTSecret == "" && c.Auth.JWTSecretFile == "" {
		errs = append(errs, fmt.Errorf("auth.jwt_secret or auth.jwt_secret_file is required when auth.mode is \"jwt\""))
	}

	return errors.Join(errs...)
}
