package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// applyFallbacks fills in values that cannot be expressed as static defaults
func (c *Config) applyFallbacks() error {
	if err := c.applyCredentialsFallback(); err != nil {
		return err
	}
	c.applyObservabilityDefaults()
	return nil
}

// applyCredentialsFallback resolves the default credentials location
func (c *Config) applyCredentialsFallback() error {
	if c.Backend.CredentialsFile != "" {
		c.Backend.CredentialsFile = expandHome(c.Backend.CredentialsFile)
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot determine home directory for credentials file: %w", err)
	}
	c.Backend.CredentialsFile = filepath.Join(home, ".databank", "credentials.json")
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// applyObservabilityDefaults applies default observability configuration values
func (c *Config) applyObservabilityDefaults() {
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
}

// generateServiceInstanceID generates a unique service instance ID
func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.baseURL cannot be empty")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.baseURL must start with http:// or https://: %s", c.Backend.BaseURL)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.App.LogLevel) {
		return fmt.Errorf("app.logLevel must be one of: %s", strings.Join(validLevels, ", "))
	}

	if c.App.DefaultFormat != "" && len(c.App.SupportedFormats) > 0 &&
		!slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("app.defaultFormat '%s' is not in app.supportedFormats", c.App.DefaultFormat)
	}

	if err := c.validateAnalysis(); err != nil {
		return err
	}

	return c.ValidateTLSConfig()
}

func (c *Config) validateAnalysis() error {
	cb := c.Analysis.CircuitBreaker
	if cb.Enabled {
		if cb.FailureThreshold < 0 || cb.FailureThreshold > 1 {
			return fmt.Errorf("analysis.circuitBreaker.failureThreshold must be between 0.0 and 1.0")
		}
	}
	rl := c.Analysis.RateLimit
	if rl.Enabled {
		if rl.RequestsPerMin <= 0 {
			return fmt.Errorf("analysis.rateLimit.requestsPerMin must be positive when enabled")
		}
		if rl.BurstCapacity <= 0 {
			return fmt.Errorf("analysis.rateLimit.burstCapacity must be positive when enabled")
		}
	}
	return nil
}
