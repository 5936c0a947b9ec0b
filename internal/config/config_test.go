package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		App: AppConfig{
			LogLevel:         "info",
			DefaultFormat:    "text",
			SupportedFormats: []string{"json", "text", "markdown"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:        "empty base URL",
			mutate:      func(c *Config) { c.Backend.BaseURL = "" },
			expectError: "backend.baseURL cannot be empty",
		},
		{
			name:        "base URL without scheme",
			mutate:      func(c *Config) { c.Backend.BaseURL = "localhost:8000" },
			expectError: "must start with http:// or https://",
		},
		{
			name:        "non-positive timeout",
			mutate:      func(c *Config) { c.Backend.Timeout = 0 },
			expectError: "backend.timeout must be positive",
		},
		{
			name:        "unknown log level",
			mutate:      func(c *Config) { c.App.LogLevel = "verbose" },
			expectError: "app.logLevel must be one of",
		},
		{
			name:        "default format outside supported formats",
			mutate:      func(c *Config) { c.App.DefaultFormat = "xml" },
			expectError: "is not in app.supportedFormats",
		},
		{
			name: "failure threshold out of range",
			mutate: func(c *Config) {
				c.Analysis.CircuitBreaker.Enabled = true
				c.Analysis.CircuitBreaker.FailureThreshold = 1.5
			},
			expectError: "failureThreshold must be between",
		},
		{
			name: "rate limit without a rate",
			mutate: func(c *Config) {
				c.Analysis.RateLimit.Enabled = true
				c.Analysis.RateLimit.BurstCapacity = 3
			},
			expectError: "requestsPerMin must be positive",
		},
		{
			name:        "invalid TLS version",
			mutate:      func(c *Config) { c.Backend.TLS.MinVersion = "1.1" },
			expectError: "invalid TLS minVersion",
		},
		{
			name:        "client cert without key",
			mutate:      func(c *Config) { c.Backend.TLS.CertFile = "/tmp/cert.pem" },
			expectError: "must be provided together",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectError == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected an error containing %q", tt.expectError)
			}
			if !strings.Contains(err.Error(), tt.expectError) {
				t.Errorf("Expected error containing %q, got: %v", tt.expectError, err)
			}
		})
	}
}

func TestApplyCredentialsFallback(t *testing.T) {
	t.Run("default location under home", func(t *testing.T) {
		cfg := validConfig()
		if err := cfg.applyFallbacks(); err != nil {
			t.Fatalf("applyFallbacks failed: %v", err)
		}
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skipf("no home directory: %v", err)
		}
		expected := filepath.Join(home, ".databank", "credentials.json")
		if cfg.Backend.CredentialsFile != expected {
			t.Errorf("Expected %q, got %q", expected, cfg.Backend.CredentialsFile)
		}
	})

	t.Run("explicit location is kept", func(t *testing.T) {
		cfg := validConfig()
		cfg.Backend.CredentialsFile = "/var/lib/databank/creds.json"
		if err := cfg.applyFallbacks(); err != nil {
			t.Fatalf("applyFallbacks failed: %v", err)
		}
		if cfg.Backend.CredentialsFile != "/var/lib/databank/creds.json" {
			t.Errorf("Explicit path was not kept: %q", cfg.Backend.CredentialsFile)
		}
	})

	t.Run("tilde prefix is expanded", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skipf("no home directory: %v", err)
		}
		cfg := validConfig()
		cfg.Backend.CredentialsFile = "~/secrets/creds.json"
		if err := cfg.applyFallbacks(); err != nil {
			t.Fatalf("applyFallbacks failed: %v", err)
		}
		expected := filepath.Join(home, "secrets", "creds.json")
		if cfg.Backend.CredentialsFile != expected {
			t.Errorf("Expected %q, got %q", expected, cfg.Backend.CredentialsFile)
		}
	})
}

func TestBuildClientTLSConfig(t *testing.T) {
	t.Run("defaults yield nil", func(t *testing.T) {
		cfg := validConfig()
		tlsConfig, err := cfg.BuildClientTLSConfig()
		if err != nil {
			t.Fatalf("BuildClientTLSConfig failed: %v", err)
		}
		if tlsConfig != nil {
			t.Errorf("Expected nil for default settings, got %+v", tlsConfig)
		}
	})

	t.Run("min version 1.3", func(t *testing.T) {
		cfg := validConfig()
		cfg.Backend.TLS.MinVersion = "1.3"
		tlsConfig, err := cfg.BuildClientTLSConfig()
		if err != nil {
			t.Fatalf("BuildClientTLSConfig failed: %v", err)
		}
		if tlsConfig == nil || tlsConfig.MinVersion != 0x0304 {
			t.Errorf("Expected TLS 1.3 minimum, got %+v", tlsConfig)
		}
	})

	t.Run("missing CA file is an error", func(t *testing.T) {
		cfg := validConfig()
		cfg.Backend.TLS.CAFile = filepath.Join(t.TempDir(), "missing.pem")
		if _, err := cfg.BuildClientTLSConfig(); err == nil {
			t.Error("Expected an error for a missing CA file")
		}
	})

	t.Run("server name override", func(t *testing.T) {
		cfg := validConfig()
		cfg.Backend.TLS.ServerName = "backend.internal"
		tlsConfig, err := cfg.BuildClientTLSConfig()
		if err != nil {
			t.Fatalf("BuildClientTLSConfig failed: %v", err)
		}
		if tlsConfig == nil || tlsConfig.ServerName != "backend.internal" {
			t.Errorf("Expected the server name override, got %+v", tlsConfig)
		}
	})
}
