package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ValidateTLSConfig validates the client TLS configuration
func (c *Config) ValidateTLSConfig() error {
	cfg := c.Backend.TLS

	if err := validateTLSVersion(cfg); err != nil {
		return err
	}

	// Client certificate and key come as a pair.
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return fmt.Errorf("backend.tls.certFile and backend.tls.keyFile must be provided together")
	}

	return nil
}

// validateTLSVersion validates the TLS version configuration
func validateTLSVersion(cfg TLSConfig) error {
	switch cfg.MinVersion {
	case "", "1.2", "1.3":
		return nil // Valid versions (empty defaults to 1.2)
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", cfg.MinVersion)
	}
}

// BuildClientTLSConfig assembles the tls.Config for the backend transport.
// It returns nil when nothing beyond the Go defaults is requested.
func (c *Config) BuildClientTLSConfig() (*tls.Config, error) {
	cfg := c.Backend.TLS

	if cfg.CAFile == "" && cfg.CertFile == "" && cfg.ServerName == "" &&
		!cfg.InsecureSkipVerify && (cfg.MinVersion == "" || cfg.MinVersion == "1.2") {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.InsecureSkipVerify, // #nosec G402 -- dev-only escape hatch, off by default
		MinVersion:         tls.VersionTLS12,
	}
	if cfg.MinVersion == "1.3" {
		tlsConfig.MinVersion = tls.VersionTLS13
	}

	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file %s: %w", cfg.CAFile, err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}
