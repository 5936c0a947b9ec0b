package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
// Secret precedence order:
// 1. Vault (if configured) - Highest priority
// 2. Config file values
// 3. Environment variables (DATABANK_BACKEND_BASEURL, etc.)
// 4. Default values - Lowest priority
type Config struct {
	Backend       BackendConfig       `mapstructure:"backend"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// BackendConfig holds the resume-databank backend connection settings
type BackendConfig struct {
	BaseURL   string        `mapstructure:"baseURL"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"userAgent"`

	// CredentialsFile is where the bearer token is persisted. Empty means
	// the default location under the home directory.
	CredentialsFile string `mapstructure:"credentialsFile"`
	// WatchCredentials enables the fsnotify watcher so token changes made
	// by another process are picked up live.
	WatchCredentials bool `mapstructure:"watchCredentials"`

	TLS TLSConfig `mapstructure:"tls"`
}

// TLSConfig holds client-side TLS settings for talking to the backend
type TLSConfig struct {
	CAFile   string `mapstructure:"caFile"`   // Extra CA certificate (PEM)
	CertFile string `mapstructure:"certFile"` // Client certificate for mTLS (PEM)
	KeyFile  string `mapstructure:"keyFile"`  // Client private key for mTLS (PEM)

	MinVersion         string `mapstructure:"minVersion"`         // Minimum TLS version: "1.2", "1.3"
	ServerName         string `mapstructure:"serverName"`         // Expected server name
	InsecureSkipVerify bool   `mapstructure:"insecureSkipVerify"` // Skip certificate verification (dev only)
}

// AuthConfig holds identity-provider settings
type AuthConfig struct {
	// APIKey is the identity provider's web API key (vault-resolvable).
	APIKey string `mapstructure:"apiKey"`
	// Endpoint overrides the identity provider REST endpoint, mainly for
	// tests against a fake provider.
	Endpoint string `mapstructure:"endpoint"`
	// Timeout bounds each identity-provider call.
	Timeout time.Duration `mapstructure:"timeout"`

	Google GoogleOAuthConfig `mapstructure:"google"`
}

// GoogleOAuthConfig holds the federated sign-in settings
type GoogleOAuthConfig struct {
	ClientID     string `mapstructure:"clientID"`
	ClientSecret string `mapstructure:"clientSecret"`
	// RedirectPort is the loopback port the browser is sent back to during
	// the authorization-code flow. 0 picks a free port.
	RedirectPort int `mapstructure:"redirectPort"`
}

// AnalysisConfig holds settings for the AI-backed job-analysis operations
type AnalysisConfig struct {
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
	RateLimit      RateLimitConfig      `mapstructure:"rateLimit"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`          // Whether circuit breaker is enabled
	MaxRequests      uint32        `mapstructure:"maxRequests"`      // Max requests allowed when half-open
	Interval         time.Duration `mapstructure:"interval"`         // Interval to clear counts
	Timeout          time.Duration `mapstructure:"timeout"`          // Timeout for half-open to open
	MinRequests      uint32        `mapstructure:"minRequests"`      // Minimum requests before tripping
	FailureThreshold float64       `mapstructure:"failureThreshold"` // Failure ratio threshold (0.0-1.0)
}

// RateLimitConfig holds the client-side limiter for AI-backed calls. The
// backend bills these against the user's own provider key, so the client
// throttles itself.
type RateLimitConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	RequestsPerMin int  `mapstructure:"requestsPerMin"`
	BurstCapacity  int  `mapstructure:"burstCapacity"`
}

// AppConfig holds general application configuration
type AppConfig struct {
	LogLevel         string   `mapstructure:"logLevel"`
	DefaultFormat    string   `mapstructure:"defaultFormat"`
	SupportedFormats []string `mapstructure:"supportedFormats"`
	MaxFileSize      int64    `mapstructure:"maxFileSize"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	ServiceName     string           `mapstructure:"serviceName"`
	ServiceVersion  string           `mapstructure:"serviceVersion"`
	ServiceInstance string           `mapstructure:"serviceInstance"`
	ConsoleOutput   bool             `mapstructure:"consoleOutput"`
	SampleRate      float64          `mapstructure:"sampleRate"`
	Tracing         TracingConfig    `mapstructure:"tracing"`
	Metrics         MetricsConfig    `mapstructure:"metrics"`
	Console         ConsoleConfig    `mapstructure:"console"`
	Prometheus      PrometheusConfig `mapstructure:"prometheus"`
	OTLP            OTLPConfig       `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console output configuration
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from environment variables and a config file
func LoadConfig() (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set up environment variable handling
	v.SetEnvPrefix("DATABANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set up config file handling
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/databank/")
	v.AddConfigPath("$HOME/.databank")
	v.AddConfigPath(".")

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal the configuration into the Config struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply fallback logic
	if err := config.applyFallbacks(); err != nil {
		return nil, fmt.Errorf("failed to apply configuration fallbacks: %w", err)
	}

	// Validate the configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
