package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Backend configuration
	v.SetDefault("backend.baseURL", "http://localhost:8000")
	v.SetDefault("backend.timeout", 30*time.Second)
	v.SetDefault("backend.userAgent", "databank-cli")
	v.SetDefault("backend.credentialsFile", "")
	v.SetDefault("backend.watchCredentials", false)

	// Backend TLS configuration
	v.SetDefault("backend.tls.caFile", "")
	v.SetDefault("backend.tls.certFile", "")
	v.SetDefault("backend.tls.keyFile", "")
	v.SetDefault("backend.tls.minVersion", "1.2")
	v.SetDefault("backend.tls.serverName", "")
	v.SetDefault("backend.tls.insecureSkipVerify", false)

	// Identity provider configuration
	v.SetDefault("auth.apiKey", "")
	v.SetDefault("auth.endpoint", "")
	v.SetDefault("auth.timeout", 15*time.Second)
	v.SetDefault("auth.google.clientID", "")
	v.SetDefault("auth.google.clientSecret", "")
	v.SetDefault("auth.google.redirectPort", 0)

	// Job-analysis circuit breaker defaults
	v.SetDefault("analysis.circuitBreaker.enabled", true)
	v.SetDefault("analysis.circuitBreaker.maxRequests", 3)
	v.SetDefault("analysis.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("analysis.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("analysis.circuitBreaker.minRequests", 3)
	v.SetDefault("analysis.circuitBreaker.failureThreshold", 0.6)

	// Job-analysis client-side rate limit defaults
	v.SetDefault("analysis.rateLimit.enabled", true)
	v.SetDefault("analysis.rateLimit.requestsPerMin", 10)
	v.SetDefault("analysis.rateLimit.burstCapacity", 3)

	// Application configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "text")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", int64(1024*1024)) // 1MB

	// Vault configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.authApiKey", "")
	v.SetDefault("vault.secrets.providerKeys", "")

	// Observability configuration
	v.SetDefault("observability.enabled", false)
	v.SetDefault("observability.serviceName", "databank")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 30*time.Second)
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", false)
	v.SetDefault("observability.prometheus.enabled", false)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9464")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "")
	v.SetDefault("observability.otlp.insecure", false)
}
