package databank

import (
	"encoding/json"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"databank/internal/config"
	"databank/internal/errors"
)

// AnalysisBreaker wraps job-analysis calls with circuit breaker protection.
// These calls fan out to an AI provider server-side and are the slowest and
// flakiest thing the client does, so they fail fast once the backend starts
// timing out.
type AnalysisBreaker struct {
	cb *gobreaker.CircuitBreaker[json.RawMessage]
}

// NewAnalysisBreaker creates a circuit breaker for one analysis operation.
// A nil return means the breaker is disabled and calls run unprotected.
func NewAnalysisBreaker(operation string, cfg config.CircuitBreakerConfig, logger *errors.Logger) *AnalysisBreaker {
	if !cfg.Enabled {
		return nil
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("Analysis-%s", operation),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests &&
				failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if logger != nil {
				logger.Info("Circuit breaker state changed",
					"name", name,
					"operation", operation,
					"from", from.String(),
					"to", to.String(),
					"max_requests", cfg.MaxRequests,
					"failure_threshold", cfg.FailureThreshold)
			}
		},
	}

	return &AnalysisBreaker{
		cb: gobreaker.NewCircuitBreaker[json.RawMessage](settings),
	}
}

// Execute runs the provided function with circuit breaker protection.
func (b *AnalysisBreaker) Execute(fn func() (json.RawMessage, error)) (json.RawMessage, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// GetStats returns circuit breaker statistics.
func (b *AnalysisBreaker) GetStats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{
			"enabled": false,
		}
	}
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// IsHealthy returns true if the circuit breaker is in closed state.
func (b *AnalysisBreaker) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
