package api

import (
	"errors"
	"net/http"
	"os"

	apperrors "databank/internal/errors"
)

// authTransport attaches the current bearer token, when present, to every
// outgoing request. The request body is never touched.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenStore
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// A request that already carries an Authorization header is presenting its
	// own assertion (the /auth/login exchange does this) and is left alone.
	if req.Header.Get("Authorization") != "" {
		return t.base.RoundTrip(req)
	}

	token := t.tokens.Get()
	if token == "" {
		return t.base.RoundTrip(req)
	}

	// Per RoundTripper contract the request must not be mutated in place.
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(clone)
}

// statusTransport inspects every response and error. Successful responses
// pass through unchanged. A 401 clears the token store and publishes exactly
// one invalidation event for that response; transport failures are classified
// and logged.
type statusTransport struct {
	base   http.RoundTripper
	tokens TokenStore
	bus    *InvalidationBus
	logger *apperrors.Logger
}

func (t *statusTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logTransportError(req, err)
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if clearErr := t.tokens.Clear(); clearErr != nil && t.logger != nil {
			t.logger.LogError(clearErr, "Failed to clear token after 401")
		}
		if t.logger != nil {
			t.logger.Warn("Backend rejected bearer token",
				"status", resp.StatusCode,
				"path", req.URL.Path)
		}
		if t.bus != nil {
			t.bus.Publish(TokenInvalidEvent{
				Status: resp.StatusCode,
				Path:   req.URL.Path,
			})
		}
	}

	return resp, nil
}

func (t *statusTransport) logTransportError(req *http.Request, err error) {
	if t.logger == nil {
		return
	}
	if isTimeout(err) {
		t.logger.Warn("Request timed out",
			"method", req.Method,
			"path", req.URL.Path)
		return
	}
	t.logger.LogError(err, "Request transport failure",
		"method", req.Method,
		"path", req.URL.Path)
}

func isTimeout(err error) bool {
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}
