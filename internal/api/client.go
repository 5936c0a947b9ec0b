package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apperrors "databank/internal/errors"
)

// Options configures the backend HTTP client.
type Options struct {
	// BaseURL is the backend root, for example http://localhost:8000.
	BaseURL string
	// Timeout is the fixed per-request timeout. On timeout the call surfaces
	// as a generic failure; retries are the caller's responsibility.
	Timeout time.Duration
	// UserAgent is sent with every request when non-empty.
	UserAgent string
	// TLS optionally overrides the transport TLS settings (custom CA,
	// client certificates).
	TLS *tls.Config
	// Instrument wraps the transport with otelhttp when true.
	Instrument bool
}

// Client is the configured HTTP transport all resource clients share: one
// base URL, default headers, a fixed timeout, and the interceptor chain that
// attaches the bearer token and reacts to 401s.
type Client struct {
	base      *url.URL
	http      *http.Client
	userAgent string
	logger    *apperrors.Logger
}

// NewClient builds the client with its interceptor chain. authTransport is
// outermost so the token is attached before instrumentation and status
// inspection see the request.
func NewClient(opts Options, tokens TokenStore, bus *InvalidationBus, logger *apperrors.Logger) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig,
			"backend base URL cannot be empty", nil)
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig,
			fmt.Sprintf("invalid backend base URL: %s", opts.BaseURL), err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, apperrors.NewConfigError(apperrors.ErrCodeInvalidConfig,
			fmt.Sprintf("backend base URL must be http or https: %s", opts.BaseURL), nil)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	var rt http.RoundTripper = newBaseTransport(opts.TLS)
	rt = &statusTransport{base: rt, tokens: tokens, bus: bus, logger: logger}
	if opts.Instrument {
		rt = otelhttp.NewTransport(rt)
	}
	rt = &authTransport{base: rt, tokens: tokens}

	return &Client{
		base:      base,
		userAgent: opts.UserAgent,
		logger:    logger,
		http: &http.Client{
			Transport: rt,
			Timeout:   timeout,
		},
	}, nil
}

func newBaseTransport(tlsConfig *tls.Config) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsConfig != nil {
		transport.TLSClientConfig = tlsConfig
	}
	return transport
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Request describes one backend call.
type Request struct {
	Method string
	// Path is relative to the base URL, for example /api/skills/.
	Path  string
	Query url.Values
	// Body is JSON-encoded when non-nil.
	Body any
	// Header entries are set on the outgoing request, overriding defaults.
	Header http.Header
}

// Do issues the request and decodes a JSON response body into out when out is
// non-nil. Non-2xx statuses come back as *StatusError with the backend's
// error message unwrapped; a literal null body leaves out at its zero value.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return apperrors.NewNetworkError(apperrors.ErrCodeRequestFailed,
			fmt.Sprintf("%s %s failed", req.Method, req.Path), err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && c.logger != nil {
			c.logger.Warn("Failed to close response body", "path", req.Path, "error", closeErr)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewNetworkError(apperrors.ErrCodeRequestFailed,
			fmt.Sprintf("failed to read response from %s", req.Path), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(body)}
	}

	if out == nil {
		return nil
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewAPIError(apperrors.ErrCodeMalformedPayload,
			fmt.Sprintf("unexpected response shape from %s", req.Path), err)
	}
	return nil
}

// DoRaw issues the request and hands back the raw response body without JSON
// decoding, for non-JSON payloads such as rendered document downloads. Non-2xx
// statuses still come back as *StatusError.
func (c *Client) DoRaw(ctx context.Context, req Request, out *[]byte) error {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return err
	}
	httpReq.Header.Del("Accept")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return apperrors.NewNetworkError(apperrors.ErrCodeRequestFailed,
			fmt.Sprintf("%s %s failed", req.Method, req.Path), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewNetworkError(apperrors.ErrCodeRequestFailed,
			fmt.Sprintf("failed to read response from %s", req.Path), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(body)}
	}
	if out != nil {
		*out = body
	}
	return nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	u := *c.base
	u.Path = joinPath(c.base.Path, req.Path)
	if req.Query != nil {
		u.RawQuery = req.Query.Encode()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, apperrors.NewInternalError("REQUEST_ENCODE_FAILED",
				fmt.Sprintf("cannot encode request body for %s", req.Path), err)
		}
		bodyReader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), bodyReader)
	if err != nil {
		return nil, apperrors.NewInternalError("REQUEST_BUILD_FAILED",
			fmt.Sprintf("cannot build request for %s", req.Path), err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	return httpReq, nil
}

func joinPath(base, path string) string {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
