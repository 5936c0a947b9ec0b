package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, serverURL string, tokens TokenStore, bus *InvalidationBus) *Client {
	t.Helper()
	client, err := NewClient(Options{BaseURL: serverURL, Timeout: 5 * time.Second}, tokens, bus, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func TestAuthTransportAttachesBearerToken(t *testing.T) {
	var seenAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tokens := NewMemoryTokenStore()
	tokens.Set("tok-abc")
	client := newTestClient(t, server.URL, tokens, NewInvalidationBus())

	if err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/skills/"}, nil); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if got := seenAuth.Load().(string); got != "Bearer tok-abc" {
		t.Errorf("Expected 'Bearer tok-abc', got %q", got)
	}
}

func TestAuthTransportSkipsRequestsWithoutToken(t *testing.T) {
	var seenAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, NewMemoryTokenStore(), NewInvalidationBus())

	if err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/skills/"}, nil); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if got := seenAuth.Load().(string); got != "" {
		t.Errorf("Expected no Authorization header, got %q", got)
	}
}

func TestAuthTransportPreservesPresetAuthorization(t *testing.T) {
	var seenAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAuth.Store(r.Header.Get("Authorization"))
		w.Write([]byte(`{"access_token":"new"}`))
	}))
	defer server.Close()

	tokens := NewMemoryTokenStore()
	tokens.Set("stored-token")
	client := newTestClient(t, server.URL, tokens, NewInvalidationBus())

	// The login exchange presents its own assertion; the stored token must
	// not replace it.
	header := make(http.Header)
	header.Set("Authorization", "Bearer assertion-xyz")
	err := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/api/auth/login",
		Header: header,
	}, nil)
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if got := seenAuth.Load().(string); got != "Bearer assertion-xyz" {
		t.Errorf("Expected the preset assertion, got %q", got)
	}
}

func TestStatusTransportClearsTokenAndBroadcastsOn401(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"token expired"}`))
	}))
	defer server.Close()

	tokens := NewMemoryTokenStore()
	tokens.Set("stale")
	bus := NewInvalidationBus()
	events, cancel := bus.Subscribe()
	defer cancel()

	client := newTestClient(t, server.URL, tokens, bus)

	err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/api/users/me"}, nil)
	if err == nil {
		t.Fatal("Expected an error for a 401 response")
	}
	statusErr, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("Expected *StatusError, got %T: %v", err, err)
	}
	if statusErr.Status != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", statusErr.Status)
	}
	if statusErr.Message != "token expired" {
		t.Errorf("Expected message 'token expired', got %q", statusErr.Message)
	}

	if got := tokens.Get(); got != "" {
		t.Errorf("Expected the token to be cleared after 401, got %q", got)
	}

	// Exactly one event for the one 401 response
	select {
	case ev := <-events:
		if ev.Status != http.StatusUnauthorized {
			t.Errorf("Expected event status 401, got %d", ev.Status)
		}
		if ev.Path != "/api/users/me" {
			t.Errorf("Expected event path '/api/users/me', got %q", ev.Path)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected an invalidation event")
	}
	select {
	case ev := <-events:
		t.Errorf("Expected exactly one event, got a second: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStatusTransportPassesOtherStatusesThrough(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "forbidden", status: http.StatusForbidden},
		{name: "not found", status: http.StatusNotFound},
		{name: "server error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			tokens := NewMemoryTokenStore()
			tokens.Set("still-good")
			bus := NewInvalidationBus()
			events, cancel := bus.Subscribe()
			defer cancel()

			client := newTestClient(t, server.URL, tokens, bus)

			err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/x"}, nil)
			if err == nil {
				t.Fatalf("Expected an error for status %d", tt.status)
			}
			if got := tokens.Get(); got != "still-good" {
				t.Errorf("Token must survive a %d, got %q", tt.status, got)
			}
			select {
			case ev := <-events:
				t.Errorf("Expected no invalidation event for %d, got %+v", tt.status, ev)
			case <-time.After(50 * time.Millisecond):
			}
		})
	}
}
