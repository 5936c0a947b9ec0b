package databank

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"databank/internal/api"
)

func newTestBank(t *testing.T, handler http.HandlerFunc) *Databank {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := api.NewClient(api.Options{BaseURL: server.URL, Timeout: 5 * time.Second},
		api.NewMemoryTokenStore(), nil, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return New(client, nil)
}

func TestMeReturnsValidatedProfile(t *testing.T) {
	bank := newTestBank(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/me" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"id": 3, "email": "dev@example.com", "username": "dev"}`))
	})

	profile, err := bank.Me(context.Background())
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if profile.ID != 3 || profile.Email != "dev@example.com" {
		t.Errorf("Unexpected profile: %+v", profile)
	}
}

func TestMeRejectsMalformedProfiles(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing id", body: `{"email": "dev@example.com"}`},
		{name: "missing email", body: `{"id": 3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank := newTestBank(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			if _, err := bank.Me(context.Background()); err == nil {
				t.Errorf("Expected a validation error for body %s", tt.body)
			}
		})
	}
}

func TestUpdateAPIKeysRejectsEmptyUpdatesBeforeTheNetwork(t *testing.T) {
	var requests atomic.Int64
	bank := newTestBank(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	})

	if _, err := bank.UpdateAPIKeys(context.Background(), APIKeyUpdate{}); err == nil {
		t.Error("Expected an error for an empty update")
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("Expected no backend requests, got %d", n)
	}
}

func TestUpdateAPIKeysSendsNewKeyMaterial(t *testing.T) {
	bank := newTestBank(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/api-keys/" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"preferred_ai_provider": "openai", "has_openai_key": true}`))
	})

	settings, err := bank.UpdateAPIKeys(context.Background(), APIKeyUpdate{OpenAIKey: strPtr("sk-1")})
	if err != nil {
		t.Fatalf("UpdateAPIKeys failed: %v", err)
	}
	if !settings.HasOpenAIKey || settings.PreferredProvider != "openai" {
		t.Errorf("Unexpected settings: %+v", settings)
	}
}

func TestDeleteAPIKeyValidatesTheProvider(t *testing.T) {
	var requests atomic.Int64
	bank := newTestBank(t, func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/api/api-keys/openai/" {
			t.Errorf("Expected normalized provider path, got %s", r.URL.Path)
		}
		w.Write([]byte(`{}`))
	})

	if err := bank.DeleteAPIKey(context.Background(), "azure"); err == nil {
		t.Error("Expected an error for an unknown provider")
	}
	if n := requests.Load(); n != 0 {
		t.Errorf("Expected no backend requests for an unknown provider, got %d", n)
	}

	if err := bank.DeleteAPIKey(context.Background(), "  OpenAI "); err != nil {
		t.Fatalf("DeleteAPIKey failed: %v", err)
	}
	if n := requests.Load(); n != 1 {
		t.Errorf("Expected exactly one delete request, got %d", n)
	}
}

func TestResumeDownloadURL(t *testing.T) {
	bank := newTestBank(t, func(w http.ResponseWriter, r *http.Request) {})

	url := bank.ResumeDownloadURL(12, "pdf")
	if !strings.HasSuffix(url, "/api/resumes/12/download?format=pdf") {
		t.Errorf("Unexpected download URL: %s", url)
	}
	if strings.Contains(url, "//api") {
		t.Errorf("Base URL was not trimmed: %s", url)
	}
}

func TestDownloadResumeReturnsTheRawBody(t *testing.T) {
	const rendered = "<h1>Jane Doe</h1><p>Senior Engineer</p>"
	bank := newTestBank(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/resumes/4/download" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("format") != "html" {
			t.Errorf("Expected format=html, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(rendered))
	})

	body, err := bank.DownloadResume(context.Background(), 4, "html")
	if err != nil {
		t.Fatalf("DownloadResume failed: %v", err)
	}
	if string(body) != rendered {
		t.Errorf("Unexpected body: %q", body)
	}
}
