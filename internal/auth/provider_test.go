package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"databank/internal/config"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *RESTProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	provider, err := NewRESTProvider(config.AuthConfig{
		APIKey:   "test-key",
		Endpoint: server.URL,
	}, nil)
	if err != nil {
		t.Fatalf("NewRESTProvider failed: %v", err)
	}
	return provider
}

func TestNewRESTProviderRequiresAPIKey(t *testing.T) {
	for _, key := range []string{"", "   "} {
		if _, err := NewRESTProvider(config.AuthConfig{APIKey: key}, nil); err == nil {
			t.Errorf("Expected an error for API key %q", key)
		}
	}
}

func TestRESTProviderSignIn(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts:signInWithPassword" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("Expected the API key in the query, got %q", r.URL.RawQuery)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "a@b.c" || body["password"] != "secret" {
			t.Errorf("Unexpected sign-in body: %+v", body)
		}
		w.Write([]byte(`{
			"idToken": "id-token-1",
			"email": "a@b.c",
			"displayName": "Alice",
			"refreshToken": "refresh-1"
		}`))
	})

	identity, err := provider.SignIn(context.Background(), "a@b.c", "secret")
	if err != nil {
		t.Fatalf("SignIn failed: %v", err)
	}
	if identity.Assertion != "id-token-1" || identity.Email != "a@b.c" ||
		identity.DisplayName != "Alice" || identity.Refresh != "refresh-1" {
		t.Errorf("Unexpected identity: %+v", identity)
	}
}

func TestRESTProviderSignInSurfacesProviderError(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"INVALID_PASSWORD"}}`))
	})

	if _, err := provider.SignIn(context.Background(), "a@b.c", "bad"); err == nil {
		t.Fatal("Expected an error for a rejected sign-in")
	}
}

func TestRESTProviderSignUpSetsDisplayName(t *testing.T) {
	var updateSeen bool
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts:signUp":
			w.Write([]byte(`{"idToken":"tok-1","email":"new@b.c","refreshToken":"r-1"}`))
		case "/accounts:update":
			updateSeen = true
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if body["displayName"] != "Newbie" {
				t.Errorf("Expected displayName 'Newbie', got %+v", body)
			}
			w.Write([]byte(`{"idToken":"tok-2","displayName":"Newbie"}`))
		default:
			http.NotFound(w, r)
		}
	})

	identity, err := provider.SignUp(context.Background(), "new@b.c", "secret", "Newbie")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if !updateSeen {
		t.Error("Expected the display name update call")
	}
	if identity.DisplayName != "Newbie" {
		t.Errorf("Expected display name 'Newbie', got %q", identity.DisplayName)
	}
	if identity.Assertion != "tok-2" {
		t.Errorf("Expected the refreshed assertion, got %q", identity.Assertion)
	}
}

func TestRESTProviderSignUpSurvivesDisplayNameFailure(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/accounts:signUp":
			w.Write([]byte(`{"idToken":"tok-1","email":"new@b.c"}`))
		case "/accounts:update":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	})

	identity, err := provider.SignUp(context.Background(), "new@b.c", "secret", "Newbie")
	if err != nil {
		t.Fatalf("SignUp must not fail when only the display name update fails: %v", err)
	}
	if identity.Assertion != "tok-1" {
		t.Errorf("Expected the sign-up assertion, got %q", identity.Assertion)
	}
}

func TestRESTProviderSignInWithGoogle(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/accounts:signInWithIdp" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["postBody"] != "id_token=google-id-token&providerId=google.com" {
			t.Errorf("Unexpected postBody: %v", body["postBody"])
		}
		w.Write([]byte(`{"idToken":"federated-tok","email":"g@b.c"}`))
	})

	identity, err := provider.SignInWithGoogle(context.Background(), "google-id-token")
	if err != nil {
		t.Fatalf("SignInWithGoogle failed: %v", err)
	}
	if identity.Assertion != "federated-tok" || identity.Email != "g@b.c" {
		t.Errorf("Unexpected identity: %+v", identity)
	}
}

func TestRESTProviderRestore(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["grant_type"] != "refresh_token" || body["refresh_token"] != "r-1" {
			t.Errorf("Unexpected refresh body: %+v", body)
		}
		w.Write([]byte(`{"id_token":"fresh","refresh_token":"r-2"}`))
	})

	identity, err := provider.Restore(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if identity.Assertion != "fresh" || identity.Refresh != "r-2" {
		t.Errorf("Unexpected identity: %+v", identity)
	}

	if _, err := provider.Restore(context.Background(), "  "); err == nil {
		t.Error("Expected an error for an empty refresh token")
	}
}
