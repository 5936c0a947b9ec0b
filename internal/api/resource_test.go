package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

type testRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func (r testRecord) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("id must be positive")
	}
	if r.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func newTestResource(t *testing.T, handler http.HandlerFunc) (*Resource[testRecord], *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := newTestClient(t, server.URL, NewMemoryTokenStore(), nil)
	return NewResource[testRecord](client, "/api/things/", nil), server
}

func TestResourceBasePathNormalization(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already normalized", input: "/api/skills/", expected: "/api/skills/"},
		{name: "missing trailing slash", input: "/api/skills", expected: "/api/skills/"},
		{name: "missing leading slash", input: "api/skills/", expected: "/api/skills/"},
		{name: "bare name", input: "skills", expected: "/skills/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResource[testRecord](nil, tt.input, nil)
			if got := r.BasePath(); got != tt.expected {
				t.Errorf("BasePath for %q = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestResourceListNeverFails(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected int
	}{
		{
			name:     "valid array",
			status:   200,
			body:     `[{"id":1,"name":"Go"},{"id":2,"name":"SQL"}]`,
			expected: 2,
		},
		{
			name:     "empty array",
			status:   200,
			body:     `[]`,
			expected: 0,
		},
		{
			name:     "null body",
			status:   200,
			body:     `null`,
			expected: 0,
		},
		{
			name:     "object instead of array",
			status:   200,
			body:     `{"items":[{"id":1,"name":"Go"}]}`,
			expected: 0,
		},
		{
			name:     "string body",
			status:   200,
			body:     `"oops"`,
			expected: 0,
		},
		{
			name:     "server error",
			status:   500,
			body:     `{"detail":"boom"}`,
			expected: 0,
		},
		{
			name:     "unauthorized",
			status:   401,
			body:     `{"detail":"not authenticated"}`,
			expected: 0,
		},
		{
			name:     "invalid entries are dropped",
			status:   200,
			body:     `[{"id":1,"name":"Go"},{"id":0,"name":"missing id"},{"id":3,"name":""},"not an object",{"id":4,"name":"kept"}]`,
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resource, _ := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			records := resource.List(context.Background(), nil)
			if records == nil {
				t.Fatal("List must never return nil")
			}
			if len(records) != tt.expected {
				t.Errorf("Expected %d records, got %d: %+v", tt.expected, len(records), records)
			}
			for _, record := range records {
				if err := record.Validate(); err != nil {
					t.Errorf("List returned an invalid record %+v: %v", record, err)
				}
			}
		})
	}
}

func TestResourceItemPathsCarryTrailingSlash(t *testing.T) {
	var seenPath string
	resource, _ := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		seenPath = r.URL.Path
		w.Write([]byte(`{"id":5,"name":"Go"}`))
	})

	if _, err := resource.Get(context.Background(), 5); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if seenPath != "/api/things/5/" {
		t.Errorf("Expected item path '/api/things/5/', got %q", seenPath)
	}
}

func TestResourceCreateForwardsPayloadAndDecodesResult(t *testing.T) {
	resource, _ := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Body was not JSON: %v", err)
		}
		if _, hasID := body["id"]; hasID {
			t.Errorf("Create payload must not carry an id, got %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":9,"name":"Go"}`))
	})

	record, err := resource.Create(context.Background(), json.RawMessage(`{"name":"Go"}`))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if record.ID != 9 || record.Name != "Go" {
		t.Errorf("Unexpected created record: %+v", record)
	}
}

func TestResourceUpdateTargetsItemPath(t *testing.T) {
	var seenMethod, seenPath string
	resource, _ := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
		seenMethod, seenPath = r.Method, r.URL.Path
		w.Write([]byte(`{"id":3,"name":"Rust"}`))
	})

	record, err := resource.Update(context.Background(), 3, json.RawMessage(`{"name":"Rust"}`))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if seenMethod != http.MethodPut || seenPath != "/api/things/3/" {
		t.Errorf("Expected PUT /api/things/3/, got %s %s", seenMethod, seenPath)
	}
	if record.Name != "Rust" {
		t.Errorf("Unexpected updated record: %+v", record)
	}
}

func TestResourceDelete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		resource, _ := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				t.Errorf("Expected DELETE, got %s", r.Method)
			}
			w.WriteHeader(http.StatusNoContent)
		})

		deleted, err := resource.Delete(context.Background(), 4)
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if !deleted {
			t.Error("Expected deleted=true")
		}
	})

	t.Run("failure propagates", func(t *testing.T) {
		resource, _ := newTestResource(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"no such thing"}`))
		})

		deleted, err := resource.Delete(context.Background(), 99)
		if err == nil {
			t.Fatal("Expected an error for a failed delete")
		}
		if deleted {
			t.Error("Expected deleted=false on error")
		}
	})
}
