package api

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTokenWatcherPicksUpExternalWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := NewFileTokenStore(path)
	if err != nil {
		t.Fatalf("NewFileTokenStore failed: %v", err)
	}

	reloaded := make(chan struct{}, 1)
	watcher := NewTokenWatcher(store, 20*time.Millisecond, func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	}, nil)

	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	if err := os.WriteFile(path, []byte(`{"access_token":"written-elsewhere"}`), 0600); err != nil {
		t.Fatalf("External write failed: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("Watcher did not reload after an external write")
	}
	if got := store.Get(); got != "written-elsewhere" {
		t.Errorf("Expected the externally written token, got %q", got)
	}
}

func TestTokenWatcherObservesRemoval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte(`{"access_token":"tok"}`), 0600); err != nil {
		t.Fatalf("Fixture write failed: %v", err)
	}
	store, err := NewFileTokenStore(path)
	if err != nil {
		t.Fatalf("NewFileTokenStore failed: %v", err)
	}
	if store.Get() != "tok" {
		t.Fatalf("Fixture token not loaded")
	}

	reloaded := make(chan struct{}, 1)
	watcher := NewTokenWatcher(store, 20*time.Millisecond, func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	}, nil)
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("Watcher did not reload after removal")
	}
	if got := store.Get(); got != "" {
		t.Errorf("Expected an empty token after removal, got %q", got)
	}
}

func TestTokenWatcherStartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := NewFileTokenStore(path)
	if err != nil {
		t.Fatalf("NewFileTokenStore failed: %v", err)
	}

	watcher := NewTokenWatcher(store, 0, nil, nil)
	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := watcher.Start(); err == nil {
		t.Error("Expected an error for a second Start")
	}
	watcher.Stop()
	// Stop is idempotent
	watcher.Stop()
}
