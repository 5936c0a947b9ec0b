package api

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"databank/internal/errors"
)

// TokenWatcher watches the credentials file for changes so a token written or
// cleared by another process is picked up live. Events are debounced because
// editors and atomic writes produce bursts of filesystem notifications.
type TokenWatcher struct {
	mu sync.Mutex

	store         *FileTokenStore
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan chan struct{}
	onReload func()
	logger   *errors.Logger

	running bool
}

// NewTokenWatcher creates a watcher over the store's backing file. onReload,
// when non-nil, runs after each successful reload.
func NewTokenWatcher(store *FileTokenStore, debounceDelay time.Duration, onReload func(), logger *errors.Logger) *TokenWatcher {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}
	return &TokenWatcher{
		store:         store,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		onReload:      onReload,
		logger:        logger,
	}
}

// Start begins watching the credentials file. The parent directory is
// watched rather than the file itself so creation and removal are observed.
func (tw *TokenWatcher) Start() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.running {
		return fmt.Errorf("token watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(tw.store.Path())
	if err := watcher.Add(dir); err != nil {
		if closeErr := watcher.Close(); closeErr != nil && tw.logger != nil {
			tw.logger.LogError(closeErr, "Failed to close file watcher during cleanup")
		}
		return fmt.Errorf("failed to watch credentials directory %s: %w", dir, err)
	}

	tw.fsWatcher = watcher
	tw.running = true
	go tw.watchLoop()

	if tw.logger != nil {
		tw.logger.Debug("Token watcher started", "file", tw.store.Path())
	}
	return nil
}

// Stop terminates the watch loop.
func (tw *TokenWatcher) Stop() {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if !tw.running {
		return
	}
	close(tw.stopChan)
	if tw.debounceTimer != nil {
		tw.debounceTimer.Stop()
	}
	if err := tw.fsWatcher.Close(); err != nil && tw.logger != nil {
		tw.logger.LogError(err, "Failed to close file watcher")
	}
	tw.running = false
}

func (tw *TokenWatcher) watchLoop() {
	target := filepath.Clean(tw.store.Path())

	for {
		select {
		case event, ok := <-tw.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				tw.scheduleReload()
			}
		case err, ok := <-tw.fsWatcher.Errors:
			if !ok {
				return
			}
			if tw.logger != nil {
				tw.logger.LogError(err, "Token watcher error")
			}
		case <-tw.stopChan:
			return
		}
	}
}

// scheduleReload debounces a burst of events into one reload.
func (tw *TokenWatcher) scheduleReload() {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.debounceTimer != nil {
		tw.debounceTimer.Stop()
	}
	tw.debounceTimer = time.AfterFunc(tw.debounceDelay, func() {
		if err := tw.store.Reload(); err != nil {
			if tw.logger != nil {
				tw.logger.LogError(err, "Failed to reload credentials after file change")
			}
			return
		}
		if tw.logger != nil {
			tw.logger.Debug("Credentials reloaded after file change", "file", tw.store.Path())
		}
		if tw.onReload != nil {
			tw.onReload()
		}
	})
}
