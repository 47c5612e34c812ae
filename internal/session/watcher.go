package session

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// TokenWatcher reloads the session token whenever the token file changes
type TokenWatcher struct {
	mu sync.Mutex

	tokenFile string
	session   *Session

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	onReload func(token string)
	logger   *errors.Logger

	running bool
}

// NewTokenWatcher creates a watcher for tokenFile feeding s
func NewTokenWatcher(tokenFile string, s *Session, debounceDelay time.Duration, logger *errors.Logger) *TokenWatcher {
	if debounceDelay == 0 {
		debounceDelay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = errors.Discard()
	}
	return &TokenWatcher{
		tokenFile:     tokenFile,
		session:       s,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		logger:        logger,
	}
}

// OnReload registers a callback run after each successful reload
func (tw *TokenWatcher) OnReload(fn func(token string)) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.onReload = fn
}

// Start begins watching the token file
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

	// Editors and secret agents replace the file atomically, so the
	// directory is watched rather than the file itself.
	dir := filepath.Dir(tw.tokenFile)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	tw.fsWatcher = watcher
	tw.running = true
	go tw.watchLoop()

	tw.logger.Info("Session token watcher started",
		"file", tw.tokenFile,
		"debounce_delay", tw.debounceDelay)
	return nil
}

// Stop stops the watcher; calling it twice is harmless
func (tw *TokenWatcher) Stop() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if !tw.running {
		return nil
	}

	close(tw.stopChan)
	if tw.debounceTimer != nil {
		tw.debounceTimer.Stop()
	}
	tw.running = false

	if err := tw.fsWatcher.Close(); err != nil {
		tw.logger.LogError(err, "Failed to close file system watcher")
		return err
	}
	tw.logger.Info("Session token watcher stopped")
	return nil
}

// IsRunning returns whether the watcher is currently running
func (tw *TokenWatcher) IsRunning() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.running
}

func (tw *TokenWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-tw.fsWatcher.Events:
			if !ok {
				return
			}
			if tw.shouldProcessEvent(event) {
				tw.scheduleReload()
			}

		case err, ok := <-tw.fsWatcher.Errors:
			if !ok {
				return
			}
			tw.logger.LogError(err, "File watcher error")

		case <-tw.reloadChan:
			tw.reload()

		case <-tw.stopChan:
			return
		}
	}
}

func (tw *TokenWatcher) shouldProcessEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(tw.tokenFile) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (tw *TokenWatcher) scheduleReload() {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.debounceTimer != nil {
		tw.debounceTimer.Stop()
	}
	tw.debounceTimer = time.AfterFunc(tw.debounceDelay, func() {
		select {
		case tw.reloadChan <- struct{}{}:
		default:
		}
	})
}

// reload keeps the previous token when the file is missing or empty
func (tw *TokenWatcher) reload() {
	token, err := config.ReadTokenFile(tw.tokenFile)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			tw.logger.LogError(err, "Failed to reload session token", "file", tw.tokenFile)
		}
		return
	}
	if token == "" || token == tw.session.Token() {
		return
	}

	tw.session.SetToken(token)
	tw.logger.Info("Session token reloaded", "file", tw.tokenFile)

	tw.mu.Lock()
	onReload := tw.onReload
	tw.mu.Unlock()
	if onReload != nil {
		onReload(token)
	}
}
