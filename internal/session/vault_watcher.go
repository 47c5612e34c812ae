package session

import (
	"fmt"
	"sync"
	"time"

	"careerkit/internal/config"
	"careerkit/internal/errors"
)

// SecretReader reads versioned KVv2 secrets
type SecretReader interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
}

// vaultTokenKey is the key holding the token inside the session secret
const vaultTokenKey = "token"

// VaultWatcher polls the session token secret in Vault and applies a new
// token to the session whenever the secret version moves forward.
type VaultWatcher struct {
	mu sync.RWMutex

	client       SecretReader
	secretPath   string
	pollInterval time.Duration
	session      *Session
	logger       *errors.Logger

	stopChan    chan struct{}
	running     bool
	lastVersion int64
}

// NewVaultWatcher creates a watcher for the secret at secretPath
func NewVaultWatcher(client SecretReader, secretPath string, pollInterval time.Duration, s *Session, logger *errors.Logger) *VaultWatcher {
	if logger == nil {
		logger = errors.Discard()
	}
	return &VaultWatcher{
		client:       client,
		secretPath:   secretPath,
		pollInterval: pollInterval,
		session:      s,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start records the current secret version and begins polling
func (vw *VaultWatcher) Start() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if vw.running {
		return fmt.Errorf("vault watcher is already running")
	}
	if vw.pollInterval <= 0 {
		return fmt.Errorf("vault watcher needs a positive poll interval, got %s", vw.pollInterval)
	}

	// The token read at startup is already applied; only later versions count
	if secret, err := vw.client.GetSecretV2(vw.secretPath); err == nil && secret != nil {
		vw.lastVersion = secret.Version
	}

	vw.running = true
	go vw.pollLoop()
	vw.logger.Info("Vault watcher started", "secret_path", vw.secretPath, "poll_interval", vw.pollInterval)
	return nil
}

// Stop stops the Vault watcher
func (vw *VaultWatcher) Stop() error {
	vw.mu.Lock()
	defer vw.mu.Unlock()
	if !vw.running {
		return nil
	}
	close(vw.stopChan)
	vw.running = false
	vw.logger.Info("Vault watcher stopped")
	return nil
}

func (vw *VaultWatcher) pollLoop() {
	ticker := time.NewTicker(vw.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := vw.refresh(); err != nil {
				vw.logger.LogError(err, "Failed to refresh session token from Vault")
			}
		case <-vw.stopChan:
			return
		}
	}
}

// refresh applies the token from a newer secret version, if there is one
func (vw *VaultWatcher) refresh() error {
	secret, err := vw.client.GetSecretV2(vw.secretPath)
	if err != nil {
		return fmt.Errorf("failed to read secret: %w", err)
	}
	if secret == nil {
		return fmt.Errorf("secret %s not found", vw.secretPath)
	}

	vw.mu.Lock()
	defer vw.mu.Unlock()
	if secret.Version <= vw.lastVersion {
		return nil
	}

	token, _ := secret.Data[vaultTokenKey].(string)
	if token == "" {
		return fmt.Errorf("secret %s version %d has no %q value", vw.secretPath, secret.Version, vaultTokenKey)
	}
	vw.lastVersion = secret.Version
	vw.session.SetToken(token)
	vw.logger.Info("Session token refreshed from Vault", "version", secret.Version)
	return nil
}

// Status returns the current status of the watcher
func (vw *VaultWatcher) Status() map[string]any {
	vw.mu.RLock()
	defer vw.mu.RUnlock()
	return map[string]any{
		"running":       vw.running,
		"poll_interval": vw.pollInterval.String(),
		"secret_path":   vw.secretPath,
		"last_version":  vw.lastVersion,
	}
}
