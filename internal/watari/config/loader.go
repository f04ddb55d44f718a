// Package config handles loading, validation, and hot-reloading of the
// multi-account configuration document. The Loader is the authoritative
// source of the current live config; the account resolver reads through it
// on every resolution.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ktsujino/watari/common/spec/waconfig"
)

// Loader holds the current configuration and allows hot-reloads.
type Loader struct {
	mu     sync.RWMutex
	config *waconfig.MultiAccountConfig
	hash   string
}

// New creates an empty Loader with no configuration loaded yet. An empty
// Loader resolves like an all-default document.
func New() *Loader {
	return &Loader{}
}

// LoadFile reads a YAML file from disk, validates it, and applies it.
func (l *Loader) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return l.Apply(data)
}

// Apply parses and validates a raw YAML payload, then atomically replaces
// the current config. It returns an error without modifying the live config
// if validation fails, so a bad hot-reload never takes the service down.
func (l *Loader) Apply(data []byte) error {
	cfg, err := waconfig.Parse(data)
	if err != nil {
		return fmt.Errorf("invalid account config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := hex.EncodeToString(h[:])

	l.mu.Lock()
	defer l.mu.Unlock()

	l.config = cfg
	l.hash = hash

	slog.Info("account config applied",
		"accounts", len(cfg.Accounts),
		"hash", hash[:12],
	)
	return nil
}

// Config returns the current live config, or nil when none has been loaded.
// The account resolver treats nil as an all-default document.
func (l *Loader) Config() *waconfig.MultiAccountConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// Hash returns the SHA-256 hex digest of the applied YAML, or "" when no
// config is loaded.
func (l *Loader) Hash() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hash
}
