package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrOwnerTaken indicates another chat already claimed ownership.
var ErrOwnerTaken = errors.New("config: another owner is already registered")

// ClaimResult describes the outcome of a ClaimOwner call.
type ClaimResult int

// ClaimResult values.
const (
	// Claimed means the caller is now the registered owner.
	Claimed ClaimResult = iota
	// AlreadyOwner means the caller had claimed ownership earlier.
	AlreadyOwner
)

// Store wraps a Config with the durable one-time owner claim. The claim is
// process-wide mutable state with write-once semantics after startup, so all
// access goes through the store's mutex and a successful claim is persisted
// back to the same file the config was loaded from.
type Store struct {
	mu   sync.Mutex
	path string
	cfg  *Config
}

// NewStore creates a store for a loaded config and its file path.
func NewStore(path string, cfg *Config) *Store {
	return &Store{path: path, cfg: cfg}
}

// Config returns a copy of the current configuration.
func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.cfg
}

// Owner returns the registered owner chat id, if any.
func (s *Store) Owner() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.ChatID, s.cfg.ChatID != 0
}

// ClaimOwner registers chatID as the owner if no owner exists yet. Only the
// first claimant is accepted; it returns ErrOwnerTaken for anyone else.
// A successful claim is written through to the config file before returning.
func (s *Store) ClaimOwner(chatID int64) (ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.cfg.ChatID {
	case 0:
	case chatID:
		return AlreadyOwner, nil
	default:
		return 0, ErrOwnerTaken
	}

	s.cfg.ChatID = chatID
	if err := s.saveLocked(); err != nil {
		// Roll back so a later claim can retry the write.
		s.cfg.ChatID = 0
		return 0, err
	}
	return Claimed, nil
}

// Save persists the current configuration. Used by the setup wizard.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// saveLocked marshals the config and writes it atomically with owner-only
// permissions (the file holds the bot token).
func (s *Store) saveLocked() error {
	data, err := yaml.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".stopkran-*.yaml")
	if err != nil {
		return fmt.Errorf("config: temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("config: chmod %s: %w", tmpName, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("config: writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("config: closing %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("config: replacing %s: %w", s.path, err)
	}
	return nil
}
