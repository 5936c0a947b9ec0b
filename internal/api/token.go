package api

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"databank/internal/errors"
)

// TokenStore holds the single backend-issued bearer token. The token is
// treated as opaque: no expiry is parsed locally, expiry is only discovered
// reactively through a 401 from the backend.
type TokenStore interface {
	Set(token string) error
	Get() string
	Clear() error
}

// RefreshTokenStore is implemented by stores that also hold the identity
// provider's refresh token. The refresh token outlives the backend bearer
// token: a 401 clears only the bearer, leaving the refresh token available
// for a later session restore.
type RefreshTokenStore interface {
	TokenStore
	SetRefreshToken(token string) error
	RefreshToken() string
}

// credentialsFile is the durable on-disk shape. The tokens live under fixed
// keys so other tooling can find them.
type credentialsFile struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// DefaultCredentialsPath returns the standard credentials location,
// $HOME/.databank/credentials.json.
func DefaultCredentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".databank", "credentials.json"), nil
}

// FileTokenStore persists the bearer token in a credentials file. Reads after
// a Set observe the fresh value; Reload picks up changes written by another
// process.
type FileTokenStore struct {
	mu      sync.RWMutex
	path    string
	token   string
	refresh string
}

// NewFileTokenStore creates a store backed by the given file. A missing file
// is not an error, it simply means no token.
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"credentials path cannot be empty", nil)
	}
	s := &FileTokenStore{path: path}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Set persists the token and updates the in-memory copy. A held refresh
// token is carried along untouched.
func (s *FileTokenStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return s.persistLocked()
}

// SetRefreshToken persists the identity provider's refresh token. An empty
// value removes it.
func (s *FileTokenStore) SetRefreshToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = token
	return s.persistLocked()
}

// RefreshToken returns the held provider refresh token, or the empty string.
func (s *FileTokenStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// persistLocked writes the current tokens to disk, or removes the file when
// nothing is left to hold. Callers must hold the write lock.
func (s *FileTokenStore) persistLocked() error {
	if s.token == "" && s.refresh == "" {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
			return errors.NewIOError("CREDENTIALS_REMOVE_FAILED",
				fmt.Sprintf("Cannot remove credentials file: %s", s.path), err)
		}
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewIOError("CREDENTIALS_DIR_FAILED",
			fmt.Sprintf("Cannot create credentials directory: %s", dir), err)
	}

	data, err := json.Marshal(credentialsFile{AccessToken: s.token, RefreshToken: s.refresh})
	if err != nil {
		return errors.NewInternalError("CREDENTIALS_ENCODE_FAILED",
			"Cannot encode credentials", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return errors.NewIOError("CREDENTIALS_WRITE_FAILED",
			fmt.Sprintf("Cannot write credentials file: %s", s.path), err)
	}
	return nil
}

// Get returns the current token, or the empty string when signed out.
func (s *FileTokenStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Clear removes the persisted bearer token. A held refresh token survives,
// so a 401 does not destroy the provider session; the file itself is removed
// once neither token remains.
func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return s.persistLocked()
}

// Path returns the backing file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Reload re-reads the credentials file, picking up writes made by another
// process. A malformed file is treated as no token.
func (s *FileTokenStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.token = ""
			s.refresh = ""
			return nil
		}
		return errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read credentials file: %s", s.path), err)
	}

	var creds credentialsFile
	if err := json.Unmarshal(data, &creds); err != nil {
		s.token = ""
		s.refresh = ""
		return nil
	}
	s.token = creds.AccessToken
	s.refresh = creds.RefreshToken
	return nil
}

// MemoryTokenStore keeps the token in memory only. Used in tests and
// anywhere durable storage is undesirable.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	token   string
	refresh string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

func (s *MemoryTokenStore) SetRefreshToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = token
	return nil
}

func (s *MemoryTokenStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}
