package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/BradenHooton/haulgate/internal/models"
)

// TokenStore receives the artifacts issued at the end of a login.
type TokenStore interface {
	Save(a models.SessionArtifacts) error
	Load() (*models.SessionArtifacts, error)
	Clear() error
}

type MemoryTokenStore struct {
	mu        sync.Mutex
	artifacts *models.SessionArtifacts
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Save(a models.SessionArtifacts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = &a
	return nil
}

func (s *MemoryTokenStore) Load() (*models.SessionArtifacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifacts == nil {
		return nil, models.ErrNotFound
	}
	a := *s.artifacts
	return &a, nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts = nil
	return nil
}

// FileTokenStore writes the artifacts to a 0600 JSON file.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

func (s *FileTokenStore) Save(a models.SessionArtifacts) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	raw, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return nil
}

func (s *FileTokenStore) Load() (*models.SessionArtifacts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStorage, err)
	}

	var a models.SessionArtifacts
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", models.ErrStorage, err)
	}
	return &a, nil
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %v", models.ErrStorage, err)
	}
	return nil
}
