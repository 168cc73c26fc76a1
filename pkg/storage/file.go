package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileStore keeps one file per key under a data directory
type FileStore struct {
	dataDir string
	mu      sync.RWMutex
}

// NewFileStore creates the data directory, falling back to a temp directory
// when the requested one cannot be created (read-only filesystems).
func NewFileStore(dataDir string) (*FileStore, error) {
	if dataDir == "" {
		dataDir = "./data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		fallback := filepath.Join(os.TempDir(), "workspace-client-data")
		if err2 := os.MkdirAll(fallback, 0o755); err2 != nil {
			return nil, fmt.Errorf("file store: create %s: %w (fallback: %v)", dataDir, err, err2)
		}
		dataDir = fallback
	}
	return &FileStore{dataDir: dataDir}, nil
}

// Dir is the directory actually in use.
func (s *FileStore) Dir() string { return s.dataDir }

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) Available() bool {
	if s == nil {
		return false
	}
	info, err := os.Stat(s.dataDir)
	return err == nil && info.IsDir()
}

func (s *FileStore) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("file store: invalid key %q", key)
	}
	return filepath.Join(s.dataDir, key+".json"), nil
}

func (s *FileStore) Get(key string) (string, error) {
	p, err := s.path(key)
	if err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("file store: read %s: %w", key, err)
	}
	return string(data), nil
}

// Set writes through a temp file so readers never see a partial value.
func (s *FileStore) Set(key, value string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o600); err != nil {
		return fmt.Errorf("file store: write %s: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("file store: rename %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Delete(key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file store: delete %s: %w", key, err)
	}
	return nil
}
