// Package hashstore persists the content hash of the last spreadsheet that
// was fully processed.
package hashstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type Store interface {
	Load() (string, error)
	Save(hash string) error
}

// FileStore keeps the hash as a single line in a file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns "" when nothing has been stored yet.
func (s *FileStore) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read hash file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Save replaces the stored hash atomically.
func (s *FileStore) Save(hash string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create hash dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(hash+"\n"), 0o644); err != nil {
		return fmt.Errorf("write hash file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace hash file: %w", err)
	}
	return nil
}
