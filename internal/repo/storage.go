// Package repo provides file storage rooted at a repository directory.
// All paths are repo-relative; reads and writes refuse to escape the root.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store reads and writes files under a repository root.
type Store struct {
	root string
}

// NewStore creates a store for the given repository root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the repository root path.
func (s *Store) Root() string {
	return s.root
}

// Read returns the content of a repo-relative file.
func (s *Store) Read(path string) (string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(full)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("read %s: path is a directory", path)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// Write stores content at a repo-relative path, creating parent directories
// as needed. With dryRun set the write is skipped entirely; callers still
// treat the operation as accepted.
func (s *Store) Write(path, content string, dryRun bool) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if dryRun {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// resolve converts a repo-relative path to an absolute one, rejecting
// absolute inputs and any path that escapes the repository root.
func (s *Store) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("path %s: absolute paths are not allowed", path)
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s: escapes repository root", path)
	}
	return filepath.Join(s.root, clean), nil
}
