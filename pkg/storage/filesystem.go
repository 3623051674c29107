package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrInvalidPath is returned for keys that would escape the base directory.
var ErrInvalidPath = errors.New("invalid storage path")

// LocalStorage keeps objects (avatars, export files) on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("storage base directory required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory %s: %w", baseDir, err)
	}
	return &LocalStorage{baseDir: filepath.Clean(baseDir)}, nil
}

// BaseDir returns the root directory of the store.
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// Save writes data under key, replacing any existing object.
func (s *LocalStorage) Save(key string, data []byte) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare object directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	return key, nil
}

// SaveStream copies r into key through a temporary file so readers never see
// a partially written object.
func (s *LocalStorage) SaveStream(key string, r io.Reader) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare object directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp object: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write object stream: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp object: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("publish object %s: %w", key, err)
	}
	return key, nil
}

// Open returns a read-only handle for the stored object.
func (s *LocalStorage) Open(key string) (*os.File, error) {
	path, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return file, nil
}

// Delete removes a stored object if present.
func (s *LocalStorage) Delete(key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// CleanupOlderThan removes objects under prefix last modified before now-ttl
// and returns their keys.
func (s *LocalStorage) CleanupOlderThan(prefix string, ttl time.Duration) ([]string, error) {
	root, err := s.resolve(prefix)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		if rel, relErr := filepath.Rel(s.baseDir, path); relErr == nil {
			deleted = append(deleted, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup %s: %w", prefix, err)
	}
	return deleted, nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	if key == "" || filepath.IsAbs(key) {
		return "", ErrInvalidPath
	}
	path := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if path != s.baseDir && !strings.HasPrefix(path, s.baseDir+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return path, nil
}
