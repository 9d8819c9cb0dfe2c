package metastore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend stores one JSON file per key under a root directory:
// <dir>/<agent>/<slot>.json. Writes go to a temporary file first and are
// renamed into place, so readers never observe a half-written record.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a backend rooted at dir. The directory is created
// lazily on first write.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

func (b *FileBackend) path(key string) (string, error) {
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `\`) {
			return "", fmt.Errorf("invalid record key %q", key)
		}
	}
	return filepath.Join(b.dir, filepath.FromSlash(key)+".json"), nil
}

func (b *FileBackend) Read(key string) ([]byte, error) {
	path, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading record %s: %w", key, err)
	}
	return data, nil
}

func (b *FileBackend) Write(key string, data []byte) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metadata directory: %w", err)
	}

	// Atomic write: write to temp file, then rename.
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("writing record %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving record %s: %w", key, err)
	}
	return nil
}

func (b *FileBackend) Delete(key string) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting record %s: %w", key, err)
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }
