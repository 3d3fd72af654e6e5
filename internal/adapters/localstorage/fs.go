package localstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage implements ports.FileStore for the local filesystem.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a new LocalStorage instance. Relative paths passed
// to its methods are resolved against baseDir.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// EnsureDirectory creates the directory and its parents.
func (s *LocalStorage) EnsureDirectory(ctx context.Context, path string) error {
	path = s.resolve(path)
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// SaveFile writes the reader to path through a temporary file so a failed
// write never leaves a partial file behind.
func (s *LocalStorage) SaveFile(ctx context.Context, path string, reader io.Reader) error {
	path = s.resolve(path)
	if err := s.EnsureDirectory(ctx, filepath.Dir(path)); err != nil {
		return err
	}

	tmp := path + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", tmp, err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close file %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to save file %s: %w", path, err)
	}
	return nil
}

// FileExists reports whether path exists.
func (s *LocalStorage) FileExists(ctx context.Context, path string) bool {
	_, err := os.Stat(s.resolve(path))
	return err == nil
}

// AvailableSpace returns the free bytes on the volume holding path. It walks
// up to the nearest existing parent and returns 0 when nothing can be queried.
func (s *LocalStorage) AvailableSpace(path string) uint64 {
	dir := s.resolve(path)
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return 0
		}
		dir = parent
	}
	free, err := freeBytes(dir)
	if err != nil {
		return 0
	}
	return free
}

func (s *LocalStorage) resolve(path string) string {
	if s.BaseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.BaseDir, path)
}
