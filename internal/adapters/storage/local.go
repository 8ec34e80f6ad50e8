package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/taskmaster/taskboard/internal/domain/entities"
	"github.com/taskmaster/taskboard/internal/ports"
)

// URLPrefix is where the server exposes the upload directory.
const URLPrefix = "/uploads/"

// LocalStore writes attachments into a directory on disk.
type LocalStore struct {
	dir string
}

var _ ports.FileStore = (*LocalStore)(nil)

// NewLocalStore creates dir if needed
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Dir returns the directory files are written to
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Save(ctx context.Context, name string, content io.Reader) (string, error) {
	target, err := s.resolve(name)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}
	return URLPrefix + name, nil
}

func (s *LocalStore) Remove(ctx context.Context, name string) error {
	target, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}

func (s *LocalStore) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: invalid file name %q", entities.ErrValidation, name)
	}
	return filepath.Join(s.dir, name), nil
}
