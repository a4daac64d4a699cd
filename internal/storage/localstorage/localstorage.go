// Package localstorage provides a filesystem content store under a fixed upload root
package localstorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var ErrOutsideRoot = errors.New("path is outside of the upload root")

type LocalImageStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalImageStorage, error) {
	if root == "" {
		return nil, errors.New("empty upload root")
	}
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload root %q: %w", root, err)
	}
	return &LocalImageStorage{root: root}, nil
}

// Put writes r to <root>/<name> and returns that path. Names are write-once: an existing file is never overwritten.
func (s *LocalImageStorage) Put(_ context.Context, name string, _ int64, _ string, r io.Reader) (string, error) {
	if r == nil {
		return "", errors.New("nil reader passed to storage.Put")
	}

	dest, err := s.resolve(filepath.Join(s.root, name))
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("storage: write: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("storage: close: %w", err)
	}

	return dest, nil
}

func (s *LocalImageStorage) Get(_ context.Context, path string) (io.ReadCloser, string, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, "", err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, "", fmt.Errorf("storage: open: %w", err)
	}
	// тип контента хранится в базе, файловая система его не знает
	return f, "", nil
}

func (s *LocalImageStorage) Delete(_ context.Context, path string) error {
	p, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove: %w", err)
	}
	return nil
}

// resolve keeps every access flat under root: only "<root>/<single name>" is accepted
func (s *LocalImageStorage) resolve(path string) (string, error) {
	clean := filepath.Clean(path)
	name := filepath.Base(clean)
	if name == "." || name == ".." || name == string(filepath.Separator) ||
		clean != filepath.Join(s.root, name) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, path)
	}
	return clean, nil
}
