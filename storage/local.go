package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LocalProvider stores blobs under a root directory on disk
type LocalProvider struct {
	root string
}

var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider creates the root directory if needed
func NewLocalProvider(root string) (*LocalProvider, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalProvider{root: abs}, nil
}

// resolve maps a key onto a path inside root, rejecting traversal
func (p *LocalProvider) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") || strings.HasPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	path := filepath.Join(p.root, filepath.FromSlash(key))
	if !strings.HasPrefix(path, p.root+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return path, nil
}

// ==================== BLOB OPERATIONS ====================

func (p *LocalProvider) Put(ctx context.Context, key string, r io.Reader, maxBytes int64) (int64, error) {
	path, err := p.resolve(key)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create blob dir: %w", err)
	}

	// Partial writes stay in the temp file and are removed on return
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if maxBytes > 0 {
		src = io.LimitReader(r, maxBytes+1)
	}

	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write blob: %w", err)
	}
	if maxBytes > 0 && n > maxBytes {
		return 0, ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("failed to store blob: %w", err)
	}

	slog.Debug("Stored blob", "key", key, "bytes", n)
	return n, nil
}

func (p *LocalProvider) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := p.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (p *LocalProvider) Delete(_ context.Context, key string) error {
	path, err := p.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// ==================== UTILITY OPERATIONS ====================

func (p *LocalProvider) LocalPath(_ context.Context, key string) (string, error) {
	path, err := p.resolve(key)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	} else if err != nil {
		return "", err
	}
	return path, nil
}
