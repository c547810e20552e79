package provision

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrArchiveNotFound is returned by ArchiveStore.Open for unknown or
// already-retrieved tokens.
var ErrArchiveNotFound = errors.New("archive not found")

// ArchiveStore persists finished archives between generation and the
// one-shot download.
type ArchiveStore interface {
	Put(ctx context.Context, token string, data []byte) error
	// Open returns the archive content and its size.
	Open(ctx context.Context, token string) (io.ReadCloser, int64, error)
	// Remove deletes the archive. Removing a missing archive is not
	// an error.
	Remove(ctx context.Context, token string) error
}

// FSStore keeps archives in a local directory.
type FSStore struct {
	dir string
}

func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

func (s *FSStore) Put(ctx context.Context, token string, data []byte) error {
	if err := os.WriteFile(filepath.Join(s.dir, token), data, 0o600); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

func (s *FSStore) Open(ctx context.Context, token string) (io.ReadCloser, int64, error) {
	f, err := os.Open(filepath.Join(s.dir, token))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, ErrArchiveNotFound
		}
		return nil, 0, fmt.Errorf("open archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, fmt.Errorf("stat archive: %w", err)
	}
	return f, info.Size(), nil
}

func (s *FSStore) Remove(ctx context.Context, token string) error {
	err := os.Remove(filepath.Join(s.dir, token))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove archive: %w", err)
	}
	return nil
}
