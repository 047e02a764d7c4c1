// Package file implements the durable token and cached-profile stores on the
// local filesystem. Both live in a private directory (0700) as files only the
// current user can read (0600).
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"

	"github.com/99minutos/session-client/internal/infrastructure/store"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

// EnsureDir creates dir and its parents with owner-only permissions.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// writeAtomic replaces path with data via a temp file and rename, so readers
// never observe a partial write.
func writeAtomic(path string, data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return oops.Code(store.CodeWriteFailed).With("path", path).Wrap(err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return oops.Code(store.CodeWriteFailed).With("path", path).Wrap(err)
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return oops.Code(store.CodeWriteFailed).With("path", path).Wrap(err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return oops.Code(store.CodeWriteFailed).With("path", path).Wrap(err)
	}
	if err = tmp.Close(); err != nil {
		return oops.Code(store.CodeWriteFailed).With("path", path).Wrap(err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return oops.Code(store.CodeWriteFailed).With("path", path).Wrap(err)
	}
	return nil
}

// readFile returns (nil, nil) when path does not exist.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code(store.CodeReadFailed).With("path", path).Wrap(err)
	}
	return data, nil
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return oops.Code(store.CodeRemoveFailed).With("path", path).Wrap(err)
	}
	return nil
}
