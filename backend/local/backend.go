package local

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mwantia/histfs/data"
)

// resolvePath joins root with the cleaned key, never escaping root.
func resolvePath(root, key string) string {
	clean := path.Clean("/" + filepath.ToSlash(key))
	return filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(clean, "/")))
}

// mapError translates os errors into data sentinels while keeping the cause.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	switch {
	case errors.Is(err, fs.ErrNotExist):
		sentinel = data.ErrNotExist
	case errors.Is(err, fs.ErrExist):
		sentinel = data.ErrExist
	case errors.Is(err, fs.ErrPermission):
		sentinel = data.ErrPermission
	case errors.Is(err, syscall.ENOTEMPTY):
		sentinel = data.ErrDirectoryNotEmpty
	case errors.Is(err, syscall.EISDIR):
		sentinel = data.ErrIsDirectory
	case errors.Is(err, syscall.ENOTDIR):
		sentinel = data.ErrNotDirectory
	default:
		return err
	}

	return fmt.Errorf("%w: %w", sentinel, err)
}
