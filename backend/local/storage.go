package local

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/data"
)

// LocalStorage serves the backing tree straight from a directory on disk.
type LocalStorage struct {
	mu   sync.RWMutex
	root string
	open bool
}

var _ backend.StorageBackend = (*LocalStorage)(nil)

func NewLocalStorage(root string) (*LocalStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	return &LocalStorage{
		root: abs,
	}, nil
}

// Returns the identifier name defined for this backend
func (*LocalStorage) Name() string {
	return "local-storage"
}

// Root returns the absolute path of the backing directory.
func (ls *LocalStorage) Root() string {
	return ls.root
}

// Open creates the backing directory if needed and verifies it.
func (ls *LocalStorage) Open(ctx context.Context) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	if err := os.MkdirAll(ls.root, 0o755); err != nil {
		return mapError(err)
	}

	info, err := os.Stat(ls.root)
	if err != nil {
		return mapError(err)
	}
	if !info.IsDir() {
		return data.ErrNotDirectory
	}

	ls.open = true
	return nil
}

// Close is part of the lifecycle behaviour; the directory persists independently.
func (ls *LocalStorage) Close(ctx context.Context) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.open = false
	return nil
}

func (ls *LocalStorage) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityStorage,
			backend.CapabilityAtomicReplace,
			backend.CapabilityPersistent,
		},
	}
}

func (ls *LocalStorage) HeadObject(ctx context.Context, key string) (*data.FileStat, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	info, err := os.Lstat(resolvePath(ls.root, key))
	if err != nil {
		return nil, mapError(err)
	}

	return data.NewFileStat(key, info), nil
}

func (ls *LocalStorage) OpenObject(ctx context.Context, key string, flags data.AccessMode, perm fs.FileMode) (backend.Object, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	fullPath := resolvePath(ls.root, key)
	if fullPath == ls.root {
		return nil, data.ErrIsDirectory
	}

	if flags.HasCreate() {
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return nil, mapError(err)
		}
	}
	if perm == 0 {
		perm = 0o644
	}

	file, err := os.OpenFile(fullPath, flags.OSFlags(), perm)
	if err != nil {
		return nil, mapError(err)
	}

	if info, err := file.Stat(); err == nil && info.IsDir() && flags.CanWrite() {
		file.Close()
		return nil, data.ErrIsDirectory
	}

	return file, nil
}

func (ls *LocalStorage) CreateObject(ctx context.Context, key string, mode fs.FileMode) (*data.FileStat, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	fullPath := resolvePath(ls.root, key)
	if _, err := os.Lstat(fullPath); err == nil {
		return nil, data.ErrExist
	}

	if mode.IsDir() {
		if err := os.Mkdir(fullPath, mode.Perm()|0o700); err != nil {
			return nil, mapError(err)
		}
	} else {
		perm := mode.Perm()
		if perm == 0 {
			perm = 0o644
		}
		file, err := os.OpenFile(fullPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, perm)
		if err != nil {
			return nil, mapError(err)
		}
		if err := file.Close(); err != nil {
			return nil, err
		}
	}

	info, err := os.Lstat(fullPath)
	if err != nil {
		return nil, mapError(err)
	}

	return data.NewFileStat(key, info), nil
}

func (ls *LocalStorage) TruncateObject(ctx context.Context, key string, size int64) error {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	if size < 0 {
		return data.ErrInvalid
	}

	return mapError(os.Truncate(resolvePath(ls.root, key), size))
}

func (ls *LocalStorage) RenameObject(ctx context.Context, oldKey, newKey string) error {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	return mapError(os.Rename(resolvePath(ls.root, oldKey), resolvePath(ls.root, newKey)))
}

func (ls *LocalStorage) DeleteObject(ctx context.Context, key string, force bool) error {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	fullPath := resolvePath(ls.root, key)
	if fullPath == ls.root {
		return data.ErrPermission
	}

	if force {
		if _, err := os.Lstat(fullPath); err != nil {
			return mapError(err)
		}
		return mapError(os.RemoveAll(fullPath))
	}

	return mapError(os.Remove(fullPath))
}

func (ls *LocalStorage) ListObjects(ctx context.Context, key string) ([]*data.FileStat, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	entries, err := os.ReadDir(resolvePath(ls.root, key))
	if err != nil {
		return nil, mapError(err)
	}

	stats := make([]*data.FileStat, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			// Removed between ReadDir and Info
			continue
		}
		stats = append(stats, data.NewFileStat(joinKey(key, entry.Name()), info))
	}

	return stats, nil
}

func (ls *LocalStorage) WalkObjects(ctx context.Context, fn func(*data.FileStat) error) error {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	return filepath.WalkDir(ls.root, func(fullPath string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return mapError(err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		rel, err := filepath.Rel(ls.root, fullPath)
		if err != nil {
			return err
		}

		return fn(data.NewFileStat(filepath.ToSlash(rel), info))
	})
}

// ReplaceObject writes r into a temporary file next to key and renames it into
// place, so readers observe either the old or the new content.
func (ls *LocalStorage) ReplaceObject(ctx context.Context, key string, r io.Reader) (int64, error) {
	ls.mu.RLock()
	defer ls.mu.RUnlock()

	fullPath := resolvePath(ls.root, key)
	if fullPath == ls.root {
		return 0, data.ErrIsDirectory
	}

	perm := fs.FileMode(0o644)
	if info, err := os.Lstat(fullPath); err == nil {
		if info.IsDir() {
			return 0, data.ErrIsDirectory
		}
		perm = info.Mode().Perm()
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, mapError(err)
	}

	return writeAtomic(dir, ".histfs-replace-*", fullPath, perm, r)
}

// writeAtomic copies r into a temp file in dir, syncs it and renames it onto target.
func writeAtomic(dir, pattern, target string, perm fs.FileMode, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return 0, mapError(err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, r)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpPath, perm)
	}
	if err == nil {
		err = os.Rename(tmpPath, target)
	}
	if err != nil {
		os.Remove(tmpPath)
		return written, mapError(err)
	}

	return written, nil
}

func joinKey(dir, name string) string {
	if dir == "" || dir == "/" || dir == "." {
		return name
	}
	return dir + "/" + name
}
