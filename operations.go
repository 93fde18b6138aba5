package histfs

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"strings"

	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
)

// OpenFile opens path. Handles with write intent start a modification session;
// opening with truncation archives existing content before it is cut.
func (fsys *FileSystem) OpenFile(ctx context.Context, path string, flags data.AccessMode, perm fs.FileMode) (*Handle, error) {
	key, err := CleanKey(path)
	if err != nil {
		return nil, err
	}

	// Appends are positioned by the handle, the object itself is opened plainly
	objFlags := flags &^ (data.AccessModeAppend | data.AccessModeTrunc | data.AccessModeExcl)
	if flags.CanWrite() {
		objFlags |= data.AccessModeWrite
	}

	if !flags.CanWrite() {
		if flags.HasCreate() {
			return nil, data.ErrInvalid
		}

		fsys.log.Debug("OpenFile: opening '%s' read-only", key)
		obj, err := fsys.storage.OpenObject(ctx, key, objFlags, perm)
		if err != nil {
			return nil, err
		}

		h := newHandle(ctx, fsys, key, obj, nil, flags)
		fsys.addHandle(h)
		return h, nil
	}

	pl, release := fsys.locks.acquire(key)
	defer release()

	var preExistingSize int64
	stat, err := fsys.storage.HeadObject(ctx, key)
	switch {
	case err == nil:
		if stat.IsDir() {
			return nil, data.ErrIsDirectory
		}
		if flags.HasCreate() && flags.HasExcl() {
			return nil, data.ErrExist
		}
		preExistingSize = stat.Size
	case errors.Is(err, data.ErrNotExist):
		if !flags.HasCreate() {
			return nil, err
		}
	default:
		return nil, err
	}

	obj, err := fsys.storage.OpenObject(ctx, key, objFlags, perm)
	if err != nil {
		return nil, err
	}

	session := newSession(key, preExistingSize)
	if flags.HasTrunc() && preExistingSize > 0 {
		taken, err := fsys.snapshotBefore(ctx, key, "OpenFile")
		if err != nil {
			obj.Close()
			return nil, err
		}
		session.snapshotTaken = taken

		if err := obj.Truncate(0); err != nil {
			obj.Close()
			return nil, err
		}
		session.wasWritten = true
	}

	fsys.locks.register(pl, session)
	fsys.log.Debug("OpenFile: session %s on '%s' (flags=%v pre_size=%d)", session.ID, key, flags, preExistingSize)

	h := newHandle(ctx, fsys, key, obj, session, flags)
	fsys.addHandle(h)
	return h, nil
}

// Open opens path for reading.
func (fsys *FileSystem) Open(ctx context.Context, path string) (*Handle, error) {
	return fsys.OpenFile(ctx, path, data.AccessModeRead, 0)
}

// Create opens path for writing, creating or truncating it.
func (fsys *FileSystem) Create(ctx context.Context, path string, perm fs.FileMode) (*Handle, error) {
	return fsys.OpenFile(ctx, path, data.AccessModeRead|data.AccessModeWrite|data.AccessModeCreate|data.AccessModeTrunc, perm)
}

// Truncate resizes path without a handle. Shrinking a non-empty file archives
// it first, unless an open session on the file already did.
func (fsys *FileSystem) Truncate(ctx context.Context, path string, size int64) error {
	key, err := CleanKey(path)
	if err != nil {
		return err
	}
	if size < 0 {
		return data.ErrInvalid
	}

	pl, release := fsys.locks.acquire(key)
	defer release()

	stat, err := fsys.storage.HeadObject(ctx, key)
	if err != nil {
		return err
	}
	if stat.IsDir() {
		return data.ErrIsDirectory
	}

	if size < stat.Size && !pl.anySnapshotted() {
		taken, err := fsys.snapshotBefore(ctx, key, "Truncate")
		if err != nil {
			return err
		}
		if taken {
			pl.markSnapshotted()
		}
	}

	fsys.log.Debug("Truncate: resizing '%s' from %d to %d bytes", key, stat.Size, size)
	return fsys.storage.TruncateObject(ctx, key, size)
}

// Rename moves oldPath to newPath. The source is archived first, and so is a
// non-empty destination that is about to be replaced. History stays with the
// source key; open sessions follow the file to its new key.
func (fsys *FileSystem) Rename(ctx context.Context, oldPath, newPath string) error {
	oldKey, err := CleanKey(oldPath)
	if err != nil {
		return err
	}
	newKey, err := CleanKey(newPath)
	if err != nil {
		return err
	}
	if oldKey == newKey {
		_, err := fsys.storage.HeadObject(ctx, oldKey)
		return err
	}

	locks, release := fsys.locks.acquireTree(oldKey, newKey)
	defer release()
	oldLock, newLock := locks[oldKey], locks[newKey]

	src, err := fsys.storage.HeadObject(ctx, oldKey)
	if err != nil {
		return err
	}
	if src.IsRegular() {
		if _, err := fsys.snapshotBefore(ctx, oldKey, "Rename"); err != nil {
			return err
		}
	}

	if dst, err := fsys.storage.HeadObject(ctx, newKey); err == nil && dst.IsRegular() && src.IsRegular() {
		taken, err := fsys.snapshotBefore(ctx, newKey, "Rename")
		if err != nil {
			return err
		}
		if taken {
			newLock.markSnapshotted()
		}
	}

	fsys.log.Debug("Rename: moving '%s' to '%s'", oldKey, newKey)
	if err := fsys.storage.RenameObject(ctx, oldKey, newKey); err != nil {
		return err
	}

	fsys.locks.move(oldLock, newLock, newKey)
	if src.IsDir() {
		// Open sessions below a renamed directory follow it
		for key, pl := range locks {
			if rel, ok := strings.CutPrefix(key, oldKey+"/"); ok {
				fsys.locks.move(pl, locks[newKey+"/"+rel], newKey+"/"+rel)
			}
		}
	}
	return nil
}

// Unlink removes path after archiving its final content.
func (fsys *FileSystem) Unlink(ctx context.Context, path string) error {
	key, err := CleanKey(path)
	if err != nil {
		return err
	}

	_, release := fsys.locks.acquire(key)
	defer release()

	stat, err := fsys.storage.HeadObject(ctx, key)
	if err != nil {
		return err
	}
	if stat.IsDir() {
		return data.ErrIsDirectory
	}

	if _, err := fsys.snapshotBefore(ctx, key, "Unlink"); err != nil {
		return err
	}

	fsys.log.Debug("Unlink: removing '%s'", key)
	return fsys.storage.DeleteObject(ctx, key, false)
}

// Stat passes through to the storage backend; "" or "/" is the root.
func (fsys *FileSystem) Stat(ctx context.Context, path string) (*data.FileStat, error) {
	key, err := CleanKey(path)
	if errors.Is(err, data.ErrInvalidPath) {
		key = ""
	} else if err != nil {
		return nil, err
	}

	return fsys.storage.HeadObject(ctx, key)
}

// ReadDir lists a directory of the backing tree.
func (fsys *FileSystem) ReadDir(ctx context.Context, path string) ([]*data.FileStat, error) {
	key, err := CleanKey(path)
	if errors.Is(err, data.ErrInvalidPath) {
		key = ""
	} else if err != nil {
		return nil, err
	}

	return fsys.storage.ListObjects(ctx, key)
}

func (fsys *FileSystem) Mkdir(ctx context.Context, path string, perm fs.FileMode) error {
	key, err := CleanKey(path)
	if err != nil {
		return err
	}

	_, err = fsys.storage.CreateObject(ctx, key, fs.ModeDir|perm.Perm())
	return err
}

// Rmdir removes an empty directory. Directories are not versioned.
func (fsys *FileSystem) Rmdir(ctx context.Context, path string) error {
	key, err := CleanKey(path)
	if err != nil {
		return err
	}

	stat, err := fsys.storage.HeadObject(ctx, key)
	if err != nil {
		return err
	}
	if !stat.IsDir() {
		return data.ErrNotDirectory
	}

	return fsys.storage.DeleteObject(ctx, key, false)
}

// ReadFile returns the full current content of path.
func (fsys *FileSystem) ReadFile(ctx context.Context, path string) ([]byte, error) {
	h, err := fsys.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer h.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, h); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// WriteFile replaces the content of path in one session, like os.WriteFile.
func (fsys *FileSystem) WriteFile(ctx context.Context, path string, content []byte, perm fs.FileMode) error {
	h, err := fsys.OpenFile(ctx, path, data.AccessModeWrite|data.AccessModeCreate|data.AccessModeTrunc, perm)
	if err != nil {
		return err
	}

	if _, err := h.WriteAt(content, 0); err != nil {
		h.Close()
		return err
	}

	return h.Close()
}
