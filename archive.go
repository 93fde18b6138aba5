package histfs

import (
	"context"
	"time"

	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
)

// CreateVersion archives the current content of path and appends a ledger
// entry for it. A nil version with a nil error means the file was skipped
// because it is absent, not a regular file or empty.
//
// A failure while copying is reported as data.ErrArchive and leaves the ledger
// untouched. A stored blob whose ledger append failed is reported as
// data.ErrPersistence; the blob is left behind unreferenced.
func (fsys *FileSystem) CreateVersion(ctx context.Context, path string) (*data.Version, error) {
	key, err := CleanKey(path)
	if err != nil {
		return nil, err
	}

	_, release := fsys.locks.acquire(key)
	defer release()

	return fsys.createVersionLocked(ctx, key)
}

func (fsys *FileSystem) createVersionLocked(ctx context.Context, key string) (*data.Version, error) {
	stat, err := fsys.storage.HeadObject(ctx, key)
	if err != nil {
		if errors.Is(err, data.ErrNotExist) {
			fsys.log.Debug("CreateVersion: skipped absent '%s'", key)
			return nil, nil
		}
		return nil, errors.Archive(err, key)
	}
	if !stat.IsRegular() || stat.Size == 0 {
		fsys.log.Debug("CreateVersion: skipped '%s' (mode=%v size=%d)", key, stat.Mode, stat.Size)
		return nil, nil
	}

	versions, err := fsys.ledger.LoadLedger(ctx, key)
	if err != nil {
		return nil, errors.Archive(err, key)
	}

	obj, err := fsys.storage.OpenObject(ctx, key, data.AccessModeRead, 0)
	if err != nil {
		if errors.Is(err, data.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Archive(err, key)
	}
	defer obj.Close()

	v := &data.Version{
		Number:    data.LatestNumber(versions) + 1,
		CreatedAt: fsys.options.Clock().Truncate(time.Second),
	}

	location, size, err := fsys.archive.PutBlob(ctx, key, v.Number, v.CreatedAt, obj)
	if err != nil {
		return nil, errors.Archive(err, key)
	}
	if size == 0 {
		// Truncated to nothing between stat and copy
		if err := fsys.archive.DeleteBlob(ctx, location); err != nil {
			fsys.log.Warn("CreateVersion: unable to drop empty blob '%s' - %v", location, err)
		}
		return nil, nil
	}
	v.Location = location
	v.Size = size

	if err := fsys.ledger.AppendLedger(ctx, key, v); err != nil {
		if !errors.Is(err, data.ErrPersistence) {
			err = errors.Persistence(err, key)
		}
		return nil, err
	}

	fsys.log.Info("CreateVersion: archived '%s' as v%d (%d bytes)", key, v.Number, v.Size)
	return v, nil
}

// snapshotBefore archives key ahead of a mutation. It only returns an error
// when the mutation has to be aborted. The boolean reports whether the prior
// content is accounted for, either archived or deliberately skipped.
func (fsys *FileSystem) snapshotBefore(ctx context.Context, key, reason string) (bool, error) {
	v, err := fsys.createVersionLocked(ctx, key)
	switch {
	case err == nil && v == nil:
		return false, nil
	case err == nil:
		fsys.log.Debug("%s: snapshot v%d of '%s' taken", reason, v.Number, key)
		fsys.autoPruneLocked(ctx, key)
		return true, nil
	case errors.Is(err, data.ErrPersistence):
		fsys.log.Warn("%s: prior content of '%s' archived but not recorded - %v", reason, key, err)
		return true, nil
	default:
		fsys.log.Error("%s: unable to archive '%s', aborting - %v", reason, key, err)
		return false, err
	}
}
