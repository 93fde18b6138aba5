package histfs

import (
	"cmp"
	"context"
	"io"
	"path"
	"slices"
	"strings"

	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
)

// ListLogicalFiles returns every regular file of the backing tree, sorted.
func (fsys *FileSystem) ListLogicalFiles(ctx context.Context) ([]string, error) {
	var keys []string
	err := fsys.storage.WalkObjects(ctx, func(stat *data.FileStat) error {
		if stat.IsRegular() && !strings.HasPrefix(path.Base(stat.Key), ".histfs-") {
			keys = append(keys, stat.Key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(keys)
	return keys, nil
}

// ListHistory returns every key that has a ledger, whether or not the file
// still exists.
func (fsys *FileSystem) ListHistory(ctx context.Context) ([]string, error) {
	keys, err := fsys.ledger.ListLedgers(ctx)
	if err != nil {
		return nil, err
	}

	slices.Sort(keys)
	return keys, nil
}

// ListVersions returns the versions of path, newest first. A file without
// history yields an empty list.
func (fsys *FileSystem) ListVersions(ctx context.Context, path string) ([]*data.Version, error) {
	key, err := CleanKey(path)
	if err != nil {
		return nil, err
	}

	versions, err := fsys.ledger.LoadLedger(ctx, key)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(versions, func(a, b *data.Version) int {
		return cmp.Compare(b.Number, a.Number)
	})
	return versions, nil
}

// OpenVersion streams the archived content of one version.
func (fsys *FileSystem) OpenVersion(ctx context.Context, path string, number uint64) (io.ReadCloser, error) {
	key, err := CleanKey(path)
	if err != nil {
		return nil, err
	}

	versions, err := fsys.ledger.LoadLedger(ctx, key)
	if err != nil {
		return nil, err
	}

	v := data.FindVersion(versions, number)
	if v == nil {
		return nil, errors.NotExist(nil, key)
	}

	return fsys.archive.OpenBlob(ctx, v.Location)
}

// Restore replaces the content of path with version number. It reports false
// with a nil error when no such version exists. The target is swapped
// atomically and history is left untouched; the replaced content is not
// archived, call CreateVersion first for that.
func (fsys *FileSystem) Restore(ctx context.Context, path string, number uint64) (bool, error) {
	key, err := CleanKey(path)
	if err != nil {
		return false, err
	}

	_, release := fsys.locks.acquire(key)
	defer release()

	versions, err := fsys.ledger.LoadLedger(ctx, key)
	if err != nil {
		return false, err
	}

	v := data.FindVersion(versions, number)
	if v == nil {
		fsys.log.Debug("Restore: '%s' has no v%d", key, number)
		return false, nil
	}

	blob, err := fsys.archive.OpenBlob(ctx, v.Location)
	if err != nil {
		return false, errors.Archive(err, key)
	}
	defer blob.Close()

	written, err := fsys.storage.ReplaceObject(ctx, key, blob)
	if err != nil {
		return false, err
	}

	fsys.log.Info("Restore: restored '%s' to v%d (%d bytes)", key, number, written)
	return true, nil
}
