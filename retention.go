package histfs

import (
	"cmp"
	"context"
	"slices"
	"sync/atomic"

	"github.com/mwantia/histfs/data"
	"golang.org/x/sync/errgroup"
)

// Prune drops the oldest versions of path until at most keep remain and
// returns how many were dropped. Remaining versions keep their numbers.
//
// The ledger is rewritten before any blob is deleted, so a crash in between
// leaves unreferenced blobs rather than entries pointing at nothing. Blob
// deletion is best-effort.
func (fsys *FileSystem) Prune(ctx context.Context, path string, keep int) (int, error) {
	key, err := CleanKey(path)
	if err != nil {
		return 0, err
	}
	if keep < 1 {
		return 0, data.ErrInvalid
	}

	_, release := fsys.locks.acquire(key)
	defer release()

	return fsys.pruneLocked(ctx, key, keep)
}

func (fsys *FileSystem) pruneLocked(ctx context.Context, key string, keep int) (int, error) {
	versions, err := fsys.ledger.LoadLedger(ctx, key)
	if err != nil {
		return 0, err
	}
	if len(versions) <= keep {
		return 0, nil
	}

	// The highest number always survives so it is never handed out twice
	latest := data.LatestNumber(versions)
	var newest *data.Version
	ordered := make([]*data.Version, 0, len(versions))
	for _, v := range versions {
		if newest == nil && v.Number == latest {
			newest = v
			continue
		}
		ordered = append(ordered, v)
	}
	slices.SortStableFunc(ordered, func(a, b *data.Version) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Number, b.Number)
	})

	cut := len(ordered) - (keep - 1)
	dropped := ordered[:cut]
	kept := append(slices.Clone(ordered[cut:]), newest)
	data.SortVersions(kept)

	if err := fsys.ledger.ReplaceLedger(ctx, key, kept); err != nil {
		return 0, err
	}

	for _, v := range dropped {
		if err := fsys.archive.DeleteBlob(ctx, v.Location); err != nil {
			fsys.log.Warn("Prune: unable to delete blob of '%s' v%d at '%s' - %v", key, v.Number, v.Location, err)
		}
	}

	fsys.log.Info("Prune: dropped %d versions of '%s', %d remain", len(dropped), key, len(kept))
	return len(dropped), nil
}

// PruneAll prunes the history of every file that has a ledger, including
// files that no longer exist in the backing tree.
func (fsys *FileSystem) PruneAll(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		return 0, data.ErrInvalid
	}

	keys, err := fsys.ledger.ListLedgers(ctx)
	if err != nil {
		return 0, err
	}

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fsys.options.PruneConcurrency)

	for _, key := range keys {
		g.Go(func() error {
			n, err := fsys.Prune(gctx, key, keep)
			if err != nil {
				return err
			}
			total.Add(int64(n))
			return nil
		})
	}

	err = g.Wait()
	return int(total.Load()), err
}

// autoPruneLocked applies WithAutoPrune after a snapshot. Caller holds the
// path lock of key. Failures never affect the triggering operation.
func (fsys *FileSystem) autoPruneLocked(ctx context.Context, key string) {
	keep := fsys.options.AutoPruneKeep
	if keep < 1 {
		return
	}

	if _, err := fsys.pruneLocked(ctx, key, keep); err != nil {
		fsys.log.Warn("Prune: automatic prune of '%s' failed - %v", key, err)
	}
}
