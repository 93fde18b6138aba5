package histfs

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mwantia/histfs/backend/memory"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
)

// failingLedger stores blobs but refuses every ledger append.
type failingLedger struct {
	*memory.MemoryBackend
}

func (failingLedger) AppendLedger(ctx context.Context, key string, v *data.Version) error {
	return stderrors.New("ledger disk full")
}

// failingArchive refuses to store blobs.
type failingArchive struct {
	*memory.MemoryBackend
}

func (failingArchive) PutBlob(ctx context.Context, key string, number uint64, createdAt time.Time, r io.Reader) (string, int64, error) {
	return "", 0, stderrors.New("archive disk full")
}

func TestSessionState(t *testing.T) {
	s := newSession("a.txt", 5)
	if s.State() != SessionOpen || !s.needsSnapshot() {
		t.Fatalf("unexpected fresh session state %s", s.State())
	}

	s.wasWritten = true
	if s.State() != SessionModified || s.needsSnapshot() || !s.needsCloseSnapshot() {
		t.Fatalf("unexpected modified session state %s", s.State())
	}

	s.snapshotTaken = true
	if s.State() != SessionSnapshotted || s.needsCloseSnapshot() {
		t.Fatalf("unexpected snapshotted session state %s", s.State())
	}

	s.closed = true
	if s.State() != SessionClosed || s.needsSnapshot() {
		t.Fatalf("unexpected closed session state %s", s.State())
	}

	if newSession("b.txt", 0).needsCloseSnapshot() {
		t.Fatal("a session on an empty file has nothing to archive at close")
	}
}

func TestLockTableMove(t *testing.T) {
	locks := newLockTable()
	s := newSession("a.txt", 0)

	pl, release := locks.acquire("a.txt")
	locks.register(pl, s)
	release()
	if locks.size() != 1 {
		t.Fatalf("expected the registered session to pin its lock, got %d entries", locks.size())
	}

	held, release := locks.acquireTree("a.txt", "b.txt")
	locks.move(held["a.txt"], held["b.txt"], "b.txt")
	release()

	if s.Key() != "b.txt" {
		t.Fatalf("expected session key b.txt, got %s", s.Key())
	}

	pl, release = locks.acquire("b.txt")
	if !pl.owns(s) {
		t.Fatal("expected b.txt to own the moved session")
	}
	locks.unregister(pl, s)
	release()

	if locks.size() != 0 {
		t.Fatalf("expected empty lock table, got %d entries", locks.size())
	}
}

func TestLockTableAcquireTree(t *testing.T) {
	locks := newLockTable()
	s := newSession("dir/sub/a.txt", 0)

	pl, release := locks.acquire("dir/sub/a.txt")
	locks.register(pl, s)
	release()

	held, release := locks.acquireTree("dir", "moved")
	for _, key := range []string{"dir", "moved", "dir/sub/a.txt", "moved/sub/a.txt"} {
		if _, ok := held[key]; !ok {
			t.Fatalf("expected %s to be locked, got %d locks", key, len(held))
		}
	}
	if _, ok := held["dirt/a.txt"]; ok || len(held) != 4 {
		t.Fatalf("expected exactly 4 locks, got %d", len(held))
	}
	release()

	held, release = locks.acquireTree("di", "x")
	if len(held) != 2 {
		t.Fatalf("expected a sibling prefix to lock nothing below it, got %d locks", len(held))
	}
	release()
}

func TestLedgerFailureDoesNotBlockWrites(t *testing.T) {
	fsys, root := newTestFS(t, memory.NewMemoryBackend(), WithLedger(failingLedger{memory.NewMemoryBackend()}))
	ctx := t.Context()

	writeSession(t, fsys, "a.txt", create, "original")

	h, err := fsys.OpenFile(ctx, "a.txt", rw, 0)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if _, err := h.WriteAt([]byte("changed!"), 0); err != nil {
		t.Fatalf("expected write to proceed despite ledger failure, got %v", err)
	}
	if h.State() != SessionSnapshotted {
		t.Fatalf("expected the archived content to count as snapshot, got %s", h.State())
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	assertLive(t, root, "a.txt", "changed!")

	_, err = fsys.CreateVersion(ctx, "a.txt")
	if !errors.Is(err, data.ErrPersistence) {
		t.Fatalf("expected ErrPersistence from CreateVersion, got %v", err)
	}

	if err := fsys.Unlink(ctx, "a.txt"); err != nil {
		t.Fatalf("expected unlink to proceed despite ledger failure, got %v", err)
	}
}

func TestArchiveFailureAbortsMutation(t *testing.T) {
	fsys, root := newTestFS(t, failingArchive{memory.NewMemoryBackend()})
	ctx := t.Context()

	writeSession(t, fsys, "a.txt", create, "precious")

	h, err := fsys.OpenFile(ctx, "a.txt", rw, 0)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if _, err := h.WriteAt([]byte("X"), 0); !errors.Is(err, data.ErrArchive) {
		t.Fatalf("expected ErrArchive, got %v", err)
	}
	if err := h.Truncate(1); !errors.Is(err, data.ErrArchive) {
		t.Fatalf("expected ErrArchive, got %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := fsys.Create(ctx, "a.txt", 0o644); !errors.Is(err, data.ErrArchive) {
		t.Fatalf("expected ErrArchive on truncating open, got %v", err)
	}
	if err := fsys.Truncate(ctx, "a.txt", 0); !errors.Is(err, data.ErrArchive) {
		t.Fatalf("expected ErrArchive on truncate, got %v", err)
	}
	if err := fsys.Rename(ctx, "a.txt", "b.txt"); !errors.Is(err, data.ErrArchive) {
		t.Fatalf("expected ErrArchive on rename, got %v", err)
	}
	if err := fsys.Unlink(ctx, "a.txt"); !errors.Is(err, data.ErrArchive) {
		t.Fatalf("expected ErrArchive on unlink, got %v", err)
	}

	assertLive(t, root, "a.txt", "precious")
	if n := fsys.OpenHandles(); n != 0 {
		t.Fatalf("expected no leaked handles, got %d", n)
	}
}

func TestConcurrentSessionsSameFile(t *testing.T) {
	fsys, _ := newTestFS(t, memory.NewMemoryBackend())
	ctx := t.Context()

	writeSession(t, fsys, "shared.txt", create, "seed")

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			h, err := fsys.OpenFile(ctx, "shared.txt", rw, 0)
			if err != nil {
				errs <- err
				return
			}
			for j := 0; j < 10; j++ {
				if _, err := h.WriteAt([]byte(fmt.Sprintf("w%d", i)), int64(j)); err != nil {
					errs <- err
					h.Close()
					return
				}
			}
			errs <- h.Close()
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("writer failed: %v", err)
		}
	}

	versions, err := fsys.ListVersions(ctx, "shared.txt")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) < 1 || len(versions) > writers {
		t.Fatalf("expected between 1 and %d versions, got %d", writers, len(versions))
	}
	for i, v := range versions {
		if v.Number != uint64(len(versions)-i) {
			t.Fatalf("expected contiguous numbers, got %d at position %d", v.Number, i)
		}
	}
	if n := fsys.locks.size(); n != 0 {
		t.Fatalf("expected empty lock table, got %d entries", n)
	}
}

func TestConcurrentSessionsDistinctFiles(t *testing.T) {
	fsys, _ := newTestFS(t, memory.NewMemoryBackend())
	ctx := t.Context()

	const files = 16
	var wg sync.WaitGroup
	errs := make(chan error, files)

	for i := 0; i < files; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			name := fmt.Sprintf("dir%d/file.txt", i%4)
			if i >= 4 {
				name = fmt.Sprintf("dir%d/file%d.txt", i%4, i)
			}
			if err := fsys.WriteFile(ctx, name, []byte("first"), 0o644); err != nil {
				errs <- err
				return
			}
			errs <- fsys.WriteFile(ctx, name, []byte("second"), 0o644)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("writer failed: %v", err)
		}
	}

	history, err := fsys.ListHistory(ctx)
	if err != nil {
		t.Fatalf("ListHistory failed: %v", err)
	}
	if len(history) != files {
		t.Fatalf("expected %d files with history, got %d", files, len(history))
	}
	for _, key := range history {
		assertVersions(t, fsys, key, 1)
		assertVersionContent(t, fsys, key, 1, "first")
	}
}
