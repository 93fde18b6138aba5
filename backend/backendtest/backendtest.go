// Package backendtest holds conformance checks shared by every ledger and
// archive implementation.
package backendtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/data"
)

// LedgerFactory returns an unopened ledger backend.
type LedgerFactory func(t *testing.T) backend.LedgerBackend

// ArchiveFactory returns an unopened archive backend.
type ArchiveFactory func(t *testing.T) backend.ArchiveBackend

func openBackend(t *testing.T, b backend.Backend) {
	t.Helper()

	ctx := t.Context()
	if err := b.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := b.Close(context.Background()); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
}

func RunLedgerTests(t *testing.T, factory LedgerFactory) {
	t.Run("EmptyLedger", func(t *testing.T) {
		ledger := factory(t)
		openBackend(t, ledger)

		versions, err := ledger.LoadLedger(t.Context(), "missing.txt")
		if err != nil {
			t.Fatalf("LoadLedger failed: %v", err)
		}
		if len(versions) != 0 {
			t.Fatalf("expected empty ledger, got %d entries", len(versions))
		}
	})

	t.Run("AppendAssignsNumbers", func(t *testing.T) {
		ctx := t.Context()
		ledger := factory(t)
		openBackend(t, ledger)

		for i := 1; i <= 3; i++ {
			v := &data.Version{CreatedAt: time.Unix(int64(1000+i), 0), Size: int64(i), Location: "loc"}
			if err := ledger.AppendLedger(ctx, "notes/a.txt", v); err != nil {
				t.Fatalf("AppendLedger failed: %v", err)
			}
			if v.Number != uint64(i) {
				t.Fatalf("expected number %d, got %d", i, v.Number)
			}
		}

		versions, err := ledger.LoadLedger(ctx, "notes/a.txt")
		if err != nil {
			t.Fatalf("LoadLedger failed: %v", err)
		}
		if len(versions) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(versions))
		}
		for i, v := range versions {
			if v.Number != uint64(i+1) || v.Size != int64(i+1) || v.CreatedAt.Unix() != int64(1001+i) {
				t.Errorf("unexpected entry %d: %+v", i, v)
			}
		}
	})

	t.Run("AppendRejectsConflicts", func(t *testing.T) {
		ctx := t.Context()
		ledger := factory(t)
		openBackend(t, ledger)

		if err := ledger.AppendLedger(ctx, "a.txt", &data.Version{Number: 1, CreatedAt: time.Unix(1, 0), Location: "x"}); err != nil {
			t.Fatalf("AppendLedger failed: %v", err)
		}
		err := ledger.AppendLedger(ctx, "a.txt", &data.Version{Number: 1, CreatedAt: time.Unix(2, 0), Location: "y"})
		if !errors.Is(err, data.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
		if !errors.Is(err, data.ErrPersistence) {
			t.Fatalf("expected ErrPersistence, got %v", err)
		}
	})

	t.Run("ReplaceKeepsNumbers", func(t *testing.T) {
		ctx := t.Context()
		ledger := factory(t)
		openBackend(t, ledger)

		for i := 0; i < 5; i++ {
			if err := ledger.AppendLedger(ctx, "a.txt", &data.Version{CreatedAt: time.Unix(int64(i), 0), Location: "loc"}); err != nil {
				t.Fatalf("AppendLedger failed: %v", err)
			}
		}

		versions, err := ledger.LoadLedger(ctx, "a.txt")
		if err != nil {
			t.Fatalf("LoadLedger failed: %v", err)
		}
		if err := ledger.ReplaceLedger(ctx, "a.txt", versions[3:]); err != nil {
			t.Fatalf("ReplaceLedger failed: %v", err)
		}

		next := &data.Version{CreatedAt: time.Unix(10, 0), Location: "loc"}
		if err := ledger.AppendLedger(ctx, "a.txt", next); err != nil {
			t.Fatalf("AppendLedger failed: %v", err)
		}
		if next.Number != 6 {
			t.Fatalf("expected number 6 after replace, got %d", next.Number)
		}

		versions, err = ledger.LoadLedger(ctx, "a.txt")
		if err != nil {
			t.Fatalf("LoadLedger failed: %v", err)
		}
		got := make([]uint64, 0, len(versions))
		for _, v := range versions {
			got = append(got, v.Number)
		}
		if len(got) != 3 || got[0] != 4 || got[1] != 5 || got[2] != 6 {
			t.Fatalf("unexpected numbers %v", got)
		}
	})

	t.Run("ListLedgers", func(t *testing.T) {
		ctx := t.Context()
		ledger := factory(t)
		openBackend(t, ledger)

		for _, key := range []string{"b.txt", "a/c.txt", "a.txt"} {
			if err := ledger.AppendLedger(ctx, key, &data.Version{CreatedAt: time.Unix(1, 0), Location: "loc"}); err != nil {
				t.Fatalf("AppendLedger failed: %v", err)
			}
		}

		keys, err := ledger.ListLedgers(ctx)
		if err != nil {
			t.Fatalf("ListLedgers failed: %v", err)
		}
		want := []string{"a.txt", "a/c.txt", "b.txt"}
		if len(keys) != len(want) {
			t.Fatalf("expected %v, got %v", want, keys)
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, keys)
			}
		}
	})
}

func RunArchiveTests(t *testing.T, factory ArchiveFactory) {
	t.Run("PutOpenDelete", func(t *testing.T) {
		ctx := t.Context()
		archive := factory(t)
		openBackend(t, archive)

		content := []byte("hello")
		location, size, err := archive.PutBlob(ctx, "notes/a.txt", 1, time.Unix(1700000000, 0), bytes.NewReader(content))
		if err != nil {
			t.Fatalf("PutBlob failed: %v", err)
		}
		if size != int64(len(content)) {
			t.Fatalf("expected size %d, got %d", len(content), size)
		}
		if location == "" {
			t.Fatal("expected non-empty location")
		}

		rc, err := archive.OpenBlob(ctx, location)
		if err != nil {
			t.Fatalf("OpenBlob failed: %v", err)
		}
		got, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("ReadAll failed: %v", err)
		}
		if !bytes.Equal(got, content) {
			t.Fatalf("expected %q, got %q", content, got)
		}

		if err := archive.DeleteBlob(ctx, location); err != nil {
			t.Fatalf("DeleteBlob failed: %v", err)
		}
		if _, err := archive.OpenBlob(ctx, location); !errors.Is(err, data.ErrNotExist) {
			t.Fatalf("expected ErrNotExist after delete, got %v", err)
		}
	})

	t.Run("DistinctLocations", func(t *testing.T) {
		ctx := t.Context()
		archive := factory(t)
		openBackend(t, archive)

		created := time.Unix(1700000000, 0)
		first, _, err := archive.PutBlob(ctx, "a/x.txt", 1, created, bytes.NewReader([]byte("a")))
		if err != nil {
			t.Fatalf("PutBlob failed: %v", err)
		}
		second, _, err := archive.PutBlob(ctx, "b/x.txt", 1, created, bytes.NewReader([]byte("b")))
		if err != nil {
			t.Fatalf("PutBlob failed: %v", err)
		}
		if first == second {
			t.Fatalf("files with the same base name share location %q", first)
		}
	})

	t.Run("FailingReader", func(t *testing.T) {
		ctx := t.Context()
		archive := factory(t)
		openBackend(t, archive)

		broken := io.MultiReader(bytes.NewReader([]byte("part")), errReader{})
		if _, _, err := archive.PutBlob(ctx, "a.txt", 1, time.Unix(1, 0), broken); err == nil {
			t.Fatal("expected PutBlob to fail on a broken reader")
		}
	})
}

var errBroken = errors.New("broken reader")

type errReader struct{}

func (errReader) Read([]byte) (int, error) {
	return 0, errBroken
}
