package local

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/backend/backendtest"
	"github.com/mwantia/histfs/data"
)

func TestLocalLedger(t *testing.T) {
	backendtest.RunLedgerTests(t, func(t *testing.T) backend.LedgerBackend {
		ledger, err := NewLocalLedger(t.TempDir())
		if err != nil {
			t.Fatalf("NewLocalLedger failed: %v", err)
		}
		return ledger
	})
}

func TestLocalArchive(t *testing.T) {
	backendtest.RunArchiveTests(t, func(t *testing.T) backend.ArchiveBackend {
		archive, err := NewLocalArchive(t.TempDir())
		if err != nil {
			t.Fatalf("NewLocalArchive failed: %v", err)
		}
		return archive
	})
}

func TestLocalLedgerFileFormat(t *testing.T) {
	ctx := t.Context()
	root := t.TempDir()

	ledger, err := NewLocalLedger(root)
	if err != nil {
		t.Fatalf("NewLocalLedger failed: %v", err)
	}
	if err := ledger.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	v := &data.Version{CreatedAt: time.Unix(1700000000, 0), Size: 5, Location: "notes%2Fa.txt/v1_1700000000"}
	if err := ledger.AppendLedger(ctx, "notes/a.txt", v); err != nil {
		t.Fatalf("AppendLedger failed: %v", err)
	}

	content, err := os.ReadFile(filepath.Join(root, "notes%2Fa.txt.meta"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "1|1700000000|5|notes%2Fa.txt/v1_1700000000\n" {
		t.Fatalf("unexpected ledger content %q", content)
	}

	// A torn trailing line must not hide earlier entries
	f, err := os.OpenFile(filepath.Join(root, "notes%2Fa.txt.meta"), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	f.WriteString("2|17000")
	f.Close()

	versions, err := ledger.LoadLedger(ctx, "notes/a.txt")
	if err != nil {
		t.Fatalf("LoadLedger failed: %v", err)
	}
	if len(versions) != 1 || versions[0].Number != 1 {
		t.Fatalf("unexpected versions %+v", versions)
	}
}

func TestLocalArchiveLayout(t *testing.T) {
	ctx := t.Context()
	root := t.TempDir()

	archive, err := NewLocalArchive(root)
	if err != nil {
		t.Fatalf("NewLocalArchive failed: %v", err)
	}
	if err := archive.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	location, _, err := archive.PutBlob(ctx, "a.txt", 3, time.Unix(1700000000, 0), strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("PutBlob failed: %v", err)
	}
	if location != "a.txt/v3_1700000000" {
		t.Fatalf("unexpected location %q", location)
	}
	if _, err := os.Stat(filepath.Join(root, "a.txt", "v3_1700000000")); err != nil {
		t.Fatalf("expected blob on disk: %v", err)
	}

	if _, err := archive.OpenBlob(ctx, "../../etc/passwd"); !errors.Is(err, data.ErrInvalidPath) && !errors.Is(err, data.ErrNotExist) {
		t.Fatalf("expected traversal to be rejected, got %v", err)
	}
}

func TestLocalLongKeys(t *testing.T) {
	ctx := t.Context()

	ledger, err := NewLocalLedger(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalLedger failed: %v", err)
	}
	archive, err := NewLocalArchive(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalArchive failed: %v", err)
	}
	for _, b := range []backend.Backend{ledger, archive} {
		if err := b.Open(ctx); err != nil {
			t.Fatalf("Open failed: %v", err)
		}
	}

	keys := []string{
		strings.Repeat("日", 40) + ".txt",
		strings.Repeat("directory/", 30) + "a.txt",
		"short.txt",
	}
	for _, key := range keys {
		location, _, err := archive.PutBlob(ctx, key, 1, time.Unix(1700000000, 0), strings.NewReader("content"))
		if err != nil {
			t.Fatalf("PutBlob(%q) failed: %v", key, err)
		}

		rc, err := archive.OpenBlob(ctx, location)
		if err != nil {
			t.Fatalf("OpenBlob(%q) failed: %v", location, err)
		}
		rc.Close()

		v := &data.Version{CreatedAt: time.Unix(1700000000, 0), Size: 7, Location: location}
		if err := ledger.AppendLedger(ctx, key, v); err != nil {
			t.Fatalf("AppendLedger(%q) failed: %v", key, err)
		}

		versions, err := ledger.LoadLedger(ctx, key)
		if err != nil {
			t.Fatalf("LoadLedger(%q) failed: %v", key, err)
		}
		if len(versions) != 1 || versions[0].Location != location {
			t.Fatalf("unexpected versions for %q: %+v", key, versions)
		}
	}

	listed, err := ledger.ListLedgers(ctx)
	if err != nil {
		t.Fatalf("ListLedgers failed: %v", err)
	}
	if len(listed) != len(keys) {
		t.Fatalf("expected %d ledgers, got %v", len(keys), listed)
	}
	for _, key := range keys {
		if !slices.Contains(listed, key) {
			t.Fatalf("expected %q to be listed, got %v", key, listed)
		}
	}
}

func TestLocalStorage(t *testing.T) {
	ctx := t.Context()
	root := t.TempDir()

	storage, err := NewLocalStorage(root)
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}
	if err := storage.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer storage.Close(ctx)

	if _, err := storage.HeadObject(ctx, "missing.txt"); !errors.Is(err, data.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}

	obj, err := storage.OpenObject(ctx, "dir/a.txt", data.AccessModeWrite|data.AccessModeCreate, 0o600)
	if err != nil {
		t.Fatalf("OpenObject failed: %v", err)
	}
	if _, err := obj.WriteAt([]byte("hello world"), 0); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	if err := obj.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	stat, err := storage.HeadObject(ctx, "dir/a.txt")
	if err != nil {
		t.Fatalf("HeadObject failed: %v", err)
	}
	if stat.Size != 11 || !stat.IsRegular() || stat.ContentType != data.ContentTypeTextPlain {
		t.Fatalf("unexpected stat %+v", stat)
	}

	if err := storage.TruncateObject(ctx, "dir/a.txt", 5); err != nil {
		t.Fatalf("TruncateObject failed: %v", err)
	}

	n, err := storage.ReplaceObject(ctx, "dir/a.txt", bytes.NewReader([]byte("replaced")))
	if err != nil {
		t.Fatalf("ReplaceObject failed: %v", err)
	}
	if n != 8 {
		t.Fatalf("expected 8 bytes, got %d", n)
	}

	content, err := os.ReadFile(filepath.Join(root, "dir", "a.txt"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "replaced" {
		t.Fatalf("unexpected content %q", content)
	}
	info, err := os.Stat(filepath.Join(root, "dir", "a.txt"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected permissions to survive replace, got %v", info.Mode().Perm())
	}

	if err := storage.RenameObject(ctx, "dir/a.txt", "dir/b.txt"); err != nil {
		t.Fatalf("RenameObject failed: %v", err)
	}

	var walked []string
	if err := storage.WalkObjects(ctx, func(stat *data.FileStat) error {
		walked = append(walked, stat.Key)
		return nil
	}); err != nil {
		t.Fatalf("WalkObjects failed: %v", err)
	}
	if len(walked) != 1 || walked[0] != "dir/b.txt" {
		t.Fatalf("unexpected walk result %v", walked)
	}

	if err := storage.DeleteObject(ctx, "dir", false); !errors.Is(err, data.ErrDirectoryNotEmpty) && !errors.Is(err, data.ErrExist) {
		t.Fatalf("expected non-empty directory error, got %v", err)
	}
	if err := storage.DeleteObject(ctx, "dir/b.txt", false); err != nil {
		t.Fatalf("DeleteObject failed: %v", err)
	}

	if _, err := storage.OpenObject(ctx, "c.txt", data.AccessModeRead, 0); !errors.Is(err, data.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
}
