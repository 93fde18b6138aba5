package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/backend/backendtest"
	"github.com/mwantia/histfs/data"
)

func newTestBackend(t *testing.T) *SQLiteBackend {
	t.Helper()

	sb, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "histfs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteBackend failed: %v", err)
	}
	return sb
}

func TestSQLiteLedger(t *testing.T) {
	backendtest.RunLedgerTests(t, func(t *testing.T) backend.LedgerBackend {
		return newTestBackend(t)
	})
}

func TestSQLiteArchive(t *testing.T) {
	backendtest.RunArchiveTests(t, func(t *testing.T) backend.ArchiveBackend {
		return newTestBackend(t)
	})
}

func TestSQLiteReopenKeepsLedger(t *testing.T) {
	ctx := t.Context()
	dsn := filepath.Join(t.TempDir(), "histfs.db")

	sb, err := NewSQLiteBackend(dsn)
	if err != nil {
		t.Fatalf("NewSQLiteBackend failed: %v", err)
	}
	if err := sb.Open(ctx); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := sb.AppendLedger(ctx, "a.txt", &data.Version{CreatedAt: time.Unix(1, 0), Size: 3, Location: "blob"}); err != nil {
		t.Fatalf("AppendLedger failed: %v", err)
	}
	if err := sb.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := sb.LoadLedger(ctx, "a.txt"); err == nil {
		t.Fatal("expected LoadLedger on a closed backend to fail")
	}
	if err := sb.Open(ctx); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer sb.Close(ctx)

	versions, err := sb.LoadLedger(ctx, "a.txt")
	if err != nil {
		t.Fatalf("LoadLedger failed: %v", err)
	}
	if len(versions) != 1 || versions[0].Number != 1 || versions[0].Location != "blob" {
		t.Fatalf("unexpected versions after reopen %+v", versions)
	}
}
