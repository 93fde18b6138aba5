package command

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
)

func setupGlobals(t *testing.T) (*Globals, string) {
	t.Helper()

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		t.Fatal(err)
	}

	content := fmt.Sprintf(`
data_dir = %q

[archive]
type = "sqlite"
path = %q

[ledger]
type = "sqlite"
path = %q

[retention]
keep = 5
`, dataDir, filepath.Join(dir, "histfs.db"), filepath.Join(dir, "histfs.db"))

	path := filepath.Join(dir, "histfs.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	return &Globals{ConfigFile: path}, dataDir
}

func TestLoadConfigOverrides(t *testing.T) {
	g, _ := setupGlobals(t)
	g.DataDir = filepath.Join(t.TempDir(), "elsewhere")
	g.Verbose = true

	cfg, err := g.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.DataDir != g.DataDir {
		t.Errorf("expected data dir override, got %s", cfg.DataDir)
	}
	if cfg.Log.Level != "DEBUG" {
		t.Errorf("expected debug level with --verbose, got %s", cfg.Log.Level)
	}
}

func TestSnapshotRestorePrune(t *testing.T) {
	g, dataDir := setupGlobals(t)
	target := filepath.Join(dataDir, "notes.txt")

	for _, content := range []string{"first", "second", "third"} {
		if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := (&Snapshot{Paths: []string{"notes.txt"}}).Run(g); err != nil {
			t.Fatalf("Snapshot failed: %v", err)
		}
	}

	if err := (&Restore{Path: "notes.txt", Number: 1, Snapshot: true}).Run(g); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	content, err := os.ReadFile(target)
	if err != nil || string(content) != "first" {
		t.Fatalf("expected restored content 'first', got %q (%v)", content, err)
	}

	err = (&Restore{Path: "notes.txt", Number: 42}).Run(g)
	if !errors.Is(err, data.ErrNotExist) {
		t.Fatalf("expected ErrNotExist for unknown version, got %v", err)
	}

	if err := (&Prune{Keep: 1}).Run(g); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}

	fsys, _, closer, err := g.open(t.Context())
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer closer()

	versions, err := fsys.ListVersions(t.Context(), "notes.txt")
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	// three snapshots plus the one taken before restoring
	if len(versions) != 1 || versions[0].Number != 4 {
		t.Fatalf("expected only v4 to remain, got %d versions", len(versions))
	}
}
