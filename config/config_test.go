package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "histfs.toml")

	content := `
data_dir = "${HISTFS_TEST_ROOT}/data"

[archive]
type = "sqlite"
path = "${HISTFS_TEST_ROOT}/histfs.db"

[ledger]
type = "sqlite"
path = "${HISTFS_TEST_ROOT}/histfs.db"

[retention]
keep = 3
auto = true

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HISTFS_TEST_ROOT", dir)
	t.Setenv(EnvDataDir, "")

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != filepath.Join(dir, "data") {
		t.Errorf("unexpected data_dir %s", cfg.DataDir)
	}
	if cfg.Retention.Keep != 3 || !cfg.Retention.Auto {
		t.Errorf("unexpected retention %+v", cfg.Retention)
	}
	if !cfg.sharesArchive() {
		t.Error("expected sqlite archive and ledger on the same file to share a backend")
	}
	// Untouched sections keep their defaults
	if cfg.Consul.Address != "127.0.0.1:8500" {
		t.Errorf("unexpected consul address %s", cfg.Consul.Address)
	}
}

func TestLoadDataDirFromEnv(t *testing.T) {
	t.Setenv(EnvConfig, "")
	t.Setenv(EnvDataDir, "/srv/histfs")

	cfg, err := Load("", false)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != "/srv/histfs" {
		t.Fatalf("expected data_dir from env, got %s", cfg.DataDir)
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	err := cfg.Decode(strings.NewReader("[retention]\nkepp = 3\n"))
	if !errors.Is(err, data.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Ledger.Type = "consul"
	cfg.Consul.Prefix = "team/histfs"

	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded := &Config{}
	if err := decoded.Decode(&buf); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Ledger.Type != "consul" || decoded.Consul.Prefix != "team/histfs" {
		t.Fatalf("unexpected decoded config %+v", decoded)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *Config)
	}{
		{"EmptyDataDir", func(cfg *Config) { cfg.DataDir = "" }},
		{"KeepZero", func(cfg *Config) { cfg.Retention.Keep = 0 }},
		{"UnknownArchive", func(cfg *Config) { cfg.Archive.Type = "tape" }},
		{"UnknownLedger", func(cfg *Config) { cfg.Ledger.Type = "etcd" }},
		{"ArchiveInsideData", func(cfg *Config) { cfg.Archive.Path = cfg.DataDir + "/.versions" }},
		{"LedgerIsData", func(cfg *Config) { cfg.Ledger.Path = cfg.DataDir }},
		{"MemoryLedgerWithoutMemoryArchive", func(cfg *Config) { cfg.Ledger.Type = "memory" }},
		{"S3WithoutBucket", func(cfg *Config) { cfg.Archive.Type = "s3"; cfg.S3.Endpoint = "localhost:9000" }},
		{"PostgresWithoutDSN", func(cfg *Config) { cfg.Ledger.Type = "postgres" }},
		{"InvalidLogLevel", func(cfg *Config) { cfg.Log.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateSiblingPaths(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/srv/data"
	cfg.Archive.Path = "/srv/data-versions"
	cfg.Ledger.Path = "/srv/meta"

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected sibling paths to be valid, got %v", err)
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()

	cfg := Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.Archive.Path = filepath.Join(dir, "versions")
	cfg.Ledger.Path = filepath.Join(dir, "meta")

	fsys, err := Build(t.Context(), cfg, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer fsys.Close(t.Context(), true)

	ctx := t.Context()
	if err := fsys.WriteFile(ctx, "a.txt", []byte("one"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := fsys.WriteFile(ctx, "a.txt", []byte("two"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "meta", "a.txt.meta")); err != nil {
		t.Fatalf("expected ledger file, got %v", err)
	}
}
