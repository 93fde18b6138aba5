package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/mwantia/histfs/backend"
	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps ledgers and version blobs in a single SQLite database:
//
//	histfs_versions  one row per ledger entry, keyed by (key, number)
//	histfs_blobs     archived content, addressed by a time-ordered id
//
// Ledger updates run inside transactions, so a replace is never partially visible.
type SQLiteBackend struct {
	mu   sync.RWMutex
	dsn  string
	db   *sql.DB
	open bool
}

var (
	_ backend.ArchiveBackend = (*SQLiteBackend)(nil)
	_ backend.LedgerBackend  = (*SQLiteBackend)(nil)
)

// NewSQLiteBackend prepares a backend for the database file at dsn.
// The database is created and migrated in Open.
func NewSQLiteBackend(dsn string) (*SQLiteBackend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}

	return &SQLiteBackend{
		dsn: dsn,
	}, nil
}

func (*SQLiteBackend) Name() string {
	return "sqlite"
}

func (sb *SQLiteBackend) Open(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if sb.open {
		return nil
	}

	db, err := sql.Open("sqlite", sb.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases intact
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	sb.db = db
	if err := sb.initSchema(ctx); err != nil {
		db.Close()
		sb.db = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	sb.open = true
	return nil
}

func (sb *SQLiteBackend) Close(ctx context.Context) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if !sb.open {
		return nil
	}

	sb.open = false
	return sb.db.Close()
}

func (sb *SQLiteBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityArchive,
			backend.CapabilityLedger,
			backend.CapabilityAtomicReplace,
			backend.CapabilityPersistent,
		},
		// SQLite's default SQLITE_MAX_LENGTH
		MaxObjectSize: 1_000_000_000,
	}
}

func (sb *SQLiteBackend) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS histfs_versions (
			key TEXT NOT NULL,
			number INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			size INTEGER NOT NULL,
			location TEXT NOT NULL,
			PRIMARY KEY (key, number)
		)`,
		`CREATE TABLE IF NOT EXISTS histfs_blobs (
			id TEXT PRIMARY KEY,
			key TEXT NOT NULL,
			number INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			size INTEGER NOT NULL,
			content BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_histfs_blobs_key ON histfs_blobs(key)`,
	}

	for _, stmt := range statements {
		if _, err := sb.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	return nil
}

func (sb *SQLiteBackend) conn() (*sql.DB, error) {
	if !sb.open {
		return nil, fmt.Errorf("sqlite: backend '%s' is not open", sb.dsn)
	}
	return sb.db, nil
}
