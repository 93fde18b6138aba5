package config

import (
	"context"
	"fmt"

	"github.com/mwantia/histfs"
	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/backend/consul"
	"github.com/mwantia/histfs/backend/local"
	"github.com/mwantia/histfs/backend/memory"
	"github.com/mwantia/histfs/backend/postgres"
	"github.com/mwantia/histfs/backend/s3"
	"github.com/mwantia/histfs/backend/sqlite"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/log"
)

// Build constructs the backends described by cfg and returns an opened engine.
func Build(ctx context.Context, cfg *Config, logger *log.Logger) (*histfs.FileSystem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNop()
	}

	storage, err := local.NewLocalStorage(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	archive, err := cfg.buildArchive()
	if err != nil {
		return nil, err
	}

	opts := []histfs.Option{
		histfs.WithLogger(logger.Named("engine")),
	}
	if cfg.Retention.Auto {
		opts = append(opts, histfs.WithAutoPrune(cfg.Retention.Keep))
	}

	if !cfg.sharesArchive() {
		ledger, err := cfg.buildLedger()
		if err != nil {
			return nil, err
		}
		opts = append(opts, histfs.WithLedger(ledger))
	}

	fsys, err := histfs.New(storage, archive, opts...)
	if err != nil {
		return nil, err
	}
	if err := fsys.Start(ctx); err != nil {
		return nil, err
	}

	return fsys, nil
}

// sharesArchive reports whether the archive backend also serves as ledger.
func (cfg *Config) sharesArchive() bool {
	if cfg.Archive.Type != cfg.Ledger.Type {
		return false
	}

	switch cfg.Ledger.Type {
	case "memory":
		return true
	case "sqlite":
		return cfg.Archive.Path == cfg.Ledger.Path
	case "postgres":
		return cfg.Archive.DSN == cfg.Ledger.DSN
	default:
		return false
	}
}

func (cfg *Config) buildArchive() (backend.ArchiveBackend, error) {
	switch cfg.Archive.Type {
	case "local":
		return local.NewLocalArchive(cfg.Archive.Path)
	case "memory":
		return memory.NewMemoryBackend(), nil
	case "sqlite":
		return sqlite.NewSQLiteBackend(cfg.Archive.Path)
	case "postgres":
		return postgres.NewPostgresBackend(cfg.Archive.DSN)
	case "s3":
		return s3.NewS3Backend(&s3.S3BackendConfig{
			Endpoint:     cfg.S3.Endpoint,
			Bucket:       cfg.S3.Bucket,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			Region:       cfg.S3.Region,
			Prefix:       cfg.S3.Prefix,
			UseSSL:       cfg.S3.UseSSL,
			CreateBucket: cfg.S3.CreateBucket,
		})
	default:
		return nil, fmt.Errorf("%w: unknown archive type '%s'", data.ErrBackendUnsupported, cfg.Archive.Type)
	}
}

func (cfg *Config) buildLedger() (backend.LedgerBackend, error) {
	switch cfg.Ledger.Type {
	case "local":
		return local.NewLocalLedger(cfg.Ledger.Path)
	case "sqlite":
		return sqlite.NewSQLiteBackend(cfg.Ledger.Path)
	case "postgres":
		return postgres.NewPostgresBackend(cfg.Ledger.DSN)
	case "consul":
		return consul.NewConsulBackend(&consul.ConsulBackendConfig{
			Address:    cfg.Consul.Address,
			Token:      cfg.Consul.Token,
			Datacenter: cfg.Consul.Datacenter,
			Namespace:  cfg.Consul.Namespace,
			Prefix:     cfg.Consul.Prefix,
		})
	default:
		return nil, fmt.Errorf("%w: unknown ledger type '%s'", data.ErrBackendUnsupported, cfg.Ledger.Type)
	}
}
