package histfs

import (
	"time"

	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/log"
)

type Options struct {
	Logger *log.Logger
	// Ledger overrides auto-detection of a ledger-capable archive backend.
	Ledger backend.LedgerBackend
	// AutoPruneKeep prunes a file's history down to this many entries after
	// each snapshot. Zero disables automatic pruning.
	AutoPruneKeep int
	// PruneConcurrency bounds PruneAll.
	PruneConcurrency int
	// Clock provides snapshot timestamps.
	Clock func() time.Time
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		Logger:           log.NewNop(),
		PruneConcurrency: 4,
		Clock:            time.Now,
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(o *Options) error {
		if logger == nil {
			return data.ErrInvalid
		}
		o.Logger = logger
		return nil
	}
}

// WithLedger uses ledger instead of the archive backend for version ledgers.
func WithLedger(ledger backend.LedgerBackend) Option {
	return func(o *Options) error {
		if ledger == nil {
			return data.ErrInvalid
		}
		o.Ledger = ledger
		return nil
	}
}

// WithAutoPrune keeps at most keep versions per file after every snapshot.
func WithAutoPrune(keep int) Option {
	return func(o *Options) error {
		if keep < 1 {
			return data.ErrInvalid
		}
		o.AutoPruneKeep = keep
		return nil
	}
}

func WithPruneConcurrency(n int) Option {
	return func(o *Options) error {
		if n < 1 {
			return data.ErrInvalid
		}
		o.PruneConcurrency = n
		return nil
	}
}

func WithClock(clock func() time.Time) Option {
	return func(o *Options) error {
		if clock == nil {
			return data.ErrInvalid
		}
		o.Clock = clock
		return nil
	}
}
