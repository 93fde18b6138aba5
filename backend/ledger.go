package backend

import (
	"context"

	"github.com/mwantia/histfs/data"
)

// LedgerBackend persists the ordered version ledger of every logical file.
type LedgerBackend interface {
	Backend

	// LoadLedger returns the entries of key ascending by number, or an empty
	// slice when no ledger exists yet.
	LoadLedger(ctx context.Context, key string) ([]*data.Version, error)
	// AppendLedger records v. A zero v.Number is assigned as max+1, any other
	// value must equal max+1.
	AppendLedger(ctx context.Context, key string, v *data.Version) error
	// ReplaceLedger swaps the full ledger of key atomically.
	ReplaceLedger(ctx context.Context, key string, versions []*data.Version) error
	// ListLedgers returns every key that has a ledger record, sorted.
	ListLedgers(ctx context.Context) ([]string, error)
}
