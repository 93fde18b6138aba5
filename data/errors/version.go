package errors

import "github.com/mwantia/histfs/data"

// Archive reports that the prior content of key could not be copied. The
// mutation it was gating must not proceed.
func Archive(err error, key string) error {
	return newError(data.ErrArchive, err, "unable to archive '%s'", key)
}

// Persistence reports that a ledger update for key failed.
func Persistence(err error, key string) error {
	return newError(data.ErrPersistence, err, "unable to update ledger of '%s'", key)
}

func VersionConflict(key string, want, got uint64) error {
	return newError(data.ErrVersionConflict, nil, "ledger of '%s' expects version %d, got %d", key, want, got)
}
