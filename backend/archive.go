package backend

import (
	"context"
	"io"
	"time"
)

// ArchiveBackend stores immutable version blobs.
type ArchiveBackend interface {
	Backend

	// PutBlob copies r into a new blob for version number of key. The returned size
	// is the number of bytes actually stored. A blob is only visible under its
	// location once it is complete.
	PutBlob(ctx context.Context, key string, number uint64, createdAt time.Time, r io.Reader) (string, int64, error)
	// OpenBlob returns data.ErrNotExist for unknown locations.
	OpenBlob(ctx context.Context, location string) (io.ReadCloser, error)
	DeleteBlob(ctx context.Context, location string) error
}
