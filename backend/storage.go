package backend

import (
	"context"
	"io"
	"io/fs"

	"github.com/mwantia/histfs/data"
)

// Object is an open handle on a live object. *os.File satisfies it.
type Object interface {
	io.Reader
	io.ReaderAt
	io.WriterAt
	io.Closer

	Truncate(size int64) error
	Sync() error
	Stat() (fs.FileInfo, error)
}

// StorageBackend serves the live backing tree that the filesystem exposes.
type StorageBackend interface {
	Backend

	// HeadObject returns data.ErrNotExist when key is absent.
	HeadObject(ctx context.Context, key string) (*data.FileStat, error)
	// OpenObject opens key with the given access mode, creating it with perm if requested.
	OpenObject(ctx context.Context, key string, flags data.AccessMode, perm fs.FileMode) (Object, error)
	// CreateObject creates an empty file, or a directory when mode.IsDir().
	CreateObject(ctx context.Context, key string, mode fs.FileMode) (*data.FileStat, error)
	TruncateObject(ctx context.Context, key string, size int64) error
	RenameObject(ctx context.Context, oldKey, newKey string) error
	// DeleteObject removes key; force removes non-empty directories as well.
	DeleteObject(ctx context.Context, key string, force bool) error
	// ListObjects lists the direct children of a directory key ("" for the root).
	ListObjects(ctx context.Context, key string) ([]*data.FileStat, error)
	// WalkObjects visits every regular file below the root in lexical order.
	WalkObjects(ctx context.Context, fn func(*data.FileStat) error) error
	// ReplaceObject atomically swaps the content of key with r, creating it if absent.
	ReplaceObject(ctx context.Context, key string, r io.Reader) (int64, error)
}
