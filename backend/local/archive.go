package local

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/data"
)

// LocalArchive keeps version blobs as plain files:
//
//	<root>/<escaped key>/v<number>_<unix>
//
// The namespace directory is bounded by backend.KeyName.
// Locations are stored relative to root so the archive directory can be moved.
type LocalArchive struct {
	mu   sync.RWMutex
	root string
}

var _ backend.ArchiveBackend = (*LocalArchive)(nil)

func NewLocalArchive(root string) (*LocalArchive, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	return &LocalArchive{
		root: abs,
	}, nil
}

func (*LocalArchive) Name() string {
	return "local-archive"
}

func (la *LocalArchive) Open(ctx context.Context) error {
	la.mu.Lock()
	defer la.mu.Unlock()

	return mapError(os.MkdirAll(la.root, 0o755))
}

func (la *LocalArchive) Close(ctx context.Context) error {
	return nil
}

func (la *LocalArchive) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityArchive,
			backend.CapabilityPersistent,
		},
	}
}

func (la *LocalArchive) PutBlob(ctx context.Context, key string, number uint64, createdAt time.Time, r io.Reader) (string, int64, error) {
	la.mu.RLock()
	defer la.mu.RUnlock()

	namespace := backend.KeyName(key)
	dir := filepath.Join(la.root, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, mapError(err)
	}

	name := backend.BlobName(number, createdAt.Unix())
	size, err := writeAtomic(dir, ".blob-*", filepath.Join(dir, name), 0o644, r)
	if err != nil {
		return "", size, err
	}

	return path.Join(namespace, name), size, nil
}

func (la *LocalArchive) OpenBlob(ctx context.Context, location string) (io.ReadCloser, error) {
	la.mu.RLock()
	defer la.mu.RUnlock()

	fullPath, err := la.resolveLocation(location)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, mapError(err)
	}

	return file, nil
}

func (la *LocalArchive) DeleteBlob(ctx context.Context, location string) error {
	la.mu.RLock()
	defer la.mu.RUnlock()

	fullPath, err := la.resolveLocation(location)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		return mapError(err)
	}

	// Drop the namespace directory once its last blob is gone
	os.Remove(filepath.Dir(fullPath))
	return nil
}

func (la *LocalArchive) resolveLocation(location string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(location))
	if clean == "/" || strings.Count(clean, "/") != 2 {
		return "", data.ErrInvalidPath
	}

	return filepath.Join(la.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
