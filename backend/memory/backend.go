package memory

import (
	"bytes"
	"context"
	"io"
	"path"
	"sync"
	"time"

	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
	"github.com/tidwall/btree"
)

// MemoryBackend keeps blobs and ledgers in ordered in-memory maps. It serves as
// both archive and ledger and loses everything on Close.
type MemoryBackend struct {
	mu      sync.RWMutex
	blobs   *btree.Map[string, []byte]
	ledgers *btree.Map[string, []*data.Version]
}

var (
	_ backend.ArchiveBackend = (*MemoryBackend)(nil)
	_ backend.LedgerBackend  = (*MemoryBackend)(nil)
)

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		blobs:   btree.NewMap[string, []byte](0),
		ledgers: btree.NewMap[string, []*data.Version](0),
	}
}

func (*MemoryBackend) Name() string {
	return "memory"
}

func (mb *MemoryBackend) Open(ctx context.Context) error {
	return nil
}

func (mb *MemoryBackend) Close(ctx context.Context) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.blobs.Clear()
	mb.ledgers.Clear()
	return nil
}

func (mb *MemoryBackend) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityArchive,
			backend.CapabilityLedger,
			backend.CapabilityAtomicReplace,
		},
	}
}

func (mb *MemoryBackend) PutBlob(ctx context.Context, key string, number uint64, createdAt time.Time, r io.Reader) (string, int64, error) {
	var buf bytes.Buffer
	size, err := io.Copy(&buf, r)
	if err != nil {
		return "", size, err
	}

	location := path.Join(backend.EscapeKey(key), backend.BlobName(number, createdAt.Unix()))

	mb.mu.Lock()
	defer mb.mu.Unlock()

	mb.blobs.Set(location, buf.Bytes())
	return location, size, nil
}

func (mb *MemoryBackend) OpenBlob(ctx context.Context, location string) (io.ReadCloser, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	blob, ok := mb.blobs.Get(location)
	if !ok {
		return nil, data.ErrNotExist
	}

	return io.NopCloser(bytes.NewReader(blob)), nil
}

func (mb *MemoryBackend) DeleteBlob(ctx context.Context, location string) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if _, ok := mb.blobs.Delete(location); !ok {
		return data.ErrNotExist
	}
	return nil
}

func (mb *MemoryBackend) LoadLedger(ctx context.Context, key string) ([]*data.Version, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	versions, _ := mb.ledgers.Get(key)
	return cloneVersions(versions), nil
}

func (mb *MemoryBackend) AppendLedger(ctx context.Context, key string, v *data.Version) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	versions, _ := mb.ledgers.Get(key)
	if err := data.AssignVersion(versions, v); err != nil {
		return errors.Persistence(err, key)
	}

	copied := *v
	mb.ledgers.Set(key, append(cloneVersions(versions), &copied))
	return nil
}

func (mb *MemoryBackend) ReplaceLedger(ctx context.Context, key string, versions []*data.Version) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	cloned := cloneVersions(versions)
	data.SortVersions(cloned)
	mb.ledgers.Set(key, cloned)
	return nil
}

func (mb *MemoryBackend) ListLedgers(ctx context.Context) ([]string, error) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	keys := make([]string, 0, mb.ledgers.Len())
	mb.ledgers.Scan(func(key string, _ []*data.Version) bool {
		keys = append(keys, key)
		return true
	})

	return keys, nil
}

func cloneVersions(versions []*data.Version) []*data.Version {
	cloned := make([]*data.Version, 0, len(versions))
	for _, v := range versions {
		copied := *v
		cloned = append(cloned, &copied)
	}
	return cloned
}
