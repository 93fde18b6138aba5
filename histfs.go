package histfs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
	"github.com/mwantia/histfs/log"
)

// FileSystem is the versioning engine placed in front of a backing tree. Every
// operation that would destroy content first archives the prior state and
// records it in the file's ledger.
type FileSystem struct {
	mu      sync.RWMutex
	handles map[uint64]*Handle
	nextID  atomic.Uint64
	opened  bool

	storage backend.StorageBackend
	archive backend.ArchiveBackend
	ledger  backend.LedgerBackend
	locks   *lockTable

	log     *log.Logger
	options *Options

	// CreatedAt is when the filesystem was constructed.
	CreatedAt time.Time
}

// New wires the engine to its backends. When no ledger is given through
// WithLedger, the archive backend is used if it advertises CapabilityLedger.
func New(storage backend.StorageBackend, archive backend.ArchiveBackend, opts ...Option) (*FileSystem, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	if storage == nil || !backend.Supports(storage, backend.CapabilityStorage) {
		return nil, errors.BackendUnsupported(nil, backendName(storage))
	}
	if archive == nil || !backend.Supports(archive, backend.CapabilityArchive) {
		return nil, errors.BackendUnsupported(nil, backendName(archive))
	}

	ledger := options.Ledger
	if ledger == nil {
		l, ok := archive.(backend.LedgerBackend)
		if !ok || !backend.Supports(archive, backend.CapabilityLedger) {
			return nil, errors.BackendUnsupported(fmt.Errorf("no ledger backend configured"), archive.Name())
		}
		ledger = l
	} else if !backend.Supports(ledger, backend.CapabilityLedger) {
		return nil, errors.BackendUnsupported(nil, ledger.Name())
	}

	return &FileSystem{
		handles:   make(map[uint64]*Handle),
		storage:   storage,
		archive:   archive,
		ledger:    ledger,
		locks:     newLockTable(),
		log:       options.Logger,
		options:   options,
		CreatedAt: time.Now(),
	}, nil
}

// Start opens every distinct backend once.
func (fsys *FileSystem) Start(ctx context.Context) error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if fsys.opened {
		return nil
	}

	var opened []backend.Backend
	for _, b := range fsys.uniqueBackends() {
		fsys.log.Debug("Start: opening backend '%s'", b.Name())
		if err := b.Open(ctx); err != nil {
			errs := data.Errors{}
			errs.Add(errors.MountFailed(err, b.Name()))
			for _, o := range opened {
				errs.Add(o.Close(ctx))
			}
			return errs.Errors()
		}
		opened = append(opened, b)
	}

	fsys.opened = true
	fsys.log.Info("Start: storage=%s archive=%s ledger=%s", fsys.storage.Name(), fsys.archive.Name(), fsys.ledger.Name())
	return nil
}

// Close closes all backends. Unless force is set it refuses with ErrBusy while
// a handle is in the middle of an operation. Open handles are closed first, so
// their close-time snapshots still reach the ledger.
func (fsys *FileSystem) Close(ctx context.Context, force bool) error {
	fsys.mu.RLock()
	handles := make([]*Handle, 0, len(fsys.handles))
	for _, h := range fsys.handles {
		handles = append(handles, h)
	}
	opened := fsys.opened
	fsys.mu.RUnlock()

	if !opened {
		return nil
	}

	if !force {
		for _, h := range handles {
			if h.IsBusy() {
				return fmt.Errorf("%w: '%s' is in use", data.ErrBusy, h.Path())
			}
		}
	}

	errs := data.Errors{}
	for _, h := range handles {
		if err := h.Close(); err != nil && !errors.Is(err, data.ErrClosed) {
			errs.Add(err)
		}
	}

	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	for _, b := range fsys.uniqueBackends() {
		fsys.log.Debug("Close: closing backend '%s'", b.Name())
		errs.Add(b.Close(ctx))
	}
	fsys.opened = false

	return errs.Errors()
}

// Storage exposes the backing tree backend.
func (fsys *FileSystem) Storage() backend.StorageBackend {
	return fsys.storage
}

// OpenHandles returns the number of handles that have not been closed.
func (fsys *FileSystem) OpenHandles() int {
	fsys.mu.RLock()
	defer fsys.mu.RUnlock()

	return len(fsys.handles)
}

func (fsys *FileSystem) uniqueBackends() []backend.Backend {
	all := []backend.Backend{fsys.storage, fsys.archive, fsys.ledger}

	unique := make([]backend.Backend, 0, len(all))
	for _, b := range all {
		seen := false
		for _, u := range unique {
			if u == b {
				seen = true
				break
			}
		}
		if !seen {
			unique = append(unique, b)
		}
	}

	return unique
}

func (fsys *FileSystem) addHandle(h *Handle) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	fsys.handles[h.id] = h
}

func (fsys *FileSystem) removeHandle(h *Handle) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	delete(fsys.handles, h.id)
}

func backendName(b backend.Backend) string {
	if b == nil {
		return "<nil>"
	}
	return b.Name()
}
