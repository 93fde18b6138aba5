package local

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
)

const (
	ledgerExt = ".meta"
	keyExt    = ".key"
)

// LocalLedger stores one pipe-delimited text file per logical file:
//
//	<root>/<escaped key>.meta
//
// Keys too long for a file name use backend.KeyName's digest form, with the
// key itself kept next to the ledger in <name>.key. Every update rewrites the
// file through a temp file and a rename.
type LocalLedger struct {
	mu    sync.RWMutex
	root  string
	locks sync.Map
}

var _ backend.LedgerBackend = (*LocalLedger)(nil)

func NewLocalLedger(root string) (*LocalLedger, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	return &LocalLedger{
		root: abs,
	}, nil
}

func (*LocalLedger) Name() string {
	return "local-ledger"
}

func (ll *LocalLedger) Open(ctx context.Context) error {
	ll.mu.Lock()
	defer ll.mu.Unlock()

	return mapError(os.MkdirAll(ll.root, 0o755))
}

func (ll *LocalLedger) Close(ctx context.Context) error {
	return nil
}

func (ll *LocalLedger) GetCapabilities() *backend.BackendCapabilities {
	return &backend.BackendCapabilities{
		Capabilities: []backend.BackendCapability{
			backend.CapabilityLedger,
			backend.CapabilityAtomicReplace,
			backend.CapabilityPersistent,
		},
	}
}

func (ll *LocalLedger) LoadLedger(ctx context.Context, key string) ([]*data.Version, error) {
	ll.mu.RLock()
	defer ll.mu.RUnlock()

	lock := ll.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	return ll.load(key)
}

func (ll *LocalLedger) AppendLedger(ctx context.Context, key string, v *data.Version) error {
	ll.mu.RLock()
	defer ll.mu.RUnlock()

	lock := ll.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	versions, err := ll.load(key)
	if err != nil {
		return errors.Persistence(err, key)
	}
	if err := data.AssignVersion(versions, v); err != nil {
		return errors.Persistence(err, key)
	}

	if err := ll.write(key, append(versions, v)); err != nil {
		return errors.Persistence(err, key)
	}
	return nil
}

func (ll *LocalLedger) ReplaceLedger(ctx context.Context, key string, versions []*data.Version) error {
	ll.mu.RLock()
	defer ll.mu.RUnlock()

	lock := ll.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if err := ll.write(key, versions); err != nil {
		return errors.Persistence(err, key)
	}
	return nil
}

func (ll *LocalLedger) ListLedgers(ctx context.Context) ([]string, error) {
	ll.mu.RLock()
	defer ll.mu.RUnlock()

	entries, err := os.ReadDir(ll.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, mapError(err)
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasSuffix(name, ledgerExt) {
			continue
		}

		key, err := ll.keyOf(strings.TrimSuffix(name, ledgerExt))
		if err != nil || key == "" {
			continue
		}
		keys = append(keys, key)
	}

	slices.Sort(keys)
	return keys, nil
}

func (ll *LocalLedger) load(key string) ([]*data.Version, error) {
	content, err := os.ReadFile(ll.ledgerPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return []*data.Version{}, nil
		}
		return nil, mapError(err)
	}

	versions, _, err := data.DecodeLedger(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	if versions == nil {
		versions = []*data.Version{}
	}

	return versions, nil
}

func (ll *LocalLedger) write(key string, versions []*data.Version) error {
	if err := os.MkdirAll(ll.root, 0o755); err != nil {
		return mapError(err)
	}

	name := backend.KeyName(key)
	if backend.IsHashedName(name) {
		if _, err := writeAtomic(ll.root, ".ledger-*", filepath.Join(ll.root, name+keyExt), 0o644, strings.NewReader(key)); err != nil {
			return err
		}
	}

	_, err := writeAtomic(ll.root, ".ledger-*", filepath.Join(ll.root, name+ledgerExt), 0o644, bytes.NewReader(data.EncodeLedger(versions)))
	return err
}

func (ll *LocalLedger) ledgerPath(key string) string {
	return filepath.Join(ll.root, backend.KeyName(key)+ledgerExt)
}

// keyOf recovers the key of a ledger file name without extension.
func (ll *LocalLedger) keyOf(name string) (string, error) {
	if !backend.IsHashedName(name) {
		return backend.UnescapeKey(name)
	}

	content, err := os.ReadFile(filepath.Join(ll.root, name+keyExt))
	if err != nil {
		return "", mapError(err)
	}
	return string(content), nil
}

func (ll *LocalLedger) lockFor(key string) *sync.Mutex {
	lock, _ := ll.locks.LoadOrStore(key, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
