package histfs

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mwantia/histfs/data"
)

// SessionState describes where a modification session stands.
type SessionState int

const (
	// SessionOpen is a write-capable handle that has not modified anything yet.
	SessionOpen SessionState = iota
	// SessionModified has modified content without a snapshot being taken.
	SessionModified
	// SessionSnapshotted has archived the pre-session content.
	SessionSnapshotted
	// SessionClosed is terminal.
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionOpen:
		return "open"
	case SessionModified:
		return "modified"
	case SessionSnapshotted:
		return "snapshotted"
	case SessionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session tracks one write-capable handle from open to close. Apart from key,
// all fields are guarded by the path lock of the session's current key.
type Session struct {
	ID string

	keyMu sync.RWMutex
	key   string

	preExistingSize int64
	snapshotTaken   bool
	wasWritten      bool
	closed          bool

	// done is set once the session left the lock table.
	done atomic.Bool
}

func newSession(key string, preExistingSize int64) *Session {
	return &Session{
		ID:              data.NewID(),
		key:             key,
		preExistingSize: preExistingSize,
	}
}

// Key returns the storage key the session currently belongs to. It changes
// when the file is renamed while the session is open.
func (s *Session) Key() string {
	s.keyMu.RLock()
	defer s.keyMu.RUnlock()

	return s.key
}

func (s *Session) setKey(key string) {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()

	s.key = key
}

func (s *Session) State() SessionState {
	switch {
	case s.closed:
		return SessionClosed
	case s.snapshotTaken:
		return SessionSnapshotted
	case s.wasWritten:
		return SessionModified
	default:
		return SessionOpen
	}
}

// needsSnapshot reports whether the next modification is the first one of
// this session and nothing has been archived for it yet.
func (s *Session) needsSnapshot() bool {
	return !s.closed && !s.wasWritten && !s.snapshotTaken
}

// needsCloseSnapshot is the close-time safety net.
func (s *Session) needsCloseSnapshot() bool {
	return s.wasWritten && !s.snapshotTaken && s.preExistingSize > 0
}

// pathLock serializes every decision and mutation for one key.
type pathLock struct {
	mu       sync.Mutex
	refs     int
	sessions map[*Session]struct{}
}

// lockTable hands out one pathLock per key. Entries are dropped once no
// operation holds them and no session is registered.
type lockTable struct {
	mu    sync.Mutex
	paths map[string]*pathLock
}

func newLockTable() *lockTable {
	return &lockTable{
		paths: make(map[string]*pathLock),
	}
}

func (t *lockTable) ref(key string) *pathLock {
	t.mu.Lock()
	defer t.mu.Unlock()

	pl, ok := t.paths[key]
	if !ok {
		pl = &pathLock{
			sessions: make(map[*Session]struct{}),
		}
		t.paths[key] = pl
	}
	pl.refs++

	return pl
}

func (t *lockTable) unref(key string, pl *pathLock) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pl.refs--
	if pl.refs <= 0 && len(pl.sessions) == 0 {
		delete(t.paths, key)
	}
}

// acquire locks key and returns the unlock function.
func (t *lockTable) acquire(key string) (*pathLock, func()) {
	pl := t.ref(key)
	pl.mu.Lock()

	return pl, func() {
		pl.mu.Unlock()
		t.unref(key, pl)
	}
}

// acquireAll locks every distinct key in sorted order.
func (t *lockTable) acquireAll(keys []string) (map[string]*pathLock, func()) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	locks := make(map[string]*pathLock, len(keys))
	releases := make([]func(), 0, len(keys))
	for _, key := range keys {
		pl, release := t.acquire(key)
		locks[key] = pl
		releases = append(releases, release)
	}

	return locks, func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
}

// acquireTree locks oldKey and newKey together with every key below oldKey
// that has a registered session and its counterpart below newKey. Sessions
// registered while waiting are picked up by retrying.
func (t *lockTable) acquireTree(oldKey, newKey string) (map[string]*pathLock, func()) {
	for {
		keys := []string{oldKey, newKey}
		for _, key := range t.sessionKeysBelow(oldKey) {
			keys = append(keys, key, newKey+strings.TrimPrefix(key, oldKey))
		}

		locks, release := t.acquireAll(keys)
		if t.covers(oldKey, locks) {
			return locks, release
		}
		release()
	}
}

// sessionKeysBelow returns the keys under dir that have registered sessions.
func (t *lockTable) sessionKeysBelow(dir string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var keys []string
	for key, pl := range t.paths {
		if len(pl.sessions) > 0 && strings.HasPrefix(key, dir+"/") {
			keys = append(keys, key)
		}
	}
	return keys
}

func (t *lockTable) covers(dir string, locks map[string]*pathLock) bool {
	for _, key := range t.sessionKeysBelow(dir) {
		if _, ok := locks[key]; !ok {
			return false
		}
	}
	return true
}

// register pins the pathLock for the lifetime of s. Caller holds pl.mu.
func (t *lockTable) register(pl *pathLock, s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pl.sessions[s] = struct{}{}
}

// unregister releases the pin of s. Caller holds pl.mu.
func (t *lockTable) unregister(pl *pathLock, s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(pl.sessions, s)
}

// move transfers every session of from to to and rewrites their key. Caller
// holds both locks.
func (t *lockTable) move(from, to *pathLock, newKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for s := range from.sessions {
		delete(from.sessions, s)
		s.setKey(newKey)
		to.sessions[s] = struct{}{}
	}
}

// size returns the number of tracked keys.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.paths)
}

// owns reports whether s is registered on pl. Caller holds pl.mu.
func (pl *pathLock) owns(s *Session) bool {
	_, ok := pl.sessions[s]
	return ok
}

// anySnapshotted reports whether an in-flight session on pl already archived.
func (pl *pathLock) anySnapshotted() bool {
	for s := range pl.sessions {
		if s.snapshotTaken {
			return true
		}
	}
	return false
}

func (pl *pathLock) markSnapshotted() {
	for s := range pl.sessions {
		s.snapshotTaken = true
	}
}
