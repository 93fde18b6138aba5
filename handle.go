package histfs

import (
	"context"
	"io"
	"sync"

	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/log"
)

// Handle is an open file. Write-capable handles own a Session that decides
// when the pre-session content has to be archived.
type Handle struct {
	mu  sync.Mutex
	ctx context.Context
	log *log.Logger

	fsys    *FileSystem
	id      uint64
	obj     backend.Object
	session *Session
	key     string
	flags   data.AccessMode
	offset  int64
	closed  bool
}

func newHandle(ctx context.Context, fsys *FileSystem, key string, obj backend.Object, session *Session, flags data.AccessMode) *Handle {
	return &Handle{
		// Handles outlive the request that opened them
		ctx:     context.WithoutCancel(ctx),
		log:     fsys.log,
		fsys:    fsys,
		id:      fsys.nextID.Add(1),
		obj:     obj,
		session: session,
		key:     key,
		flags:   flags,
	}
}

// IsBusy reports whether an operation is currently running on the handle.
func (h *Handle) IsBusy() bool {
	if !h.mu.TryLock() {
		return true
	}
	h.mu.Unlock()

	return false
}

func (h *Handle) CanRead() bool {
	return h.flags.CanRead()
}

func (h *Handle) CanWrite() bool {
	return h.session != nil
}

// Path returns the key of the file, following renames of write-capable handles.
func (h *Handle) Path() string {
	if h.session != nil {
		return h.session.Key()
	}
	return h.key
}

// Session returns the modification session, nil for read-only handles.
func (h *Handle) Session() *Session {
	return h.session
}

// State returns the session state under the path lock.
func (h *Handle) State() SessionState {
	if h.session == nil {
		return SessionOpen
	}

	_, release := h.fsys.lockSession(h.session)
	defer release()

	return h.session.State()
}

func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0, data.ErrClosed
	}
	if !h.CanRead() {
		return 0, data.ErrPermission
	}

	return h.obj.ReadAt(p, off)
}

// Read reads from the current offset and advances it.
func (h *Handle) Read(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0, data.ErrClosed
	}
	if !h.CanRead() {
		return 0, data.ErrPermission
	}

	n, err := h.obj.ReadAt(p, h.offset)
	h.offset += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}

	return n, err
}

// WriteAt writes at off. The first modification of a session archives the
// prior content before anything is written.
func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.writeAt(p, off)
}

// Write writes at the current offset, or at the end for append handles.
func (h *Handle) Write(p []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	off := h.offset
	if h.flags.HasAppend() && !h.closed {
		info, err := h.obj.Stat()
		if err != nil {
			return 0, err
		}
		off = info.Size()
	}

	n, err := h.writeAt(p, off)
	h.offset = off + int64(n)

	return n, err
}

func (h *Handle) writeAt(p []byte, off int64) (int, error) {
	if h.closed {
		h.log.Error("Write: attempted to write to closed handle for '%s'", h.Path())
		return 0, data.ErrClosed
	}
	if h.session == nil {
		return 0, data.ErrPermission
	}
	if off < 0 {
		return 0, data.ErrInvalid
	}
	if len(p) == 0 {
		return 0, nil
	}

	_, release := h.fsys.lockSession(h.session)
	defer release()

	if err := h.fsys.beforeModify(h.ctx, h.session, "Write"); err != nil {
		return 0, err
	}

	h.log.Debug("Write: writing %d bytes to '%s' at offset %d", len(p), h.session.Key(), off)
	n, err := h.obj.WriteAt(p, off)
	if n > 0 || err == nil {
		h.session.wasWritten = true
	}

	return n, err
}

// Truncate changes the size of the open file. Shrinking counts as a
// modification of the session.
func (h *Handle) Truncate(size int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return data.ErrClosed
	}
	if h.session == nil {
		return data.ErrPermission
	}
	if size < 0 {
		return data.ErrInvalid
	}

	_, release := h.fsys.lockSession(h.session)
	defer release()

	info, err := h.obj.Stat()
	if err != nil {
		return err
	}
	if size >= info.Size() {
		return h.obj.Truncate(size)
	}

	if err := h.fsys.beforeModify(h.ctx, h.session, "Truncate"); err != nil {
		return err
	}

	h.log.Debug("Truncate: shrinking '%s' from %d to %d bytes", h.session.Key(), info.Size(), size)
	if err := h.obj.Truncate(size); err != nil {
		return err
	}
	h.session.wasWritten = true

	return nil
}

// Seek sets the offset for the next Read or Write.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return 0, data.ErrClosed
	}

	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = h.offset + offset
	case io.SeekEnd:
		info, err := h.obj.Stat()
		if err != nil {
			return 0, err
		}
		next = info.Size() + offset
	default:
		return 0, data.ErrInvalid
	}
	if next < 0 {
		return 0, data.ErrInvalid
	}

	h.offset = next
	return next, nil
}

func (h *Handle) Stat() (*data.FileStat, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, data.ErrClosed
	}

	info, err := h.obj.Stat()
	if err != nil {
		return nil, err
	}

	return data.NewFileStat(h.Path(), info), nil
}

func (h *Handle) Sync() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return data.ErrClosed
	}

	return h.obj.Sync()
}

// Close ends the session. A session that modified pre-existing content
// without archiving it gets a best-effort snapshot of its final state.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return data.ErrClosed
	}
	h.closed = true

	if s := h.session; s != nil {
		pl, release := h.fsys.lockSession(s)
		if s.needsCloseSnapshot() {
			if taken, err := h.fsys.snapshotBefore(h.ctx, s.Key(), "Close"); err != nil {
				h.log.Warn("Close: safety snapshot of '%s' failed - %v", s.Key(), err)
			} else if taken {
				s.snapshotTaken = true
			}
		}
		h.log.Debug("Close: session %s on '%s' ends as %s", s.ID, s.Key(), s.State())
		s.closed = true
		s.done.Store(true)
		h.fsys.locks.unregister(pl, s)
		release()
	}

	h.fsys.removeHandle(h)
	return h.obj.Close()
}

// lockSession acquires the path lock of the key s currently belongs to. A
// concurrent rename can move s between lookup and lock, so it retries.
func (fsys *FileSystem) lockSession(s *Session) (*pathLock, func()) {
	for {
		pl, release := fsys.locks.acquire(s.Key())
		if pl.owns(s) || s.done.Load() {
			return pl, release
		}
		release()
	}
}

// beforeModify runs the first-modification snapshot of s. Caller holds the
// path lock of s.
func (fsys *FileSystem) beforeModify(ctx context.Context, s *Session, reason string) error {
	if !s.needsSnapshot() {
		return nil
	}

	taken, err := fsys.snapshotBefore(ctx, s.Key(), reason)
	if err != nil {
		return err
	}
	if taken {
		s.snapshotTaken = true
	}

	return nil
}
