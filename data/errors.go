package data

import (
	"errors"
	"sync"
)

// Standard errors returned by the filesystem, its backends and the version engine.
var (
	// Path resolution errors
	ErrInvalidPath = errors.New("histfs: invalid path detected")

	// Backend errors
	ErrBackendUnsupported  = errors.New("histfs: backend capability unsupported")
	ErrBackendIncompatible = errors.New("histfs: backend incompatible")

	// Lifecycle errors
	ErrMountFailed   = errors.New("histfs: mount initialization failed")
	ErrUnmountFailed = errors.New("histfs: unmount cleanup failed")

	// File operation errors
	ErrNotExist          = errors.New("histfs: file does not exist")
	ErrExist             = errors.New("histfs: file already exists")
	ErrIsDirectory       = errors.New("histfs: is a directory")
	ErrNotDirectory      = errors.New("histfs: not a directory")
	ErrPermission        = errors.New("histfs: permission denied")
	ErrReadOnly          = errors.New("histfs: read-only filesystem")
	ErrDirectoryNotEmpty = errors.New("histfs: directory not empty")

	// I/O errors
	ErrClosed  = errors.New("histfs: file already closed")
	ErrBusy    = errors.New("histfs: file is busy")
	ErrInvalid = errors.New("histfs: invalid argument")

	// Versioning errors
	ErrArchive         = errors.New("histfs: archiving prior content failed")
	ErrPersistence     = errors.New("histfs: version ledger update failed")
	ErrVersionConflict = errors.New("histfs: version number conflict")
)

type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = nil
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
