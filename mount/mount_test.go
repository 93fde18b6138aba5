package mount

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/mwantia/histfs"
	"github.com/mwantia/histfs/backend/local"
	"github.com/mwantia/histfs/backend/memory"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
)

func TestToErrno(t *testing.T) {
	tests := []struct {
		err  error
		want syscall.Errno
	}{
		{nil, 0},
		{data.ErrNotExist, syscall.ENOENT},
		{errors.NotExist(nil, "a.txt"), syscall.ENOENT},
		{data.ErrExist, syscall.EEXIST},
		{data.ErrIsDirectory, syscall.EISDIR},
		{data.ErrNotDirectory, syscall.ENOTDIR},
		{data.ErrDirectoryNotEmpty, syscall.ENOTEMPTY},
		{data.ErrPermission, syscall.EACCES},
		{data.ErrReadOnly, syscall.EROFS},
		{data.ErrClosed, syscall.EBADF},
		{data.ErrBusy, syscall.EBUSY},
		{data.ErrInvalid, syscall.EINVAL},
		{errors.InvalidPath(nil, "/"), syscall.EINVAL},
		{errors.Archive(data.ErrNotExist, "a.txt"), syscall.EIO},
		{errors.Persistence(fmt.Errorf("disk full"), "a.txt"), syscall.EIO},
		{syscall.ENOSPC, syscall.ENOSPC},
	}

	for _, tt := range tests {
		if got := toErrno(tt.err); got != tt.want {
			t.Errorf("toErrno(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestAccessMode(t *testing.T) {
	tests := []struct {
		flags uint32
		want  data.AccessMode
	}{
		{uint32(os.O_RDONLY), data.AccessModeRead},
		{uint32(os.O_WRONLY), data.AccessModeWrite},
		{uint32(os.O_RDWR), data.AccessModeRead | data.AccessModeWrite},
		{uint32(os.O_WRONLY | os.O_APPEND), data.AccessModeWrite | data.AccessModeAppend},
		{uint32(os.O_RDWR | os.O_TRUNC), data.AccessModeRead | data.AccessModeWrite | data.AccessModeTrunc},
	}

	for _, tt := range tests {
		if got := accessMode(tt.flags); got != tt.want {
			t.Errorf("accessMode(%#x) = %v, want %v", tt.flags, got, tt.want)
		}
	}
}

func TestNewRoot(t *testing.T) {
	dataDir := t.TempDir()
	storage, err := local.NewLocalStorage(dataDir)
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}
	fsys, err := histfs.New(storage, memory.NewMemoryBackend())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	root, err := NewRoot(fsys, dataDir, nil)
	if err != nil {
		t.Fatalf("NewRoot failed: %v", err)
	}
	if root.RootData.RootNode != root {
		t.Fatal("expected root node to be registered with its loopback root")
	}

	if _, err := NewRoot(fsys, filepath.Join(dataDir, "missing"), nil); !errors.Is(err, data.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}

	file := filepath.Join(dataDir, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewRoot(fsys, file, nil); !errors.Is(err, data.ErrNotDirectory) {
		t.Fatalf("expected ErrNotDirectory, got %v", err)
	}
}
