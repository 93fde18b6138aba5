package mount

import (
	"context"
	"io"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/mwantia/histfs"
	"github.com/mwantia/histfs/log"
)

// File adapts a histfs.Handle to a FUSE file handle. The kernel releases it
// once the last descriptor is closed, which ends the modification session.
type File struct {
	handle *histfs.Handle
	log    *log.Logger
}

var (
	_ fs.FileReader   = (*File)(nil)
	_ fs.FileWriter   = (*File)(nil)
	_ fs.FileFlusher  = (*File)(nil)
	_ fs.FileFsyncer  = (*File)(nil)
	_ fs.FileReleaser = (*File)(nil)
)

func newFile(h *histfs.Handle, logger *log.Logger) *File {
	return &File{
		handle: h,
		log:    logger,
	}
}

func (f *File) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := f.handle.ReadAt(dest, off)
	if err != nil && err != io.EOF {
		return nil, toErrno(err)
	}

	return fuse.ReadResultData(dest[:n]), fs.OK
}

func (f *File) Write(ctx context.Context, buf []byte, off int64) (uint32, syscall.Errno) {
	n, err := f.handle.WriteAt(buf, off)
	if err != nil {
		f.log.Warn("Write: '%s' at offset %d failed - %v", f.handle.Path(), off, err)
		return uint32(n), toErrno(err)
	}

	return uint32(n), fs.OK
}

// Flush runs on every close(2) of a duplicated descriptor; the session
// outlives it until Release.
func (f *File) Flush(ctx context.Context) syscall.Errno {
	return fs.OK
}

func (f *File) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	return toErrno(f.handle.Sync())
}

func (f *File) Release(ctx context.Context) syscall.Errno {
	return toErrno(f.handle.Close())
}
