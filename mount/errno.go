package mount

import (
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
)

// toErrno maps engine errors onto the codes the kernel understands. Failed
// snapshots surface as EIO so the triggering syscall fails visibly.
func toErrno(err error) syscall.Errno {
	switch {
	case err == nil:
		return fs.OK
	case errors.Is(err, data.ErrArchive), errors.Is(err, data.ErrPersistence):
		return syscall.EIO
	case errors.Is(err, data.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, data.ErrExist):
		return syscall.EEXIST
	case errors.Is(err, data.ErrIsDirectory):
		return syscall.EISDIR
	case errors.Is(err, data.ErrNotDirectory):
		return syscall.ENOTDIR
	case errors.Is(err, data.ErrDirectoryNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, data.ErrPermission):
		return syscall.EACCES
	case errors.Is(err, data.ErrReadOnly):
		return syscall.EROFS
	case errors.Is(err, data.ErrClosed):
		return syscall.EBADF
	case errors.Is(err, data.ErrBusy):
		return syscall.EBUSY
	case errors.Is(err, data.ErrInvalid), errors.Is(err, data.ErrInvalidPath):
		return syscall.EINVAL
	default:
		return fs.ToErrno(err)
	}
}
