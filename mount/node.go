package mount

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/mwantia/histfs"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
	"github.com/mwantia/histfs/log"
)

// renameat2 flags
const (
	renameNoReplace = 0x1
	renameExchange  = 0x2
)

// Node is a loopback node whose content-destroying operations go through the
// versioning engine. Lookup, Getattr, Readdir, Mkdir, Rmdir and links stay
// plain loopback.
type Node struct {
	fs.LoopbackNode

	fsys *histfs.FileSystem
	log  *log.Logger
}

var (
	_ fs.NodeOpener    = (*Node)(nil)
	_ fs.NodeCreater   = (*Node)(nil)
	_ fs.NodeUnlinker  = (*Node)(nil)
	_ fs.NodeRenamer   = (*Node)(nil)
	_ fs.NodeSetattrer = (*Node)(nil)
)

func newNodeFactory(fsys *histfs.FileSystem, logger *log.Logger) func(*fs.LoopbackRoot, *fs.Inode, string, *syscall.Stat_t) fs.InodeEmbedder {
	return func(root *fs.LoopbackRoot, parent *fs.Inode, name string, st *syscall.Stat_t) fs.InodeEmbedder {
		return &Node{
			LoopbackNode: fs.LoopbackNode{
				RootData: root,
			},
			fsys: fsys,
			log:  logger,
		}
	}
}

// key returns the engine key of the node, or of its child name.
func (n *Node) key(name string) string {
	return path.Join(n.Path(n.RootData.RootNode.EmbeddedInode()), name)
}

func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	key := n.key("")

	h, err := n.fsys.OpenFile(ctx, key, accessMode(flags), 0)
	if err != nil {
		n.log.Debug("Open: '%s' failed - %v", key, err)
		return nil, 0, toErrno(err)
	}

	return newFile(h, n.log), 0, fs.OK
}

func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	key := n.key(name)

	h, err := n.fsys.OpenFile(ctx, key, accessMode(flags)|data.AccessModeCreate, os.FileMode(mode).Perm())
	if err != nil {
		n.log.Debug("Create: '%s' failed - %v", key, err)
		return nil, nil, 0, toErrno(err)
	}

	p := filepath.Join(n.RootData.Path, key)
	if err := preserveOwner(ctx, p); err != nil {
		n.log.Warn("Create: unable to hand '%s' to the caller - %v", key, err)
	}

	st := syscall.Stat_t{}
	if err := syscall.Lstat(p, &st); err != nil {
		h.Close()
		return nil, nil, 0, fs.ToErrno(err)
	}

	node := n.RootData.NewNode(n.RootData, n.EmbeddedInode(), name, &st)
	child := n.NewInode(ctx, node, idFromStat(n.RootData, &st))

	out.FromStat(&st)
	return child, newFile(h, n.log), 0, fs.OK
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	return toErrno(n.fsys.Unlink(ctx, n.key(name)))
}

func (n *Node) Rename(ctx context.Context, name string, newParent fs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	oldKey := n.key(name)
	newKey := path.Join(newParent.EmbeddedInode().Path(n.RootData.RootNode.EmbeddedInode()), newName)

	switch {
	case flags&renameExchange != 0:
		// Both sides survive, only their contents swap places
		for _, key := range []string{oldKey, newKey} {
			if _, err := n.fsys.CreateVersion(ctx, key); err != nil && !errors.Is(err, data.ErrPersistence) {
				return toErrno(err)
			}
		}
		return n.LoopbackNode.Rename(ctx, name, newParent, newName, flags)

	case flags&renameNoReplace != 0:
		if _, err := n.fsys.Stat(ctx, newKey); err == nil {
			return syscall.EEXIST
		} else if !errors.Is(err, data.ErrNotExist) {
			return toErrno(err)
		}
	}

	return toErrno(n.fsys.Rename(ctx, oldKey, newKey))
}

// Setattr routes size changes through the engine and leaves mode, owner and
// times to the loopback implementation.
func (n *Node) Setattr(ctx context.Context, f fs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		var err error
		if file, ok := f.(*File); ok && file.handle.CanWrite() {
			err = file.handle.Truncate(int64(size))
		} else {
			err = n.fsys.Truncate(ctx, n.key(""), int64(size))
		}
		if err != nil {
			return toErrno(err)
		}

		rest := *in
		rest.Valid &^= fuse.FATTR_SIZE
		in = &rest
	}

	return n.LoopbackNode.Setattr(ctx, nil, in, out)
}

func accessMode(flags uint32) data.AccessMode {
	return data.AccessModeFromFlags(int(flags))
}

// preserveOwner hands files created by a root daemon to the calling user.
func preserveOwner(ctx context.Context, p string) error {
	if os.Getuid() != 0 {
		return nil
	}

	caller, ok := fuse.FromContext(ctx)
	if !ok {
		return nil
	}

	return syscall.Lchown(p, int(caller.Uid), int(caller.Gid))
}

// idFromStat derives inode numbers the same way loopback lookups do, so
// created nodes and looked-up nodes agree.
func idFromStat(root *fs.LoopbackRoot, st *syscall.Stat_t) fs.StableAttr {
	swapped := (uint64(st.Dev) << 32) | (uint64(st.Dev) >> 32)
	swappedRootDev := (root.Dev << 32) | (root.Dev >> 32)

	return fs.StableAttr{
		Mode: uint32(st.Mode),
		Gen:  1,
		Ino:  (swapped ^ swappedRootDev) ^ st.Ino,
	}
}
