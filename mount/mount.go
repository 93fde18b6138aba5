package mount

import (
	"context"
	"fmt"
	"path/filepath"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/mwantia/histfs"
	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/data/errors"
	"github.com/mwantia/histfs/log"
)

// NewRoot returns the root node of a loopback tree over dataDir whose nodes
// route writes through fsys. dataDir must be the directory fsys stores its
// live files in.
func NewRoot(fsys *histfs.FileSystem, dataDir string, logger *log.Logger) (*Node, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	dataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, err
	}

	var st syscall.Stat_t
	if err := syscall.Stat(dataDir, &st); err != nil {
		return nil, errors.NotExist(err, dataDir)
	}
	if st.Mode&syscall.S_IFMT != syscall.S_IFDIR {
		return nil, fmt.Errorf("%w: '%s'", data.ErrNotDirectory, dataDir)
	}

	root := &fs.LoopbackRoot{
		Path:    dataDir,
		Dev:     uint64(st.Dev),
		NewNode: newNodeFactory(fsys, logger),
	}

	node := root.NewNode(root, nil, "", &st).(*Node)
	root.RootNode = node

	return node, nil
}

// Serve mounts fsys at mountpoint and blocks until ctx is done or the mount is
// removed externally. The caller still owns fsys and closes it afterwards.
func Serve(ctx context.Context, fsys *histfs.FileSystem, dataDir, mountpoint string, opts ...Option) error {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return err
		}
	}
	logger := options.Logger.Named("fuse")

	root, err := NewRoot(fsys, dataDir, logger)
	if err != nil {
		return err
	}

	server, err := fs.Mount(mountpoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			AllowOther: options.AllowOther,
			FsName:     options.FsName,
			Name:       "histfs",
			Debug:      options.Debug,
		},
		EntryTimeout: &options.EntryTimeout,
		AttrTimeout:  &options.AttrTimeout,
	})
	if err != nil {
		return errors.MountFailed(err, mountpoint)
	}
	logger.Info("Serve: mounted '%s' at '%s'", root.RootData.Path, mountpoint)

	done := make(chan struct{})
	go func() {
		server.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Serve: unmounting '%s'", mountpoint)
		if err := server.Unmount(); err != nil {
			return fmt.Errorf("%w: %w", data.ErrUnmountFailed, err)
		}
		<-done
	case <-done:
		logger.Info("Serve: '%s' was unmounted externally", mountpoint)
	}

	return nil
}
