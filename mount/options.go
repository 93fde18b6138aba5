package mount

import (
	"time"

	"github.com/mwantia/histfs/data"
	"github.com/mwantia/histfs/log"
)

type Options struct {
	Logger *log.Logger

	AllowOther   bool          // Let other users access the mount.
	Debug        bool          // Log every FUSE request.
	FsName       string        // Name shown in the mount table.
	EntryTimeout time.Duration // Kernel cache lifetime of name lookups.
	AttrTimeout  time.Duration // Kernel cache lifetime of attributes.
}

type Option func(*Options) error

func newDefaultOptions() *Options {
	return &Options{
		Logger:       log.NewNop(),
		FsName:       "histfs",
		EntryTimeout: time.Second,
		AttrTimeout:  time.Second,
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(o *Options) error {
		if logger == nil {
			return data.ErrInvalid
		}
		o.Logger = logger
		return nil
	}
}

func WithAllowOther(allow bool) Option {
	return func(o *Options) error {
		o.AllowOther = allow
		return nil
	}
}

func WithDebug(debug bool) Option {
	return func(o *Options) error {
		o.Debug = debug
		return nil
	}
}

// WithTimeouts sets the kernel cache lifetimes. Zero disables caching, which
// keeps sizes exact while other processes write to the backing tree.
func WithTimeouts(entry, attr time.Duration) Option {
	return func(o *Options) error {
		if entry < 0 || attr < 0 {
			return data.ErrInvalid
		}
		o.EntryTimeout = entry
		o.AttrTimeout = attr
		return nil
	}
}
