package data

import (
	"os"
	"strings"
)

// AccessMode describes how a file is opened. Flags combine with bitwise OR.
type AccessMode int

const (
	AccessModeRead   AccessMode = 1 << iota // O_RDONLY
	AccessModeWrite                         // O_WRONLY
	AccessModeAppend                        // O_APPEND
	AccessModeCreate                        // O_CREATE
	AccessModeTrunc                         // O_TRUNC
	AccessModeExcl                          // O_EXCL
	AccessModeSync                          // O_SYNC
)

// AccessModeFromFlags converts os.OpenFile style flags.
func AccessModeFromFlags(flags int) AccessMode {
	var m AccessMode

	switch flags & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR) {
	case os.O_WRONLY:
		m |= AccessModeWrite
	case os.O_RDWR:
		m |= AccessModeRead | AccessModeWrite
	default:
		m |= AccessModeRead
	}

	if flags&os.O_APPEND != 0 {
		m |= AccessModeAppend
	}
	if flags&os.O_CREATE != 0 {
		m |= AccessModeCreate
	}
	if flags&os.O_TRUNC != 0 {
		m |= AccessModeTrunc
	}
	if flags&os.O_EXCL != 0 {
		m |= AccessModeExcl
	}
	if flags&os.O_SYNC != 0 {
		m |= AccessModeSync
	}

	return m
}

// OSFlags converts the mode back into os.OpenFile flags.
func (m AccessMode) OSFlags() int {
	var flags int

	switch {
	case m.IsReadWrite():
		flags = os.O_RDWR
	case m.CanWrite():
		flags = os.O_WRONLY
	default:
		flags = os.O_RDONLY
	}

	if m.HasAppend() {
		flags |= os.O_APPEND
	}
	if m.HasCreate() {
		flags |= os.O_CREATE
	}
	if m.HasTrunc() {
		flags |= os.O_TRUNC
	}
	if m.HasExcl() {
		flags |= os.O_EXCL
	}
	if m.HasSync() {
		flags |= os.O_SYNC
	}

	return flags
}

func (m AccessMode) CanRead() bool {
	return m&AccessModeRead != 0
}

// CanWrite reports write intent. Append, create and truncate imply it.
func (m AccessMode) CanWrite() bool {
	return m&(AccessModeWrite|AccessModeAppend|AccessModeTrunc) != 0
}

func (m AccessMode) IsReadOnly() bool {
	return m.CanRead() && !m.CanWrite()
}

func (m AccessMode) IsReadWrite() bool {
	return m.CanRead() && m.CanWrite()
}

func (m AccessMode) HasAppend() bool {
	return m&AccessModeAppend != 0
}

func (m AccessMode) HasCreate() bool {
	return m&AccessModeCreate != 0
}

func (m AccessMode) HasTrunc() bool {
	return m&AccessModeTrunc != 0
}

func (m AccessMode) HasExcl() bool {
	return m&AccessModeExcl != 0
}

func (m AccessMode) HasSync() bool {
	return m&AccessModeSync != 0
}

func (m AccessMode) String() string {
	names := []struct {
		flag AccessMode
		name string
	}{
		{AccessModeRead, "read"},
		{AccessModeWrite, "write"},
		{AccessModeAppend, "append"},
		{AccessModeCreate, "create"},
		{AccessModeTrunc, "trunc"},
		{AccessModeExcl, "excl"},
		{AccessModeSync, "sync"},
	}

	var parts []string
	for _, n := range names {
		if m&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}

	return strings.Join(parts, "|")
}
