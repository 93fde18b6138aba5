package data

import (
	"io/fs"
	"time"
)

// FileStat is the storage backend's view of a single object in the backing tree.
type FileStat struct {
	// Relative key within the backend
	Key string `json:"key"`

	// Unix-style mode and permissions
	Mode fs.FileMode `json:"mode"`

	// Size in bytes (0 for directories)
	Size int64 `json:"size"`

	ModifyTime time.Time `json:"modify_time"`

	// Content MIME type
	ContentType string `json:"content_type"`
}

func (s *FileStat) IsDir() bool {
	return s.Mode.IsDir()
}

func (s *FileStat) IsRegular() bool {
	return s.Mode.IsRegular()
}

// NewFileStat builds a FileStat for key from info.
func NewFileStat(key string, info fs.FileInfo) *FileStat {
	stat := &FileStat{
		Key:        key,
		Mode:       info.Mode(),
		Size:       info.Size(),
		ModifyTime: info.ModTime(),
	}
	if info.IsDir() {
		stat.Size = 0
	} else {
		stat.ContentType = GetContentType(info.Name())
	}

	return stat
}
