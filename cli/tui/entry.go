package tui

import (
	"fmt"
	"path"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mwantia/histfs/data"
)

// Entry is one row of the file pane: a logical file that is either live in the
// data dir, has history in the ledger, or both.
type Entry struct {
	Key     string
	Live    bool
	History bool
	Size    int64
	ModTime time.Time
}

// DisplayName returns the key with a marker for files that only exist as history.
func (e *Entry) DisplayName() string {
	if !e.Live {
		return e.Key + " (deleted)"
	}
	return e.Key
}

func (e *Entry) DisplaySize() string {
	if !e.Live {
		return "-"
	}
	return humanize.IBytes(uint64(e.Size))
}

func (e *Entry) DisplayModTime() string {
	if e.ModTime.IsZero() {
		return "-"
	}
	return e.ModTime.Format("2006-01-02 15:04:05")
}

func (e *Entry) Icon() string {
	switch {
	case !e.Live:
		return "✗"
	case e.History:
		return "◆"
	default:
		return "·"
	}
}

func (e *Entry) ContentType() string {
	return data.GetContentType(path.Base(e.Key))
}

// VersionEntry wraps a ledger entry for display.
type VersionEntry struct {
	*data.Version
}

func (v VersionEntry) Label() string {
	return fmt.Sprintf("v%d", v.Number)
}

func (v VersionEntry) DisplaySize() string {
	return humanize.IBytes(uint64(v.Size))
}

func (v VersionEntry) DisplayCreated() string {
	return v.CreatedAt.Format("2006-01-02 15:04:05")
}

func (v VersionEntry) DisplayAge() string {
	return humanize.Time(v.CreatedAt)
}

// mergeEntries joins live files and files with history into one sorted list.
func mergeEntries(live []*data.FileStat, history []string) []*Entry {
	byKey := make(map[string]*Entry, len(live)+len(history))
	keys := make([]string, 0, len(live)+len(history))

	for _, stat := range live {
		byKey[stat.Key] = &Entry{
			Key:     stat.Key,
			Live:    true,
			Size:    stat.Size,
			ModTime: stat.ModifyTime,
		}
		keys = append(keys, stat.Key)
	}
	for _, key := range history {
		if e, ok := byKey[key]; ok {
			e.History = true
			continue
		}
		byKey[key] = &Entry{Key: key, History: true}
		keys = append(keys, key)
	}

	slices.Sort(keys)

	entries := make([]*Entry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, byKey[key])
	}
	return entries
}
