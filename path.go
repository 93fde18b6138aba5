package histfs

import (
	"path"
	"strings"

	"github.com/mwantia/histfs/data/errors"
)

// CleanKey turns a virtual path into the storage key that identifies a logical
// file. Paths that clean to the same key share one history. The root is not a
// logical file.
func CleanKey(p string) (string, error) {
	if strings.ContainsRune(p, 0) {
		return "", errors.InvalidPath(nil, p)
	}

	key := strings.TrimPrefix(path.Clean("/"+p), "/")
	if key == "" {
		return "", errors.InvalidPath(nil, p)
	}

	return key, nil
}
