package backend

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

const (
	// maxKeyName leaves room for an extension within NAME_MAX.
	maxKeyName = 200
	// hashedPrefix is the readable part kept in front of a digest.
	hashedPrefix = 64
)

// EscapeKey flattens a slash separated key into a single path segment. "~" is
// escaped as well, so it only ever appears in names produced by KeyName.
func EscapeKey(key string) string {
	return strings.ReplaceAll(url.PathEscape(key), "~", "%7E")
}

// UnescapeKey reverses EscapeKey.
func UnescapeKey(escaped string) (string, error) {
	return url.PathUnescape(escaped)
}

// KeyName is EscapeKey bounded to a single file name. A key that escapes past
// maxKeyName becomes a readable prefix, "~" and the sha256 of the key. Such a
// name cannot be reversed, see IsHashedName.
func KeyName(key string) string {
	escaped := EscapeKey(key)
	if len(escaped) <= maxKeyName {
		return escaped
	}

	prefix := escaped[:hashedPrefix]
	if i := strings.LastIndexByte(prefix, '%'); i >= 0 && i > len(prefix)-3 {
		prefix = prefix[:i]
	}

	sum := sha256.Sum256([]byte(key))
	return prefix + "~" + hex.EncodeToString(sum[:])
}

// IsHashedName reports whether name came from KeyName's digest form.
func IsHashedName(name string) bool {
	return strings.Contains(name, "~")
}

// BlobName is the file name of version number created at unix seconds.
func BlobName(number uint64, unix int64) string {
	return fmt.Sprintf("v%d_%d", number, unix)
}
