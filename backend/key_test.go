package backend

import (
	"strings"
	"testing"
)

func TestEscapeKeyIsReversibleAndFlat(t *testing.T) {
	keys := []string{"a.txt", "notes/a.txt", "dir with space/b%c.md", ".hidden"}

	seen := make(map[string]string)
	for _, key := range keys {
		escaped := EscapeKey(key)
		for _, r := range escaped {
			if r == '/' {
				t.Fatalf("escaped key %q still contains a separator", escaped)
			}
		}
		if other, ok := seen[escaped]; ok {
			t.Fatalf("keys %q and %q collide as %q", key, other, escaped)
		}
		seen[escaped] = key

		back, err := UnescapeKey(escaped)
		if err != nil {
			t.Fatalf("UnescapeKey failed: %v", err)
		}
		if back != key {
			t.Fatalf("expected %q, got %q", key, back)
		}
	}
}

func TestBlobName(t *testing.T) {
	if got := BlobName(3, 1700000000); got != "v3_1700000000" {
		t.Fatalf("unexpected blob name %q", got)
	}
}

func TestEscapeKeyTilde(t *testing.T) {
	if got := EscapeKey("a~b"); got != "a%7Eb" {
		t.Fatalf("expected tilde to be escaped, got %q", got)
	}
	if back, err := UnescapeKey("a%7Eb"); err != nil || back != "a~b" {
		t.Fatalf("expected a~b, got %q (%v)", back, err)
	}
}

func TestKeyNameBoundsLongKeys(t *testing.T) {
	if got := KeyName("notes/a.txt"); got != "notes%2Fa.txt" || IsHashedName(got) {
		t.Fatalf("expected short keys to stay reversible, got %q", got)
	}

	long := strings.Repeat("日", 40) + ".txt"
	deep := strings.Repeat("directory/", 30) + "a.txt"

	seen := make(map[string]string)
	for _, key := range []string{long, long + "x", deep} {
		name := KeyName(key)
		if len(name) > 200 {
			t.Fatalf("name for %q is %d bytes long", key, len(name))
		}
		if !IsHashedName(name) || strings.Contains(name, "/") {
			t.Fatalf("expected a flat digest name, got %q", name)
		}
		if KeyName(key) != name {
			t.Fatalf("expected KeyName to be stable for %q", key)
		}
		if other, ok := seen[name]; ok {
			t.Fatalf("keys %q and %q collide as %q", key, other, name)
		}
		seen[name] = key

		// The readable prefix never ends in a partial escape
		prefix, _, _ := strings.Cut(name, "~")
		if _, err := UnescapeKey(prefix); err != nil {
			t.Fatalf("prefix %q is not a valid escape: %v", prefix, err)
		}
	}
}
