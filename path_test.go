package histfs

import (
	"errors"
	"testing"

	"github.com/mwantia/histfs/data"
)

func TestCleanKey(t *testing.T) {
	cases := map[string]string{
		"a.txt":          "a.txt",
		"/a.txt":         "a.txt",
		"./notes//a.txt": "notes/a.txt",
		"notes/../a.txt": "a.txt",
		"../../a.txt":    "a.txt",
		"/dir/sub/":      "dir/sub",
	}
	for in, want := range cases {
		got, err := CleanKey(in)
		if err != nil {
			t.Fatalf("CleanKey(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("CleanKey(%q) = %q, want %q", in, got, want)
		}
	}

	for _, in := range []string{"", "/", ".", "a/..", "a\x00b"} {
		if _, err := CleanKey(in); !errors.Is(err, data.ErrInvalidPath) {
			t.Errorf("CleanKey(%q): expected ErrInvalidPath, got %v", in, err)
		}
	}
}
