package errors

import (
	"io"
	"testing"

	"github.com/mwantia/histfs/data"
)

func TestConstructorsWrapSentinelAndCause(t *testing.T) {
	err := Archive(io.ErrUnexpectedEOF, "a.txt")
	if !Is(err, data.ErrArchive) {
		t.Fatalf("expected ErrArchive, got %v", err)
	}
	if !Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}

	err = Persistence(nil, "a.txt")
	if !Is(err, data.ErrPersistence) || Is(err, data.ErrArchive) {
		t.Fatalf("unexpected sentinel match for %v", err)
	}

	err = Persistence(VersionConflict("a.txt", 3, 5), "a.txt")
	if !Is(err, data.ErrVersionConflict) {
		t.Fatalf("expected nested ErrVersionConflict, got %v", err)
	}
}
