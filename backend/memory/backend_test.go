package memory

import (
	"testing"

	"github.com/mwantia/histfs/backend"
	"github.com/mwantia/histfs/backend/backendtest"
)

func TestMemoryLedger(t *testing.T) {
	backendtest.RunLedgerTests(t, func(t *testing.T) backend.LedgerBackend {
		return NewMemoryBackend()
	})
}

func TestMemoryArchive(t *testing.T) {
	backendtest.RunArchiveTests(t, func(t *testing.T) backend.ArchiveBackend {
		return NewMemoryBackend()
	})
}
