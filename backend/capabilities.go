package backend

import "slices"

// BackendCapability represents a capability that a backend can provide
type BackendCapability string

const (
	// CapabilityStorage serves the live backing tree.
	CapabilityStorage BackendCapability = "storage"
	// CapabilityArchive stores version blobs.
	CapabilityArchive BackendCapability = "archive"
	// CapabilityLedger keeps per-file version ledgers.
	CapabilityLedger BackendCapability = "ledger"

	// CapabilityAtomicReplace means ReplaceObject never exposes partial content.
	CapabilityAtomicReplace BackendCapability = "atomic_replace"
	// CapabilityPersistent means data survives a restart of the process.
	CapabilityPersistent BackendCapability = "persistent"
)

// BackendCapabilities describes what a backend supports
type BackendCapabilities struct {
	Capabilities  []BackendCapability `json:"capabilities"`
	MaxObjectSize int64               `json:"max_object_size"`
}

// Contains checks if a capability is supported
func (bc *BackendCapabilities) Contains(cap BackendCapability) bool {
	if bc == nil {
		return false
	}
	return slices.Contains(bc.Capabilities, cap)
}

// Supports reports whether b advertises cap.
func Supports(b Backend, cap BackendCapability) bool {
	return b != nil && b.GetCapabilities().Contains(cap)
}
