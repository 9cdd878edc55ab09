package reactive

import "sync/atomic"

// globalIDCounter is the source of identities for all observers.
var globalIDCounter atomic.Uint64

// nextID returns the next unique observer identity.
// IDs are monotonically increasing and never reused, so they double as the
// identity hash used by registries.
func nextID() uint64 {
	return globalIDCounter.Add(1)
}
