package reactive

// Metrics receives counters from a Runtime.
type Metrics interface {
	// Notified is called once per fan-out with the number of observers
	// that were delivered a notification.
	Notified(delivered int)

	// NotifyFailed is called when an observer's NotifyChanged panicked.
	NotifyFailed()

	// Pruned is called with the number of dependency edges removed when an
	// evaluation completes. It is not called when nothing was removed.
	Pruned(edges int)

	// Recomputed is called after each lazy recomputation.
	Recomputed(failed bool)

	// PassiveViolation is called for each passive contract violation.
	PassiveViolation()
}

// NopMetrics discards all counters.
type NopMetrics struct{}

func (NopMetrics) Notified(int)      {}
func (NopMetrics) NotifyFailed()     {}
func (NopMetrics) Pruned(int)        {}
func (NopMetrics) Recomputed(bool)   {}
func (NopMetrics) PassiveViolation() {}
