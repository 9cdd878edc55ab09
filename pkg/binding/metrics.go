package binding

import "time"

// Metrics receives counters from a Tree.
type Metrics interface {
	// MarkedDirty is called each time a clean node becomes dirty.
	MarkedDirty()

	// Rendered is called after each node render.
	Rendered(d time.Duration, failed bool)

	// Promoted is called when a node is promoted to passive.
	Promoted()

	// Frame is called by Pipeline after each tick.
	Frame(stats FrameStats)
}

// NopMetrics discards all counters.
type NopMetrics struct{}

func (NopMetrics) MarkedDirty()                 {}
func (NopMetrics) Rendered(time.Duration, bool) {}
func (NopMetrics) Promoted()                    {}
func (NopMetrics) Frame(FrameStats)             {}
