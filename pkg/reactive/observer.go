package reactive

// Observer is anything that can be notified when a dependency changes.
// Implementations embed Handle, which supplies identity, version and
// dependency bookkeeping.
type Observer interface {
	// NotifyChanged is called when a dependency read during the observer's
	// last evaluation has changed.
	NotifyChanged()

	handle() *Handle
}

// Handle is the observer state embedded in every Observer.
//
// The zero value is ready to use. The first time the observer is tracked or
// registered, the handle is bound to it and receives a unique ID.
type Handle struct {
	id      uint64
	version uint64

	// passive observers are never registered as new dependents.
	passive bool

	// retain keeps every recorded edge instead of pruning unread ones.
	retain bool

	// self is the observer embedding this handle.
	self Observer

	members membership
}

func (h *Handle) handle() *Handle { return h }

// ID returns the observer identity. It is stable across Reset.
func (h *Handle) ID() uint64 {
	if h.id == 0 {
		h.id = nextID()
	}
	return h.id
}

// Version returns the current version. Reset increments it, which
// invalidates every weak entry recorded under the previous version.
func (h *Handle) Version() uint64 {
	return h.version
}

// IsPassive reports whether the observer is passive.
func (h *Handle) IsPassive() bool {
	return h.passive
}

// SetPassive marks the observer passive. A passive observer keeps the
// dependencies it already has but is not registered as a dependent of
// anything it reads afterwards.
func (h *Handle) SetPassive(passive bool) {
	h.passive = passive
}

// RetainsEdges reports whether edge retention is enabled.
func (h *Handle) RetainsEdges() bool {
	return h.retain
}

// SetRetainEdges enables edge retention: dependencies recorded during an
// evaluation are added but registries that were not read are kept. The
// membership becomes the union of every evaluation since it was enabled.
func (h *Handle) SetRetainEdges(retain bool) {
	h.retain = retain
}

// Dependencies returns the number of registries the observer belongs to.
func (h *Handle) Dependencies() int {
	return len(h.members.list)
}

// DependsOn reports whether the observer is currently a member of r.
func (h *Handle) DependsOn(r *Registry) bool {
	return h.members.has(r)
}

// Reset detaches the observer from every registry, bumps its version and
// clears its flags. The observer can then be returned to a pool.
func (h *Handle) Reset() {
	h.members.detachAll(h)
	h.version++
	h.passive = false
	h.retain = false
}

// handleOf binds o to its handle and returns it.
func handleOf(o Observer) *Handle {
	if o == nil {
		panic(newError("R003", ErrNilObserver))
	}
	h := o.handle()
	if h == nil {
		panic(newError("R003", ErrNilObserver))
	}
	if h.id == 0 {
		h.id = nextID()
	}
	if h.self == nil {
		h.self = o
	}
	return h
}
