package reactive

import (
	"log/slog"
	"sync/atomic"
)

// Runtime holds the observer context stack for one frame thread: which
// observer, if any, is currently reading reactive state.
//
// Observed regions must be strictly nested. Begin/End pairs that interleave
// are programming errors and panic.
type Runtime struct {
	stack []Observer

	// suppressed counts open no-notify regions.
	suppressed atomic.Int32

	cfg     Config
	logger  *slog.Logger
	metrics Metrics
}

// New creates a Runtime.
func New(opts ...Option) *Runtime {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "reactive")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NopMetrics{}
	}
	if cfg.StrictPassive {
		cfg.VerifyPassive = true
	}
	return &Runtime{
		cfg:     cfg,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// Current returns the observer reads are currently attributed to, or nil.
func (rt *Runtime) Current() Observer {
	if n := len(rt.stack); n > 0 {
		return rt.stack[n-1]
	}
	return nil
}

// Depth returns the number of open regions.
func (rt *Runtime) Depth() int {
	return len(rt.stack)
}

// Begin opens an observed region for o. Reads until the matching End are
// attributed to o.
func (rt *Runtime) Begin(o Observer) {
	h := handleOf(o)
	rt.stack = append(rt.stack, o)
	h.members.enter()
}

// End closes the innermost observed region, which must belong to o.
// When o's outermost region closes, dependencies it did not read again are
// pruned.
func (rt *Runtime) End(o Observer) {
	h := handleOf(o)
	n := len(rt.stack)
	if n == 0 || rt.stack[n-1] == nil || rt.stack[n-1].handle() != h {
		panic(newError("R001", ErrRegionMismatch).
			WithDetailf("closing observer %d, innermost region is %s", h.id, rt.describeTop()))
	}
	rt.stack[n-1] = nil
	rt.stack = rt.stack[:n-1]

	prune := !h.passive && !h.retain
	if removed := h.members.exit(h, prune); removed > 0 {
		rt.metrics.Pruned(removed)
	}
}

func (rt *Runtime) describeTop() string {
	n := len(rt.stack)
	switch {
	case n == 0:
		return "none"
	case rt.stack[n-1] == nil:
		return "untracked"
	default:
		return "observer " + formatID(rt.stack[n-1].handle().id)
	}
}

// Unwind closes every region opened above depth without pruning any
// dependencies. Render loops use it to recover from a callback that
// panicked or left regions open.
func (rt *Runtime) Unwind(depth int) {
	for len(rt.stack) > depth {
		n := len(rt.stack) - 1
		if top := rt.stack[n]; top != nil {
			h := top.handle()
			h.members.exit(h, false)
		}
		rt.stack[n] = nil
		rt.stack = rt.stack[:n]
	}
}

// Observe runs fn inside an observed region for o. The region is closed
// even if fn panics; in that case no dependencies are pruned.
func (rt *Runtime) Observe(o Observer, fn func()) {
	depth := len(rt.stack)
	rt.Begin(o)
	closed := false
	defer func() {
		if !closed {
			rt.Unwind(depth)
		}
	}()
	fn()
	rt.End(o)
	closed = true
}

// Untracked runs fn with no current observer, so reads inside fn create no
// dependencies.
func (rt *Runtime) Untracked(fn func()) {
	depth := len(rt.stack)
	rt.stack = append(rt.stack, nil)
	defer rt.Unwind(depth)
	fn()
}

// Track registers the current observer, if any, as a dependent of r.
// Property implementations call it on every read.
func (rt *Runtime) Track(r *Registry) {
	o := rt.Current()
	if o == nil {
		return
	}
	h := o.handle()
	if h.passive {
		if rt.cfg.VerifyPassive && !h.members.has(r) {
			rt.passiveViolation(h)
		}
		return
	}
	r.Add(o)
	h.members.record(r)
}

func (rt *Runtime) passiveViolation(h *Handle) {
	rt.metrics.PassiveViolation()
	err := newError("R005", ErrPassiveContract).
		WithDetailf("observer %d read a dependency outside its recorded set", h.id)
	if rt.cfg.StrictPassive {
		panic(err)
	}
	rt.Report(err, "passive observer contract violated", "observer", h.id)
}

// BeginNoNotify opens a region in which all notifications are dropped.
func (rt *Runtime) BeginNoNotify() {
	rt.suppressed.Add(1)
}

// EndNoNotify closes a region opened by BeginNoNotify.
func (rt *Runtime) EndNoNotify() {
	if rt.suppressed.Add(-1) < 0 {
		rt.suppressed.Add(1)
		panic(newError("R007", ErrSuppressUnderflow))
	}
}

// WithoutNotify runs fn inside a no-notify region. Writes made by fn do not
// notify anyone; callers re-mark affected observers themselves.
func (rt *Runtime) WithoutNotify(fn func()) {
	rt.BeginNoNotify()
	defer rt.EndNoNotify()
	fn()
}

// Suppressed reports whether a no-notify region is open.
func (rt *Runtime) Suppressed() bool {
	return rt.suppressed.Load() > 0
}

// Report logs err and passes it to the configured error handler.
func (rt *Runtime) Report(err error, msg string, attrs ...any) {
	rt.logger.Error(msg, append([]any{"error", err}, attrs...)...)
	if rt.cfg.ErrorHandler != nil {
		rt.cfg.ErrorHandler(err)
	}
}
