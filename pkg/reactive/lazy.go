package reactive

// Lazy is a memoized derived value. It observes the reactive state its
// computation reads and is itself observed by whoever reads it.
//
// Lazy values are pull-based: a change to an input only marks the value
// dirty and forwards the notification to its readers. The computation runs
// again on the next read, so several input changes between two reads cost a
// single recomputation.
type Lazy[T any] struct {
	Handle

	rt      *Runtime
	subs    Registry
	compute func() (T, error)
	name    string

	value T
	err   error

	dirty      bool
	failed     bool
	computing  bool
	noBranches bool
}

// LazyOption configures a Lazy value.
type LazyOption func(*lazyOptions)

type lazyOptions struct {
	name       string
	noBranches bool
}

// WithName names the value in logs and errors.
func WithName(name string) LazyOption {
	return func(o *lazyOptions) {
		o.name = name
	}
}

// WithNoBranches declares that every evaluation reads exactly the same
// dependencies. After the first successful evaluation the value becomes
// passive and stops re-recording its dependencies.
//
// The runtime cannot check this claim unless passive verification is
// enabled. If a later evaluation reads something the first one did not,
// changes to it are silently missed.
func WithNoBranches() LazyOption {
	return func(o *lazyOptions) {
		o.noBranches = true
	}
}

// NewLazy creates a lazy value computed by compute. A panic in compute is
// recovered and reported as a recomputation failure.
func NewLazy[T any](rt *Runtime, compute func() T, opts ...LazyOption) *Lazy[T] {
	return NewLazyErr(rt, func() (T, error) {
		return compute(), nil
	}, opts...)
}

// NewLazyErr creates a lazy value whose computation can fail.
func NewLazyErr[T any](rt *Runtime, compute func() (T, error), opts ...LazyOption) *Lazy[T] {
	var o lazyOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Lazy[T]{
		rt:         rt,
		compute:    compute,
		name:       o.name,
		dirty:      true,
		noBranches: o.noBranches,
	}
}

// Get returns the value, recomputing it first if it is dirty, and makes the
// current observer a dependent. If the last recomputation failed, Get
// returns the last successfully computed value.
func (l *Lazy[T]) Get() T {
	v, _ := l.Value()
	return v
}

// Value is Get that also returns the error from a failed recomputation.
func (l *Lazy[T]) Value() (T, error) {
	if l.computing {
		return l.value, newError("R009", ErrCircular).WithDetailf("lazy value %s", l.label())
	}
	l.rt.Track(&l.subs)
	if l.dirty {
		l.recompute()
	}
	return l.value, l.err
}

// Peek returns the value without making the current observer a dependent.
// It still recomputes a dirty value.
func (l *Lazy[T]) Peek() T {
	if l.dirty && !l.computing {
		l.recompute()
	}
	return l.value
}

// Dirty reports whether the next read will recompute.
func (l *Lazy[T]) Dirty() bool {
	return l.dirty
}

// Err returns the error from the last recomputation, if it failed.
func (l *Lazy[T]) Err() error {
	return l.err
}

// Readers returns the registry of observers reading this value.
func (l *Lazy[T]) Readers() *Registry {
	return &l.subs
}

// NotifyChanged invalidates the value and forwards the change to its
// readers. Repeated notifications before the next read are no-ops.
func (l *Lazy[T]) NotifyChanged() {
	if l.dirty && !l.failed {
		return
	}
	l.dirty = true
	l.failed = false
	l.rt.Notify(&l.subs)
}

// Dispose drops every dependency edge in both directions.
func (l *Lazy[T]) Dispose() {
	l.Reset()
	l.subs.Clear()
	l.dirty = true
}

func (l *Lazy[T]) recompute() {
	l.computing = true
	defer func() { l.computing = false }()

	v, err := l.invoke()
	l.rt.metrics.Recomputed(err != nil)
	if err != nil {
		l.err = err
		l.failed = true
		l.rt.Report(err, "lazy value recomputation failed", "lazy", l.label())
		return
	}

	l.value = v
	l.err = nil
	l.dirty = false
	l.failed = false
	if l.noBranches {
		l.SetPassive(true)
	}
}

func (l *Lazy[T]) invoke() (v T, err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		if IsProgrammingError(p) {
			panic(p)
		}
		err = recoveredError(p, "R006", ErrRecompute)
	}()

	l.rt.Observe(l, func() {
		v, err = l.compute()
	})
	if err != nil {
		err = recoveredError(err, "R006", ErrRecompute)
	}
	return v, err
}

func (l *Lazy[T]) label() string {
	if l.name != "" {
		return l.name
	}
	return formatID(l.ID())
}
