package reactive

import (
	"fmt"

	vberrors "github.com/vango-dev/bindery/internal/errors"
)

// Sentinel errors for errors.Is checks against reported or panicked errors.
var (
	// ErrRegionMismatch is raised when End does not match the innermost Begin.
	ErrRegionMismatch = vberrors.Sentinel("reactive: observed region mismatch")

	// ErrRegistryIterating is raised when a registry is mutated while one
	// of its iterators is open.
	ErrRegistryIterating = vberrors.Sentinel("reactive: registry mutated during iteration")

	// ErrNilObserver is raised when a nil observer is registered.
	ErrNilObserver = vberrors.Sentinel("reactive: nil observer")

	// ErrNotifyFailed is reported when an observer's NotifyChanged panics.
	ErrNotifyFailed = vberrors.Sentinel("reactive: notification failed")

	// ErrPassiveContract is reported when a passive observer reads a
	// registry it is not a member of.
	ErrPassiveContract = vberrors.Sentinel("reactive: passive contract violated")

	// ErrRecompute is reported when a lazy value's recomputation fails.
	ErrRecompute = vberrors.Sentinel("reactive: recomputation failed")

	// ErrSuppressUnderflow is raised when EndNoNotify has no matching begin.
	ErrSuppressUnderflow = vberrors.Sentinel("reactive: no-notify region underflow")

	// ErrCircular is returned when a lazy value reads itself.
	ErrCircular = vberrors.Sentinel("reactive: circular evaluation")
)

// newError builds a coded error wrapping sentinel. The location recorded is
// the caller of the function that called newError.
func newError(code string, sentinel error) *vberrors.Error {
	return vberrors.New(code).Wrap(sentinel).WithCaller(2)
}

// IsProgrammingError reports whether a recovered panic value signals a
// broken invariant that must not be swallowed.
func IsProgrammingError(p any) bool {
	e, ok := p.(*vberrors.Error)
	return ok && e.Programming()
}

// recoveredError converts a recovered panic into a coded callback error.
func recoveredError(p any, code string, sentinel error) error {
	e := vberrors.FromPanic(p, code)
	if e.Code != code {
		return e
	}
	if e.Wrapped == nil {
		e.Wrapped = sentinel
	} else {
		e.Wrapped = fmt.Errorf("%w: %w", sentinel, e.Wrapped)
	}
	return e
}
