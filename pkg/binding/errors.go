package binding

import (
	"fmt"

	vberrors "github.com/vango-dev/bindery/internal/errors"
)

// ErrRenderFailed is reported when a node's render callback fails.
var ErrRenderFailed = vberrors.Sentinel("binding: render failed")

// renderError converts a render failure, returned or panicked, into a coded
// error. Coded errors raised by the reactive runtime keep their own code.
func renderError(p any) error {
	e := vberrors.FromPanic(p, "R008")
	if e.Code != "R008" {
		return e
	}
	if e.Wrapped == nil {
		e.Wrapped = ErrRenderFailed
	} else {
		e.Wrapped = fmt.Errorf("%w: %w", ErrRenderFailed, e.Wrapped)
	}
	return e
}
