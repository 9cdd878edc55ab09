package binding

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/vango-dev/bindery/pkg/reactive"
)

type recordingMetrics struct {
	marked   int
	rendered int
	failed   int
	promoted int
	frames   []FrameStats
}

func (m *recordingMetrics) MarkedDirty() { m.marked++ }
func (m *recordingMetrics) Rendered(_ time.Duration, failed bool) {
	m.rendered++
	if failed {
		m.failed++
	}
}
func (m *recordingMetrics) Promoted()              { m.promoted++ }
func (m *recordingMetrics) Frame(stats FrameStats) { m.frames = append(m.frames, stats) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestTree returns a tree whose runtime records reported errors.
func newTestTree() (*Tree, *recordingMetrics, *[]error) {
	var reported []error
	rt := reactive.New(
		reactive.WithLogger(discardLogger()),
		reactive.WithErrorHandler(func(err error) { reported = append(reported, err) }),
	)
	m := &recordingMetrics{}
	return NewTree(rt, WithMetrics(m), WithLogger(discardLogger())), m, &reported
}

// renderLog records the order nodes render in.
type renderLog []string

func (l *renderLog) render(fn func(n *Node)) RenderFunc {
	return func(n *Node) error {
		*l = append(*l, n.Name())
		if fn != nil {
			fn(n)
		}
		return nil
	}
}

func (l *renderLog) reset() {
	*l = (*l)[:0]
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var errFailure = errors.New("failure")
