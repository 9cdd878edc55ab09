package reactive

import (
	"errors"
	"io"
	"log/slog"
	"runtime"
	"testing"
)

// testObserver counts notifications.
type testObserver struct {
	Handle
	name     string
	count    int
	onNotify func()
}

func newTestObserver(name string) *testObserver {
	return &testObserver{name: name}
}

func (o *testObserver) NotifyChanged() {
	o.count++
	if o.onNotify != nil {
		o.onNotify()
	}
}

// recordingMetrics counts runtime metrics calls.
type recordingMetrics struct {
	notified   int
	failures   int
	pruned     int
	recomputes int
	recFailed  int
	violations int
}

func (m *recordingMetrics) Notified(n int) { m.notified += n }
func (m *recordingMetrics) NotifyFailed()  { m.failures++ }
func (m *recordingMetrics) Pruned(n int)   { m.pruned += n }
func (m *recordingMetrics) Recomputed(failed bool) {
	m.recomputes++
	if failed {
		m.recFailed++
	}
}
func (m *recordingMetrics) PassiveViolation() { m.violations++ }

// expectPanic runs fn and checks that it panics with an error matching target.
func expectPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		p := recover()
		if p == nil {
			t.Fatalf("expected panic matching %v", target)
		}
		err, ok := p.(error)
		if !ok {
			t.Fatalf("expected error panic, got %T: %v", p, p)
		}
		if !errors.Is(err, target) {
			t.Fatalf("expected %v, got %v", target, err)
		}
	}()
	fn()
}

// collectGarbage runs enough GC cycles for unreachable observers to clear
// their weak pointers.
func collectGarbage() {
	runtime.GC()
	runtime.GC()
}

// newQuietRuntime returns a runtime that records reported errors instead of
// logging them to stderr.
func newQuietRuntime(opts ...Option) (*Runtime, *[]error) {
	var reported []error
	opts = append([]Option{
		WithLogger(discardLogger()),
		WithErrorHandler(func(err error) { reported = append(reported, err) }),
	}, opts...)
	return New(opts...), &reported
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
