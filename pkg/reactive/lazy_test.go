package reactive

import (
	"errors"
	"strings"
	"testing"
)

func TestLazyMemoization(t *testing.T) {
	rt := New(WithLogger(discardLogger()))
	f := NewField(rt, 5)
	computations := 0
	doubled := NewLazy(rt, func() int {
		computations++
		return f.Get() * 2
	})

	if doubled.Get() != 10 {
		t.Errorf("expected 10, got %d", doubled.Get())
	}

	f.Set(6)
	computations = 0
	if doubled.Get() != 12 {
		t.Errorf("expected 12, got %d", doubled.Get())
	}
	if doubled.Get() != 12 {
		t.Errorf("expected 12, got %d", doubled.Get())
	}
	if computations != 1 {
		t.Errorf("expected 1 computation across both reads, got %d", computations)
	}
}

func TestLazyIsLazy(t *testing.T) {
	rt := New(WithLogger(discardLogger()))
	computations := 0
	l := NewLazy(rt, func() int {
		computations++
		return 1
	})

	if computations != 0 {
		t.Error("lazy value computed before first read")
	}
	if !l.Dirty() {
		t.Error("new lazy value should be dirty")
	}
	_ = l.Get()
	if computations != 1 || l.Dirty() {
		t.Error("expected one computation and a clean value")
	}
}

func TestLazyCollapsesUpstreamChanges(t *testing.T) {
	rt := New(WithLogger(discardLogger()))
	a := NewField(rt, 1)
	b := NewField(rt, 2)
	computations := 0
	sum := NewLazy(rt, func() int {
		computations++
		return a.Get() + b.Get()
	})
	reader := newTestObserver("reader")
	rt.Observe(reader, func() { _ = sum.Get() })

	a.Set(10)
	b.Set(20)
	a.Set(30)

	if reader.count != 1 {
		t.Errorf("expected reader notified once, got %d", reader.count)
	}
	computations = 0
	if sum.Get() != 50 {
		t.Errorf("expected 50, got %d", sum.Get())
	}
	if computations != 1 {
		t.Errorf("expected a single recomputation, got %d", computations)
	}
}

func TestLazyReaderDependsOnLazyNotInputs(t *testing.T) {
	rt := New(WithLogger(discardLogger()))
	f := NewField(rt, "a")
	upper := NewLazy(rt, func() string { return strings.ToUpper(f.Get()) })
	reader := newTestObserver("reader")

	rt.Observe(reader, func() { _ = upper.Get() })

	if f.Readers().Contains(reader) {
		t.Error("reads inside the lazy computation leaked onto the reader")
	}
	if !f.Readers().Contains(upper) || !upper.Readers().Contains(reader) {
		t.Error("expected field -> lazy -> reader edges")
	}
}

func TestLazyChain(t *testing.T) {
	rt := New(WithLogger(discardLogger()))
	base := NewField(rt, 2)
	squared := NewLazy(rt, func() int { return base.Get() * base.Get() })
	plusOne := NewLazy(rt, func() int { return squared.Get() + 1 })
	reader := newTestObserver("reader")
	rt.Observe(reader, func() { _ = plusOne.Get() })

	base.Set(3)

	if reader.count != 1 {
		t.Errorf("expected change to propagate through the chain, got %d", reader.count)
	}
	if plusOne.Get() != 10 {
		t.Errorf("expected 10, got %d", plusOne.Get())
	}
}

func TestLazyFailureStaysDirty(t *testing.T) {
	rec := &recordingMetrics{}
	rt, reported := newQuietRuntime(WithMetrics(rec))
	fail := true
	attempts := 0
	l := NewLazy(rt, func() int {
		attempts++
		if fail {
			panic("no data")
		}
		return 7
	}, WithName("inventory.count"))

	v, err := l.Value()
	if err == nil || !errors.Is(err, ErrRecompute) {
		t.Fatalf("expected ErrRecompute, got %v", err)
	}
	if v != 0 || !l.Dirty() {
		t.Error("failed recomputation must not cache a value")
	}
	if len(*reported) != 1 || rec.recFailed != 1 {
		t.Errorf("expected the failure to be reported once, got %d", len(*reported))
	}
	if rt.Depth() != 0 {
		t.Error("observed region left open after failure")
	}

	fail = false
	if l.Get() != 7 {
		t.Errorf("expected retry to succeed")
	}
	if attempts != 2 || l.Err() != nil {
		t.Errorf("expected 2 attempts and no error, got %d, %v", attempts, l.Err())
	}
}

func TestLazyErrorReturn(t *testing.T) {
	rt, _ := newQuietRuntime()
	cause := errors.New("parse failed")
	l := NewLazyErr(rt, func() (int, error) {
		return 0, cause
	})

	_, err := l.Value()
	if !errors.Is(err, cause) || !errors.Is(err, ErrRecompute) {
		t.Errorf("expected error to wrap cause and ErrRecompute, got %v", err)
	}
}

func TestLazyFailedValueStillForwardsChanges(t *testing.T) {
	rt, _ := newQuietRuntime()
	f := NewField(rt, 0)
	l := NewLazyErr(rt, func() (int, error) {
		if f.Get() == 0 {
			return 0, errors.New("zero")
		}
		return 100 / f.Get(), nil
	})
	reader := newTestObserver("reader")
	rt.Observe(reader, func() { _, _ = l.Value() })

	f.Set(5)

	if reader.count != 1 {
		t.Errorf("expected reader notified after failed evaluation, got %d", reader.count)
	}
	if l.Get() != 20 {
		t.Errorf("expected 20, got %d", l.Get())
	}
}

func TestLazyNoBranchesBecomesPassive(t *testing.T) {
	rt := New(WithLogger(discardLogger()))
	f := NewField(rt, 1)
	l := NewLazy(rt, func() int { return f.Get() + 1 }, WithNoBranches())

	_ = l.Get()
	if !l.IsPassive() {
		t.Fatal("expected passive after first evaluation")
	}

	f.Set(2)
	if l.Get() != 3 {
		t.Errorf("passive value must still track its recorded inputs, got %d", l.Get())
	}
}

func TestLazyNoBranchesContractViolation(t *testing.T) {
	rec := &recordingMetrics{}
	rt, reported := newQuietRuntime(WithMetrics(rec), WithPassiveVerification(false))
	cond := NewField(rt, true)
	a := NewField(rt, "a")
	b := NewField(rt, "b")
	l := NewLazy(rt, func() string {
		if cond.Get() {
			return a.Get()
		}
		return b.Get()
	}, WithNoBranches())

	_ = l.Get()
	cond.Set(false)
	_ = l.Get()

	if rec.violations != 1 || len(*reported) == 0 {
		t.Fatal("expected the branch change to be flagged")
	}
	if !errors.Is((*reported)[0], ErrPassiveContract) {
		t.Errorf("expected ErrPassiveContract, got %v", (*reported)[0])
	}

	// The missed dependency is the documented hazard.
	b.Set("changed")
	if l.Dirty() {
		t.Error("expected the passive value to miss the untracked input")
	}
}

func TestLazyCircularRead(t *testing.T) {
	rt := New(WithLogger(discardLogger()))
	var self *Lazy[int]
	var inner error
	self = NewLazy(rt, func() int {
		_, inner = self.Value()
		return 1
	})

	if self.Get() != 1 {
		t.Error("expected outer evaluation to complete")
	}
	if !errors.Is(inner, ErrCircular) {
		t.Errorf("expected ErrCircular, got %v", inner)
	}
}

func TestLazyPeekDoesNotTrack(t *testing.T) {
	rt := New(WithLogger(discardLogger()))
	l := NewLazy(rt, func() int { return 3 })
	o := newTestObserver("o")

	rt.Observe(o, func() {
		if l.Peek() != 3 {
			t.Error("expected Peek to compute the value")
		}
	})
	if l.Readers().Contains(o) {
		t.Error("Peek must not create a dependency")
	}
}

func TestLazyDispose(t *testing.T) {
	rt := New(WithLogger(discardLogger()))
	f := NewField(rt, 1)
	l := NewLazy(rt, func() int { return f.Get() })
	reader := newTestObserver("reader")
	rt.Observe(reader, func() { _ = l.Get() })

	l.Dispose()

	if f.Readers().Len() != 0 || l.Readers().Len() != 0 {
		t.Error("expected dispose to drop edges in both directions")
	}
	if !l.Dirty() {
		t.Error("expected disposed value to be dirty")
	}
}
