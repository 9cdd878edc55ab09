// Package reactive provides the dependency-tracking core for bindery.
//
// Code that reads reactive state inside an observed region is recorded as a
// dependent of that state. When the state later changes, every live
// dependent is notified. Dependents are held weakly: a Field or Lazy value
// never keeps a UI node alive.
//
// # Core Types
//
// Runtime carries the observer stack for one frame thread:
//
//	rt := reactive.New()
//	rt.Observe(node, func() {
//	    _ = title.Get() // node now depends on title
//	})
//
// Field[T] is a reactive value container:
//
//	title := reactive.NewField(rt, "Inventory")
//	title.Set("Shop") // notifies node
//
// Lazy[T] is a memoized derived value that is both an observer of its
// inputs and a subject for its own readers:
//
//	label := reactive.NewLazy(rt, func() string {
//	    return strings.ToUpper(title.Get())
//	})
//
// Any type becomes an observer by embedding Handle and implementing
// NotifyChanged.
//
// # Dependency pruning
//
// Each observer remembers the registries it belongs to. After every
// complete evaluation, registries that were not read again are left on both
// sides, so dependencies from abandoned branches never accumulate.
//
// # Thread Safety
//
// A Runtime and everything created from it must be used from a single
// goroutine (the frame loop). Only the no-notify counter is atomic.
package reactive
