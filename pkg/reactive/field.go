package reactive

import "reflect"

// Field is a reactive value container. Reading it inside an observed
// region makes the current observer a dependent; writing a different value
// notifies every dependent.
type Field[T any] struct {
	rt    *Runtime
	subs  Registry
	value T

	// equal decides whether a write changed the value. If nil, uses
	// defaultEquals.
	equal func(T, T) bool
}

// NewField creates a field with the given initial value.
func NewField[T any](rt *Runtime, initial T) *Field[T] {
	return &Field[T]{
		rt:    rt,
		value: initial,
	}
}

// Get returns the value and makes the current observer a dependent.
func (f *Field[T]) Get() T {
	f.rt.Track(&f.subs)
	return f.value
}

// Peek returns the value without creating a dependency.
func (f *Field[T]) Peek() T {
	return f.value
}

// Set stores value and notifies dependents if it differs from the current
// value. It reports whether the value changed.
func (f *Field[T]) Set(value T) bool {
	if f.equals(f.value, value) {
		return false
	}
	f.value = value
	f.rt.Notify(&f.subs)
	return true
}

// Update replaces the value with fn(current).
func (f *Field[T]) Update(fn func(T) T) bool {
	return f.Set(fn(f.value))
}

// WithEquals configures a custom equality function.
func (f *Field[T]) WithEquals(fn func(T, T) bool) *Field[T] {
	f.equal = fn
	return f
}

// Readers returns the registry of observers depending on the field.
func (f *Field[T]) Readers() *Registry {
	return &f.subs
}

func (f *Field[T]) equals(a, b T) bool {
	if f.equal != nil {
		return f.equal(a, b)
	}
	return defaultEquals(a, b)
}

// defaultEquals uses == for common comparable types and reflect.DeepEqual
// for everything else.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		bv, ok := any(b).(int)
		return ok && av == bv
	case int32:
		bv, ok := any(b).(int32)
		return ok && av == bv
	case int64:
		bv, ok := any(b).(int64)
		return ok && av == bv
	case uint:
		bv, ok := any(b).(uint)
		return ok && av == bv
	case uint32:
		bv, ok := any(b).(uint32)
		return ok && av == bv
	case uint64:
		bv, ok := any(b).(uint64)
		return ok && av == bv
	case float32:
		bv, ok := any(b).(float32)
		return ok && av == bv
	case float64:
		bv, ok := any(b).(float64)
		return ok && av == bv
	case string:
		bv, ok := any(b).(string)
		return ok && av == bv
	case bool:
		bv, ok := any(b).(bool)
		return ok && av == bv
	default:
		return reflect.DeepEqual(a, b)
	}
}
