// Package errors provides structured, coded errors for bindery.
//
// Every error the reactive core can raise has a stable code that maps to a
// short message and a longer explanation:
//   - runtime: broken invariants (unpaired observed regions, registry
//     mutation during iteration, nil observers). These are raised with panic.
//   - callback: user code failing (a render or recomputation panicking or
//     returning an error). These are recovered and reported, never fatal.
//   - config: invalid configuration files or flags.
//
// # Usage
//
//	err := errors.New("R001").
//	    WithCaller(1).
//	    WithDetail("expected observer 12, found observer 9")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR R001: Observed region end does not match begin
//	//
//	//   pkg/binding/execute.go:88
//	//
//	//   Observed regions must be strictly nested. ...
package errors
