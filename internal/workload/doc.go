// Package workload builds a synthetic binding tree and animates the reactive
// fields it reads, so the dirty-propagation engine can be exercised and
// measured end to end.
//
// Every field follows a gween tween toward a random target. Values are
// rounded before they are written, so a frame only notifies observers of
// fields whose integer value actually moved.
package workload
