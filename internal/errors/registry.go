package errors

import (
	"maps"
	"slices"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (R001-R099)
	// ============================================

	"R001": {
		Category:   CategoryRuntime,
		Message:    "Observed region end does not match begin",
		Suggestion: "Pair every Begin with an End on the same observer, or use Runtime.Observe.",
	},
	"R002": {
		Category:   CategoryRuntime,
		Message:    "Registry mutated during iteration",
		Suggestion: "Collect observers first and mutate the registry after the loop ends.",
	},
	"R003": {
		Category: CategoryRuntime,
		Message:  "Nil observer",
	},
	"R004": {
		Category: CategoryCallback,
		Message:  "Observer notification failed",
	},
	"R005": {
		Category:   CategoryRuntime,
		Message:    "Passive observer read an untracked dependency",
		Suggestion: "Drop the no-branches option: the evaluation does not read the same dependencies every time.",
	},
	"R006": {
		Category: CategoryCallback,
		Message:  "Lazy value recomputation failed",
	},
	"R007": {
		Category:   CategoryRuntime,
		Message:    "No-notify region ended more times than it began",
		Suggestion: "Use Runtime.WithoutNotify to pair begin and end.",
	},
	"R008": {
		Category: CategoryCallback,
		Message:  "Binding node render failed",
	},
	"R009": {
		Category: CategoryCallback,
		Message:  "Circular lazy value evaluation",
	},

	// ============================================
	// Config Errors (C001-C099)
	// ============================================

	"C001": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
	},
	"C002": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
	},

	// ============================================
	// CLI Errors (X001-X099)
	// ============================================

	"X001": {
		Category: CategoryCLI,
		Message:  "Report upload failed",
	},
	"X002": {
		Category:   CategoryCLI,
		Message:    "Report write failed",
		Suggestion: "Check that the report directory exists and is writable",
	},
}

// GetAllCodes returns all registered error codes in sorted order.
func GetAllCodes() []string {
	return slices.Sorted(maps.Keys(registry))
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
