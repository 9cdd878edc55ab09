package binding

import (
	"log/slog"

	"github.com/vango-dev/bindery/pkg/reactive"
)

// Tree creates nodes and renders them. All nodes of a tree share its
// reactive runtime and must be used from the runtime's goroutine.
type Tree struct {
	rt      *reactive.Runtime
	metrics Metrics
	logger  *slog.Logger

	// work is the reusable stack for Execute.
	work []*Node
}

// TreeOption configures a Tree.
type TreeOption func(*Tree)

// WithMetrics sets the tree metrics sink.
func WithMetrics(m Metrics) TreeOption {
	return func(t *Tree) {
		t.metrics = m
	}
}

// WithLogger sets the tree logger.
func WithLogger(logger *slog.Logger) TreeOption {
	return func(t *Tree) {
		t.logger = logger
	}
}

// NewTree creates a tree bound to rt.
func NewTree(rt *reactive.Runtime, opts ...TreeOption) *Tree {
	t := &Tree{
		rt:      rt,
		metrics: NopMetrics{},
		logger:  slog.Default().With("component", "binding"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Runtime returns the reactive runtime nodes render under.
func (t *Tree) Runtime() *reactive.Runtime {
	return t.rt
}

// NewNode creates a detached node. New nodes start dirty so their first
// Execute renders them.
func (t *Tree) NewNode(name string, render RenderFunc) *Node {
	return &Node{
		tree:        t,
		name:        name,
		render:      render,
		dirtySelf:   true,
		firstRender: true,
	}
}
