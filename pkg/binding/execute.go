package binding

import (
	"errors"
	"time"

	"github.com/vango-dev/bindery/pkg/reactive"
)

// ExecuteStats summarizes one Execute call.
type ExecuteStats struct {
	// Visited counts nodes taken off the work list.
	Visited int

	// Rendered counts render callbacks invoked.
	Rendered int

	// Failed counts renders that returned an error or panicked.
	Failed int

	// Stale counts dirty records skipped because their node was collected,
	// reset or moved.
	Stale int
}

// Execute renders every dirty node reachable from root through dirty-child
// records. A node renders before its children, so a parent can add or
// remove children before they are visited. Clean subtrees are not visited.
//
// A render that fails leaves its node clean with LastError set; the rest of
// the tree is still rendered.
func (t *Tree) Execute(root *Node) ExecuteStats {
	var stats ExecuteStats
	if root == nil || !root.NeedsExecute() {
		return stats
	}

	// Nested calls from inside a render get their own stack.
	stack := t.work[:0]
	t.work = nil
	defer func() {
		clear(stack)
		t.work = stack[:0]
	}()

	stack = append(stack, root)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack[len(stack)-1] = nil
		stack = stack[:len(stack)-1]
		stats.Visited++

		if n.dirtySelf {
			stats.Rendered++
			if err := t.renderNode(n); err != nil {
				stats.Failed++
			}
		}

		// Push in reverse so children render in the order they were marked.
		refs := n.dirtyChildren
		for i := len(refs) - 1; i >= 0; i-- {
			c := refs[i].ref.Value()
			if c == nil || c.Version() != refs[i].version || c.parent.Value() != n {
				stats.Stale++
				continue
			}
			if !c.notifiedUp {
				// Already consumed through an earlier record.
				continue
			}
			c.notifiedUp = false
			stack = append(stack, c)
		}
		clear(refs)
		n.dirtyChildren = refs[:0]
	}
	return stats
}

// renderNode runs n's render callback inside an observed region for n.
func (t *Tree) renderNode(n *Node) (err error) {
	n.dirtySelf = false
	if n.render == nil {
		n.firstRender = false
		n.lastErr = nil
		return nil
	}

	depth := t.rt.Depth()
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			// Close anything the callback left open so sibling subtrees
			// render against a clean stack.
			t.rt.Unwind(depth)
			err = renderError(p)
		}
		n.firstRender = false
		n.lastErr = err
		t.metrics.Rendered(time.Since(start), err != nil)
		if err != nil {
			t.reportRenderError(n, err)
		}
	}()

	t.rt.Observe(n, func() {
		if rerr := n.render(n); rerr != nil {
			err = renderError(rerr)
		}
	})
	return err
}

func (t *Tree) reportRenderError(n *Node, err error) {
	if errors.Is(err, reactive.ErrRegionMismatch) {
		t.logger.Error("observed regions corrupted during render; stack unwound",
			"node", n.name,
			"id", n.ID(),
			"error", err)
	}
	t.rt.Report(err, "binding render failed", "node", n.name, "id", n.ID())
}
