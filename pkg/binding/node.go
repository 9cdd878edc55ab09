package binding

import (
	"weak"

	"github.com/vango-dev/bindery/pkg/reactive"
)

// RenderFunc updates whatever a node is bound to. Reads of reactive values
// inside it become the node's dependencies.
type RenderFunc func(n *Node) error

// Node is one binding in a tree.
//
// A node strongly owns its children. The parent link and the parent's list
// of dirty children are weak, so detaching a subtree is enough to let it be
// collected even while dirty records still mention it.
type Node struct {
	reactive.Handle

	tree   *Tree
	name   string
	render RenderFunc

	parent   weak.Pointer[Node]
	children []*Node

	// dirtyChildren lists children that are dirty or have dirty
	// descendants. Entries may be stale; Execute skips them.
	dirtyChildren []childRef

	dirtySelf   bool
	firstRender bool

	// notifiedUp is set once this node has been added to its parent's
	// dirtyChildren and cleared when the parent consumes the entry.
	notifiedUp bool

	// branches tracks which conditional branches have rendered.
	branches branchSet

	lastErr error
}

type childRef struct {
	ref     weak.Pointer[Node]
	version uint64
}

// Name returns the node name.
func (n *Node) Name() string {
	return n.name
}

// Tree returns the tree the node belongs to.
func (n *Node) Tree() *Tree {
	return n.tree
}

// Parent returns the parent node, or nil for a root or detached node.
func (n *Node) Parent() *Node {
	return n.parent.Value()
}

// Children returns the node's children. The slice must not be modified.
func (n *Node) Children() []*Node {
	return n.children
}

// IsDirty reports whether the node itself needs rendering.
func (n *Node) IsDirty() bool {
	return n.dirtySelf
}

// HasDirtyChildren reports whether any child was recorded as dirty since the
// last Execute that reached this node.
func (n *Node) HasDirtyChildren() bool {
	return len(n.dirtyChildren) > 0
}

// NeedsExecute reports whether Execute would do any work on this node.
func (n *Node) NeedsExecute() bool {
	return n.dirtySelf || len(n.dirtyChildren) > 0
}

// FirstRender reports whether the node has not rendered yet. Render
// callbacks use it to create what later renders update.
func (n *Node) FirstRender() bool {
	return n.firstRender
}

// LastError returns the error from the node's most recent render.
func (n *Node) LastError() error {
	return n.lastErr
}

// SetRender replaces the render callback and marks the node dirty.
func (n *Node) SetRender(render RenderFunc) {
	n.render = render
	n.MarkDirty()
}

// NotifyChanged implements reactive.Observer.
func (n *Node) NotifyChanged() {
	n.MarkDirty()
}

// MarkDirty flags the node for rendering and records the dirty path up to
// the nearest ancestor that already knows about it.
func (n *Node) MarkDirty() {
	if n.dirtySelf {
		return
	}
	n.dirtySelf = true
	n.tree.metrics.MarkedDirty()
	n.propagate()
}

// propagate walks up the parent chain adding each node to its parent's
// dirty list. It stops at the first node that has already notified its
// parent, so repeated marks in one pass cost O(1) after the first.
func (n *Node) propagate() {
	child := n
	for !child.notifiedUp {
		parent := child.parent.Value()
		if parent == nil {
			return
		}
		parent.dirtyChildren = append(parent.dirtyChildren, childRef{
			ref:     weak.Make(child),
			version: child.Version(),
		})
		child.notifiedUp = true
		child = parent
	}
}

// AppendChild attaches c as the last child of n. A child attached elsewhere
// is detached first. Pending dirt in c's subtree is propagated to n.
func (n *Node) AppendChild(c *Node) {
	n.InsertChild(len(n.children), c)
}

// InsertChild attaches c at index i. It panics if c is n or one of n's
// ancestors.
func (n *Node) InsertChild(i int, c *Node) {
	for a := n; a != nil; a = a.parent.Value() {
		if a == c {
			panic("binding: node cannot be attached below itself")
		}
	}
	c.Detach()
	if i < 0 || i > len(n.children) {
		i = len(n.children)
	}
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = c

	c.parent = weak.Make(n)
	c.notifiedUp = false
	if c.NeedsExecute() {
		c.propagate()
	}
}

// RemoveChild detaches c from n. It reports false if c was not a child.
func (n *Node) RemoveChild(c *Node) bool {
	idx := -1
	for i, child := range n.children {
		if child == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	copy(n.children[idx:], n.children[idx+1:])
	n.children[len(n.children)-1] = nil
	n.children = n.children[:len(n.children)-1]

	if c.notifiedUp {
		n.dropDirtyChild(c)
	}
	c.parent = weak.Pointer[Node]{}
	c.notifiedUp = false
	return true
}

func (n *Node) dropDirtyChild(c *Node) {
	kept := n.dirtyChildren[:0]
	for _, ref := range n.dirtyChildren {
		if ref.ref.Value() != c {
			kept = append(kept, ref)
		}
	}
	clear(n.dirtyChildren[len(kept):])
	n.dirtyChildren = kept
}

// Detach removes the node from its parent, if any.
func (n *Node) Detach() {
	if p := n.parent.Value(); p != nil {
		p.RemoveChild(n)
	}
	n.parent = weak.Pointer[Node]{}
	n.notifiedUp = false
}

// Reset returns the node to a fresh, detached state: dependencies dropped,
// version bumped, children released and flags cleared. Stale dirty records
// elsewhere that still mention the node are ignored from then on.
func (n *Node) Reset() {
	n.Detach()
	for _, c := range n.children {
		c.parent = weak.Pointer[Node]{}
		c.notifiedUp = false
	}
	clear(n.children)
	n.children = n.children[:0]
	clear(n.dirtyChildren)
	n.dirtyChildren = n.dirtyChildren[:0]

	n.Handle.Reset()
	n.render = nil
	n.name = ""
	n.dirtySelf = true
	n.firstRender = true
	n.branches = branchSet{}
	n.lastErr = nil
}
