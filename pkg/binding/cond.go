package binding

import "math/bits"

// branchSet records which of a node's conditional branches have rendered.
type branchSet struct {
	count int
	seen  uint64
}

func (b branchSet) covered() bool {
	return b.count > 0 && bits.OnesCount64(b.seen) == b.count
}

// TrackBranches declares that the node's render takes one of count
// branches. Until every branch has rendered at least once the node keeps
// every dependency it has ever read; afterwards it becomes passive and
// stops re-registering on each render.
func (n *Node) TrackBranches(count int) {
	if count <= 0 || count > 64 {
		panic("binding: branch count must be between 1 and 64")
	}
	n.branches = branchSet{count: count}
	n.SetPassive(false)
	n.SetRetainEdges(true)
}

// TakeBranch records that branch i rendered successfully. It reports
// whether this was the first time.
func (n *Node) TakeBranch(i int) bool {
	if i < 0 || i >= n.branches.count {
		return false
	}
	mask := uint64(1) << i
	if n.branches.seen&mask != 0 {
		return false
	}
	n.branches.seen |= mask
	return true
}

// BranchesCovered reports whether every declared branch has rendered.
func (n *Node) BranchesCovered() bool {
	return n.branches.covered()
}

// promoteIfCovered switches a fully covered node to passive. The edges kept
// so far are the union of all branches, which is the complete set.
func (n *Node) promoteIfCovered() {
	if n.IsPassive() || !n.branches.covered() {
		return
	}
	n.SetPassive(true)
	n.SetRetainEdges(false)
	n.tree.metrics.Promoted()
	n.tree.logger.Debug("node promoted to passive", "node", n.name, "deps", n.Dependencies())
}

// NewCond creates a node that renders then when cond is true and otherwise
// when it is false. cond is read inside the node's region, so both the
// condition and the branch taken are dependencies. After both branches have
// rendered the node becomes passive.
func (t *Tree) NewCond(name string, cond func() bool, then, otherwise RenderFunc) *Node {
	n := t.NewNode(name, nil)
	n.TrackBranches(2)
	n.render = func(n *Node) error {
		branch, fn := 1, otherwise
		if cond() {
			branch, fn = 0, then
		}
		var err error
		if fn != nil {
			err = fn(n)
		}
		if err == nil {
			n.TakeBranch(branch)
			n.promoteIfCovered()
		}
		return err
	}
	return n
}

// NewSwitch creates a node with count branches. pick returns the branch to
// render; it is read inside the node's region like NewCond's condition.
func (t *Tree) NewSwitch(name string, pick func() int, branches ...RenderFunc) *Node {
	n := t.NewNode(name, nil)
	n.TrackBranches(len(branches))
	n.render = func(n *Node) error {
		i := pick()
		if i < 0 || i >= len(branches) {
			return nil
		}
		var err error
		if fn := branches[i]; fn != nil {
			err = fn(n)
		}
		if err == nil {
			n.TakeBranch(i)
			n.promoteIfCovered()
		}
		return err
	}
	return n
}
