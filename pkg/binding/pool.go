package binding

// Pool recycles nodes. Released nodes are reset, which bumps their version,
// so dirty records still pointing at the old logical node are skipped.
type Pool struct {
	tree *Tree
	free []*Node
	max  int

	reused int
}

// NewPool creates a pool holding at most max idle nodes. A max of zero or
// less means unbounded.
func (t *Tree) NewPool(max int) *Pool {
	return &Pool{tree: t, max: max}
}

// Get returns a dirty, detached node with the given name and render
// callback, reusing an idle one when possible.
func (p *Pool) Get(name string, render RenderFunc) *Node {
	if n := len(p.free); n > 0 {
		node := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		node.name = name
		node.render = render
		p.reused++
		return node
	}
	return p.tree.NewNode(name, render)
}

// Put resets n and keeps it for reuse. Children are not released; use
// Release for a whole subtree.
func (p *Pool) Put(n *Node) {
	if n == nil || n.tree != p.tree {
		return
	}
	n.Reset()
	if p.max > 0 && len(p.free) >= p.max {
		return
	}
	p.free = append(p.free, n)
}

// Release detaches n and returns it and all of its descendants to the pool.
func (p *Pool) Release(n *Node) {
	if n == nil {
		return
	}
	n.Detach()
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, cur.children...)
		p.Put(cur)
	}
}

// Idle returns the number of nodes waiting for reuse.
func (p *Pool) Idle() int {
	return len(p.free)
}

// Reused returns how many Get calls were served from the pool.
func (p *Pool) Reused() int {
	return p.reused
}
