// Package binding maintains a tree of binding nodes and re-renders only the
// parts of it whose reactive dependencies changed.
//
// A node's render callback runs inside an observed region, so every
// reactive.Field or reactive.Lazy it reads makes the node a dependent. When
// one of those values changes, the node is marked dirty and the mark is
// bubbled to the root through weak parent references. Each ancestor learns
// about a dirty descendant at most once per pass, so a burst of writes costs
// O(depth) amortized.
//
// Execute walks only the dirty paths, rendering a node before its children:
//
//	rt := reactive.New()
//	tree := binding.NewTree(rt)
//	root := tree.NewNode("root", renderRoot)
//	root.AppendChild(tree.NewNode("label", renderLabel))
//
//	for range ticker.C {
//	    tree.Execute(root)
//	}
//
// Pipeline wraps Execute with tracing and frame metrics.
package binding
