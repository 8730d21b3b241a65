package doctree

// Tree is the outline nested by level: H2 under the preceding H1, H3 under the
// preceding H2.
type Tree struct {
	Title    string
	Children []*Node
}

// Node is one heading in a Tree.
type Node struct {
	Heading  Heading
	Children []*Node
}

// Nest builds a Tree from the flat, ordered headings of an outline. A heading
// without a shallower predecessor is attached at the top level.
func Nest(o Outline) *Tree {
	type stackEntry struct {
		node  *Node
		depth int
	}

	tree := &Tree{Title: o.Title}
	root := &Node{}
	stack := []stackEntry{{node: root, depth: 0}}

	for _, h := range o.Headings {
		depth := h.Level.Depth()
		if depth == 0 {
			continue
		}
		n := &Node{Heading: h}
		for len(stack) > 1 && stack[len(stack)-1].depth >= depth {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1].node
		parent.Children = append(parent.Children, n)
		stack = append(stack, stackEntry{node: n, depth: depth})
	}

	tree.Children = root.Children
	return tree
}

// Walk visits every node depth-first in document order.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	var walk func(nodes []*Node, depth int)
	walk = func(nodes []*Node, depth int) {
		for _, n := range nodes {
			fn(n, depth)
			walk(n.Children, depth+1)
		}
	}
	walk(t.Children, 0)
}
