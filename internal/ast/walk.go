package ast

// Visitor is called for every node in pre-order. Returning false skips the
// children of n.
type Visitor func(n Node) bool

// Walk visits nodes and their children in source order.
func Walk(nodes []Node, v Visitor) {
	for _, n := range nodes {
		if !v(n) {
			continue
		}
		Walk(Children(n), v)
	}
}

// Children returns the nested nodes of n.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *ClassDef:
		return n.Body
	case *MethodDef:
		return n.Body
	case *ConstAssign:
		return n.Value
	case *Send:
		return n.Block
	}
	return nil
}

// Count returns the number of nodes in the tree.
func Count(nodes []Node) int {
	total := 0
	Walk(nodes, func(Node) bool {
		total++
		return true
	})
	return total
}
