package callgraph

import (
	"strings"

	"github.com/panbanda/mcuscope/pkg/models"
)

// BuildTree returns the call tree rooted at entry. A node at depth d is only
// created when d < maxDepth, so maxDepth counts levels including the root.
// Each branch carries its own copy of the names on its path: a function may
// appear under several parents but never twice on one path, and never as its
// own child. The tree has a nil root when entry is not in the table.
func BuildTree(entry string, table models.FunctionTable, adj Adjacency, maxDepth int) *models.CallTree {
	if maxDepth < 1 {
		maxDepth = 1
	}
	tree := &models.CallTree{MaxDepth: maxDepth}
	if !table.Has(entry) {
		return tree
	}
	tree.Root = buildNode(entry, 0, models.NewSet(entry), table, adj, maxDepth)
	return tree
}

func buildNode(name string, depth int, path models.Set, table models.FunctionTable, adj Adjacency, maxDepth int) *models.CallNode {
	node := &models.CallNode{Name: name, Depth: depth}
	if depth+1 >= maxDepth {
		return node
	}
	for _, callee := range adj[name].Sorted() {
		if callee == name || path.Has(callee) || !table.Has(callee) {
			continue
		}
		branch := path.Clone()
		branch.Add(callee)
		node.Children = append(node.Children, buildNode(callee, depth+1, branch, table, adj, maxDepth))
	}
	return node
}

// TreeStats returns the number of distinct functions in the tree and the
// deepest level reached. An empty tree reports zeros.
func TreeStats(tree *models.CallTree) (functions, maxDepth int) {
	if tree == nil || tree.Root == nil {
		return 0, 0
	}
	seen := make(models.Set)
	var walk func(n *models.CallNode)
	walk = func(n *models.CallNode) {
		seen.Add(n.Name)
		if n.Depth > maxDepth {
			maxDepth = n.Depth
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(tree.Root)
	return seen.Len(), maxDepth
}

// Render formats the tree as indented plain text:
//
//	main function (program entry)
//	  |- init
//	    |- clock_setup
//
// An empty tree renders as an empty string.
func Render(tree *models.CallTree) string {
	if tree == nil || tree.Root == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(tree.Root.Name)
	sb.WriteString(" function (program entry)\n")
	var walk func(n *models.CallNode)
	walk = func(n *models.CallNode) {
		for _, c := range n.Children {
			sb.WriteString(strings.Repeat("  ", c.Depth))
			sb.WriteString("|- ")
			sb.WriteString(c.Name)
			sb.WriteByte('\n')
			walk(c)
		}
	}
	walk(tree.Root)
	return sb.String()
}
