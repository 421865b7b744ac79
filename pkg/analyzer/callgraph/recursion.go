package callgraph

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/panbanda/mcuscope/pkg/models"
)

// FindRecursion reports self-recursive functions and groups of mutually
// recursive functions (strongly connected components of two or more nodes).
// All lists are sorted.
func FindRecursion(adj Adjacency) models.Recursion {
	rec := models.Recursion{SelfRecursive: []string{}, Cycles: [][]string{}}

	names := make(models.Set)
	for caller, callees := range adj {
		names.Add(caller)
		names.Union(callees)
		if callees.Has(caller) {
			rec.SelfRecursive = append(rec.SelfRecursive, caller)
		}
	}
	sort.Strings(rec.SelfRecursive)

	sorted := names.Sorted()
	ids := make(map[string]int64, len(sorted))
	g := simple.NewDirectedGraph()
	for i, n := range sorted {
		ids[n] = int64(i)
		g.AddNode(simple.Node(int64(i)))
	}
	for _, caller := range sorted {
		for callee := range adj[caller] {
			// simple graphs reject self loops; those are reported above.
			if callee == caller {
				continue
			}
			g.SetEdge(simple.Edge{F: simple.Node(ids[caller]), T: simple.Node(ids[callee])})
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		group := make([]string, len(scc))
		for i, n := range scc {
			group[i] = sorted[n.ID()]
		}
		sort.Strings(group)
		rec.Cycles = append(rec.Cycles, group)
	}
	sort.Slice(rec.Cycles, func(i, j int) bool { return rec.Cycles[i][0] < rec.Cycles[j][0] })
	return rec
}
