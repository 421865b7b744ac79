// Package callgraph folds call relations into an adjacency map and answers
// reachability, bounded call-tree and recursion queries over it.
package callgraph

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/mcuscope/pkg/models"
)

// Adjacency maps a caller to the set of functions it calls.
type Adjacency map[string]models.Set

// BuildAdjacency folds relations into an adjacency map. Repeated relations
// collapse into one edge; self-edges are kept.
func BuildAdjacency(relations []models.CallRelation) Adjacency {
	adj := make(Adjacency)
	for _, r := range relations {
		callees, ok := adj[r.Caller]
		if !ok {
			callees = make(models.Set)
			adj[r.Caller] = callees
		}
		callees.Add(r.Callee)
	}
	return adj
}

// Edges returns the number of distinct caller/callee pairs.
func (a Adjacency) Edges() int {
	n := 0
	for _, callees := range a {
		n += callees.Len()
	}
	return n
}

// Restrict returns the part of the adjacency whose callers are in keep.
func (a Adjacency) Restrict(keep models.Set) Adjacency {
	out := make(Adjacency)
	for caller, callees := range a {
		if keep.Has(caller) {
			out[caller] = callees.Clone()
		}
	}
	return out
}

// ReachableFrom returns every function reachable from entry, entry included,
// by breadth-first traversal. The second result is false, with an empty set,
// when entry is not in the table.
func ReachableFrom(entry string, table models.FunctionTable, adj Adjacency) (models.Set, bool) {
	if !table.Has(entry) {
		return make(models.Set), false
	}

	names := table.Names()
	index := make(map[string]uint32, len(names))
	for i, n := range names {
		index[n] = uint32(i)
	}

	visited := roaring.New()
	start := index[entry]
	visited.Add(start)

	// Index-based queue avoids reslicing on every dequeue.
	queue := make([]uint32, 1, len(names))
	queue[0] = start
	for head := 0; head < len(queue); head++ {
		for callee := range adj[names[queue[head]]] {
			idx, ok := index[callee]
			if !ok || visited.Contains(idx) {
				continue
			}
			visited.Add(idx)
			queue = append(queue, idx)
		}
	}

	out := make(models.Set, visited.GetCardinality())
	it := visited.Iterator()
	for it.HasNext() {
		out.Add(names[it.Next()])
	}
	return out, true
}
