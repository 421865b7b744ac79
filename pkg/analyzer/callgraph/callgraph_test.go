package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/mcuscope/pkg/models"
)

// graphOf builds a table and relations from caller -> callees pairs.
func graphOf(edges map[string][]string) (models.FunctionTable, []models.CallRelation) {
	table := make(models.FunctionTable)
	var rels []models.CallRelation
	for caller, callees := range edges {
		table.Add(models.NewFunctionInfo(caller, caller+".c", 1))
		for _, callee := range callees {
			table.Add(models.NewFunctionInfo(callee, callee+".c", 1))
		}
	}
	for _, caller := range table.Names() {
		for _, callee := range edges[caller] {
			rels = append(rels, models.CallRelation{Caller: caller, Callee: callee, Type: models.CallDirect})
		}
	}
	return table, rels
}

func TestBuildAdjacency(t *testing.T) {
	rels := []models.CallRelation{
		{Caller: "main", Callee: "init"},
		{Caller: "main", Callee: "init"},
		{Caller: "main", Callee: "loop"},
		{Caller: "loop", Callee: "loop"},
	}
	adj := BuildAdjacency(rels)

	assert.Equal(t, []string{"init", "loop"}, adj["main"].Sorted())
	assert.True(t, adj["loop"].Has("loop"))
	assert.Equal(t, 3, adj.Edges())
	assert.Empty(t, BuildAdjacency(nil))
}

func TestReachableFrom_Cycle(t *testing.T) {
	table, rels := graphOf(map[string][]string{
		"main":   {"alpha"},
		"alpha":  {"beta"},
		"beta":   {"main"},
		"orphan": {"alpha"},
	})
	got, ok := ReachableFrom("main", table, BuildAdjacency(rels))

	require.True(t, ok)
	assert.Equal(t, []string{"alpha", "beta", "main"}, got.Sorted())
}

func TestReachableFrom_MissingEntry(t *testing.T) {
	table, rels := graphOf(map[string][]string{"start": {"run"}})
	got, ok := ReachableFrom("main", table, BuildAdjacency(rels))

	assert.False(t, ok)
	assert.Zero(t, got.Len())
}

func TestReachableFrom_EntryOnly(t *testing.T) {
	table := make(models.FunctionTable)
	table.Add(models.NewFunctionInfo("main", "main.c", 1))
	got, ok := ReachableFrom("main", table, nil)

	assert.True(t, ok)
	assert.Equal(t, []string{"main"}, got.Sorted())
}

func TestRestrict(t *testing.T) {
	adj := Adjacency{
		"main":   models.NewSet("run"),
		"orphan": models.NewSet("run"),
	}
	got := adj.Restrict(models.NewSet("main", "run"))
	assert.Len(t, got, 1)
	assert.Contains(t, got, "main")
}

func TestBuildTree_Diamond(t *testing.T) {
	table, rels := graphOf(map[string][]string{
		"main": {"xray", "yank"},
		"xray": {"zulu"},
		"yank": {"zulu"},
	})
	tree := BuildTree("main", table, BuildAdjacency(rels), 3)

	require.NotNil(t, tree.Root)
	require.Len(t, tree.Root.Children, 2)
	for _, child := range tree.Root.Children {
		require.Len(t, child.Children, 1, child.Name)
		assert.Equal(t, "zulu", child.Children[0].Name)
		assert.Equal(t, 2, child.Children[0].Depth)
	}

	n, depth := TreeStats(tree)
	assert.Equal(t, 4, n)
	assert.Equal(t, 2, depth)
}

func TestBuildTree_DepthLimit(t *testing.T) {
	table, rels := graphOf(map[string][]string{
		"main": {"one"},
		"one":  {"two"},
		"two":  {"three"},
	})
	adj := BuildAdjacency(rels)

	tree := BuildTree("main", table, adj, 2)
	require.Len(t, tree.Root.Children, 1)
	assert.Empty(t, tree.Root.Children[0].Children)

	tree = BuildTree("main", table, adj, 0)
	assert.Equal(t, 1, tree.MaxDepth)
	assert.Empty(t, tree.Root.Children)
}

func TestBuildTree_SelfCallAndCycle(t *testing.T) {
	table, rels := graphOf(map[string][]string{
		"main":    {"recurse", "ping"},
		"recurse": {"recurse"},
		"ping":    {"pong"},
		"pong":    {"ping", "main"},
	})
	tree := BuildTree("main", table, BuildAdjacency(rels), 10)

	require.Len(t, tree.Root.Children, 2)
	ping := tree.Root.Children[0]
	rec := tree.Root.Children[1]
	assert.Equal(t, "ping", ping.Name)
	assert.Equal(t, "recurse", rec.Name)
	assert.Empty(t, rec.Children)

	require.Len(t, ping.Children, 1)
	assert.Equal(t, "pong", ping.Children[0].Name)
	assert.Empty(t, ping.Children[0].Children)
}

func TestBuildTree_MissingEntry(t *testing.T) {
	tree := BuildTree("main", make(models.FunctionTable), nil, 5)
	assert.Nil(t, tree.Root)
	assert.Equal(t, "", Render(tree))

	n, depth := TreeStats(tree)
	assert.Zero(t, n)
	assert.Zero(t, depth)
}

func TestRender(t *testing.T) {
	table, rels := graphOf(map[string][]string{
		"main": {"init", "loop"},
		"init": {"clock"},
	})
	tree := BuildTree("main", table, BuildAdjacency(rels), 5)

	want := "main function (program entry)\n" +
		"  |- init\n" +
		"    |- clock\n" +
		"  |- loop\n"
	assert.Equal(t, want, Render(tree))
}

func TestFindRecursion(t *testing.T) {
	adj := Adjacency{
		"main": models.NewSet("fact", "ping"),
		"fact": models.NewSet("fact"),
		"ping": models.NewSet("pong"),
		"pong": models.NewSet("ping"),
		"odd":  models.NewSet("even"),
		"even": models.NewSet("odd", "even"),
	}
	rec := FindRecursion(adj)

	assert.Equal(t, []string{"even", "fact"}, rec.SelfRecursive)
	assert.Equal(t, [][]string{{"even", "odd"}, {"ping", "pong"}}, rec.Cycles)
}

func TestFindRecursion_Empty(t *testing.T) {
	rec := FindRecursion(nil)
	assert.Empty(t, rec.SelfRecursive)
	assert.Empty(t, rec.Cycles)
}
