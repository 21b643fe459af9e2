package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimenwarper/rootsearch/internal/core/model"
)

func canonical(id string, fields ...string) model.CanonicalNode {
	return model.CanonicalNode{ID: id, Type: model.NodeOpenProblem, Title: id, Fields: fields}
}

func enables(id, src, tgt string, strength, confidence float64) model.Edge {
	return model.Edge{ID: id, Type: model.EdgeEnables, SourceID: src, TargetID: tgt,
		Strength: strength, Confidence: confidence}
}

func TestAssembleRewritesEndpoints(t *testing.T) {
	nodes := []model.CanonicalNode{canonical("perm-a"), canonical("perm-b")}
	idMap := map[string]string{"cand-1": "perm-a", "cand-2": "perm-b"}
	edges := []model.Edge{enables("e1", "cand-1", "cand-2", 0.9, 0.9)}

	a := &Assembler{Floor: 0.15}
	g, report := a.Assemble(nodes, edges, idMap)

	require.Equal(t, 1, g.Size())
	assert.Equal(t, "perm-a", g.Edge(0).SourceID)
	assert.Equal(t, "perm-b", g.Edge(0).TargetID)
	assert.Equal(t, 0, report.DroppedDangling)
	assert.Empty(t, report.Orphans)
}

func TestAssembleDropsDanglingAndSelfLoops(t *testing.T) {
	nodes := []model.CanonicalNode{canonical("perm-a"), canonical("perm-b")}
	idMap := map[string]string{"cand-1": "perm-a", "cand-2": "perm-a"}
	edges := []model.Edge{
		enables("dangling", "cand-1", "ghost", 0.9, 0.9),
		// Both endpoints collapse onto perm-a after the merge rewrite.
		enables("loop", "cand-1", "cand-2", 0.9, 0.9),
		enables("keep", "perm-a", "perm-b", 0.9, 0.9),
	}

	a := &Assembler{Floor: 0.15}
	g, report := a.Assemble(nodes, edges, idMap)

	assert.Equal(t, 1, g.Size())
	assert.Equal(t, 1, report.DroppedDangling)
	assert.Equal(t, 1, report.DroppedSelfLoops)
}

func TestAssembleCollapsesDuplicatesKeepingMaxWeight(t *testing.T) {
	nodes := []model.CanonicalNode{canonical("perm-a"), canonical("perm-b")}
	edges := []model.Edge{
		enables("weak", "perm-a", "perm-b", 0.5, 0.6),
		enables("strong", "perm-a", "perm-b", 0.9, 0.9),
		// Different type is a different relation, not a duplicate.
		{ID: "other", Type: model.EdgeProducesFor, SourceID: "perm-a", TargetID: "perm-b",
			Strength: 0.8, Confidence: 0.8},
	}

	a := &Assembler{Floor: 0.15}
	g, report := a.Assemble(nodes, edges, nil)

	assert.Equal(t, 2, g.Size())
	assert.Equal(t, 1, report.Collapsed)

	var kept *model.Edge
	for ei := 0; ei < g.Size(); ei++ {
		if g.Edge(ei).Type == model.EdgeEnables {
			kept = g.Edge(ei)
		}
	}
	require.NotNil(t, kept)
	assert.Equal(t, "strong", kept.ID)
}

func TestAssembleFiltersBelowFloor(t *testing.T) {
	nodes := []model.CanonicalNode{canonical("perm-a"), canonical("perm-b")}
	// 0.2 * 0.5 = 0.10, below the 0.15 floor.
	edges := []model.Edge{enables("faint", "perm-a", "perm-b", 0.2, 0.5)}

	a := &Assembler{Floor: 0.15}
	g, report := a.Assemble(nodes, edges, nil)

	assert.Equal(t, 0, g.Size())
	assert.Equal(t, 1, report.DroppedBelowFloor)
	// Both endpoints end up isolated.
	assert.ElementsMatch(t, []string{"perm-a", "perm-b"}, report.Orphans)
}

func TestAssembleReportsOrphans(t *testing.T) {
	nodes := []model.CanonicalNode{canonical("perm-a"), canonical("perm-b"), canonical("perm-c")}
	edges := []model.Edge{enables("e1", "perm-a", "perm-b", 0.9, 0.9)}

	a := &Assembler{Floor: 0.15}
	g, report := a.Assemble(nodes, edges, nil)

	assert.Equal(t, []string{"perm-c"}, report.Orphans)
	assert.Equal(t, 3, g.Order())
}

func TestComputeStats(t *testing.T) {
	nodes := []model.CanonicalNode{
		canonical("perm-a", "physics.optics"),
		canonical("perm-b", "bio.imaging"),
		canonical("perm-c", "physics.lasers"),
	}
	edges := []model.Edge{
		enables("cross", "perm-a", "perm-b", 0.9, 0.9),
		enables("intra", "perm-a", "perm-c", 0.9, 0.9),
	}

	a := &Assembler{Floor: 0.15}
	g, _ := a.Assemble(nodes, edges, nil)
	stats := ComputeStats(g)

	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 2, stats.Edges)
	assert.Equal(t, 1, stats.CrossFieldEdges)
	assert.Equal(t, 2, stats.Fields["physics"])
	assert.Equal(t, 1, stats.Fields["bio"])
	assert.Equal(t, 3, stats.NodeTypes["open_problem"])
	assert.Equal(t, 0, stats.OrphanNodes)
}
