package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dimenwarper/rootsearch/internal/core/model"
)

func TestBottleneckPathCenter(t *testing.T) {
	// a -> b -> c: b sits on the only a-to-c shortest path. One pair out
	// of (n-1)(n-2) = 2 gives 0.5 after normalization.
	g := buildGraph(t,
		[]model.CanonicalNode{node("a"), node("b"), node("c")},
		[]model.Edge{edge("a", "b", 0.9, 0.9), edge("b", "c", 0.9, 0.9)},
	)

	scores := Bottleneck(g)
	assert.InDelta(t, 0.5, scores["b"], 1e-9)
	assert.InDelta(t, 0.0, scores["a"], 1e-9)
	assert.InDelta(t, 0.0, scores["c"], 1e-9)
}

func TestBottleneckPrefersStrongPath(t *testing.T) {
	// Two routes from a to d. The strong route through b is shorter
	// (length 1/weight per edge), so only b accrues centrality.
	g := buildGraph(t,
		[]model.CanonicalNode{node("a"), node("b"), node("c"), node("d")},
		[]model.Edge{
			edge("a", "b", 0.9, 1.0),
			edge("b", "d", 0.9, 1.0),
			edge("a", "c", 0.3, 1.0),
			edge("c", "d", 0.3, 1.0),
		},
	)

	scores := Bottleneck(g)
	assert.Greater(t, scores["b"], 0.0)
	assert.InDelta(t, 0.0, scores["c"], 1e-9)
}

func TestBottleneckIgnoresProducesForEdges(t *testing.T) {
	producesFor := func(src, tgt string) model.Edge {
		return model.Edge{ID: src + "->" + tgt, Type: model.EdgeProducesFor,
			SourceID: src, TargetID: tgt, Strength: 0.9, Confidence: 0.9}
	}
	g := buildGraph(t,
		[]model.CanonicalNode{node("a"), node("b"), node("c")},
		[]model.Edge{producesFor("a", "b"), producesFor("b", "c")},
	)

	scores := Bottleneck(g)
	for id, v := range scores {
		assert.InDelta(t, 0.0, v, 1e-9, "node %s", id)
	}
}

func TestBottleneckDisconnectedComponents(t *testing.T) {
	// Unreachable pairs contribute nothing; the computation must not
	// blow up on infinities.
	g := buildGraph(t,
		[]model.CanonicalNode{node("a"), node("b"), node("c"), node("d")},
		[]model.Edge{edge("a", "b", 0.9, 0.9), edge("c", "d", 0.9, 0.9)},
	)

	scores := Bottleneck(g)
	for id, v := range scores {
		assert.InDelta(t, 0.0, v, 1e-9, "node %s", id)
	}
}

func TestBottleneckSplitShortestPaths(t *testing.T) {
	// Two equal-length routes a->x->d and a->y->d split the dependency:
	// each middle node carries half of the single pair.
	g := buildGraph(t,
		[]model.CanonicalNode{node("a"), node("x"), node("y"), node("d")},
		[]model.Edge{
			edge("a", "x", 0.8, 1.0),
			edge("x", "d", 0.8, 1.0),
			edge("a", "y", 0.8, 1.0),
			edge("y", "d", 0.8, 1.0),
		},
	)

	scores := Bottleneck(g)
	// n=4: norm = 3*2 = 6; each middle gets 0.5/6.
	assert.InDelta(t, 0.5/6.0, scores["x"], 1e-9)
	assert.InDelta(t, 0.5/6.0, scores["y"], 1e-9)
}
