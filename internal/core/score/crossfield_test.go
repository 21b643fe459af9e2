package score

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dimenwarper/rootsearch/internal/core/model"
)

func TestCrossFieldDepthDiscount(t *testing.T) {
	// physics -> bio -> chem. The physics node reaches bio at hop 1
	// (weight 1/2) and chem at hop 2 (weight 1/3).
	g := buildGraph(t,
		[]model.CanonicalNode{
			node("a", "physics.optics"),
			node("b", "bio.imaging"),
			node("c", "chem.synthesis"),
		},
		[]model.Edge{edge("a", "b", 0.9, 0.9), edge("b", "c", 0.9, 0.9)},
	)

	scores := CrossField(g)

	// Raw: a = 1/2 + 1/3, b = 1/2, c = 0; normalized by a's score.
	assert.InDelta(t, 1.0, scores["a"], 1e-9)
	assert.InDelta(t, (1.0/2.0)/(1.0/2.0+1.0/3.0), scores["b"], 1e-9)
	assert.InDelta(t, 0.0, scores["c"], 1e-9)
}

func TestCrossFieldOwnDomainExcluded(t *testing.T) {
	// A cycle within one field spans nothing.
	g := buildGraph(t,
		[]model.CanonicalNode{node("a", "physics.optics"), node("b", "physics.lasers")},
		[]model.Edge{edge("a", "b", 0.9, 0.9), edge("b", "a", 0.9, 0.9)},
	)

	scores := CrossField(g)
	assert.InDelta(t, 0.0, scores["a"], 1e-9)
	assert.InDelta(t, 0.0, scores["b"], 1e-9)
}

func TestCrossFieldFirstVisitWins(t *testing.T) {
	// Two routes to bio: direct (hop 1) and through an intermediate
	// (hop 2). The domain counts once at its shallowest depth.
	g := buildGraph(t,
		[]model.CanonicalNode{
			node("a", "physics.optics"),
			node("b", "bio.imaging"),
			node("mid", "physics.detectors"),
			node("deep", "bio.microscopy"),
		},
		[]model.Edge{
			edge("a", "b", 0.9, 0.9),
			edge("a", "mid", 0.9, 0.9),
			edge("mid", "deep", 0.9, 0.9),
		},
	)

	scores := CrossField(g)
	// a sees bio at hop 1 only: raw 1/2. mid sees bio at hop 1: raw 1/2.
	assert.InDelta(t, scores["a"], scores["mid"], 1e-9)
}

func TestCrossFieldUntaggedGraph(t *testing.T) {
	g := buildGraph(t,
		[]model.CanonicalNode{node("a"), node("b")},
		[]model.Edge{edge("a", "b", 0.9, 0.9)},
	)

	scores := CrossField(g)
	assert.InDelta(t, 0.0, scores["a"], 1e-9)
	assert.InDelta(t, 0.0, scores["b"], 1e-9)
}
