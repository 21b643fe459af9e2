package score

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimenwarper/rootsearch/internal/core/model"
)

func TestRankRejectsBadWeights(t *testing.T) {
	g := buildGraph(t, []model.CanonicalNode{node("a")}, nil)

	p := DefaultParams()
	p.Weights = Weights{Cascade: 0.5, CrossField: 0.3, Bottleneck: 0.3}

	_, err := Rank(g, p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidConfiguration))
}

func TestWeightsValidate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())
	// Within the 1e-6 tolerance.
	assert.NoError(t, Weights{Cascade: 0.45, CrossField: 0.3, Bottleneck: 0.2500000001}.Validate())
	assert.Error(t, Weights{Cascade: 1.2, CrossField: -0.1, Bottleneck: -0.1}.Validate())
}

func TestRankOrdersByLeverage(t *testing.T) {
	// hub enables two downstream problems in other fields; the sinks
	// trail it on every component.
	g := buildGraph(t,
		[]model.CanonicalNode{
			node("hub", "physics.optics"),
			node("sink1", "bio.imaging"),
			node("sink2", "chem.synthesis"),
		},
		[]model.Edge{
			edge("hub", "sink1", 0.9, 0.9),
			edge("hub", "sink2", 0.9, 0.9),
		},
	)

	result, err := Rank(g, DefaultParams())
	require.NoError(t, err)
	require.Len(t, result.Ranked, 3)

	assert.Equal(t, "hub", result.Ranked[0].ID)
	assert.Equal(t, 1, result.Ranked[0].Rank)
	assert.True(t, result.CascadeConverged)

	// Component scores land back on the graph nodes.
	idx, ok := g.NodeIndex("hub")
	require.True(t, ok)
	require.NotNil(t, g.Node(idx).Scores)
	assert.Equal(t, 1, g.Node(idx).Scores.Rank)
}

func TestRankTieBreaks(t *testing.T) {
	// Four isolated nodes score identically on every component; ties
	// break by confidence descending, then id ascending.
	nodes := []model.CanonicalNode{
		{ID: "m", Type: model.NodeOpenProblem, Title: "m", Confidence: 0.5},
		{ID: "z", Type: model.NodeOpenProblem, Title: "z", Confidence: 0.9},
		{ID: "a", Type: model.NodeOpenProblem, Title: "a", Confidence: 0.5},
		{ID: "k", Type: model.NodeOpenProblem, Title: "k", Confidence: 0.5},
	}
	g := buildGraph(t, nodes, nil)

	result, err := Rank(g, DefaultParams())
	require.NoError(t, err)

	ids := make([]string, 0, 4)
	for _, rn := range result.Ranked {
		ids = append(ids, rn.ID)
	}
	assert.Equal(t, []string{"z", "a", "k", "m"}, ids)
	for i, rn := range result.Ranked {
		assert.Equal(t, i+1, rn.Rank)
	}
}
