package score

import (
	"fmt"
	"math"
	"sort"

	"github.com/dimenwarper/rootsearch/internal/core/assemble"
	"github.com/dimenwarper/rootsearch/internal/core/model"
)

// Weights for the composite leverage index. Must sum to 1.0 within 1e-6.
type Weights struct {
	Cascade    float64
	CrossField float64
	Bottleneck float64
}

func DefaultWeights() Weights {
	return Weights{Cascade: 0.45, CrossField: 0.30, Bottleneck: 0.25}
}

func (w Weights) Validate() error {
	if w.Cascade < 0 || w.CrossField < 0 || w.Bottleneck < 0 {
		return fmt.Errorf("%w: leverage weights must be non-negative", model.ErrInvalidConfiguration)
	}
	sum := w.Cascade + w.CrossField + w.Bottleneck
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("%w: leverage weights sum to %v, want 1.0", model.ErrInvalidConfiguration, sum)
	}
	return nil
}

// Params bundles the scoring knobs.
type Params struct {
	Damping       float64
	Tolerance     float64
	MaxIterations int
	Weights       Weights
}

func DefaultParams() Params {
	return Params{
		Damping:       0.85,
		Tolerance:     1e-6,
		MaxIterations: 100,
		Weights:       DefaultWeights(),
	}
}

// RankedNode is one row of the primary ranking artifact.
type RankedNode struct {
	ID            string  `json:"node_id"`
	Title         string  `json:"title"`
	Cascade       float64 `json:"cascade_score"`
	CrossField    float64 `json:"cross_field_score"`
	Bottleneck    float64 `json:"bottleneck_score"`
	LeverageIndex float64 `json:"leverage_index"`
	Rank          int     `json:"rank"`
	Confidence    float64 `json:"-"`
}

// Result is the full scored node set, sorted descending by leverage.
type Result struct {
	Ranked            []RankedNode
	CascadeIterations int
	CascadeConverged  bool // false = iteration cap hit, reported as a quality flag
}

// Rank validates the weights, computes all three components over the
// immutable graph snapshot and returns the full node set sorted by
// leverage index. Ties break by higher confidence, then lexicographic id,
// so rankings are deterministic. Component scores are also attached to
// the graph's nodes.
func Rank(g *assemble.Graph, p Params) (*Result, error) {
	if err := p.Weights.Validate(); err != nil {
		return nil, err
	}

	cascade := Cascade(g, p.Damping, p.Tolerance, p.MaxIterations)
	crossField := CrossField(g)
	bottleneck := Bottleneck(g)

	ranked := make([]RankedNode, 0, g.Order())
	for i := 0; i < g.Order(); i++ {
		node := g.Node(i)
		c := cascade.Scores[node.ID]
		cf := crossField[node.ID]
		bt := bottleneck[node.ID]
		ranked = append(ranked, RankedNode{
			ID:            node.ID,
			Title:         node.Title,
			Cascade:       c,
			CrossField:    cf,
			Bottleneck:    bt,
			LeverageIndex: p.Weights.Cascade*c + p.Weights.CrossField*cf + p.Weights.Bottleneck*bt,
			Confidence:    node.Confidence,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].LeverageIndex != ranked[j].LeverageIndex {
			return ranked[i].LeverageIndex > ranked[j].LeverageIndex
		}
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].ID < ranked[j].ID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
		if idx, ok := g.NodeIndex(ranked[i].ID); ok {
			g.Node(idx).Scores = &model.NodeScores{
				Cascade:       ranked[i].Cascade,
				CrossField:    ranked[i].CrossField,
				Bottleneck:    ranked[i].Bottleneck,
				LeverageIndex: ranked[i].LeverageIndex,
				Rank:          ranked[i].Rank,
			}
		}
	}

	return &Result{
		Ranked:            ranked,
		CascadeIterations: cascade.Iterations,
		CascadeConverged:  cascade.Converged,
	}, nil
}
