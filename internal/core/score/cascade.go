// Package score computes cascade, cross-field and bottleneck scores over
// the assembled graph and ranks nodes by the composite leverage index.
// All functions treat the graph as an immutable snapshot.
package score

import (
	"math"

	"github.com/dimenwarper/rootsearch/internal/core/assemble"
)

// CascadeResult carries both the raw damped scores (floor 1.0 for every
// node) and the normalized scores used in the composite.
type CascadeResult struct {
	Scores     map[string]float64 // normalized to [0,1] by the max raw score
	Raw        map[string]float64 // 1.0 + damping * cascade contribution
	Iterations int
	Converged  bool // false means the iteration cap was hit; a quality flag, not an error
}

// Cascade runs the damped fixed-point propagation. Every node starts at
// importance 1.0; each iteration a node accumulates strength x confidence
// x importance over its outbound edges, and its importance becomes
// 1 + damping * accumulation. The cap exists because cycles can prevent
// strict convergence; hitting it still returns finite, usable scores.
func Cascade(g *assemble.Graph, damping, tolerance float64, maxIterations int) *CascadeResult {
	n := g.Order()

	importance := make([]float64, n)
	for i := range importance {
		importance[i] = 1.0
	}
	scores := make([]float64, n)
	newScores := make([]float64, n)

	result := &CascadeResult{
		Scores: make(map[string]float64, n),
		Raw:    make(map[string]float64, n),
	}

	for iter := 0; iter < maxIterations; iter++ {
		result.Iterations = iter + 1

		for i := 0; i < n; i++ {
			sum := 0.0
			for _, ei := range g.OutEdges(i) {
				e := g.Edge(ei)
				sum += e.Weight() * importance[g.TargetIndex(ei)]
			}
			newScores[i] = sum
		}

		delta := 0.0
		for i := 0; i < n; i++ {
			if d := math.Abs(newScores[i] - scores[i]); d > delta {
				delta = d
			}
			importance[i] = 1.0 + damping*newScores[i]
		}
		scores, newScores = newScores, scores

		if delta < tolerance {
			result.Converged = true
			break
		}
	}

	maxRaw := 0.0
	for i := 0; i < n; i++ {
		result.Raw[g.Node(i).ID] = importance[i]
		if importance[i] > maxRaw {
			maxRaw = importance[i]
		}
	}
	for id, raw := range result.Raw {
		if maxRaw > 0 {
			result.Scores[id] = raw / maxRaw
		}
	}
	return result
}
