// Package assess scores the top-ranked nodes on four decomposability
// axes through the external oracle.
package assess

import (
	"context"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/dimenwarper/rootsearch/internal/core/assemble"
	"github.com/dimenwarper/rootsearch/internal/core/model"
	"github.com/dimenwarper/rootsearch/internal/core/score"
	"github.com/dimenwarper/rootsearch/internal/oracle"
)

// Assessment is the per-node outcome. Oracle failure marks the node
// unassessed without blocking the rest.
type Assessment struct {
	NodeID     string                        `json:"node_id"`
	Rank       int                           `json:"rank"`
	Scores     *oracle.DecomposabilityScores `json:"scores,omitempty"`
	Composite  float64                       `json:"composite"`
	Unassessed bool                          `json:"unassessed,omitempty"`
	Reason     string                        `json:"reason,omitempty"`
}

type Assessor struct {
	Oracle  oracle.Oracle
	TopK    int
	Workers int
	Logger  *log.Logger
}

// AssessTop runs the oracle over the top-K ranked nodes with bounded
// concurrency, handing each node its immediate enabled set for context.
func (a *Assessor) AssessTop(ctx context.Context, g *assemble.Graph, ranked []score.RankedNode) []Assessment {
	k := a.TopK
	if k <= 0 || k > len(ranked) {
		k = len(ranked)
	}
	top := ranked[:k]

	assessments := make([]Assessment, len(top))

	workers := a.Workers
	if workers < 1 {
		workers = 1
	}
	g2, gctx := errgroup.WithContext(ctx)
	g2.SetLimit(workers)

	for i, rn := range top {
		g2.Go(func() error {
			assessments[i] = a.assessOne(gctx, g, rn)
			return nil
		})
	}
	_ = g2.Wait()

	return assessments
}

func (a *Assessor) assessOne(ctx context.Context, g *assemble.Graph, rn score.RankedNode) Assessment {
	out := Assessment{NodeID: rn.ID, Rank: rn.Rank}

	idx, ok := g.NodeIndex(rn.ID)
	if !ok {
		out.Unassessed = true
		out.Reason = "node not in graph"
		return out
	}
	node := *g.Node(idx)

	var enabled []model.CanonicalNode
	for _, ei := range g.OutEdges(idx) {
		enabled = append(enabled, *g.Node(g.TargetIndex(ei)))
	}

	if a.Oracle == nil {
		out.Unassessed = true
		out.Reason = model.ErrOracleUnavailable.Error()
		return out
	}

	scores, err := a.Oracle.Assess(ctx, node, enabled)
	if err != nil {
		if a.Logger != nil {
			a.Logger.Warn("assessment failed, recording node as unassessed", "node", rn.ID, "err", err)
		}
		out.Unassessed = true
		out.Reason = err.Error()
		return out
	}

	out.Scores = scores
	out.Composite = scores.Composite()
	return out
}
