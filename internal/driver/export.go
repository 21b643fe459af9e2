package driver

import (
	"context"
	"fmt"

	"github.com/dimenwarper/rootsearch/internal/core/assemble"
)

// Export writes every node and edge of a scored graph, then the hierarchy
// links. Nodes go first so edge MATCH clauses can bind both endpoints.
func Export(ctx context.Context, d GraphDriver, g *assemble.Graph) error {
	for i := 0; i < g.Order(); i++ {
		n := g.Node(i)
		params := map[string]interface{}{
			"node_id":      n.ID,
			"type":         string(n.Type),
			"granularity":  string(n.Granularity),
			"title":        n.Title,
			"description":  n.Description,
			"fields":       n.Fields,
			"status":       string(n.Status),
			"confidence":   n.Confidence,
			"needs_review": n.NeedsReview,
			"created_at":   n.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),

			"cascade_score":     nil,
			"cross_field_score": nil,
			"bottleneck_score":  nil,
			"leverage_index":    nil,
			"rank":              nil,
		}
		if n.Scores != nil {
			params["cascade_score"] = n.Scores.Cascade
			params["cross_field_score"] = n.Scores.CrossField
			params["bottleneck_score"] = n.Scores.Bottleneck
			params["leverage_index"] = n.Scores.LeverageIndex
			params["rank"] = n.Scores.Rank
		}
		if _, err := d.ExecuteQuery(ctx, SaveProblemNodeQuery, params); err != nil {
			return fmt.Errorf("failed to save node %s: %w", n.ID, err)
		}
	}

	for ei := 0; ei < g.Size(); ei++ {
		e := g.Edge(ei)
		params := map[string]interface{}{
			"edge_id":        e.ID,
			"source_node_id": e.SourceID,
			"target_node_id": e.TargetID,
			"type":           string(e.Type),
			"strength":       e.Strength,
			"confidence":     e.Confidence,
			"mechanism":      e.Mechanism,
			"created_at":     e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if _, err := d.ExecuteQuery(ctx, SaveDependencyEdgeQuery, params); err != nil {
			return fmt.Errorf("failed to save edge %s: %w", e.ID, err)
		}
	}

	for i := 0; i < g.Order(); i++ {
		n := g.Node(i)
		for _, childID := range n.ChildrenIDs {
			if _, ok := g.NodeIndex(childID); !ok {
				continue
			}
			params := map[string]interface{}{
				"parent_id": n.ID,
				"child_id":  childID,
			}
			if _, err := d.ExecuteQuery(ctx, SaveHierarchyEdgeQuery, params); err != nil {
				return fmt.Errorf("failed to link %s -> %s: %w", n.ID, childID, err)
			}
		}
	}

	return nil
}
