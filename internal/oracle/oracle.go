// Package oracle abstracts the external disambiguation and assessment
// decision-maker (an LLM in production, a deterministic double in tests).
// Callers must tolerate nondeterminism: a second call with the same input
// may return a different answer, and every call may time out.
package oracle

import (
	"context"
	"fmt"

	"github.com/dimenwarper/rootsearch/internal/core/model"
)

// HierarchyPair relates two cluster members by granularity. Both ids must
// be members of the cluster that produced the decision.
type HierarchyPair struct {
	ParentID string `json:"parent_id"`
	ChildID  string `json:"child_id"`
}

// Decision is the oracle's resolution of one similarity cluster.
type Decision struct {
	Kind                 model.DecisionKind `json:"decision"`
	CanonicalTitle       string             `json:"canonical_title,omitempty"`
	CanonicalDescription string             `json:"canonical_description,omitempty"`
	Pairs                []HierarchyPair    `json:"pairs,omitempty"`
	Rationale            string             `json:"reason,omitempty"`
}

// Validate rejects decisions the cluster resolver cannot act on. An invalid
// decision is treated the same as an unavailable oracle: the cluster falls
// back to DISTINCT with needs_review set.
func (d *Decision) Validate(memberIDs []string) error {
	switch d.Kind {
	case model.DecisionMerge, model.DecisionDistinct:
		return nil
	case model.DecisionHierarchy:
		if len(d.Pairs) == 0 {
			return fmt.Errorf("hierarchy decision with no pairs")
		}
		members := make(map[string]bool, len(memberIDs))
		for _, id := range memberIDs {
			members[id] = true
		}
		for _, p := range d.Pairs {
			if !members[p.ParentID] || !members[p.ChildID] {
				return fmt.Errorf("hierarchy pair (%s, %s) references a non-member", p.ParentID, p.ChildID)
			}
			if p.ParentID == p.ChildID {
				return fmt.Errorf("hierarchy pair links %s to itself", p.ParentID)
			}
		}
		return nil
	default:
		return fmt.Errorf("unrecognized decision kind %q", d.Kind)
	}
}

// Architecture tags the assessor may suggest for decomposing a problem.
var ValidArchitectures = map[string]bool{
	"parallel-search":         true,
	"divide-by-domain":        true,
	"divide-by-method":        true,
	"pipeline-with-branching": true,
	"adversarial-debate":      true,
	"map-reduce":              true,
}

// DecomposabilityScores are the four independent axis scores in [0,1] plus
// the suggested decomposition shape.
type DecomposabilityScores struct {
	SubtaskIndependence float64 `json:"subtask_independence"`
	Evaluability        float64 `json:"evaluability"`
	InterfaceClarity    float64 `json:"interface_clarity"`
	Recombinability     float64 `json:"recombinability"`
	Architecture        string  `json:"architecture"`
	AgentCount          int     `json:"agent_count"`
	Rationale           string  `json:"reason,omitempty"`
}

// Composite is the unweighted mean of the four axes.
func (s *DecomposabilityScores) Composite() float64 {
	return (s.SubtaskIndependence + s.Evaluability + s.InterfaceClarity + s.Recombinability) / 4.0
}

func (s *DecomposabilityScores) Validate() error {
	for name, v := range map[string]float64{
		"subtask_independence": s.SubtaskIndependence,
		"evaluability":         s.Evaluability,
		"interface_clarity":    s.InterfaceClarity,
		"recombinability":      s.Recombinability,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("axis %s=%v out of [0,1]", name, v)
		}
	}
	if s.Architecture != "" && !ValidArchitectures[s.Architecture] {
		return fmt.Errorf("unrecognized architecture %q", s.Architecture)
	}
	return nil
}

// Oracle is the narrow external decision interface. Both calls must be
// safely retryable given identical input and callable with a bounded
// timeout via ctx.
type Oracle interface {
	Disambiguate(ctx context.Context, cluster []model.CandidateNode) (*Decision, error)
	Assess(ctx context.Context, node model.CanonicalNode, enabled []model.CanonicalNode) (*DecomposabilityScores, error)
}
