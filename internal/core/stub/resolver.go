// Package stub matches cross-domain placeholder references against the
// pool of already-resolved canonical nodes, promoting the ones nothing
// matches.
package stub

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/dimenwarper/rootsearch/internal/core/model"
	"github.com/dimenwarper/rootsearch/internal/core/similarity"
)

// PromotedConfidenceCap reflects the lower provenance quality of an
// inferred cross-field reference.
const PromotedConfidenceCap = 0.5

// RecordAppender mirrors cluster.RecordAppender; stub resolutions share
// the merge-record log.
type RecordAppender interface {
	Append(rec model.MergeRecord) error
}

// Resolver applies the stub decision rule against the canonical pool.
type Resolver struct {
	Index *similarity.Index
	Log   RecordAppender

	MatchThreshold    float64 // unique match must exceed this (default 0.85)
	RunnerUpThreshold float64 // second match above this is ambiguous (default 0.75)
	PromoteThreshold  float64 // nothing at or above this promotes the stub (default 0.80)

	Logger *log.Logger
}

// Review is an ambiguous stub left unresolved for human/oracle review.
// It contributes no edge until resolved.
type Review struct {
	StubID     string
	MatchIDs   []string
	Similarity []float64
}

type Result struct {
	// Promoted stubs, now first-class canonical nodes.
	Promoted []model.CanonicalNode
	// IDMap maps resolved stub ids to canonical ids (matched or promoted).
	// Unresolved stubs are absent, so their pending edges drop at assembly.
	IDMap map[string]string

	Matched    int
	Unresolved []Review
}

// Resolve runs the decision rule for every stub:
//   - exactly one match above MatchThreshold with the runner-up below
//     RunnerUpThreshold resolves the stub to that node;
//   - two or more matches above RunnerUpThreshold is ambiguous and left
//     unresolved for review, never silently attached;
//   - no match at or above PromoteThreshold promotes the stub to a new
//     canonical node with confidence capped at PromotedConfidenceCap;
//   - anything in between is left unresolved for review.
func (r *Resolver) Resolve(ctx context.Context, stubs []model.CandidateNode, pool []model.CanonicalNode) (*Result, error) {
	result := &Result{IDMap: make(map[string]string)}

	poolIDs := make([]string, 0, len(pool))
	byID := make(map[string]*model.CanonicalNode, len(pool))
	for i := range pool {
		poolIDs = append(poolIDs, pool[i].ID)
		byID[pool[i].ID] = &pool[i]
	}
	sort.Strings(poolIDs)

	ordered := append([]model.CandidateNode(nil), stubs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	for _, s := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		matches, err := r.Index.TopMatches(s.ID, poolIDs, 2)
		if err != nil {
			if r.Logger != nil {
				r.Logger.Warn("stub not indexed, leaving unresolved", "stub", s.ID, "err", err)
			}
			result.Unresolved = append(result.Unresolved, Review{StubID: s.ID})
			continue
		}

		var best, second similarity.Match
		if len(matches) > 0 {
			best = matches[0]
		}
		if len(matches) > 1 {
			second = matches[1]
		}

		switch {
		case len(matches) >= 2 && best.Similarity > r.RunnerUpThreshold && second.Similarity > r.RunnerUpThreshold:
			// Ambiguous: two plausible targets.
			result.Unresolved = append(result.Unresolved, Review{
				StubID:     s.ID,
				MatchIDs:   []string{best.ID, second.ID},
				Similarity: []float64{best.Similarity, second.Similarity},
			})

		case len(matches) >= 1 && best.Similarity > r.MatchThreshold &&
			(len(matches) < 2 || second.Similarity < r.RunnerUpThreshold):
			// Unique strong match: the stub's pending edges attach to it.
			result.IDMap[s.ID] = best.ID
			result.Matched++
			if target := byID[best.ID]; target != nil {
				target.Sources = unionSources(target.Sources, s.Sources)
			}
			r.appendRecord(s.ID, model.DecisionStubMatch, best.ID, best.Similarity)

		case len(matches) == 0 || best.Similarity < r.PromoteThreshold:
			// Nothing close enough: promote to a first-class node.
			node := promote(s)
			result.Promoted = append(result.Promoted, node)
			result.IDMap[s.ID] = node.ID
			r.appendRecord(s.ID, model.DecisionStubPromote, node.ID, best.Similarity)

		default:
			// Gray zone between promote and match thresholds.
			result.Unresolved = append(result.Unresolved, Review{
				StubID:     s.ID,
				MatchIDs:   []string{best.ID},
				Similarity: []float64{best.Similarity},
			})
		}
	}

	if r.Logger != nil {
		r.Logger.Info("stub resolution complete",
			"stubs", len(stubs),
			"matched", result.Matched,
			"promoted", len(result.Promoted),
			"unresolved", len(result.Unresolved))
	}
	return result, nil
}

func (r *Resolver) appendRecord(stubID string, kind model.DecisionKind, resultID string, sim float64) {
	if r.Log == nil {
		return
	}
	recID, err := gonanoid.New()
	if err != nil {
		recID = uuid.New().String()
	}
	rationale := fmt.Sprintf("no sufficiently similar canonical node (best %.3f)", sim)
	if kind == model.DecisionStubMatch {
		rationale = fmt.Sprintf("unique match at similarity %.3f", sim)
	}
	if err := r.Log.Append(model.MergeRecord{
		ID:        recID,
		MemberIDs: []string{stubID},
		Decision:  kind,
		ResultIDs: []string{resultID},
		Rationale: rationale,
		Timestamp: time.Now().UTC(),
	}); err != nil && r.Logger != nil {
		r.Logger.Error("failed to append stub record", "err", err)
	}
}

func promote(s model.CandidateNode) model.CanonicalNode {
	conf := s.Confidence
	if conf > PromotedConfidenceCap {
		conf = PromotedConfidenceCap
	}
	status := s.Status
	if status == "" {
		status = model.StatusOpen
	}
	return model.CanonicalNode{
		ID:               uuid.New().String(),
		Type:             s.Type,
		Granularity:      s.Granularity,
		Title:            s.Title,
		Description:      s.Description,
		Fields:           append([]string(nil), s.Fields...),
		Status:           status,
		Confidence:       conf,
		Sources:          append([]model.SourceRef(nil), s.Sources...),
		ExtractionMethod: s.ExtractionMethod,
		MemberIDs:        []string{s.ID},
		CreatedAt:        time.Now().UTC(),
	}
}

func unionSources(existing, extra []model.SourceRef) []model.SourceRef {
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s.SourceType+"|"+s.SourceID] = true
	}
	for _, s := range extra {
		key := s.SourceType + "|" + s.SourceID
		if !seen[key] {
			seen[key] = true
			existing = append(existing, s)
		}
	}
	return existing
}
