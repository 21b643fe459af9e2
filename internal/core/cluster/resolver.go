// Package cluster groups near-duplicate candidates into similarity
// clusters and resolves each cluster exactly once through the
// disambiguation oracle.
package cluster

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/dimenwarper/rootsearch/internal/core/model"
	"github.com/dimenwarper/rootsearch/internal/core/similarity"
	"github.com/dimenwarper/rootsearch/internal/oracle"
)

// RecordAppender receives one immutable MergeRecord per resolved cluster.
// Appends may happen concurrently from the oracle worker pool.
type RecordAppender interface {
	Append(rec model.MergeRecord) error
}

// Resolver clusters a candidate batch and resolves every cluster to
// canonical nodes.
type Resolver struct {
	Index     *similarity.Index
	Oracle    oracle.Oracle
	Log       RecordAppender
	Threshold float64
	Workers   int
	Logger    *log.Logger
}

// Result of resolving one batch.
type Result struct {
	Nodes []model.CanonicalNode
	// IDMap maps every consumed candidate id to the canonical id that
	// absorbed it. The assembler uses it to rewrite edge endpoints.
	IDMap map[string]string

	ClustersFound  int
	Merged         int
	Hierarchies    int
	Distinct       int
	NeedsReview    int
	OracleFailures int
}

// clusterOutcome is the per-cluster resolution computed by a worker.
type clusterOutcome struct {
	nodes       []model.CanonicalNode
	idMap       map[string]string
	decision    model.DecisionKind
	needsReview bool
	oracleErr   bool
}

// Resolve partitions candidates by top-level field domain (clustering is
// never cross-field), forms transitive-closure clusters above the
// similarity threshold and resolves each through the oracle. Oracle
// failure on a cluster degrades to DISTINCT with needs_review set; it
// never merges silently and never aborts the batch.
func (r *Resolver) Resolve(ctx context.Context, candidates []model.CandidateNode) (*Result, error) {
	result := &Result{IDMap: make(map[string]string)}
	if len(candidates) == 0 {
		return result, nil
	}

	partitions := partitionByDomain(candidates)

	var clusters [][]model.CandidateNode
	for _, part := range partitions {
		clusters = append(clusters, r.clusterPartition(part)...)
	}
	result.ClustersFound = 0
	for _, c := range clusters {
		if len(c) >= 2 {
			result.ClustersFound++
		}
	}

	outcomes := make([]clusterOutcome, len(clusters))

	g, gctx := errgroup.WithContext(ctx)
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, members := range clusters {
		g.Go(func() error {
			outcomes[i] = r.resolveCluster(gctx, members)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, out := range outcomes {
		result.Nodes = append(result.Nodes, out.nodes...)
		for k, v := range out.idMap {
			result.IDMap[k] = v
		}
		switch out.decision {
		case model.DecisionMerge:
			result.Merged++
		case model.DecisionHierarchy:
			result.Hierarchies++
		case model.DecisionDistinct:
			result.Distinct++
		}
		if out.needsReview {
			result.NeedsReview++
		}
		if out.oracleErr {
			result.OracleFailures++
		}
	}

	if r.Logger != nil {
		r.Logger.Info("cluster resolution complete",
			"candidates", len(candidates),
			"clusters", result.ClustersFound,
			"merged", result.Merged,
			"hierarchies", result.Hierarchies,
			"needs_review", result.NeedsReview)
	}
	return result, nil
}

// clusterPartition runs pairwise similarity within one field partition and
// returns the connected components above the threshold.
func (r *Resolver) clusterPartition(part []model.CandidateNode) [][]model.CandidateNode {
	n := len(part)
	if n == 0 {
		return nil
	}

	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim, err := r.Index.Similarity(part[i].ID, part[j].ID)
			if err != nil {
				continue // unembedded candidate, cannot cluster it
			}
			if sim > r.Threshold {
				uf.union(i, j)
			}
		}
	}

	var clusters [][]model.CandidateNode
	for _, comp := range uf.components() {
		members := make([]model.CandidateNode, 0, len(comp))
		for _, idx := range comp {
			members = append(members, part[idx])
		}
		clusters = append(clusters, members)
	}
	return clusters
}

func (r *Resolver) resolveCluster(ctx context.Context, members []model.CandidateNode) clusterOutcome {
	if len(members) == 1 {
		// No resolution needed; singletons become canonical directly and
		// produce no merge record.
		node := canonicalize(members[0], false)
		return clusterOutcome{
			nodes: []model.CanonicalNode{node},
			idMap: map[string]string{members[0].ID: node.ID},
		}
	}

	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.ID
	}

	var decision *oracle.Decision
	var err error
	if r.Oracle == nil {
		err = model.ErrOracleUnavailable
	} else {
		decision, err = r.Oracle.Disambiguate(ctx, members)
	}
	if err != nil {
		// Under-merging beats silent incorrect merging: emit every member
		// as DISTINCT and flag the lot for review.
		if r.Logger != nil {
			r.Logger.Warn("oracle failed for cluster, emitting members as distinct",
				"members", len(members), "err", err)
		}
		out := r.applyDistinct(members, true, fmt.Sprintf("oracle failure: %v", err))
		out.oracleErr = true
		return out
	}

	switch decision.Kind {
	case model.DecisionMerge:
		return r.applyMerge(members, decision)
	case model.DecisionHierarchy:
		return r.applyHierarchy(members, decision)
	default:
		return r.applyDistinct(members, false, decision.Rationale)
	}
}

// applyMerge collapses the cluster to one canonical node: base is the
// highest-confidence member, evidence is the union over all members and
// confidence is the max (never averaged, so an under-confident duplicate
// cannot suppress a strong extraction).
func (r *Resolver) applyMerge(members []model.CandidateNode, decision *oracle.Decision) clusterOutcome {
	base := members[0]
	for _, m := range members[1:] {
		if m.Confidence > base.Confidence || (m.Confidence == base.Confidence && m.ID < base.ID) {
			base = m
		}
	}

	node := canonicalize(base, false)
	if decision.CanonicalTitle != "" {
		node.Title = decision.CanonicalTitle
	}
	if decision.CanonicalDescription != "" {
		node.Description = decision.CanonicalDescription
	}

	seenSources := make(map[string]bool)
	for _, s := range node.Sources {
		seenSources[s.SourceType+"|"+s.SourceID] = true
	}
	fieldSet := make(map[string]bool)
	for _, f := range node.Fields {
		fieldSet[f] = true
	}

	idMap := make(map[string]string, len(members))
	node.MemberIDs = nil
	for _, m := range members {
		idMap[m.ID] = node.ID
		node.MemberIDs = append(node.MemberIDs, m.ID)
		if m.Confidence > node.Confidence {
			node.Confidence = m.Confidence
		}
		for _, s := range m.Sources {
			key := s.SourceType + "|" + s.SourceID
			if !seenSources[key] {
				seenSources[key] = true
				node.Sources = append(node.Sources, s)
			}
		}
		for _, f := range m.Fields {
			if !fieldSet[f] {
				fieldSet[f] = true
				node.Fields = append(node.Fields, f)
			}
		}
	}
	sort.Strings(node.MemberIDs)

	r.appendRecord(node.MemberIDs, model.DecisionMerge, []string{node.ID}, decision.Rationale)

	return clusterOutcome{
		nodes:    []model.CanonicalNode{node},
		idMap:    idMap,
		decision: model.DecisionMerge,
	}
}

// applyHierarchy keeps every member as a distinct canonical node and links
// the oracle's (parent, child) pairs.
func (r *Resolver) applyHierarchy(members []model.CandidateNode, decision *oracle.Decision) clusterOutcome {
	idMap := make(map[string]string, len(members))
	byCandidate := make(map[string]*model.CanonicalNode, len(members))
	nodes := make([]model.CanonicalNode, 0, len(members))

	for _, m := range members {
		node := canonicalize(m, false)
		idMap[m.ID] = node.ID
		nodes = append(nodes, node)
		byCandidate[m.ID] = &nodes[len(nodes)-1]
	}

	var resultIDs []string
	for _, n := range nodes {
		resultIDs = append(resultIDs, n.ID)
	}

	for _, pair := range decision.Pairs {
		parent, okP := byCandidate[pair.ParentID]
		child, okC := byCandidate[pair.ChildID]
		if !okP || !okC {
			continue // pairs are validated against the member set upstream
		}
		child.ParentID = parent.ID
		parent.ChildrenIDs = append(parent.ChildrenIDs, child.ID)
	}

	memberIDs := sortedKeys(idMap)
	r.appendRecord(memberIDs, model.DecisionHierarchy, resultIDs, decision.Rationale)

	return clusterOutcome{
		nodes:    nodes,
		idMap:    idMap,
		decision: model.DecisionHierarchy,
	}
}

func (r *Resolver) applyDistinct(members []model.CandidateNode, needsReview bool, rationale string) clusterOutcome {
	idMap := make(map[string]string, len(members))
	nodes := make([]model.CanonicalNode, 0, len(members))
	var resultIDs []string

	for _, m := range members {
		node := canonicalize(m, needsReview)
		idMap[m.ID] = node.ID
		nodes = append(nodes, node)
		resultIDs = append(resultIDs, node.ID)
	}

	memberIDs := sortedKeys(idMap)
	r.appendRecord(memberIDs, model.DecisionDistinct, resultIDs, rationale)

	return clusterOutcome{
		nodes:       nodes,
		idMap:       idMap,
		decision:    model.DecisionDistinct,
		needsReview: needsReview,
	}
}

func (r *Resolver) appendRecord(memberIDs []string, kind model.DecisionKind, resultIDs []string, rationale string) {
	if r.Log == nil {
		return
	}
	recID, err := gonanoid.New()
	if err != nil {
		recID = uuid.New().String()
	}
	rec := model.MergeRecord{
		ID:        recID,
		MemberIDs: memberIDs,
		Decision:  kind,
		ResultIDs: resultIDs,
		Rationale: rationale,
		Timestamp: time.Now().UTC(),
	}
	if err := r.Log.Append(rec); err != nil && r.Logger != nil {
		r.Logger.Error("failed to append merge record", "err", err)
	}
}

// canonicalize turns a single candidate into a canonical node with a
// permanent id.
func canonicalize(c model.CandidateNode, needsReview bool) model.CanonicalNode {
	status := c.Status
	if status == "" {
		status = model.StatusOpen
	}
	return model.CanonicalNode{
		ID:               uuid.New().String(),
		Type:             c.Type,
		Granularity:      c.Granularity,
		Title:            c.Title,
		Description:      c.Description,
		Fields:           append([]string(nil), c.Fields...),
		Status:           status,
		Confidence:       c.Confidence,
		Sources:          append([]model.SourceRef(nil), c.Sources...),
		ExtractionMethod: c.ExtractionMethod,
		MemberIDs:        []string{c.ID},
		NeedsReview:      needsReview,
		CreatedAt:        time.Now().UTC(),
	}
}

// partitionByDomain groups candidates by their primary top-level domain
// tag. Untagged candidates share one partition so they can still be
// deduplicated against each other.
func partitionByDomain(candidates []model.CandidateNode) [][]model.CandidateNode {
	groups := make(map[string][]model.CandidateNode)
	for _, c := range candidates {
		key := ""
		if domains := c.Domains(); len(domains) > 0 {
			key = domains[0]
		}
		groups[key] = append(groups[key], c)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([][]model.CandidateNode, 0, len(keys))
	for _, k := range keys {
		part := groups[k]
		sort.Slice(part, func(i, j int) bool { return part[i].ID < part[j].ID })
		out = append(out, part)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
