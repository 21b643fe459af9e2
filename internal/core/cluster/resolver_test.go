package cluster

import (
	"context"
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimenwarper/rootsearch/internal/core/model"
	"github.com/dimenwarper/rootsearch/internal/core/similarity"
	"github.com/dimenwarper/rootsearch/internal/oracle"
)

// stubOracle returns a canned decision (or error) for every cluster.
type stubOracle struct {
	decision *oracle.Decision
	err      error

	mu    sync.Mutex
	calls int
}

func (o *stubOracle) Disambiguate(ctx context.Context, cluster []model.CandidateNode) (*oracle.Decision, error) {
	o.mu.Lock()
	o.calls++
	o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	return o.decision, nil
}

func (o *stubOracle) Assess(ctx context.Context, node model.CanonicalNode, enabled []model.CanonicalNode) (*oracle.DecomposabilityScores, error) {
	return nil, model.ErrOracleUnavailable
}

// memoryLog collects merge records in memory.
type memoryLog struct {
	mu      sync.Mutex
	records []model.MergeRecord
}

func (l *memoryLog) Append(rec model.MergeRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

func buildIndex(t *testing.T, vectors map[string][]float32) *similarity.Index {
	t.Helper()
	ix := similarity.NewIndex()
	for id, vec := range vectors {
		require.NoError(t, ix.Add(id, vec))
	}
	return ix
}

func TestResolveMergesDuplicates(t *testing.T) {
	// Two extractions of the same superconductivity problem from
	// different papers, plus one unrelated node.
	candidates := []model.CandidateNode{
		{
			ID: "cand-a", Type: model.NodeOpenProblem, Title: "Room temperature superconductivity",
			Fields: []string{"physics.condensed_matter"}, Confidence: 0.7,
			Sources: []model.SourceRef{{SourceType: "paper", SourceID: "doi:10.1/aaa"}},
		},
		{
			ID: "cand-b", Type: model.NodeOpenProblem, Title: "Superconductors at ambient temperature",
			Fields: []string{"physics.superconductivity"}, Confidence: 0.9,
			Sources: []model.SourceRef{{SourceType: "paper", SourceID: "doi:10.1/bbb"}},
		},
		{
			ID: "cand-c", Type: model.NodeDataGap, Title: "Sparse battery cycling datasets",
			Fields: []string{"physics.energy_storage"}, Confidence: 0.8,
		},
	}

	far := []float32{float32(math.Cos(1.2)), float32(math.Sin(1.2))}
	ix := buildIndex(t, map[string][]float32{
		"cand-a": {1, 0},
		"cand-b": {1, 0},
		"cand-c": far,
	})

	orc := &stubOracle{decision: &oracle.Decision{
		Kind:           model.DecisionMerge,
		CanonicalTitle: "Room-temperature superconductivity",
		Rationale:      "same problem, different phrasing",
	}}
	mlog := &memoryLog{}

	r := &Resolver{Index: ix, Oracle: orc, Log: mlog, Threshold: 0.85, Workers: 2}
	result, err := r.Resolve(context.Background(), candidates)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ClustersFound)
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, orc.calls)
	assert.Len(t, result.Nodes, 2)

	var merged *model.CanonicalNode
	for i := range result.Nodes {
		if len(result.Nodes[i].MemberIDs) == 2 {
			merged = &result.Nodes[i]
		}
	}
	require.NotNil(t, merged)

	assert.Equal(t, "Room-temperature superconductivity", merged.Title)
	assert.Equal(t, []string{"cand-a", "cand-b"}, merged.MemberIDs)
	// Confidence is the max over members, never an average.
	assert.InDelta(t, 0.9, merged.Confidence, 1e-9)
	// Evidence is the union of both papers.
	assert.Len(t, merged.Sources, 2)
	assert.False(t, merged.NeedsReview)

	// Both provisional ids map to the same permanent id.
	assert.Equal(t, result.IDMap["cand-a"], result.IDMap["cand-b"])
	assert.Equal(t, merged.ID, result.IDMap["cand-a"])
	assert.NotEqual(t, merged.ID, result.IDMap["cand-c"])

	// One record for the merged cluster; singletons produce none.
	require.Len(t, mlog.records, 1)
	assert.Equal(t, model.DecisionMerge, mlog.records[0].Decision)
	assert.Equal(t, []string{"cand-a", "cand-b"}, mlog.records[0].MemberIDs)
	assert.Equal(t, []string{merged.ID}, mlog.records[0].ResultIDs)
}

func TestResolveOracleFailureFallsBackToDistinct(t *testing.T) {
	candidates := []model.CandidateNode{
		{ID: "cand-a", Type: model.NodeOpenProblem, Title: "X", Fields: []string{"bio.genomics"}, Confidence: 0.8},
		{ID: "cand-b", Type: model.NodeOpenProblem, Title: "X again", Fields: []string{"bio.genomics"}, Confidence: 0.8},
	}
	ix := buildIndex(t, map[string][]float32{
		"cand-a": {1, 0},
		"cand-b": {1, 0},
	})

	orc := &stubOracle{err: model.ErrOracleUnavailable}
	mlog := &memoryLog{}

	r := &Resolver{Index: ix, Oracle: orc, Log: mlog, Threshold: 0.85, Workers: 1}
	result, err := r.Resolve(context.Background(), candidates)
	require.NoError(t, err)

	// Never merges silently: both survive as distinct, flagged for review.
	assert.Len(t, result.Nodes, 2)
	assert.Equal(t, 0, result.Merged)
	assert.Equal(t, 1, result.Distinct)
	assert.Equal(t, 1, result.NeedsReview)
	assert.Equal(t, 1, result.OracleFailures)
	for _, n := range result.Nodes {
		assert.True(t, n.NeedsReview)
	}

	require.Len(t, mlog.records, 1)
	assert.Equal(t, model.DecisionDistinct, mlog.records[0].Decision)
}

func TestResolveHierarchy(t *testing.T) {
	candidates := []model.CandidateNode{
		{ID: "cand-parent", Type: model.NodeOpenProblem, Granularity: model.GranularityL1,
			Title: "Protein structure prediction", Fields: []string{"bio.structural"}, Confidence: 0.9},
		{ID: "cand-child", Type: model.NodeOpenProblem, Granularity: model.GranularityL2,
			Title: "Membrane protein structure prediction", Fields: []string{"bio.structural"}, Confidence: 0.8},
	}
	ix := buildIndex(t, map[string][]float32{
		"cand-parent": {1, 0},
		"cand-child":  {1, 0},
	})

	orc := &stubOracle{decision: &oracle.Decision{
		Kind:  model.DecisionHierarchy,
		Pairs: []oracle.HierarchyPair{{ParentID: "cand-parent", ChildID: "cand-child"}},
	}}

	r := &Resolver{Index: ix, Oracle: orc, Log: &memoryLog{}, Threshold: 0.85, Workers: 1}
	result, err := r.Resolve(context.Background(), candidates)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Hierarchies)
	require.Len(t, result.Nodes, 2)

	byMember := make(map[string]model.CanonicalNode)
	for _, n := range result.Nodes {
		byMember[n.MemberIDs[0]] = n
	}
	parent := byMember["cand-parent"]
	child := byMember["cand-child"]
	assert.Equal(t, parent.ID, child.ParentID)
	assert.Equal(t, []string{child.ID}, parent.ChildrenIDs)
}

func TestResolveBelowThresholdStaysSeparate(t *testing.T) {
	// Similarity just under the threshold must not cluster.
	near := []float32{float32(math.Cos(0.6)), float32(math.Sin(0.6))} // cosine ~0.825
	candidates := []model.CandidateNode{
		{ID: "cand-a", Type: model.NodeOpenProblem, Title: "A", Fields: []string{"chem.catalysis"}, Confidence: 0.8},
		{ID: "cand-b", Type: model.NodeOpenProblem, Title: "B", Fields: []string{"chem.catalysis"}, Confidence: 0.8},
	}
	ix := buildIndex(t, map[string][]float32{
		"cand-a": {1, 0},
		"cand-b": near,
	})

	orc := &stubOracle{decision: &oracle.Decision{Kind: model.DecisionMerge}}
	r := &Resolver{Index: ix, Oracle: orc, Log: &memoryLog{}, Threshold: 0.85, Workers: 1}
	result, err := r.Resolve(context.Background(), candidates)
	require.NoError(t, err)

	assert.Equal(t, 0, result.ClustersFound)
	assert.Equal(t, 0, orc.calls)
	assert.Len(t, result.Nodes, 2)
}

func TestResolveThresholdMonotonicity(t *testing.T) {
	// Raising the threshold can only split clusters, never create them:
	// the node count after resolution is monotone in the threshold.
	// Chain similarities: sim(a,b) = sim(b,c) = 0.88, sim(a,c) ~ 0.55.
	angleAB := math.Acos(0.88)
	candidates := []model.CandidateNode{
		{ID: "cand-a", Type: model.NodeOpenProblem, Title: "A", Fields: []string{"physics.a"}, Confidence: 0.8},
		{ID: "cand-b", Type: model.NodeOpenProblem, Title: "B", Fields: []string{"physics.b"}, Confidence: 0.8},
		{ID: "cand-c", Type: model.NodeOpenProblem, Title: "C", Fields: []string{"physics.c"}, Confidence: 0.8},
	}
	ix := buildIndex(t, map[string][]float32{
		"cand-a": {1, 0},
		"cand-b": {float32(math.Cos(angleAB)), float32(math.Sin(angleAB))},
		"cand-c": {float32(math.Cos(2 * angleAB)), float32(math.Sin(2 * angleAB))},
	})

	resolveAt := func(threshold float64) *Result {
		orc := &stubOracle{decision: &oracle.Decision{Kind: model.DecisionMerge}}
		r := &Resolver{Index: ix, Oracle: orc, Log: &memoryLog{}, Threshold: threshold, Workers: 1}
		result, err := r.Resolve(context.Background(), candidates)
		require.NoError(t, err)
		return result
	}

	loose := resolveAt(0.80)
	strict := resolveAt(0.90)

	// At 0.80 the a-b and b-c links chain all three into one cluster; at
	// 0.90 nothing links.
	assert.Len(t, loose.Nodes, 1)
	assert.Len(t, strict.Nodes, 3)
	assert.LessOrEqual(t, len(loose.Nodes), len(strict.Nodes))
	assert.GreaterOrEqual(t, loose.ClustersFound, strict.ClustersFound)
}

func TestResolveDeterministicRecords(t *testing.T) {
	// Re-running an unchanged batch with a deterministic oracle yields the
	// same decisions: same member sets, kinds and rationales, and the same
	// id-map partition. Only the generated record ids, canonical ids and
	// timestamps differ.
	candidates := []model.CandidateNode{
		{ID: "cand-p1", Type: model.NodeOpenProblem, Title: "P", Fields: []string{"physics.x"}, Confidence: 0.8},
		{ID: "cand-p2", Type: model.NodeOpenProblem, Title: "P again", Fields: []string{"physics.y"}, Confidence: 0.9},
		{ID: "cand-b1", Type: model.NodeDataGap, Title: "Q", Fields: []string{"bio.x"}, Confidence: 0.7},
		{ID: "cand-b2", Type: model.NodeDataGap, Title: "Q again", Fields: []string{"bio.y"}, Confidence: 0.7},
		{ID: "cand-solo", Type: model.NodeOpenProblem, Title: "R", Fields: []string{"chem.z"}, Confidence: 0.8},
	}
	far := []float32{float32(math.Cos(1.2)), float32(math.Sin(1.2))}
	ix := buildIndex(t, map[string][]float32{
		"cand-p1":   {1, 0},
		"cand-p2":   {1, 0},
		"cand-b1":   {1, 0},
		"cand-b2":   {1, 0},
		"cand-solo": far,
	})

	resolveOnce := func() (*Result, []model.MergeRecord) {
		orc := &stubOracle{decision: &oracle.Decision{
			Kind:      model.DecisionMerge,
			Rationale: "same problem",
		}}
		mlog := &memoryLog{}
		r := &Resolver{Index: ix, Oracle: orc, Log: mlog, Threshold: 0.85, Workers: 2}
		result, err := r.Resolve(context.Background(), candidates)
		require.NoError(t, err)

		records := append([]model.MergeRecord(nil), mlog.records...)
		// Workers append concurrently; order across clusters is not part
		// of the contract.
		sort.Slice(records, func(i, j int) bool {
			return records[i].MemberIDs[0] < records[j].MemberIDs[0]
		})
		return result, records
	}

	first, firstRecords := resolveOnce()
	second, secondRecords := resolveOnce()

	require.Len(t, firstRecords, 2)
	require.Len(t, secondRecords, 2)
	for i := range firstRecords {
		assert.Equal(t, firstRecords[i].MemberIDs, secondRecords[i].MemberIDs)
		assert.Equal(t, firstRecords[i].Decision, secondRecords[i].Decision)
		assert.Equal(t, firstRecords[i].Rationale, secondRecords[i].Rationale)
		assert.Len(t, secondRecords[i].ResultIDs, len(firstRecords[i].ResultIDs))
	}

	// The id maps cover the same candidates and group them identically,
	// even though the generated canonical ids differ per run.
	require.Len(t, second.IDMap, len(first.IDMap))
	for id := range first.IDMap {
		assert.Contains(t, second.IDMap, id)
	}
	assert.Equal(t, first.IDMap["cand-p1"], first.IDMap["cand-p2"])
	assert.Equal(t, second.IDMap["cand-p1"], second.IDMap["cand-p2"])
	assert.NotEqual(t, first.IDMap["cand-p1"], first.IDMap["cand-b1"])
	assert.NotEqual(t, second.IDMap["cand-p1"], second.IDMap["cand-b1"])
}

func TestResolveNeverClustersAcrossDomains(t *testing.T) {
	// Identical vectors, different top-level domains: clustering is
	// field-partitioned, so the oracle is never consulted.
	candidates := []model.CandidateNode{
		{ID: "cand-a", Type: model.NodeOpenProblem, Title: "Catalyst discovery", Fields: []string{"chem.catalysis"}, Confidence: 0.8},
		{ID: "cand-b", Type: model.NodeOpenProblem, Title: "Catalyst discovery", Fields: []string{"materials.catalysis"}, Confidence: 0.8},
	}
	ix := buildIndex(t, map[string][]float32{
		"cand-a": {1, 0},
		"cand-b": {1, 0},
	})

	orc := &stubOracle{decision: &oracle.Decision{Kind: model.DecisionMerge}}
	r := &Resolver{Index: ix, Oracle: orc, Log: &memoryLog{}, Threshold: 0.85, Workers: 1}
	result, err := r.Resolve(context.Background(), candidates)
	require.NoError(t, err)

	assert.Equal(t, 0, result.ClustersFound)
	assert.Equal(t, 0, orc.calls)
	assert.Len(t, result.Nodes, 2)
}
