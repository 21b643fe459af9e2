// Package core wires the full resolution and scoring pipeline: embed,
// cluster, resolve stubs, assemble the graph and rank it.
package core

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/dimenwarper/rootsearch/internal/config"
	"github.com/dimenwarper/rootsearch/internal/core/assemble"
	"github.com/dimenwarper/rootsearch/internal/core/assess"
	"github.com/dimenwarper/rootsearch/internal/core/cluster"
	"github.com/dimenwarper/rootsearch/internal/core/model"
	"github.com/dimenwarper/rootsearch/internal/core/score"
	"github.com/dimenwarper/rootsearch/internal/core/similarity"
	"github.com/dimenwarper/rootsearch/internal/core/stub"
	"github.com/dimenwarper/rootsearch/internal/llm"
	"github.com/dimenwarper/rootsearch/internal/oracle"
)

// Engine runs candidate batches through the whole pipeline.
type Engine struct {
	Embedder llm.EmbedderClient
	Oracle   oracle.Oracle
	Log      cluster.RecordAppender
	Config   *config.Config
	Logger   *log.Logger
}

func NewEngine(embedder llm.EmbedderClient, orc oracle.Oracle, recLog cluster.RecordAppender, cfg *config.Config, logger *log.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		Embedder: embedder,
		Oracle:   orc,
		Log:      recLog,
		Config:   cfg,
		Logger:   logger,
	}, nil
}

// RunReport summarizes one pipeline run.
type RunReport struct {
	Candidates      int              `json:"candidates"`
	Stubs           int              `json:"stubs"`
	ClustersFound   int              `json:"clusters_found"`
	Merged          int              `json:"merged"`
	Hierarchies     int              `json:"hierarchies"`
	NeedsReview     int              `json:"needs_review"`
	OracleFailures  int              `json:"oracle_failures"`
	StubsMatched    int              `json:"stubs_matched"`
	StubsPromoted   int              `json:"stubs_promoted"`
	StubsUnresolved int              `json:"stubs_unresolved"`
	Assembly        *assemble.Report `json:"assembly"`
	Stats           *assemble.Stats  `json:"stats"`

	CascadeIterations int  `json:"cascade_iterations"`
	CascadeConverged  bool `json:"cascade_converged"`
}

// RunResult is the full output of one batch.
type RunResult struct {
	Graph       *assemble.Graph
	Ranked      []score.RankedNode
	Assessments []assess.Assessment
	Unresolved  []stub.Review
	Report      *RunReport
}

// Run takes validated candidates and raw edges through resolution,
// assembly, scoring and decomposability assessment. Callers are expected
// to have filtered malformed records already (the store readers do).
func (e *Engine) Run(ctx context.Context, candidates []model.CandidateNode, edges []model.Edge) (*RunResult, error) {
	for i := range candidates {
		if err := candidates[i].Validate(); err != nil {
			return nil, err
		}
	}

	regular := make([]model.CandidateNode, 0, len(candidates))
	var stubs []model.CandidateNode
	for _, c := range candidates {
		if c.CrossFieldRef {
			stubs = append(stubs, c)
		} else {
			regular = append(regular, c)
		}
	}

	items := make([]similarity.Item, 0, len(candidates))
	for i := range candidates {
		items = append(items, similarity.Item{ID: candidates[i].ID, Text: candidates[i].EmbeddingText()})
	}
	index, err := similarity.Build(ctx, e.Embedder, items, e.Config.Concurrency.EmbedWorkers)
	if err != nil {
		return nil, fmt.Errorf("failed to build similarity index: %w", err)
	}

	resolver := &cluster.Resolver{
		Index:     index,
		Oracle:    e.Oracle,
		Log:       e.Log,
		Threshold: e.Config.Pipeline.SimilarityThreshold,
		Workers:   e.Config.Concurrency.OracleWorkers,
		Logger:    e.Logger,
	}
	clustered, err := resolver.Resolve(ctx, regular)
	if err != nil {
		return nil, fmt.Errorf("cluster resolution failed: %w", err)
	}

	// Canonical nodes need index entries before stubs can match them.
	// A canonical node inherits the vector of its first indexed member;
	// member ids are sorted, so the aliasing is deterministic across runs.
	if err := indexCanonical(index, clustered.Nodes, clustered.IDMap); err != nil {
		return nil, err
	}

	stubResolver := &stub.Resolver{
		Index:             index,
		Log:               e.Log,
		MatchThreshold:    e.Config.Pipeline.StubMatch,
		RunnerUpThreshold: e.Config.Pipeline.StubRunnerUp,
		PromoteThreshold:  e.Config.Pipeline.StubPromote,
		Logger:            e.Logger,
	}
	stubbed, err := stubResolver.Resolve(ctx, stubs, clustered.Nodes)
	if err != nil {
		return nil, fmt.Errorf("stub resolution failed: %w", err)
	}

	idMap := make(map[string]string, len(clustered.IDMap)+len(stubbed.IDMap))
	for k, v := range clustered.IDMap {
		idMap[k] = v
	}
	for k, v := range stubbed.IDMap {
		idMap[k] = v
	}

	allNodes := append(clustered.Nodes, stubbed.Promoted...)

	assembler := &assemble.Assembler{Floor: e.Config.Pipeline.EdgeFloor, Logger: e.Logger}
	graph, assemblyReport := assembler.Assemble(allNodes, edges, idMap)

	ranked, err := score.Rank(graph, score.Params{
		Damping:       e.Config.Scoring.Damping,
		Tolerance:     e.Config.Scoring.Tolerance,
		MaxIterations: e.Config.Scoring.MaxIterations,
		Weights: score.Weights{
			Cascade:    e.Config.Scoring.CascadeWeight,
			CrossField: e.Config.Scoring.CrossFieldWeight,
			Bottleneck: e.Config.Scoring.BottleneckWeight,
		},
	})
	if err != nil {
		return nil, err
	}

	assessor := &assess.Assessor{
		Oracle:  e.Oracle,
		TopK:    e.Config.Pipeline.TopK,
		Workers: e.Config.Concurrency.OracleWorkers,
		Logger:  e.Logger,
	}
	assessments := assessor.AssessTop(ctx, graph, ranked.Ranked)

	report := &RunReport{
		Candidates:        len(candidates),
		Stubs:             len(stubs),
		ClustersFound:     clustered.ClustersFound,
		Merged:            clustered.Merged,
		Hierarchies:       clustered.Hierarchies,
		NeedsReview:       clustered.NeedsReview,
		OracleFailures:    clustered.OracleFailures,
		StubsMatched:      stubbed.Matched,
		StubsPromoted:     len(stubbed.Promoted),
		StubsUnresolved:   len(stubbed.Unresolved),
		Assembly:          assemblyReport,
		Stats:             assemble.ComputeStats(graph),
		CascadeIterations: ranked.CascadeIterations,
		CascadeConverged:  ranked.CascadeConverged,
	}

	if e.Logger != nil {
		e.Logger.Info("pipeline run complete",
			"nodes", graph.Order(),
			"edges", graph.Size(),
			"cascade_iterations", report.CascadeIterations,
			"converged", report.CascadeConverged)
	}

	return &RunResult{
		Graph:       graph,
		Ranked:      ranked.Ranked,
		Assessments: assessments,
		Unresolved:  stubbed.Unresolved,
		Report:      report,
	}, nil
}

// indexCanonical aliases each canonical id to a member vector so the stub
// resolver can query canonical ids directly.
func indexCanonical(index *similarity.Index, nodes []model.CanonicalNode, idMap map[string]string) error {
	reverse := make(map[string]string, len(idMap))
	for candidateID, canonicalID := range idMap {
		if _, ok := reverse[canonicalID]; !ok {
			reverse[canonicalID] = candidateID
		}
	}
	for i := range nodes {
		n := &nodes[i]
		candidateID := ""
		for _, m := range n.MemberIDs {
			if index.Has(m) {
				candidateID = m
				break
			}
		}
		if candidateID == "" {
			candidateID = reverse[n.ID]
		}
		if candidateID == "" {
			continue
		}
		vec, ok := index.Vector(candidateID)
		if !ok {
			continue
		}
		if err := index.Add(n.ID, vec); err != nil {
			return err
		}
	}
	return nil
}
