package oracle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dimenwarper/rootsearch/internal/core/common"
	"github.com/dimenwarper/rootsearch/internal/core/model"
	"github.com/dimenwarper/rootsearch/internal/llm"
)

// LLMOracle implements Oracle on top of a chat client. Every call gets a
// bounded timeout; timeouts and unparseable answers surface as errors so
// the callers can take their conservative fallback paths.
type LLMOracle struct {
	LLM     llm.LLMClient
	Timeout time.Duration
}

func NewLLMOracle(client llm.LLMClient) *LLMOracle {
	return &LLMOracle{
		LLM:     client,
		Timeout: 60 * time.Second,
	}
}

func (o *LLMOracle) Disambiguate(ctx context.Context, cluster []model.CandidateNode) (*Decision, error) {
	if o.LLM == nil {
		return nil, model.ErrOracleUnavailable
	}

	var sb strings.Builder
	for i, n := range cluster {
		fmt.Fprintf(&sb, "Node %d:\n  ID: %s\n  Title: %s\n  Type: %s\n  Granularity: %s\n  Description: %s\n\n",
			i+1, n.ID, n.Title, n.Type, n.Granularity, n.Description)
	}

	prompt := fmt.Sprintf(`These nodes were extracted from different sources and may describe the same scientific problem.

%s
Decide ONE of:
A) MERGE - they are the same problem. Produce a single canonical title and merged description.
B) HIERARCHY - they are related but at different granularity levels. List (parent_id, child_id) pairs using the node IDs above.
C) DISTINCT - they are genuinely different despite surface similarity. Explain briefly.

Respond in JSON:
{"decision": "MERGE"|"HIERARCHY"|"DISTINCT", "canonical_title": "...", "canonical_description": "...", "pairs": [{"parent_id": "...", "child_id": "..."}], "reason": "..."}`, sb.String())

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	response, err := o.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrOracleUnavailable, err)
	}

	decision, err := common.ParseJSON[Decision](response)
	if err != nil {
		return nil, fmt.Errorf("unparseable disambiguation decision: %w", err)
	}
	decision.Kind = model.DecisionKind(strings.ToUpper(string(decision.Kind)))

	memberIDs := make([]string, len(cluster))
	for i, n := range cluster {
		memberIDs[i] = n.ID
	}
	if err := decision.Validate(memberIDs); err != nil {
		return nil, fmt.Errorf("invalid disambiguation decision: %w", err)
	}

	return &decision, nil
}

func (o *LLMOracle) Assess(ctx context.Context, node model.CanonicalNode, enabled []model.CanonicalNode) (*DecomposabilityScores, error) {
	if o.LLM == nil {
		return nil, model.ErrOracleUnavailable
	}

	var sb strings.Builder
	for _, n := range enabled {
		fmt.Fprintf(&sb, "- %s (%s)\n", n.Title, n.Type)
	}
	enabledList := sb.String()
	if enabledList == "" {
		enabledList = "(none)\n"
	}

	prompt := fmt.Sprintf(`You are assessing whether a scientific problem can be decomposed into parallel sub-efforts.

Problem: %s
Description: %s

It directly enables:
%s
Score the problem on four independent axes in [0,1]:
- subtask_independence: can sub-problems be worked on without coordinating?
- evaluability: can progress on a sub-problem be measured objectively?
- interface_clarity: are the interfaces between sub-problems well defined?
- recombinability: can partial solutions be recombined into a whole?

Also suggest an architecture from: parallel-search, divide-by-domain, divide-by-method, pipeline-with-branching, adversarial-debate, map-reduce, and estimate how many parallel agents the decomposition supports.

Respond in JSON:
{"subtask_independence": 0.0, "evaluability": 0.0, "interface_clarity": 0.0, "recombinability": 0.0, "architecture": "...", "agent_count": 1, "reason": "..."}`,
		node.Title, node.Description, enabledList)

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	response, err := o.LLM.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrOracleUnavailable, err)
	}

	scores, err := common.ParseJSON[DecomposabilityScores](response)
	if err != nil {
		return nil, fmt.Errorf("unparseable assessment: %w", err)
	}
	if err := scores.Validate(); err != nil {
		return nil, fmt.Errorf("invalid assessment: %w", err)
	}

	return &scores, nil
}
