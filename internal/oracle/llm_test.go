package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimenwarper/rootsearch/internal/core/model"
)

// mockLLM returns a canned response or error for every prompt.
type mockLLM struct {
	Response string
	Err      error

	LastPrompt string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.LastPrompt = prompt
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func sampleCluster() []model.CandidateNode {
	return []model.CandidateNode{
		{ID: "cand-a", Type: model.NodeOpenProblem, Title: "Room temperature superconductivity"},
		{ID: "cand-b", Type: model.NodeOpenProblem, Title: "Ambient superconductors"},
	}
}

func TestDisambiguateMerge(t *testing.T) {
	mock := &mockLLM{Response: "```json\n" +
		`{"decision": "merge", "canonical_title": "Room-temperature superconductivity", "reason": "same problem"}` +
		"\n```"}

	o := NewLLMOracle(mock)
	decision, err := o.Disambiguate(context.Background(), sampleCluster())
	require.NoError(t, err)

	// Lowercase decision kinds are normalized.
	assert.Equal(t, model.DecisionMerge, decision.Kind)
	assert.Equal(t, "Room-temperature superconductivity", decision.CanonicalTitle)
	// The prompt carries the candidate ids so hierarchy pairs can
	// reference them.
	assert.Contains(t, mock.LastPrompt, "cand-a")
	assert.Contains(t, mock.LastPrompt, "cand-b")
}

func TestDisambiguateHierarchyRejectsNonMembers(t *testing.T) {
	mock := &mockLLM{Response: `{"decision": "HIERARCHY", "pairs": [{"parent_id": "cand-a", "child_id": "ghost"}]}`}

	o := NewLLMOracle(mock)
	_, err := o.Disambiguate(context.Background(), sampleCluster())
	assert.Error(t, err)
}

func TestDisambiguateLLMFailure(t *testing.T) {
	mock := &mockLLM{Err: errors.New("rate limited")}

	o := NewLLMOracle(mock)
	_, err := o.Disambiguate(context.Background(), sampleCluster())
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrOracleUnavailable))
}

func TestDisambiguateUnparseableResponse(t *testing.T) {
	mock := &mockLLM{Response: "I think they might be the same problem."}

	o := NewLLMOracle(mock)
	_, err := o.Disambiguate(context.Background(), sampleCluster())
	assert.Error(t, err)
}

func TestAssessValidResponse(t *testing.T) {
	mock := &mockLLM{Response: `{"subtask_independence": 0.8, "evaluability": 0.6, "interface_clarity": 0.7, "recombinability": 0.5, "architecture": "map-reduce", "agent_count": 8, "reason": "clean domain split"}`}

	o := NewLLMOracle(mock)
	scores, err := o.Assess(context.Background(),
		model.CanonicalNode{ID: "perm-1", Title: "Protein folding"},
		[]model.CanonicalNode{{Title: "Drug design", Type: model.NodeOpenProblem}})
	require.NoError(t, err)

	assert.InDelta(t, 0.65, scores.Composite(), 1e-9)
	assert.Equal(t, "map-reduce", scores.Architecture)
	assert.Contains(t, mock.LastPrompt, "Drug design")
}

func TestAssessRejectsOutOfRangeAxis(t *testing.T) {
	mock := &mockLLM{Response: `{"subtask_independence": 1.4, "evaluability": 0.6, "interface_clarity": 0.7, "recombinability": 0.5}`}

	o := NewLLMOracle(mock)
	_, err := o.Assess(context.Background(), model.CanonicalNode{Title: "x"}, nil)
	assert.Error(t, err)
}

func TestAssessRejectsUnknownArchitecture(t *testing.T) {
	mock := &mockLLM{Response: `{"subtask_independence": 0.5, "evaluability": 0.5, "interface_clarity": 0.5, "recombinability": 0.5, "architecture": "swarm-of-swarms"}`}

	o := NewLLMOracle(mock)
	_, err := o.Assess(context.Background(), model.CanonicalNode{Title: "x"}, nil)
	assert.Error(t, err)
}
