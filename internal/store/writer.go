package store

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dimenwarper/rootsearch/internal/core/assemble"
	"github.com/dimenwarper/rootsearch/internal/core/assess"
	"github.com/dimenwarper/rootsearch/internal/core/model"
	"github.com/dimenwarper/rootsearch/internal/core/score"
)

// WriteRanking emits the primary artifact: one scored node per line,
// sorted by rank.
func WriteRanking(w io.Writer, ranked []score.RankedNode) error {
	enc := json.NewEncoder(w)
	for _, rn := range ranked {
		if err := enc.Encode(rn); err != nil {
			return fmt.Errorf("failed to write ranking record: %w", err)
		}
	}
	return nil
}

// WriteAssessments emits the top-K decomposability assessments as a
// separate keyed stream.
func WriteAssessments(w io.Writer, assessments []assess.Assessment) error {
	enc := json.NewEncoder(w)
	for _, a := range assessments {
		if err := enc.Encode(a); err != nil {
			return fmt.Errorf("failed to write assessment record: %w", err)
		}
	}
	return nil
}

// graphRecord is one line of the persisted graph stream, discriminated
// by kind so nodes and edges can share a file.
type graphRecord struct {
	Kind string               `json:"kind"` // node | edge
	Node *model.CanonicalNode `json:"node,omitempty"`
	Edge *model.Edge          `json:"edge,omitempty"`
}

// WriteGraph persists an assembled graph as a mixed node/edge stream so
// a later export or inspection can reload it without rerunning the
// pipeline.
func WriteGraph(w io.Writer, g *assemble.Graph) error {
	enc := json.NewEncoder(w)
	for i := 0; i < g.Order(); i++ {
		if err := enc.Encode(graphRecord{Kind: "node", Node: g.Node(i)}); err != nil {
			return fmt.Errorf("failed to write graph node: %w", err)
		}
	}
	for ei := 0; ei < g.Size(); ei++ {
		if err := enc.Encode(graphRecord{Kind: "edge", Edge: g.Edge(ei)}); err != nil {
			return fmt.Errorf("failed to write graph edge: %w", err)
		}
	}
	return nil
}

// ReadGraph reloads a stream written by WriteGraph.
func ReadGraph(r io.Reader) ([]model.CanonicalNode, []model.Edge, error) {
	var nodes []model.CanonicalNode
	var edges []model.Edge

	err := scanLines(r, func(lineNo int, line []byte) {
		var rec graphRecord
		if json.Unmarshal(line, &rec) != nil {
			return
		}
		switch {
		case rec.Kind == "node" && rec.Node != nil:
			nodes = append(nodes, *rec.Node)
		case rec.Kind == "edge" && rec.Edge != nil:
			edges = append(edges, *rec.Edge)
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}
