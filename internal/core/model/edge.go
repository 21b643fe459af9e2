package model

import (
	"fmt"
	"time"
)

type EdgeType string

const (
	EdgeEnables     EdgeType = "ENABLES"      // solving A directly allows progress on B
	EdgeProducesFor EdgeType = "PRODUCES_FOR" // A produces a tool/dataset/method B requires
)

func (t EdgeType) Valid() bool {
	return t == EdgeEnables || t == EdgeProducesFor
}

// Edge is a directed dependency relation between two nodes. Endpoints are
// provisional ids at extraction time; the assembler rewrites them to
// permanent ids.
type Edge struct {
	ID               string           `json:"edge_id"`
	Type             EdgeType         `json:"type"`
	SourceID         string           `json:"source_node_id"` // the enabler / producer
	TargetID         string           `json:"target_node_id"` // the enabled / consumer
	Strength         float64          `json:"strength"`       // 1.0 = hard prerequisite
	Confidence       float64          `json:"confidence"`
	Mechanism        string           `json:"mechanism,omitempty"`
	Evidence         []SourceRef      `json:"evidence,omitempty"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	CreatedAt        time.Time        `json:"created_at"`
}

func (e *Edge) Validate() error {
	if e.SourceID == "" || e.TargetID == "" {
		return fmt.Errorf("%w: edge %s missing endpoint", ErrInvalidInput, e.ID)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: edge %s has unrecognized type %q", ErrInvalidInput, e.ID, e.Type)
	}
	if e.Strength < 0 || e.Strength > 1 || e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("%w: edge %s strength/confidence out of [0,1]", ErrInvalidInput, e.ID)
	}
	return nil
}

// Weight is the effective edge weight used for duplicate collapsing, the
// assembly floor and scoring.
func (e *Edge) Weight() float64 {
	return e.Strength * e.Confidence
}
