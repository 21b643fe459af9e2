package model

import "time"

type DecisionKind string

const (
	DecisionMerge     DecisionKind = "MERGE"
	DecisionHierarchy DecisionKind = "HIERARCHY"
	DecisionDistinct  DecisionKind = "DISTINCT"

	// Stub resolution outcomes, recorded with the same log machinery.
	DecisionStubMatch   DecisionKind = "STUB_MATCH"
	DecisionStubPromote DecisionKind = "STUB_PROMOTE"
)

// MergeRecord is the immutable audit record of one cluster or stub
// resolution. The log is append-only and never mutated; replaying it is
// idempotent because each record carries its full input member set.
type MergeRecord struct {
	ID        string       `json:"record_id"`
	MemberIDs []string     `json:"member_ids"` // cluster member or stub provisional ids
	Decision  DecisionKind `json:"decision"`
	ResultIDs []string     `json:"result_ids"` // resulting canonical id(s)
	Rationale string       `json:"rationale,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NodeScores holds the computed components attached to a canonical node
// after scoring.
type NodeScores struct {
	Cascade       float64 `json:"cascade_score"`
	CrossField    float64 `json:"cross_field_score"`
	Bottleneck    float64 `json:"bottleneck_score"`
	LeverageIndex float64 `json:"leverage_index"`
	Rank          int     `json:"rank"`
}
