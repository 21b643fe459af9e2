package model

import (
	"fmt"
	"strings"
	"time"
)

type NodeType string

const (
	NodeOpenProblem           NodeType = "open_problem"
	NodeCapabilityGap         NodeType = "capability_gap"
	NodeDataGap               NodeType = "data_gap"
	NodeInfrastructureGap     NodeType = "infrastructure_gap"
	NodeTheoreticalGap        NodeType = "theoretical_gap"
	NodeEngineeringBottleneck NodeType = "engineering_bottleneck"
)

func (t NodeType) Valid() bool {
	switch t {
	case NodeOpenProblem, NodeCapabilityGap, NodeDataGap,
		NodeInfrastructureGap, NodeTheoreticalGap, NodeEngineeringBottleneck:
		return true
	}
	return false
}

type Granularity string

const (
	GranularityL0 Granularity = "L0" // grand challenge
	GranularityL1 Granularity = "L1"
	GranularityL2 Granularity = "L2"
	GranularityL3 Granularity = "L3" // concrete task
)

type NodeStatus string

const (
	StatusOpen              NodeStatus = "open"
	StatusPartiallyResolved NodeStatus = "partially_resolved"
	StatusResolved          NodeStatus = "resolved"
	StatusObsolete          NodeStatus = "obsolete"
)

type ExtractionMethod string

const (
	MethodLLMExtracted     ExtractionMethod = "llm_extracted"
	MethodExpertCurated    ExtractionMethod = "expert_curated"
	MethodPatternMatched   ExtractionMethod = "pattern_matched"
	MethodCitationInferred ExtractionMethod = "citation_inferred"
)

// SourceRef points at the document a node or edge was extracted from,
// with the quoted span supporting the extraction.
type SourceRef struct {
	SourceType    string `json:"source_type"` // paper | patent | grant | curated_list
	SourceID      string `json:"source_id"`   // DOI, OpenAlex ID, patent number, URL
	EvidenceQuote string `json:"evidence_quote,omitempty"`
}

// CandidateNode is a raw extraction-time node with a provisional id,
// owned by the candidate store until consumed by clustering.
type CandidateNode struct {
	ID               string           `json:"node_id"`
	Type             NodeType         `json:"type"`
	Granularity      Granularity      `json:"granularity"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Fields           []string         `json:"fields"` // "domain.subdomain" tags
	Status           NodeStatus       `json:"status"`
	Confidence       float64          `json:"confidence"`
	Sources          []SourceRef      `json:"sources"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	SuggestedParent  string           `json:"suggested_parent,omitempty"`
	CrossFieldRef    bool             `json:"cross_field_ref"` // stub pointing outside its field
	CreatedAt        time.Time        `json:"created_at"`
}

// Validate enforces the candidate-store boundary: a record missing id,
// type or title is skipped, and unrecognized type tags are quarantined
// rather than propagated into scoring.
func (n *CandidateNode) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("%w: missing node_id", ErrInvalidInput)
	}
	if n.Title == "" {
		return fmt.Errorf("%w: node %s missing title", ErrInvalidInput, n.ID)
	}
	if n.Type == "" {
		return fmt.Errorf("%w: node %s missing type", ErrInvalidInput, n.ID)
	}
	if !n.Type.Valid() {
		return fmt.Errorf("%w: node %s has unrecognized type %q", ErrInvalidInput, n.ID, n.Type)
	}
	if n.Confidence < 0 || n.Confidence > 1 {
		return fmt.Errorf("%w: node %s confidence %v out of [0,1]", ErrInvalidInput, n.ID, n.Confidence)
	}
	return nil
}

// EmbeddingText is the text submitted to the similarity index.
func (n *CandidateNode) EmbeddingText() string {
	if n.Description == "" {
		return n.Title
	}
	return n.Title + ". " + n.Description
}

// Domains returns the distinct top-level domain tags (the part of
// "domain.subdomain" before the dot).
func (n *CandidateNode) Domains() []string {
	return topLevelDomains(n.Fields)
}

// CanonicalNode is a resolved node with a permanent id. Created by a merge
// decision or stub promotion, never deleted.
type CanonicalNode struct {
	ID               string           `json:"node_id"`
	Type             NodeType         `json:"type"`
	Granularity      Granularity      `json:"granularity"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Fields           []string         `json:"fields"`
	Status           NodeStatus       `json:"status"`
	Confidence       float64          `json:"confidence"` // max over merged candidates, never averaged
	Sources          []SourceRef      `json:"sources"`    // union over merged candidates
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
	MemberIDs        []string         `json:"member_ids"` // provisional ids folded into this node
	ParentID         string           `json:"parent_id,omitempty"`
	ChildrenIDs      []string         `json:"children_ids,omitempty"`
	NeedsReview      bool             `json:"needs_review,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`

	// Populated by the scoring engine after assembly.
	Scores *NodeScores `json:"scores,omitempty"`
}

func (n *CanonicalNode) Domains() []string {
	return topLevelDomains(n.Fields)
}

func topLevelDomains(fields []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range fields {
		domain := f
		if i := strings.Index(f, "."); i >= 0 {
			domain = f[:i]
		}
		if domain != "" && !seen[domain] {
			seen[domain] = true
			out = append(out, domain)
		}
	}
	return out
}
