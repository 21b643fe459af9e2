package assemble

// Stats is a summary of the assembled graph, attached to the run report.
type Stats struct {
	Nodes           int            `json:"nodes"`
	Edges           int            `json:"edges"`
	OrphanNodes     int            `json:"orphan_nodes"`
	OrphanPct       float64        `json:"orphan_pct"`
	CrossFieldEdges int            `json:"cross_field_edges"`
	NodeTypes       map[string]int `json:"node_types"`
	EdgeTypes       map[string]int `json:"edge_types"`
	Fields          map[string]int `json:"field_distribution"`
}

// ComputeStats walks the graph once and histograms node/edge types, the
// top-level field distribution and cross-field edges (edges whose
// endpoint domain sets do not intersect).
func ComputeStats(g *Graph) *Stats {
	s := &Stats{
		Nodes:     g.Order(),
		Edges:     g.Size(),
		NodeTypes: make(map[string]int),
		EdgeTypes: make(map[string]int),
		Fields:    make(map[string]int),
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		s.NodeTypes[string(n.Type)]++
		for _, d := range n.Domains() {
			s.Fields[d]++
		}
	}

	for ei := range g.Edges {
		e := &g.Edges[ei]
		s.EdgeTypes[string(e.Type)]++

		src := g.Node(g.SourceIndex(ei))
		tgt := g.Node(g.TargetIndex(ei))
		if disjointDomains(src.Domains(), tgt.Domains()) {
			s.CrossFieldEdges++
		}
	}

	s.OrphanNodes = len(g.Orphans())
	if s.Nodes > 0 {
		s.OrphanPct = float64(s.OrphanNodes) / float64(s.Nodes) * 100
	}
	return s
}

func disjointDomains(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, d := range a {
		set[d] = true
	}
	for _, d := range b {
		if set[d] {
			return false
		}
	}
	return true
}
