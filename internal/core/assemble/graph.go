package assemble

import (
	"github.com/dimenwarper/rootsearch/internal/core/model"
)

// Graph is the assembled directed multigraph. Nodes and edges live in
// arenas addressed by integer index; adjacency lists hold edge indices.
// The assembler owns it during construction, then hands it read-only to
// the scoring engine.
type Graph struct {
	Nodes []model.CanonicalNode
	Edges []model.Edge

	index map[string]int // node id -> arena index
	out   [][]int        // node index -> outbound edge indices
	in    [][]int        // node index -> inbound edge indices
}

func (g *Graph) Order() int { return len(g.Nodes) }
func (g *Graph) Size() int  { return len(g.Edges) }

// NodeIndex returns the arena index for a node id.
func (g *Graph) NodeIndex(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

func (g *Graph) Node(i int) *model.CanonicalNode { return &g.Nodes[i] }
func (g *Graph) Edge(i int) *model.Edge          { return &g.Edges[i] }

// OutEdges returns the outbound edge indices of node i.
func (g *Graph) OutEdges(i int) []int { return g.out[i] }

// InEdges returns the inbound edge indices of node i.
func (g *Graph) InEdges(i int) []int { return g.in[i] }

// TargetIndex resolves the target arena index of edge e.
func (g *Graph) TargetIndex(e int) int { return g.index[g.Edges[e].TargetID] }

// SourceIndex resolves the source arena index of edge e.
func (g *Graph) SourceIndex(e int) int { return g.index[g.Edges[e].SourceID] }

// Orphans returns the ids of nodes with zero in-degree and zero
// out-degree. A quality signal, not an error.
func (g *Graph) Orphans() []string {
	var orphans []string
	for i := range g.Nodes {
		if len(g.out[i]) == 0 && len(g.in[i]) == 0 {
			orphans = append(orphans, g.Nodes[i].ID)
		}
	}
	return orphans
}
