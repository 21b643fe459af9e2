// Package assemble builds one consistent directed multigraph from the
// canonical nodes and raw edges left after clustering and stub
// resolution.
package assemble

import (
	"sort"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dimenwarper/rootsearch/internal/core/model"
)

// Report counts what assembly dropped or collapsed. Orphans are reported,
// not treated as errors.
type Report struct {
	DroppedDangling   int      `json:"dropped_dangling"`
	DroppedSelfLoops  int      `json:"dropped_self_loops"`
	Collapsed         int      `json:"collapsed_duplicates"`
	DroppedBelowFloor int      `json:"dropped_below_floor"`
	Orphans           []string `json:"orphans,omitempty"`
}

// Assembler produces the final graph. idMap carries every provisional id
// to its canonical id; edges whose endpoints cannot be resolved are
// dropped and logged, never fatal.
type Assembler struct {
	Floor  float64 // minimum strength*confidence an edge must carry
	Logger *log.Logger
}

// Assemble rewrites edge endpoints to permanent ids, drops self-loops and
// dangling references, collapses exact duplicates (same ordered pair and
// type) keeping the max strength*confidence, filters edges below the
// floor and reports orphans. The result contains no dangling reference
// and no self-loop; it may legally be disconnected and contain cycles.
func (a *Assembler) Assemble(nodes []model.CanonicalNode, edges []model.Edge, idMap map[string]string) (*Graph, *Report) {
	report := &Report{}

	g := &Graph{
		Nodes: append([]model.CanonicalNode(nil), nodes...),
		index: make(map[string]int, len(nodes)),
	}
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].ID < g.Nodes[j].ID })
	for i := range g.Nodes {
		g.index[g.Nodes[i].ID] = i
	}

	resolve := func(id string) (string, bool) {
		if mapped, ok := idMap[id]; ok {
			id = mapped
		}
		_, known := g.index[id]
		return id, known
	}

	type edgeKey struct {
		src, tgt string
		typ      model.EdgeType
	}
	best := make(map[edgeKey]model.Edge)
	var order []edgeKey

	for _, e := range edges {
		src, okS := resolve(e.SourceID)
		tgt, okT := resolve(e.TargetID)
		if !okS || !okT {
			report.DroppedDangling++
			if a.Logger != nil {
				a.Logger.Warn("dropping edge with unresolved endpoint",
					"edge", e.ID, "source", e.SourceID, "target", e.TargetID)
			}
			continue
		}
		if src == tgt {
			// Merging two candidates can fold an edge onto one node.
			report.DroppedSelfLoops++
			continue
		}

		e.SourceID = src
		e.TargetID = tgt
		if e.ID == "" {
			e.ID = uuid.New().String()
		}

		key := edgeKey{src: src, tgt: tgt, typ: e.Type}
		if prev, dup := best[key]; dup {
			report.Collapsed++
			if e.Weight() > prev.Weight() {
				best[key] = e
			}
			continue
		}
		best[key] = e
		order = append(order, key)
	}

	for _, key := range order {
		e := best[key]
		if e.Weight() < a.Floor {
			report.DroppedBelowFloor++
			continue
		}
		g.Edges = append(g.Edges, e)
	}

	g.out = make([][]int, len(g.Nodes))
	g.in = make([][]int, len(g.Nodes))
	for ei := range g.Edges {
		si := g.index[g.Edges[ei].SourceID]
		ti := g.index[g.Edges[ei].TargetID]
		g.out[si] = append(g.out[si], ei)
		g.in[ti] = append(g.in[ti], ei)
	}

	report.Orphans = g.Orphans()

	if a.Logger != nil {
		a.Logger.Info("graph assembled",
			"nodes", g.Order(),
			"edges", g.Size(),
			"dangling_dropped", report.DroppedDangling,
			"self_loops_dropped", report.DroppedSelfLoops,
			"below_floor_dropped", report.DroppedBelowFloor,
			"orphans", len(report.Orphans))
	}
	return g, report
}
