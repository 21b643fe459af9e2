package score

import (
	"container/heap"
	"math"

	"github.com/dimenwarper/rootsearch/internal/core/assemble"
	"github.com/dimenwarper/rootsearch/internal/core/model"
)

// distEpsilon treats two weighted path lengths as equal when comparing
// shortest-path counts.
const distEpsilon = 1e-9

// Bottleneck computes betweenness centrality restricted to the ENABLES
// subgraph, with edge length 1/(strength x confidence) so stronger, more
// confident dependencies are shorter paths. Pairs with no path contribute
// zero, so disconnected subgraphs are fine. Scores are normalized by the
// theoretical maximum (n-1)(n-2) for a directed graph.
func Bottleneck(g *assemble.Graph) map[string]float64 {
	n := g.Order()

	type arc struct {
		to     int
		length float64
	}
	adj := make([][]arc, n)
	for ei := range g.Edges {
		e := g.Edge(ei)
		if e.Type != model.EdgeEnables {
			continue
		}
		w := e.Weight()
		if w < 1e-6 {
			w = 1e-6
		}
		adj[g.SourceIndex(ei)] = append(adj[g.SourceIndex(ei)], arc{
			to:     g.TargetIndex(ei),
			length: 1.0 / w,
		})
	}

	centrality := make([]float64, n)

	// Brandes' algorithm with Dijkstra for weighted shortest paths.
	for s := 0; s < n; s++ {
		dist := make([]float64, n)
		sigma := make([]float64, n)
		preds := make([][]int, n)
		for i := range dist {
			dist[i] = math.Inf(1)
		}
		dist[s] = 0
		sigma[s] = 1

		var stack []int
		pq := &nodeQueue{}
		heap.Init(pq)
		heap.Push(pq, nodeDist{node: s, dist: 0})
		settled := make([]bool, n)

		for pq.Len() > 0 {
			cur := heap.Pop(pq).(nodeDist)
			u := cur.node
			if settled[u] {
				continue
			}
			settled[u] = true
			stack = append(stack, u)

			for _, a := range adj[u] {
				alt := dist[u] + a.length
				switch {
				case alt < dist[a.to]-distEpsilon:
					dist[a.to] = alt
					sigma[a.to] = sigma[u]
					preds[a.to] = []int{u}
					heap.Push(pq, nodeDist{node: a.to, dist: alt})
				case math.Abs(alt-dist[a.to]) <= distEpsilon:
					sigma[a.to] += sigma[u]
					preds[a.to] = append(preds[a.to], u)
				}
			}
		}

		// Dependency accumulation in reverse settlement order.
		delta := make([]float64, n)
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				if sigma[w] > 0 {
					delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
				}
			}
			if w != s {
				centrality[w] += delta[w]
			}
		}
	}

	scores := make(map[string]float64, n)
	norm := float64((n - 1) * (n - 2))
	for i := 0; i < n; i++ {
		v := centrality[i]
		if norm > 0 {
			v /= norm
		}
		scores[g.Node(i).ID] = v
	}
	return scores
}

type nodeDist struct {
	node int
	dist float64
}

type nodeQueue []nodeDist

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(nodeDist)) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
