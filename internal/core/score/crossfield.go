package score

import (
	"github.com/dimenwarper/rootsearch/internal/core/assemble"
)

// CrossField measures how many distinct top-level domains a node can
// reach over outbound dependency edges, depth-discounted: a domain first
// seen at hop distance d contributes 1/(1+d). The node's own domains are
// excluded, so cycles back to the start add nothing. Scores are
// normalized to [0,1] by the maximum across all nodes.
func CrossField(g *assemble.Graph) map[string]float64 {
	n := g.Order()
	raw := make(map[string]float64, n)

	for start := 0; start < n; start++ {
		own := make(map[string]bool)
		for _, d := range g.Node(start).Domains() {
			own[d] = true
		}

		// Standard reachability BFS; the visited set handles cycles.
		visited := make([]bool, n)
		visited[start] = true
		frontier := []int{start}
		hop := 0

		domainWeight := make(map[string]float64)

		for len(frontier) > 0 {
			hop++
			var next []int
			for _, u := range frontier {
				for _, ei := range g.OutEdges(u) {
					v := g.TargetIndex(ei)
					if visited[v] {
						continue
					}
					visited[v] = true
					next = append(next, v)

					for _, d := range g.Node(v).Domains() {
						if own[d] {
							continue
						}
						if _, seen := domainWeight[d]; !seen {
							domainWeight[d] = 1.0 / float64(1+hop)
						}
					}
				}
			}
			frontier = next
		}

		sum := 0.0
		for _, w := range domainWeight {
			sum += w
		}
		raw[g.Node(start).ID] = sum
	}

	return normalizeByMax(raw)
}

func normalizeByMax(scores map[string]float64) map[string]float64 {
	max := 0.0
	for _, v := range scores {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return scores
	}
	out := make(map[string]float64, len(scores))
	for k, v := range scores {
		out[k] = v / max
	}
	return out
}
