// Package similarity embeds node text and answers cosine-similarity
// queries for clustering and stub resolution.
package similarity

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dimenwarper/rootsearch/internal/core/model"
	"github.com/dimenwarper/rootsearch/internal/llm"
)

// Item is one (id, text) pair to embed.
type Item struct {
	ID   string
	Text string
}

// Match is a scored candidate returned by TopMatches.
type Match struct {
	ID         string
	Similarity float64
}

// Index holds fixed-length embeddings keyed by id. The dimension is fixed
// by the first vector added and stable for the process lifetime.
type Index struct {
	mu      sync.RWMutex
	dims    int
	vectors map[string][]float32
}

func NewIndex() *Index {
	return &Index{
		vectors: make(map[string][]float32),
	}
}

// Add registers a vector under id. The first vector fixes the index
// dimension; later mismatches are rejected.
func (ix *Index) Add(id string, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("%w: empty embedding for %s", model.ErrInvalidInput, id)
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.dims == 0 {
		ix.dims = len(vec)
	} else if len(vec) != ix.dims {
		return fmt.Errorf("%w: embedding dimension mismatch for %s: got %d, want %d",
			model.ErrInvalidInput, id, len(vec), ix.dims)
	}
	ix.vectors[id] = vec
	return nil
}

func (ix *Index) Dims() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dims
}

func (ix *Index) Has(id string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.vectors[id]
	return ok
}

// Vector returns the stored embedding for id, if any.
func (ix *Index) Vector(id string) ([]float32, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	vec, ok := ix.vectors[id]
	return vec, ok
}

// Similarity returns the cosine similarity between two indexed ids.
func (ix *Index) Similarity(a, b string) (float64, error) {
	ix.mu.RLock()
	va, okA := ix.vectors[a]
	vb, okB := ix.vectors[b]
	ix.mu.RUnlock()
	if !okA {
		return 0, fmt.Errorf("%w: id %s not indexed", model.ErrInvalidInput, a)
	}
	if !okB {
		return 0, fmt.Errorf("%w: id %s not indexed", model.ErrInvalidInput, b)
	}
	return Cosine(va, vb), nil
}

// TopMatches scores id against every candidate id and returns the top k
// matches sorted by similarity descending, ties broken by id for
// determinism.
func (ix *Index) TopMatches(id string, candidates []string, k int) ([]Match, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	query, ok := ix.vectors[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %s not indexed", model.ErrInvalidInput, id)
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if c == id {
			continue
		}
		vec, ok := ix.vectors[c]
		if !ok {
			continue
		}
		matches = append(matches, Match{ID: c, Similarity: Cosine(query, vec)})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ID < matches[j].ID
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Cosine computes cosine similarity between two vectors. Zero-norm vectors
// score 0 against everything.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Build embeds every item with a bounded worker pool and returns the
// populated index. Items with empty text fail the whole build with
// ErrInvalidInput; embedding identical text must yield identical vectors,
// which is the embedder's contract.
func Build(ctx context.Context, embedder llm.EmbedderClient, items []Item, workers int) (*Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", model.ErrInvalidConfiguration)
	}
	for _, it := range items {
		if strings.TrimSpace(it.Text) == "" {
			return nil, fmt.Errorf("%w: empty text for id %s", model.ErrInvalidInput, it.ID)
		}
	}
	if workers < 1 {
		workers = 1
	}

	ix := NewIndex()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, it := range items {
		g.Go(func() error {
			vec, err := embedder.Embed(ctx, it.Text)
			if err != nil {
				return fmt.Errorf("failed to embed %s: %w", it.ID, err)
			}
			return ix.Add(it.ID, vec)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ix, nil
}
