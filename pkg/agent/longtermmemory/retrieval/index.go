// Package retrieval finds stored facts relevant to a piece of text using an
// in-memory HNSW graph over fact embeddings.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	"github.com/entrhq/recall/pkg/agent/longtermmemory"
	"github.com/entrhq/recall/pkg/llm"
)

// ErrDimensionMismatch is returned when an embedding does not match the
// index's dimensionality.
var ErrDimensionMismatch = errors.New("retrieval: embedding dimension mismatch")

// Hit is a fact returned by Search with its cosine similarity to the query.
type Hit struct {
	Fact  *longtermmemory.Fact
	Score float64
}

// Index maps live fact IDs to embedding vectors. It is safe for concurrent use.
type Index struct {
	embedder llm.Embedder
	graph    *hnsw.Graph[string]
	facts    map[string]*longtermmemory.Fact
	mu       sync.RWMutex
}

// NewIndex creates an empty index that embeds text with embedder.
func NewIndex(embedder llm.Embedder) *Index {
	return &Index{
		embedder: embedder,
		graph:    hnsw.NewGraph[string](),
		facts:    make(map[string]*longtermmemory.Fact),
	}
}

func (ix *Index) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("retrieval: embed: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("retrieval: embed: got %d vectors for %d texts", len(vecs), len(texts))
	}
	dims := ix.embedder.Dimensions()
	for _, v := range vecs {
		if dims > 0 && len(v) != dims {
			return nil, ErrDimensionMismatch
		}
	}
	return vecs, nil
}

// Upsert indexes f, replacing any vector already held under its ID.
// Tombstones are removed instead.
func (ix *Index) Upsert(ctx context.Context, f *longtermmemory.Fact) error {
	if f.Deleted {
		ix.Remove(f.ID)
		return nil
	}
	vecs, err := ix.embed(ctx, []string{f.Content})
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.addLocked(f, vecs[0])
	return nil
}

func (ix *Index) addLocked(f *longtermmemory.Fact, vec []float32) {
	if _, ok := ix.facts[f.ID]; ok {
		ix.deleteLocked(f.ID)
	}
	if isZero(vec) {
		// Nothing to compare against; cosine distance is undefined.
		return
	}
	ix.graph.Add(hnsw.MakeNode(f.ID, vec))
	ix.facts[f.ID] = f
}

// Remove drops id from the index. It reports whether id was present.
func (ix *Index) Remove(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.facts[id]; !ok {
		return false
	}
	ix.deleteLocked(id)
	return true
}

// deleteLocked drops id from the graph. hnsw leaves an empty layer without
// an entry node behind when its last node goes, and the next Add on such a
// graph panics, so an emptied graph is replaced with a fresh one.
func (ix *Index) deleteLocked(id string) {
	delete(ix.facts, id)
	ix.graph.Delete(id)
	if ix.graph.Len() == 0 {
		ix.graph = hnsw.NewGraph[string]()
	}
}

// Rebuild replaces the index contents with the live heads of facts.
func (ix *Index) Rebuild(ctx context.Context, facts []*longtermmemory.Fact) error {
	live := longtermmemory.Live(facts)
	texts := make([]string, len(live))
	for i, f := range live {
		texts[i] = f.Content
	}

	var vecs [][]float32
	if len(texts) > 0 {
		var err error
		if vecs, err = ix.embed(ctx, texts); err != nil {
			return err
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.graph = hnsw.NewGraph[string]()
	ix.facts = make(map[string]*longtermmemory.Fact, len(live))
	for i, f := range live {
		ix.addLocked(f, vecs[i])
	}
	return nil
}

// Search returns up to k indexed facts whose similarity to query is at least
// minScore, best first.
func (ix *Index) Search(ctx context.Context, query string, k int, minScore float64) ([]Hit, error) {
	if k <= 0 || ix.Len() == 0 {
		return nil, nil
	}
	vecs, err := ix.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	q := vecs[0]
	if isZero(q) {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.graph.Len() == 0 {
		return nil, nil
	}

	var hits []Hit
	for _, node := range ix.graph.Search(q, k) {
		f, ok := ix.facts[node.Key]
		if !ok {
			continue
		}
		score := 1 - float64(hnsw.CosineDistance(q, node.Value))
		if score >= minScore {
			hits = append(hits, Hit{Fact: f, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits, nil
}

// Get returns the indexed fact with the given ID.
func (ix *Index) Get(id string) (*longtermmemory.Fact, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	f, ok := ix.facts[id]
	return f, ok
}

// Len returns the number of indexed facts.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.facts)
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
