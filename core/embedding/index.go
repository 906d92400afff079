package embedding

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/siherrmann/kgraph/core/similarity"
	"github.com/siherrmann/kgraph/helper"
	"github.com/siherrmann/kgraph/model"
)

// Index holds the latest graph embeddings. A new run replaces all vectors at once.
type Index struct {
	mu        sync.RWMutex
	vectors   map[uuid.UUID][]float32
	order     []uuid.UUID
	params    model.EmbeddingParams
	updatedAt *time.Time
}

func NewIndex() *Index {
	return &Index{vectors: map[uuid.UUID][]float32{}}
}

// Replace swaps in the vectors of a new run. order fixes the iteration order of MostSimilar.
func (x *Index) Replace(vectors map[uuid.UUID][]float32, order []uuid.UUID, params model.EmbeddingParams) {
	kept := make([]uuid.UUID, 0, len(vectors))
	for _, id := range order {
		if _, ok := vectors[id]; ok {
			kept = append(kept, id)
		}
	}
	now := time.Now().UTC()

	x.mu.Lock()
	defer x.mu.Unlock()
	x.vectors = vectors
	x.order = kept
	x.params = params
	x.updatedAt = &now
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Get returns the vector of a node, helper.ErrNotFound if it has none.
func (x *Index) Get(id uuid.UUID) ([]float32, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	vec, ok := x.vectors[id]
	if !ok {
		return nil, helper.NewError("get embedding", helper.ErrNotFound)
	}
	return append([]float32(nil), vec...), nil
}

// MostSimilar returns up to limit nodes with a cosine similarity of at least
// minSimilarity to id, most similar first. The node itself is excluded.
func (x *Index) MostSimilar(id uuid.UUID, minSimilarity float64, limit int) ([]model.SimilarNode, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	query, ok := x.vectors[id]
	if !ok {
		return nil, helper.NewError("most similar", helper.ErrNotFound)
	}

	results := []model.SimilarNode{}
	for _, other := range x.order {
		if other == id {
			continue
		}
		s := similarity.CosineSimilarity(query, x.vectors[other])
		if s >= minSimilarity {
			results = append(results, model.SimilarNode{ID: other, Similarity: s})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID.String() < results[j].ID.String()
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
