package dedup

import (
	"context"
	"fmt"
	"sort"

	"github.com/rmercer/issuepilot/internal/store"
)

// StoreProvider implements NeighborSource over the local embedding store by
// scanning a repo's stored vectors and computing cosine distances in-process.
type StoreProvider struct {
	store store.EmbeddingStore
}

// NewStoreProvider creates a StoreProvider.
func NewStoreProvider(s store.EmbeddingStore) *StoreProvider {
	return &StoreProvider{store: s}
}

// NearestNeighbors returns up to limit stored issues nearest to embedding,
// ascending by distance. Rows with missing or mismatched vectors are skipped.
func (p *StoreProvider) NearestNeighbors(ctx context.Context, repo string, embedding []float32, excludeNumber, limit int) ([]Candidate, error) {
	existing, err := p.store.GetEmbeddingsForRepo(ctx, repo)
	if err != nil {
		return nil, fmt.Errorf("fetching embeddings for %s: %w", repo, err)
	}

	var neighbors []Candidate
	for _, ie := range existing {
		if ie.Number == excludeNumber {
			continue
		}

		other := DecodeEmbedding(ie.Embedding)
		if len(other) == 0 {
			continue
		}

		distance, err := CosineDistance(embedding, other)
		if err != nil {
			// Vectors from an older embedding model; skip quietly.
			continue
		}

		neighbors = append(neighbors, Candidate{
			Number:   ie.Number,
			Title:    ie.Title,
			State:    ie.State,
			Distance: distance,
		})
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Distance < neighbors[j].Distance
	})

	if limit > 0 && len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

// Compile-time check.
var _ NeighborSource = (*StoreProvider)(nil)
