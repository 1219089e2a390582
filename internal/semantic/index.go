// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package semantic provides brute-force cosine-similarity search over
// cached publication embeddings. The index is derived state: it is
// rebuilt from the enrichment cache whenever needed and never persisted.
package semantic

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/bioorbit/bioorbit/pkg/types"
)

// ErrDimensionMismatch indicates a vector whose shape does not match the
// index: mixed dimensionalities at build time, or a query vector of the
// wrong length.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// Hit is one similarity search result.
type Hit struct {
	PublicationID string  `json:"id"`
	Score         float64 `json:"score"`
}

// entry pairs an id with its embedding. Entries are kept sorted by id so
// ties in score break deterministically without re-sorting.
type entry struct {
	id        string
	embedding []float64
}

// Index is an in-memory nearest-neighbor structure over enriched records.
type Index struct {
	entries    []entry
	dimensions int
}

// Build constructs an index from cached records. Records with no
// embedding are skipped; records whose embeddings disagree on
// dimensionality fail with ErrDimensionMismatch. Zero records yields an
// empty, queryable index.
func Build(records []types.EnrichedRecord) (*Index, error) {
	idx := &Index{}

	for _, r := range records {
		if len(r.Embedding) == 0 {
			continue
		}
		if idx.dimensions == 0 {
			idx.dimensions = len(r.Embedding)
		}
		if len(r.Embedding) != idx.dimensions {
			return nil, fmt.Errorf("%w: record %s has %d dimensions, index has %d",
				ErrDimensionMismatch, r.PublicationID, len(r.Embedding), idx.dimensions)
		}
		idx.entries = append(idx.entries, entry{id: r.PublicationID, embedding: r.Embedding})
	}

	sort.Slice(idx.entries, func(i, j int) bool {
		return idx.entries[i].id < idx.entries[j].id
	})

	return idx, nil
}

// Len returns the number of indexed embeddings.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Dimensions returns the embedding dimensionality, zero for an empty index.
func (idx *Index) Dimensions() int {
	return idx.dimensions
}

// Query returns up to k hits ranked by cosine similarity to vec, highest
// first, ties broken by publication id ascending. An empty index returns
// an empty slice; a query vector of the wrong shape fails with
// ErrDimensionMismatch.
func (idx *Index) Query(vec []float64, k int) ([]Hit, error) {
	if len(idx.entries) == 0 {
		return []Hit{}, nil
	}
	if len(vec) != idx.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			ErrDimensionMismatch, len(vec), idx.dimensions)
	}
	if k <= 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, len(idx.entries))
	for _, e := range idx.entries {
		hits = append(hits, Hit{
			PublicationID: e.id,
			Score:         cosineSimilarity(vec, e.embedding),
		})
	}

	// Entries are pre-sorted by id, so a stable sort on score keeps the
	// ascending-id order within equal scores.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors
// of equal length. A zero vector yields similarity 0.
func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
