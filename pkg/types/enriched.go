// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// EnrichedRecord is the per-publication output of the enrichment pipeline:
// an AI-generated summary, extracted keywords, and an embedding vector.
// At most one record exists per publication id; re-enrichment overwrites.
type EnrichedRecord struct {
	// PublicationID matches the Publication this record was derived from.
	PublicationID string `json:"publication_id" yaml:"publication_id"`

	// Summary is the model-generated abstract summary.
	Summary string `json:"summary" yaml:"summary"`

	// Keywords are lowercase topic labels extracted alongside the summary.
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Embedding is the semantic vector for the publication text. All
	// records in a cache share one dimensionality.
	Embedding []float64 `json:"embedding" yaml:"embedding"`

	// EnrichedAt is the UTC time the record was produced.
	EnrichedAt time.Time `json:"enriched_at" yaml:"enriched_at"`

	// Version identifies the pipeline version that produced the record.
	// A version change makes the pipeline treat the entry as stale.
	Version string `json:"enrichment_version" yaml:"enrichment_version"`
}
