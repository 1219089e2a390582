// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Publication is one row of the space-biology dataset: a paper identified
// by its PubMed Central accession with whatever metadata the CSV carries.
// Publications are immutable once loaded; enrichment output lives in
// EnrichedRecord, keyed by the same ID.
type Publication struct {
	// ID is the PMC accession slug (e.g. "PMC4136787"), taken from the
	// dataset's id column or derived from the article link.
	ID string `json:"id" yaml:"id"`

	// Title is the publication title.
	Title string `json:"title" yaml:"title"`

	// Link is the URL of the article, typically a PMC page.
	Link string `json:"link" yaml:"link"`

	// Abstract is the abstract text. Empty until fetched.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Authors lists the authors in source order, when the dataset has them.
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`

	// Year is the publication year, zero when unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`
}
