// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich runs publications through an external AI service to
// produce summaries, keywords, and embedding vectors, writing results to
// the enrichment cache. A failure on one publication never aborts the
// batch; callers learn about partial failure from the RunSummary.
package enrich

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/bioorbit/bioorbit/pkg/types"
)

// Version identifies the current enrichment pipeline. Cached records
// carrying a different version are treated as misses and overwritten.
const Version = "1"

// Client produces enrichment output for a publication. Implementations
// classify failures with Transient or Permanent so the pipeline knows
// whether to retry.
type Client interface {
	// Enrich returns a record with Summary, Keywords, and Embedding set.
	// The pipeline stamps PublicationID, EnrichedAt, and Version.
	Enrich(ctx context.Context, pub types.Publication) (types.EnrichedRecord, error)

	// Embed returns the embedding vector for arbitrary text. Used for
	// query embedding at search time.
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Cache is the subset of the enrichment cache the pipeline needs. The
// concrete store is passed in by the caller; tests substitute an
// in-memory implementation.
type Cache interface {
	Get(publicationID string) (types.EnrichedRecord, bool, error)
	Put(record types.EnrichedRecord) error
}

// Options controls a pipeline run.
type Options struct {
	// Force re-enriches publications that already have a current record.
	Force bool

	// MaxRetries bounds retry attempts for transient failures (default 3).
	MaxRetries int

	// Dimensions, when positive, is the required embedding dimensionality;
	// records with a different shape are recorded as permanent failures.
	Dimensions int
}

// Failure records one publication the pipeline could not enrich.
type Failure struct {
	PublicationID string `json:"publication_id" yaml:"publication_id"`
	Reason        string `json:"reason" yaml:"reason"`
}

// RunSummary holds the outcome of an EnrichAll run.
type RunSummary struct {
	Attempted int
	Succeeded int
	Skipped   int
	Failed    []Failure
}

// Total returns the number of publications processed.
func (s RunSummary) Total() int {
	return s.Attempted + s.Skipped
}

// HasFailures reports whether any publications failed.
func (s RunSummary) HasFailures() bool {
	return len(s.Failed) > 0
}

// nowFunc returns the current time. Tests override it for stable records.
var nowFunc = func() time.Time { return time.Now().UTC() }

// backoffBase controls the base duration for exponential backoff between
// retries. Tests override this to avoid real sleeps.
var backoffBase = time.Second

// EnrichAll processes every publication: cached entries with the current
// version are skipped (unless opts.Force), misses are sent to the client,
// and successes are written through to the cache before moving on.
// Per-publication failures are aggregated into the summary; only
// structural cache errors abort the run.
func EnrichAll(ctx context.Context, pubs []types.Publication, store Cache, client Client, opts Options, w io.Writer) (RunSummary, error) {
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	var summary RunSummary

	for _, pub := range pubs {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if !opts.Force {
			cached, ok, err := store.Get(pub.ID)
			if err != nil {
				return summary, fmt.Errorf("reading cache for %s: %w", pub.ID, err)
			}
			if ok && cached.Version == Version {
				fmt.Fprintf(w, "skipped %s\n", pub.ID)
				summary.Skipped++
				continue
			}
		}

		summary.Attempted++

		record, err := enrichWithRetry(ctx, client, pub, maxRetries)
		if err == nil && opts.Dimensions > 0 && len(record.Embedding) != opts.Dimensions {
			err = Permanent(fmt.Errorf("embedding has %d dimensions, want %d",
				len(record.Embedding), opts.Dimensions))
		}
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			fmt.Fprintf(w, "failed  %s: %v\n", pub.ID, err)
			summary.Failed = append(summary.Failed, Failure{PublicationID: pub.ID, Reason: err.Error()})
			continue
		}

		record.PublicationID = pub.ID
		record.EnrichedAt = nowFunc()
		record.Version = Version

		if err := store.Put(record); err != nil {
			return summary, fmt.Errorf("writing cache for %s: %w", pub.ID, err)
		}

		fmt.Fprintf(w, "enriched %s (%d keywords)\n", pub.ID, len(record.Keywords))
		summary.Succeeded++
	}

	fmt.Fprintf(w, "\nenriched: %d, skipped: %d, failed: %d (total: %d)\n",
		summary.Succeeded, summary.Skipped, len(summary.Failed), summary.Total())

	return summary, nil
}

// enrichWithRetry calls the client, retrying transient failures with
// exponential backoff. Permanent failures return immediately.
func enrichWithRetry(ctx context.Context, client Client, pub types.Publication, maxRetries int) (types.EnrichedRecord, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return types.EnrichedRecord{}, ctx.Err()
			case <-time.After(backoff):
			}
		}

		record, err := client.Enrich(ctx, pub)
		if err == nil {
			return record, nil
		}
		if !IsTransient(err) {
			return types.EnrichedRecord{}, err
		}
		lastErr = err
	}
	return types.EnrichedRecord{}, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}
