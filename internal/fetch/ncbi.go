// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves publication abstracts from the NCBI E-utilities
// API and writes them back into the dataset CSV. It continues past
// individual failures and reports a batch summary.
package fetch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bioorbit/bioorbit/internal/dataset"
	"github.com/bioorbit/bioorbit/internal/httputil"
	"github.com/bioorbit/bioorbit/pkg/types"
)

// efetchAPIBase is the NCBI efetch endpoint. Declared as a var so tests
// can substitute an httptest server.
var efetchAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"

// BatchResult holds the outcome of a batch abstract fetch.
type BatchResult struct {
	Fetched int
	Skipped int
	Failed  int
}

// Total returns the number of publications processed.
func (r BatchResult) Total() int {
	return r.Fetched + r.Skipped + r.Failed
}

// HasFailures reports whether any fetches failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// FetchAbstract retrieves the abstract text for one PMC accession.
func FetchAbstract(ctx context.Context, client *http.Client, pmcID string, cfg types.FetchConfig) (string, error) {
	params := url.Values{
		"db":      {"pmc"},
		"id":      {strings.TrimPrefix(pmcID, "PMC")},
		"retmode": {"text"},
		"rettype": {"abstract"},
	}
	if cfg.APIKey != "" {
		params.Set("api_key", cfg.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, efetchAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, client, req, 0)
	if err != nil {
		return "", fmt.Errorf("efetch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("efetch returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading efetch response: %w", err)
	}

	abstract := strings.TrimSpace(string(body))
	if abstract == "" {
		return "", fmt.Errorf("efetch returned no text for %s", pmcID)
	}
	return abstract, nil
}

// FetchAll fetches abstracts for every publication that does not already
// have one, applying the configured delay between requests, and rewrites
// the dataset CSV atomically. Individual failures are reported and
// counted but never abort the batch.
func FetchAll(ctx context.Context, client *http.Client, ds *dataset.Dataset, cfg types.FetchConfig, w io.Writer) (BatchResult, error) {
	delay := cfg.FetchDelay
	if delay <= 0 {
		delay = 350 * time.Millisecond
	}

	var result BatchResult
	pubs := ds.Publications()
	requested := false

	for i := range pubs {
		pub := &pubs[i]

		if pub.Abstract != "" {
			fmt.Fprintf(w, "skipped %s (has abstract)\n", pub.ID)
			result.Skipped++
			continue
		}

		if requested {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(delay):
			}
		}
		requested = true

		abstract, err := FetchAbstract(ctx, client, pub.ID, cfg)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			fmt.Fprintf(w, "failed  %s: %v\n", pub.ID, err)
			result.Failed++
			continue
		}

		pub.Abstract = abstract
		fmt.Fprintf(w, "fetched %s (%d chars)\n", pub.ID, len(abstract))
		result.Fetched++
	}

	if result.Fetched > 0 {
		if err := writeCSV(ds.Path(), pubs, ds.RejectedRows()); err != nil {
			return result, err
		}
	}

	fmt.Fprintf(w, "\nfetched: %d, skipped: %d, failed: %d (total: %d)\n",
		result.Fetched, result.Skipped, result.Failed, result.Total())

	return result, nil
}

// writeCSV rewrites the dataset with canonical columns via a temporary
// file and rename, so a crash mid-write never truncates the dataset.
// Rows the loader rejected are appended unchanged: a rewrite must never
// delete source rows, even ones the pipeline cannot use.
func writeCSV(path string, pubs []types.Publication, rejected [][]string) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".fetch-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	cw := csv.NewWriter(tmpFile)
	writeErr := cw.Write([]string{"id", "title", "link", "abstract", "authors", "year"})
	for _, pub := range pubs {
		if writeErr != nil {
			break
		}
		year := ""
		if pub.Year > 0 {
			year = strconv.Itoa(pub.Year)
		}
		writeErr = cw.Write([]string{
			pub.ID, pub.Title, pub.Link, pub.Abstract,
			strings.Join(pub.Authors, "; "), year,
		})
	}
	for _, row := range rejected {
		if writeErr != nil {
			break
		}
		writeErr = cw.Write(row)
	}
	if writeErr == nil {
		cw.Flush()
		writeErr = cw.Error()
	}

	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing dataset: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
