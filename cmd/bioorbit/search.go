// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bioorbit/bioorbit/internal/cache"
	"github.com/bioorbit/bioorbit/internal/dataset"
	"github.com/bioorbit/bioorbit/internal/enrich"
	"github.com/bioorbit/bioorbit/internal/semantic"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search publications by semantic similarity",
	Long: `Search embeds a free-text query through the Groq API, ranks every
cached publication embedding by cosine similarity, and prints the top
matches with their titles and summaries. Run enrich first; an empty
cache yields no results.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}

// searchHit is one row of search output.
type searchHit struct {
	PublicationID string  `json:"id"`
	Title         string  `json:"title"`
	Score         float64 `json:"score"`
	Summary       string  `json:"summary"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a search query")
	}
	query := strings.Join(args, " ")

	cfg := pipelineConfig()
	if cfg.Enrichment.APIKey == "" {
		return fmt.Errorf("no Groq API key: set BIOORBIT_ENRICHMENT_API_KEY or .secrets/groq-api-key")
	}

	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		limit = cfg.Server.SearchLimit
	}

	ds, err := dataset.Load(cfg.Dataset.Path)
	if err != nil {
		return err
	}

	store, err := cache.Open(cfg.Cache)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.All()
	if err != nil {
		return err
	}
	idx, err := semantic.Build(records)
	if err != nil {
		return err
	}

	client := enrich.NewGroqBackend(cfg.Enrichment, enrichmentClient())
	vec, err := client.Embed(context.Background(), query)
	if err != nil {
		return fmt.Errorf("embedding query: %w", err)
	}

	hits, err := idx.Query(vec, limit)
	if err != nil {
		return err
	}

	results := make([]searchHit, 0, len(hits))
	for _, hit := range hits {
		result := searchHit{PublicationID: hit.PublicationID, Score: hit.Score}
		if pub, ok := ds.Get(hit.PublicationID); ok {
			result.Title = pub.Title
		}
		if record, ok, err := store.Get(hit.PublicationID); err == nil && ok {
			result.Summary = record.Summary
		}
		results = append(results, result)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatSearchOutput(os.Stdout, results, jsonOutput)
}

func formatSearchOutput(w io.Writer, results []searchHit, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-6s  %-12s  %-50s  %s\n",
		"Rank", "Score", "ID", "Title", "Summary")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, r := range results {
		fmt.Fprintf(w, "%-4d  %-6.3f  %-12s  %-50s  %s\n",
			i+1, r.Score, r.PublicationID, truncate(r.Title, 50), truncate(r.Summary, 60))
	}

	fmt.Fprintf(w, "\n%d results\n", len(results))
	return nil
}

// truncate shortens s to at most max runes, marking the cut with an
// ellipsis. Counting runes keeps multi-byte characters intact.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
