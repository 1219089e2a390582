// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bioorbit/bioorbit/internal/cache"
	"github.com/bioorbit/bioorbit/internal/dataset"
	"github.com/bioorbit/bioorbit/internal/enrich"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Summarize and embed publications through the Groq API",
	Long: `Enrich runs every publication in the dataset through the Groq API to
produce a summary, topic keywords, and an embedding vector, and stores
the results in the enrichment cache. Publications already enriched at
the current pipeline version are skipped; transient API failures are
retried with backoff, and a failure on one publication never aborts
the batch.

If the cache file is corrupt the command refuses to run. Pass
--reset-cache to delete the cache and rebuild it from scratch.`,
	RunE: runEnrich,
}

func init() {
	enrichCmd.Flags().String("dataset", "", "dataset CSV path (default from config)")
	enrichCmd.Flags().Bool("force", false, "re-enrich publications that already have a current record")
	enrichCmd.Flags().Bool("reset-cache", false, "delete the cache database and re-enrich everything")

	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	if path, _ := cmd.Flags().GetString("dataset"); path != "" {
		cfg.Dataset.Path = path
	}
	force, _ := cmd.Flags().GetBool("force")
	reset, _ := cmd.Flags().GetBool("reset-cache")

	if cfg.Enrichment.APIKey == "" {
		return fmt.Errorf("no Groq API key: set BIOORBIT_ENRICHMENT_API_KEY or .secrets/groq-api-key")
	}

	ds, err := dataset.Load(cfg.Dataset.Path)
	if err != nil {
		return err
	}

	if reset {
		if err := cache.Destroy(cfg.Cache.Path); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Removed cache at %s\n", cfg.Cache.Path)
	}

	store, err := cache.Open(cfg.Cache)
	if err != nil {
		if errors.Is(err, cache.ErrCorruptCache) {
			return fmt.Errorf("%w\nrun again with --reset-cache to rebuild", err)
		}
		return err
	}
	defer store.Close()

	client := enrich.NewGroqBackend(cfg.Enrichment, enrichmentClient())

	opts := enrich.Options{
		Force:      force,
		MaxRetries: cfg.Enrichment.MaxRetries,
		Dimensions: cfg.Enrichment.Dimensions,
	}

	summary, err := enrich.EnrichAll(context.Background(), ds.Publications(), store, client, opts, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d publication(s) failed enrichment", len(summary.Failed))
	}
	return nil
}
