package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/bioorbit/bioorbit/internal/dataset"
	"github.com/bioorbit/bioorbit/internal/fetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch missing abstracts from NCBI",
	Long: `Fetch downloads abstract text from the NCBI E-utilities API for every
publication in the dataset that does not already have one, and writes
the results back into the dataset CSV. Publications with abstracts are
skipped, so re-running only touches the gaps.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("dataset", "", "dataset CSV path (default from config)")
	fetchCmd.Flags().Duration("delay", 0, "delay between efetch requests (default 350ms)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	if path, _ := cmd.Flags().GetString("dataset"); path != "" {
		cfg.Dataset.Path = path
	}
	if delay, _ := cmd.Flags().GetDuration("delay"); delay > 0 {
		cfg.Fetch.FetchDelay = delay
	}

	ds, err := dataset.Load(cfg.Dataset.Path)
	if err != nil {
		return err
	}
	for _, rej := range ds.Rejected {
		fmt.Fprintf(os.Stderr, "rejected row, %s\n", rej)
	}

	client := &http.Client{Timeout: cfg.Fetch.Timeout}

	result, err := fetch.FetchAll(context.Background(), client, ds, cfg.Fetch, os.Stdout)
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d abstract(s) failed to fetch", result.Failed)
	}
	return nil
}
