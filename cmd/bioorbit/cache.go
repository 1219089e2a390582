// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/bioorbit/bioorbit/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and export the enrichment cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache statistics",
	Long: `Info reports the cache location, the number of cached records, and a
histogram of enrichment versions. A version older than the current one
means those records will be re-enriched on the next run.`,
	RunE: runCacheInfo,
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()

	store, err := cache.Open(cfg.Cache)
	if err != nil {
		return err
	}
	defer store.Close()

	count, err := store.Count()
	if err != nil {
		return err
	}
	versions, err := store.VersionCounts()
	if err != nil {
		return err
	}

	fmt.Printf("Cache:   %s\n", store.Path())
	fmt.Printf("Records: %d\n", count)
	if len(versions) > 0 {
		keys := make([]string, 0, len(versions))
		for v := range versions {
			keys = append(keys, v)
		}
		sort.Strings(keys)
		fmt.Println("Versions:")
		for _, v := range keys {
			fmt.Printf("  %s: %d\n", v, versions[v])
		}
	}
	return nil
}

var cacheExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the enrichment cache to YAML or JSON",
	Long: `Export writes every cached record to stdout in the chosen format,
ordered by publication id. Useful for diffing cache states or feeding
records into other tools.`,
	RunE: runCacheExport,
}

func runCacheExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	cfg := pipelineConfig()
	store, err := cache.Open(cfg.Cache)
	if err != nil {
		return err
	}
	defer store.Close()

	switch format {
	case "yaml", "":
		return store.ExportYAML(os.Stdout)
	case "json":
		return store.ExportJSON(os.Stdout)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
}

func init() {
	cacheExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheExportCmd)

	rootCmd.AddCommand(cacheCmd)
}
