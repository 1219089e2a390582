// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/bioorbit/bioorbit/internal/cache"
	"github.com/bioorbit/bioorbit/internal/dataset"
	"github.com/bioorbit/bioorbit/internal/enrich"
	"github.com/bioorbit/bioorbit/internal/server"
	"github.com/bioorbit/bioorbit/pkg/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the search dashboard",
	Long: `Serve starts an HTTP server with a search page and a JSON API over
the enriched corpus. The similarity index is built from the cache at
startup; restart after an enrichment run to pick up new embeddings.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config, \":8080\")")
	serveCmd.Flags().String("log-level", "info", "log level: debug, info, warn, error")
	serveCmd.Flags().String("log-format", "console", "log format: console or json")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	if err := log.Init(level, format); err != nil {
		return err
	}
	defer log.Sync()

	gin.SetMode(gin.ReleaseMode)

	cfg := pipelineConfig()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if cfg.Enrichment.APIKey == "" {
		return fmt.Errorf("no Groq API key: set BIOORBIT_ENRICHMENT_API_KEY or .secrets/groq-api-key")
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

	client := enrich.NewGroqBackend(cfg.Enrichment, enrichmentClient())

	srv, err := server.New(ds, store, client, cfg.Server)
	if err != nil {
		return err
	}
	return srv.Run()
}
