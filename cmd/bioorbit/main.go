// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the bioorbit CLI. Each pipeline
// stage is a subcommand: fetch pulls missing abstracts from NCBI, enrich
// summarizes and embeds publications through the Groq API, search queries
// the embeddings, cache inspects the enrichment store, and serve runs the
// dashboard.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bioorbit/bioorbit/internal/secrets"
	"github.com/bioorbit/bioorbit/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const defaultUserAgent = "bioorbit/0.1"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if non-empty, otherwise the secret value
// for key if one was loaded.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the bioorbit CLI.
var rootCmd = &cobra.Command{
	Use:   "bioorbit",
	Short: "Semantic search over NASA space-biology publications",
	Long: `bioorbit builds a searchable corpus of NASA space-biology publications.
The pipeline runs in stages: fetch retrieves missing abstracts from NCBI,
enrich produces summaries, keywords, and embedding vectors through the
Groq API, and search ranks publications against a free-text query by
cosine similarity. Enrichment results are cached in SQLite so re-runs
only touch new or failed publications.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; a missing file is not an error.
		_ = godotenv.Load()

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./bioorbit.yaml or ~/.config/bioorbit/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("bioorbit")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "bioorbit"))
		}
	}

	viper.SetEnvPrefix("BIOORBIT")
	viper.AutomaticEnv()

	viper.SetDefault("dataset.path", "data/publications.csv")
	viper.SetDefault("cache.path", "cache/enrichment.db")
	viper.SetDefault("fetch.timeout", 60*time.Second)
	viper.SetDefault("fetch.delay", 350*time.Millisecond)
	viper.SetDefault("enrichment.model", "llama-3.1-8b-instant")
	viper.SetDefault("enrichment.embedding_model", "nomic-embed-text-v1.5")
	viper.SetDefault("enrichment.dimensions", 768)
	viper.SetDefault("enrichment.max_retries", 3)
	viper.SetDefault("enrichment.requests_per_second", 2.0)
	viper.SetDefault("enrichment.timeout", 120*time.Second)
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.search_limit", 10)

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the stage configuration from viper, falling
// back to .secrets/ for API keys not set in config or environment.
func pipelineConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Dataset: types.DatasetConfig{
			Path: viper.GetString("dataset.path"),
		},
		Fetch: types.FetchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("fetch.timeout"),
				UserAgent: defaultUserAgent,
			},
			APIKey:     secretDefault("ncbi-api-key", viper.GetString("fetch.api_key")),
			FetchDelay: viper.GetDuration("fetch.delay"),
		},
		Enrichment: types.EnrichmentConfig{
			AIConfig: types.AIConfig{
				Model:          viper.GetString("enrichment.model"),
				EmbeddingModel: viper.GetString("enrichment.embedding_model"),
				APIKey:         secretDefault("groq-api-key", viper.GetString("enrichment.api_key")),
				MaxRetries:     viper.GetInt("enrichment.max_retries"),
			},
			Dimensions:        viper.GetInt("enrichment.dimensions"),
			RequestsPerSecond: viper.GetFloat64("enrichment.requests_per_second"),
		},
		Cache: types.CacheConfig{
			Path: viper.GetString("cache.path"),
		},
		Server: types.ServerConfig{
			Addr:        viper.GetString("server.addr"),
			SearchLimit: viper.GetInt("server.search_limit"),
		},
	}
}

// enrichmentClient builds the HTTP client used for Groq API calls.
func enrichmentClient() *http.Client {
	return &http.Client{Timeout: viper.GetDuration("enrichment.timeout")}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
