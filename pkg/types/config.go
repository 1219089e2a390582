// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "bioorbit/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// DatasetConfig holds settings for the abstract store.
type DatasetConfig struct {
	// Path is the dataset CSV file (columns: id, title, link, abstract, ...).
	Path string `json:"path" yaml:"path"`
}

// FetchConfig holds settings for the abstract fetching stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// APIKey is an optional NCBI E-utilities API key for higher rate limits.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// FetchDelay is the delay between consecutive efetch requests (default 350ms,
	// within NCBI's 3 requests/second limit for unkeyed clients).
	FetchDelay time.Duration `json:"fetch_delay" yaml:"fetch_delay"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the chat model identifier (e.g. "llama-3.1-8b-instant").
	Model string `json:"model" yaml:"model"`

	// EmbeddingModel is the embedding model identifier.
	EmbeddingModel string `json:"embedding_model" yaml:"embedding_model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for transient API failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// EnrichmentConfig holds settings for the enrichment stage.
type EnrichmentConfig struct {
	AIConfig `yaml:",inline"`

	// Dimensions is the expected embedding dimensionality. Responses with a
	// different shape are rejected at the client boundary.
	Dimensions int `json:"dimensions" yaml:"dimensions"`

	// RequestsPerSecond caps the client-side request rate (default 2).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// CacheConfig holds settings for the enrichment cache.
type CacheConfig struct {
	// Path is the SQLite database file (default "cache/enrichment.db").
	Path string `json:"path" yaml:"path"`
}

// ServerConfig holds settings for the dashboard server.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr"`

	// SearchLimit is the default number of search results (default 10).
	SearchLimit int `json:"search_limit" yaml:"search_limit"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Dataset    DatasetConfig    `json:"dataset" yaml:"dataset"`
	Fetch      FetchConfig      `json:"fetch" yaml:"fetch"`
	Enrichment EnrichmentConfig `json:"enrichment" yaml:"enrichment"`
	Cache      CacheConfig      `json:"cache" yaml:"cache"`
	Server     ServerConfig     `json:"server" yaml:"server"`
}
