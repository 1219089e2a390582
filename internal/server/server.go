// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the enriched corpus over HTTP: a small JSON API
// plus a single-page dashboard for interactive semantic search.
package server

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bioorbit/bioorbit/internal/dataset"
	"github.com/bioorbit/bioorbit/internal/enrich"
	"github.com/bioorbit/bioorbit/internal/semantic"
	"github.com/bioorbit/bioorbit/pkg/log"
	"github.com/bioorbit/bioorbit/pkg/types"
)

//go:embed templates/*.html
var templatesFS embed.FS

// RecordSource is the read side of the enrichment cache the server needs.
type RecordSource interface {
	Get(publicationID string) (types.EnrichedRecord, bool, error)
	All() ([]types.EnrichedRecord, error)
	Count() (int, error)
	VersionCounts() (map[string]int, error)
}

// Server serves the dashboard and search API over a snapshot of the
// cache taken at construction time. Restart the server after an
// enrichment run to pick up new embeddings.
type Server struct {
	ds      *dataset.Dataset
	records RecordSource
	client  enrich.Client
	cfg     types.ServerConfig
	idx     *semantic.Index
	engine  *gin.Engine
}

// New builds a server over the dataset and cache, constructing the
// similarity index from every cached embedding.
func New(ds *dataset.Dataset, records RecordSource, client enrich.Client, cfg types.ServerConfig) (*Server, error) {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 10
	}

	cached, err := records.All()
	if err != nil {
		return nil, fmt.Errorf("loading cached records: %w", err)
	}
	idx, err := semantic.Build(cached)
	if err != nil {
		return nil, fmt.Errorf("building similarity index: %w", err)
	}

	s := &Server{
		ds:      ds,
		records: records,
		client:  client,
		cfg:     cfg,
		idx:     idx,
	}
	s.engine = s.buildEngine()
	return s, nil
}

func (s *Server) buildEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	engine.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	engine.GET("/", s.handleIndex)
	engine.GET("/api/stats", s.handleStats)
	engine.GET("/api/search", s.handleSearch)
	engine.GET("/api/publications/:id", s.handlePublication)

	return engine
}

// requestLogger logs one line per request through the process logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		)
	}
}

// Run starts the HTTP server on the configured address and blocks.
func (s *Server) Run() error {
	log.Infow("dashboard listening",
		"addr", s.cfg.Addr,
		"publications", s.ds.Len(),
		"indexed", s.idx.Len(),
	)
	return s.engine.Run(s.cfg.Addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Publications": s.ds.Len(),
		"Indexed":      s.idx.Len(),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	count, err := s.records.Count()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	versions, err := s.records.VersionCounts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"publications": s.ds.Len(),
		"enriched":     count,
		"indexed":      s.idx.Len(),
		"dimensions":   s.idx.Dimensions(),
		"versions":     versions,
	})
}

// searchResult joins a similarity hit with its publication metadata and
// cached summary.
type searchResult struct {
	PublicationID string   `json:"id"`
	Title         string   `json:"title"`
	Link          string   `json:"link"`
	Score         float64  `json:"score"`
	Summary       string   `json:"summary"`
	Keywords      []string `json:"keywords,omitempty"`
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	k := s.cfg.SearchLimit
	if raw := c.Query("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "k must be a positive integer"})
			return
		}
		k = parsed
	}

	vec, err := s.client.Embed(c.Request.Context(), query)
	if err != nil {
		log.Errorw("query embedding failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "embedding the query failed"})
		return
	}

	hits, err := s.idx.Query(vec, k)
	if err != nil {
		// A dimension mismatch here means the cache was enriched with a
		// different embedding model than the one serving queries.
		if errors.Is(err, semantic.ErrDimensionMismatch) {
			log.Errorw("query embedding shape does not match index", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := make([]searchResult, 0, len(hits))
	for _, hit := range hits {
		result := searchResult{PublicationID: hit.PublicationID, Score: hit.Score}
		if pub, ok := s.ds.Get(hit.PublicationID); ok {
			result.Title = pub.Title
			result.Link = pub.Link
		}
		if record, ok, err := s.records.Get(hit.PublicationID); err == nil && ok {
			result.Summary = record.Summary
			result.Keywords = record.Keywords
		}
		results = append(results, result)
	}

	c.JSON(http.StatusOK, gin.H{"query": query, "results": results})
}

func (s *Server) handlePublication(c *gin.Context) {
	id := c.Param("id")
	pub, ok := s.ds.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("publication %s not found", id)})
		return
	}

	response := gin.H{"publication": pub}
	if record, ok, err := s.records.Get(id); err == nil && ok {
		response["enrichment"] = record
	}
	c.JSON(http.StatusOK, response)
}
