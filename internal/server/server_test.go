// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/bioorbit/bioorbit/internal/dataset"
	"github.com/bioorbit/bioorbit/internal/enrich"
	"github.com/bioorbit/bioorbit/pkg/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memRecords is an in-memory RecordSource.
type memRecords struct {
	records map[string]types.EnrichedRecord
}

func (m *memRecords) Get(id string) (types.EnrichedRecord, bool, error) {
	r, ok := m.records[id]
	return r, ok, nil
}

func (m *memRecords) All() ([]types.EnrichedRecord, error) {
	var out []types.EnrichedRecord
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRecords) Count() (int, error) {
	return len(m.records), nil
}

func (m *memRecords) VersionCounts() (map[string]int, error) {
	counts := make(map[string]int)
	for _, r := range m.records {
		counts[r.Version]++
	}
	return counts, nil
}

// fakeClient embeds queries to a fixed vector.
type fakeClient struct {
	vec    []float64
	embErr error
}

func (f *fakeClient) Enrich(_ context.Context, _ types.Publication) (types.EnrichedRecord, error) {
	return types.EnrichedRecord{}, fmt.Errorf("not used")
}

func (f *fakeClient) Embed(_ context.Context, _ string) ([]float64, error) {
	if f.embErr != nil {
		return nil, f.embErr
	}
	return f.vec, nil
}

func testDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pubs.csv")
	content := strings.Join([]string{
		"id,title,link,abstract",
		"PMC1,Bone loss in microgravity,https://example.org/PMC1,Bone density falls.",
		"PMC2,Plant growth aboard ISS,https://example.org/PMC2,Roots reorient.",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	ds, err := dataset.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func testServer(t *testing.T, client enrich.Client) *Server {
	t.Helper()
	records := &memRecords{records: map[string]types.EnrichedRecord{
		"PMC1": {
			PublicationID: "PMC1",
			Summary:       "Bone density decreases in orbit.",
			Keywords:      []string{"bone", "microgravity"},
			Embedding:     []float64{1, 0},
			Version:       enrich.Version,
		},
		"PMC2": {
			PublicationID: "PMC2",
			Summary:       "Plant roots reorient without gravity.",
			Embedding:     []float64{0, 1},
			Version:       enrich.Version,
		},
	}}

	srv, err := New(testDataset(t), records, client, types.ServerConfig{SearchLimit: 10})
	if err != nil {
		t.Fatal(err)
	}
	return srv
}

func getJSON(t *testing.T, srv *Server, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("decoding %s response: %v", path, err)
		}
	}
	return w.Code
}

func TestStats(t *testing.T) {
	srv := testServer(t, &fakeClient{vec: []float64{1, 0}})

	var stats struct {
		Publications int            `json:"publications"`
		Enriched     int            `json:"enriched"`
		Indexed      int            `json:"indexed"`
		Dimensions   int            `json:"dimensions"`
		Versions     map[string]int `json:"versions"`
	}
	if code := getJSON(t, srv, "/api/stats", &stats); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	if stats.Publications != 2 || stats.Enriched != 2 || stats.Indexed != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Dimensions != 2 {
		t.Errorf("dimensions = %d, want 2", stats.Dimensions)
	}
	if stats.Versions[enrich.Version] != 2 {
		t.Errorf("versions = %v", stats.Versions)
	}
}

func TestSearchJoinsMetadata(t *testing.T) {
	srv := testServer(t, &fakeClient{vec: []float64{1, 0}})

	var body struct {
		Results []struct {
			ID       string   `json:"id"`
			Title    string   `json:"title"`
			Link     string   `json:"link"`
			Summary  string   `json:"summary"`
			Keywords []string `json:"keywords"`
		} `json:"results"`
	}
	if code := getJSON(t, srv, "/api/search?q=bone+loss", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	if len(body.Results) != 2 {
		t.Fatalf("got %d results", len(body.Results))
	}
	top := body.Results[0]
	if top.ID != "PMC1" {
		t.Errorf("top result = %s, want PMC1", top.ID)
	}
	if top.Title != "Bone loss in microgravity" || top.Link == "" {
		t.Errorf("metadata not joined: %+v", top)
	}
	if top.Summary == "" || len(top.Keywords) != 2 {
		t.Errorf("enrichment not joined: %+v", top)
	}
}

func TestSearchRespectsK(t *testing.T) {
	srv := testServer(t, &fakeClient{vec: []float64{1, 0}})

	var body struct {
		Results []json.RawMessage `json:"results"`
	}
	if code := getJSON(t, srv, "/api/search?q=bone&k=1", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(body.Results) != 1 {
		t.Errorf("got %d results, want 1", len(body.Results))
	}
}

func TestSearchMissingQuery(t *testing.T) {
	srv := testServer(t, &fakeClient{vec: []float64{1, 0}})
	if code := getJSON(t, srv, "/api/search", nil); code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func TestSearchInvalidK(t *testing.T) {
	srv := testServer(t, &fakeClient{vec: []float64{1, 0}})
	if code := getJSON(t, srv, "/api/search?q=bone&k=zero", nil); code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}

func TestSearchEmbeddingFailure(t *testing.T) {
	srv := testServer(t, &fakeClient{embErr: fmt.Errorf("upstream down")})
	if code := getJSON(t, srv, "/api/search?q=bone", nil); code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", code)
	}
}

func TestPublicationByID(t *testing.T) {
	srv := testServer(t, &fakeClient{vec: []float64{1, 0}})

	var body struct {
		Publication types.Publication     `json:"publication"`
		Enrichment  *types.EnrichedRecord `json:"enrichment"`
	}
	if code := getJSON(t, srv, "/api/publications/PMC1", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Publication.Title != "Bone loss in microgravity" {
		t.Errorf("publication = %+v", body.Publication)
	}
	if body.Enrichment == nil || body.Enrichment.Summary == "" {
		t.Error("enrichment missing from response")
	}
}

func TestPublicationNotFound(t *testing.T) {
	srv := testServer(t, &fakeClient{vec: []float64{1, 0}})
	if code := getJSON(t, srv, "/api/publications/PMC999", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestIndexPageRenders(t *testing.T) {
	srv := testServer(t, &fakeClient{vec: []float64{1, 0}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "BioOrbit") {
		t.Error("page does not mention the dashboard name")
	}
}
