// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"

	"golang.org/x/time/rate"

	"github.com/bioorbit/bioorbit/pkg/types"
)

// summaryPromptTmpl is the prompt sent to the chat model for each
// publication. It demands strict JSON so the response can be validated at
// the client boundary.
var summaryPromptTmpl = template.Must(template.New("summary").Parse(`You are a scientific literature assistant. Summarize the following NASA space-biology publication.

Respond with a JSON object and nothing else:
- "summary": 3-4 sentences covering the finding and its relevance to spaceflight biology
- "keywords": 3-8 lowercase, hyphenated topic labels drawn from the text (e.g. "microgravity", "bone-density", "gene-expression")

Example response:
{"summary": "Extended spaceflight reduces bone mineral density by 1-2% per month in weight-bearing bones. Resistance exercise and vitamin D supplementation partially mitigate the loss.", "keywords": ["microgravity", "bone-density", "countermeasures"]}

Title: {{.Title}}

Abstract:
{{.Abstract}}
`))

// groqAPIBase is the Groq OpenAI-compatible API root. Declared as a var so
// tests can substitute an httptest server.
var groqAPIBase = "https://api.groq.com/openai/v1"

// GroqBackend implements Client against the Groq API: a chat-completion
// call for the summary and keywords, and the embeddings endpoint for
// vectors. A client-side rate limiter keeps request rate under the
// service's limits.
type GroqBackend struct {
	cfg     types.EnrichmentConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewGroqBackend builds a backend from config. A nil httpClient uses
// http.DefaultClient.
func NewGroqBackend(cfg types.EnrichmentConfig, httpClient *http.Client) *GroqBackend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	return &GroqBackend{
		cfg:     cfg,
		client:  httpClient,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// chat API JSON structures.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// summaryPayload is the JSON document the prompt demands from the model.
type summaryPayload struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// embeddings API JSON structures.
type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Enrich produces summary, keywords, and embedding for one publication.
// Publications with no usable text fail permanently.
func (b *GroqBackend) Enrich(ctx context.Context, pub types.Publication) (types.EnrichedRecord, error) {
	text := enrichmentText(pub)
	if text == "" {
		return types.EnrichedRecord{}, Permanent(fmt.Errorf("publication %s has no title or abstract", pub.ID))
	}

	payload, err := b.summarize(ctx, pub)
	if err != nil {
		return types.EnrichedRecord{}, err
	}

	embedding, err := b.Embed(ctx, text)
	if err != nil {
		return types.EnrichedRecord{}, err
	}

	return types.EnrichedRecord{
		Summary:   payload.Summary,
		Keywords:  payload.Keywords,
		Embedding: embedding,
	}, nil
}

// enrichmentText combines title and abstract; a publication with no
// abstract is embedded on its title alone, as the original dataset has
// rows whose abstracts could not be fetched.
func enrichmentText(pub types.Publication) string {
	title := strings.TrimSpace(pub.Title)
	abstract := strings.TrimSpace(pub.Abstract)
	switch {
	case title != "" && abstract != "":
		return title + "\n\n" + abstract
	case title != "":
		return title
	default:
		return abstract
	}
}

func (b *GroqBackend) summarize(ctx context.Context, pub types.Publication) (summaryPayload, error) {
	var prompt bytes.Buffer
	if err := summaryPromptTmpl.Execute(&prompt, pub); err != nil {
		return summaryPayload{}, Permanent(fmt.Errorf("rendering prompt: %w", err))
	}

	reqBody := chatRequest{
		Model:       b.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt.String()}},
		Temperature: 0.3,
		MaxTokens:   400,
	}

	body, err := b.post(ctx, "/chat/completions", reqBody)
	if err != nil {
		return summaryPayload{}, err
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return summaryPayload{}, Permanent(fmt.Errorf("parsing chat response: %w", err))
	}
	if len(cr.Choices) == 0 {
		return summaryPayload{}, Permanent(fmt.Errorf("chat response has no choices"))
	}

	var payload summaryPayload
	content := stripCodeFence(cr.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return summaryPayload{}, Permanent(fmt.Errorf("model did not return valid JSON: %w", err))
	}
	if strings.TrimSpace(payload.Summary) == "" {
		return summaryPayload{}, Permanent(fmt.Errorf("model returned empty summary"))
	}

	return payload, nil
}

// Embed returns the embedding vector for text, validated against the
// configured dimensionality.
func (b *GroqBackend) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, Permanent(fmt.Errorf("cannot embed empty text"))
	}

	reqBody := embeddingRequest{
		Model: b.cfg.EmbeddingModel,
		Input: []string{text},
	}

	body, err := b.post(ctx, "/embeddings", reqBody)
	if err != nil {
		return nil, err
	}

	var er embeddingResponse
	if err := json.Unmarshal(body, &er); err != nil {
		return nil, Permanent(fmt.Errorf("parsing embeddings response: %w", err))
	}
	if len(er.Data) == 0 || len(er.Data[0].Embedding) == 0 {
		return nil, Permanent(fmt.Errorf("embeddings response has no vector"))
	}

	embedding := er.Data[0].Embedding
	if b.cfg.Dimensions > 0 && len(embedding) != b.cfg.Dimensions {
		return nil, Permanent(fmt.Errorf("embedding has %d dimensions, want %d",
			len(embedding), b.cfg.Dimensions))
	}

	return embedding, nil
}

// post sends a JSON request to the API and returns the response body.
// Failures are classified: transport errors and 429/5xx responses are
// transient, other non-200 responses are permanent.
func (b *GroqBackend) post(ctx context.Context, path string, reqBody any) ([]byte, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, Permanent(fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, groqAPIBase+path, bytes.NewReader(data))
	if err != nil {
		return nil, Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, Transient(fmt.Errorf("API request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transient(fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("API returned HTTP %d", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, Transient(statusErr)
		}
		return nil, Permanent(statusErr)
	}

	return body, nil
}

// stripCodeFence removes a Markdown code fence wrapper some models add
// despite the prompt.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
