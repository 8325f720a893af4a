// Package classify is the gateway to the Gemini model for the two hard
// problems of CSV ingestion: mapping arbitrary bank-export columns onto
// transaction fields, and matching free-text category labels against the
// canonical category list.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Transaction field names a CSV column can map to. An empty field means the
// column is ignored.
const (
	FieldDate        = "date"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldCategory    = "category"
)

// ColumnMapping pairs one CSV header with the transaction field it feeds.
type ColumnMapping struct {
	CSVHeader        string `json:"csv_header"`
	TransactionField string `json:"transaction_field"`
}

// CategorySuggestion is the model's verdict for one raw category label.
type CategorySuggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Classifier is the surface the ingestion pipeline and reconciliation pass
// depend on.
type Classifier interface {
	MapColumns(ctx context.Context, headers []string, sample [][]string) ([]ColumnMapping, error)
	SuggestCategory(ctx context.Context, label string, available []string) (CategorySuggestion, error)
}

// generator abstracts the single model call so tests can substitute a fake.
type generator interface {
	generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error)
}

// GeminiClassifier implements Classifier against the Gemini API. All calls
// share one rate limiter and run under a per-call timeout. Column-mapping
// responses are cached by header signature, so re-importing files from the
// same bank skips the model entirely.
type GeminiClassifier struct {
	gen      generator
	limiter  *rate.Limiter
	timeout  time.Duration
	mappings *cache.Cache
}

// NewGeminiClassifier creates a classifier talking to the real Gemini API.
// Credentials come from the environment, same as the rest of the Google stack.
func NewGeminiClassifier(ctx context.Context, model string, timeout time.Duration, rps float64) (*GeminiClassifier, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClassifier: create genai client: %w", err)
	}
	return newGeminiClassifier(&geminiGenerator{client: client, model: model}, timeout, rps), nil
}

func newGeminiClassifier(gen generator, timeout time.Duration, rps float64) *GeminiClassifier {
	return &GeminiClassifier{
		gen:      gen,
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		timeout:  timeout,
		mappings: cache.New(time.Hour, 10*time.Minute),
	}
}

// MapColumns asks the model which transaction field each CSV header feeds.
func (g *GeminiClassifier) MapColumns(ctx context.Context, headers []string, sample [][]string) ([]ColumnMapping, error) {
	key := headerSignature(headers)
	if v, ok := g.mappings.Get(key); ok {
		return v.([]ColumnMapping), nil
	}

	raw, err := g.call(ctx, buildColumnMappingPrompt(headers, sample), columnMappingSchema)
	if err != nil {
		return nil, fmt.Errorf("MapColumns: %w", err)
	}

	var mappings []ColumnMapping
	if err := json.Unmarshal([]byte(raw), &mappings); err != nil {
		return nil, fmt.Errorf("MapColumns: unmarshal JSON: %w\nraw response: %s", err, raw)
	}

	g.mappings.Set(key, mappings, cache.DefaultExpiration)
	return mappings, nil
}

// SuggestCategory asks the model which canonical category the raw label
// belongs to. The model may answer with a name outside the available list;
// callers decide what a low-confidence or novel answer means.
func (g *GeminiClassifier) SuggestCategory(ctx context.Context, label string, available []string) (CategorySuggestion, error) {
	raw, err := g.call(ctx, buildCategoryPrompt(label, available), categorySuggestionSchema)
	if err != nil {
		return CategorySuggestion{}, fmt.Errorf("SuggestCategory: %w", err)
	}

	var s CategorySuggestion
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return CategorySuggestion{}, fmt.Errorf("SuggestCategory: unmarshal JSON: %w\nraw response: %s", err, raw)
	}

	s.Category = strings.TrimSpace(s.Category)
	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 1 {
		s.Confidence = 1
	}
	return s, nil
}

func (g *GeminiClassifier) call(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limit: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.gen.generate(ctx, prompt, schema)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if raw == "" {
		return "", fmt.Errorf("empty response from model")
	}

	return cleanModelJSON(raw), nil
}

// headerSignature builds a cache key from the lower-cased header list.
func headerSignature(headers []string) string {
	parts := make([]string, len(headers))
	for i, h := range headers {
		parts[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return strings.Join(parts, "|")
}

// geminiGenerator is the production generator backed by the genai client.
type geminiGenerator struct {
	client *genai.Client
	model  string
}

func (g *geminiGenerator) generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

var columnMappingSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"csv_header":        {Type: genai.TypeString},
			"transaction_field": {Type: genai.TypeString},
		},
		Required: []string{"csv_header", "transaction_field"},
	},
}

var categorySuggestionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"category":   {Type: genai.TypeString},
		"confidence": {Type: genai.TypeNumber},
	},
	Required: []string{"category", "confidence"},
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the JSON-only instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only the outermost JSON value if junk surrounds it.
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	var end int
	if s[start] == '[' {
		end = strings.LastIndex(s, "]")
	} else {
		end = strings.LastIndex(s, "}")
	}
	if end > start {
		s = strings.TrimSpace(s[start : end+1])
	}

	return s
}
