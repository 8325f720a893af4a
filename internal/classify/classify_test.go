package classify

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/genai"
)

type fakeGenerator struct {
	response string
	err      error
	calls    int
}

func (f *fakeGenerator) generate(ctx context.Context, prompt string, schema *genai.Schema) (string, error) {
	f.calls++
	return f.response, f.err
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "raw array",
			in:   `[{"csv_header":"Date","transaction_field":"date"}]`,
			want: `[{"csv_header":"Date","transaction_field":"date"}]`,
		},
		{
			name: "fenced json",
			in:   "```json\n[{\"a\":1}]\n```",
			want: `[{"a":1}]`,
		},
		{
			name: "fenced no language",
			in:   "```\n{\"category\":\"Food\"}\n```",
			want: `{"category":"Food"}`,
		},
		{
			name: "chatter around object",
			in:   "Sure! Here you go: {\"category\":\"Food\",\"confidence\":0.9} Hope this helps.",
			want: `{"category":"Food","confidence":0.9}`,
		},
		{
			name: "whitespace",
			in:   "  \n [1, 2] \n ",
			want: `[1, 2]`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := cleanModelJSON(tc.in)
			if got != tc.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestMapColumns(t *testing.T) {
	gen := &fakeGenerator{
		response: `[{"csv_header":"Posted","transaction_field":"date"},{"csv_header":"Memo","transaction_field":"description"},{"csv_header":"Value","transaction_field":"amount"},{"csv_header":"Ref","transaction_field":""}]`,
	}
	c := newGeminiClassifier(gen, time.Second, 100)

	mappings, err := c.MapColumns(context.Background(), []string{"Posted", "Memo", "Value", "Ref"}, nil)
	if err != nil {
		t.Fatalf("MapColumns: %v", err)
	}
	if len(mappings) != 4 {
		t.Fatalf("expected 4 mappings, got %d", len(mappings))
	}
	if mappings[0].TransactionField != FieldDate {
		t.Errorf("expected first mapping to be date, got %q", mappings[0].TransactionField)
	}
	if mappings[3].TransactionField != "" {
		t.Errorf("expected Ref to be unmapped, got %q", mappings[3].TransactionField)
	}
}

func TestMapColumnsCachesByHeaderSignature(t *testing.T) {
	gen := &fakeGenerator{
		response: `[{"csv_header":"Date","transaction_field":"date"}]`,
	}
	c := newGeminiClassifier(gen, time.Second, 100)

	ctx := context.Background()
	if _, err := c.MapColumns(ctx, []string{"Date"}, nil); err != nil {
		t.Fatalf("first MapColumns: %v", err)
	}
	// Same headers modulo case and spacing hit the cache.
	if _, err := c.MapColumns(ctx, []string{" date "}, nil); err != nil {
		t.Fatalf("second MapColumns: %v", err)
	}
	if gen.calls != 1 {
		t.Errorf("expected 1 model call, got %d", gen.calls)
	}

	if _, err := c.MapColumns(ctx, []string{"Date", "Amount"}, nil); err != nil {
		t.Fatalf("third MapColumns: %v", err)
	}
	if gen.calls != 2 {
		t.Errorf("expected 2 model calls after new signature, got %d", gen.calls)
	}
}

func TestSuggestCategory(t *testing.T) {
	gen := &fakeGenerator{
		response: `{"category":"Groceries","confidence":0.92}`,
	}
	c := newGeminiClassifier(gen, time.Second, 100)

	s, err := c.SuggestCategory(context.Background(), "FOOD & DRINK", []string{"Groceries", "Transport"})
	if err != nil {
		t.Fatalf("SuggestCategory: %v", err)
	}
	if s.Category != "Groceries" {
		t.Errorf("expected Groceries, got %q", s.Category)
	}
	if s.Confidence != 0.92 {
		t.Errorf("expected confidence 0.92, got %v", s.Confidence)
	}
}

func TestSuggestCategoryClampsConfidence(t *testing.T) {
	gen := &fakeGenerator{
		response: `{"category":"Food","confidence":1.7}`,
	}
	c := newGeminiClassifier(gen, time.Second, 100)

	s, err := c.SuggestCategory(context.Background(), "food", []string{"Food"})
	if err != nil {
		t.Fatalf("SuggestCategory: %v", err)
	}
	if s.Confidence != 1 {
		t.Errorf("expected confidence clamped to 1, got %v", s.Confidence)
	}
}

func TestCallPropagatesGeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model unavailable")}
	c := newGeminiClassifier(gen, time.Second, 100)

	if _, err := c.SuggestCategory(context.Background(), "food", nil); err == nil {
		t.Fatal("expected error from failing generator")
	}
}

func TestCallRejectsEmptyResponse(t *testing.T) {
	gen := &fakeGenerator{response: ""}
	c := newGeminiClassifier(gen, time.Second, 100)

	if _, err := c.SuggestCategory(context.Background(), "food", nil); err == nil {
		t.Fatal("expected error for empty model response")
	}
}
