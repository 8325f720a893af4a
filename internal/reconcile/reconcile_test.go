package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/budgetwise/internal/classify"
	"github.com/dvloznov/budgetwise/internal/finance"
	infrabq "github.com/dvloznov/budgetwise/internal/infra/bigquery"
)

type fakeCategories struct {
	categories []finance.Category
	createErr  error
	creates    int
}

func (f *fakeCategories) ListCategories(ctx context.Context) ([]finance.Category, error) {
	return append([]finance.Category(nil), f.categories...), nil
}

func (f *fakeCategories) CreateCategory(ctx context.Context, c finance.Category) (finance.Category, error) {
	f.creates++
	if f.createErr != nil {
		return finance.Category{}, f.createErr
	}
	// Same case-insensitive uniqueness rule as the real gateway.
	for _, existing := range f.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return finance.Category{}, infrabq.ErrDuplicateCategory
		}
	}
	c.ID = fmt.Sprintf("cat-%d", len(f.categories)+1)
	f.categories = append(f.categories, c)
	return c, nil
}

type fakeRewriter struct {
	updates map[string][]string
	err     error
}

func newFakeRewriter() *fakeRewriter {
	return &fakeRewriter{updates: map[string][]string{}}
}

func (f *fakeRewriter) BulkUpdateCategory(ctx context.Context, ids []string, category string) error {
	if f.err != nil {
		return f.err
	}
	f.updates[category] = append(f.updates[category], ids...)
	return nil
}

type fakeSuggester struct {
	responses map[string]classify.CategorySuggestion
	err       error
	calls     int
}

func (f *fakeSuggester) SuggestCategory(ctx context.Context, label string, available []string) (classify.CategorySuggestion, error) {
	f.calls++
	if f.err != nil {
		return classify.CategorySuggestion{}, f.err
	}
	return f.responses[label], nil
}

func cats(names ...string) []finance.Category {
	out := make([]finance.Category, len(names))
	for i, n := range names {
		out[i] = finance.Category{ID: fmt.Sprintf("cat-%d", i+1), Name: n}
	}
	return out
}

func batch(pairs ...[2]string) []finance.ImportedTransaction {
	out := make([]finance.ImportedTransaction, len(pairs))
	for i, p := range pairs {
		out[i] = finance.ImportedTransaction{TransactionID: p[0], CategoryLabel: p[1]}
	}
	return out
}

func TestRunCaseInsensitiveMatchSkipsModel(t *testing.T) {
	store := &fakeCategories{categories: cats("Food")}
	rw := newFakeRewriter()
	sg := &fakeSuggester{}
	r := New(store, rw, sg, zerolog.Nop())

	report, err := r.Run(context.Background(), batch(
		[2]string{"t1", "food"},
		[2]string{"t2", "Food"},
		[2]string{"t3", "food"},
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sg.calls != 0 {
		t.Errorf("existing match must not call the model, got %d calls", sg.calls)
	}
	if report.CategoriesCreated != 0 {
		t.Errorf("no categories should be created, got %d", report.CategoriesCreated)
	}
	// "food" (t1, t3) is rewritten to canonical "Food"; "Food" already matches.
	if got := rw.updates["Food"]; len(got) != 2 {
		t.Fatalf("expected 2 rewrites to Food, got %v", got)
	}
	if report.TransactionsUpdated != 2 {
		t.Errorf("expected 2 updates, got %d", report.TransactionsUpdated)
	}
}

func TestRunIdempotent(t *testing.T) {
	store := &fakeCategories{categories: cats("Food", "Transport")}
	rw := newFakeRewriter()
	sg := &fakeSuggester{}
	r := New(store, rw, sg, zerolog.Nop())

	// Already-reconciled batch: labels are byte-identical to canonical names.
	report, err := r.Run(context.Background(), batch(
		[2]string{"t1", "Food"},
		[2]string{"t2", "Transport"},
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TransactionsUpdated != 0 || report.CategoriesCreated != 0 {
		t.Errorf("second pass must be a no-op, got %+v", report)
	}
	if len(rw.updates) != 0 {
		t.Errorf("no rewrites expected, got %v", rw.updates)
	}
}

func TestRunConfidenceThresholdBoundary(t *testing.T) {
	tests := []struct {
		confidence       float64
		wantCreateCalls  int
		wantCreatedCount int
	}{
		// Exactly at the threshold: accepted as a match, no creation attempted.
		{0.70, 0, 0},
		// Just below: new-category path. The attempted creation dedups against
		// the existing name, so no category actually appears.
		{0.699, 1, 0},
	}

	for _, tc := range tests {
		store := &fakeCategories{categories: cats("Groceries")}
		rw := newFakeRewriter()
		sg := &fakeSuggester{responses: map[string]classify.CategorySuggestion{
			"FOOD SHOP": {Category: "Groceries", Confidence: tc.confidence},
		}}
		r := New(store, rw, sg, zerolog.Nop())

		report, err := r.Run(context.Background(), batch([2]string{"t1", "FOOD SHOP"}))
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if store.creates != tc.wantCreateCalls {
			t.Errorf("confidence %v: expected %d create attempts, got %d", tc.confidence, tc.wantCreateCalls, store.creates)
		}
		if report.CategoriesCreated != tc.wantCreatedCount {
			t.Errorf("confidence %v: expected %d creations, got %d", tc.confidence, tc.wantCreatedCount, report.CategoriesCreated)
		}
		// Either way the label lands on the canonical existing name.
		if report.TransactionsUpdated != 1 {
			t.Errorf("confidence %v: expected 1 update, got %d", tc.confidence, report.TransactionsUpdated)
		}
		if got := rw.updates["Groceries"]; len(got) != 1 {
			t.Errorf("confidence %v: expected rewrite to Groceries, got %v", tc.confidence, rw.updates)
		}
	}
}

func TestRunCreatesSuggestedCategory(t *testing.T) {
	store := &fakeCategories{}
	rw := newFakeRewriter()
	sg := &fakeSuggester{responses: map[string]classify.CategorySuggestion{
		"AMZN MKTP": {Category: "Shopping", Confidence: 0.9},
	}}
	r := New(store, rw, sg, zerolog.Nop())

	report, err := r.Run(context.Background(), batch([2]string{"t1", "AMZN MKTP"}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.CategoriesCreated != 1 {
		t.Fatalf("expected 1 creation, got %d", report.CategoriesCreated)
	}
	if len(store.categories) != 1 || store.categories[0].Name != "Shopping" {
		t.Errorf("expected Shopping created, got %v", store.categories)
	}
	if got := rw.updates["Shopping"]; len(got) != 1 || got[0] != "t1" {
		t.Errorf("expected t1 rewritten to Shopping, got %v", rw.updates)
	}
}

func TestRunLaterLabelSeesEarlierCreation(t *testing.T) {
	store := &fakeCategories{}
	rw := newFakeRewriter()
	sg := &fakeSuggester{responses: map[string]classify.CategorySuggestion{
		"dining out": {Category: "Dining", Confidence: 0.95},
		"DINING":     {Category: "Dining", Confidence: 0.95},
	}}
	r := New(store, rw, sg, zerolog.Nop())

	report, err := r.Run(context.Background(), batch(
		[2]string{"t1", "dining out"},
		[2]string{"t2", "DINING"},
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.CategoriesCreated != 1 {
		t.Fatalf("second label must reuse the first creation, got %d creates", report.CategoriesCreated)
	}
	if store.creates != 1 {
		t.Errorf("expected exactly one create call, got %d", store.creates)
	}
	if got := rw.updates["Dining"]; len(got) != 2 {
		t.Errorf("both transactions should point at Dining, got %v", rw.updates)
	}
}

func TestRunAIFailureFallsBackToOriginalLabel(t *testing.T) {
	store := &fakeCategories{}
	rw := newFakeRewriter()
	sg := &fakeSuggester{err: errors.New("model timeout")}
	r := New(store, rw, sg, zerolog.Nop())

	report, err := r.Run(context.Background(), batch([2]string{"t1", "Dining"}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.CategoriesCreated != 1 {
		t.Fatalf("expected category created from original label, got %+v", report)
	}
	if store.categories[0].Name != "Dining" {
		t.Errorf("expected original label as category name, got %q", store.categories[0].Name)
	}
	// The label already equals the created name, so no rewrite is needed.
	if report.TransactionsUpdated != 0 {
		t.Errorf("expected no rewrites, got %d", report.TransactionsUpdated)
	}
}

func TestRunCreationFailureLeavesTransactionsAlone(t *testing.T) {
	store := &fakeCategories{createErr: errors.New("quota exceeded")}
	rw := newFakeRewriter()
	sg := &fakeSuggester{responses: map[string]classify.CategorySuggestion{
		"Foo": {Category: "Foo", Confidence: 0.9},
	}}
	r := New(store, rw, sg, zerolog.Nop())

	report, err := r.Run(context.Background(), batch([2]string{"t1", "Foo"}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TransactionsUpdated != 0 || report.CategoriesCreated != 0 {
		t.Errorf("failed creation must leave batch untouched, got %+v", report)
	}
	if len(rw.updates) != 0 {
		t.Errorf("no rewrites expected, got %v", rw.updates)
	}
}

func TestRunDuplicateCreateResolvesToExisting(t *testing.T) {
	store := &fakeCategories{categories: cats("Travel")}
	rw := newFakeRewriter()
	sg := &fakeSuggester{responses: map[string]classify.CategorySuggestion{
		"travel costs": {Category: "travel", Confidence: 0.5},
	}}
	r := New(store, rw, sg, zerolog.Nop())

	report, err := r.Run(context.Background(), batch([2]string{"t1", "travel costs"}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.CategoriesCreated != 0 {
		t.Errorf("duplicate create must not count as creation, got %+v", report)
	}
	if got := rw.updates["Travel"]; len(got) != 1 {
		t.Errorf("expected rewrite to existing Travel, got %v", rw.updates)
	}
}

func TestRunSkipsUncategorizedAndEmpty(t *testing.T) {
	store := &fakeCategories{}
	rw := newFakeRewriter()
	sg := &fakeSuggester{}
	r := New(store, rw, sg, zerolog.Nop())

	report, err := r.Run(context.Background(), batch(
		[2]string{"t1", ""},
		[2]string{"t2", "Uncategorized"},
		[2]string{"t3", "UNCATEGORIZED"},
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sg.calls != 0 || store.creates != 0 || report.TransactionsUpdated != 0 {
		t.Errorf("nothing should happen for skipped labels: %+v", report)
	}
}

func TestRunOneModelCallPerDistinctLabel(t *testing.T) {
	store := &fakeCategories{}
	rw := newFakeRewriter()
	sg := &fakeSuggester{responses: map[string]classify.CategorySuggestion{
		"coffee": {Category: "Dining", Confidence: 0.9},
	}}
	r := New(store, rw, sg, zerolog.Nop())

	_, err := r.Run(context.Background(), batch(
		[2]string{"t1", "coffee"},
		[2]string{"t2", "coffee"},
		[2]string{"t3", "coffee"},
	))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sg.calls != 1 {
		t.Errorf("expected 1 model call for 3 same-label transactions, got %d", sg.calls)
	}
}
