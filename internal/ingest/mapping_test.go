package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/dvloznov/budgetwise/internal/classify"
)

type fakeClassifier struct {
	mappings []classify.ColumnMapping
	err      error
}

func (f *fakeClassifier) MapColumns(ctx context.Context, headers []string, sample [][]string) ([]classify.ColumnMapping, error) {
	return f.mappings, f.err
}

func (f *fakeClassifier) SuggestCategory(ctx context.Context, label string, available []string) (classify.CategorySuggestion, error) {
	return classify.CategorySuggestion{}, f.err
}

func TestParseCSV(t *testing.T) {
	in := "date,description,amount\n2024-07-01,Coffee,-5.50\n\"07/02/2024\",\"Paycheck, July\",1000\n"

	headers, rows, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV: %v", err)
	}
	if len(headers) != 3 || headers[0] != "date" {
		t.Fatalf("unexpected headers: %v", headers)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1][1] != "Paycheck, July" {
		t.Errorf("quoted field with comma mishandled: %q", rows[1][1])
	}
}

func TestParseCSVEmpty(t *testing.T) {
	if _, _, err := ParseCSV(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestReconcileMappings(t *testing.T) {
	headers := []string{"Posted", "Memo", "Value", "Ref"}
	proposed := []classify.ColumnMapping{
		{CSVHeader: "posted", TransactionField: "date"},
		{CSVHeader: "Memo", TransactionField: "description"},
		{CSVHeader: "Value", TransactionField: "amount"},
		// Hallucinated header: must be dropped.
		{CSVHeader: "Balance", TransactionField: "amount"},
	}

	got := ReconcileMappings(headers, proposed)
	if len(got) != 4 {
		t.Fatalf("expected 4 mappings, got %d", len(got))
	}
	if got[0].TransactionField != "date" || got[0].CSVHeader != "Posted" {
		t.Errorf("unexpected first mapping: %+v", got[0])
	}
	if got[3].TransactionField != "" {
		t.Errorf("Ref should be unmapped, got %q", got[3].TransactionField)
	}
}

func TestReconcileMappingsFirstColumnWinsPerField(t *testing.T) {
	headers := []string{"Debit", "Credit"}
	proposed := []classify.ColumnMapping{
		{CSVHeader: "Debit", TransactionField: "amount"},
		{CSVHeader: "Credit", TransactionField: "amount"},
	}

	got := ReconcileMappings(headers, proposed)
	if got[0].TransactionField != "amount" {
		t.Errorf("expected Debit mapped to amount, got %q", got[0].TransactionField)
	}
	if got[1].TransactionField != "" {
		t.Errorf("expected Credit unmapped, got %q", got[1].TransactionField)
	}
}

func TestReconcileMappingsRejectsUnknownField(t *testing.T) {
	got := ReconcileMappings([]string{"Notes"}, []classify.ColumnMapping{
		{CSVHeader: "Notes", TransactionField: "memo"},
	})
	if got[0].TransactionField != "" {
		t.Errorf("unknown field should be dropped, got %q", got[0].TransactionField)
	}
}

func TestValidateMappings(t *testing.T) {
	ok := []classify.ColumnMapping{
		{CSVHeader: "a", TransactionField: "date"},
		{CSVHeader: "b", TransactionField: "description"},
		{CSVHeader: "c", TransactionField: "amount"},
	}
	if err := ValidateMappings(ok); err != nil {
		t.Errorf("ValidateMappings: %v", err)
	}

	missing := ok[:2]
	err := ValidateMappings(missing)
	if err == nil {
		t.Fatal("expected error when amount is unmapped")
	}
	if !strings.Contains(err.Error(), "amount") {
		t.Errorf("error should name the missing field: %v", err)
	}
}

func TestResolveMappings(t *testing.T) {
	cls := &fakeClassifier{mappings: []classify.ColumnMapping{
		{CSVHeader: "Date", TransactionField: "date"},
		{CSVHeader: "Description", TransactionField: "description"},
		{CSVHeader: "Amount", TransactionField: "amount"},
	}}

	got, err := ResolveMappings(context.Background(), cls, []string{"Date", "Description", "Amount"}, nil)
	if err != nil {
		t.Fatalf("ResolveMappings: %v", err)
	}
	if err := ValidateMappings(got); err != nil {
		t.Errorf("resolved mappings should validate: %v", err)
	}
}
