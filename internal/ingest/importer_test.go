package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/budgetwise/internal/classify"
	"github.com/dvloznov/budgetwise/internal/finance"
)

type fakeStore struct {
	created     []finance.Transaction
	failWrites  bool
	stamped     map[string]time.Time
	stampFailed bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{stamped: map[string]time.Time{}}
}

func (f *fakeStore) CreateTransaction(ctx context.Context, t finance.Transaction) (finance.Transaction, error) {
	if f.failWrites {
		return finance.Transaction{}, errors.New("write failed")
	}
	t.ID = fmt.Sprintf("tx-%d", len(f.created)+1)
	f.created = append(f.created, t)
	return t, nil
}

func (f *fakeStore) StampLastImport(ctx context.Context, id string, ts time.Time) error {
	if f.stampFailed {
		return errors.New("stamp failed")
	}
	f.stamped[id] = ts
	return nil
}

var identityMappings = []classify.ColumnMapping{
	{CSVHeader: "date", TransactionField: "date"},
	{CSVHeader: "description", TransactionField: "description"},
	{CSVHeader: "amount", TransactionField: "amount"},
	{CSVHeader: "category", TransactionField: "category"},
}

func TestImport(t *testing.T) {
	store := newFakeStore()
	imp := NewImporter(store, store, zerolog.Nop())

	rows := [][]string{
		{"2024-07-01", "Coffee", "-5.50", "Dining"},
		{"07/02/2024", "Paycheck", "1000", "Income"},
	}

	out, err := imp.Import(context.Background(), "acc-1", "july.csv", rows, identityMappings)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if out.Imported != 2 || out.Failed != 0 {
		t.Fatalf("expected 2 imported, got %+v", out)
	}
	if len(store.created) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(store.created))
	}

	first, second := store.created[0], store.created[1]
	if got := first.Date.Format("2006-01-02"); got != "2024-07-01" {
		t.Errorf("first date = %s", got)
	}
	if got := second.Date.Format("2006-01-02"); got != "2024-07-02" {
		t.Errorf("second date = %s", got)
	}
	if !first.IsDebit() || second.IsDebit() {
		t.Errorf("debit flags wrong: %v %v", first.IsDebit(), second.IsDebit())
	}
	if first.SourceFile != "july.csv" || first.ImportedAt == nil {
		t.Errorf("provenance missing: %+v", first)
	}
	if _, ok := store.stamped["acc-1"]; !ok {
		t.Error("account not stamped after successful import")
	}
	if len(out.Written) != 2 || out.Written[0].CategoryLabel != "Dining" {
		t.Errorf("written pairs wrong: %+v", out.Written)
	}
}

func TestImportMalformedRow(t *testing.T) {
	store := newFakeStore()
	imp := NewImporter(store, store, zerolog.Nop())

	rows := [][]string{
		{"bad-date", "X", "abc", "Y"},
		{"07/02/2024", "Paycheck", "1000", "Income"},
	}

	out, err := imp.Import(context.Background(), "acc-1", "f.csv", rows, identityMappings)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if out.Imported != 1 || out.Failed != 1 {
		t.Fatalf("expected 1/1 split, got %+v", out)
	}
	if out.Imported+out.Failed != out.Total {
		t.Fatalf("row accounting broken: %+v", out)
	}
	if len(out.Errors) != 1 || !strings.Contains(out.Errors[0], "row 1") {
		t.Fatalf("expected row 1 error, got %v", out.Errors)
	}
	if !strings.Contains(out.Errors[0], "date") {
		t.Errorf("error should reference the unparseable date: %v", out.Errors)
	}
}

func TestImportRejections(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want string
	}{
		{"empty description", []string{"2024-07-01", "  ", "1.00", ""}, "description"},
		{"bad amount", []string{"2024-07-01", "Thing", "N/A", ""}, "amount"},
		{"out of range year", []string{"2450-01-01", "Thing", "1.00", ""}, "date"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore()
			imp := NewImporter(store, store, zerolog.Nop())

			out, err := imp.Import(context.Background(), "acc-1", "f.csv", [][]string{tc.row}, identityMappings)
			if err != nil {
				t.Fatalf("Import: %v", err)
			}
			if out.Failed != 1 || out.Imported != 0 {
				t.Fatalf("expected rejection, got %+v", out)
			}
			if !strings.Contains(out.Errors[0], tc.want) {
				t.Errorf("error %q should mention %q", out.Errors[0], tc.want)
			}
		})
	}
}

func TestImportWriteFailureContinues(t *testing.T) {
	store := newFakeStore()
	store.failWrites = true
	imp := NewImporter(store, store, zerolog.Nop())

	rows := [][]string{
		{"2024-07-01", "A", "1", ""},
		{"2024-07-02", "B", "2", ""},
	}

	out, err := imp.Import(context.Background(), "acc-1", "f.csv", rows, identityMappings)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if out.Failed != 2 || out.Imported != 0 {
		t.Fatalf("expected both rows to fail, got %+v", out)
	}
	if len(store.stamped) != 0 {
		t.Error("account must not be stamped when nothing was written")
	}
}

func TestImportStampFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	store.stampFailed = true
	imp := NewImporter(store, store, zerolog.Nop())

	out, err := imp.Import(context.Background(), "acc-1", "f.csv", [][]string{{"2024-07-01", "A", "1", ""}}, identityMappings)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if out.Imported != 1 {
		t.Fatalf("import should succeed despite stamp failure: %+v", out)
	}
}

func TestImportDefaultsCategory(t *testing.T) {
	store := newFakeStore()
	imp := NewImporter(store, store, zerolog.Nop())

	out, err := imp.Import(context.Background(), "acc-1", "f.csv", [][]string{{"2024-07-01", "A", "1", ""}}, identityMappings)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if store.created[0].Category != finance.UncategorizedName {
		t.Errorf("expected %q, got %q", finance.UncategorizedName, store.created[0].Category)
	}
	// The raw label stays empty so reconciliation skips it.
	if out.Written[0].CategoryLabel != "" {
		t.Errorf("expected empty raw label, got %q", out.Written[0].CategoryLabel)
	}
}

func TestImportRequiresMappings(t *testing.T) {
	store := newFakeStore()
	imp := NewImporter(store, store, zerolog.Nop())

	_, err := imp.Import(context.Background(), "acc-1", "f.csv", nil, []classify.ColumnMapping{
		{CSVHeader: "date", TransactionField: "date"},
	})
	if err == nil {
		t.Fatal("expected error for incomplete mappings")
	}
}

func TestOutcomeDisplayErrors(t *testing.T) {
	var o Outcome
	for i := 0; i < 14; i++ {
		o.Errors = append(o.Errors, fmt.Sprintf("row %d: bad", i+1))
	}

	got := o.DisplayErrors()
	if len(got) != 11 {
		t.Fatalf("expected 10 errors plus trailer, got %d", len(got))
	}
	if got[10] != "+4 more" {
		t.Errorf("unexpected trailer: %q", got[10])
	}

	o.Errors = o.Errors[:3]
	if got := o.DisplayErrors(); len(got) != 3 {
		t.Errorf("short lists pass through, got %d", len(got))
	}
}
