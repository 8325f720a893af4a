package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/budgetwise/internal/classify"
	"github.com/dvloznov/budgetwise/internal/finance"
)

// maxDisplayedErrors caps how many row errors surface in summaries.
const maxDisplayedErrors = 10

// TransactionWriter is the slice of the persistence gateway the importer
// needs.
type TransactionWriter interface {
	CreateTransaction(ctx context.Context, t finance.Transaction) (finance.Transaction, error)
}

// AccountStamper records when an account last received an import.
type AccountStamper interface {
	StampLastImport(ctx context.Context, id string, ts time.Time) error
}

// Outcome reports the result of one import run. Imported plus Failed always
// equals Total: every data row is accounted for exactly once.
type Outcome struct {
	Total    int                           `json:"total"`
	Imported int                           `json:"imported"`
	Failed   int                           `json:"failed"`
	Errors   []string                      `json:"errors,omitempty"`
	Written  []finance.ImportedTransaction `json:"-"`
}

// DisplayErrors returns at most maxDisplayedErrors row errors, with a trailer
// counting the rest.
func (o Outcome) DisplayErrors() []string {
	if len(o.Errors) <= maxDisplayedErrors {
		return o.Errors
	}
	out := make([]string, maxDisplayedErrors, maxDisplayedErrors+1)
	copy(out, o.Errors[:maxDisplayedErrors])
	return append(out, fmt.Sprintf("+%d more", len(o.Errors)-maxDisplayedErrors))
}

// Importer writes parsed CSV rows to the transaction store.
type Importer struct {
	tx       TransactionWriter
	accounts AccountStamper
	log      zerolog.Logger
}

func NewImporter(tx TransactionWriter, accounts AccountStamper, log zerolog.Logger) *Importer {
	return &Importer{tx: tx, accounts: accounts, log: log}
}

// Import writes one transaction per data row, sequentially. A bad row is
// recorded and skipped; it never aborts the run. Row numbers in errors are
// 1-based over data rows, matching how a user counts lines below the header.
func (imp *Importer) Import(ctx context.Context, accountID, sourceFile string, rows [][]string, mappings []classify.ColumnMapping) (Outcome, error) {
	if err := ValidateMappings(mappings); err != nil {
		return Outcome{}, fmt.Errorf("Import: %w", err)
	}

	idx := fieldIndexes(mappings)
	now := time.Now().UTC()
	out := Outcome{Total: len(rows)}

	for i, row := range rows {
		t, label, err := buildTransaction(accountID, sourceFile, row, idx, now)
		if err != nil {
			out.Failed++
			out.Errors = append(out.Errors, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}

		created, err := imp.tx.CreateTransaction(ctx, t)
		if err != nil {
			out.Failed++
			out.Errors = append(out.Errors, fmt.Sprintf("row %d: writing transaction: %v", i+1, err))
			continue
		}

		out.Imported++
		out.Written = append(out.Written, finance.ImportedTransaction{
			TransactionID: created.ID,
			CategoryLabel: label,
		})
	}

	if out.Imported > 0 {
		if err := imp.accounts.StampLastImport(ctx, accountID, now); err != nil {
			// The import itself succeeded; a stale stamp is not worth failing it.
			imp.log.Warn().Err(err).Str("account_id", accountID).Msg("failed to stamp last import time")
		}
	}

	return out, nil
}

// buildTransaction converts one CSV row into a transaction. The returned
// label is the raw category value from the file, before any reconciliation.
func buildTransaction(accountID, sourceFile string, row []string, idx map[string]int, importedAt time.Time) (finance.Transaction, string, error) {
	cell := func(field string) string {
		i, ok := idx[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, err := parseDate(cell(classify.FieldDate))
	if err != nil {
		return finance.Transaction{}, "", fmt.Errorf("parsing date: %w", err)
	}

	description := cell(classify.FieldDescription)
	if description == "" {
		return finance.Transaction{}, "", fmt.Errorf("empty description")
	}

	amount, err := parseAmount(cell(classify.FieldAmount))
	if err != nil {
		return finance.Transaction{}, "", fmt.Errorf("parsing amount: %w", err)
	}

	label := cell(classify.FieldCategory)
	category := label
	if category == "" {
		category = finance.UncategorizedName
	}

	return finance.Transaction{
		AccountID:   accountID,
		Date:        date,
		Description: description,
		Amount:      amount,
		Category:    category,
		SourceFile:  sourceFile,
		ImportedAt:  &importedAt,
	}, label, nil
}

// parseAmount parses a CSV amount value. Currency symbols, thousands
// separators and whitespace are scrubbed; "(12.34)" means -12.34.
func parseAmount(value string) (float64, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = true
		v = v[1 : len(v)-1]
	}

	var sb strings.Builder
	for _, r := range v {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			sb.WriteRune(r)
		}
	}

	f, err := strconv.ParseFloat(sb.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("unrecognized amount %q", value)
	}
	if negative {
		f = -f
	}
	return f, nil
}
