package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/budgetwise/internal/classify"
)

// ResolveMappings asks the classifier for a column mapping and reconciles the
// answer against the real header list, so a hallucinated header can never
// reach the importer.
func ResolveMappings(ctx context.Context, cls classify.Classifier, headers []string, rows [][]string) ([]classify.ColumnMapping, error) {
	proposed, err := cls.MapColumns(ctx, headers, sampleRows(rows))
	if err != nil {
		return nil, fmt.Errorf("ResolveMappings: %w", err)
	}
	return ReconcileMappings(headers, proposed), nil
}

// ReconcileMappings forces the model's proposal back onto the actual headers.
// Proposed headers that do not exist in the file are dropped, headers the
// model skipped come back unmapped, and each transaction field keeps only its
// first column.
func ReconcileMappings(headers []string, proposed []classify.ColumnMapping) []classify.ColumnMapping {
	byHeader := make(map[string]string, len(proposed))
	for _, m := range proposed {
		key := strings.ToLower(strings.TrimSpace(m.CSVHeader))
		if _, ok := byHeader[key]; !ok {
			byHeader[key] = strings.ToLower(strings.TrimSpace(m.TransactionField))
		}
	}

	claimed := map[string]bool{}
	out := make([]classify.ColumnMapping, len(headers))
	for i, h := range headers {
		field := byHeader[strings.ToLower(strings.TrimSpace(h))]
		switch field {
		case classify.FieldDate, classify.FieldDescription, classify.FieldAmount, classify.FieldCategory:
			if claimed[field] {
				field = ""
			}
			claimed[field] = true
		default:
			field = ""
		}
		out[i] = classify.ColumnMapping{CSVHeader: h, TransactionField: field}
	}
	return out
}

// ValidateMappings checks that the required transaction fields are all fed by
// some column. Category is optional; unmapped rows default to Uncategorized.
func ValidateMappings(mappings []classify.ColumnMapping) error {
	have := map[string]bool{}
	for _, m := range mappings {
		if m.TransactionField != "" {
			have[m.TransactionField] = true
		}
	}

	var missing []string
	for _, f := range []string{classify.FieldDate, classify.FieldDescription, classify.FieldAmount} {
		if !have[f] {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("ValidateMappings: no column mapped to: %s", strings.Join(missing, ", "))
	}
	return nil
}

// fieldIndexes returns the column index for each mapped transaction field.
func fieldIndexes(mappings []classify.ColumnMapping) map[string]int {
	idx := map[string]int{}
	for i, m := range mappings {
		if m.TransactionField != "" {
			idx[m.TransactionField] = i
		}
	}
	return idx
}
