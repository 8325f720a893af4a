// Package reconcile normalizes the category labels of a freshly imported
// batch against the canonical category collection. Labels are processed
// strictly sequentially so the in-memory candidate list stays consistent
// without locking.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/budgetwise/internal/classify"
	"github.com/dvloznov/budgetwise/internal/finance"
	infrabq "github.com/dvloznov/budgetwise/internal/infra/bigquery"
)

// confidenceThreshold is the minimum model confidence for accepting a
// suggested match to an existing category. Exactly at the threshold counts
// as a match.
const confidenceThreshold = 0.70

// CategoryStore is the slice of the persistence gateway the pass needs for
// categories.
type CategoryStore interface {
	ListCategories(ctx context.Context) ([]finance.Category, error)
	CreateCategory(ctx context.Context, c finance.Category) (finance.Category, error)
}

// TransactionRewriter rewrites the category of many transactions at once.
type TransactionRewriter interface {
	BulkUpdateCategory(ctx context.Context, ids []string, category string) error
}

// Suggester matches a raw label against the available categories.
type Suggester interface {
	SuggestCategory(ctx context.Context, label string, available []string) (classify.CategorySuggestion, error)
}

// Report summarizes one reconciliation run.
type Report struct {
	TransactionsUpdated int      `json:"transactions_updated"`
	CategoriesCreated   int      `json:"categories_created"`
	Decisions           []string `json:"decisions,omitempty"`
}

// Reconciler resolves imported category labels to canonical names.
type Reconciler struct {
	categories CategoryStore
	tx         TransactionRewriter
	suggester  Suggester
	log        zerolog.Logger
}

func New(categories CategoryStore, tx TransactionRewriter, suggester Suggester, log zerolog.Logger) *Reconciler {
	return &Reconciler{categories: categories, tx: tx, suggester: suggester, log: log}
}

// Run reconciles the batch. At most one model call is made per distinct raw
// label, never one per transaction. Labels whose resolution fails keep their
// original value; a partial run never aborts the batch.
func (r *Reconciler) Run(ctx context.Context, batch []finance.ImportedTransaction) (Report, error) {
	labels, byLabel := groupByLabel(batch)
	if len(labels) == 0 {
		return Report{}, nil
	}

	existing, err := r.categories.ListCategories(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("Run: loading categories: %w", err)
	}

	var report Report
	for _, label := range labels {
		resolved, created, decision := r.resolveLabel(ctx, label, &existing)
		report.Decisions = append(report.Decisions, decision)
		if created {
			report.CategoriesCreated++
		}
		if resolved == "" {
			// Resolution failed; transactions keep the raw label.
			continue
		}

		if resolved == label {
			// Already canonical, byte for byte. Nothing to rewrite.
			continue
		}

		ids := byLabel[label]
		if err := r.tx.BulkUpdateCategory(ctx, ids, resolved); err != nil {
			r.log.Error().Err(err).Str("label", label).Str("resolved", resolved).Msg("bulk category rewrite failed")
			continue
		}
		report.TransactionsUpdated += len(ids)
	}

	return report, nil
}

// resolveLabel maps one raw label to a canonical category name. It returns
// the resolved name ("" when resolution failed), whether a category was
// created, and a human-readable decision line. The candidate list is mutated
// in place when a category is created, so later labels in the same run see it.
func (r *Reconciler) resolveLabel(ctx context.Context, label string, existing *[]finance.Category) (string, bool, string) {
	if match, ok := findCaseInsensitive(*existing, label); ok {
		return match.Name, false, fmt.Sprintf("%q matched existing category %q", label, match.Name)
	}

	target := label
	names := categoryNames(*existing)
	suggestion, err := r.suggester.SuggestCategory(ctx, label, names)
	if err != nil {
		r.log.Warn().Err(err).Str("label", label).Msg("category suggestion failed, keeping original label")
	} else if suggestion.Category != "" {
		if match, ok := findCaseInsensitive(*existing, suggestion.Category); ok && suggestion.Confidence >= confidenceThreshold {
			return match.Name, false, fmt.Sprintf("%q matched %q (confidence %.2f)", label, match.Name, suggestion.Confidence)
		}
		target = suggestion.Category
	}

	// No acceptable match; create the category. The suggested name may still
	// collide case-insensitively with what another writer created meanwhile.
	created, err := r.categories.CreateCategory(ctx, finance.Category{Name: target})
	if err != nil {
		if errors.Is(err, infrabq.ErrDuplicateCategory) {
			// Someone beat us to it. Refresh and match again.
			if refreshed, lerr := r.categories.ListCategories(ctx); lerr == nil {
				*existing = refreshed
				if match, ok := findCaseInsensitive(*existing, target); ok {
					return match.Name, false, fmt.Sprintf("%q matched concurrently created %q", label, match.Name)
				}
			}
		}
		r.log.Error().Err(err).Str("label", label).Str("target", target).Msg("category creation failed")
		return "", false, fmt.Sprintf("%q unresolved: creating %q failed", label, target)
	}

	*existing = append(*existing, created)
	return created.Name, true, fmt.Sprintf("%q created new category %q", label, created.Name)
}

// groupByLabel collects distinct raw labels worth reconciling, in first-seen
// order, with the transaction ids carrying each. Empty labels and the
// uncategorized fallback are skipped.
func groupByLabel(batch []finance.ImportedTransaction) ([]string, map[string][]string) {
	var labels []string
	byLabel := map[string][]string{}
	for _, it := range batch {
		label := strings.TrimSpace(it.CategoryLabel)
		if label == "" || strings.EqualFold(label, finance.UncategorizedName) {
			continue
		}
		if _, seen := byLabel[label]; !seen {
			labels = append(labels, label)
		}
		byLabel[label] = append(byLabel[label], it.TransactionID)
	}
	return labels, byLabel
}

func findCaseInsensitive(categories []finance.Category, name string) (finance.Category, bool) {
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return finance.Category{}, false
}

func categoryNames(categories []finance.Category) []string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}
	return names
}
