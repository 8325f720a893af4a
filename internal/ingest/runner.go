package ingest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/budgetwise/internal/classify"
	"github.com/dvloznov/budgetwise/internal/jobs"
	"github.com/dvloznov/budgetwise/internal/reconcile"
)

// Runner executes a whole import job: parse, map, import, reconcile. It is
// the handler the job queue's worker invokes.
type Runner struct {
	classifier classify.Classifier
	importer   *Importer
	reconciler *reconcile.Reconciler
	log        zerolog.Logger
}

func NewRunner(classifier classify.Classifier, importer *Importer, reconciler *reconcile.Reconciler, log zerolog.Logger) *Runner {
	return &Runner{classifier: classifier, importer: importer, reconciler: reconciler, log: log}
}

// Handle implements jobs.JobHandler. The result lands on the job itself so
// the store keeps it.
func (r *Runner) Handle(ctx context.Context, job jobs.Job) error {
	csvJob, ok := job.(*jobs.ImportCSVJob)
	if !ok {
		return fmt.Errorf("Handle: unexpected job type %s", job.GetType())
	}

	result, err := r.Run(ctx, csvJob)
	csvJob.Result = result
	return err
}

// Run processes one import job and returns its summary. Row failures are
// part of the summary, not errors; only a failure that prevents any row from
// being attempted fails the job.
func (r *Runner) Run(ctx context.Context, job *jobs.ImportCSVJob) (*jobs.ImportResult, error) {
	headers, rows, err := ParseCSV(bytes.NewReader(job.CSVData))
	if err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	// A user-confirmed mapping from the preview step skips the classifier;
	// it still gets reconciled against the real headers and re-validated.
	var mappings []classify.ColumnMapping
	if len(job.Mappings) > 0 {
		mappings = ReconcileMappings(headers, job.Mappings)
	} else {
		mappings, err = ResolveMappings(ctx, r.classifier, headers, rows)
		if err != nil {
			return nil, fmt.Errorf("Run: %w", err)
		}
	}
	if err := ValidateMappings(mappings); err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	out, err := r.importer.Import(ctx, job.AccountID, job.SourceFile, rows, mappings)
	if err != nil {
		return nil, fmt.Errorf("Run: %w", err)
	}

	result := &jobs.ImportResult{
		RowsTotal:    out.Total,
		RowsImported: out.Imported,
		RowsFailed:   out.Failed,
		RowErrors:    out.DisplayErrors(),
	}

	report, err := r.reconciler.Run(ctx, out.Written)
	if err != nil {
		// Transactions are written; they just keep their raw labels.
		r.log.Error().Err(err).Str("job_id", job.JobID).Msg("category reconciliation failed")
		return result, nil
	}
	result.TransactionsUpdated = report.TransactionsUpdated
	result.CategoriesCreated = report.CategoriesCreated

	r.log.Info().
		Str("job_id", job.JobID).
		Int("imported", out.Imported).
		Int("failed", out.Failed).
		Int("reconciled", report.TransactionsUpdated).
		Int("categories_created", report.CategoriesCreated).
		Msg("import completed")

	return result, nil
}
