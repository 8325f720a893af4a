// Command import runs the CSV import pipeline against one file from the
// terminal, synchronously: parse, map columns, write rows, reconcile
// categories. Use -replay to re-run an archived upload by its gs:// URI.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/dvloznov/budgetwise/internal/archive"
	"github.com/dvloznov/budgetwise/internal/classify"
	"github.com/dvloznov/budgetwise/internal/config"
	"github.com/dvloznov/budgetwise/internal/ingest"
	"github.com/dvloznov/budgetwise/internal/logger"
	"github.com/dvloznov/budgetwise/internal/reconcile"

	infraBQ "github.com/dvloznov/budgetwise/internal/infra/bigquery"
)

var (
	accountID = flag.String("account", "", "Account ID to import into (required)")
	filePath  = flag.String("file", "", "Path to a local CSV export")
	replayURI = flag.String("replay", "", "gs:// URI of an archived upload to re-import")
)

func main() {
	flag.Parse()

	if *accountID == "" {
		fail("the -account flag is required")
	}
	if (*filePath == "") == (*replayURI == "") {
		fail("exactly one of -file or -replay is required")
	}

	log := logger.New()
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fail("loading configuration: %v", err)
	}

	data, sourceFile, err := readCSV(ctx, cfg)
	if err != nil {
		fail("%v", err)
	}

	repo, err := infraBQ.NewRepository(ctx, cfg.ProjectID, cfg.Dataset)
	if err != nil {
		fail("connecting to BigQuery: %v", err)
	}
	defer repo.Close()

	classifier, err := classify.NewGeminiClassifier(ctx, cfg.GeminiModel, cfg.AITimeout, cfg.AIRateRPS)
	if err != nil {
		fail("creating classifier: %v", err)
	}

	headers, rows, err := ingest.ParseCSV(bytes.NewReader(data))
	if err != nil {
		fail("%v", err)
	}
	fmt.Printf("Parsed %s: %d columns, %d data rows\n", sourceFile, len(headers), len(rows))

	mappings, err := ingest.ResolveMappings(ctx, classifier, headers, rows)
	if err != nil {
		fail("resolving column mappings: %v", err)
	}
	if err := ingest.ValidateMappings(mappings); err != nil {
		fail("%v", err)
	}
	for _, m := range mappings {
		if m.TransactionField != "" {
			fmt.Printf("  %s -> %s\n", m.CSVHeader, color.CyanString(m.TransactionField))
		}
	}

	importer := ingest.NewImporter(repo, repo, log)
	out, err := importer.Import(ctx, *accountID, sourceFile, rows, mappings)
	if err != nil {
		fail("import failed: %v", err)
	}

	fmt.Println()
	color.Green("Imported %d of %d rows", out.Imported, out.Total)
	if out.Failed > 0 {
		color.Red("Failed %d rows:", out.Failed)
		for _, e := range out.DisplayErrors() {
			color.Red("  %s", e)
		}
	}

	reconciler := reconcile.New(repo, repo, classifier, log)
	report, err := reconciler.Run(ctx, out.Written)
	if err != nil {
		color.Yellow("Category reconciliation failed: %v", err)
		color.Yellow("Imported rows keep their raw category labels.")
		return
	}

	if report.CategoriesCreated > 0 {
		color.Green("Created %d new categor%s", report.CategoriesCreated, plural(report.CategoriesCreated, "y", "ies"))
	}
	if report.TransactionsUpdated > 0 {
		color.Green("Recategorized %d transaction%s", report.TransactionsUpdated, plural(report.TransactionsUpdated, "", "s"))
	}
	for _, d := range report.Decisions {
		fmt.Printf("  %s\n", d)
	}
}

// readCSV loads the file either from disk or from the archive bucket.
func readCSV(ctx context.Context, cfg *config.Config) ([]byte, string, error) {
	if *filePath != "" {
		data, err := os.ReadFile(*filePath)
		if err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", *filePath, err)
		}
		return data, filepath.Base(*filePath), nil
	}

	if cfg.ArchiveBucket == "" {
		return nil, "", fmt.Errorf("-replay requires GCS_BUCKET to be configured")
	}
	arch, err := archive.New(ctx, cfg.ArchiveBucket)
	if err != nil {
		return nil, "", fmt.Errorf("opening archive: %w", err)
	}
	defer arch.Close()

	data, err := arch.Fetch(ctx, *replayURI)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %s: %w", *replayURI, err)
	}
	return data, filepath.Base(*replayURI), nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func fail(format string, args ...any) {
	color.Red("Error: "+format, args...)
	os.Exit(1)
}
