package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/budgetwise/internal/finance"
)

// bulkChunkSize bounds how many ids go into a single bulk DML statement,
// matching the gateway's multi-document write limit.
const bulkChunkSize = 500

const transactionColumns = `
	transaction_id,
	account_id,
	transaction_date,
	description,
	amount,
	category,
	source_file,
	imported_ts,
	created_ts,
	updated_ts`

// ListTransactions retrieves transactions matching the filter, ordered by
// date descending then creation descending.
func (r *Repository) ListTransactions(ctx context.Context, f TransactionFilter) ([]finance.Transaction, error) {
	where := []string{"TRUE"}
	var params []bigquery.QueryParameter

	if f.AccountID != "" {
		where = append(where, "account_id = @account_id")
		params = append(params, bigquery.QueryParameter{Name: "account_id", Value: f.AccountID})
	}
	if f.Start != nil {
		where = append(where, "transaction_date >= @start_date")
		params = append(params, bigquery.QueryParameter{Name: "start_date", Value: civil.DateOf(*f.Start)})
	}
	if f.End != nil {
		where = append(where, "transaction_date <= @end_date")
		params = append(params, bigquery.QueryParameter{Name: "end_date", Value: civil.DateOf(*f.End)})
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY transaction_date DESC, created_ts DESC
	`, transactionColumns, r.table("transactions"), strings.Join(where, " AND ")))
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: reading query: %w", err)
	}

	var txns []finance.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: iterating: %w", err)
		}
		txns = append(txns, row.toDomain())
	}

	return txns, nil
}

// GetTransaction retrieves a single transaction by id.
func (r *Repository) GetTransaction(ctx context.Context, id string) (finance.Transaction, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE transaction_id = @transaction_id
		LIMIT 1
	`, transactionColumns, r.table("transactions")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return finance.Transaction{}, fmt.Errorf("GetTransaction: reading query: %w", err)
	}

	var row TransactionRow
	err = it.Next(&row)
	if err == iterator.Done {
		return finance.Transaction{}, fmt.Errorf("GetTransaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return finance.Transaction{}, fmt.Errorf("GetTransaction: iterating: %w", err)
	}

	return row.toDomain(), nil
}

// CreateTransaction inserts a new transaction and returns it with id and
// timestamps set. SourceFile and ImportedAt are written when present so the
// ingestion pipeline can record provenance.
func (r *Repository) CreateTransaction(ctx context.Context, t finance.Transaction) (finance.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Category == "" {
		t.Category = finance.UncategorizedName
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	importedTS := bigquery.NullTimestamp{}
	if t.ImportedAt != nil {
		importedTS = bigquery.NullTimestamp{Timestamp: t.ImportedAt.UTC(), Valid: true}
	}

	err := r.runDML(ctx, fmt.Sprintf(`
		INSERT %s (transaction_id, account_id, transaction_date, description, amount,
			category, source_file, imported_ts, created_ts, updated_ts)
		VALUES (@transaction_id, @account_id, @transaction_date, @description, @amount,
			@category, @source_file, @imported_ts, @created_ts, @updated_ts)
	`, r.table("transactions")), []bigquery.QueryParameter{
		{Name: "transaction_id", Value: t.ID},
		{Name: "account_id", Value: t.AccountID},
		{Name: "transaction_date", Value: civil.DateOf(t.Date)},
		{Name: "description", Value: t.Description},
		{Name: "amount", Value: t.Amount},
		{Name: "category", Value: t.Category},
		{Name: "source_file", Value: bigquery.NullString{StringVal: t.SourceFile, Valid: t.SourceFile != ""}},
		{Name: "imported_ts", Value: importedTS},
		{Name: "created_ts", Value: now},
		{Name: "updated_ts", Value: now},
	})
	if err != nil {
		return finance.Transaction{}, fmt.Errorf("CreateTransaction: %w", err)
	}

	return t, nil
}

// UpdateTransaction applies a partial update and returns the updated record.
func (r *Repository) UpdateTransaction(ctx context.Context, id string, upd finance.TransactionUpdate) (finance.Transaction, error) {
	set := []string{"updated_ts = @updated_ts"}
	params := []bigquery.QueryParameter{
		{Name: "updated_ts", Value: time.Now().UTC()},
		{Name: "transaction_id", Value: id},
	}

	if upd.AccountID != nil {
		set = append(set, "account_id = @account_id")
		params = append(params, bigquery.QueryParameter{Name: "account_id", Value: *upd.AccountID})
	}
	if upd.Date != nil {
		set = append(set, "transaction_date = @transaction_date")
		params = append(params, bigquery.QueryParameter{Name: "transaction_date", Value: civil.DateOf(*upd.Date)})
	}
	if upd.Description != nil {
		set = append(set, "description = @description")
		params = append(params, bigquery.QueryParameter{Name: "description", Value: *upd.Description})
	}
	if upd.Amount != nil {
		set = append(set, "amount = @amount")
		params = append(params, bigquery.QueryParameter{Name: "amount", Value: *upd.Amount})
	}
	if upd.Category != nil {
		set = append(set, "category = @category")
		params = append(params, bigquery.QueryParameter{Name: "category", Value: *upd.Category})
	}

	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE transaction_id = @transaction_id
	`, r.table("transactions"), strings.Join(set, ", ")), params)
	if err != nil {
		return finance.Transaction{}, fmt.Errorf("UpdateTransaction: %w", err)
	}

	return r.GetTransaction(ctx, id)
}

// DeleteTransaction removes a transaction by id.
func (r *Repository) DeleteTransaction(ctx context.Context, id string) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE transaction_id = @transaction_id
	`, r.table("transactions")), []bigquery.QueryParameter{
		{Name: "transaction_id", Value: id},
	})
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// BulkUpdateCategory rewrites the category of all listed transactions,
// chunked to stay inside the gateway's per-statement bound.
func (r *Repository) BulkUpdateCategory(ctx context.Context, ids []string, category string) error {
	for _, chunk := range chunkIDs(ids, bulkChunkSize) {
		err := r.runDML(ctx, fmt.Sprintf(`
			UPDATE %s
			SET category = @category,
			    updated_ts = @updated_ts
			WHERE transaction_id IN UNNEST(@transaction_ids)
		`, r.table("transactions")), []bigquery.QueryParameter{
			{Name: "category", Value: category},
			{Name: "updated_ts", Value: time.Now().UTC()},
			{Name: "transaction_ids", Value: chunk},
		})
		if err != nil {
			return fmt.Errorf("BulkUpdateCategory: %w", err)
		}
	}
	return nil
}

// BulkDeleteTransactions removes all listed transactions, chunked.
func (r *Repository) BulkDeleteTransactions(ctx context.Context, ids []string) error {
	for _, chunk := range chunkIDs(ids, bulkChunkSize) {
		err := r.runDML(ctx, fmt.Sprintf(`
			DELETE FROM %s
			WHERE transaction_id IN UNNEST(@transaction_ids)
		`, r.table("transactions")), []bigquery.QueryParameter{
			{Name: "transaction_ids", Value: chunk},
		})
		if err != nil {
			return fmt.Errorf("BulkDeleteTransactions: %w", err)
		}
	}
	return nil
}

func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > 0 {
		n := size
		if len(ids) < n {
			n = len(ids)
		}
		chunks = append(chunks, ids[:n])
		ids = ids[n:]
	}
	return chunks
}
