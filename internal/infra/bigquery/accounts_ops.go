package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/budgetwise/internal/finance"
)

const accountColumns = `
	account_id,
	name,
	account_type,
	balance,
	currency,
	last_import_ts,
	created_ts,
	updated_ts`

// ListAccounts retrieves all accounts ordered by name.
func (r *Repository) ListAccounts(ctx context.Context) ([]finance.Account, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY name
	`, accountColumns, r.table("accounts")))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: reading query: %w", err)
	}

	var accounts []finance.Account
	for {
		var row AccountRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListAccounts: iterating: %w", err)
		}
		accounts = append(accounts, row.toDomain())
	}

	return accounts, nil
}

// GetAccount retrieves a single account by id.
func (r *Repository) GetAccount(ctx context.Context, id string) (finance.Account, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE account_id = @account_id
		LIMIT 1
	`, accountColumns, r.table("accounts")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return finance.Account{}, fmt.Errorf("GetAccount: reading query: %w", err)
	}

	var row AccountRow
	err = it.Next(&row)
	if err == iterator.Done {
		return finance.Account{}, fmt.Errorf("GetAccount %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return finance.Account{}, fmt.Errorf("GetAccount: iterating: %w", err)
	}

	return row.toDomain(), nil
}

// CreateAccount inserts a new account and returns it with id and timestamps set.
func (r *Repository) CreateAccount(ctx context.Context, a finance.Account) (finance.Account, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	err := r.runDML(ctx, fmt.Sprintf(`
		INSERT %s (account_id, name, account_type, balance, currency, created_ts, updated_ts)
		VALUES (@account_id, @name, @account_type, @balance, @currency, @created_ts, @updated_ts)
	`, r.table("accounts")), []bigquery.QueryParameter{
		{Name: "account_id", Value: a.ID},
		{Name: "name", Value: a.Name},
		{Name: "account_type", Value: string(a.Type)},
		{Name: "balance", Value: a.Balance},
		{Name: "currency", Value: a.Currency},
		{Name: "created_ts", Value: now},
		{Name: "updated_ts", Value: now},
	})
	if err != nil {
		return finance.Account{}, fmt.Errorf("CreateAccount: %w", err)
	}

	return a, nil
}

// UpdateAccount applies a partial update and returns the updated account.
func (r *Repository) UpdateAccount(ctx context.Context, id string, upd finance.AccountUpdate) (finance.Account, error) {
	set := []string{"updated_ts = @updated_ts"}
	params := []bigquery.QueryParameter{
		{Name: "updated_ts", Value: time.Now().UTC()},
		{Name: "account_id", Value: id},
	}

	if upd.Name != nil {
		set = append(set, "name = @name")
		params = append(params, bigquery.QueryParameter{Name: "name", Value: *upd.Name})
	}
	if upd.Type != nil {
		set = append(set, "account_type = @account_type")
		params = append(params, bigquery.QueryParameter{Name: "account_type", Value: string(*upd.Type)})
	}
	if upd.Balance != nil {
		set = append(set, "balance = @balance")
		params = append(params, bigquery.QueryParameter{Name: "balance", Value: *upd.Balance})
	}
	if upd.Currency != nil {
		set = append(set, "currency = @currency")
		params = append(params, bigquery.QueryParameter{Name: "currency", Value: *upd.Currency})
	}

	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE account_id = @account_id
	`, r.table("accounts"), strings.Join(set, ", ")), params)
	if err != nil {
		return finance.Account{}, fmt.Errorf("UpdateAccount: %w", err)
	}

	return r.GetAccount(ctx, id)
}

// DeleteAccount removes an account by id.
func (r *Repository) DeleteAccount(ctx context.Context, id string) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE account_id = @account_id
	`, r.table("accounts")), []bigquery.QueryParameter{
		{Name: "account_id", Value: id},
	})
	if err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	return nil
}

// StampLastImport records the moment an import last wrote into the account.
func (r *Repository) StampLastImport(ctx context.Context, id string, ts time.Time) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET last_import_ts = @last_import_ts,
		    updated_ts = @last_import_ts
		WHERE account_id = @account_id
	`, r.table("accounts")), []bigquery.QueryParameter{
		{Name: "last_import_ts", Value: ts.UTC()},
		{Name: "account_id", Value: id},
	})
	if err != nil {
		return fmt.Errorf("StampLastImport: %w", err)
	}
	return nil
}
