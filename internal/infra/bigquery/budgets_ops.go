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

const budgetColumns = `
	budget_id,
	name,
	is_default,
	period,
	limits_json,
	total_override,
	created_ts,
	updated_ts`

// ListBudgets retrieves all budgets, default budgets first.
func (r *Repository) ListBudgets(ctx context.Context) ([]finance.Budget, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		ORDER BY is_default DESC, name
	`, budgetColumns, r.table("budgets")))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListBudgets: reading query: %w", err)
	}

	var budgets []finance.Budget
	for {
		var row BudgetRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListBudgets: iterating: %w", err)
		}
		b, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("ListBudgets: %w", err)
		}
		budgets = append(budgets, b)
	}

	return budgets, nil
}

// GetBudget retrieves a single budget by id.
func (r *Repository) GetBudget(ctx context.Context, id string) (finance.Budget, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE budget_id = @budget_id
		LIMIT 1
	`, budgetColumns, r.table("budgets")))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "budget_id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return finance.Budget{}, fmt.Errorf("GetBudget: reading query: %w", err)
	}

	var row BudgetRow
	err = it.Next(&row)
	if err == iterator.Done {
		return finance.Budget{}, fmt.Errorf("GetBudget %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return finance.Budget{}, fmt.Errorf("GetBudget: iterating: %w", err)
	}

	b, err := row.toDomain()
	if err != nil {
		return finance.Budget{}, fmt.Errorf("GetBudget: %w", err)
	}
	return b, nil
}

// CreateBudget inserts a new budget. Category limits are stored as a JSON
// string column so the whole set travels as one query parameter.
func (r *Repository) CreateBudget(ctx context.Context, b finance.Budget) (finance.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Period == "" {
		b.Period = finance.BudgetMonthly
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	limitsJSON, err := encodeLimits(b.Limits)
	if err != nil {
		return finance.Budget{}, fmt.Errorf("CreateBudget: %w", err)
	}

	var override bigquery.NullFloat64
	if b.TotalOverride != nil {
		override = bigquery.NullFloat64{Float64: *b.TotalOverride, Valid: true}
	}

	err = r.runDML(ctx, fmt.Sprintf(`
		INSERT %s (budget_id, name, is_default, period, limits_json, total_override, created_ts, updated_ts)
		VALUES (@budget_id, @name, @is_default, @period, @limits_json, @total_override, @created_ts, @updated_ts)
	`, r.table("budgets")), []bigquery.QueryParameter{
		{Name: "budget_id", Value: b.ID},
		{Name: "name", Value: b.Name},
		{Name: "is_default", Value: b.IsDefault},
		{Name: "period", Value: string(b.Period)},
		{Name: "limits_json", Value: limitsJSON},
		{Name: "total_override", Value: override},
		{Name: "created_ts", Value: b.CreatedAt},
		{Name: "updated_ts", Value: b.UpdatedAt},
	})
	if err != nil {
		return finance.Budget{}, fmt.Errorf("CreateBudget: %w", err)
	}

	return b, nil
}

// UpdateBudget applies a partial update and returns the updated budget.
// A non-nil Limits replaces the stored set wholesale.
func (r *Repository) UpdateBudget(ctx context.Context, id string, upd finance.BudgetUpdate) (finance.Budget, error) {
	set := []string{"updated_ts = @updated_ts"}
	params := []bigquery.QueryParameter{
		{Name: "budget_id", Value: id},
		{Name: "updated_ts", Value: time.Now().UTC()},
	}

	if upd.Name != nil {
		set = append(set, "name = @name")
		params = append(params, bigquery.QueryParameter{Name: "name", Value: *upd.Name})
	}
	if upd.IsDefault != nil {
		set = append(set, "is_default = @is_default")
		params = append(params, bigquery.QueryParameter{Name: "is_default", Value: *upd.IsDefault})
	}
	if upd.Period != nil {
		set = append(set, "period = @period")
		params = append(params, bigquery.QueryParameter{Name: "period", Value: string(*upd.Period)})
	}
	if upd.Limits != nil {
		limitsJSON, err := encodeLimits(*upd.Limits)
		if err != nil {
			return finance.Budget{}, fmt.Errorf("UpdateBudget: %w", err)
		}
		set = append(set, "limits_json = @limits_json")
		params = append(params, bigquery.QueryParameter{Name: "limits_json", Value: limitsJSON})
	}
	if upd.TotalOverride != nil {
		set = append(set, "total_override = @total_override")
		params = append(params, bigquery.QueryParameter{Name: "total_override", Value: bigquery.NullFloat64{Float64: *upd.TotalOverride, Valid: true}})
	}

	err := r.runDML(ctx, fmt.Sprintf(`
		UPDATE %s
		SET %s
		WHERE budget_id = @budget_id
	`, r.table("budgets"), strings.Join(set, ", ")), params)
	if err != nil {
		return finance.Budget{}, fmt.Errorf("UpdateBudget: %w", err)
	}

	return r.GetBudget(ctx, id)
}

// DeleteBudget removes a budget by id.
func (r *Repository) DeleteBudget(ctx context.Context, id string) error {
	err := r.runDML(ctx, fmt.Sprintf(`
		DELETE FROM %s
		WHERE budget_id = @budget_id
	`, r.table("budgets")), []bigquery.QueryParameter{
		{Name: "budget_id", Value: id},
	})
	if err != nil {
		return fmt.Errorf("DeleteBudget: %w", err)
	}
	return nil
}
