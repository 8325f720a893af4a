package bigquery

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/budgetwise/internal/finance"
)

// Row types mirror the BigQuery table schemas. The repository converts them
// to and from the finance domain types at the package boundary.

type AccountRow struct {
	AccountID    string                 `bigquery:"account_id"`
	Name         string                 `bigquery:"name"`
	AccountType  string                 `bigquery:"account_type"`
	Balance      float64                `bigquery:"balance"`
	Currency     string                 `bigquery:"currency"`
	LastImportTS bigquery.NullTimestamp `bigquery:"last_import_ts"`
	CreatedTS    time.Time              `bigquery:"created_ts"`
	UpdatedTS    time.Time              `bigquery:"updated_ts"`
}

func (r *AccountRow) toDomain() finance.Account {
	a := finance.Account{
		ID:        r.AccountID,
		Name:      r.Name,
		Type:      finance.AccountType(r.AccountType),
		Balance:   r.Balance,
		Currency:  r.Currency,
		CreatedAt: r.CreatedTS,
		UpdatedAt: r.UpdatedTS,
	}
	if r.LastImportTS.Valid {
		ts := r.LastImportTS.Timestamp
		a.LastImportAt = &ts
	}
	return a
}

type TransactionRow struct {
	TransactionID   string                 `bigquery:"transaction_id"`
	AccountID       string                 `bigquery:"account_id"`
	TransactionDate civil.Date             `bigquery:"transaction_date"`
	Description     string                 `bigquery:"description"`
	Amount          float64                `bigquery:"amount"`
	Category        string                 `bigquery:"category"`
	SourceFile      bigquery.NullString    `bigquery:"source_file"`
	ImportedTS      bigquery.NullTimestamp `bigquery:"imported_ts"`
	CreatedTS       time.Time              `bigquery:"created_ts"`
	UpdatedTS       time.Time              `bigquery:"updated_ts"`
}

func (r *TransactionRow) toDomain() finance.Transaction {
	t := finance.Transaction{
		ID:          r.TransactionID,
		AccountID:   r.AccountID,
		Date:        r.TransactionDate.In(time.UTC),
		Description: r.Description,
		Amount:      r.Amount,
		Category:    r.Category,
		CreatedAt:   r.CreatedTS,
		UpdatedAt:   r.UpdatedTS,
	}
	if r.SourceFile.Valid {
		t.SourceFile = r.SourceFile.StringVal
	}
	if r.ImportedTS.Valid {
		ts := r.ImportedTS.Timestamp
		t.ImportedAt = &ts
	}
	return t
}

type CategoryRow struct {
	CategoryID string              `bigquery:"category_id"`
	Name       string              `bigquery:"name"`
	Icon       bigquery.NullString `bigquery:"icon"`
	CreatedTS  time.Time           `bigquery:"created_ts"`
}

func (r *CategoryRow) toDomain() finance.Category {
	c := finance.Category{
		ID:        r.CategoryID,
		Name:      r.Name,
		CreatedAt: r.CreatedTS,
	}
	if r.Icon.Valid {
		c.Icon = r.Icon.StringVal
	}
	return c
}

type BudgetRow struct {
	BudgetID      string               `bigquery:"budget_id"`
	Name          string               `bigquery:"name"`
	IsDefault     bool                 `bigquery:"is_default"`
	Period        string               `bigquery:"period"`
	LimitsJSON    string               `bigquery:"limits_json"`
	TotalOverride bigquery.NullFloat64 `bigquery:"total_override"`
	CreatedTS     time.Time            `bigquery:"created_ts"`
	UpdatedTS     time.Time            `bigquery:"updated_ts"`
}

func (r *BudgetRow) toDomain() (finance.Budget, error) {
	b := finance.Budget{
		ID:        r.BudgetID,
		Name:      r.Name,
		IsDefault: r.IsDefault,
		Period:    finance.BudgetPeriod(r.Period),
		CreatedAt: r.CreatedTS,
		UpdatedAt: r.UpdatedTS,
	}
	if r.LimitsJSON != "" {
		if err := json.Unmarshal([]byte(r.LimitsJSON), &b.Limits); err != nil {
			return finance.Budget{}, fmt.Errorf("budget %s: decoding limits: %w", r.BudgetID, err)
		}
	}
	if r.TotalOverride.Valid {
		v := r.TotalOverride.Float64
		b.TotalOverride = &v
	}
	return b, nil
}

func encodeLimits(limits []finance.CategoryLimit) (string, error) {
	if len(limits) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(limits)
	if err != nil {
		return "", fmt.Errorf("encoding limits: %w", err)
	}
	return string(data), nil
}
