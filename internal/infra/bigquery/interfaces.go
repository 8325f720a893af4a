package bigquery

import (
	"context"
	"time"

	"github.com/dvloznov/budgetwise/internal/finance"
)

// AccountRepository is the persistence surface for accounts.
type AccountRepository interface {
	ListAccounts(ctx context.Context) ([]finance.Account, error)
	GetAccount(ctx context.Context, id string) (finance.Account, error)
	CreateAccount(ctx context.Context, a finance.Account) (finance.Account, error)
	UpdateAccount(ctx context.Context, id string, upd finance.AccountUpdate) (finance.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	StampLastImport(ctx context.Context, id string, ts time.Time) error
}

// TransactionFilter narrows ListTransactions. Zero values mean "no filter".
type TransactionFilter struct {
	AccountID string
	Start     *time.Time
	End       *time.Time
}

// TransactionRepository is the persistence surface for transactions.
type TransactionRepository interface {
	ListTransactions(ctx context.Context, f TransactionFilter) ([]finance.Transaction, error)
	GetTransaction(ctx context.Context, id string) (finance.Transaction, error)
	CreateTransaction(ctx context.Context, t finance.Transaction) (finance.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, upd finance.TransactionUpdate) (finance.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
	BulkUpdateCategory(ctx context.Context, ids []string, category string) error
	BulkDeleteTransactions(ctx context.Context, ids []string) error
}

// CategoryRepository is the persistence surface for categories.
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]finance.Category, error)
	FindCategoryByName(ctx context.Context, name string) (finance.Category, error)
	CreateCategory(ctx context.Context, c finance.Category) (finance.Category, error)
	UpdateCategory(ctx context.Context, id string, upd finance.CategoryUpdate) (finance.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// BudgetRepository is the persistence surface for budgets.
type BudgetRepository interface {
	ListBudgets(ctx context.Context) ([]finance.Budget, error)
	GetBudget(ctx context.Context, id string) (finance.Budget, error)
	CreateBudget(ctx context.Context, b finance.Budget) (finance.Budget, error)
	UpdateBudget(ctx context.Context, id string, upd finance.BudgetUpdate) (finance.Budget, error)
	DeleteBudget(ctx context.Context, id string) error
}

var (
	_ AccountRepository     = (*Repository)(nil)
	_ TransactionRepository = (*Repository)(nil)
	_ CategoryRepository    = (*Repository)(nil)
	_ BudgetRepository      = (*Repository)(nil)
)
