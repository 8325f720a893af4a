// Package finance holds the domain model shared by the ingestion pipeline,
// the reconciliation pass, the dashboard aggregator and the HTTP layer.
package finance

import "time"

// AccountType classifies an account for balance sign conventions.
type AccountType string

const (
	AccountDebit      AccountType = "debit"
	AccountCredit     AccountType = "credit"
	AccountSavings    AccountType = "savings"
	AccountInvestment AccountType = "investment"
)

// ValidAccountType reports whether s is one of the known account types.
func ValidAccountType(s string) bool {
	switch AccountType(s) {
	case AccountDebit, AccountCredit, AccountSavings, AccountInvestment:
		return true
	}
	return false
}

// Account is a money account. Credit accounts store the amount owed as a
// negative balance; all other types store the signed actual balance.
type Account struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Type         AccountType `json:"type"`
	Balance      float64     `json:"balance"`
	Currency     string      `json:"currency"`
	LastImportAt *time.Time  `json:"last_import_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// UncategorizedName is the fallback category label for transactions whose
// import source carried no category value.
const UncategorizedName = "Uncategorized"

// Transaction is a single dated movement of money on an account. Category is
// a denormalized category name, matched by string equality against the
// categories collection.
type Transaction struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"account_id"`
	Date        time.Time  `json:"date"`
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Category    string     `json:"category"`
	SourceFile  string     `json:"source_file,omitempty"`
	ImportedAt  *time.Time `json:"imported_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsDebit reports whether the transaction is an expense.
func (t Transaction) IsDebit() bool { return t.Amount < 0 }

// Category is a canonical spending category. Name is unique
// case-insensitively; the stored casing is the display casing.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BudgetPeriod is the recurrence of a budget.
type BudgetPeriod string

const (
	BudgetMonthly BudgetPeriod = "monthly"
	BudgetYearly  BudgetPeriod = "yearly"
)

// CategoryLimit caps spending for one category inside a budget.
type CategoryLimit struct {
	CategoryID string  `json:"category_id"`
	Cap        float64 `json:"cap"`
}

// Budget is a named set of category spending limits.
type Budget struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	IsDefault     bool            `json:"is_default"`
	Period        BudgetPeriod    `json:"period"`
	Limits        []CategoryLimit `json:"limits"`
	TotalOverride *float64        `json:"total_override,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Total returns the budget's total cap: the explicit override when set,
// otherwise the sum of category limits.
func (b Budget) Total() float64 {
	if b.TotalOverride != nil {
		return *b.TotalOverride
	}
	var sum float64
	for _, l := range b.Limits {
		sum += l.Cap
	}
	return sum
}

// ImportedTransaction links a freshly written transaction to the raw category
// label it carried in the source CSV. The reconciliation pass consumes these.
type ImportedTransaction struct {
	TransactionID string
	CategoryLabel string
}
