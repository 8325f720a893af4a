package finance

import "time"

// Partial-update payloads. Nil fields are left untouched by the gateway.

// AccountUpdate describes a partial update to an account.
type AccountUpdate struct {
	Name     *string      `json:"name,omitempty"`
	Type     *AccountType `json:"type,omitempty"`
	Balance  *float64     `json:"balance,omitempty"`
	Currency *string      `json:"currency,omitempty"`
}

// TransactionUpdate describes a partial update to a transaction.
type TransactionUpdate struct {
	AccountID   *string    `json:"account_id,omitempty"`
	Date        *time.Time `json:"date,omitempty"`
	Description *string    `json:"description,omitempty"`
	Amount      *float64   `json:"amount,omitempty"`
	Category    *string    `json:"category,omitempty"`
}

// CategoryUpdate describes a partial update to a category.
type CategoryUpdate struct {
	Name *string `json:"name,omitempty"`
	Icon *string `json:"icon,omitempty"`
}

// BudgetUpdate describes a partial update to a budget. A non-nil Limits
// replaces the whole limit set.
type BudgetUpdate struct {
	Name          *string          `json:"name,omitempty"`
	IsDefault     *bool            `json:"is_default,omitempty"`
	Period        *BudgetPeriod    `json:"period,omitempty"`
	Limits        *[]CategoryLimit `json:"limits,omitempty"`
	TotalOverride *float64         `json:"total_override,omitempty"`
}
