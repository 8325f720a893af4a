package dashboard

import (
	"fmt"
	"sort"
	"time"

	"github.com/dvloznov/budgetwise/internal/finance"
)

// topCategoryCount caps the spending leaderboard.
const topCategoryCount = 5

// Input carries the four collections plus the user's selection.
type Input struct {
	Accounts     []finance.Account
	Transactions []finance.Transaction
	Categories   []finance.Category
	Budgets      []finance.Budget

	// BudgetID selects the budget to report against. Empty falls back to
	// the default budget when one exists.
	BudgetID string
	Period   Period
	Now      time.Time
}

// CategorySpend is one row of the spending leaderboard.
type CategorySpend struct {
	Category string  `json:"category"`
	Spent    float64 `json:"spent"`
}

// BudgetStatus reports spend against the selected budget's limits.
type BudgetStatus struct {
	BudgetID    string  `json:"budget_id,omitempty"`
	BudgetName  string  `json:"budget_name,omitempty"`
	Total       float64 `json:"total"`
	Spent       float64 `json:"spent"`
	Utilization float64 `json:"utilization_pct"`
	OverBudget  bool    `json:"over_budget"`
}

// Metrics is the computed dashboard payload.
type Metrics struct {
	Period           Period          `json:"period"`
	TotalBalance     float64         `json:"total_balance"`
	PeriodIncome     float64         `json:"period_income"`
	PeriodSpending   float64         `json:"period_spending"`
	PreviousIncome   float64         `json:"previous_income"`
	PreviousSpending float64         `json:"previous_spending"`
	Budget           BudgetStatus    `json:"budget"`
	TopCategories    []CategorySpend `json:"top_categories"`
}

// Compute derives all dashboard metrics in one pass over the transactions.
func Compute(in Input) (Metrics, error) {
	window, err := ResolveWindow(in.Period, in.Now)
	if err != nil {
		return Metrics{}, fmt.Errorf("Compute: %w", err)
	}
	previous := PreviousWindow(in.Period, window)

	m := Metrics{Period: in.Period}

	for _, a := range in.Accounts {
		m.TotalBalance += a.Balance
	}

	budget, hasBudget := selectBudget(in.Budgets, in.BudgetID)
	tracked := trackedCategoryNames(budget, in.Categories)

	spentByCategory := map[string]float64{}
	for _, t := range in.Transactions {
		inWindow := window.Contains(t.Date)
		if inWindow {
			if t.IsDebit() {
				m.PeriodSpending += -t.Amount
			} else {
				m.PeriodIncome += t.Amount
			}
		} else if previous.Contains(t.Date) {
			if t.IsDebit() {
				m.PreviousSpending += -t.Amount
			} else {
				m.PreviousIncome += t.Amount
			}
		}

		if inWindow && t.IsDebit() && (tracked == nil || tracked[t.Category]) {
			spentByCategory[t.Category] += -t.Amount
		}
	}

	if hasBudget {
		var spent float64
		for _, v := range spentByCategory {
			spent += v
		}
		m.Budget = budgetStatus(budget, spent)
	}

	m.TopCategories = topCategories(spentByCategory)

	return m, nil
}

// selectBudget picks the budget with the given id, or the first default
// budget when no id is given.
func selectBudget(budgets []finance.Budget, id string) (finance.Budget, bool) {
	if id != "" {
		for _, b := range budgets {
			if b.ID == id {
				return b, true
			}
		}
		return finance.Budget{}, false
	}
	for _, b := range budgets {
		if b.IsDefault {
			return b, true
		}
	}
	return finance.Budget{}, false
}

// trackedCategoryNames resolves the budget's category limits to display
// names. Nil means "track everything": no budget, or a budget without limits.
func trackedCategoryNames(b finance.Budget, categories []finance.Category) map[string]bool {
	if len(b.Limits) == 0 {
		return nil
	}
	byID := make(map[string]string, len(categories))
	for _, c := range categories {
		byID[c.ID] = c.Name
	}
	tracked := map[string]bool{}
	for _, l := range b.Limits {
		if name, ok := byID[l.CategoryID]; ok {
			tracked[name] = true
		}
	}
	if len(tracked) == 0 {
		return nil
	}
	return tracked
}

// budgetStatus derives utilization and the over-budget flag. A zero-limit
// budget with any spending reads as 100% utilized and over.
func budgetStatus(b finance.Budget, spent float64) BudgetStatus {
	total := b.Total()
	s := BudgetStatus{
		BudgetID:   b.ID,
		BudgetName: b.Name,
		Total:      total,
		Spent:      spent,
	}
	switch {
	case total > 0:
		s.Utilization = spent / total * 100
		s.OverBudget = spent > total
	case spent > 0:
		s.Utilization = 100
		s.OverBudget = true
	}
	return s
}

// topCategories sorts spending descending and keeps the leaders. Ties break
// by name so the output is stable.
func topCategories(spentByCategory map[string]float64) []CategorySpend {
	out := make([]CategorySpend, 0, len(spentByCategory))
	for name, spent := range spentByCategory {
		out = append(out, CategorySpend{Category: name, Spent: spent})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Spent != out[j].Spent {
			return out[i].Spent > out[j].Spent
		}
		return out[i].Category < out[j].Category
	})
	if len(out) > topCategoryCount {
		out = out[:topCategoryCount]
	}
	return out
}
