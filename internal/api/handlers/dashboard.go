package handlers

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dvloznov/budgetwise/internal/api/middleware"
	"github.com/dvloznov/budgetwise/internal/dashboard"
	"github.com/dvloznov/budgetwise/internal/infra/bigquery"
)

// DashboardHandler serves computed dashboard metrics.
type DashboardHandler struct {
	accounts     bigquery.AccountRepository
	transactions bigquery.TransactionRepository
	categories   bigquery.CategoryRepository
	budgets      bigquery.BudgetRepository
	log          zerolog.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(
	accounts bigquery.AccountRepository,
	transactions bigquery.TransactionRepository,
	categories bigquery.CategoryRepository,
	budgets bigquery.BudgetRepository,
	log zerolog.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		accounts:     accounts,
		transactions: transactions,
		categories:   categories,
		budgets:      budgets,
		log:          log,
	}
}

// Get handles GET /api/dashboard?budget_id=&period=
// The four collections load concurrently; the aggregation itself is pure.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	period := dashboard.Period(r.URL.Query().Get("period"))
	if period == "" {
		period = dashboard.PeriodCurrentMonth
	}

	in := dashboard.Input{
		BudgetID: r.URL.Query().Get("budget_id"),
		Period:   period,
		Now:      time.Now().UTC(),
	}

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		in.Accounts, err = h.accounts.ListAccounts(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		in.Transactions, err = h.transactions.ListTransactions(ctx, bigquery.TransactionFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		in.Categories, err = h.categories.ListCategories(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		in.Budgets, err = h.budgets.ListBudgets(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		h.log.Error().Err(err).Msg("Failed to load dashboard collections")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load dashboard data")
		return
	}

	metrics, err := dashboard.Compute(in)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown period")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, metrics)
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
