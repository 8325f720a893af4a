package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/budgetwise/internal/api/middleware"
	"github.com/dvloznov/budgetwise/internal/finance"
	"github.com/dvloznov/budgetwise/internal/infra/bigquery"
)

// BudgetsHandler handles budget endpoints.
type BudgetsHandler struct {
	repo bigquery.BudgetRepository
	log  zerolog.Logger
}

// NewBudgetsHandler creates a new budgets handler.
func NewBudgetsHandler(repo bigquery.BudgetRepository, log zerolog.Logger) *BudgetsHandler {
	return &BudgetsHandler{repo: repo, log: log}
}

// List handles GET /api/budgets
func (h *BudgetsHandler) List(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.repo.ListBudgets(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list budgets")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list budgets")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"budgets": budgets,
		"count":   len(budgets),
	})
}

// Create handles POST /api/budgets
func (h *BudgetsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string                  `json:"name"`
		IsDefault     bool                    `json:"is_default"`
		Period        string                  `json:"period"`
		Limits        []finance.CategoryLimit `json:"limits"`
		TotalOverride *float64                `json:"total_override"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Period != "" && !validBudgetPeriod(req.Period) {
		middleware.WriteError(w, http.StatusBadRequest, "Period must be monthly or yearly")
		return
	}

	budget, err := h.repo.CreateBudget(r.Context(), finance.Budget{
		Name:          req.Name,
		IsDefault:     req.IsDefault,
		Period:        finance.BudgetPeriod(req.Period),
		Limits:        req.Limits,
		TotalOverride: req.TotalOverride,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create budget")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create budget")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, budget)
}

// Update handles PUT /api/budgets/{id}
func (h *BudgetsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var upd finance.BudgetUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if upd.Period != nil && !validBudgetPeriod(string(*upd.Period)) {
		middleware.WriteError(w, http.StatusBadRequest, "Period must be monthly or yearly")
		return
	}

	budget, err := h.repo.UpdateBudget(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, bigquery.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Budget not found")
			return
		}
		h.log.Error().Err(err).Str("budget_id", id).Msg("Failed to update budget")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update budget")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, budget)
}

// Delete handles DELETE /api/budgets/{id}
func (h *BudgetsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.DeleteBudget(r.Context(), id); err != nil {
		h.log.Error().Err(err).Str("budget_id", id).Msg("Failed to delete budget")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete budget")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func validBudgetPeriod(p string) bool {
	switch finance.BudgetPeriod(p) {
	case finance.BudgetMonthly, finance.BudgetYearly:
		return true
	}
	return false
}
