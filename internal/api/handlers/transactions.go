package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/budgetwise/internal/api/middleware"
	"github.com/dvloznov/budgetwise/internal/finance"
	"github.com/dvloznov/budgetwise/internal/infra/bigquery"
	"github.com/dvloznov/budgetwise/internal/suggest"
)

// TransactionsHandler handles transaction endpoints, including the local
// category suggester for the manual-entry form.
type TransactionsHandler struct {
	repo      bigquery.TransactionRepository
	suggester *suggest.Suggester
	log       zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(repo bigquery.TransactionRepository, suggester *suggest.Suggester, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{repo: repo, suggester: suggester, log: log}
}

// List handles GET /api/transactions?account_id=&start=&end=
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := bigquery.TransactionFilter{
		AccountID: r.URL.Query().Get("account_id"),
	}
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start date, want YYYY-MM-DD")
			return
		}
		filter.Start = &t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end date, want YYYY-MM-DD")
			return
		}
		filter.End = &t
	}

	transactions, err := h.repo.ListTransactions(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// Create handles POST /api/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID   string  `json:"account_id"`
		Date        string  `json:"date"`
		Description string  `json:"description"`
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccountID == "" || req.Description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "account_id and description are required")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date, want YYYY-MM-DD")
		return
	}

	transaction, err := h.repo.CreateTransaction(r.Context(), finance.Transaction{
		AccountID:   req.AccountID,
		Date:        date,
		Description: req.Description,
		Amount:      req.Amount,
		Category:    req.Category,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, transaction)
}

// Update handles PUT /api/transactions/{id}
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var upd finance.TransactionUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	transaction, err := h.repo.UpdateTransaction(r.Context(), id, upd)
	if err != nil {
		if errors.Is(err, bigquery.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to update transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, transaction)
}

// Delete handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.DeleteTransaction(r.Context(), id); err != nil {
		h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// BulkDelete handles POST /api/transactions/bulk-delete
func (h *TransactionsHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TransactionIDs []string `json:"transaction_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.TransactionIDs) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "transaction_ids is required")
		return
	}

	if err := h.repo.BulkDeleteTransactions(r.Context(), req.TransactionIDs); err != nil {
		h.log.Error().Err(err).Int("count", len(req.TransactionIDs)).Msg("Failed to bulk delete transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "deleted",
		"deleted": len(req.TransactionIDs),
	})
}

// SuggestCategory handles GET /api/transactions/suggest-category?description=
// It serves predictions from the local classifier, retraining it first when
// the transaction set has changed.
func (h *TransactionsHandler) SuggestCategory(w http.ResponseWriter, r *http.Request) {
	description := r.URL.Query().Get("description")
	if description == "" {
		middleware.WriteError(w, http.StatusBadRequest, "description is required")
		return
	}

	transactions, err := h.repo.ListTransactions(r.Context(), bigquery.TransactionFilter{})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load transactions for suggestion")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load transactions")
		return
	}

	if h.suggester.Stale(len(transactions)) {
		if err := h.suggester.Train(transactions); err != nil {
			// Not enough history to classify yet.
			middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"suggestion": nil})
			return
		}
	}

	suggestion, err := h.suggester.Suggest(description)
	if err != nil {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"suggestion": nil})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{"suggestion": suggestion})
}
