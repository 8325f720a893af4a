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

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	repo bigquery.CategoryRepository
	log  zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(repo bigquery.CategoryRepository, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{repo: repo, log: log}
}

// List handles GET /api/categories
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.repo.ListCategories(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// Create handles POST /api/categories
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Icon string `json:"icon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}

	category, err := h.repo.CreateCategory(r.Context(), finance.Category{
		Name: req.Name,
		Icon: req.Icon,
	})
	if err != nil {
		if errors.Is(err, bigquery.ErrDuplicateCategory) {
			middleware.WriteError(w, http.StatusConflict, "Category name already exists")
			return
		}
		h.log.Error().Err(err).Msg("Failed to create category")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, category)
}

// Update handles PUT /api/categories/{id}
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var upd finance.CategoryUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	category, err := h.repo.UpdateCategory(r.Context(), id, upd)
	if err != nil {
		switch {
		case errors.Is(err, bigquery.ErrNotFound):
			middleware.WriteError(w, http.StatusNotFound, "Category not found")
		case errors.Is(err, bigquery.ErrDuplicateCategory):
			middleware.WriteError(w, http.StatusConflict, "Category name already exists")
		default:
			h.log.Error().Err(err).Str("category_id", id).Msg("Failed to update category")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to update category")
		}
		return
	}

	middleware.WriteJSON(w, http.StatusOK, category)
}

// Delete handles DELETE /api/categories/{id}
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.repo.DeleteCategory(r.Context(), id); err != nil {
		h.log.Error().Err(err).Str("category_id", id).Msg("Failed to delete category")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete category")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
