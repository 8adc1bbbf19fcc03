package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/service"
)

// CategoryHandler manages the caller's categories. Global categories are
// listed alongside the caller's own but cannot be changed.
type CategoryHandler struct {
	categories *service.CategoryService
	logger     *slog.Logger
}

func NewCategoryHandler(categories *service.CategoryService, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{
		categories: categories,
		logger:     logger,
	}
}

type categoryRequest struct {
	Name string `json:"name"`
}

// HandlePage returns one page of visible categories.
//
// HTTP: GET /api/categories/paging?page=1&limit=5&search=foo
func (h *CategoryHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.categories.Page(r.Context(), userID, page, limit, r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleList returns every visible category, ordered by name.
//
// HTTP: GET /api/categories?isActive=true
//
// isActive defaults to true; isActive=false includes inactive categories.
func (h *CategoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	activeOnly := true
	if raw := r.URL.Query().Get("isActive"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("isActive", "isActive must be true or false"))
			return
		}
		activeOnly = v
	}

	cats, err := h.categories.List(r.Context(), userID, activeOnly)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cats)
}

// HandleGet returns one visible category.
//
// HTTP: GET /api/categories/{id}
func (h *CategoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	cat, err := h.categories.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cat)
}

// HandleCreate adds a category owned by the caller.
//
// HTTP: POST /api/categories
// REQUEST BODY: {"name": "Groceries"}
func (h *CategoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cat, err := h.categories.Create(r.Context(), userID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, cat)
}

// HandleUpdate renames one of the caller's categories.
//
// HTTP: PUT /api/categories/{id}
// REQUEST BODY: {"name": "Groceries"}
func (h *CategoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cat, err := h.categories.Update(r.Context(), chi.URLParam(r, "id"), userID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cat)
}

// HandleToggleActive flips the active flag of one of the caller's categories.
//
// HTTP: PUT /api/categories/active/{id}
func (h *CategoryHandler) HandleToggleActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	cat, err := h.categories.ToggleActive(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cat)
}

// HandleDelete removes one of the caller's categories; its expenses move to
// the global "Uncategorized" category.
//
// HTTP: DELETE /api/categories/{id}
func (h *CategoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.categories.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
