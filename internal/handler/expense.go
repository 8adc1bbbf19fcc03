package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/expense-ledger/internal/model"
	"github.com/sakif/expense-ledger/internal/service"
)

// ExpenseHandler manages the caller's expenses.
//
// REQUEST BODY (create and update):
//
//	{"title": "Lunch", "amount": "12.50", "expenseDate": "2024-06-01",
//	 "note": "", "categoryId": "..."}
//
// amount may be sent as a JSON string or number.
type ExpenseHandler struct {
	expenses *service.ExpenseService
	logger   *slog.Logger
}

func NewExpenseHandler(expenses *service.ExpenseService, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		expenses: expenses,
		logger:   logger,
	}
}

// HandlePage returns one page of the caller's expenses, newest first.
//
// HTTP: GET /api/expenses?page=1&limit=5&search=lunch
func (h *ExpenseHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.expenses.Page(r.Context(), userID, page, limit, r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleGet returns one of the caller's expenses.
//
// HTTP: GET /api/expenses/{id}
func (h *ExpenseHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	exp, err := h.expenses.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, exp)
}

// HandleCreate records an expense for the caller.
//
// HTTP: POST /api/expenses
func (h *ExpenseHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var in model.ExpenseInput
	if !decodeJSON(w, r, &in) {
		return
	}

	exp, err := h.expenses.Create(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, exp)
}

// HandleUpdate replaces the editable fields of one of the caller's expenses.
//
// HTTP: PUT /api/expenses/{id}
func (h *ExpenseHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var in model.ExpenseInput
	if !decodeJSON(w, r, &in) {
		return
	}

	exp, err := h.expenses.Update(r.Context(), chi.URLParam(r, "id"), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, exp)
}

// HandleDelete removes one of the caller's expenses.
//
// HTTP: DELETE /api/expenses/{id}
func (h *ExpenseHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.expenses.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
