package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/expense-ledger/internal/apperror"
	"github.com/sakif/expense-ledger/internal/service"
)

type ReportHandler struct {
	reports *service.ReportService
	logger  *slog.Logger
}

func NewReportHandler(reports *service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger,
	}
}

// HandleMonthly returns the caller's spend per category for one month.
//
// HTTP: GET /api/reports/monthly?month=6&year=2024&page=1&limit=5
//
// month and year are required. page/limit select which expense rows are
// aggregated; totalItems counts the month's expense rows.
func (h *ReportHandler) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	if q.Get("month") == "" || q.Get("year") == "" {
		writeError(w, apperror.ValidationFailed("month", "month and year are required"))
		return
	}
	month, err := queryInt(r, "month", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	year, err := queryInt(r, "year", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	page, limit, err := pageParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.reports.Monthly(r.Context(), userID, month, year, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
