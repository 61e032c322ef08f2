package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"gamerental-backend/internal/repository"
	"gamerental-backend/internal/service"
)

type ReportHandler struct {
	reports   service.ReportService
	snapshots repository.ReportRepository
	currency  string
}

func NewReportHandler(reports service.ReportService, snapshots repository.ReportRepository, currency string) *ReportHandler {
	return &ReportHandler{reports: reports, snapshots: snapshots, currency: currency}
}

// parseWindow maps the window query parameter to a duration. An absent or
// "all" window means no time filtering.
func parseWindow(raw string) (time.Duration, bool) {
	switch raw {
	case "", "all":
		return 0, true
	case "daily":
		return service.WindowDaily, true
	case "weekly":
		return service.WindowWeekly, true
	case "monthly":
		return service.WindowMonthly, true
	default:
		return 0, false
	}
}

func (h *ReportHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	window, ok := parseWindow(r.URL.Query().Get("window"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "window must be daily, weekly, monthly or all"})
		return
	}
	revenue, err := h.reports.RevenueByEmployee(r.Context(), window)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var total int64
	for _, v := range revenue {
		total += v
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"revenue_by_employee": revenue,
		"attributed_total":    total,
		"currency":            h.currency,
	})
}

func (h *ReportHandler) TopGames(w http.ResponseWriter, r *http.Request) {
	window, ok := parseWindow(r.URL.Query().Get("window"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "window must be daily, weekly, monthly or all"})
		return
	}
	n := 5
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "n must be a positive integer"})
			return
		}
		n = parsed
	}
	usage, err := h.reports.TopGames(r.Context(), window, n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"top_games": usage})
}

// DailySnapshot serves the persisted nightly report for one date.
func (h *ReportHandler) DailySnapshot(w http.ResponseWriter, r *http.Request) {
	date := mux.Vars(r)["date"]
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "date must be yyyy-mm-dd"})
		return
	}
	report, err := h.snapshots.GetByDate(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
