// Package api exposes HTTP handlers for the reports service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/reports/internal/domain"
	"example.com/reports/internal/excel"
)

const periodsLimit = 20

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service       *domain.Service
	reportTimeout time.Duration
	probeSample   int
}

// NewHandler builds a Handler. reportTimeout caps report generation;
// probeSample bounds the connectivity test endpoint.
func NewHandler(service *domain.Service, reportTimeout time.Duration, probeSample int) *Handler {
	return &Handler{
		service:       service,
		reportTimeout: reportTimeout,
		probeSample:   probeSample,
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/reports", h.reportsRoot)
	mux.HandleFunc("/api/v1/reports/", h.reports)
	mux.HandleFunc("/api/v1/periods", h.periods)
	mux.HandleFunc("/api/v1/subdomains", h.subdomains)
	mux.HandleFunc("/api/v1/test-subdomains", h.testSubdomains)
	mux.HandleFunc("/health", healthz)
	mux.HandleFunc("/", root)
}

func root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Nutresa Maestro Reports API is running"})
}

func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) reportsRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_request", "missing period id, use /api/v1/reports/{period_id}")
}

func (h *Handler) reports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/")
	rawID, tail, _ := strings.Cut(rest, "/")
	periodID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || periodID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "period id must be a positive integer")
		return
	}

	switch tail {
	case "":
		h.generateReport(w, r, periodID)
	case "excel":
		h.generateExcelReport(w, r, periodID)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown route")
	}
}

func (h *Handler) generateReport(w http.ResponseWriter, r *http.Request, periodID int64) {
	report, err := h.runReport(r.Context(), periodID)
	if err != nil {
		writeReportError(w, err)
		return
	}

	setNoCacheHeaders(w, periodID)
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

func (h *Handler) generateExcelReport(w http.ResponseWriter, r *http.Request, periodID int64) {
	report, err := h.runReport(r.Context(), periodID)
	if err != nil {
		writeReportError(w, err)
		return
	}

	payload, err := excel.Render(report.Rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", fmt.Sprintf("render spreadsheet: %v", err))
		return
	}

	filename := fmt.Sprintf("nutresa_report_period_%d_%d.xlsx", periodID, time.Now().Unix())
	setNoCacheHeaders(w, periodID)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func (h *Handler) runReport(ctx context.Context, periodID int64) (*domain.Report, error) {
	if h.reportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.reportTimeout)
		defer cancel()
	}
	return h.service.GenerateReport(ctx, periodID)
}

func writeReportError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusRequestTimeout, "timeout", "report generation timed out, please try again")
		return
	}
	writeError(w, http.StatusInternalServerError, "server_error", err.Error())
}

func (h *Handler) periods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	periods, err := h.service.Periods(r.Context(), periodsLimit)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}

	items := make([]PeriodView, 0, len(periods))
	for _, p := range periods {
		items = append(items, toPeriodView(p))
	}
	writeJSON(w, http.StatusOK, PeriodsResponse{Periods: items})
}

func (h *Handler) subdomains(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	writeJSON(w, http.StatusOK, SubdomainsResponse{Subdomains: h.service.Subdomains()})
}

func (h *Handler) testSubdomains(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	probe := h.service.ProbeSubdomains(r.Context(), h.probeSample)
	if probe.Configured == 0 {
		writeJSON(w, http.StatusOK, ProbeResponse{
			Status:  "warning",
			Message: "No subdomains configured",
		})
		return
	}
	writeJSON(w, http.StatusOK, toProbeResponse(probe))
}

func setNoCacheHeaders(w http.ResponseWriter, periodID int64) {
	now := time.Now()
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Header().Set("Last-Modified", now.UTC().Format(http.TimeFormat))
	w.Header().Set("ETag", fmt.Sprintf(`"%d-%d"`, now.Unix(), periodID))
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
