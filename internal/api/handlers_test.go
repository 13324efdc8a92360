package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"example.com/reports/internal/domain"
	"example.com/reports/internal/subdomain"
)

type stubStore struct {
	totals  []domain.VariableTotals
	periods []domain.Period
}

func (s *stubStore) TablesPresent(ctx context.Context) (bool, error) { return true, nil }

func (s *stubStore) VariableTotals(ctx context.Context, periodID int64) ([]domain.VariableTotals, error) {
	return s.totals, nil
}

func (s *stubStore) Periods(ctx context.Context, limit int) ([]domain.Period, error) {
	return s.periods, nil
}

func (s *stubStore) Diagnostics(ctx context.Context) (domain.Diagnostics, error) {
	return domain.Diagnostics{Database: "stub", Ping: 1, Version: "8.0.36"}, nil
}

func (s *stubStore) Close() error { return nil }

type stubConnector struct {
	stores map[string]*stubStore
}

func (c *stubConnector) Connect(ctx context.Context, database string) (domain.LiquidationStore, error) {
	store, ok := c.stores[database]
	if !ok {
		return nil, errors.New("connect " + database + ": connection refused")
	}
	return store, nil
}

func newTestMux(t *testing.T, registry *subdomain.Registry, connector domain.Connector) *http.ServeMux {
	t.Helper()
	service := domain.NewService(registry, connector, 2, zerolog.Nop())
	handler := NewHandler(service, time.Minute, 5)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	return mux
}

func reportFixtureMux(t *testing.T) *http.ServeMux {
	registry := subdomain.New(map[string]string{
		"comercruz": "db_comercruz",
		"maxgol":    "db_maxgol",
	})
	connector := &stubConnector{
		stores: map[string]*stubStore{
			"db_comercruz": {
				totals: []domain.VariableTotals{{
					Variable:             "CSI - Snack de Película",
					PeriodStart:          time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC),
					AssignedGoal:         100,
					DistributedGoal:      25,
					AssignedIncentive:    80,
					DistributedIncentive: 20,
					TotalUsers:           4,
					CompletedUsers:       1,
				}},
			},
			// db_maxgol intentionally absent so the connector fails for it.
		},
	}
	return newTestMux(t, registry, connector)
}

func TestGenerateReportEndpoint(t *testing.T) {
	mux := reportFixtureMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/7", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	if cc := rr.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("expected no-store cache header, got %q", cc)
	}
	if etag := rr.Header().Get("ETag"); !strings.HasSuffix(etag, `-7"`) {
		t.Fatalf("expected period-suffixed etag, got %q", etag)
	}

	var resp ReportResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.ReportID == "" {
		t.Fatal("expected a report id")
	}
	if resp.TotalRecords != 1 || len(resp.Data) != 1 {
		t.Fatalf("expected 1 record got %d", resp.TotalRecords)
	}

	row := resp.Data[0]
	if row.AgentCode != "comercruz" || row.AgentName != "COMERCRUZ DISTRIBUCIONES" {
		t.Fatalf("unexpected agent fields %q/%q", row.AgentCode, row.AgentName)
	}
	if row.Period != "Agosto 2025" {
		t.Fatalf("unexpected period %q", row.Period)
	}
	if row.GoalPercent != 25 {
		t.Fatalf("unexpected goal percent %v", row.GoalPercent)
	}
	if row.CompletionPercent != 25 {
		t.Fatalf("unexpected completion percent %v", row.CompletionPercent)
	}

	if len(resp.SubdomainsProcessed) != 1 || resp.SubdomainsProcessed[0] != "comercruz" {
		t.Fatalf("unexpected processed list %v", resp.SubdomainsProcessed)
	}
	if len(resp.SubdomainsFailed) != 1 || resp.SubdomainsFailed[0].Subdomain != "maxgol" {
		t.Fatalf("unexpected failed list %v", resp.SubdomainsFailed)
	}
}

func TestGenerateReportRequiresPeriod(t *testing.T) {
	mux := reportFixtureMux(t)

	for _, path := range []string{"/api/v1/reports", "/api/v1/reports/", "/api/v1/reports/abc", "/api/v1/reports/-3"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s got %d", path, rr.Code)
		}
	}
}

func TestGenerateReportRejectsPost(t *testing.T) {
	mux := reportFixtureMux(t)

	for _, path := range []string{"/api/v1/reports/7", "/api/v1/reports"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405 for %s got %d", path, rr.Code)
		}
	}
}

func TestExcelReportEndpoint(t *testing.T) {
	mux := reportFixtureMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/7/excel", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename=nutresa_report_period_7_") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Fatal("expected zip magic in response body")
	}
}

func TestPeriodsEndpoint(t *testing.T) {
	start := time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.August, 31, 0, 0, 0, 0, time.UTC)
	registry := subdomain.New(map[string]string{"comercruz": "db_comercruz"})
	connector := &stubConnector{
		stores: map[string]*stubStore{
			"db_comercruz": {
				periods: []domain.Period{{ID: 7, StartDate: &start, EndDate: &end, Name: "Agosto 2025"}},
			},
		},
	}
	mux := newTestMux(t, registry, connector)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/periods", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rr.Code, rr.Body.String())
	}

	var resp PeriodsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Periods) != 1 {
		t.Fatalf("expected 1 period got %d", len(resp.Periods))
	}
	p := resp.Periods[0]
	if p.ID != 7 || p.Name != "Agosto 2025" {
		t.Fatalf("unexpected period %+v", p)
	}
	if p.StartDate == nil || *p.StartDate != "2025-08-01" {
		t.Fatalf("unexpected start date %v", p.StartDate)
	}
}

func TestSubdomainsEndpoint(t *testing.T) {
	registry := subdomain.New(map[string]string{
		"maxgol":    "db_maxgol",
		"comercruz": "db_comercruz",
	})
	mux := newTestMux(t, registry, &stubConnector{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subdomains", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	var resp SubdomainsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Subdomains) != 2 || resp.Subdomains[0] != "comercruz" {
		t.Fatalf("expected sorted names got %v", resp.Subdomains)
	}
}

func TestTestSubdomainsEndpoint(t *testing.T) {
	registry := subdomain.New(map[string]string{
		"comercruz": "db_comercruz",
		"maxgol":    "db_maxgol",
	})
	connector := &stubConnector{
		stores: map[string]*stubStore{"db_comercruz": {}},
	}
	mux := newTestMux(t, registry, connector)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/test-subdomains", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	var resp ProbeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "completed" || resp.Results == nil {
		t.Fatalf("unexpected probe response %+v", resp)
	}
	if resp.Results.Successful != 1 || resp.Results.Failed != 1 {
		t.Fatalf("unexpected counts %+v", resp.Results)
	}
	if resp.Results.Summary.ConnectionSuccessRate != "50.0%" {
		t.Fatalf("unexpected success rate %q", resp.Results.Summary.ConnectionSuccessRate)
	}
	entry := resp.Results.SubdomainResults["comercruz"]
	if entry.Status != "connected" || entry.MySQLVersion != "8.0.36" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.TestQueryResult != 1 {
		t.Fatalf("expected test query result 1 got %d", entry.TestQueryResult)
	}
}

func TestTestSubdomainsEmptyRegistry(t *testing.T) {
	mux := newTestMux(t, subdomain.New(nil), &stubConnector{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/test-subdomains", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	var resp ProbeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "warning" {
		t.Fatalf("expected warning status got %q", resp.Status)
	}
}

func TestHealthEndpoint(t *testing.T) {
	mux := reportFixtureMux(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "healthy") {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}
