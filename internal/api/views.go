package api

import (
	"fmt"
	"time"

	"example.com/reports/internal/domain"
)

// ReportRowView keeps the Spanish field names the report consumers expect.
type ReportRowView struct {
	AgentCode            string  `json:"codigo_agente"`
	AgentName            string  `json:"nombre_agente"`
	Period               string  `json:"periodo_tiempo"`
	Variable             string  `json:"variable"`
	AssignedGoal         float64 `json:"meta_asignada"`
	DistributedGoal      float64 `json:"meta_distribuida"`
	GoalPercent          float64 `json:"porcentaje_meta"`
	AssignedIncentive    float64 `json:"incentivo_asignado"`
	DistributedIncentive float64 `json:"incentivo_distribuido"`
	CompletionPercent    float64 `json:"porcentaje_variables_completadas"`
}

// SubdomainFailureView reports a skipped subdomain and why.
type SubdomainFailureView struct {
	Subdomain string `json:"subdomain"`
	Reason    string `json:"reason"`
}

// ReportResponse is the JSON body of GET /api/v1/reports/{period_id}.
type ReportResponse struct {
	ReportID            string                 `json:"report_id"`
	Data                []ReportRowView        `json:"data"`
	TotalRecords        int                    `json:"total_records"`
	SubdomainsProcessed []string               `json:"subdomains_processed"`
	SubdomainsFailed    []SubdomainFailureView `json:"subdomains_failed"`
	GeneratedAt         string                 `json:"generated_at"`
}

// PeriodView is one entry of the period catalogue.
type PeriodView struct {
	ID        int64   `json:"id"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Name      string  `json:"name"`
}

// PeriodsResponse packages the period list.
type PeriodsResponse struct {
	Periods []PeriodView `json:"periods"`
}

// SubdomainsResponse lists configured subdomain names.
type SubdomainsResponse struct {
	Subdomains []string `json:"subdomains"`
}

// ProbeEntryView is the connectivity outcome for one subdomain.
type ProbeEntryView struct {
	Status          string `json:"status"`
	DatabaseName    string `json:"database_name"`
	Error           string `json:"error,omitempty"`
	TestQueryResult int    `json:"test_query_result,omitempty"`
	ServerTime      string `json:"current_time,omitempty"`
	MySQLVersion    string `json:"mysql_version,omitempty"`
	TableCount      int    `json:"table_count,omitempty"`
}

// ProbeSummaryView aggregates the probe outcome.
type ProbeSummaryView struct {
	ConnectionSuccessRate string `json:"connection_success_rate"`
	AllConnected          bool   `json:"all_connected"`
}

// ProbeResultsView carries counts and per-subdomain results.
type ProbeResultsView struct {
	TotalConfigured  int                       `json:"total_subdomains_configured"`
	TotalTested      int                       `json:"total_subdomains_tested"`
	Successful       int                       `json:"successful_connections"`
	Failed           int                       `json:"failed_connections"`
	SubdomainResults map[string]ProbeEntryView `json:"subdomain_results"`
	Summary          ProbeSummaryView          `json:"summary"`
}

// ProbeResponse is the JSON body of GET /api/v1/test-subdomains.
type ProbeResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Results *ProbeResultsView `json:"results,omitempty"`
}

func toReportResponse(report *domain.Report) ReportResponse {
	rows := make([]ReportRowView, 0, len(report.Rows))
	for _, row := range report.Rows {
		rows = append(rows, ReportRowView{
			AgentCode:            row.AgentCode,
			AgentName:            row.AgentName,
			Period:               row.Period,
			Variable:             row.Variable,
			AssignedGoal:         row.AssignedGoal,
			DistributedGoal:      row.DistributedGoal,
			GoalPercent:          row.GoalPercent,
			AssignedIncentive:    row.AssignedIncentive,
			DistributedIncentive: row.DistributedIncentive,
			CompletionPercent:    row.CompletionPercent,
		})
	}

	failed := make([]SubdomainFailureView, 0, len(report.Failed))
	for _, f := range report.Failed {
		failed = append(failed, SubdomainFailureView{Subdomain: f.Subdomain, Reason: f.Reason})
	}

	processed := report.Processed
	if processed == nil {
		processed = []string{}
	}

	return ReportResponse{
		ReportID:            report.ID,
		Data:                rows,
		TotalRecords:        len(rows),
		SubdomainsProcessed: processed,
		SubdomainsFailed:    failed,
		GeneratedAt:         report.GeneratedAt.Format(time.RFC3339),
	}
}

func toPeriodView(p domain.Period) PeriodView {
	view := PeriodView{ID: p.ID, Name: p.Name}
	if p.StartDate != nil {
		s := p.StartDate.Format("2006-01-02")
		view.StartDate = &s
	}
	if p.EndDate != nil {
		e := p.EndDate.Format("2006-01-02")
		view.EndDate = &e
	}
	return view
}

func toProbeResponse(probe domain.ProbeResult) ProbeResponse {
	results := ProbeResultsView{
		TotalConfigured:  probe.Configured,
		TotalTested:      probe.Tested,
		Successful:       probe.Succeeded,
		Failed:           probe.Failed,
		SubdomainResults: make(map[string]ProbeEntryView, len(probe.Entries)),
	}

	for _, entry := range probe.Entries {
		view := ProbeEntryView{DatabaseName: entry.Database}
		if entry.Connected {
			view.Status = "connected"
			if entry.Diagnostics != nil {
				view.TestQueryResult = entry.Diagnostics.Ping
				view.ServerTime = entry.Diagnostics.ServerTime
				view.MySQLVersion = entry.Diagnostics.Version
				view.TableCount = entry.Diagnostics.TableCount
			}
		} else {
			view.Status = "error"
			view.Error = entry.Error
		}
		results.SubdomainResults[entry.Subdomain] = view
	}

	rate := "0%"
	if probe.Tested > 0 {
		rate = fmt.Sprintf("%.1f%%", float64(probe.Succeeded)/float64(probe.Tested)*100)
	}
	results.Summary = ProbeSummaryView{
		ConnectionSuccessRate: rate,
		AllConnected:          probe.Failed == 0,
	}

	return ProbeResponse{
		Status:  "completed",
		Message: fmt.Sprintf("Tested %d of %d subdomains", probe.Tested, probe.Configured),
		Results: &results,
	}
}
