// Package domain defines the business logic for the reports service.
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ReportRow is one line of the unified incentive report: the totals for one
// variable across a whole subdomain (agency) in one period.
type ReportRow struct {
	AgentCode            string
	AgentName            string
	Period               string
	Variable             string
	AssignedGoal         float64
	DistributedGoal      float64
	GoalPercent          float64
	AssignedIncentive    float64
	DistributedIncentive float64
	CompletionPercent    float64
}

// VariableTotals is the raw aggregate a subdomain database returns for one
// variable before derived percentages are computed.
type VariableTotals struct {
	Variable             string
	PeriodStart          time.Time
	AssignedGoal         float64
	DistributedGoal      float64
	AssignedIncentive    float64
	DistributedIncentive float64
	TotalUsers           int
	CompletedUsers       int
}

// Period describes a liquidation period as stored in the periods table.
type Period struct {
	ID        int64
	StartDate *time.Time
	EndDate   *time.Time
	Name      string
}

// Diagnostics carries the connectivity probe payload for one subdomain.
// Ping holds the result of the sanity query (SELECT 1) and is 1 when the
// round trip succeeded.
type Diagnostics struct {
	Database   string
	Ping       int
	ServerTime string
	Version    string
	TableCount int
}

// GoalPercent computes distributed/assigned as a percentage. An assigned
// goal of zero (or negative garbage) yields 0, not a division error.
func GoalPercent(assigned, distributed float64) float64 {
	if assigned <= 0 {
		return 0
	}
	return round2(distributed / assigned * 100)
}

// CompletionPercent computes the share of users that reported any result.
func CompletionPercent(total, completed int) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(completed) / float64(total) * 100)
}

// Incentive converts achieved points into money at the program point value.
func Incentive(points, pointValue float64) float64 {
	return round2(points * pointValue)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// spanish month names, indexed by time.Month.
var monthNames = map[time.Month]string{
	time.January: "Enero", time.February: "Febrero", time.March: "Marzo",
	time.April: "Abril", time.May: "Mayo", time.June: "Junio",
	time.July: "Julio", time.August: "Agosto", time.September: "Septiembre",
	time.October: "Octubre", time.November: "Noviembre", time.December: "Diciembre",
}

// PeriodLabel renders a period start date as "Agosto 2025". A zero date
// yields an empty label.
func PeriodLabel(start time.Time) string {
	if start.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s %d", monthNames[start.Month()], start.Year())
}

// agentNames overrides the display name for agencies whose legal name does
// not follow the default pattern.
var agentNames = map[string]string{
	"1030773":                     "A.H.H. DISTRIBUCIONES S.A.S",
	"1089723":                     "AGENCIA COMERCIAL NUTRICOL SAS",
	"comercruz":                   "COMERCRUZ DISTRIBUCIONES",
	"santiagodetunja":             "SANTIAGO DE TUNJA COMERCIAL",
	"maxgol":                      "MAXGOL DISTRIBUCIONES",
	"distrimarcasagentecomercial": "DISTRIMARCAS AGENTE COMERCIAL",
	"jyddistribuciones":           "JYD DISTRIBUCIONES",
}

// AgentName resolves the commercial display name for a subdomain code.
func AgentName(code string) string {
	if name, ok := agentNames[code]; ok {
		return name
	}
	return "AGENCIA COMERCIAL " + strings.ToUpper(code)
}

// BuildRow derives a report row from raw variable totals.
func BuildRow(subdomain string, totals VariableTotals) ReportRow {
	return ReportRow{
		AgentCode:            subdomain,
		AgentName:            AgentName(subdomain),
		Period:               PeriodLabel(totals.PeriodStart),
		Variable:             totals.Variable,
		AssignedGoal:         round2(totals.AssignedGoal),
		DistributedGoal:      round2(totals.DistributedGoal),
		GoalPercent:          GoalPercent(totals.AssignedGoal, totals.DistributedGoal),
		AssignedIncentive:    round2(totals.AssignedIncentive),
		DistributedIncentive: round2(totals.DistributedIncentive),
		CompletionPercent:    CompletionPercent(totals.TotalUsers, totals.CompletedUsers),
	}
}
