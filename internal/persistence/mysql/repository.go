package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"example.com/reports/internal/domain"
)

// minCoreTables is how many of the eight core tables must exist before a
// subdomain is considered usable; older agencies are missing the rules
// tables but still liquidate.
const minCoreTables = 6

// Repository answers report queries against one subdomain database.
type Repository struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// Close releases the underlying connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

// TablesPresent reports whether the subdomain carries the core schema.
func (r *Repository) TablesPresent(ctx context.Context) (bool, error) {
	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	const query = `SELECT COUNT(*) FROM information_schema.tables
        WHERE table_schema = DATABASE()
        AND table_name IN ('users','people','liquidations','roles','programs_users','programs','variables','periods')`

	var count int
	if err := r.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return false, err
	}
	return count >= minCoreTables, nil
}

// VariableTotals aggregates liquidations by variable for one period across
// the whole subdomain. Assigned incentives come from rules.points, while
// distributed incentives only count approved liquidations.
func (r *Repository) VariableTotals(ctx context.Context, periodID int64) ([]domain.VariableTotals, error) {
	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	const query = `SELECT
            v.name,
            pe.start_date,
            SUM(l.goal),
            SUM(l.results),
            SUM(COALESCE(ru.points, 0) * COALESCE(pr.pointValue, 0)),
            SUM(CASE WHEN l.approved = 1 THEN COALESCE(l.points, 0) * COALESCE(pr.pointValue, 0) ELSE 0 END),
            COUNT(DISTINCT u.id),
            COUNT(DISTINCT CASE WHEN l.results > 0 THEN u.id END)
        FROM liquidations l
        JOIN people p ON l.nin = p.nin
        JOIN users u ON p.id = u.person_id
        JOIN programs_users pu ON u.id = pu.user_id
        JOIN programs pr ON pu.program_id = pr.id AND l.program_id = pr.id
        JOIN roles r ON u.role_id = r.id
        JOIN variables v ON l.variable_id = v.id
        JOIN periods pe ON l.period_id = pe.id
        LEFT JOIN rules ru ON ru.user_id = u.id AND ru.variable_id = l.variable_id
        LEFT JOIN rule_periods rp ON rp.rule_id = ru.id AND rp.period_id = l.period_id
        WHERE r.name IN ('supervisor', 'vendor', 'supernumerary')
        AND l.period_id = ?
        GROUP BY v.id, v.name, l.period_id, pe.start_date
        ORDER BY v.name
        LIMIT 50`

	rows, err := r.db.QueryContext(ctx, query, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]domain.VariableTotals, 0, 16)
	for rows.Next() {
		var (
			t           domain.VariableTotals
			periodStart sql.NullTime
			assigned    sql.NullFloat64
			distributed sql.NullFloat64
			incAssigned sql.NullFloat64
			incDistrib  sql.NullFloat64
		)
		if err := rows.Scan(
			&t.Variable,
			&periodStart,
			&assigned,
			&distributed,
			&incAssigned,
			&incDistrib,
			&t.TotalUsers,
			&t.CompletedUsers,
		); err != nil {
			return nil, fmt.Errorf("scan variable totals: %w", err)
		}
		if periodStart.Valid {
			t.PeriodStart = periodStart.Time
		}
		t.AssignedGoal = assigned.Float64
		t.DistributedGoal = distributed.Float64
		t.AssignedIncentive = incAssigned.Float64
		t.DistributedIncentive = incDistrib.Float64
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// Periods lists recent liquidation periods, newest first.
func (r *Repository) Periods(ctx context.Context, limit int) ([]domain.Period, error) {
	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}

	const query = `SELECT id, start_date, end_date, name
        FROM periods ORDER BY start_date DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods := make([]domain.Period, 0, limit)
	for rows.Next() {
		var (
			p     domain.Period
			start sql.NullTime
			end   sql.NullTime
			name  sql.NullString
		)
		if err := rows.Scan(&p.ID, &start, &end, &name); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		if start.Valid {
			p.StartDate = &start.Time
		}
		if end.Valid {
			p.EndDate = &end.Time
		}
		if name.Valid && name.String != "" {
			p.Name = name.String
		} else {
			p.Name = fmt.Sprintf("Period %d", p.ID)
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// Diagnostics gathers the connectivity probe payload.
func (r *Repository) Diagnostics(ctx context.Context) (domain.Diagnostics, error) {
	ctx, cancel := r.queryCtx(ctx)
	defer cancel()

	var diag domain.Diagnostics

	if err := r.db.QueryRowContext(ctx, "SELECT 1").Scan(&diag.Ping); err != nil {
		return diag, err
	}

	var now time.Time
	if err := r.db.QueryRowContext(ctx, "SELECT NOW()").Scan(&now); err != nil {
		return diag, err
	}
	diag.ServerTime = now.Format(time.RFC3339)

	var database sql.NullString
	if err := r.db.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&database); err != nil {
		return diag, err
	}
	diag.Database = database.String

	if err := r.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&diag.Version); err != nil {
		return diag, err
	}

	const tableCount = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE()`
	if err := r.db.QueryRowContext(ctx, tableCount).Scan(&diag.TableCount); err != nil {
		return diag, err
	}
	return diag, nil
}
