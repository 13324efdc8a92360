package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"example.com/reports/internal/observability"
	"example.com/reports/internal/subdomain"
)

var (
	// ErrTablesMissing indicates a subdomain database lacks the core schema.
	ErrTablesMissing = errors.New("required tables missing")
	// ErrNoPeriodSource is returned when no subdomain could serve the period list.
	ErrNoPeriodSource = errors.New("no reachable subdomain to read periods from")
)

// LiquidationStore captures the per-subdomain persistence operations.
type LiquidationStore interface {
	TablesPresent(ctx context.Context) (bool, error)
	VariableTotals(ctx context.Context, periodID int64) ([]VariableTotals, error)
	Periods(ctx context.Context, limit int) ([]Period, error)
	Diagnostics(ctx context.Context) (Diagnostics, error)
	Close() error
}

// Connector opens a short-lived store against one subdomain's database.
type Connector interface {
	Connect(ctx context.Context, database string) (LiquidationStore, error)
}

// Report is the aggregated result across all subdomains for one period.
type Report struct {
	ID          string
	Rows        []ReportRow
	Processed   []string
	Failed      []SubdomainFailure
	GeneratedAt time.Time
}

// SubdomainFailure records why a subdomain was skipped.
type SubdomainFailure struct {
	Subdomain string
	Reason    string
}

// ProbeEntry is the connectivity outcome for one subdomain.
type ProbeEntry struct {
	Subdomain   string
	Database    string
	Connected   bool
	Error       string
	Diagnostics *Diagnostics
}

// ProbeResult summarises a connectivity test over a sample of subdomains.
type ProbeResult struct {
	Configured int
	Tested     int
	Succeeded  int
	Failed     int
	Entries    []ProbeEntry
}

// Service orchestrates report generation across subdomain databases.
type Service struct {
	registry    *subdomain.Registry
	connector   Connector
	concurrency int
	logger      zerolog.Logger
}

// NewService constructs a Service. Concurrency bounds the subdomain fan-out;
// values below 1 are clamped to sequential behavior.
func NewService(registry *subdomain.Registry, connector Connector, concurrency int, logger zerolog.Logger) *Service {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		registry:    registry,
		connector:   connector,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Subdomains lists the configured subdomain names.
func (s *Service) Subdomains() []string {
	return s.registry.Names()
}

// GenerateReport queries every configured subdomain for the period and
// merges the rows. A subdomain that cannot be reached or queried is recorded
// as failed and skipped; one bad agency never sinks the whole report.
func (s *Service) GenerateReport(ctx context.Context, periodID int64) (*Report, error) {
	started := time.Now()
	names := s.registry.Names()

	type outcome struct {
		rows []ReportRow
		err  error
	}
	outcomes := make(map[string]outcome, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, name := range names {
		g.Go(func() error {
			rows, err := s.subdomainRows(gctx, name, periodID)
			mu.Lock()
			outcomes[name] = outcome{rows: rows, err: err}
			mu.Unlock()
			if err != nil {
				s.logger.Warn().Str("subdomain", name).Err(err).Msg("subdomain skipped")
				observability.RecordSubdomainFailure(name)
			}
			// Per-subdomain errors are recorded, not propagated, so the
			// group keeps draining the remaining subdomains.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		ID:          uuid.NewString(),
		Rows:        make([]ReportRow, 0, len(names)),
		GeneratedAt: time.Now().UTC(),
	}
	for _, name := range names {
		out := outcomes[name]
		if out.err != nil {
			report.Failed = append(report.Failed, SubdomainFailure{Subdomain: name, Reason: out.err.Error()})
			continue
		}
		report.Rows = append(report.Rows, out.rows...)
		report.Processed = append(report.Processed, name)
	}

	observability.RecordReportGenerated(len(report.Rows), time.Since(started))
	s.logger.Info().
		Int64("period_id", periodID).
		Int("rows", len(report.Rows)).
		Int("processed", len(report.Processed)).
		Int("failed", len(report.Failed)).
		Dur("elapsed", time.Since(started)).
		Msg("report generated")
	return report, nil
}

func (s *Service) subdomainRows(ctx context.Context, name string, periodID int64) ([]ReportRow, error) {
	database, ok := s.registry.Database(name)
	if !ok {
		return nil, fmt.Errorf("subdomain %s not configured", name)
	}

	store, err := s.connector.Connect(ctx, database)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", database, err)
	}
	defer store.Close()

	present, err := store.TablesPresent(ctx)
	if err != nil {
		return nil, fmt.Errorf("inspect schema of %s: %w", database, err)
	}
	if !present {
		return nil, fmt.Errorf("%s: %w", database, ErrTablesMissing)
	}

	totals, err := store.VariableTotals(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", database, err)
	}

	rows := make([]ReportRow, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, BuildRow(name, t))
	}
	return rows, nil
}

// Periods lists recent liquidation periods, read from the first reachable
// subdomain. All subdomains share the same period calendar so any one of
// them is an acceptable source.
func (s *Service) Periods(ctx context.Context, limit int) ([]Period, error) {
	names := s.registry.Names()
	if len(names) == 0 {
		return []Period{}, nil
	}

	for _, name := range names {
		database, ok := s.registry.Database(name)
		if !ok {
			continue
		}
		store, err := s.connector.Connect(ctx, database)
		if err != nil {
			s.logger.Warn().Str("subdomain", name).Err(err).Msg("period source unreachable")
			continue
		}
		periods, err := store.Periods(ctx, limit)
		store.Close()
		if err != nil {
			s.logger.Warn().Str("subdomain", name).Err(err).Msg("period query failed")
			continue
		}
		return periods, nil
	}
	return nil, ErrNoPeriodSource
}

// ProbeSubdomains tests connectivity against a sample of subdomains and
// returns per-subdomain diagnostics.
func (s *Service) ProbeSubdomains(ctx context.Context, sample int) ProbeResult {
	names := s.registry.Sample(sample)
	result := ProbeResult{
		Configured: s.registry.Len(),
		Tested:     len(names),
		Entries:    make([]ProbeEntry, 0, len(names)),
	}

	for _, name := range names {
		database, _ := s.registry.Database(name)
		entry := ProbeEntry{Subdomain: name, Database: database}

		store, err := s.connector.Connect(ctx, database)
		if err == nil {
			var diag Diagnostics
			diag, err = store.Diagnostics(ctx)
			store.Close()
			if err == nil {
				entry.Connected = true
				entry.Diagnostics = &diag
			}
		}
		if err != nil {
			entry.Error = err.Error()
			result.Failed++
		} else {
			result.Succeeded++
		}
		result.Entries = append(result.Entries, entry)
	}
	return result
}
