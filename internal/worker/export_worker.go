package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"society/internal/amqp"
	"society/internal/core"
	"society/internal/sheets"
)

// MonthlyReports builds the rows of one month's report.
type MonthlyReports interface {
	MonthlyRows(ctx context.Context, month, year int) (*core.ReportRows, error)
}

// ExportWorker keeps the spreadsheet copy of each month's report current.
type ExportWorker struct {
	reports  MonthlyReports
	exporter sheets.ReportExporter
	now      func() time.Time
}

func NewExportWorker(reports MonthlyReports, exporter sheets.ReportExporter, now func() time.Time) *ExportWorker {
	if now == nil {
		now = time.Now
	}
	return &ExportWorker{reports: reports, exporter: exporter, now: now}
}

// HandleLedgerEvent re-exports the month a ledger change touched.
func (w *ExportWorker) HandleLedgerEvent(ctx context.Context, msg *amqp.LedgerEventMessage) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"entity", msg.Entity,
		"action", msg.Action,
		"id", msg.ID,
		"period", msg.Period().Key())

	if err := w.ExportPeriod(ctx, msg.Period()); err != nil {
		return fmt.Errorf("export after %s %s: %w", msg.Entity, msg.Action, err)
	}
	return nil
}

// ExportPeriod rebuilds one month's report and replaces its tab.
func (w *ExportWorker) ExportPeriod(ctx context.Context, p core.Period) error {
	rows, err := w.reports.MonthlyRows(ctx, p.Month, p.Year)
	if err != nil {
		return fmt.Errorf("build report %s: %w", p.Key(), err)
	}
	ref, err := w.exporter.ExportMonth(ctx, rows)
	if err != nil {
		return fmt.Errorf("export report %s: %w", p.Key(), err)
	}
	slog.InfoContext(ctx, "Exported monthly report",
		"period", p.Key(),
		"ref", ref,
		"payments", len(rows.Payments),
		"expenses", len(rows.Expenses))
	return nil
}

// ExportRecent exports the last n months ending with the current one. It is
// the backup for events lost while the worker was down.
func (w *ExportWorker) ExportRecent(ctx context.Context, n int) error {
	periods := core.RollingPeriods(w.now(), n)
	var failed int
	for _, p := range periods {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.ExportPeriod(ctx, p); err != nil {
			slog.ErrorContext(ctx, "Failed to export month", "period", p.Key(), "error", err)
			failed++
		}
	}
	slog.InfoContext(ctx, "Recent months exported",
		"total", len(periods),
		"errors", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d months failed to export", failed, len(periods))
	}
	return nil
}
