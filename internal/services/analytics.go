package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"society/internal/core"
	"society/internal/ledger"
)

// PendingWindowMonths is how many months, counting the current one, the
// dashboard checks for pending dues.
const PendingWindowMonths = 3

// AnalyticsComposer assembles the dashboard from the aggregator and the dues
// calculator. It holds no state between calls.
type AnalyticsComposer struct {
	agg   *PeriodAggregator
	dues  *DuesCalculator
	flats ledger.FlatReader
	now   func() time.Time
}

func NewAnalyticsComposer(agg *PeriodAggregator, dues *DuesCalculator, flats ledger.FlatReader, now func() time.Time) *AnalyticsComposer {
	if now == nil {
		now = time.Now
	}
	return &AnalyticsComposer{agg: agg, dues: dues, flats: flats, now: now}
}

// Analytics returns the monthly matrix and yearly roll-up of year plus the
// pending dues of the rolling window ending at the current month. Either
// every section is returned or none is.
func (c *AnalyticsComposer) Analytics(ctx context.Context, year int) (*core.Analytics, error) {
	if err := core.ValidateYear(year); err != nil {
		return nil, err
	}
	now := c.now()

	var (
		monthly []core.PeriodBucket
		pending map[string][]core.PendingEntry
		yearly  core.Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		monthly, err = c.agg.Monthly(gctx, year)
		return err
	})
	g.Go(func() error {
		var err error
		pending, err = c.dues.PendingWindow(gctx, now, PendingWindowMonths)
		return err
	})
	g.Go(func() error {
		var err error
		yearly, err = c.agg.Yearly(gctx, year)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Analytics composition failed", "year", year, "error", err)
		return nil, fmt.Errorf("analytics for %d: %w", year, err)
	}

	return &core.Analytics{
		Year:                year,
		Monthly:             monthly,
		PendingFlatsByMonth: pending,
		Yearly:              yearly,
	}, nil
}

// Summary returns the current month's totals and the flat list.
func (c *AnalyticsComposer) Summary(ctx context.Context) (*core.DashboardSummary, error) {
	period := core.PeriodOf(c.now())

	var (
		totals core.Summary
		flats  []core.Flat
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = c.agg.Summary(gctx, period.Year, period.Month)
		return err
	})
	g.Go(func() error {
		var err error
		flats, err = c.flats.ListFlats(gctx, ledger.FlatFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	return &core.DashboardSummary{Period: period, Totals: totals, Flats: flats}, nil
}
