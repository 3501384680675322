package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"society/internal/core"
	"society/internal/ledger"
)

// PeriodAggregator buckets payments by recorded date and expenses by expense
// date into calendar months.
type PeriodAggregator struct {
	store ledger.AggregateReader
}

func NewPeriodAggregator(store ledger.AggregateReader) *PeriodAggregator {
	return &PeriodAggregator{store: store}
}

// Monthly returns exactly twelve buckets for year, January first. Months
// without activity are zero-filled.
func (a *PeriodAggregator) Monthly(ctx context.Context, year int) ([]core.PeriodBucket, error) {
	if err := core.ValidateYear(year); err != nil {
		return nil, err
	}

	var income, expense map[int]core.Money
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = a.store.PaymentTotalsByMonth(gctx, year)
		if err != nil {
			return fmt.Errorf("payment totals for %d: %w", year, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expense, err = a.store.ExpenseTotalsByMonth(gctx, year)
		if err != nil {
			return fmt.Errorf("expense totals for %d: %w", year, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	buckets := make([]core.PeriodBucket, 0, 12)
	for m := 1; m <= 12; m++ {
		buckets = append(buckets, core.NewPeriodBucket(core.Period{Year: year, Month: m}, income[m], expense[m]))
	}
	return buckets, nil
}

// Summary totals a month, or the whole year when month is zero.
func (a *PeriodAggregator) Summary(ctx context.Context, year, month int) (core.Summary, error) {
	if err := core.ValidateYear(year); err != nil {
		return core.Summary{}, err
	}
	if month != 0 {
		if err := (core.Period{Year: year, Month: month}).Validate(); err != nil {
			return core.Summary{}, err
		}
	}

	var income, expense core.Money
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = a.store.SumPayments(gctx, ledger.PaymentFilter{Year: year, Month: month})
		if err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		expense, err = a.store.SumExpenses(gctx, ledger.ExpenseFilter{Year: year, Month: month})
		if err != nil {
			return fmt.Errorf("sum expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.Summary{}, err
	}
	return core.NewSummary(income, expense), nil
}

// Yearly totals every payment and expense dated in year.
func (a *PeriodAggregator) Yearly(ctx context.Context, year int) (core.Summary, error) {
	return a.Summary(ctx, year, 0)
}
