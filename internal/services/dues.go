package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"society/internal/core"
	"society/internal/ledger"
)

// DuesCalculator finds flats whose payments for a billing period fall short
// of their maintenance amount.
type DuesCalculator struct {
	flats ledger.FlatReader
	dues  ledger.DuesReader
}

func NewDuesCalculator(flats ledger.FlatReader, dues ledger.DuesReader) *DuesCalculator {
	return &DuesCalculator{flats: flats, dues: dues}
}

// Pending lists flats with a positive shortfall for period, in natural flat
// number order. Every flat is considered, whatever its status.
func (d *DuesCalculator) Pending(ctx context.Context, period core.Period) ([]core.PendingEntry, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	flats, err := d.flats.ListFlats(ctx, ledger.FlatFilter{})
	if err != nil {
		return nil, fmt.Errorf("list flats: %w", err)
	}
	return d.pendingFor(ctx, flats, period)
}

func (d *DuesCalculator) pendingFor(ctx context.Context, flats []core.Flat, period core.Period) ([]core.PendingEntry, error) {
	paid, err := d.dues.PaidByFlat(ctx, period)
	if err != nil {
		return nil, fmt.Errorf("payments for %s: %w", period.Key(), err)
	}
	return PendingEntries(flats, paid, period), nil
}

// PendingEntries applies the dues rule: pending = maintenance - paid, and a
// flat is listed only when pending > 0. A flat with no payment at all owes
// its full maintenance amount.
func PendingEntries(flats []core.Flat, paid map[int64]core.Money, period core.Period) []core.PendingEntry {
	out := []core.PendingEntry{}
	for _, f := range flats {
		got := paid[f.ID]
		pending := f.MaintenanceAmount.Sub(got)
		if pending.Cents <= 0 {
			continue
		}
		out = append(out, core.PendingEntry{
			FlatID:            f.ID,
			FlatNumber:        f.FlatNumber,
			OwnerName:         f.OwnerName,
			Year:              period.Year,
			Month:             period.Month,
			MaintenanceAmount: f.MaintenanceAmount,
			Paid:              got,
			PendingAmount:     pending,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return core.CompareFlatNumbers(out[i].FlatNumber, out[j].FlatNumber) < 0
	})
	return out
}

// PendingWindow computes Pending for the month containing now and the n-1
// months before it, keyed by "YYYY-MM".
func (d *DuesCalculator) PendingWindow(ctx context.Context, now time.Time, n int) (map[string][]core.PendingEntry, error) {
	flats, err := d.flats.ListFlats(ctx, ledger.FlatFilter{})
	if err != nil {
		return nil, fmt.Errorf("list flats: %w", err)
	}

	var mu sync.Mutex
	out := make(map[string][]core.PendingEntry, n)
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range core.RollingPeriods(now, n) {
		g.Go(func() error {
			entries, err := d.pendingFor(gctx, flats, p)
			if err != nil {
				return err
			}
			mu.Lock()
			out[p.Key()] = entries
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
