package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"society/internal/core"
	"society/internal/ledger"
	"society/internal/storage"
)

func newComposer(store ledger.Store, year, month, day int) *AnalyticsComposer {
	agg := NewPeriodAggregator(store)
	dues := NewDuesCalculator(store, store)
	return NewAnalyticsComposer(agg, dues, store, fixedClock(year, month, day))
}

func TestAnalyticsSections(t *testing.T) {
	fx := newFixture(t)
	fx.pay(t, "A-1", 300000, core.NewDate(2024, 3, 2), core.Period{Year: 2024, Month: 3})
	fx.pay(t, "A-2", 500000, core.NewDate(2024, 3, 3), core.Period{Year: 2024, Month: 3})
	fx.spend(t, "Security", 100000, core.NewDate(2024, 3, 20))

	a, err := newComposer(fx.store, 2024, 3, 25).Analytics(context.Background(), 2024)
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Monthly) != 12 {
		t.Fatalf("expected 12 monthly buckets, got %d", len(a.Monthly))
	}
	if a.Yearly.TotalIncome.Cents != 800000 || a.Yearly.Net.Cents != 700000 {
		t.Fatalf("unexpected yearly %+v", a.Yearly)
	}
	if len(a.PendingFlatsByMonth) != PendingWindowMonths {
		t.Fatalf("expected %d window months, got %d", PendingWindowMonths, len(a.PendingFlatsByMonth))
	}

	march := a.PendingFlatsByMonth["2024-03"]
	if len(march) != 2 {
		t.Fatalf("expected A-1 and A-10 pending in March, got %+v", march)
	}
	if march[0].FlatNumber != "A-1" || march[0].PendingAmount.Cents != 200000 {
		t.Errorf("unexpected first entry %+v", march[0])
	}
	if march[1].FlatNumber != "A-10" || march[1].PendingAmount.Cents != 500000 {
		t.Errorf("unexpected second entry %+v", march[1])
	}
}

func TestAnalyticsIsAtomic(t *testing.T) {
	fx := newFixture(t)
	store := &failingStore{Store: fx.store, failPaid: true}

	a, err := newComposer(store, 2024, 3, 25).Analytics(context.Background(), 2024)
	if a != nil {
		t.Fatalf("expected no partial analytics, got %+v", a)
	}
	if !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAnalyticsRejectsInvalidYear(t *testing.T) {
	fx := newFixture(t)
	if _, err := newComposer(fx.store, 2024, 3, 25).Analytics(context.Background(), -1); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAnalyticsIdempotent(t *testing.T) {
	fx := newFixture(t)
	fx.pay(t, "A-1", 300000, core.NewDate(2024, 3, 2), core.Period{Year: 2024, Month: 3})
	c := newComposer(fx.store, 2024, 3, 25)

	first, err := c.Analytics(context.Background(), 2024)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Analytics(context.Background(), 2024)
	if err != nil {
		t.Fatal(err)
	}
	if first.Yearly != second.Yearly || len(first.PendingFlatsByMonth["2024-03"]) != len(second.PendingFlatsByMonth["2024-03"]) {
		t.Fatal("repeated calls over unchanged data must agree")
	}
}

func TestDashboardSummary(t *testing.T) {
	fx := newFixture(t)
	fx.pay(t, "A-1", 300000, core.NewDate(2024, 3, 2), core.Period{Year: 2024, Month: 3})
	fx.spend(t, "Water", 50000, core.NewDate(2024, 3, 9))

	s, err := newComposer(fx.store, 2024, 3, 25).Summary(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.Period != (core.Period{Year: 2024, Month: 3}) {
		t.Fatalf("unexpected period %+v", s.Period)
	}
	if s.Totals.Net.Cents != 250000 {
		t.Fatalf("unexpected totals %+v", s.Totals)
	}
	if len(s.Flats) != 3 {
		t.Fatalf("expected 3 flats, got %d", len(s.Flats))
	}
}

func TestAnalyticsSQLStoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 4; i++ {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("database is locked"))
	}

	repo := storage.NewWithDB(db)
	a, err := newComposer(repo, 2024, 3, 25).Analytics(context.Background(), 2024)
	if a != nil {
		t.Fatalf("expected no partial analytics, got %+v", a)
	}
	if !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
