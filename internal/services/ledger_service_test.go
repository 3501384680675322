package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"society/internal/amqp"
	"society/internal/core"
	"society/internal/ledger"
)

func TestCreatePaymentDefaultsAndPublishes(t *testing.T) {
	fx := newFixture(t)
	pub := &recordingPublisher{}
	svc := NewLedgerService(fx.store, pub)

	p, err := svc.CreatePayment(context.Background(), core.Payment{
		FlatID:       fx.flats["A-1"].ID,
		AmountPaid:   core.Cents(500000),
		PaymentDate:  core.NewDate(2024, 4, 2),
		BillingMonth: 3,
		BillingYear:  2024,
	}, core.Actor{Source: core.ActorFallback})
	if err != nil {
		t.Fatal(err)
	}
	if p.Mode != core.DefaultPaymentMode {
		t.Errorf("expected default mode %q, got %q", core.DefaultPaymentMode, p.Mode)
	}
	if p.CreatedBy == nil || *p.CreatedBy != fx.admin.ID {
		t.Errorf("expected fallback actor %d, got %v", fx.admin.ID, p.CreatedBy)
	}
	// events carry the report month, which follows the recorded date
	if got := pub.periods(); !reflect.DeepEqual(got, []string{"2024-04"}) {
		t.Fatalf("unexpected event periods %v", got)
	}
	if pub.msgs[0].Entity != amqp.EntityPayment || pub.msgs[0].Action != amqp.ActionCreated {
		t.Errorf("unexpected event %+v", pub.msgs[0])
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	fx := newFixture(t)
	svc := NewLedgerService(fx.store, nil)

	tests := []struct {
		name string
		p    core.Payment
	}{
		{"missing flat", core.Payment{AmountPaid: core.Cents(1), PaymentDate: core.NewDate(2024, 1, 1), BillingMonth: 1, BillingYear: 2024}},
		{"zero amount", core.Payment{FlatID: 1, PaymentDate: core.NewDate(2024, 1, 1), BillingMonth: 1, BillingYear: 2024}},
		{"billing month 13", core.Payment{FlatID: 1, AmountPaid: core.Cents(1), PaymentDate: core.NewDate(2024, 1, 1), BillingMonth: 13, BillingYear: 2024}},
		{"no date", core.Payment{FlatID: 1, AmountPaid: core.Cents(1), BillingMonth: 1, BillingYear: 2024}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreatePayment(context.Background(), tt.p, core.Actor{Source: core.ActorFallback}); !core.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	fx := newFixture(t)
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewLedgerService(fx.store, pub)

	e, err := svc.CreateExpense(context.Background(), core.Expense{
		Title: "Lift AMC", Amount: core.Cents(120000), Date: core.NewDate(2024, 3, 10),
	}, core.Actor{UserID: fx.admin.ID, Source: core.ActorFromToken})
	if err != nil {
		t.Fatalf("write must succeed when publishing fails: %v", err)
	}
	if _, err := fx.store.GetExpense(context.Background(), e.ID); err != nil {
		t.Fatalf("expense should be stored: %v", err)
	}
}

func TestUpdatePaymentAcrossMonthsPublishesBoth(t *testing.T) {
	fx := newFixture(t)
	p := fx.pay(t, "A-2", 500000, core.NewDate(2024, 3, 31), core.Period{Year: 2024, Month: 3})
	pub := &recordingPublisher{}
	svc := NewLedgerService(fx.store, pub)

	p.PaymentDate = core.NewDate(2024, 4, 1)
	if _, err := svc.UpdatePayment(context.Background(), p, core.Actor{Source: core.ActorFallback}); err != nil {
		t.Fatal(err)
	}
	if got := pub.periods(); !reflect.DeepEqual(got, []string{"2024-04", "2024-03"}) {
		t.Fatalf("unexpected event periods %v", got)
	}
}

func TestDeleteGate(t *testing.T) {
	fx := newFixture(t)
	p := fx.pay(t, "A-1", 500000, core.NewDate(2024, 3, 1), core.Period{Year: 2024, Month: 3})
	e := fx.spend(t, "Garden", 20000, core.NewDate(2024, 3, 2))
	pub := &recordingPublisher{}
	svc := NewLedgerService(fx.store, pub)
	ctx := context.Background()

	t.Run("disabled by default", func(t *testing.T) {
		if err := svc.DeletePayment(ctx, p.ID); !errors.Is(err, core.ErrDeleteDisabled) {
			t.Fatalf("expected ErrDeleteDisabled, got %v", err)
		}
		if err := svc.DeleteExpense(ctx, e.ID); !errors.Is(err, core.ErrDeleteDisabled) {
			t.Fatalf("expected ErrDeleteDisabled, got %v", err)
		}
		if _, err := fx.store.GetPayment(ctx, p.ID); err != nil {
			t.Fatalf("payment must survive a refused delete: %v", err)
		}
		if len(pub.msgs) != 0 {
			t.Fatalf("refused delete must not publish, got %d events", len(pub.msgs))
		}
	})

	t.Run("enabled", func(t *testing.T) {
		if err := svc.SetDeleteEnabled(ctx, true); err != nil {
			t.Fatal(err)
		}
		enabled, err := svc.DeleteEnabled(ctx)
		if err != nil || !enabled {
			t.Fatalf("flag should read back enabled, got %v %v", enabled, err)
		}
		if err := svc.DeletePayment(ctx, p.ID); err != nil {
			t.Fatal(err)
		}
		if err := svc.DeleteExpense(ctx, e.ID); err != nil {
			t.Fatal(err)
		}
		if _, err := fx.store.GetPayment(ctx, p.ID); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected payment gone, got %v", err)
		}
		if len(pub.msgs) != 2 || pub.msgs[0].Action != amqp.ActionDeleted {
			t.Fatalf("expected two delete events, got %+v", pub.msgs)
		}
	})

	t.Run("missing record", func(t *testing.T) {
		if err := svc.DeletePayment(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestCreateFlatDefaults(t *testing.T) {
	svc := NewLedgerService(newFixture(t).store, nil)

	f, err := svc.CreateFlat(context.Background(), core.Flat{
		FlatNumber: "B-5", OwnerName: "Iyer", OwnershipType: core.Rented, MaintenanceAmount: core.Cents(300000),
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.FlatType != core.DefaultFlatType || f.Status != core.FlatActive {
		t.Fatalf("unexpected defaults %+v", f)
	}

	_, err = svc.CreateFlat(context.Background(), core.Flat{
		FlatNumber: "b-5", OwnerName: "Other", OwnershipType: core.Owned,
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict for a duplicate flat number, got %v", err)
	}
}

func TestListPaymentsByUnknownFlat(t *testing.T) {
	svc := NewLedgerService(newFixture(t).store, nil)
	if _, err := svc.ListPaymentsByFlat(context.Background(), 404); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListPaymentsPagination(t *testing.T) {
	fx := newFixture(t)
	for d := 1; d <= 12; d++ {
		fx.pay(t, "A-1", 10000, core.NewDate(2024, 3, d), core.Period{Year: 2024, Month: 3})
	}
	svc := NewLedgerService(fx.store, nil)

	page, err := svc.ListPayments(context.Background(), ledger.PaymentQuery{Page: 2})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 12 || page.TotalPages != 2 || len(page.Items) != 2 || page.Limit != 10 {
		t.Fatalf("unexpected page %+v", page)
	}

	if _, err := svc.ListPayments(context.Background(), ledger.PaymentQuery{Month: 14}); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMonthlyExpenseTotal(t *testing.T) {
	fx := newFixture(t)
	fx.spend(t, "Water", 10000, core.NewDate(2024, 3, 1))
	fx.spend(t, "Power", 25050, core.NewDate(2024, 3, 31))
	fx.spend(t, "Power", 99999, core.NewDate(2024, 4, 1))
	svc := NewLedgerService(fx.store, nil)

	total, err := svc.MonthlyExpenseTotal(context.Background(), 2024, 3)
	if err != nil {
		t.Fatal(err)
	}
	if total.Cents != 35050 {
		t.Fatalf("expected 35050, got %d", total.Cents)
	}
}

func TestLedgerServiceClose(t *testing.T) {
	t.Run("nil store", func(t *testing.T) {
		if err := (&LedgerService{}).Close(); err != nil {
			t.Fatalf("Close should not fail without a store: %v", err)
		}
	})
}
